// Package parser implements Farpy's Pratt-precedence expression parser
// and statement-level recursive descent.
package parser

import (
	"fmt"

	"github.com/FernandoTheDev/farpy-sub000/internal/domain"
	"github.com/FernandoTheDev/farpy-sub000/internal/lexer"
)

// precedence levels, ascending, per the Pratt table.
type precedence int

const (
	precLowest precedence = iota
	precAssign
	precOr
	precAnd
	precEquals
	precComparison
	precSum
	precProduct
	precExponent
	precPrefix
	precCall
)

var precedences = map[domain.TokenKind]precedence{
	domain.TokAssign:     precAssign,
	domain.TokOr:         precOr,
	domain.TokAnd:        precAnd,
	domain.TokEq:         precEquals,
	domain.TokNotEq:      precEquals,
	domain.TokLt:         precComparison,
	domain.TokGt:         precComparison,
	domain.TokLe:         precComparison,
	domain.TokGe:         precComparison,
	domain.TokPlus:       precSum,
	domain.TokMinus:      precSum,
	domain.TokStar:       precProduct,
	domain.TokSlash:      precProduct,
	domain.TokPercent:    precProduct,
	domain.TokPercentPct: precProduct,
	domain.TokStarStar:   precExponent,
	domain.TokLParen:     precCall,
	domain.TokLBracket:   precCall,
}

// Parser consumes a token stream (via the lexer, buffering two tokens of
// lookahead) and builds the tagged-union AST directly into an Arena.
type Parser struct {
	lex      *lexer.Lexer
	reporter domain.Reporter
	arena    *domain.Arena

	cur  domain.Token
	peek domain.Token
}

// New creates a parser reading tokens from lex, reporting errors to r and
// allocating AST nodes into arena.
func New(lex *lexer.Lexer, r domain.Reporter, arena *domain.Arena) *Parser {
	p := &Parser{lex: lex, reporter: r, arena: arena}
	p.advance()
	p.advance()
	return p
}

func (p *Parser) advance() {
	p.cur = p.peek
	p.peek = p.lex.Next()
}

func (p *Parser) at(k domain.TokenKind) bool  { return p.cur.Kind == k }
func (p *Parser) peekAt(k domain.TokenKind) bool { return p.peek.Kind == k }

func (p *Parser) expect(k domain.TokenKind, context string) (domain.Token, bool) {
	if !p.at(k) {
		p.errorf(context, "expected %s, found %s (%q)", k, p.cur.Kind, p.cur.Lexeme)
		return p.cur, false
	}
	t := p.cur
	p.advance()
	return t, true
}

func (p *Parser) errorf(context, format string, args ...interface{}) {
	p.reporter.Report(domain.NewError(domain.SyntaxError, fmt.Sprintf(format, args...), p.cur.Loc, context))
}

// synchronize skips tokens until a plausible statement boundary, so one
// malformed statement doesn't cascade into unrelated errors.
func (p *Parser) synchronize() {
	for !p.at(domain.TokEOF) {
		if p.at(domain.TokSemicolon) {
			p.advance()
			return
		}
		switch p.cur.Kind {
		case domain.TokFn, domain.TokNew, domain.TokIf, domain.TokWhile, domain.TokFor,
			domain.TokReturn, domain.TokImport, domain.TokExtern, domain.TokStruct:
			return
		}
		p.advance()
	}
}

// Parse consumes the whole token stream and returns the Program node
// reference. Parse errors are recorded on the reporter; the returned
// Program contains whatever statements were successfully built.
func (p *Parser) Parse() domain.NodeRef {
	loc := p.cur.Loc
	var body []domain.NodeRef
	for !p.at(domain.TokEOF) {
		stmt, ok := p.parseStatement()
		if !ok {
			p.synchronize()
			continue
		}
		body = append(body, stmt)
	}
	return p.arena.New(domain.Node{Kind: domain.NodeProgram, Loc: loc, Children: body})
}

func (p *Parser) parseStatement() (domain.NodeRef, bool) {
	switch p.cur.Kind {
	case domain.TokNew:
		return p.parseVarDecl()
	case domain.TokFn:
		return p.parseFuncDecl()
	case domain.TokReturn:
		return p.parseReturn()
	case domain.TokIf:
		return p.parseIf()
	case domain.TokWhile:
		return p.parseWhile()
	case domain.TokFor:
		return p.parseForRange()
	case domain.TokImport:
		return p.parseImport()
	case domain.TokExtern:
		return p.parseExtern()
	case domain.TokStruct:
		return p.parseStruct()
	case domain.TokLBrace:
		return p.parseBlock()
	default:
		return p.parseExprStatement()
	}
}

func (p *Parser) parseBlock() (domain.NodeRef, bool) {
	loc := p.cur.Loc
	if _, ok := p.expect(domain.TokLBrace, "block"); !ok {
		return domain.InvalidRef, false
	}
	var stmts []domain.NodeRef
	for !p.at(domain.TokRBrace) && !p.at(domain.TokEOF) {
		s, ok := p.parseStatement()
		if !ok {
			p.synchronize()
			continue
		}
		stmts = append(stmts, s)
	}
	p.expect(domain.TokRBrace, "block")
	return p.arena.New(domain.Node{Kind: domain.NodeProgram, Loc: loc, Children: stmts}), true
}

func (p *Parser) parseExprStatement() (domain.NodeRef, bool) {
	expr, ok := p.parseExpression(precLowest)
	if !ok {
		return domain.InvalidRef, false
	}
	if p.at(domain.TokSemicolon) {
		p.advance()
	}
	return expr, true
}

// parseVarDecl handles `new [mut] name[: type] = expr`.
func (p *Parser) parseVarDecl() (domain.NodeRef, bool) {
	loc := p.cur.Loc
	p.advance() // 'new'
	mutable := true
	if p.at(domain.TokMut) {
		p.advance()
	}
	name, ok := p.expect(domain.TokIdentifier, "variable declaration")
	if !ok {
		return domain.InvalidRef, false
	}
	declType := ""
	if p.at(domain.TokColon) {
		p.advance()
		t, ok := p.expect(domain.TokIdentifier, "variable declaration type")
		if !ok {
			return domain.InvalidRef, false
		}
		declType = t.Lexeme
	}
	if _, ok := p.expect(domain.TokAssign, "variable declaration"); !ok {
		return domain.InvalidRef, false
	}
	value, ok := p.parseExpression(precAssign)
	if !ok {
		return domain.InvalidRef, false
	}
	if p.at(domain.TokSemicolon) {
		p.advance()
	}
	return p.arena.New(domain.Node{
		Kind: domain.NodeVariableDeclaration, Loc: loc, Name: name.Lexeme,
		DeclType: declType, IsMutable: mutable, Right: value,
	}), true
}

// parseFuncDecl handles `fn name(arg: T [| T]* [= default], ...): T [| T]* { ... }`.
func (p *Parser) parseFuncDecl() (domain.NodeRef, bool) {
	loc := p.cur.Loc
	p.advance() // 'fn'
	name, ok := p.expect(domain.TokIdentifier, "function declaration")
	if !ok {
		return domain.InvalidRef, false
	}
	if _, ok := p.expect(domain.TokLParen, "function parameters"); !ok {
		return domain.InvalidRef, false
	}
	var params []domain.Param
	for !p.at(domain.TokRParen) && !p.at(domain.TokEOF) {
		pname, ok := p.expect(domain.TokIdentifier, "function parameter")
		if !ok {
			return domain.InvalidRef, false
		}
		ptype := ""
		if p.at(domain.TokColon) {
			p.advance()
			t, ok := p.expect(domain.TokIdentifier, "parameter type")
			if !ok {
				return domain.InvalidRef, false
			}
			ptype = t.Lexeme
			for p.at(domain.TokPipe) {
				p.advance()
				t2, ok := p.expect(domain.TokIdentifier, "union parameter type")
				if !ok {
					return domain.InvalidRef, false
				}
				ptype += "|" + t2.Lexeme
			}
		}
		param := domain.Param{Name: pname.Lexeme, Type: ptype}
		if p.at(domain.TokAssign) {
			p.advance()
			def, ok := p.parseExpression(precAssign)
			if !ok {
				return domain.InvalidRef, false
			}
			param.Default = def
			param.HasDefault = true
		}
		params = append(params, param)
		if p.at(domain.TokComma) {
			p.advance()
		}
	}
	if _, ok := p.expect(domain.TokRParen, "function parameters"); !ok {
		return domain.InvalidRef, false
	}
	returnType := "void"
	if p.at(domain.TokColon) {
		p.advance()
		t, ok := p.expect(domain.TokIdentifier, "return type")
		if !ok {
			return domain.InvalidRef, false
		}
		returnType = t.Lexeme
		for p.at(domain.TokPipe) {
			p.advance()
			t2, ok := p.expect(domain.TokIdentifier, "union return type")
			if !ok {
				return domain.InvalidRef, false
			}
			returnType += "|" + t2.Lexeme
		}
	}
	body, ok := p.parseBlock()
	if !ok {
		return domain.InvalidRef, false
	}
	return p.arena.New(domain.Node{
		Kind: domain.NodeFunctionDeclaration, Loc: loc, Name: name.Lexeme,
		Params: params, ReturnType: returnType, Body: body,
	}), true
}

func (p *Parser) parseReturn() (domain.NodeRef, bool) {
	loc := p.cur.Loc
	p.advance()
	var value domain.NodeRef
	if !p.at(domain.TokSemicolon) && !p.at(domain.TokRBrace) && !p.at(domain.TokEOF) {
		v, ok := p.parseExpression(precLowest)
		if !ok {
			return domain.InvalidRef, false
		}
		value = v
	}
	if p.at(domain.TokSemicolon) {
		p.advance()
	}
	return p.arena.New(domain.Node{Kind: domain.NodeReturnStatement, Loc: loc, Right: value}), true
}

// parseIf handles `if cond { ... } [elif cond { ... }]* [else { ... }]`.
func (p *Parser) parseIf() (domain.NodeRef, bool) {
	loc := p.cur.Loc
	p.advance() // 'if'
	cond, ok := p.parseExpression(precLowest)
	if !ok {
		return domain.InvalidRef, false
	}
	then, ok := p.parseBlock()
	if !ok {
		return domain.InvalidRef, false
	}
	node := domain.Node{Kind: domain.NodeIfStatement, Loc: loc, Condition: cond, Then: then}

	for p.at(domain.TokElif) {
		elifLoc := p.cur.Loc
		p.advance()
		econd, ok := p.parseExpression(precLowest)
		if !ok {
			return domain.InvalidRef, false
		}
		ethen, ok := p.parseBlock()
		if !ok {
			return domain.InvalidRef, false
		}
		elifRef := p.arena.New(domain.Node{Kind: domain.NodeElifStatement, Loc: elifLoc, Condition: econd, Then: ethen})
		node.ElifChain = append(node.ElifChain, elifRef)
	}

	if p.at(domain.TokElse) {
		elseLoc := p.cur.Loc
		p.advance()
		eblock, ok := p.parseBlock()
		if !ok {
			return domain.InvalidRef, false
		}
		node.ElseBranch = p.arena.New(domain.Node{Kind: domain.NodeElseStatement, Loc: elseLoc, Then: eblock})
	}

	return p.arena.New(node), true
}

func (p *Parser) parseWhile() (domain.NodeRef, bool) {
	loc := p.cur.Loc
	p.advance()
	cond, ok := p.parseExpression(precLowest)
	if !ok {
		return domain.InvalidRef, false
	}
	body, ok := p.parseBlock()
	if !ok {
		return domain.InvalidRef, false
	}
	return p.arena.New(domain.Node{Kind: domain.NodeWhileStatement, Loc: loc, Condition: cond, Then: body}), true
}

// parseForRange handles `for id from a .. b [step s] { ... }` (exclusive)
// and `for id from a ... b [step s] { ... }` (inclusive).
func (p *Parser) parseForRange() (domain.NodeRef, bool) {
	loc := p.cur.Loc
	p.advance() // 'for'
	name, ok := p.expect(domain.TokIdentifier, "for-range loop variable")
	if !ok {
		return domain.InvalidRef, false
	}
	if _, ok := p.expect(domain.TokFrom, "for-range loop"); !ok {
		return domain.InvalidRef, false
	}
	start, ok := p.parseExpression(precSum)
	if !ok {
		return domain.InvalidRef, false
	}
	inclusive := false
	switch p.cur.Kind {
	case domain.TokRange:
		p.advance()
	case domain.TokRangeIncl:
		inclusive = true
		p.advance()
	default:
		p.errorf("for-range loop", "expected '..' or '...', found %s", p.cur.Kind)
		return domain.InvalidRef, false
	}
	end, ok := p.parseExpression(precSum)
	if !ok {
		return domain.InvalidRef, false
	}
	step := domain.InvalidRef
	if p.at(domain.TokStep) {
		p.advance()
		s, ok := p.parseExpression(precSum)
		if !ok {
			return domain.InvalidRef, false
		}
		step = s
	}
	body, ok := p.parseBlock()
	if !ok {
		return domain.InvalidRef, false
	}
	return p.arena.New(domain.Node{
		Kind: domain.NodeForRangeStatement, Loc: loc, Name: name.Lexeme,
		RangeStart: start, RangeEnd: end, RangeInclusive: inclusive, Step: step, Then: body,
	}), true
}

// parseImport handles `import "path"`.
func (p *Parser) parseImport() (domain.NodeRef, bool) {
	loc := p.cur.Loc
	p.advance()
	path, ok := p.expect(domain.TokString, "import statement")
	if !ok {
		return domain.InvalidRef, false
	}
	if p.at(domain.TokSemicolon) {
		p.advance()
	}
	isStdlib := !containsDot(path.Literal.Str)
	return p.arena.New(domain.Node{Kind: domain.NodeImportStatement, Loc: loc, ModulePath: path.Literal.Str, BoolValue: isStdlib}), true
}

func containsDot(s string) bool {
	for _, r := range s {
		if r == '.' {
			return true
		}
	}
	return false
}

// parseExtern handles `extern "C" { fn name(T,...): T; ... } """raw C code"""`.
// Kept deliberately permissive: this is one of the token-kind-gap features
// spec.md's design notes mark as an optional extension.
func (p *Parser) parseExtern() (domain.NodeRef, bool) {
	loc := p.cur.Loc
	p.advance() // 'extern'
	lang := "C"
	if p.at(domain.TokString) {
		lang = p.cur.Literal.Str
		p.advance()
	}
	if _, ok := p.expect(domain.TokLBrace, "extern block"); !ok {
		return domain.InvalidRef, false
	}
	var fns []domain.NodeRef
	for !p.at(domain.TokRBrace) && !p.at(domain.TokEOF) {
		decl, ok := p.parseExternFnSig()
		if !ok {
			p.synchronize()
			continue
		}
		fns = append(fns, decl)
	}
	p.expect(domain.TokRBrace, "extern block")
	// The lexer has no triple-quote token: `"""body"""` arrives as an empty
	// string, the body, and another empty string, so adjacent string
	// tokens are joined. The body therefore cannot contain a `"`.
	raw := ""
	for p.at(domain.TokString) {
		raw += p.cur.Literal.Str
		p.advance()
	}
	return p.arena.New(domain.Node{
		Kind: domain.NodeExternStatement, Loc: loc, ExternLang: lang,
		Children: fns, StringValue: raw,
	}), true
}

func (p *Parser) parseExternFnSig() (domain.NodeRef, bool) {
	loc := p.cur.Loc
	if _, ok := p.expect(domain.TokFn, "extern function signature"); !ok {
		return domain.InvalidRef, false
	}
	name, ok := p.expect(domain.TokIdentifier, "extern function signature")
	if !ok {
		return domain.InvalidRef, false
	}
	if _, ok := p.expect(domain.TokLParen, "extern function signature"); !ok {
		return domain.InvalidRef, false
	}
	var params []domain.Param
	for !p.at(domain.TokRParen) && !p.at(domain.TokEOF) {
		t, ok := p.expect(domain.TokIdentifier, "extern parameter type")
		if !ok {
			return domain.InvalidRef, false
		}
		params = append(params, domain.Param{Type: t.Lexeme})
		if p.at(domain.TokComma) {
			p.advance()
		}
	}
	p.expect(domain.TokRParen, "extern function signature")
	returnType := "void"
	if p.at(domain.TokColon) {
		p.advance()
		t, ok := p.expect(domain.TokIdentifier, "extern return type")
		if !ok {
			return domain.InvalidRef, false
		}
		returnType = t.Lexeme
	}
	if p.at(domain.TokSemicolon) {
		p.advance()
	}
	return p.arena.New(domain.Node{Kind: domain.NodeFunctionDeclaration, Loc: loc, Name: name.Lexeme, Params: params, ReturnType: returnType}), true
}

func (p *Parser) parseStruct() (domain.NodeRef, bool) {
	loc := p.cur.Loc
	p.advance() // 'struct'
	name, ok := p.expect(domain.TokIdentifier, "struct declaration")
	if !ok {
		return domain.InvalidRef, false
	}
	if _, ok := p.expect(domain.TokLBrace, "struct declaration"); !ok {
		return domain.InvalidRef, false
	}
	var fields []domain.StructField
	for !p.at(domain.TokRBrace) && !p.at(domain.TokEOF) {
		fname, ok := p.expect(domain.TokIdentifier, "struct field")
		if !ok {
			return domain.InvalidRef, false
		}
		if _, ok := p.expect(domain.TokColon, "struct field"); !ok {
			return domain.InvalidRef, false
		}
		ftype, ok := p.expect(domain.TokIdentifier, "struct field type")
		if !ok {
			return domain.InvalidRef, false
		}
		fields = append(fields, domain.StructField{Name: fname.Lexeme, Type: ftype.Lexeme})
		if p.at(domain.TokComma) {
			p.advance()
		}
	}
	p.expect(domain.TokRBrace, "struct declaration")
	return p.arena.New(domain.Node{Kind: domain.NodeStructStatement, Loc: loc, Name: name.Lexeme, Fields: fields}), true
}

// parseExpression is the Pratt core: parse one prefix term, then fold in
// infix/postfix operators whose precedence exceeds minPrec.
func (p *Parser) parseExpression(minPrec precedence) (domain.NodeRef, bool) {
	left, ok := p.parsePrefix()
	if !ok {
		return domain.InvalidRef, false
	}

	for {
		prec, known := precedences[p.cur.Kind]
		if !known || prec <= minPrec {
			break
		}
		next, ok := p.parseInfix(left, prec)
		if !ok {
			return domain.InvalidRef, false
		}
		left = next
	}
	return left, true
}

func (p *Parser) parsePrefix() (domain.NodeRef, bool) {
	loc := p.cur.Loc
	switch p.cur.Kind {
	case domain.TokInt:
		v := p.cur.Literal.Int
		p.advance()
		return p.arena.New(domain.Node{Kind: domain.NodeIntLiteral, Loc: loc, IntValue: v}), true
	case domain.TokFloat:
		v := p.cur.Literal.Float
		p.advance()
		return p.arena.New(domain.Node{Kind: domain.NodeFloatLiteral, Loc: loc, FloatValue: v}), true
	case domain.TokString:
		v := p.cur.Literal.Str
		p.advance()
		return p.arena.New(domain.Node{Kind: domain.NodeStringLiteral, Loc: loc, StringValue: v}), true
	case domain.TokBinary:
		v := p.cur.Literal.Int
		p.advance()
		return p.arena.New(domain.Node{Kind: domain.NodeBinaryLiteral, Loc: loc, IntValue: v}), true
	case domain.TokTrue, domain.TokFalse:
		v := p.cur.Literal.Bool
		p.advance()
		return p.arena.New(domain.Node{Kind: domain.NodeBooleanLiteral, Loc: loc, BoolValue: v}), true
	case domain.TokNull:
		p.advance()
		return p.arena.New(domain.Node{Kind: domain.NodeNullLiteral, Loc: loc}), true
	case domain.TokIdentifier:
		return p.parseIdentifierOrSpecial(loc)
	case domain.TokLParen:
		p.advance()
		inner, ok := p.parseExpression(precLowest)
		if !ok {
			return domain.InvalidRef, false
		}
		p.expect(domain.TokRParen, "parenthesized expression")
		return inner, true
	case domain.TokLBracket:
		return p.parseArrayLiteral(loc)
	case domain.TokMinus, domain.TokBang, domain.TokStar, domain.TokAmp:
		op := p.cur.Lexeme
		p.advance()
		operand, ok := p.parseExpression(precPrefix)
		if !ok {
			return domain.InvalidRef, false
		}
		return p.arena.New(domain.Node{Kind: domain.NodeUnaryExpr, Loc: loc, Operator: op, Right: operand}), true
	case domain.TokEOF:
		p.errorf("expression", "unexpected end of input")
		return domain.InvalidRef, false
	case domain.TokError:
		// The lexer already reported a classified LexicalError diagnostic
		// for this token (see lexer.errTok); don't pile a confusing
		// "no prefix parser for ERROR" SyntaxError on top of it.
		p.advance()
		return domain.InvalidRef, false
	default:
		p.errorf("expression", "no prefix parser for token %s (%q)", p.cur.Kind, p.cur.Lexeme)
		p.advance()
		return domain.InvalidRef, false
	}
}

func (p *Parser) parseArrayLiteral(loc domain.Location) (domain.NodeRef, bool) {
	p.advance() // '['
	var elems []domain.NodeRef
	for !p.at(domain.TokRBracket) && !p.at(domain.TokEOF) {
		e, ok := p.parseExpression(precAssign)
		if !ok {
			return domain.InvalidRef, false
		}
		elems = append(elems, e)
		if p.at(domain.TokComma) {
			p.advance()
		}
	}
	p.expect(domain.TokRBracket, "array literal")
	return p.arena.New(domain.Node{Kind: domain.NodeArrayLiteral, Loc: loc, Children: elems}), true
}

// parseIdentifierOrSpecial looks ahead after an identifier: `(` starts a
// call, `=` starts an assignment, anything else is a bare identifier
// reference (possibly followed by an index-access postfix operator).
func (p *Parser) parseIdentifierOrSpecial(loc domain.Location) (domain.NodeRef, bool) {
	name := p.cur.Lexeme
	p.advance()

	if p.at(domain.TokLParen) {
		return p.parseCall(loc, name)
	}
	if p.at(domain.TokAssign) {
		p.advance()
		value, ok := p.parseExpression(precAssign)
		if !ok {
			return domain.InvalidRef, false
		}
		return p.arena.New(domain.Node{Kind: domain.NodeAssignmentDeclaration, Loc: loc, Name: name, Right: value}), true
	}
	return p.arena.New(domain.Node{Kind: domain.NodeIdentifier, Loc: loc, Name: name}), true
}

func (p *Parser) parseCall(loc domain.Location, callee string) (domain.NodeRef, bool) {
	p.advance() // '('
	var args []domain.NodeRef
	for !p.at(domain.TokRParen) && !p.at(domain.TokEOF) {
		a, ok := p.parseExpression(precAssign)
		if !ok {
			return domain.InvalidRef, false
		}
		args = append(args, a)
		if p.at(domain.TokComma) {
			p.advance()
		}
	}
	p.expect(domain.TokRParen, "call arguments")
	return p.arena.New(domain.Node{Kind: domain.NodeCallExpr, Loc: loc, Name: callee, Children: args}), true
}

// parseInfix folds one infix/postfix operator into left, at precedence
// prec (the precedence of p.cur at entry).
func (p *Parser) parseInfix(left domain.NodeRef, prec precedence) (domain.NodeRef, bool) {
	loc := p.cur.Loc

	if p.cur.Kind == domain.TokLBracket {
		p.advance()
		idx, ok := p.parseExpression(precLowest)
		if !ok {
			return domain.InvalidRef, false
		}
		p.expect(domain.TokRBracket, "index access")
		return p.arena.New(domain.Node{Kind: domain.NodeIndexAccess, Loc: loc, Left: left, Index: idx}), true
	}

	op := p.cur.Lexeme
	p.advance()

	// Exponentiation is right-associative; everything else is left.
	nextMin := prec
	if op == "**" {
		nextMin = prec - 1
	}
	right, ok := p.parseExpression(nextMin)
	if !ok {
		return domain.InvalidRef, false
	}
	return p.arena.New(domain.Node{Kind: domain.NodeBinaryExpr, Loc: loc, Operator: op, Left: left, Right: right}), true
}
