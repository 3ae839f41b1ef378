// Package semantic resolves identifiers, checks types, maps source
// types to LLVM type tags, registers function signatures and imported
// standard-library modules, and tracks identifier usage.
package semantic

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/FernandoTheDev/farpy-sub000/internal/domain"
	"github.com/FernandoTheDev/farpy-sub000/internal/lexer"
	"github.com/FernandoTheDev/farpy-sub000/internal/parser"
	"github.com/FernandoTheDev/farpy-sub000/internal/stdlib"
	"github.com/FernandoTheDev/farpy-sub000/internal/typecheck"
)

// Analyzer recurses the tagged-union AST, annotating each node's Type
// field and building the scope stack / function registry as it goes.
type Analyzer struct {
	arena    *domain.Arena
	reporter domain.Reporter
	checker  *typecheck.Checker
	scopes   *domain.ScopeStack
	funcs    *domain.FunctionRegistry
	stdlib   *stdlib.Registry

	imported map[string]bool // stdlib modules already imported
	used     map[string]bool // identifiers referenced anywhere

	sourceDir  string
	sourceFile string
}

// New creates an analyzer for one compilation. sourceDir/sourceFile are
// used to resolve external `import "sibling.fp"` statements relative to
// the entry file's directory.
func New(arena *domain.Arena, reporter domain.Reporter, registry *stdlib.Registry, sourceDir, sourceFile string) *Analyzer {
	return &Analyzer{
		arena:      arena,
		reporter:   reporter,
		checker:    typecheck.New(),
		scopes:     domain.NewScopeStack(),
		funcs:      domain.NewFunctionRegistry(),
		stdlib:     registry,
		imported:   make(map[string]bool),
		used:       make(map[string]bool),
		sourceDir:  sourceDir,
		sourceFile: sourceFile,
	}
}

// UsedIdentifiers returns the set of names referenced anywhere during
// analysis, consulted by the dead-code analyzer.
func (a *Analyzer) UsedIdentifiers() map[string]bool { return a.used }

// Functions exposes the function registry so the IR emitter can look up
// signatures without re-deriving them.
func (a *Analyzer) Functions() *domain.FunctionRegistry { return a.funcs }

// Analyze walks Program top to bottom: a first pass declares every
// top-level function signature (so forward references and recursion
// work), then a second pass analyzes each statement's body.
func (a *Analyzer) Analyze(program domain.NodeRef) {
	prog := a.arena.Get(program)

	for _, ref := range prog.Children {
		n := a.arena.Get(ref)
		if n.Kind == domain.NodeFunctionDeclaration {
			a.registerFunctionSignature(ref)
		}
	}
	for _, ref := range prog.Children {
		a.analyzeStatement(ref)
	}
}

func (a *Analyzer) registerFunctionSignature(ref domain.NodeRef) {
	n := a.arena.Get(ref)
	meta := &domain.FunctionMeta{Name: n.Name, Params: n.Params, ReturnType: n.ReturnType, LLVMName: n.Name}
	if !a.funcs.Register(meta) {
		a.err(domain.SemanticError, fmt.Sprintf("function '%s' already declared", n.Name), n.Loc, "function declaration")
	}
}

func (a *Analyzer) err(t domain.ErrorType, msg string, loc domain.Location, ctx string) {
	a.reporter.Report(domain.NewError(t, msg, loc, ctx))
}

// analyzeStatement dispatches on NodeKind. It mutates the node's Type
// field in place (via arena.Get, which returns a pointer into the
// arena's backing slice).
func (a *Analyzer) analyzeStatement(ref domain.NodeRef) {
	if !a.arena.Valid(ref) {
		return
	}
	n := a.arena.Get(ref)
	switch n.Kind {
	case domain.NodeProgram:
		for _, c := range n.Children {
			a.analyzeStatement(c)
		}
	case domain.NodeVariableDeclaration:
		a.analyzeVarDecl(ref)
	case domain.NodeAssignmentDeclaration:
		a.analyzeAssignment(ref)
	case domain.NodeFunctionDeclaration:
		a.analyzeFunctionDecl(ref)
	case domain.NodeReturnStatement:
		a.analyzeReturn(ref)
	case domain.NodeIfStatement:
		a.analyzeIf(ref)
	case domain.NodeWhileStatement:
		a.analyzeWhile(ref)
	case domain.NodeForRangeStatement:
		a.analyzeForRange(ref)
	case domain.NodeImportStatement:
		a.analyzeImport(ref)
	case domain.NodeExternStatement:
		a.analyzeExtern(ref)
	case domain.NodeStructStatement:
		// Struct declarations carry no expression to type-check.
	default:
		a.analyzeExpr(ref)
	}
}

func (a *Analyzer) analyzeVarDecl(ref domain.NodeRef) {
	n := a.arena.Get(ref)
	a.analyzeExpr(n.Right)
	valType := a.arena.Get(n.Right).Type

	if _, exists := a.scopes.LookupLocal(n.Name); exists {
		a.err(domain.SemanticError, fmt.Sprintf("symbol '%s' already declared in current scope", n.Name), n.Loc, "variable declaration")
		return
	}
	sym := &domain.SymbolInfo{Name: n.Name, Type: valType, Kind: domain.SymbolVariable, Location: n.Loc, Mutable: n.IsMutable}
	a.scopes.Declare(sym)
	n.Type = valType
}

func (a *Analyzer) analyzeAssignment(ref domain.NodeRef) {
	n := a.arena.Get(ref)
	sym, ok := a.scopes.Lookup(n.Name)
	if !ok {
		a.err(domain.SemanticError, fmt.Sprintf("undefined identifier '%s'", n.Name), n.Loc, "assignment")
		return
	}
	if !sym.Mutable {
		a.err(domain.SemanticError, fmt.Sprintf("cannot assign to immutable symbol '%s'", n.Name), n.Loc, "assignment")
	}
	a.used[n.Name] = true
	a.analyzeExpr(n.Right)
	n.Type = sym.Type
}

func (a *Analyzer) analyzeFunctionDecl(ref domain.NodeRef) {
	n := a.arena.Get(ref)
	a.scopes.Enter()

	for _, p := range n.Params {
		ptype := a.checker.ResolveType(p.Type)
		a.scopes.Declare(&domain.SymbolInfo{Name: p.Name, Type: ptype, Kind: domain.SymbolParameter, Location: n.Loc, Mutable: true})
		if p.HasDefault {
			a.analyzeExpr(p.Default)
		}
	}

	hasReturn := a.analyzeFunctionBody(n.Body)
	retType := a.checker.ResolveType(n.ReturnType)
	if retType.Tag != domain.TagVoid && !hasReturn {
		a.err(domain.SemanticError, fmt.Sprintf("function '%s' is missing a return reachable on every path", n.Name), n.Loc, "function declaration")
	}

	capturedScope := a.scopes.Current()
	_ = capturedScope // not stored on the node; the IR emitter keeps its own local bindings
	a.scopes.Exit()
	n.Type = retType
}

// analyzeFunctionBody analyzes every statement in the function's block
// and reports whether it returns: a ReturnStatement directly in the
// block, or an if statement whose every branch returns (see
// ifAlwaysReturns). Returns inside while/for bodies are not counted.
func (a *Analyzer) analyzeFunctionBody(body domain.NodeRef) bool {
	if !a.arena.Valid(body) {
		return false
	}
	block := a.arena.Get(body)
	found := false
	for _, ref := range block.Children {
		a.analyzeStatement(ref)
		if a.arena.Get(ref).Kind == domain.NodeReturnStatement {
			found = true
		}
		if a.arena.Get(ref).Kind == domain.NodeIfStatement && a.ifAlwaysReturns(ref) {
			found = true
		}
	}
	return found
}

func (a *Analyzer) ifAlwaysReturns(ref domain.NodeRef) bool {
	n := a.arena.Get(ref)
	if !a.arena.Valid(n.ElseBranch) {
		return false
	}
	if !a.blockReturns(n.Then) {
		return false
	}
	for _, elifRef := range n.ElifChain {
		elif := a.arena.Get(elifRef)
		if !a.blockReturns(elif.Then) {
			return false
		}
	}
	elseNode := a.arena.Get(n.ElseBranch)
	return a.blockReturns(elseNode.Then)
}

func (a *Analyzer) blockReturns(block domain.NodeRef) bool {
	if !a.arena.Valid(block) {
		return false
	}
	b := a.arena.Get(block)
	for _, ref := range b.Children {
		if a.arena.Get(ref).Kind == domain.NodeReturnStatement {
			return true
		}
	}
	return false
}

func (a *Analyzer) analyzeReturn(ref domain.NodeRef) {
	n := a.arena.Get(ref)
	if a.arena.Valid(n.Right) {
		a.analyzeExpr(n.Right)
		n.Type = a.arena.Get(n.Right).Type
	} else {
		n.Type = &domain.TypeInfo{SourceName: "void", Tag: domain.TagVoid}
	}
}

func (a *Analyzer) analyzeIf(ref domain.NodeRef) {
	n := a.arena.Get(ref)
	a.analyzeExpr(n.Condition)
	a.scopes.Enter()
	a.analyzeBlockStatements(n.Then)
	a.scopes.Exit()
	for _, elifRef := range n.ElifChain {
		elif := a.arena.Get(elifRef)
		a.analyzeExpr(elif.Condition)
		a.scopes.Enter()
		a.analyzeBlockStatements(elif.Then)
		a.scopes.Exit()
	}
	if a.arena.Valid(n.ElseBranch) {
		elseNode := a.arena.Get(n.ElseBranch)
		a.scopes.Enter()
		a.analyzeBlockStatements(elseNode.Then)
		a.scopes.Exit()
	}
}

func (a *Analyzer) analyzeBlockStatements(block domain.NodeRef) {
	if !a.arena.Valid(block) {
		return
	}
	b := a.arena.Get(block)
	for _, ref := range b.Children {
		a.analyzeStatement(ref)
	}
}

func (a *Analyzer) analyzeWhile(ref domain.NodeRef) {
	n := a.arena.Get(ref)
	a.analyzeExpr(n.Condition)
	a.scopes.Enter()
	a.analyzeBlockStatements(n.Then)
	a.scopes.Exit()
}

func (a *Analyzer) analyzeForRange(ref domain.NodeRef) {
	n := a.arena.Get(ref)
	a.analyzeExpr(n.RangeStart)
	a.analyzeExpr(n.RangeEnd)
	if a.arena.Valid(n.Step) {
		a.analyzeExpr(n.Step)
	}
	a.scopes.Enter()
	counterType := &domain.TypeInfo{SourceName: "int", Tag: domain.TagI32}
	a.scopes.Declare(&domain.SymbolInfo{Name: n.Name, Type: counterType, Kind: domain.SymbolVariable, Location: n.Loc, Mutable: true})
	a.analyzeBlockStatements(n.Then)
	a.scopes.Exit()
}

// analyzeImport handles both the stdlib case (no '.' in the path) and
// the external-file case (path contains '.', resolved relative to the
// entry source's directory).
func (a *Analyzer) analyzeImport(ref domain.NodeRef) {
	n := a.arena.Get(ref)
	if n.BoolValue {
		a.analyzeStdlibImport(n)
		return
	}
	a.analyzeExternalImport(n)
}

func (a *Analyzer) analyzeStdlibImport(n *domain.Node) {
	name := n.ModulePath
	if a.imported[name] {
		return // first import registers; re-imports are silent no-ops
	}
	mod, ok := a.stdlib.Get(name)
	if !ok {
		a.err(domain.SemanticError, fmt.Sprintf("unknown standard library module '%s'", name), n.Loc, "import statement")
		return
	}
	for _, fname := range mod.Order {
		sig := mod.Functions[fname]
		meta := &domain.FunctionMeta{
			Name: fname, ReturnType: sig.ReturnType, IsVariadic: sig.Variadic,
			LLVMName: sig.LLVMName, IsExternal: true,
		}
		for _, p := range sig.Params {
			meta.Params = append(meta.Params, domain.Param{Type: p})
		}
		a.funcs.Register(meta)
	}
	a.imported[name] = true
}

// analyzeExternalImport reads, lexes, parses, and recursively analyzes
// a sibling .fp file, retaining only its function declarations and
// nested imports as external nodes.
func (a *Analyzer) analyzeExternalImport(n *domain.Node) {
	path := n.ModulePath
	if !filepath.IsAbs(path) {
		path = filepath.Join(a.sourceDir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		a.err(domain.SemanticError, fmt.Sprintf("module not found on disk: %s", path), n.Loc, "import statement")
		return
	}

	sub := lexer.New(strings.NewReader(string(data)), filepath.Base(path), filepath.Dir(path), a.reporter)
	p := parser.New(sub, a.reporter, a.arena)
	subProgram := p.Parse()

	subAnalyzer := New(a.arena, a.reporter, a.stdlib, filepath.Dir(path), filepath.Base(path))
	subAnalyzer.Analyze(subProgram)

	for name, fn := range subAnalyzer.funcs.All() {
		_ = name
		a.funcs.Register(fn)
	}

	progNode := a.arena.Get(subProgram)
	var external []domain.NodeRef
	for _, ref := range progNode.Children {
		k := a.arena.Get(ref).Kind
		if k == domain.NodeFunctionDeclaration || k == domain.NodeImportStatement {
			external = append(external, ref)
		}
	}
	n.Children = external
}

func (a *Analyzer) analyzeExtern(ref domain.NodeRef) {
	n := a.arena.Get(ref)
	for _, fnRef := range n.Children {
		fn := a.arena.Get(fnRef)
		meta := &domain.FunctionMeta{Name: fn.Name, Params: fn.Params, ReturnType: fn.ReturnType, LLVMName: fn.Name, IsExternal: true}
		a.funcs.Register(meta)
	}
}

// analyzeExpr types an expression node, recursing into children.
func (a *Analyzer) analyzeExpr(ref domain.NodeRef) {
	if !a.arena.Valid(ref) {
		return
	}
	n := a.arena.Get(ref)
	switch n.Kind {
	case domain.NodeIntLiteral, domain.NodeBinaryLiteral:
		n.Type = &domain.TypeInfo{SourceName: "int", Tag: domain.TagI32}
	case domain.NodeFloatLiteral:
		n.Type = &domain.TypeInfo{SourceName: "double", Tag: domain.TagDouble}
	case domain.NodeStringLiteral:
		n.Type = &domain.TypeInfo{SourceName: "string", Tag: domain.TagString}
	case domain.NodeBooleanLiteral:
		n.Type = &domain.TypeInfo{SourceName: "bool", Tag: domain.TagI1}
	case domain.NodeNullLiteral:
		n.Type = &domain.TypeInfo{SourceName: "null", Tag: domain.TagPtr}
	case domain.NodeIdentifier:
		a.analyzeIdentifier(n)
	case domain.NodeBinaryExpr:
		a.analyzeBinary(n)
	case domain.NodeUnaryExpr:
		a.analyzeUnary(n)
	case domain.NodeCallExpr:
		a.analyzeCall(n)
	case domain.NodeArrayLiteral:
		a.analyzeArrayLiteral(n)
	case domain.NodeIndexAccess:
		a.analyzeExpr(n.Left)
		a.analyzeExpr(n.Index)
		if elem := a.arena.Get(n.Left).Type; elem != nil && elem.IsArray {
			n.Type = elem.ElemType
		}
	case domain.NodeCastExpr:
		a.analyzeExpr(n.Right)
		n.Type = a.checker.ResolveType(n.DeclType)
	default:
		// Struct-related node kinds (§9 "token-kind gap" features) are
		// accepted syntactically but not type-checked further here.
	}
}

func (a *Analyzer) analyzeIdentifier(n *domain.Node) {
	sym, ok := a.scopes.Lookup(n.Name)
	if !ok {
		a.err(domain.SemanticError, fmt.Sprintf("undefined identifier '%s'", n.Name), n.Loc, "identifier")
		n.Type = &domain.TypeInfo{SourceName: "id", Tag: domain.TagPtr}
		return
	}
	a.used[n.Name] = true
	n.Type = sym.Type
}

func (a *Analyzer) analyzeBinary(n *domain.Node) {
	a.analyzeExpr(n.Left)
	a.analyzeExpr(n.Right)
	left := a.arena.Get(n.Left)
	right := a.arena.Get(n.Right)

	zeroLit := isZeroLiteral(right)
	result, err := a.checker.BinaryResultType(n.Operator, left.Type, right.Type, zeroLit)
	if err != nil {
		a.err(domain.TypeCheckError, err.Error(), n.Loc, "binary expression")
		n.Type = left.Type
		return
	}
	n.Type = result
}

func isZeroLiteral(n *domain.Node) bool {
	switch n.Kind {
	case domain.NodeIntLiteral, domain.NodeBinaryLiteral:
		return n.IntValue == 0
	case domain.NodeFloatLiteral:
		return n.FloatValue == 0
	default:
		return false
	}
}

func (a *Analyzer) analyzeUnary(n *domain.Node) {
	a.analyzeExpr(n.Right)
	operand := a.arena.Get(n.Right)
	result, err := a.checker.UnaryResultType(n.Operator, operand.Type)
	if err != nil {
		a.err(domain.TypeCheckError, err.Error(), n.Loc, "unary expression")
		n.Type = operand.Type
		return
	}
	n.Type = result
}

func (a *Analyzer) analyzeCall(n *domain.Node) {
	meta, ok := a.funcs.Lookup(n.Name)
	if !ok {
		a.err(domain.SemanticError, fmt.Sprintf("call to undefined function '%s'", n.Name), n.Loc, "call expression")
		n.Type = &domain.TypeInfo{SourceName: "void", Tag: domain.TagVoid}
		return
	}
	if !meta.IsVariadic && len(n.Children) != len(meta.Params) {
		a.err(domain.SemanticError, fmt.Sprintf("function '%s' expects %d argument(s), got %d", n.Name, len(meta.Params), len(n.Children)), n.Loc, "call expression")
	}
	for i, argRef := range n.Children {
		a.analyzeExpr(argRef)
		if i >= len(meta.Params) {
			continue
		}
		arg := a.arena.Get(argRef)
		paramType := a.checker.ResolveType(meta.Params[i].Type)
		if paramType.Tag == domain.TagString && arg.Type != nil && arg.Type.Tag != domain.TagString {
			arg.Type = &domain.TypeInfo{SourceName: "string", Tag: domain.TagString}
			continue
		}
		if arg.Type != nil && !a.checker.Compatible(paramType, arg.Type) {
			a.err(domain.TypeCheckError, fmt.Sprintf("argument %d to '%s' has incompatible type %s, expected %s", i+1, n.Name, arg.Type, paramType), arg.Loc, "call expression")
		} else if arg.Type != nil && arg.Type.Tag != paramType.Tag {
			arg.Type = paramType
		}
	}
	n.Type = a.checker.ResolveType(meta.ReturnType)
}

func (a *Analyzer) analyzeArrayLiteral(n *domain.Node) {
	var elem *domain.TypeInfo
	for _, ref := range n.Children {
		a.analyzeExpr(ref)
		elem = a.arena.Get(ref).Type
	}
	if elem == nil {
		elem = &domain.TypeInfo{SourceName: "void", Tag: domain.TagVoid}
	}
	n.Type = &domain.TypeInfo{SourceName: elem.SourceName, Tag: elem.Tag, IsArray: true, ElemType: elem}
}
