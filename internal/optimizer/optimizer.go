// Package optimizer constant-folds pure literal arithmetic and string
// operations across an annotated AST, recursively and idempotently.
package optimizer

import (
	"fmt"
	"math"
	"strconv"

	"github.com/FernandoTheDev/farpy-sub000/internal/domain"
)

// Optimizer walks an arena's tree in place, replacing binary/unary
// expression nodes whose operands are both literals with a single
// folded literal node.
type Optimizer struct {
	arena    *domain.Arena
	reporter domain.Reporter
}

func New(arena *domain.Arena, reporter domain.Reporter) *Optimizer {
	return &Optimizer{arena: arena, reporter: reporter}
}

// Run folds the whole program, starting from its top-level children.
func (o *Optimizer) Run(program domain.NodeRef) {
	prog := o.arena.Get(program)
	for i, ref := range prog.Children {
		prog.Children[i] = o.fold(ref)
	}
}

// fold recursively folds ref's children first, then attempts to fold ref
// itself if it is a binary or unary expression over literal operands. It
// returns the (possibly replaced) NodeRef; non-foldable and non-literal
// container nodes are re-wrapped with their folded children per the
// closure rule.
func (o *Optimizer) fold(ref domain.NodeRef) domain.NodeRef {
	if !o.arena.Valid(ref) {
		return ref
	}
	n := o.arena.Get(ref)

	switch n.Kind {
	case domain.NodeProgram:
		for i, c := range n.Children {
			n.Children[i] = o.fold(c)
		}
		return ref

	case domain.NodeVariableDeclaration, domain.NodeAssignmentDeclaration:
		n.Right = o.fold(n.Right)
		return ref

	case domain.NodeReturnStatement:
		if o.arena.Valid(n.Right) {
			n.Right = o.fold(n.Right)
		}
		return ref

	case domain.NodeFunctionDeclaration:
		n.Body = o.fold(n.Body)
		return ref

	case domain.NodeIfStatement:
		n.Condition = o.fold(n.Condition)
		n.Then = o.fold(n.Then)
		for i, elifRef := range n.ElifChain {
			elif := o.arena.Get(elifRef)
			elif.Condition = o.fold(elif.Condition)
			elif.Then = o.fold(elif.Then)
			n.ElifChain[i] = elifRef
		}
		if o.arena.Valid(n.ElseBranch) {
			elseNode := o.arena.Get(n.ElseBranch)
			elseNode.Then = o.fold(elseNode.Then)
		}
		return ref

	case domain.NodeWhileStatement:
		n.Condition = o.fold(n.Condition)
		n.Then = o.fold(n.Then)
		return ref

	case domain.NodeForRangeStatement:
		n.RangeStart = o.fold(n.RangeStart)
		n.RangeEnd = o.fold(n.RangeEnd)
		if o.arena.Valid(n.Step) {
			n.Step = o.fold(n.Step)
		}
		n.Then = o.fold(n.Then)
		return ref

	case domain.NodeCallExpr:
		for i, arg := range n.Children {
			n.Children[i] = o.fold(arg)
		}
		return ref

	case domain.NodeArrayLiteral:
		for i, c := range n.Children {
			n.Children[i] = o.fold(c)
		}
		return ref

	case domain.NodeIndexAccess:
		n.Left = o.fold(n.Left)
		n.Index = o.fold(n.Index)
		return ref

	case domain.NodeCastExpr:
		n.Right = o.fold(n.Right)
		return ref

	case domain.NodeUnaryExpr:
		n.Right = o.fold(n.Right)
		return o.foldUnary(ref, n)

	case domain.NodeBinaryExpr:
		n.Left = o.fold(n.Left)
		n.Right = o.fold(n.Right)
		return o.foldBinary(ref, n)

	case domain.NodeIntLiteral, domain.NodeFloatLiteral, domain.NodeStringLiteral,
		domain.NodeBooleanLiteral, domain.NodeBinaryLiteral, domain.NodeNullLiteral,
		domain.NodeIdentifier:
		return ref

	default:
		o.reporter.Report(domain.NewWarning(domain.InternalError,
			fmt.Sprintf("optimizer: unknown node kind %s, left unfolded", n.Kind), n.Loc, "constant folding"))
		return ref
	}
}

func (o *Optimizer) foldUnary(ref domain.NodeRef, n *domain.Node) domain.NodeRef {
	operand := o.arena.Get(n.Right)
	switch n.Operator {
	case "-":
		if operand.Kind == domain.NodeIntLiteral || operand.Kind == domain.NodeBinaryLiteral {
			return o.arena.New(domain.Node{Kind: domain.NodeIntLiteral, Loc: n.Loc, IntValue: -operand.IntValue, Type: n.Type})
		}
		if operand.Kind == domain.NodeFloatLiteral {
			return o.arena.New(domain.Node{Kind: domain.NodeFloatLiteral, Loc: n.Loc, FloatValue: -operand.FloatValue, Type: n.Type})
		}
	case "!":
		if operand.Kind == domain.NodeBooleanLiteral {
			return o.arena.New(domain.Node{Kind: domain.NodeBooleanLiteral, Loc: n.Loc, BoolValue: !operand.BoolValue, Type: n.Type})
		}
	}
	return ref
}

func (o *Optimizer) foldBinary(ref domain.NodeRef, n *domain.Node) domain.NodeRef {
	left := o.arena.Get(n.Left)
	right := o.arena.Get(n.Right)

	if left.Kind == domain.NodeStringLiteral && right.Kind == domain.NodeStringLiteral {
		return o.foldStringBinary(ref, n, left, right)
	}
	if !isNumericLiteral(left) || !isNumericLiteral(right) {
		return ref
	}
	return o.foldNumericBinary(ref, n, left, right)
}

func isNumericLiteral(n *domain.Node) bool {
	switch n.Kind {
	case domain.NodeIntLiteral, domain.NodeFloatLiteral, domain.NodeBinaryLiteral:
		return true
	default:
		return false
	}
}

func isFloatLiteral(n *domain.Node) bool { return n.Kind == domain.NodeFloatLiteral }

func asFloat(n *domain.Node) float64 {
	if isFloatLiteral(n) {
		return n.FloatValue
	}
	return float64(n.IntValue)
}

func (o *Optimizer) foldStringBinary(ref domain.NodeRef, n *domain.Node, left, right *domain.Node) domain.NodeRef {
	switch n.Operator {
	case "+":
		return o.arena.New(domain.Node{Kind: domain.NodeStringLiteral, Loc: n.Loc, StringValue: left.StringValue + right.StringValue, Type: n.Type})
	case "==":
		return o.arena.New(domain.Node{Kind: domain.NodeBooleanLiteral, Loc: n.Loc, BoolValue: left.StringValue == right.StringValue, Type: n.Type})
	case "!=":
		return o.arena.New(domain.Node{Kind: domain.NodeBooleanLiteral, Loc: n.Loc, BoolValue: left.StringValue != right.StringValue, Type: n.Type})
	default:
		return ref
	}
}

// foldNumericBinary evaluates op over two literal numeric operands,
// promoting to float when either operand is a float literal, per the
// "integer result for integer inputs; float otherwise" rule.
func (o *Optimizer) foldNumericBinary(ref domain.NodeRef, n *domain.Node, left, right *domain.Node) domain.NodeRef {
	isFloat := isFloatLiteral(left) || isFloatLiteral(right)

	switch n.Operator {
	case "+", "-", "*":
		if isFloat {
			return o.arena.New(domain.Node{Kind: domain.NodeFloatLiteral, Loc: n.Loc, FloatValue: applyFloatArith(n.Operator, asFloat(left), asFloat(right)), Type: n.Type})
		}
		return o.arena.New(domain.Node{Kind: domain.NodeIntLiteral, Loc: n.Loc, IntValue: applyIntArith(n.Operator, left.IntValue, right.IntValue), Type: n.Type})

	case "/":
		if isFloat {
			if asFloat(right) == 0 {
				o.divByZero(n)
				return ref
			}
			return o.arena.New(domain.Node{Kind: domain.NodeFloatLiteral, Loc: n.Loc, FloatValue: asFloat(left) / asFloat(right), Type: n.Type})
		}
		if right.IntValue == 0 {
			o.divByZero(n)
			return ref
		}
		return o.arena.New(domain.Node{Kind: domain.NodeIntLiteral, Loc: n.Loc, IntValue: floorDiv(left.IntValue, right.IntValue), Type: n.Type})

	case "%":
		if right.IntValue == 0 && !isFloat {
			o.divByZero(n)
			return ref
		}
		if isFloat {
			if asFloat(right) == 0 {
				o.divByZero(n)
				return ref
			}
			return o.arena.New(domain.Node{Kind: domain.NodeFloatLiteral, Loc: n.Loc, FloatValue: math.Mod(asFloat(left), asFloat(right)), Type: n.Type})
		}
		return o.arena.New(domain.Node{Kind: domain.NodeIntLiteral, Loc: n.Loc, IntValue: left.IntValue % right.IntValue, Type: n.Type})

	case "**":
		if (right.Kind == domain.NodeIntLiteral || right.Kind == domain.NodeBinaryLiteral) && right.IntValue < 0 {
			o.reporter.Report(domain.NewError(domain.TypeCheckError, "'**' with a negative integer exponent is a compile-time error", n.Loc, "constant folding"))
			return ref
		}
		result := math.Pow(asFloat(left), asFloat(right))
		if isFloat {
			return o.arena.New(domain.Node{Kind: domain.NodeFloatLiteral, Loc: n.Loc, FloatValue: result, Type: n.Type})
		}
		return o.arena.New(domain.Node{Kind: domain.NodeIntLiteral, Loc: n.Loc, IntValue: int64(result), Type: n.Type})

	case "<", ">", "<=", ">=", "==", "!=":
		return o.arena.New(domain.Node{Kind: domain.NodeBooleanLiteral, Loc: n.Loc, BoolValue: compareNumeric(n.Operator, asFloat(left), asFloat(right)), Type: n.Type})

	case "<<", ">>", "&", "|", "^":
		if isFloat {
			return ref // bitwise ops are integer-only; leave unfolded
		}
		return o.arena.New(domain.Node{Kind: domain.NodeIntLiteral, Loc: n.Loc, IntValue: applyBitwise(n.Operator, left.IntValue, right.IntValue), Type: n.Type})

	default:
		return ref
	}
}

func (o *Optimizer) divByZero(n *domain.Node) {
	o.reporter.Report(domain.NewError(domain.SemanticError, "division or modulo by zero literal", n.Loc, "constant folding"))
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func applyIntArith(op string, a, b int64) int64 {
	switch op {
	case "+":
		return a + b
	case "-":
		return a - b
	case "*":
		return a * b
	default:
		return 0
	}
}

func applyFloatArith(op string, a, b float64) float64 {
	switch op {
	case "+":
		return a + b
	case "-":
		return a - b
	case "*":
		return a * b
	default:
		return 0
	}
}

func compareNumeric(op string, a, b float64) bool {
	switch op {
	case "<":
		return a < b
	case ">":
		return a > b
	case "<=":
		return a <= b
	case ">=":
		return a >= b
	case "==":
		return a == b
	case "!=":
		return a != b
	default:
		return false
	}
}

func applyBitwise(op string, a, b int64) int64 {
	switch op {
	case "<<":
		return a << uint(b)
	case ">>":
		return a >> uint(b)
	case "&":
		return a & b
	case "|":
		return a | b
	case "^":
		return a ^ b
	default:
		return 0
	}
}

// formatFloat renders v in Go's shortest 'g' form. Nothing in this
// package calls it: folded literals are stored as numeric node values.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
