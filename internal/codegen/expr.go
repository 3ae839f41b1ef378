package codegen

import (
	"fmt"
	"strconv"

	"github.com/FernandoTheDev/farpy-sub000/internal/domain"
	"github.com/FernandoTheDev/farpy-sub000/internal/typecheck"
)

// emitExpr discards the value, used for expression statements.
func (e *Emitter) emitExpr(ref domain.NodeRef) {
	e.emitExprValue(ref)
}

// emitExprValue lowers ref and returns its LLVM value operand plus its
// resolved type tag.
func (e *Emitter) emitExprValue(ref domain.NodeRef) (string, domain.LLVMTypeTag) {
	if !e.arena.Valid(ref) {
		return "0", domain.TagI32
	}
	n := e.arena.Get(ref)

	switch n.Kind {
	case domain.NodeIntLiteral, domain.NodeBinaryLiteral:
		return strconv.FormatInt(n.IntValue, 10), tagOf(n.Type, domain.TagI32)
	case domain.NodeFloatLiteral:
		return typecheck.FormatLiteral(formatFloatG(n.FloatValue), domain.TagDouble), domain.TagDouble
	case domain.NodeBooleanLiteral:
		if n.BoolValue {
			return "1", domain.TagI1
		}
		return "0", domain.TagI1
	case domain.NodeNullLiteral:
		return "null", domain.TagPtr
	case domain.NodeStringLiteral:
		label, length := e.module.InternString(n.StringValue)
		ptr := e.fn.Current().GEPStringPtr(label, length)
		return ptr, domain.TagString
	case domain.NodeIdentifier:
		return e.emitIdentifier(n)
	case domain.NodeBinaryExpr:
		return e.emitBinary(n)
	case domain.NodeUnaryExpr:
		return e.emitUnary(n)
	case domain.NodeCallExpr:
		return e.emitCall(n)
	case domain.NodeCastExpr:
		return e.emitCast(n)
	default:
		e.reporter.Report(domain.NewWarning(domain.CodeGenError, fmt.Sprintf("code generator: node kind %s not lowered, emitting 0", n.Kind), n.Loc, "code generation"))
		return "0", domain.TagI32
	}
}

func formatFloatG(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

func tagOf(t *domain.TypeInfo, fallback domain.LLVMTypeTag) domain.LLVMTypeTag {
	if t == nil {
		return fallback
	}
	return t.Tag
}

func (e *Emitter) emitIdentifier(n *domain.Node) (string, domain.LLVMTypeTag) {
	l, ok := e.lookupLocal(n.Name)
	if !ok {
		e.reporter.Report(domain.NewError(domain.CodeGenError, fmt.Sprintf("internal: no binding for identifier '%s'", n.Name), n.Loc, "code generation"))
		return "0", domain.TagI32
	}
	return e.fn.Current().Load(l.typ, l.ptr), l.typ
}

// coerce promotes value from "from" to "to" using the correct extension
// instruction, per the operand-coercion rule. Equal types are a no-op.
func (e *Emitter) coerce(value string, from, to domain.LLVMTypeTag) string {
	if from == to {
		return value
	}
	bb := e.fn.Current()
	switch {
	case isIntTag(from) && to == domain.TagDouble:
		return bb.SIToFP(from, value, to)
	case from == domain.TagDouble && isIntTag(to):
		return bb.FPToSI(from, value, to)
	case isIntTag(from) && isIntTag(to) && rankOf(to) > rankOf(from):
		return bb.SExt(from, value, to)
	case isIntTag(from) && isIntTag(to) && rankOf(to) < rankOf(from):
		return bb.Trunc(from, value, to)
	default:
		return value
	}
}

func isIntTag(t domain.LLVMTypeTag) bool {
	switch t {
	case domain.TagI1, domain.TagI32, domain.TagI64, domain.TagI128:
		return true
	default:
		return false
	}
}

func rankOf(t domain.LLVMTypeTag) int { return t.PromotionRank() }

// widen returns the common type two operands should be promoted to
// before an arithmetic or comparison op is emitted.
func widen(a, b domain.LLVMTypeTag) domain.LLVMTypeTag {
	if rankOf(b) > rankOf(a) {
		return b
	}
	return a
}

func (e *Emitter) emitBinary(n *domain.Node) (string, domain.LLVMTypeTag) {
	if n.Operator == "&&" || n.Operator == "||" {
		return e.emitShortCircuit(n)
	}

	left, leftType := e.emitExprValue(n.Left)
	right, rightType := e.emitExprValue(n.Right)

	if leftType == domain.TagString && rightType == domain.TagString {
		return e.emitStringBinary(n, left, right)
	}

	common := widen(leftType, rightType)
	left = e.coerce(left, leftType, common)
	right = e.coerce(right, rightType, common)
	bb := e.fn.Current()

	switch n.Operator {
	case "+":
		return bb.Add(common, left, right), tagOf(n.Type, common)
	case "-":
		return bb.Sub(common, left, right), tagOf(n.Type, common)
	case "*":
		return bb.Mul(common, left, right), tagOf(n.Type, common)
	case "/":
		return bb.Div(common, left, right), tagOf(n.Type, common)
	case "%":
		return bb.Rem(common, left, right), tagOf(n.Type, common)
	case "**":
		return e.emitExponent(n, common, left, right)
	case "<", ">", "<=", ">=", "==", "!=":
		return e.emitComparison(n.Operator, common, left, right), domain.TagI1
	case "<<", ">>", "&", "|", "^":
		return e.emitBitwise(n.Operator, common, left, right), common
	default:
		e.reporter.Report(domain.NewWarning(domain.CodeGenError, fmt.Sprintf("code generator: unsupported operator '%s'", n.Operator), n.Loc, "binary expression"))
		return left, common
	}
}

func (e *Emitter) emitStringBinary(n *domain.Node, left, right string) (string, domain.LLVMTypeTag) {
	switch n.Operator {
	case "+":
		e.module.Declare(e.reporter, "declare i8* @strcat(i8*, i8*)")
		return e.fn.Current().Call(domain.TagString, "strcat", false,
			[]domain.LLVMTypeTag{domain.TagString, domain.TagString}, []string{left, right}), domain.TagString
	case "==", "!=":
		// Compare via the libc strcmp the driver links in; the emitter
		// only needs to special-case the resulting eq/ne test.
		e.module.Declare(e.reporter, "declare i32 @strcmp(i8*, i8*)")
		reg := e.fn.Current().Call(domain.TagI32, "strcmp", false,
			[]domain.LLVMTypeTag{domain.TagString, domain.TagString}, []string{left, right})
		if n.Operator == "==" {
			return e.fn.Current().ICmp("eq", domain.TagI32, reg, "0"), domain.TagI1
		}
		return e.fn.Current().ICmp("ne", domain.TagI32, reg, "0"), domain.TagI1
	default:
		return left, domain.TagString
	}
}

func (e *Emitter) emitComparison(op string, t domain.LLVMTypeTag, left, right string) string {
	bb := e.fn.Current()
	if t == domain.TagDouble {
		return bb.FCmp(fcmpCond(op), t, left, right)
	}
	return bb.ICmp(icmpCond(op), t, left, right)
}

func icmpCond(op string) string {
	switch op {
	case "<":
		return "slt"
	case ">":
		return "sgt"
	case "<=":
		return "sle"
	case ">=":
		return "sge"
	case "==":
		return "eq"
	case "!=":
		return "ne"
	default:
		return "eq"
	}
}

func fcmpCond(op string) string {
	switch op {
	case "<":
		return "olt"
	case ">":
		return "ogt"
	case "<=":
		return "ole"
	case ">=":
		return "oge"
	case "==":
		return "oeq"
	case "!=":
		return "one"
	default:
		return "oeq"
	}
}

func (e *Emitter) emitBitwise(op string, t domain.LLVMTypeTag, left, right string) string {
	bb := e.fn.Current()
	switch op {
	case "&":
		reg := bb.fn.newTemp()
		bb.emit("%s = and %s %s, %s", reg, t, left, right)
		return reg
	case "|":
		reg := bb.fn.newTemp()
		bb.emit("%s = or %s %s, %s", reg, t, left, right)
		return reg
	case "^":
		return bb.Xor(t, left, right)
	case "<<":
		reg := bb.fn.newTemp()
		bb.emit("%s = shl %s %s, %s", reg, t, left, right)
		return reg
	case ">>":
		reg := bb.fn.newTemp()
		bb.emit("%s = ashr %s %s, %s", reg, t, left, right)
		return reg
	default:
		return left
	}
}

// emitExponent implements the `**` quirks: r==0 -> 1, r==1 -> left,
// otherwise a chain of multiplications (loop-unrolled at compile time
// when the exponent is a literal; otherwise a runtime loop would be
// needed, which this emitter does not currently support).
func (e *Emitter) emitExponent(n *domain.Node, t domain.LLVMTypeTag, left, right string) (string, domain.LLVMTypeTag) {
	rightNode := e.arena.Get(n.Right)
	if rightNode.Kind != domain.NodeIntLiteral && rightNode.Kind != domain.NodeBinaryLiteral {
		e.reporter.Report(domain.NewError(domain.CodeGenError, "'**' requires a compile-time-known non-negative integer exponent", n.Loc, "exponent expression"))
		return left, t
	}
	exp := rightNode.IntValue
	if exp < 0 {
		e.reporter.Report(domain.NewError(domain.TypeCheckError, "'**' with a negative integer exponent is a compile-time error", n.Loc, "exponent expression"))
		return left, t
	}
	if exp == 0 {
		return "1", t
	}
	if exp == 1 {
		return left, t
	}
	bb := e.fn.Current()
	acc := left
	for i := int64(1); i < exp; i++ {
		acc = bb.Mul(t, acc, left)
	}
	return acc, t
}

func (e *Emitter) emitUnary(n *domain.Node) (string, domain.LLVMTypeTag) {
	val, valType := e.emitExprValue(n.Right)
	bb := e.fn.Current()
	switch n.Operator {
	case "-":
		if valType == domain.TagDouble {
			return bb.FNeg(valType, val), valType
		}
		return bb.Sub(valType, "0", val), valType
	case "!":
		return bb.Xor(domain.TagI1, val, "true"), domain.TagI1
	default:
		return val, valType
	}
}

// emitShortCircuit lowers && / || via a right-hand-side block and a join
// phi: for &&, the phi picks `false` from the left-block path and the
// RHS boolean from the right-block path; for ||, the inverse.
func (e *Emitter) emitShortCircuit(n *domain.Node) (string, domain.LLVMTypeTag) {
	left, _ := e.emitExprValue(n.Left)
	leftBlock := e.fn.Current()

	rhsBB := e.fn.NewBlock("log_rhs")
	endBB := e.fn.NewBlock("log_end")

	if n.Operator == "&&" {
		leftBlock.CondBr(left, rhsBB, endBB)
	} else {
		leftBlock.CondBr(left, endBB, rhsBB)
	}

	e.fn.SetCurrent(rhsBB)
	right, _ := e.emitExprValue(n.Right)
	rhsExit := e.fn.Current()
	if !rhsExit.Terminated() {
		rhsExit.Br(endBB)
	}

	e.fn.SetCurrent(endBB)
	shortCircuitValue := "0"
	if n.Operator == "||" {
		shortCircuitValue = "1"
	}
	result := endBB.Phi(domain.TagI1, [][2]string{
		{shortCircuitValue, leftBlock.Label},
		{right, rhsExit.Label},
	})
	return result, domain.TagI1
}

func (e *Emitter) emitCast(n *domain.Node) (string, domain.LLVMTypeTag) {
	val, valType := e.emitExprValue(n.Right)
	to := e.checker.ResolveType(n.DeclType)
	return e.coerce(val, valType, to.Tag), to.Tag
}

func (e *Emitter) emitCall(n *domain.Node) (string, domain.LLVMTypeTag) {
	meta, ok := e.funcs.Lookup(n.Name)
	if !ok {
		e.reporter.Report(domain.NewError(domain.CodeGenError, fmt.Sprintf("internal: call to unregistered function '%s'", n.Name), n.Loc, "call expression"))
		return "0", domain.TagI32
	}

	args := make([]string, len(n.Children))
	argTypes := make([]domain.LLVMTypeTag, len(n.Children))
	for i, argRef := range n.Children {
		val, t := e.emitExprValue(argRef)
		if i < len(meta.Params) {
			paramType := e.checker.ResolveType(meta.Params[i].Type)
			val = e.coerce(val, t, paramType.Tag)
			t = paramType.Tag
		}
		args[i] = val
		argTypes[i] = t
	}

	retType := e.checker.ResolveType(meta.ReturnType)
	if meta.IsExternal {
		e.module.Declare(e.reporter, declareLineFor(meta))
	}
	return e.fn.Current().Call(retType.Tag, meta.LLVMName, meta.IsVariadic, argTypes, args), retType.Tag
}

func declareLineFor(meta *domain.FunctionMeta) string {
	c := typecheck.New()
	ret := c.ResolveType(meta.ReturnType).Tag
	params := make([]string, 0, len(meta.Params))
	for _, p := range meta.Params {
		params = append(params, c.ResolveType(p.Type).Tag.String())
	}
	if meta.IsVariadic {
		params = append(params, "...")
	}
	joined := ""
	for i, p := range params {
		if i > 0 {
			joined += ", "
		}
		joined += p
	}
	return fmt.Sprintf("declare %s @%s(%s)", ret, meta.LLVMName, joined)
}
