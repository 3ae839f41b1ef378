// Package codegen lowers an analyzed, arena-backed AST into LLVM-IR text
// through a Module/Function/BasicBlock builder.
package codegen

import (
	"fmt"
	"strings"

	"github.com/FernandoTheDev/farpy-sub000/internal/domain"
)

// Module owns every extern declaration, global constant, and function
// definition emitted for one compilation; it prints as concatenated text.
type Module struct {
	SourceFile   string
	TargetTriple string

	externs     []string
	externSeen  map[string]string // LLVM symbol name ("@name") -> the declare line that won
	globals     []string
	stringSeen  map[string]string // literal content -> global label
	stringCount int
	Functions   []*Function
}

func NewModule(sourceFile, targetTriple string) *Module {
	return &Module{
		SourceFile:   sourceFile,
		TargetTriple: targetTriple,
		externSeen:   make(map[string]string),
		stringSeen:   make(map[string]string),
	}
}

// Declare registers an extern declaration line, deduplicated by the LLVM
// symbol it declares rather than the line's exact text: the first call
// for a given "@name" wins. A later call naming the SAME symbol with a
// DIFFERENT declare line (e.g. two stdlib entries both resolving to
// libc's @printf with incompatible signatures) is a conflicting
// redeclaration and is reported as a CodeGenError instead of silently
// emitting two clashing `declare`s for one external symbol, which
// llvm-as would reject.
func (m *Module) Declare(reporter domain.Reporter, line string) {
	symbol := externSymbol(line)
	if existing, ok := m.externSeen[symbol]; ok {
		if existing != line {
			reporter.Report(domain.NewError(domain.CodeGenError,
				fmt.Sprintf("conflicting extern declarations for @%s: %q vs %q", symbol, existing, line),
				domain.Location{File: m.SourceFile}, "extern declaration"))
		}
		return
	}
	m.externSeen[symbol] = line
	m.externs = append(m.externs, line)
}

// externSymbol extracts "name" out of a "declare ... @name(...)" line.
func externSymbol(line string) string {
	at := strings.IndexByte(line, '@')
	if at < 0 {
		return line
	}
	rest := line[at+1:]
	if paren := strings.IndexByte(rest, '('); paren >= 0 {
		return rest[:paren]
	}
	return rest
}

// InternString returns the global label for a string literal's bytes,
// allocating a new private constant the first time the exact content is
// seen.
func (m *Module) InternString(value string) (label string, length int) {
	if existing, ok := m.stringSeen[value]; ok {
		return existing, len(escapeString(value)) + 1
	}
	m.stringCount++
	label = fmt.Sprintf("@.str.%d", m.stringCount)
	escaped := escapeString(value)
	length = len(escaped) + 1
	m.globals = append(m.globals, fmt.Sprintf("%s = private unnamed_addr constant [%d x i8] c\"%s\\00\", align 1", label, length, escaped))
	m.stringSeen[value] = label
	return label, length
}

// escapeString renders value's bytes as an LLVM string-constant body:
// \n -> \0A, " -> \22, \ -> \5C.
func escapeString(value string) string {
	var b strings.Builder
	for i := 0; i < len(value); i++ {
		c := value[i]
		switch c {
		case '\n':
			b.WriteString("\\0A")
		case '\t':
			b.WriteString("\\09")
		case '"':
			b.WriteString("\\22")
		case '\\':
			b.WriteString("\\5C")
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func (m *Module) NewFunction(name string, ret domain.LLVMTypeTag, params []FuncParam) *Function {
	fn := &Function{Module: m, Name: name, ReturnType: ret, Params: params}
	m.Functions = append(m.Functions, fn)
	return fn
}

// String renders the whole module as LLVM-IR text.
func (m *Module) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "; ModuleID = '%s'\n", m.SourceFile)
	fmt.Fprintf(&b, "source_filename = %q\n", m.SourceFile)
	if m.TargetTriple != "" {
		fmt.Fprintf(&b, "target triple = %q\n", m.TargetTriple)
	}
	b.WriteString("\n")

	if len(m.globals) > 0 {
		for _, g := range m.globals {
			b.WriteString(g)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	for _, fn := range m.Functions {
		b.WriteString(fn.String())
		b.WriteString("\n")
	}

	if len(m.externs) > 0 {
		for _, e := range m.externs {
			b.WriteString(e)
			b.WriteString("\n")
		}
	}
	return b.String()
}

// FuncParam is one parameter in a Function's signature.
type FuncParam struct {
	Name string
	Tag  domain.LLVMTypeTag
}

// Function has a name, a return-type tag, a parameter list, an ordered
// list of basic blocks, a monotonic block-id counter, and a "current
// block" cursor every emit helper writes through.
type Function struct {
	Module       *Module
	Name         string
	ReturnType   domain.LLVMTypeTag
	Params       []FuncParam
	Blocks       []*BasicBlock
	blockCounter int
	tempCounter  int
	current      *BasicBlock
}

// NewBlock allocates a fresh basic block labelled prefix+id and appends
// it to the function; it does not become current until SetCurrent is
// called.
func (f *Function) NewBlock(prefix string) *BasicBlock {
	f.blockCounter++
	label := fmt.Sprintf("%s%d", prefix, f.blockCounter)
	bb := &BasicBlock{Label: label, fn: f}
	f.Blocks = append(f.Blocks, bb)
	return bb
}

// Entry allocates and installs the function's first block, always
// labelled "entry" with no numeric suffix.
func (f *Function) Entry() *BasicBlock {
	bb := &BasicBlock{Label: "entry", fn: f}
	f.Blocks = append(f.Blocks, bb)
	f.current = bb
	return bb
}

func (f *Function) SetCurrent(bb *BasicBlock) { f.current = bb }
func (f *Function) Current() *BasicBlock      { return f.current }

// newTemp returns the next "%N" value-producing register name.
func (f *Function) newTemp() string {
	reg := fmt.Sprintf("%%%d", f.tempCounter)
	f.tempCounter++
	return reg
}

func (f *Function) String() string {
	var b strings.Builder
	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		params[i] = fmt.Sprintf("%s %%%s", p.Tag, p.Name)
	}
	fmt.Fprintf(&b, "define %s @%s(%s) {\n", f.ReturnType, f.Name, strings.Join(params, ", "))
	for _, bb := range f.Blocks {
		b.WriteString(bb.render())
	}
	b.WriteString("}\n")
	return b.String()
}

// BasicBlock owns a label, an instruction buffer, and a back-reference to
// its function's temp-id counter; it exposes one helper per instruction
// form the emitter needs.
type BasicBlock struct {
	Label        string
	instructions []string
	terminated   bool
	fn           *Function
}

func (bb *BasicBlock) emit(format string, args ...interface{}) {
	bb.instructions = append(bb.instructions, fmt.Sprintf(format, args...))
}

// Terminated reports whether this block already ends in ret/br.
func (bb *BasicBlock) Terminated() bool { return bb.terminated }

func (bb *BasicBlock) render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s:\n", bb.Label)
	for _, inst := range bb.instructions {
		b.WriteString("  ")
		b.WriteString(inst)
		b.WriteString("\n")
	}
	if !bb.terminated {
		// Every LLVM basic block needs a terminator; a block left
		// unreachable by the source program's control flow (e.g. a
		// continuation after two branches that both returned) still
		// needs one to produce valid IR.
		b.WriteString("  unreachable\n")
	}
	return b.String()
}

func alignOf(t domain.LLVMTypeTag) int { return t.Alignment() }

// Alloca reserves stack space for t, aligned per the type->alignment
// table, and returns the pointer register.
func (bb *BasicBlock) Alloca(t domain.LLVMTypeTag) string {
	reg := bb.fn.newTemp()
	bb.emit("%s = alloca %s, align %d", reg, t, alignOf(t))
	return reg
}

// NamedAlloca is Alloca but for a source-named local, whose register
// keeps the source name (%x) rather than a numeric temp, matching the
// builder's human-readable local convention.
func (bb *BasicBlock) NamedAlloca(name string, t domain.LLVMTypeTag) string {
	reg := "%" + name
	bb.emit("%s = alloca %s, align %d", reg, t, alignOf(t))
	return reg
}

func (bb *BasicBlock) Load(t domain.LLVMTypeTag, ptr string) string {
	reg := bb.fn.newTemp()
	bb.emit("%s = load %s, ptr %s, align %d", reg, t, ptr, alignOf(t))
	return reg
}

func (bb *BasicBlock) Store(t domain.LLVMTypeTag, value, ptr string) {
	bb.emit("store %s %s, ptr %s, align %d", t, value, ptr, alignOf(t))
}

// GEPStringPtr returns an i8* pointing at the first byte of a string
// global of the given byte length.
func (bb *BasicBlock) GEPStringPtr(label string, length int) string {
	reg := bb.fn.newTemp()
	bb.emit("%s = getelementptr inbounds [%d x i8], ptr %s, i32 0, i32 0", reg, length, label)
	return reg
}

func (bb *BasicBlock) binOp(op, t, l, r string) string {
	reg := bb.fn.newTemp()
	bb.emit("%s = %s %s %s, %s", reg, op, t, l, r)
	return reg
}

func (bb *BasicBlock) Add(t domain.LLVMTypeTag, l, r string) string {
	if t == domain.TagDouble {
		return bb.binOp("fadd", t.String(), l, r)
	}
	return bb.binOp("add", t.String(), l, r)
}

func (bb *BasicBlock) Sub(t domain.LLVMTypeTag, l, r string) string {
	if t == domain.TagDouble {
		return bb.binOp("fsub", t.String(), l, r)
	}
	return bb.binOp("sub", t.String(), l, r)
}

func (bb *BasicBlock) Mul(t domain.LLVMTypeTag, l, r string) string {
	if t == domain.TagDouble {
		return bb.binOp("fmul", t.String(), l, r)
	}
	return bb.binOp("mul", t.String(), l, r)
}

func (bb *BasicBlock) Div(t domain.LLVMTypeTag, l, r string) string {
	if t == domain.TagDouble {
		return bb.binOp("fdiv", t.String(), l, r)
	}
	return bb.binOp("sdiv", t.String(), l, r)
}

func (bb *BasicBlock) Rem(t domain.LLVMTypeTag, l, r string) string {
	if t == domain.TagDouble {
		return bb.binOp("frem", t.String(), l, r)
	}
	return bb.binOp("srem", t.String(), l, r)
}

func (bb *BasicBlock) FNeg(t domain.LLVMTypeTag, v string) string {
	reg := bb.fn.newTemp()
	bb.emit("%s = fneg %s %s", reg, t, v)
	return reg
}

func (bb *BasicBlock) ICmp(cond string, t domain.LLVMTypeTag, l, r string) string {
	reg := bb.fn.newTemp()
	bb.emit("%s = icmp %s %s %s, %s", reg, cond, t, l, r)
	return reg
}

func (bb *BasicBlock) FCmp(cond string, t domain.LLVMTypeTag, l, r string) string {
	reg := bb.fn.newTemp()
	bb.emit("%s = fcmp %s %s %s, %s", reg, cond, t, l, r)
	return reg
}

func (bb *BasicBlock) Xor(t domain.LLVMTypeTag, l, r string) string {
	reg := bb.fn.newTemp()
	bb.emit("%s = xor %s %s, %s", reg, t, l, r)
	return reg
}

func (bb *BasicBlock) Bitcast(from domain.LLVMTypeTag, v string, to domain.LLVMTypeTag) string {
	reg := bb.fn.newTemp()
	bb.emit("%s = bitcast %s %s to %s", reg, from, v, to)
	return reg
}

func (bb *BasicBlock) SExt(from domain.LLVMTypeTag, v string, to domain.LLVMTypeTag) string {
	reg := bb.fn.newTemp()
	bb.emit("%s = sext %s %s to %s", reg, from, v, to)
	return reg
}

func (bb *BasicBlock) Trunc(from domain.LLVMTypeTag, v string, to domain.LLVMTypeTag) string {
	reg := bb.fn.newTemp()
	bb.emit("%s = trunc %s %s to %s", reg, from, v, to)
	return reg
}

func (bb *BasicBlock) ZExt(from domain.LLVMTypeTag, v string, to domain.LLVMTypeTag) string {
	reg := bb.fn.newTemp()
	bb.emit("%s = zext %s %s to %s", reg, from, v, to)
	return reg
}

func (bb *BasicBlock) FPExt(from domain.LLVMTypeTag, v string, to domain.LLVMTypeTag) string {
	reg := bb.fn.newTemp()
	bb.emit("%s = fpext %s %s to %s", reg, from, v, to)
	return reg
}

func (bb *BasicBlock) FPTrunc(from domain.LLVMTypeTag, v string, to domain.LLVMTypeTag) string {
	reg := bb.fn.newTemp()
	bb.emit("%s = fptrunc %s %s to %s", reg, from, v, to)
	return reg
}

func (bb *BasicBlock) SIToFP(from domain.LLVMTypeTag, v string, to domain.LLVMTypeTag) string {
	reg := bb.fn.newTemp()
	bb.emit("%s = sitofp %s %s to %s", reg, from, v, to)
	return reg
}

func (bb *BasicBlock) FPToSI(from domain.LLVMTypeTag, v string, to domain.LLVMTypeTag) string {
	reg := bb.fn.newTemp()
	bb.emit("%s = fptosi %s %s to %s", reg, from, v, to)
	return reg
}

func (bb *BasicBlock) PtrToInt(v string, to domain.LLVMTypeTag) string {
	reg := bb.fn.newTemp()
	bb.emit("%s = ptrtoint ptr %s to %s", reg, v, to)
	return reg
}

func (bb *BasicBlock) IntToPtr(from domain.LLVMTypeTag, v string) string {
	reg := bb.fn.newTemp()
	bb.emit("%s = inttoptr %s %s to ptr", reg, from, v)
	return reg
}

// Call emits a call instruction. retType == TagVoid omits the assignment
// and returns "".
func (bb *BasicBlock) Call(retType domain.LLVMTypeTag, name string, variadic bool, argTypes []domain.LLVMTypeTag, args []string) string {
	parts := make([]string, len(args))
	for i := range args {
		parts[i] = fmt.Sprintf("%s %s", argTypes[i], args[i])
	}
	argStr := strings.Join(parts, ", ")

	if retType == domain.TagVoid {
		bb.emit("call void @%s(%s)", name, argStr)
		return ""
	}
	reg := bb.fn.newTemp()
	if variadic {
		sig := variadicSignature(retType, argTypes)
		bb.emit("%s = call %s @%s(%s)", reg, sig, name, argStr)
	} else {
		bb.emit("%s = call %s @%s(%s)", reg, retType, name, argStr)
	}
	return reg
}

func variadicSignature(ret domain.LLVMTypeTag, fixedTypes []domain.LLVMTypeTag) string {
	return fmt.Sprintf("%s (...)", ret)
}

func (bb *BasicBlock) Ret(t domain.LLVMTypeTag, v string) {
	bb.emit("ret %s %s", t, v)
	bb.terminated = true
}

func (bb *BasicBlock) RetVoid() {
	bb.emit("ret void")
	bb.terminated = true
}

func (bb *BasicBlock) Br(target *BasicBlock) {
	bb.emit("br label %%%s", target.Label)
	bb.terminated = true
}

func (bb *BasicBlock) CondBr(cond string, then, els *BasicBlock) {
	bb.emit("br i1 %s, label %%%s, label %%%s", cond, then.Label, els.Label)
	bb.terminated = true
}

// Phi emits a phi node over (value, predecessor-block) pairs.
func (bb *BasicBlock) Phi(t domain.LLVMTypeTag, incoming [][2]string) string {
	reg := bb.fn.newTemp()
	parts := make([]string, len(incoming))
	for i, pair := range incoming {
		parts[i] = fmt.Sprintf("[ %s, %%%s ]", pair[0], pair[1])
	}
	bb.emit("%s = phi %s %s", reg, t, strings.Join(parts, ", "))
	return reg
}

// Select emits a select instruction choosing between two values based on
// an i1 condition, used by for-range's ascending/descending comparison
// pick.
func (bb *BasicBlock) Select(cond string, t domain.LLVMTypeTag, ifTrue, ifFalse string) string {
	reg := bb.fn.newTemp()
	bb.emit("%s = select i1 %s, %s %s, %s %s", reg, cond, t, ifTrue, t, ifFalse)
	return reg
}
