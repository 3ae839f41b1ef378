package codegen

import (
	"fmt"

	"github.com/FernandoTheDev/farpy-sub000/internal/domain"
	"github.com/FernandoTheDev/farpy-sub000/internal/stdlib"
	"github.com/FernandoTheDev/farpy-sub000/internal/typecheck"
)

// local is one variable's codegen-time binding: the pointer register
// alloca'd for it and its resolved type.
type local struct {
	ptr string
	typ domain.LLVMTypeTag
}

// loopContext records the enclosing loop's condition, increment and end
// blocks while its body is emitted. No emit path reads it: loop bodies
// branch straight to their own increment (for) or condition (while) block.
type loopContext struct {
	condBlock *BasicBlock
	incBlock  *BasicBlock
	endBlock  *BasicBlock
}

// Emitter lowers one analyzed program into a Module.
type Emitter struct {
	arena    *domain.Arena
	reporter domain.Reporter
	funcs    *domain.FunctionRegistry
	stdlib   *stdlib.Registry
	checker  *typecheck.Checker

	module *Module
	fn     *Function

	scopes []map[string]local
	loops  []loopContext

	mainEntered bool
}

func New(arena *domain.Arena, reporter domain.Reporter, funcs *domain.FunctionRegistry, registry *stdlib.Registry, targetTriple, sourceFile string) *Emitter {
	return &Emitter{
		arena:    arena,
		reporter: reporter,
		funcs:    funcs,
		stdlib:   registry,
		checker:  typecheck.New(),
		module:   NewModule(sourceFile, targetTriple),
	}
}

// Emit lowers program and returns the rendered LLVM-IR text.
func (e *Emitter) Emit(program domain.NodeRef) string {
	prog := e.arena.Get(program)

	var mainStmts []domain.NodeRef
	for _, ref := range prog.Children {
		n := e.arena.Get(ref)
		switch n.Kind {
		case domain.NodeFunctionDeclaration:
			if n.Name == "main" {
				mainStmts = append([]domain.NodeRef{ref}, mainStmts...)
				continue
			}
			e.emitFunction(ref)
		case domain.NodeImportStatement:
			// An external `import "file.fp"` carries the sibling file's
			// function declarations (and its own imports) as children;
			// those functions are emitted here. Stdlib imports have none.
			pending := append([]domain.NodeRef(nil), n.Children...)
			for len(pending) > 0 {
				child := pending[0]
				pending = pending[1:]
				if c := e.arena.Get(child); c.Kind == domain.NodeFunctionDeclaration {
					e.emitFunction(child)
				} else {
					pending = append(pending, c.Children...)
				}
			}
		case domain.NodeExternStatement, domain.NodeStructStatement:
			// No direct code is generated; declares are emitted lazily on
			// first call site.
		default:
			mainStmts = append(mainStmts, ref)
		}
	}

	// If the source declared its own `main`, the loop above skipped it and
	// put it at the front of mainStmts; when it is the only entry it is
	// emitted here as a regular function instead of a synthesized main.
	if len(mainStmts) == 1 && e.arena.Get(mainStmts[0]).Kind == domain.NodeFunctionDeclaration {
		e.emitFunction(mainStmts[0])
	} else {
		e.emitSynthesizedMain(mainStmts)
	}

	return e.module.String()
}

func (e *Emitter) pushScope()                 { e.scopes = append(e.scopes, make(map[string]local)) }
func (e *Emitter) popScope()                  { e.scopes = e.scopes[:len(e.scopes)-1] }
func (e *Emitter) declareLocal(name string, l local) {
	e.scopes[len(e.scopes)-1][name] = l
}
func (e *Emitter) lookupLocal(name string) (local, bool) {
	for i := len(e.scopes) - 1; i >= 0; i-- {
		if l, ok := e.scopes[i][name]; ok {
			return l, true
		}
	}
	return local{}, false
}

// emitSynthesizedMain wraps every top-level non-function statement in a
// generated `main` returning i32, appending `ret i32 0` if no terminator
// already exists.
func (e *Emitter) emitSynthesizedMain(stmts []domain.NodeRef) {
	fn := e.module.NewFunction("main", domain.TagI32, nil)
	e.fn = fn
	fn.Entry()
	e.pushScope()

	for _, ref := range stmts {
		e.emitStatement(ref)
	}

	if !e.fn.Current().Terminated() {
		e.fn.Current().Ret(domain.TagI32, "0")
	}
	e.popScope()
}

func (e *Emitter) emitFunction(ref domain.NodeRef) {
	n := e.arena.Get(ref)
	retType := e.checker.ResolveType(n.ReturnType)

	params := make([]FuncParam, len(n.Params))
	for i, p := range n.Params {
		params[i] = FuncParam{Name: p.Name, Tag: e.checker.ResolveType(p.Type).Tag}
	}

	fn := e.module.NewFunction(n.Name, retType.Tag, params)
	prevFn := e.fn
	e.fn = fn
	entry := fn.Entry()
	e.pushScope()

	for _, p := range n.Params {
		ptag := e.checker.ResolveType(p.Type).Tag
		ptr := entry.NamedAlloca(p.Name+".addr", ptag)
		entry.Store(ptag, "%"+p.Name, ptr)
		e.declareLocal(p.Name, local{ptr: ptr, typ: ptag})
	}

	e.emitStatement(n.Body)

	if !e.fn.Current().Terminated() {
		if retType.Tag == domain.TagVoid {
			e.fn.Current().RetVoid()
		} else if n.Name == "main" {
			e.fn.Current().Ret(domain.TagI32, "0")
		} else {
			e.fn.Current().Ret(retType.Tag, zeroValue(retType.Tag))
		}
	}

	e.popScope()
	e.fn = prevFn
}

func zeroValue(t domain.LLVMTypeTag) string {
	switch t {
	case domain.TagDouble:
		return "0.0"
	case domain.TagString, domain.TagPtr:
		return "null"
	default:
		return "0"
	}
}

// emitStatement dispatches on NodeKind and writes into e.fn.Current().
func (e *Emitter) emitStatement(ref domain.NodeRef) {
	if !e.arena.Valid(ref) {
		return
	}
	n := e.arena.Get(ref)
	switch n.Kind {
	case domain.NodeProgram:
		for _, c := range n.Children {
			if e.fn.Current().Terminated() {
				break
			}
			e.emitStatement(c)
		}
	case domain.NodeVariableDeclaration:
		e.emitVarDecl(n)
	case domain.NodeAssignmentDeclaration:
		e.emitAssignment(n)
	case domain.NodeReturnStatement:
		e.emitReturn(n)
	case domain.NodeIfStatement:
		e.emitIf(n)
	case domain.NodeWhileStatement:
		e.emitWhile(n)
	case domain.NodeForRangeStatement:
		e.emitForRange(n)
	default:
		e.emitExpr(ref) // expression statement
	}
}

func (e *Emitter) emitVarDecl(n *domain.Node) {
	val, valType := e.emitExprValue(n.Right)
	ptr := e.fn.Current().NamedAlloca(n.Name, valType)
	e.fn.Current().Store(valType, val, ptr)
	e.declareLocal(n.Name, local{ptr: ptr, typ: valType})
}

func (e *Emitter) emitAssignment(n *domain.Node) {
	l, ok := e.lookupLocal(n.Name)
	if !ok {
		e.reporter.Report(domain.NewError(domain.CodeGenError, fmt.Sprintf("internal: no binding for assigned name '%s'", n.Name), n.Loc, "code generation"))
		return
	}
	val, valType := e.emitExprValue(n.Right)
	val = e.coerce(val, valType, l.typ)
	e.fn.Current().Store(l.typ, val, l.ptr)
}

func (e *Emitter) emitReturn(n *domain.Node) {
	if !e.arena.Valid(n.Right) {
		e.fn.Current().RetVoid()
		return
	}
	val, valType := e.emitExprValue(n.Right)
	val = e.coerce(val, valType, e.fn.ReturnType)
	e.fn.Current().Ret(e.fn.ReturnType, val)
}

// emitIf lowers if/elif/else per the "if/else/continue blocks, absent
// terminators branch to continuation" rule. An outer continuation label
// is shared across the whole elif chain.
func (e *Emitter) emitIf(n *domain.Node) {
	cond, _ := e.emitExprValue(n.Condition)

	thenBB := e.fn.NewBlock("if_label")
	var elseBB *BasicBlock
	contBB := e.fn.NewBlock("continue_label")

	hasElse := len(n.ElifChain) > 0 || e.arena.Valid(n.ElseBranch)
	if hasElse {
		elseBB = e.fn.NewBlock("else_label")
		e.fn.Current().CondBr(cond, thenBB, elseBB)
	} else {
		e.fn.Current().CondBr(cond, thenBB, contBB)
	}

	e.fn.SetCurrent(thenBB)
	e.pushScope()
	e.emitStatement(n.Then)
	e.popScope()
	if !e.fn.Current().Terminated() {
		e.branchToContinuation(contBB)
	}

	cur := elseBB
	for _, elifRef := range n.ElifChain {
		elif := e.arena.Get(elifRef)
		e.fn.SetCurrent(cur)
		elifCond, _ := e.emitExprValue(elif.Condition)
		elifThen := e.fn.NewBlock("if_label")
		next := e.fn.NewBlock("else_label")
		e.fn.Current().CondBr(elifCond, elifThen, next)

		e.fn.SetCurrent(elifThen)
		e.pushScope()
		e.emitStatement(elif.Then)
		e.popScope()
		if !e.fn.Current().Terminated() {
			e.branchToContinuation(contBB)
		}
		cur = next
	}

	if e.arena.Valid(n.ElseBranch) {
		elseNode := e.arena.Get(n.ElseBranch)
		e.fn.SetCurrent(cur)
		e.pushScope()
		e.emitStatement(elseNode.Then)
		e.popScope()
		if !e.fn.Current().Terminated() {
			e.branchToContinuation(contBB)
		}
	} else if hasElse {
		// The final `else_label` placeholder from the elif chain has no
		// user else body; it falls straight through to the continuation.
		e.fn.SetCurrent(cur)
		e.branchToContinuation(contBB)
	}

	e.fn.SetCurrent(contBB)
}

// branchToContinuation branches to target, the if statement's shared
// continuation block (emitIf always creates one, also inside loops).
func (e *Emitter) branchToContinuation(target *BasicBlock) {
	e.fn.Current().Br(target)
}

func (e *Emitter) emitWhile(n *domain.Node) {
	condBB := e.fn.NewBlock("while.cond")
	bodyBB := e.fn.NewBlock("while.body")
	endBB := e.fn.NewBlock("while.end")

	e.fn.Current().Br(condBB)

	e.fn.SetCurrent(condBB)
	cond, _ := e.emitExprValue(n.Condition)
	e.fn.Current().CondBr(cond, bodyBB, endBB)

	e.loops = append(e.loops, loopContext{condBlock: condBB, incBlock: condBB, endBlock: endBB})
	e.fn.SetCurrent(bodyBB)
	e.pushScope()
	e.emitStatement(n.Then)
	e.popScope()
	if !e.fn.Current().Terminated() {
		e.fn.Current().Br(condBB)
	}
	e.loops = e.loops[:len(e.loops)-1]

	e.fn.SetCurrent(endBB)
}

// emitForRange lowers `for name from start .. |... end [step s] { body }`.
// A single counter supports both ascending and descending iteration via
// a `select` between the two possible comparisons based on the step's
// sign, per §4.6.
func (e *Emitter) emitForRange(n *domain.Node) {
	startVal, _ := e.emitExprValue(n.RangeStart)
	endVal, _ := e.emitExprValue(n.RangeEnd)
	stepVal := "1"
	if e.arena.Valid(n.Step) {
		stepVal, _ = e.emitExprValue(n.Step)
	}

	counter := e.fn.Current().NamedAlloca(n.Name, domain.TagI32)
	e.fn.Current().Store(domain.TagI32, startVal, counter)

	condBB := e.fn.NewBlock("for.cond")
	bodyBB := e.fn.NewBlock("for.body")
	incBB := e.fn.NewBlock("for.inc")
	endBB := e.fn.NewBlock("for.end")

	e.fn.Current().Br(condBB)

	e.fn.SetCurrent(condBB)
	cur := condBB.Load(domain.TagI32, counter)
	isPositiveStep := condBB.ICmp("sgt", domain.TagI32, stepVal, "0")

	var ascCond, descCond string
	if n.RangeInclusive {
		ascCond = condBB.ICmp("sle", domain.TagI32, cur, endVal)
		descCond = condBB.ICmp("sge", domain.TagI32, cur, endVal)
	} else {
		ascCond = condBB.ICmp("slt", domain.TagI32, cur, endVal)
		descCond = condBB.ICmp("sgt", domain.TagI32, cur, endVal)
	}
	inBounds := condBB.Select(isPositiveStep, domain.TagI1, ascCond, descCond)
	condBB.CondBr(inBounds, bodyBB, endBB)

	e.loops = append(e.loops, loopContext{condBlock: condBB, incBlock: incBB, endBlock: endBB})
	e.fn.SetCurrent(bodyBB)
	e.pushScope()
	e.declareLocal(n.Name, local{ptr: counter, typ: domain.TagI32})
	e.emitStatement(n.Then)
	e.popScope()
	if !e.fn.Current().Terminated() {
		e.fn.Current().Br(incBB)
	}

	e.fn.SetCurrent(incBB)
	loaded := incBB.Load(domain.TagI32, counter)
	next := incBB.Add(domain.TagI32, loaded, stepVal)
	incBB.Store(domain.TagI32, next, counter)
	incBB.Br(condBB)
	e.loops = e.loops[:len(e.loops)-1]

	e.fn.SetCurrent(endBB)
}
