package semantic

import (
	"strings"
	"testing"

	"github.com/FernandoTheDev/farpy-sub000/internal/domain"
	"github.com/FernandoTheDev/farpy-sub000/internal/infrastructure"
	"github.com/FernandoTheDev/farpy-sub000/internal/lexer"
	"github.com/FernandoTheDev/farpy-sub000/internal/parser"
	"github.com/FernandoTheDev/farpy-sub000/internal/stdlib"
)

func analyze(t *testing.T, src string) (*domain.Arena, domain.NodeRef, domain.Reporter, *Analyzer) {
	t.Helper()
	arena := domain.NewArena()
	reporter := infrastructure.NewConsoleErrorReporter()
	l := lexer.New(strings.NewReader(src), "test.fp", ".", reporter)
	p := parser.New(l, reporter, arena)
	program := p.Parse()

	a := New(arena, reporter, stdlib.NewRegistry(), ".", "test.fp")
	a.Analyze(program)
	return arena, program, reporter, a
}

func TestAnalyzer_VariableDeclarationInfersType(t *testing.T) {
	arena, program, reporter, _ := analyze(t, `new x = 42`)
	if reporter.HasErrors() {
		t.Fatalf("unexpected errors: %v", reporter.Errors())
	}
	decl := arena.Get(arena.Get(program).Children[0])
	if decl.Type == nil || decl.Type.Tag != domain.TagI32 {
		t.Fatalf("expected x inferred as i32, got %v", decl.Type)
	}
}

func TestAnalyzer_UndefinedIdentifier(t *testing.T) {
	_, _, reporter, _ := analyze(t, `new x = y`)
	if !reporter.HasErrors() {
		t.Fatal("expected an undefined-identifier error")
	}
}

func TestAnalyzer_AssignToImmutableIsError(t *testing.T) {
	// `new` always declares a mutable binding, so the immutable
	// declaration is built directly in the arena.
	arena := domain.NewArena()
	reporter := infrastructure.NewConsoleErrorReporter()
	one := arena.New(domain.Node{Kind: domain.NodeIntLiteral, IntValue: 1})
	two := arena.New(domain.Node{Kind: domain.NodeIntLiteral, IntValue: 2})
	decl := arena.New(domain.Node{Kind: domain.NodeVariableDeclaration, Name: "x", IsMutable: false, Right: one})
	assign := arena.New(domain.Node{Kind: domain.NodeAssignmentDeclaration, Name: "x", Right: two})
	program := arena.New(domain.Node{Kind: domain.NodeProgram, Children: []domain.NodeRef{decl, assign}})

	New(arena, reporter, stdlib.NewRegistry(), ".", "test.fp").Analyze(program)
	if !reporter.HasErrors() {
		t.Fatal("expected an error assigning to an immutable binding")
	}
}

func TestAnalyzer_AssignToMutableOK(t *testing.T) {
	_, _, reporter, _ := analyze(t, "new mut x = 1\nx = 2")
	if reporter.HasErrors() {
		t.Fatalf("unexpected errors: %v", reporter.Errors())
	}
}

func TestAnalyzer_FunctionRecursionAllowed(t *testing.T) {
	src := `
fn fib(n: int): int {
    if n < 2 {
        return n
    }
    return fib(n - 1) + fib(n - 2)
}`
	_, _, reporter, a := analyze(t, src)
	if reporter.HasErrors() {
		t.Fatalf("unexpected errors: %v", reporter.Errors())
	}
	if _, ok := a.Functions().Lookup("fib"); !ok {
		t.Fatal("expected fib to be registered in the function registry")
	}
}

func TestAnalyzer_CallArityMismatch(t *testing.T) {
	src := `
fn add(a: int, b: int): int {
    return a + b
}
new r = add(1)`
	_, _, reporter, _ := analyze(t, src)
	if !reporter.HasErrors() {
		t.Fatal("expected an arity-mismatch error")
	}
}

func TestAnalyzer_BinaryPromotion(t *testing.T) {
	arena, program, reporter, _ := analyze(t, `new x = 1 + 2.5`)
	if reporter.HasErrors() {
		t.Fatalf("unexpected errors: %v", reporter.Errors())
	}
	decl := arena.Get(arena.Get(program).Children[0])
	if decl.Type.Tag != domain.TagDouble {
		t.Fatalf("expected promotion to double, got %v", decl.Type.Tag)
	}
}

func TestAnalyzer_StdlibImportRegistersFunctions(t *testing.T) {
	src := `
import "io"
new ignored = printf("hi")`
	_, _, reporter, a := analyze(t, src)
	if reporter.HasErrors() {
		t.Fatalf("unexpected errors: %v", reporter.Errors())
	}
	if _, ok := a.Functions().Lookup("printf"); !ok {
		t.Fatal("expected io.printf to be registered after import")
	}
}

func TestAnalyzer_StdlibReimportIsNoOp(t *testing.T) {
	src := `
import "io"
import "io"
new ignored = printf("hi")`
	_, _, reporter, _ := analyze(t, src)
	if reporter.HasErrors() {
		t.Fatalf("re-importing the same module should be a silent no-op: %v", reporter.Errors())
	}
}

func TestAnalyzer_UnknownStdlibModule(t *testing.T) {
	_, _, reporter, _ := analyze(t, `import "nope"`)
	if !reporter.HasErrors() {
		t.Fatal("expected an unknown-module error")
	}
}

func TestAnalyzer_ForRangeDeclaresCounterInScope(t *testing.T) {
	src := `
for i from 0 .. 10 {
    new x = i
}`
	_, _, reporter, _ := analyze(t, src)
	if reporter.HasErrors() {
		t.Fatalf("unexpected errors: %v", reporter.Errors())
	}
}

func TestAnalyzer_UsedIdentifiersTracksReferences(t *testing.T) {
	src := "new x = 1\nnew y = x"
	_, _, reporter, a := analyze(t, src)
	if reporter.HasErrors() {
		t.Fatalf("unexpected errors: %v", reporter.Errors())
	}
	if !a.UsedIdentifiers()["x"] {
		t.Fatal("expected x to be recorded as used")
	}
}
