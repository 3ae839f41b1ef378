package codegen

import (
	"strings"
	"testing"

	"github.com/FernandoTheDev/farpy-sub000/internal/domain"
	"github.com/FernandoTheDev/farpy-sub000/internal/infrastructure"
	"github.com/FernandoTheDev/farpy-sub000/internal/lexer"
	"github.com/FernandoTheDev/farpy-sub000/internal/parser"
	"github.com/FernandoTheDev/farpy-sub000/internal/semantic"
	"github.com/FernandoTheDev/farpy-sub000/internal/stdlib"
)

func compile(t *testing.T, src string) (string, domain.Reporter) {
	t.Helper()
	arena := domain.NewArena()
	reporter := infrastructure.NewConsoleErrorReporter()
	l := lexer.New(strings.NewReader(src), "test.fp", ".", reporter)
	p := parser.New(l, reporter, arena)
	program := p.Parse()

	registry := stdlib.NewRegistry()
	a := semantic.New(arena, reporter, registry, ".", "test.fp")
	a.Analyze(program)
	if reporter.HasErrors() {
		return "", reporter
	}

	e := New(arena, reporter, a.Functions(), registry, "", "test.fp")
	return e.Emit(program), reporter
}

func TestEmitter_SynthesizedMainWrapsTopLevelStatements(t *testing.T) {
	ir, reporter := compile(t, `new x = 1`)
	if reporter.HasErrors() {
		t.Fatalf("unexpected errors: %v", reporter.Errors())
	}
	if !strings.Contains(ir, "define i32 @main()") {
		t.Fatalf("expected a synthesized main, got:\n%s", ir)
	}
	if !strings.Contains(ir, "ret i32 0") {
		t.Fatalf("expected an implicit ret i32 0, got:\n%s", ir)
	}
}

func TestEmitter_UserDefinedMainIsNotDoubleWrapped(t *testing.T) {
	ir, reporter := compile(t, `
fn main(): int {
    return 0
}`)
	if reporter.HasErrors() {
		t.Fatalf("unexpected errors: %v", reporter.Errors())
	}
	if strings.Count(ir, "define") != 1 {
		t.Fatalf("expected exactly one function definition, got:\n%s", ir)
	}
}

func TestEmitter_FunctionDeclarationEmitsSignature(t *testing.T) {
	ir, reporter := compile(t, `
fn add(a: int, b: int): int {
    return a + b
}`)
	if reporter.HasErrors() {
		t.Fatalf("unexpected errors: %v", reporter.Errors())
	}
	if !strings.Contains(ir, "define i32 @add(i32 %a, i32 %b)") {
		t.Fatalf("expected add's signature, got:\n%s", ir)
	}
	if !strings.Contains(ir, "add i32") {
		t.Fatalf("expected an add instruction, got:\n%s", ir)
	}
}

func TestEmitter_IfElseBranches(t *testing.T) {
	ir, reporter := compile(t, `
fn pick(n: int): int {
    if n < 0 {
        return 0
    } else {
        return 1
    }
}`)
	if reporter.HasErrors() {
		t.Fatalf("unexpected errors: %v", reporter.Errors())
	}
	for _, want := range []string{"if_label", "else_label", "icmp slt"} {
		if !strings.Contains(ir, want) {
			t.Errorf("expected IR to contain %q, got:\n%s", want, ir)
		}
	}
}

func TestEmitter_WhileLoop(t *testing.T) {
	ir, reporter := compile(t, `
fn countdown(n: int): int {
    new mut i = n
    while i > 0 {
        i = i - 1
    }
    return i
}`)
	if reporter.HasErrors() {
		t.Fatalf("unexpected errors: %v", reporter.Errors())
	}
	for _, want := range []string{"while.cond", "while.body", "while.end"} {
		if !strings.Contains(ir, want) {
			t.Errorf("expected IR to contain %q, got:\n%s", want, ir)
		}
	}
}

func TestEmitter_ForRangeUsesSelectForStepDirection(t *testing.T) {
	ir, reporter := compile(t, `
fn sumTo(n: int): int {
    new mut total = 0
    for i from 0 .. n {
        total = total + i
    }
    return total
}`)
	if reporter.HasErrors() {
		t.Fatalf("unexpected errors: %v", reporter.Errors())
	}
	for _, want := range []string{"for.cond", "for.body", "for.inc", "for.end", "select i1"} {
		if !strings.Contains(ir, want) {
			t.Errorf("expected IR to contain %q, got:\n%s", want, ir)
		}
	}
}

func TestEmitter_LogicalAndShortCircuitsViaPhi(t *testing.T) {
	ir, reporter := compile(t, `
fn both(a: bool, b: bool): bool {
    return a && b
}`)
	if reporter.HasErrors() {
		t.Fatalf("unexpected errors: %v", reporter.Errors())
	}
	for _, want := range []string{"log_rhs", "log_end", "phi i1"} {
		if !strings.Contains(ir, want) {
			t.Errorf("expected IR to contain %q, got:\n%s", want, ir)
		}
	}
}

func TestEmitter_StringLiteralBecomesPrivateGlobal(t *testing.T) {
	ir, reporter := compile(t, `
import "io"
new ignored = printf("hello\n")`)
	if reporter.HasErrors() {
		t.Fatalf("unexpected errors: %v", reporter.Errors())
	}
	if !strings.Contains(ir, "private unnamed_addr constant") {
		t.Fatalf("expected an interned string global, got:\n%s", ir)
	}
	if !strings.Contains(ir, "\\0A") {
		t.Fatalf("expected the newline to be escaped as \\0A, got:\n%s", ir)
	}
}

func TestEmitter_StdlibCallEmitsDeclareOnce(t *testing.T) {
	ir, reporter := compile(t, `
import "math"
new a = sqrt(4.0)
new b = sqrt(9.0)`)
	if reporter.HasErrors() {
		t.Fatalf("unexpected errors: %v", reporter.Errors())
	}
	if strings.Count(ir, "declare double @sqrt(double)") != 1 {
		t.Fatalf("expected exactly one declare line for sqrt, got:\n%s", ir)
	}
}

func TestEmitter_PrintAndPrintfDoNotConflictOnPrintfSymbol(t *testing.T) {
	ir, reporter := compile(t, `
import "io"
print("hello")
printf("%d\n", 1)`)
	if reporter.HasErrors() {
		t.Fatalf("unexpected errors: %v", reporter.Errors())
	}
	printfDeclares := 0
	for _, line := range strings.Split(ir, "\n") {
		if strings.HasPrefix(line, "declare") && strings.Contains(line, "@printf(") {
			printfDeclares++
		}
	}
	if printfDeclares != 1 {
		t.Fatalf("expected exactly one declare referencing @printf, got:\n%s", ir)
	}
	if !strings.Contains(ir, "declare i32 @printf(i8*, ...)") {
		t.Fatalf("expected printf's own variadic declare, got:\n%s", ir)
	}
	if !strings.Contains(ir, "declare void @puts(i8*)") {
		t.Fatalf("expected print to declare the distinct @puts symbol, got:\n%s", ir)
	}
}

func TestEmitter_RecursiveCall(t *testing.T) {
	ir, reporter := compile(t, `
fn fib(n: int): int {
    if n < 2 {
        return n
    }
    return fib(n - 1) + fib(n - 2)
}`)
	if reporter.HasErrors() {
		t.Fatalf("unexpected errors: %v", reporter.Errors())
	}
	if strings.Count(ir, "call i32 @fib") != 2 {
		t.Fatalf("expected two recursive calls, got:\n%s", ir)
	}
}
