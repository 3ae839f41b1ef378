package application

import (
	"os"
	"strings"
	"testing"

	"github.com/FernandoTheDev/farpy-sub000/internal/domain"
	"github.com/FernandoTheDev/farpy-sub000/internal/infrastructure"
)

func newTestPipeline(opts domain.CompilationOptions) (*Pipeline, domain.Reporter) {
	reporter := infrastructure.NewConsoleErrorReporter()
	reporter.SetOutput(os.Stdout)
	return NewPipeline(reporter, opts), reporter
}

func TestPipeline_CompileSimpleProgramProducesIR(t *testing.T) {
	p, reporter := newTestPipeline(domain.CompilationOptions{})
	result, err := p.Compile("test.fp", ".", strings.NewReader(`new x = 1 + 2`))
	if err != nil {
		t.Fatalf("unexpected error: %v (%v)", err, reporter.Errors())
	}
	if !strings.Contains(result.IR, "define i32 @main()") {
		t.Fatalf("expected a synthesized main, got:\n%s", result.IR)
	}
}

func TestPipeline_CompileStopsAtFirstFailingStage(t *testing.T) {
	p, _ := newTestPipeline(domain.CompilationOptions{})
	_, err := p.Compile("test.fp", ".", strings.NewReader(`new x = undefined_name`))
	if err == nil {
		t.Fatal("expected semantic analysis to fail on an undefined identifier")
	}
	if !strings.Contains(err.Error(), "semantic analysis failed") {
		t.Fatalf("expected a semantic-analysis failure, got: %v", err)
	}
}

func TestPipeline_RunOptimizerFoldsConstants(t *testing.T) {
	p, _ := newTestPipeline(domain.CompilationOptions{RunOptimizer: true})
	result, err := p.Compile("test.fp", ".", strings.NewReader(`new x = 1 + 2 * 3`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result.IR, "store i32 7") {
		t.Fatalf("expected the folded constant 7 to reach the IR, got:\n%s", result.IR)
	}
}

func TestPipeline_RunDeadCodeRemovesUnusedFunction(t *testing.T) {
	p, reporter := newTestPipeline(domain.CompilationOptions{RunDeadCode: true})
	result, err := p.Compile("test.fp", ".", strings.NewReader(`
fn unused(): int {
    return 1
}
fn main(): int {
    return 0
}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.RemovedByDeadCode != 1 {
		t.Fatalf("expected exactly one declaration removed, got %d", result.RemovedByDeadCode)
	}
	if strings.Contains(result.IR, "@unused") {
		t.Fatalf("expected unused to be absent from IR, got:\n%s", result.IR)
	}
	if !reporter.HasWarnings() {
		t.Fatal("expected a warning reporting the removed declaration")
	}
}

func TestCollectDriverInputs_GathersStdlibModulesAndExternBodies(t *testing.T) {
	p, _ := newTestPipeline(domain.CompilationOptions{})
	result, err := p.Compile("test.fp", ".", strings.NewReader(`
import "math"
import "math"
extern "C" {
    fn add(int, int): int;
} """
int add(int a, int b) { return a + b; }
"""
new x = sqrt(4.0)`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	externs, modules := CollectDriverInputs(result.Arena, result.Program)
	if len(modules) != 1 || modules[0] != "math" {
		t.Fatalf("expected stdlib modules to be deduplicated to [math], got %v", modules)
	}
	if len(externs) != 1 || !strings.Contains(externs[0], "int add(int a, int b)") {
		t.Fatalf("expected the extern C body to be collected, got %v", externs)
	}
}
