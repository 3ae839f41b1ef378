// Package application wires the pipeline stages (lexer, parser, semantic
// analyzer, optimizer, dead-code analyzer, IR emitter, driver) into the
// single compilation entry point the CLI and REPL both call through.
package application

import (
	"io"

	"github.com/pkg/errors"

	"github.com/FernandoTheDev/farpy-sub000/internal/codegen"
	"github.com/FernandoTheDev/farpy-sub000/internal/deadcode"
	"github.com/FernandoTheDev/farpy-sub000/internal/domain"
	"github.com/FernandoTheDev/farpy-sub000/internal/infrastructure"
	"github.com/FernandoTheDev/farpy-sub000/internal/lexer"
	"github.com/FernandoTheDev/farpy-sub000/internal/optimizer"
	"github.com/FernandoTheDev/farpy-sub000/internal/parser"
	"github.com/FernandoTheDev/farpy-sub000/internal/semantic"
	"github.com/FernandoTheDev/farpy-sub000/internal/stdlib"
)

// Result carries every artifact a Compile call produced, so callers (the
// CLI's --ast-json/--emit-llvm-ir flags, the REPL, tests) can reach past
// the final IR string into the intermediate state without re-running the
// pipeline.
type Result struct {
	Arena             *domain.Arena
	Program           domain.NodeRef
	IR                string
	RemovedByDeadCode int
}

// Pipeline is the DefaultCompilerPipeline equivalent: one reusable set of
// collaborators (a reporter, a reset-per-compile stdlib registry, a
// driver) driven through Compile for each source file.
type Pipeline struct {
	reporter domain.Reporter
	registry *stdlib.Registry
	driver   *infrastructure.Driver
	options  domain.CompilationOptions
}

// NewPipeline builds a Pipeline bound to the given reporter and options.
// Per spec.md §5's "explicit collaborators over singletons" guidance, a
// fresh stdlib.Registry and infrastructure.Driver are created here rather
// than reused as globals; Reset is still called before each Compile so a
// long-lived REPL session can reuse one Pipeline across many buffers.
func NewPipeline(reporter domain.Reporter, options domain.CompilationOptions) *Pipeline {
	return &Pipeline{
		reporter: reporter,
		registry: stdlib.NewRegistry(),
		driver:   infrastructure.NewDriver(reporter, options.TargetTriple, options.Debug),
		options:  options,
	}
}

// SetOptions updates the options used by subsequent Compile/Link calls
// (the REPL mutates these between `;` invocations, e.g. toggling --debug).
func (p *Pipeline) SetOptions(options domain.CompilationOptions) {
	p.options = options
	p.driver = infrastructure.NewDriver(p.reporter, options.TargetTriple, options.Debug)
}

// Compile runs every in-scope stage (lex, parse, analyze, optionally
// optimize, optionally strip dead code, emit) over src and returns the
// accumulated Result. It stops and returns an error as soon as the
// reporter carries errors after any stage, per the error-handling
// design's propagation policy.
func (p *Pipeline) Compile(filename, sourceDir string, src io.Reader) (*Result, error) {
	arena := domain.NewArena()

	lx := lexer.New(src, filename, sourceDir, p.reporter)
	prs := parser.New(lx, p.reporter, arena)
	program := prs.Parse()
	if p.reporter.HasErrors() {
		return nil, errors.Errorf("parsing failed: %s", p.reporter.Summary())
	}

	p.registry.Reset()
	analyzer := semantic.New(arena, p.reporter, p.registry, sourceDir, filename)
	analyzer.Analyze(program)
	if p.reporter.HasErrors() {
		return nil, errors.Errorf("semantic analysis failed: %s", p.reporter.Summary())
	}

	if p.options.RunOptimizer {
		optimizer.New(arena, p.reporter).Run(program)
		if p.reporter.HasErrors() {
			return nil, errors.Errorf("optimization failed: %s", p.reporter.Summary())
		}
	}

	removed := 0
	if p.options.RunDeadCode {
		removed = deadcode.New(arena, p.reporter, analyzer.UsedIdentifiers()).Run(program)
	}

	emitter := codegen.New(arena, p.reporter, analyzer.Functions(), p.registry, p.options.TargetTriple, filename)
	ir := emitter.Emit(program)
	if p.reporter.HasErrors() {
		return nil, errors.Errorf("code generation failed: %s", p.reporter.Summary())
	}

	return &Result{Arena: arena, Program: program, IR: ir, RemovedByDeadCode: removed}, nil
}

// Link invokes the driver on result's IR, collecting the extern "C"
// bodies and stdlib module imports off the analyzed program so the
// driver can materialize and link them per spec.md §5.
func (p *Pipeline) Link(result *Result, outputPath string) error {
	externs, modules := CollectDriverInputs(result.Arena, result.Program)
	return p.driver.Compile(result.IR, externs, modules, outputPath)
}

// EmitIR writes result's IR text verbatim to outputPath, for
// --emit-llvm-ir, bypassing the external toolchain entirely.
func (p *Pipeline) EmitIR(result *Result, outputPath string) error {
	return p.driver.EmitIRFile(result.IR, outputPath)
}

// CollectDriverInputs walks the top-level statements of program looking
// for extern "C" raw bodies and stdlib import module names, in source
// order, so the driver receives them in the order the program declared
// them.
func CollectDriverInputs(arena *domain.Arena, program domain.NodeRef) (externs []string, stdlibModules []string) {
	root := arena.Get(program)
	if root == nil {
		return nil, nil
	}
	seen := make(map[string]bool)
	for _, ref := range root.Children {
		n := arena.Get(ref)
		if n == nil {
			continue
		}
		switch n.Kind {
		case domain.NodeExternStatement:
			if n.StringValue != "" {
				externs = append(externs, n.StringValue)
			}
		case domain.NodeImportStatement:
			if n.BoolValue && !seen[n.ModulePath] {
				seen[n.ModulePath] = true
				stdlibModules = append(stdlibModules, n.ModulePath)
			}
		}
	}
	return externs, stdlibModules
}
