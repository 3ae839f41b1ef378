// Command farpy is the Farpy compiler CLI: one invocation compiles one
// .fp source file (or drops into the interactive REPL with --repl).
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/kr/pretty"

	"github.com/FernandoTheDev/farpy-sub000/internal/application"
	"github.com/FernandoTheDev/farpy-sub000/internal/domain"
	"github.com/FernandoTheDev/farpy-sub000/internal/infrastructure"
	"github.com/FernandoTheDev/farpy-sub000/internal/repl"
)

const version = "0.0.3"

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run implements the CLI surface in spec.md §6, returning the process
// exit code rather than calling os.Exit itself, so it stays testable.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("farpy", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		output      string
		showHelp    bool
		showVersion bool
		astJSON     bool
		astJSONPath string
		emitIR      bool
		runOpt      bool
		runDeadCode bool
		debug       bool
		target      string
		targetHelp  bool
		useRepl     bool
	)

	fs.StringVar(&output, "o", "a.out", "output binary path")
	fs.StringVar(&output, "output", "a.out", "output binary path (alias of -o)")
	fs.BoolVar(&showHelp, "h", false, "print help and exit")
	fs.BoolVar(&showHelp, "help", false, "print help and exit (alias of -h)")
	fs.BoolVar(&showVersion, "v", false, "print version and exit")
	fs.BoolVar(&showVersion, "version", false, "print version and exit (alias of -v)")
	fs.BoolVar(&astJSON, "ast-json", false, "emit parsed AST as JSON and exit")
	fs.BoolVar(&astJSON, "astj", false, "emit parsed AST as JSON and exit (alias)")
	fs.StringVar(&astJSONPath, "ast-json-save", "ast.json", "path for --ast-json output")
	fs.BoolVar(&emitIR, "emit-llvm-ir", false, "write IR to <file>.ll and exit")
	fs.BoolVar(&emitIR, "eir", false, "write IR to <file>.ll and exit (alias)")
	fs.BoolVar(&runOpt, "opt", false, "run the constant-folding optimizer")
	fs.BoolVar(&runOpt, "optimize", false, "run the constant-folding optimizer (alias)")
	fs.BoolVar(&runDeadCode, "dead-code", false, "run the dead-code analyzer")
	fs.BoolVar(&runDeadCode, "dc", false, "run the dead-code analyzer (alias)")
	fs.BoolVar(&debug, "debug", false, "verbose driver logging and IR debug dumps")
	fs.StringVar(&target, "target", "", "forward -target <triple> to clang")
	fs.BoolVar(&targetHelp, "targeth", false, "print target triples help and exit")
	fs.BoolVar(&useRepl, "repl", false, "start the interactive REPL")
	fs.BoolVar(&useRepl, "cli", false, "start the interactive REPL (alias)")

	if err := fs.Parse(args); err != nil {
		return 255
	}

	switch {
	case showHelp:
		printUsage(stdout, fs)
		return 0
	case showVersion:
		fmt.Fprintf(stdout, "farpy %s\n", version)
		return 0
	case targetHelp:
		printTargetHelp(stdout)
		return 0
	}

	console := infrastructure.NewConsoleErrorReporter()
	console.SetOutput(stderr)
	reporter := infrastructure.NewSortedErrorReporter(console)

	if useRepl {
		session := repl.New(stdin, stdout, reporter, domain.CompilationOptions{
			OutputPath: output, Debug: debug, TargetTriple: target,
		})
		if err := session.Run(); err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		return 0
	}

	positional := fs.Args()
	if len(positional) == 0 {
		fmt.Fprintln(stderr, "farpy: missing input file (pass a .fp path, or --repl for interactive mode)")
		return 255
	}
	inputPath := positional[0]

	f, err := os.Open(inputPath)
	if err != nil {
		fmt.Fprintf(stderr, "farpy: %v\n", err)
		return 255
	}
	defer f.Close()

	options := domain.CompilationOptions{
		InputPath:    inputPath,
		OutputPath:   output,
		EmitLLVMIR:   emitIR,
		ASTJSONPath:  astJSONPath,
		RunOptimizer: runOpt,
		RunDeadCode:  runDeadCode,
		Debug:        debug,
		TargetTriple: target,
	}

	pipeline := application.NewPipeline(reporter, options)
	result, err := pipeline.Compile(filepath.Base(inputPath), filepath.Dir(inputPath), f)
	reporter.Flush()
	if err != nil {
		fmt.Fprintln(stderr, err)
		infrastructure.PrintSummary(stderr, reporter)
		return 255
	}

	if debug {
		fmt.Fprintf(stderr, "%# v\n", pretty.Formatter(result.Arena.Get(result.Program)))
		fmt.Fprintf(stderr, "%# v\n", pretty.Formatter(result.Arena.Stats()))
	}

	if astJSON {
		if err := writeASTJSON(result, astJSONPath); err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		return 0
	}

	if emitIR {
		outPath := inputPath + ".ll"
		if err := pipeline.EmitIR(result, outPath); err != nil {
			fmt.Fprintln(stderr, err)
			return 255
		}
		return 0
	}

	if err := pipeline.Link(result, output); err != nil {
		fmt.Fprintln(stderr, err)
		return 255
	}

	infrastructure.PrintSummary(stdout, reporter)
	return 0
}

// writeASTJSON dumps the arena's flat node table as JSON. This is the
// one-way, debug-only `--ast-json` CLI contract, not a roundtrippable
// persistence format.
func writeASTJSON(result *application.Result, path string) error {
	data, err := json.MarshalIndent(result.Arena.Nodes, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func printUsage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintln(w, "usage: farpy [flags] <file.fp>")
	fmt.Fprintln(w)
	fs.SetOutput(w)
	fs.PrintDefaults()
}

func printTargetHelp(w io.Writer) {
	fmt.Fprintln(w, "--target forwards -target <triple> to clang, e.g.:")
	fmt.Fprintln(w, "  x86_64-unknown-linux-gnu")
	fmt.Fprintln(w, "  aarch64-apple-darwin")
	fmt.Fprintln(w, "  wasm32-unknown-wasi")
	fmt.Fprintln(w, "leave unset to target the host triple clang defaults to.")
}
