// Package repl implements the line-oriented interactive prompt spec.md
// §6 describes: a small shell around one-shot compilation, since the
// teacher itself has no REPL to generalize from.
package repl

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/FernandoTheDev/farpy-sub000/internal/application"
	"github.com/FernandoTheDev/farpy-sub000/internal/domain"
)

const prompt = "farpy> "

// REPL holds one interactive session's state: the accumulated source
// buffer, command history, and the path of the last binary `;` produced
// (what `.` re-runs).
type REPL struct {
	pipeline   *application.Pipeline
	reporter   domain.Reporter
	options    domain.CompilationOptions
	buffer     []string
	history    []string
	lastBinary string
	out        io.Writer
	scanner    *bufio.Scanner
}

// New builds a REPL reading lines from in and writing prompts/output to
// out. options.OutputPath, when empty, defaults to a session-scoped temp
// binary path under os.TempDir().
func New(in io.Reader, out io.Writer, reporter domain.Reporter, options domain.CompilationOptions) *REPL {
	return &REPL{
		pipeline: application.NewPipeline(reporter, options),
		reporter: reporter,
		options:  options,
		out:      out,
		scanner:  bufio.NewScanner(in),
	}
}

// Run drives the prompt loop until `q`/`quit` or end-of-input.
func (r *REPL) Run() error {
	fmt.Fprint(r.out, prompt)
	for r.scanner.Scan() {
		line := r.scanner.Text()
		r.history = append(r.history, line)

		switch strings.TrimSpace(line) {
		case ".":
			r.runLastBinary()
		case ";":
			r.compileBuffer()
		case "clb":
			r.buffer = nil
		case "cll":
			if len(r.buffer) > 0 {
				r.buffer = r.buffer[:len(r.buffer)-1]
			}
		case "swb":
			fmt.Fprintln(r.out, strings.Join(r.buffer, "\n"))
		case "hist":
			for _, h := range r.history {
				fmt.Fprintln(r.out, h)
			}
		case "help":
			r.printHelp()
		case "q", "quit":
			return nil
		default:
			r.buffer = append(r.buffer, line)
		}

		fmt.Fprint(r.out, prompt)
	}
	return r.scanner.Err()
}

func (r *REPL) printHelp() {
	fmt.Fprintln(r.out, ".     run last compiled binary")
	fmt.Fprintln(r.out, ";     compile current buffer")
	fmt.Fprintln(r.out, "clb   clear buffer")
	fmt.Fprintln(r.out, "cll   drop last line")
	fmt.Fprintln(r.out, "swb   show buffer")
	fmt.Fprintln(r.out, "hist  show command history")
	fmt.Fprintln(r.out, "help  show this help")
	fmt.Fprintln(r.out, "q     exit (alias: quit)")
}

func (r *REPL) compileBuffer() {
	if resetter, ok := r.reporter.(interface{ Reset() }); ok {
		resetter.Reset()
	}
	src := strings.Join(r.buffer, "\n")
	result, err := r.pipeline.Compile("repl", ".", strings.NewReader(src))
	if flusher, ok := r.reporter.(interface{ Flush() }); ok {
		flusher.Flush()
	}
	if err != nil {
		fmt.Fprintln(r.out, err)
		fmt.Fprintln(r.out, r.reporter.Summary())
		return
	}

	binaryPath := r.options.OutputPath
	if binaryPath == "" {
		binaryPath = tempBinaryPath()
	}
	if err := r.pipeline.Link(result, binaryPath); err != nil {
		fmt.Fprintln(r.out, err)
		return
	}
	r.lastBinary = binaryPath
	fmt.Fprintln(r.out, r.reporter.Summary())
}

func (r *REPL) runLastBinary() {
	if r.lastBinary == "" {
		fmt.Fprintln(r.out, "no binary compiled yet; use ';' first")
		return
	}
	cmd := exec.Command(r.lastBinary)
	cmd.Stdout = r.out
	cmd.Stderr = r.out
	if err := cmd.Run(); err != nil {
		fmt.Fprintf(r.out, "run failed: %v\n", err)
	}
}

func tempBinaryPath() string {
	f, err := os.CreateTemp("", "farpy-repl-*")
	if err != nil {
		return "a.out"
	}
	path := f.Name()
	f.Close()
	os.Remove(path)
	return path
}
