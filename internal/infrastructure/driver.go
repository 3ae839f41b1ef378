package infrastructure

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/FernandoTheDev/farpy-sub000/internal/domain"
)

// optionalTools never abort compilation when absent from PATH; they are
// best-effort post-processing steps.
var optionalTools = map[string]bool{"strip": true, "upx": true}

// Driver shells out to the external LLVM/clang toolchain to turn emitted
// IR text into a native executable, per spec.md §5's description of a
// single-threaded, sequential driver stage. It owns every temporary file
// it creates and removes them all on every exit path of Compile.
type Driver struct {
	reporter     domain.Reporter
	debug        bool
	targetTriple string
	homeDir      string
	tempFiles    []string
}

// NewDriver builds a Driver bound to the given reporter. targetTriple, when
// non-empty, is forwarded to clang as `-target <triple>`.
func NewDriver(reporter domain.Reporter, targetTriple string, debug bool) *Driver {
	return &Driver{
		reporter:     reporter,
		debug:        debug,
		targetTriple: targetTriple,
		homeDir:      os.Getenv("HOME"),
	}
}

func (d *Driver) addTemp(path string) {
	d.tempFiles = append(d.tempFiles, path)
}

// Cleanup removes every temp file the driver has created so far, and
// resets the list. Safe to call unconditionally; missing files are
// ignored.
func (d *Driver) Cleanup() {
	for _, f := range d.tempFiles {
		os.Remove(f)
	}
	d.tempFiles = d.tempFiles[:0]
}

// Compile assembles irText (the emitter's textual LLVM IR), links in
// externCSources (the raw C bodies captured from `extern "C" { ... }
// """..."""` blocks) and stdlibModules (the stdlib modules the program
// imported, resolved to $HOME/.farpy/libs/<name>.c), and produces a
// native executable at outputPath.
func (d *Driver) Compile(irText string, externCSources []string, stdlibModules []string, outputPath string) (err error) {
	defer d.Cleanup()

	if len(stdlibModules) > 0 && d.homeDir == "" {
		return d.fail("$HOME must be set to compile a program that imports a standard-library module")
	}

	llFile, err := d.writeTemp("farpy-*.ll", irText)
	if err != nil {
		return err
	}
	if d.debug {
		fmt.Fprintf(os.Stderr, "debug: wrote IR to %s\n", llFile)
	}

	bcFile := strings.TrimSuffix(llFile, ".ll") + ".bc"
	d.addTemp(bcFile)
	if err := d.run("llvm-as", "-o", bcFile, llFile); err != nil {
		return err
	}

	linkInputs := []string{bcFile}
	for _, name := range stdlibModules {
		srcPath := filepath.Join(d.homeDir, ".farpy", "libs", name+".c")
		if _, statErr := os.Stat(srcPath); statErr != nil {
			return d.fail(fmt.Sprintf("stdlib source for module %q not found at %s", name, srcPath))
		}
		modBC := strings.TrimSuffix(llFile, ".ll") + "." + name + ".bc"
		d.addTemp(modBC)
		if err := d.run("clang", "-emit-llvm", "-c", srcPath, "-o", modBC); err != nil {
			return err
		}
		linkInputs = append(linkInputs, modBC)
	}

	linkedBC := bcFile
	if len(linkInputs) > 1 {
		linkedBC = strings.TrimSuffix(llFile, ".ll") + ".linked.bc"
		d.addTemp(linkedBC)
		args := append([]string{"-o", linkedBC}, linkInputs...)
		if err := d.run("llvm-link", args...); err != nil {
			return err
		}
	}

	var externFiles []string
	for i, src := range externCSources {
		path, err := d.writeTemp(fmt.Sprintf("farpy-extern-%d-*.c", i), src)
		if err != nil {
			return err
		}
		externFiles = append(externFiles, path)
	}

	clangArgs := []string{"-o", outputPath, linkedBC}
	clangArgs = append(clangArgs, externFiles...)
	if d.targetTriple != "" {
		clangArgs = append(clangArgs, "-target", d.targetTriple)
	}
	if err := d.run("clang", clangArgs...); err != nil {
		return err
	}

	// Best-effort post-processing; absence of either tool is not fatal.
	d.run("strip", outputPath)
	d.run("upx", "-q", outputPath)

	return nil
}

// EmitIRFile writes irText to exactly outputPath with no further
// toolchain invocation, for `--emit-llvm-ir`.
func (d *Driver) EmitIRFile(irText, outputPath string) error {
	if err := os.WriteFile(outputPath, []byte(irText), 0o644); err != nil {
		return d.fail(fmt.Sprintf("failed to write IR file %s: %v", outputPath, err))
	}
	return nil
}

func (d *Driver) writeTemp(pattern, content string) (string, error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", errors.Wrap(err, "creating temp file")
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		return "", errors.Wrap(err, "writing temp file")
	}
	d.addTemp(f.Name())
	return f.Name(), nil
}

func (d *Driver) run(tool string, args ...string) error {
	path, lookErr := exec.LookPath(tool)
	if lookErr != nil {
		if optionalTools[tool] {
			if d.debug {
				fmt.Fprintf(os.Stderr, "debug: %s not found on PATH, skipping\n", tool)
			}
			return nil
		}
		return d.fail(fmt.Sprintf("required tool %q not found on PATH", tool))
	}
	if d.debug {
		fmt.Fprintf(os.Stderr, "debug: running %s %s\n", tool, strings.Join(args, " "))
	}
	cmd := exec.Command(path, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return d.fail(fmt.Sprintf("%s failed: %v\n%s", tool, err, stderr.String()))
	}
	return nil
}

func (d *Driver) fail(msg string) error {
	d.reporter.Report(domain.NewError(domain.DriverError, msg, domain.Location{}, ""))
	return errors.New(msg)
}
