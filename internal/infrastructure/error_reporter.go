// Package infrastructure holds concrete implementations of the
// collaborator interfaces internal/domain declares: error reporting and
// (see driver.go) the external toolchain shell-out.
package infrastructure

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/FernandoTheDev/farpy-sub000/internal/domain"
)

// ConsoleErrorReporter prints each diagnostic to its output writer as it
// is reported, with source-line context and a caret underline.
type ConsoleErrorReporter struct {
	errors    []domain.Diagnostic
	warnings  []domain.Diagnostic
	output    io.Writer
	maxErrors int
}

// NewConsoleErrorReporter creates a reporter writing to os.Stderr.
// Use SetOutput to redirect (tests redirect to a buffer).
func NewConsoleErrorReporter() *ConsoleErrorReporter {
	return &ConsoleErrorReporter{output: os.Stderr, maxErrors: 100}
}

func (r *ConsoleErrorReporter) SetOutput(w io.Writer) { r.output = w }

func (r *ConsoleErrorReporter) Report(d domain.Diagnostic) {
	if d.Severity == domain.SeverityError {
		if len(r.errors) < r.maxErrors {
			r.errors = append(r.errors, d)
		}
	} else {
		r.warnings = append(r.warnings, d)
	}
	r.print(d)
}

func (r *ConsoleErrorReporter) print(d domain.Diagnostic) {
	fmt.Fprintf(r.output, "%s: %s: %s\n", d.Location, d.Severity, d.Message)
	if d.Location.RawLine != "" {
		fmt.Fprintf(r.output, "  %s\n", d.Location.RawLine)
		fmt.Fprintf(r.output, "  %s\n", d.Location.Caret())
	}
	if d.Context != "" {
		fmt.Fprintf(r.output, "  context: %s\n", d.Context)
	}
	for _, s := range d.Suggestions {
		fmt.Fprintf(r.output, "  suggestion: %s\n", s.Message)
	}
}

func (r *ConsoleErrorReporter) HasErrors() bool   { return len(r.errors) > 0 }
func (r *ConsoleErrorReporter) HasWarnings() bool { return len(r.warnings) > 0 }

func (r *ConsoleErrorReporter) Errors() []domain.Diagnostic {
	out := make([]domain.Diagnostic, len(r.errors))
	copy(out, r.errors)
	return out
}

func (r *ConsoleErrorReporter) Warnings() []domain.Diagnostic {
	out := make([]domain.Diagnostic, len(r.warnings))
	copy(out, r.warnings)
	return out
}

func (r *ConsoleErrorReporter) Clear() {
	r.errors = r.errors[:0]
	r.warnings = r.warnings[:0]
}

// Summary renders the error-handling design's exact closing line.
func (r *ConsoleErrorReporter) Summary() string {
	if !r.HasErrors() && !r.HasWarnings() {
		return "No problems found!"
	}
	return fmt.Sprintf("Found: %d errors and %d warnings", len(r.errors), len(r.warnings))
}

// SortedErrorReporter buffers diagnostics and only forwards them to an
// underlying Reporter, sorted by location, once Flush is called —
// useful when a stage (e.g. the optimizer walking a whole AST) wants a
// stable left-to-right presentation order regardless of visit order.
type SortedErrorReporter struct {
	underlying   domain.Reporter
	errors       []domain.Diagnostic
	warnings     []domain.Diagnostic
	totalErrors  int
	totalWarning int
}

func NewSortedErrorReporter(underlying domain.Reporter) *SortedErrorReporter {
	return &SortedErrorReporter{underlying: underlying}
}

func (r *SortedErrorReporter) Report(d domain.Diagnostic) {
	if d.Severity == domain.SeverityError {
		r.errors = append(r.errors, d)
		r.totalErrors++
	} else {
		r.warnings = append(r.warnings, d)
		r.totalWarning++
	}
}

func (r *SortedErrorReporter) HasErrors() bool   { return r.totalErrors > 0 }
func (r *SortedErrorReporter) HasWarnings() bool { return r.totalWarning > 0 }

func (r *SortedErrorReporter) Errors() []domain.Diagnostic   { return append([]domain.Diagnostic{}, r.errors...) }
func (r *SortedErrorReporter) Warnings() []domain.Diagnostic { return append([]domain.Diagnostic{}, r.warnings...) }

// Clear drops the pending (not-yet-flushed) diagnostics. It does not
// reset the running totals Summary()/HasErrors()/HasWarnings() report;
// call Reset for that.
func (r *SortedErrorReporter) Clear() {
	r.errors = r.errors[:0]
	r.warnings = r.warnings[:0]
}

// Reset zeroes the running totals as well as the pending buffers, for a
// caller (the REPL) that reuses one SortedErrorReporter across several
// compilations and wants HasErrors/Summary scoped to the latest one.
func (r *SortedErrorReporter) Reset() {
	r.Clear()
	r.totalErrors = 0
	r.totalWarning = 0
}

func (r *SortedErrorReporter) Summary() string {
	if !r.HasErrors() && !r.HasWarnings() {
		return "No problems found!"
	}
	return fmt.Sprintf("Found: %d errors and %d warnings", r.totalErrors, r.totalWarning)
}

// Flush sorts the buffered diagnostics by (file, line, column) and
// forwards them, in order, to the underlying reporter, then clears the
// pending buffers (the running totals Summary() reports survive Flush).
func (r *SortedErrorReporter) Flush() {
	less := func(a, b domain.Diagnostic) bool {
		if a.Location.File != b.Location.File {
			return a.Location.File < b.Location.File
		}
		if a.Location.Line != b.Location.Line {
			return a.Location.Line < b.Location.Line
		}
		return a.Location.Start < b.Location.Start
	}
	sort.Slice(r.errors, func(i, j int) bool { return less(r.errors[i], r.errors[j]) })
	sort.Slice(r.warnings, func(i, j int) bool { return less(r.warnings[i], r.warnings[j]) })
	for _, d := range r.errors {
		r.underlying.Report(d)
	}
	for _, d := range r.warnings {
		r.underlying.Report(d)
	}
	r.Clear()
}

// renderSummaryBanner is a small helper the CLI uses to print a blank
// line before the summary, matching the teacher's PrintSummary spacing.
func renderSummaryBanner(w io.Writer, summary string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.TrimSpace(summary))
}

// PrintSummary writes a blank line then the reporter's Summary() to w,
// mirroring the teacher's ConsoleErrorReporter.PrintSummary spacing.
func PrintSummary(w io.Writer, r domain.Reporter) {
	renderSummaryBanner(w, r.Summary())
}
