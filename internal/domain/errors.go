package domain

import "fmt"

// Severity distinguishes errors (abort the stage, fail compilation) from
// warnings (reported, compilation continues).
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// ErrorType buckets diagnostics by the pipeline stage that raised them,
// mirroring the taxonomy in the error-handling design (lexical, syntactic,
// semantic, type-checker, emission, driver).
type ErrorType int

const (
	LexicalError ErrorType = iota
	SyntaxError
	SemanticError
	TypeCheckError
	CodeGenError
	DriverError
	InternalError
)

func (t ErrorType) String() string {
	switch t {
	case LexicalError:
		return "Lexical Error"
	case SyntaxError:
		return "Syntax Error"
	case SemanticError:
		return "Semantic Error"
	case TypeCheckError:
		return "Type Error"
	case CodeGenError:
		return "Code Generation Error"
	case DriverError:
		return "Driver Error"
	case InternalError:
		return "Internal Error"
	default:
		return "Unknown Error"
	}
}

// Suggestion pairs human-readable advice with an optional literal
// replacement the presentation layer can offer as a fix-it.
type Suggestion struct {
	Message     string
	Replacement string
}

// Diagnostic is one reported error or warning: (location, severity,
// message, suggestions), exactly the tuple the external diagnostic
// presentation layer is contracted to accept.
type Diagnostic struct {
	Type        ErrorType
	Severity    Severity
	Message     string
	Location    Location
	Context     string
	Suggestions []Suggestion
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s: %s", d.Location, d.Type, d.Message)
}

// Reporter collects diagnostics for one compilation. Stages record errors
// and warnings here rather than aborting the process outright; the driver
// checks HasErrors() after each stage per the propagation policy.
type Reporter interface {
	Report(d Diagnostic)
	HasErrors() bool
	HasWarnings() bool
	Errors() []Diagnostic
	Warnings() []Diagnostic
	Clear()
	// Summary renders "Found: N errors and M warnings" or
	// "No problems found!" per the error-handling design.
	Summary() string
}

// NewError is a small convenience constructor used throughout the stages.
func NewError(t ErrorType, msg string, loc Location, context string, hints ...string) Diagnostic {
	suggestions := make([]Suggestion, len(hints))
	for i, h := range hints {
		suggestions[i] = Suggestion{Message: h}
	}
	return Diagnostic{Type: t, Severity: SeverityError, Message: msg, Location: loc, Context: context, Suggestions: suggestions}
}

// NewWarning mirrors NewError for the warning severity.
func NewWarning(t ErrorType, msg string, loc Location, context string, hints ...string) Diagnostic {
	d := NewError(t, msg, loc, context, hints...)
	d.Severity = SeverityWarning
	return d
}
