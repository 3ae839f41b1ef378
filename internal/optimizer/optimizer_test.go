package optimizer

import (
	"testing"

	"github.com/FernandoTheDev/farpy-sub000/internal/domain"
	"github.com/FernandoTheDev/farpy-sub000/internal/infrastructure"
)

func intLit(arena *domain.Arena, v int64) domain.NodeRef {
	return arena.New(domain.Node{Kind: domain.NodeIntLiteral, IntValue: v})
}

func floatLit(arena *domain.Arena, v float64) domain.NodeRef {
	return arena.New(domain.Node{Kind: domain.NodeFloatLiteral, FloatValue: v})
}

func binExpr(arena *domain.Arena, op string, l, r domain.NodeRef) domain.NodeRef {
	return arena.New(domain.Node{Kind: domain.NodeBinaryExpr, Operator: op, Left: l, Right: r})
}

func program(arena *domain.Arena, children ...domain.NodeRef) domain.NodeRef {
	return arena.New(domain.Node{Kind: domain.NodeProgram, Children: children})
}

func TestOptimizer_FoldsIntegerArithmetic(t *testing.T) {
	arena := domain.NewArena()
	expr := binExpr(arena, "+", intLit(arena, 2), intLit(arena, 3))
	prog := program(arena, expr)

	o := New(arena, infrastructure.NewConsoleErrorReporter())
	o.Run(prog)

	folded := arena.Get(arena.Get(prog).Children[0])
	if folded.Kind != domain.NodeIntLiteral || folded.IntValue != 5 {
		t.Fatalf("expected folded int literal 5, got %+v", folded)
	}
}

func TestOptimizer_IntDivisionFloors(t *testing.T) {
	arena := domain.NewArena()
	expr := binExpr(arena, "/", intLit(arena, -7), intLit(arena, 2))
	prog := program(arena, expr)

	o := New(arena, infrastructure.NewConsoleErrorReporter())
	o.Run(prog)

	folded := arena.Get(arena.Get(prog).Children[0])
	if folded.IntValue != -4 {
		t.Fatalf("expected floor division -7/2 = -4, got %d", folded.IntValue)
	}
}

func TestOptimizer_DivisionByZeroLiteralReportsError(t *testing.T) {
	arena := domain.NewArena()
	expr := binExpr(arena, "/", intLit(arena, 1), intLit(arena, 0))
	prog := program(arena, expr)

	reporter := infrastructure.NewConsoleErrorReporter()
	o := New(arena, reporter)
	o.Run(prog)

	if !reporter.HasErrors() {
		t.Fatal("expected a division-by-zero error")
	}
	folded := arena.Get(arena.Get(prog).Children[0])
	if folded.Kind != domain.NodeBinaryExpr {
		t.Fatal("expected folding to abort, leaving the original binary expr")
	}
}

func TestOptimizer_MixedIntFloatPromotesToFloat(t *testing.T) {
	arena := domain.NewArena()
	expr := binExpr(arena, "*", intLit(arena, 2), floatLit(arena, 1.5))
	prog := program(arena, expr)

	o := New(arena, infrastructure.NewConsoleErrorReporter())
	o.Run(prog)

	folded := arena.Get(arena.Get(prog).Children[0])
	if folded.Kind != domain.NodeFloatLiteral || folded.FloatValue != 3.0 {
		t.Fatalf("expected folded float literal 3.0, got %+v", folded)
	}
}

func TestOptimizer_ComparisonYieldsBoolean(t *testing.T) {
	arena := domain.NewArena()
	expr := binExpr(arena, "<", intLit(arena, 1), intLit(arena, 2))
	prog := program(arena, expr)

	o := New(arena, infrastructure.NewConsoleErrorReporter())
	o.Run(prog)

	folded := arena.Get(arena.Get(prog).Children[0])
	if folded.Kind != domain.NodeBooleanLiteral || !folded.BoolValue {
		t.Fatalf("expected folded boolean true, got %+v", folded)
	}
}

func TestOptimizer_StringConcat(t *testing.T) {
	arena := domain.NewArena()
	l := arena.New(domain.Node{Kind: domain.NodeStringLiteral, StringValue: "a"})
	r := arena.New(domain.Node{Kind: domain.NodeStringLiteral, StringValue: "b"})
	expr := binExpr(arena, "+", l, r)
	prog := program(arena, expr)

	o := New(arena, infrastructure.NewConsoleErrorReporter())
	o.Run(prog)

	folded := arena.Get(arena.Get(prog).Children[0])
	if folded.Kind != domain.NodeStringLiteral || folded.StringValue != "ab" {
		t.Fatalf("expected folded string \"ab\", got %+v", folded)
	}
}

func TestOptimizer_NestedExpressionFoldsFromLeaves(t *testing.T) {
	arena := domain.NewArena()
	inner := binExpr(arena, "+", intLit(arena, 1), intLit(arena, 2))
	outer := binExpr(arena, "*", inner, intLit(arena, 4))
	prog := program(arena, outer)

	o := New(arena, infrastructure.NewConsoleErrorReporter())
	o.Run(prog)

	folded := arena.Get(arena.Get(prog).Children[0])
	if folded.Kind != domain.NodeIntLiteral || folded.IntValue != 12 {
		t.Fatalf("expected nested fold to 12, got %+v", folded)
	}
}

func TestOptimizer_IdempotentOnAlreadyFoldedAST(t *testing.T) {
	arena := domain.NewArena()
	expr := binExpr(arena, "+", intLit(arena, 2), intLit(arena, 3))
	prog := program(arena, expr)

	o := New(arena, infrastructure.NewConsoleErrorReporter())
	o.Run(prog)
	firstPass := arena.Get(arena.Get(prog).Children[0]).IntValue

	o2 := New(arena, infrastructure.NewConsoleErrorReporter())
	o2.Run(prog)
	secondPass := arena.Get(arena.Get(prog).Children[0]).IntValue

	if firstPass != secondPass {
		t.Fatalf("expected idempotent folding, got %d then %d", firstPass, secondPass)
	}
}

func TestOptimizer_FoldsIntegerExponent(t *testing.T) {
	arena := domain.NewArena()
	expr := binExpr(arena, "**", intLit(arena, 2), intLit(arena, 10))
	prog := program(arena, expr)

	o := New(arena, infrastructure.NewConsoleErrorReporter())
	o.Run(prog)

	folded := arena.Get(arena.Get(prog).Children[0])
	if folded.Kind != domain.NodeIntLiteral || folded.IntValue != 1024 {
		t.Fatalf("expected folded int literal 1024, got %+v", folded)
	}
}

func TestOptimizer_NegativeIntegerExponentReportsErrorInsteadOfFolding(t *testing.T) {
	arena := domain.NewArena()
	expr := binExpr(arena, "**", intLit(arena, 2), intLit(arena, -1))
	prog := program(arena, expr)

	reporter := infrastructure.NewConsoleErrorReporter()
	o := New(arena, reporter)
	o.Run(prog)

	if !reporter.HasErrors() {
		t.Fatal("expected a negative-exponent error instead of silently folding to 0")
	}
	errs := reporter.Errors()
	if len(errs) != 1 || errs[0].Type != domain.TypeCheckError {
		t.Fatalf("expected exactly one TypeCheckError, got %v", errs)
	}
	folded := arena.Get(arena.Get(prog).Children[0])
	if folded.Kind != domain.NodeBinaryExpr {
		t.Fatal("expected folding to abort, leaving the original binary expr")
	}
}

func TestOptimizer_NonLiteralOperandLeftUnfolded(t *testing.T) {
	arena := domain.NewArena()
	ident := arena.New(domain.Node{Kind: domain.NodeIdentifier, Name: "x"})
	expr := binExpr(arena, "+", ident, intLit(arena, 1))
	prog := program(arena, expr)

	o := New(arena, infrastructure.NewConsoleErrorReporter())
	o.Run(prog)

	folded := arena.Get(arena.Get(prog).Children[0])
	if folded.Kind != domain.NodeBinaryExpr {
		t.Fatalf("expected non-literal binary expr left unfolded, got %+v", folded)
	}
}
