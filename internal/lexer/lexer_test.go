package lexer

import (
	"strings"
	"testing"

	"github.com/FernandoTheDev/farpy-sub000/internal/domain"
	"github.com/FernandoTheDev/farpy-sub000/internal/infrastructure"
)

func tokenKinds(src string) []domain.TokenKind {
	l := New(strings.NewReader(src), "test.fp", ".", nil)
	var kinds []domain.TokenKind
	for {
		tok := l.Next()
		kinds = append(kinds, tok.Kind)
		if tok.Kind == domain.TokEOF {
			break
		}
	}
	return kinds
}

func TestLexer_BasicTokenization(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []domain.TokenKind
	}{
		{
			name:  "keywords",
			input: "fn new mut if elif else while for from step return import extern struct null true false",
			expected: []domain.TokenKind{
				domain.TokFn, domain.TokNew, domain.TokMut, domain.TokIf, domain.TokElif, domain.TokElse,
				domain.TokWhile, domain.TokFor, domain.TokFrom, domain.TokStep, domain.TokReturn,
				domain.TokImport, domain.TokExtern, domain.TokStruct, domain.TokNull, domain.TokTrue,
				domain.TokFalse, domain.TokEOF,
			},
		},
		{
			name:  "operators",
			input: "+ - * / % %% ** == != < <= > >= && || ! = ++ -- ->",
			expected: []domain.TokenKind{
				domain.TokPlus, domain.TokMinus, domain.TokStar, domain.TokSlash, domain.TokPercent,
				domain.TokPercentPct, domain.TokStarStar, domain.TokEq, domain.TokNotEq, domain.TokLt,
				domain.TokLe, domain.TokGt, domain.TokGe, domain.TokAnd, domain.TokOr, domain.TokBang,
				domain.TokAssign, domain.TokPlusPlus, domain.TokMinusMinus, domain.TokArrow, domain.TokEOF,
			},
		},
		{
			name:  "delimiters and ranges",
			input: "( ) { } [ ] ; , . : | .. ...",
			expected: []domain.TokenKind{
				domain.TokLParen, domain.TokRParen, domain.TokLBrace, domain.TokRBrace, domain.TokLBracket,
				domain.TokRBracket, domain.TokSemicolon, domain.TokComma, domain.TokDot, domain.TokColon,
				domain.TokPipe, domain.TokRange, domain.TokRangeIncl, domain.TokEOF,
			},
		},
		{
			name:  "literals",
			input: `42 3.14 "hello" 101b 0xFF 0o17 0b101 identifier`,
			expected: []domain.TokenKind{
				domain.TokInt, domain.TokFloat, domain.TokString, domain.TokBinary, domain.TokInt,
				domain.TokInt, domain.TokInt, domain.TokIdentifier, domain.TokEOF,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tokenKinds(tt.input)
			if len(got) != len(tt.expected) {
				t.Fatalf("token count mismatch: got %d, expected %d\ngot:      %v\nexpected: %v",
					len(got), len(tt.expected), got, tt.expected)
			}
			for i, k := range got {
				if k != tt.expected[i] {
					t.Errorf("token %d: got %v, expected %v", i, k, tt.expected[i])
				}
			}
		})
	}
}

func TestLexer_StringEscapes(t *testing.T) {
	l := New(strings.NewReader(`"a\nb\tc\\d\"e\0f"`), "test.fp", ".", nil)
	tok := l.Next()
	if tok.Kind != domain.TokString {
		t.Fatalf("expected STRING, got %v", tok.Kind)
	}
	want := "a\nb\tc\\d\"e\x00f"
	if tok.Literal.Str != want {
		t.Errorf("got %q, want %q", tok.Literal.Str, want)
	}
}

func TestLexer_UnterminatedString(t *testing.T) {
	l := New(strings.NewReader(`"unterminated`), "test.fp", ".", nil)
	tok := l.Next()
	if tok.Kind != domain.TokError {
		t.Fatalf("expected ERROR, got %v", tok.Kind)
	}
}

func TestLexer_UnterminatedBlockComment(t *testing.T) {
	reporter := infrastructure.NewConsoleErrorReporter()
	reporter.SetOutput(&strings.Builder{})
	l := New(strings.NewReader("/* never closed"), "test.fp", ".", reporter)
	tok := l.Next()
	if tok.Kind != domain.TokError {
		t.Fatalf("expected ERROR for an unterminated block comment, got %v", tok.Kind)
	}
	if !reporter.HasErrors() {
		t.Fatalf("expected the lexer to report a LexicalError diagnostic")
	}
	errs := reporter.Errors()
	if len(errs) != 1 || errs[0].Type != domain.LexicalError {
		t.Fatalf("expected exactly one LexicalError diagnostic, got %v", errs)
	}
}

func TestLexer_NumericPrefixMissingDigits(t *testing.T) {
	for _, src := range []string{"0x", "0o", "0b"} {
		l := New(strings.NewReader(src), "test.fp", ".", nil)
		tok := l.Next()
		if tok.Kind != domain.TokError {
			t.Errorf("input %q: expected ERROR, got %v", src, tok.Kind)
		}
	}
}

func TestLexer_UnexpectedCharacter(t *testing.T) {
	l := New(strings.NewReader("@"), "test.fp", ".", nil)
	tok := l.Next()
	if tok.Kind != domain.TokError {
		t.Fatalf("expected ERROR, got %v", tok.Kind)
	}
}

func TestLexer_PeekDoesNotConsume(t *testing.T) {
	l := New(strings.NewReader("fn new"), "test.fp", ".", nil)
	p1 := l.Peek()
	p2 := l.Peek()
	if p1.Kind != p2.Kind {
		t.Fatalf("Peek is not idempotent: %v != %v", p1.Kind, p2.Kind)
	}
	n := l.Next()
	if n.Kind != p1.Kind {
		t.Fatalf("Next after Peek returned %v, expected %v", n.Kind, p1.Kind)
	}
	n2 := l.Next()
	if n2.Kind != domain.TokNew {
		t.Fatalf("expected NEW after FN, got %v", n2.Kind)
	}
}

func TestLexer_CommentsSkipped(t *testing.T) {
	src := "fn // a comment\nnew /* block\ncomment */ mut"
	got := tokenKinds(src)
	want := []domain.TokenKind{domain.TokFn, domain.TokNew, domain.TokMut, domain.TokEOF}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d: got %v, want %v", i, got[i], want[i])
		}
	}
}
