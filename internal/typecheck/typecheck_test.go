package typecheck

import (
	"testing"

	"github.com/FernandoTheDev/farpy-sub000/internal/domain"
)

func TestChecker_ResolveType(t *testing.T) {
	tests := []struct {
		name string
		want domain.LLVMTypeTag
	}{
		{"int", domain.TagI32}, {"i32", domain.TagI32}, {"binary", domain.TagI32},
		{"i64", domain.TagI64}, {"long", domain.TagI128}, {"i128", domain.TagI128},
		{"float", domain.TagDouble}, {"double", domain.TagDouble},
		{"string", domain.TagString}, {"bool", domain.TagI1}, {"void", domain.TagVoid},
	}
	c := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.ResolveType(tt.name)
			if got.Tag != tt.want {
				t.Errorf("ResolveType(%q) = %v, want %v", tt.name, got.Tag, tt.want)
			}
		})
	}
}

func TestChecker_BinaryResultType_NumericPromotion(t *testing.T) {
	c := New()
	i32 := &domain.TypeInfo{SourceName: "int", Tag: domain.TagI32}
	dbl := &domain.TypeInfo{SourceName: "double", Tag: domain.TagDouble}

	result, err := c.BinaryResultType("+", i32, dbl, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Tag != domain.TagDouble {
		t.Errorf("expected promoted result double, got %v", result.Tag)
	}
}

func TestChecker_BinaryResultType_StringConcat(t *testing.T) {
	c := New()
	str := &domain.TypeInfo{SourceName: "string", Tag: domain.TagString}
	i32 := &domain.TypeInfo{SourceName: "int", Tag: domain.TagI32}
	result, err := c.BinaryResultType("+", str, i32, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Tag != domain.TagString {
		t.Errorf("expected string result, got %v", result.Tag)
	}
}

func TestChecker_BinaryResultType_DivisionByZeroLiteral(t *testing.T) {
	c := New()
	i32 := &domain.TypeInfo{SourceName: "int", Tag: domain.TagI32}
	_, err := c.BinaryResultType("/", i32, i32, true)
	if err == nil {
		t.Fatalf("expected a division-by-zero error")
	}
}

func TestChecker_BinaryResultType_LogicalRequiresBool(t *testing.T) {
	c := New()
	i32 := &domain.TypeInfo{SourceName: "int", Tag: domain.TagI32}
	_, err := c.BinaryResultType("&&", i32, i32, false)
	if err == nil {
		t.Fatalf("expected an error: && requires bool operands")
	}
}

func TestChecker_PromotionSymmetry(t *testing.T) {
	a := &domain.TypeInfo{Tag: domain.TagI32}
	b := &domain.TypeInfo{Tag: domain.TagDouble}
	if domain.Wider(a, b).Tag != domain.Wider(b, a).Tag {
		t.Fatalf("promotion is not symmetric")
	}
	if domain.Wider(a, b).Tag.PromotionRank() != domain.TagDouble.PromotionRank() {
		t.Fatalf("expected max rank to be double's rank")
	}
}

func TestFormatLiteral(t *testing.T) {
	tests := []struct {
		raw  string
		tag  domain.LLVMTypeTag
		want string
	}{
		{"42", domain.TagI32, "42"},
		{"3", domain.TagDouble, "3.0"},
		{"3.14", domain.TagDouble, "3.14"},
		{"hello", domain.TagString, "hello"},
	}
	for _, tt := range tests {
		got := FormatLiteral(tt.raw, tt.tag)
		if got != tt.want {
			t.Errorf("FormatLiteral(%q, %v) = %q, want %q", tt.raw, tt.tag, got, tt.want)
		}
	}
}
