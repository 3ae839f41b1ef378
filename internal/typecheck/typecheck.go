// Package typecheck is the standalone type-checking component the
// semantic analyzer consults for type mapping, promotion, operand
// compatibility, and binary-operator result typing.
package typecheck

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/FernandoTheDev/farpy-sub000/internal/domain"
)

// Checker has no internal state today (the mapping/promotion tables in
// internal/domain are pure functions) but is kept as an owned
// collaborator, per the design note to replace process-wide singletons
// with explicit collaborators threaded through the analyzer.
type Checker struct{}

func New() *Checker { return &Checker{} }

// ResolveType maps a source-level type annotation to a TypeInfo. A
// "T|U" union spelling resolves to its first alternative (the semantic
// analyzer keeps the full union string on the declaration node itself;
// the type checker only needs one concrete IR-facing type per value).
func (c *Checker) ResolveType(sourceType string) *domain.TypeInfo {
	first := sourceType
	if idx := strings.IndexByte(sourceType, '|'); idx >= 0 {
		first = sourceType[:idx]
	}
	return domain.ResolveSourceType(strings.TrimSpace(first))
}

// Compatible reports whether a value of type `from` can be used where
// `to` is expected, per the compatibility rules: reflexive; any numeric
// with any numeric; bool with numerics and string; string with
// char/const-char/binary-ish string types; `id`/ptr is compatible with
// anything.
func (c *Checker) Compatible(to, from *domain.TypeInfo) bool {
	if to == nil || from == nil {
		return false
	}
	if to.Tag == from.Tag {
		return true
	}
	if to.Tag == domain.TagPtr || from.Tag == domain.TagPtr {
		return true
	}
	if to.Numeric() && from.Numeric() {
		return true
	}
	if to.Tag == domain.TagI1 && (from.Numeric() || from.Tag == domain.TagString) {
		return true
	}
	if from.Tag == domain.TagI1 && (to.Numeric() || to.Tag == domain.TagString) {
		return true
	}
	if to.Tag == domain.TagString && from.Tag == domain.TagString {
		return true
	}
	return false
}

// BinaryResultType implements the binary-operator typing rules from the
// type-checker component design. zeroLiteral is true when the right
// operand is a literal numeric zero (used to flag division/modulo by
// literal zero at type-check time).
func (c *Checker) BinaryResultType(op string, left, right *domain.TypeInfo, zeroLiteral bool) (*domain.TypeInfo, error) {
	switch op {
	case "+":
		if left.Tag == domain.TagString || right.Tag == domain.TagString {
			return &domain.TypeInfo{SourceName: "string", Tag: domain.TagString}, nil
		}
		if !left.Numeric() || !right.Numeric() {
			return nil, fmt.Errorf("operator '+' requires numeric or string operands, got %s and %s", left, right)
		}
		return domain.Wider(left, right), nil
	case "-", "*", "/":
		if !left.Numeric() || !right.Numeric() {
			return nil, fmt.Errorf("operator '%s' requires two numeric operands, got %s and %s", op, left, right)
		}
		if op == "/" && zeroLiteral {
			return nil, fmt.Errorf("division by zero")
		}
		return domain.Wider(left, right), nil
	case "%", "**":
		if !left.Numeric() || !right.Numeric() {
			return nil, fmt.Errorf("operator '%s' requires two numeric operands, got %s and %s", op, left, right)
		}
		if op == "%" && zeroLiteral {
			return nil, fmt.Errorf("modulo by zero")
		}
		return domain.Wider(left, right), nil
	case "==", "!=":
		if !c.Compatible(left, right) && !c.Compatible(right, left) {
			return nil, fmt.Errorf("operator '%s' requires compatible operand types, got %s and %s", op, left, right)
		}
		return &domain.TypeInfo{SourceName: "bool", Tag: domain.TagI1}, nil
	case "<", "<=", ">", ">=":
		bothNumeric := left.Numeric() && right.Numeric()
		bothString := left.Tag == domain.TagString && right.Tag == domain.TagString
		if !bothNumeric && !bothString {
			return nil, fmt.Errorf("operator '%s' requires two numerics or two strings, got %s and %s", op, left, right)
		}
		return &domain.TypeInfo{SourceName: "bool", Tag: domain.TagI1}, nil
	case "&&", "||":
		if left.Tag != domain.TagI1 || right.Tag != domain.TagI1 {
			return nil, fmt.Errorf("operator '%s' requires two bools, got %s and %s", op, left, right)
		}
		return &domain.TypeInfo{SourceName: "bool", Tag: domain.TagI1}, nil
	default:
		return nil, fmt.Errorf("unknown operator '%s'", op)
	}
}

// UnaryResultType types a unary expression per the prefix operator set
// (-, !, *, &).
func (c *Checker) UnaryResultType(op string, operand *domain.TypeInfo) (*domain.TypeInfo, error) {
	switch op {
	case "-":
		if !operand.Numeric() {
			return nil, fmt.Errorf("unary '-' requires a numeric operand, got %s", operand)
		}
		return operand, nil
	case "!":
		if operand.Tag != domain.TagI1 {
			return nil, fmt.Errorf("unary '!' requires a bool operand, got %s", operand)
		}
		return operand, nil
	case "*", "&":
		return &domain.TypeInfo{SourceName: "ptr", Tag: domain.TagPtr}, nil
	default:
		return nil, fmt.Errorf("unknown unary operator '%s'", op)
	}
}

// FormatLiteral renders a literal's stringified form as the textual IR
// form appropriate to its target LLVM type: integers floor to integer,
// floats get a trailing ".0" if missing a decimal point, strings and
// pointers pass through unchanged.
func FormatLiteral(raw string, tag domain.LLVMTypeTag) string {
	switch tag {
	case domain.TagI1, domain.TagI32, domain.TagI64, domain.TagI128:
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return strconv.FormatInt(int64(math.Floor(f)), 10)
		}
		return raw
	case domain.TagDouble:
		if !strings.ContainsAny(raw, ".eE") {
			return raw + ".0"
		}
		return raw
	default:
		return raw
	}
}
