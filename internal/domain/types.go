package domain

import "fmt"

// LLVMTypeTag is the closed set of concrete LLVM types the code generator
// ever emits. Every source type resolves to exactly one of these before
// reaching internal/codegen.
type LLVMTypeTag int

const (
	TagI1 LLVMTypeTag = iota
	TagI32
	TagI64
	TagI128
	TagDouble
	TagString
	TagPtr
	TagVoid
)

var llvmTagNames = map[LLVMTypeTag]string{
	TagI1: "i1", TagI32: "i32", TagI64: "i64", TagI128: "i128",
	TagDouble: "double", TagString: "i8*", TagPtr: "ptr", TagVoid: "void",
}

func (t LLVMTypeTag) String() string {
	if s, ok := llvmTagNames[t]; ok {
		return s
	}
	return "unknown"
}

// Alignment is the byte alignment the code generator uses in alloca/load/
// store instructions for each concrete type.
func (t LLVMTypeTag) Alignment() int {
	switch t {
	case TagI1:
		return 1
	case TagI32:
		return 4
	case TagI64, TagI128, TagPtr, TagString:
		return 8
	case TagDouble:
		return 8
	default:
		return 0
	}
}

// PromotionRank orders types for the implicit-widening rule used when a
// binary operator's two operands disagree: the narrower operand is
// promoted to the wider one's type before the op is emitted.
//
//	bool              -> rank 1
//	int / i32 / binary -> rank 2
//	i64 / i128 / long -> rank 3
//	float / double    -> rank 5 (there is no separate float tag: float
//	                     resolves to TagDouble)
func (t LLVMTypeTag) PromotionRank() int {
	switch t {
	case TagI1:
		return 1
	case TagI32:
		return 2
	case TagI64, TagI128:
		return 3
	case TagDouble:
		return 5
	default:
		return 0
	}
}

// TypeInfo is the resolved type attached to every expression Node once the
// semantic/type-check stage has run: a source-level name (as it appeared,
// or was inferred, in the .fp source) plus the concrete LLVM tag it maps
// to for code generation.
type TypeInfo struct {
	SourceName string
	Tag        LLVMTypeTag
	IsArray    bool
	ElemType   *TypeInfo // non-nil when IsArray
	StructName string    // non-empty for struct-typed values
}

func (ti *TypeInfo) String() string {
	if ti == nil {
		return "<untyped>"
	}
	if ti.IsArray {
		return fmt.Sprintf("[]%s", ti.ElemType.String())
	}
	if ti.StructName != "" {
		return ti.StructName
	}
	return ti.SourceName
}

// sourceTypeTags maps every source-level type spelling accepted by the
// parser's type annotations to its LLVM tag. "long" and "i128" are
// synonyms, as are "int"/"i32"/"binary" and "bool"/"boolean".
var sourceTypeTags = map[string]LLVMTypeTag{
	"bool": TagI1, "boolean": TagI1,
	"int": TagI32, "i32": TagI32, "binary": TagI32,
	"i64":  TagI64,
	"i128": TagI128, "long": TagI128,
	"float": TagDouble, "double": TagDouble,
	"string": TagString,
	"ptr":    TagPtr,
	"void":   TagVoid,
}

// ResolveSourceType maps a type annotation spelled in .fp source (int,
// float, string, bool, i64, i128, void, ...) to a TypeInfo. Unknown names
// are assumed to be struct names and tagged TagPtr.
func ResolveSourceType(name string) *TypeInfo {
	if tag, ok := sourceTypeTags[name]; ok {
		return &TypeInfo{SourceName: name, Tag: tag}
	}
	return &TypeInfo{SourceName: name, Tag: TagPtr, StructName: name}
}

// Numeric reports whether a type participates in arithmetic promotion.
func (ti *TypeInfo) Numeric() bool {
	if ti == nil {
		return false
	}
	switch ti.Tag {
	case TagI1, TagI32, TagI64, TagI128, TagDouble:
		return true
	default:
		return false
	}
}

// Wider returns whichever of a, b has the higher PromotionRank; ties keep a.
func Wider(a, b *TypeInfo) *TypeInfo {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if b.Tag.PromotionRank() > a.Tag.PromotionRank() {
		return b
	}
	return a
}

// CompilationOptions holds the CLI-configurable knobs for one compilation,
// threaded explicitly through application.Pipeline rather than
// read from globals, per the "explicit collaborators over singletons"
// design note.
type CompilationOptions struct {
	InputPath      string
	OutputPath     string
	EmitLLVMIR     bool
	ASTJSONPath    string // output path for --ast-json (the CLI defaults it to ast.json)
	RunOptimizer   bool
	RunDeadCode    bool
	Debug          bool
	TargetTriple   string
}
