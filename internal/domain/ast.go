package domain

// NodeKind is the closed set of AST variants (design note: a tagged union
// read as one dense struct, not a visitor hierarchy — every stage switches
// on Kind instead of dispatching through an Accept method).
type NodeKind int

const (
	NodeProgram NodeKind = iota

	// Literals
	NodeIntLiteral
	NodeFloatLiteral
	NodeStringLiteral
	NodeBinaryLiteral
	NodeBooleanLiteral
	NodeNullLiteral
	NodeArrayLiteral

	NodeIdentifier
	NodeBinaryExpr
	NodeUnaryExpr

	NodeVariableDeclaration
	NodeAssignmentDeclaration
	NodeFunctionDeclaration
	NodeFunctionArgs
	NodeCallExpr
	NodeReturnStatement

	NodeIfStatement
	NodeElifStatement
	NodeElseStatement
	NodeWhileStatement
	NodeForRangeStatement

	NodeImportStatement
	NodeExternStatement

	NodeCastExpr
	NodeIndexAccess

	NodeStructStatement
	NodeStructExpr
	NodeStructPAssignment
	NodeArrowExpression
)

var nodeKindNames = map[NodeKind]string{
	NodeProgram: "Program", NodeIntLiteral: "IntLiteral", NodeFloatLiteral: "FloatLiteral",
	NodeStringLiteral: "StringLiteral", NodeBinaryLiteral: "BinaryLiteral",
	NodeBooleanLiteral: "BooleanLiteral", NodeNullLiteral: "NullLiteral",
	NodeArrayLiteral: "ArrayLiteral", NodeIdentifier: "Identifier", NodeBinaryExpr: "BinaryExpr",
	NodeUnaryExpr: "UnaryExpr", NodeVariableDeclaration: "VariableDeclaration",
	NodeAssignmentDeclaration: "AssignmentDeclaration", NodeFunctionDeclaration: "FunctionDeclaration",
	NodeFunctionArgs: "FunctionArgs", NodeCallExpr: "CallExpr", NodeReturnStatement: "ReturnStatement",
	NodeIfStatement: "IfStatement", NodeElifStatement: "ElifStatement", NodeElseStatement: "ElseStatement",
	NodeWhileStatement: "WhileStatement", NodeForRangeStatement: "ForRangeStatement",
	NodeImportStatement: "ImportStatement", NodeExternStatement: "ExternStatement",
	NodeCastExpr: "CastExpr", NodeIndexAccess: "IndexAccess", NodeStructStatement: "StructStatement",
	NodeStructExpr: "StructExpr", NodeStructPAssignment: "StructPAssignment",
	NodeArrowExpression: "ArrowExpression",
}

func (k NodeKind) String() string {
	if s, ok := nodeKindNames[k]; ok {
		return s
	}
	return "Unknown"
}

// NodeRef is a stable index into an Arena. The zero value refers to slot 0
// (the arena always reserves slot 0 for an invalid/sentinel node) so a
// missing-optional-child field can default to NodeRef(0) and be tested with
// Arena.Valid.
type NodeRef int

const InvalidRef NodeRef = 0

// Param is a function parameter: a name, its declared source type, and an
// optional default-value expression (NodeRef(0) when absent).
type Param struct {
	Name       string
	Type       string
	Default    NodeRef
	HasDefault bool
}

// StructField is one field of a struct declaration.
type StructField struct {
	Name string
	Type string
}

// Node is the single tagged-union struct every AST variant is represented
// as. Only the fields relevant to Kind are populated; the rest stay zero.
// This mirrors spec.md §3's explicit preference for "a tagged variant
// instead of an inheritance/interface hierarchy".
type Node struct {
	Kind NodeKind
	Loc  Location

	// Resolved static type, filled in by the semantic/type-check stage.
	// Left nil until then.
	Type *TypeInfo

	// Literals
	IntValue    int64
	FloatValue  float64
	StringValue string
	BoolValue   bool

	// Identifier / names
	Name string

	// Generic single/双-child expression slots
	Left  NodeRef
	Right NodeRef
	Body  NodeRef // function declaration's body block (unary and cast operands use Right)

	Operator string // binary/unary operator lexeme

	// Ordered child lists (Program body, block statements, call args, array
	// elements, function args, struct fields' initializers)
	Children []NodeRef

	// Function declaration / call
	Params     []Param
	ReturnType string // may be a "|"-joined union type, e.g. "int|float"
	IsVariadic bool

	// Variable / assignment declarations
	IsMutable bool
	DeclType  string // declared type annotation, may be empty (inferred)

	// If / elif / else chain
	Condition  NodeRef
	Then       NodeRef // block body
	ElifChain  []NodeRef
	ElseBranch NodeRef

	// While
	// Condition + Then reused above

	// For-range: `for <Name> from <RangeStart> .. | ... <RangeEnd> { <Then> }`
	RangeStart     NodeRef
	RangeEnd       NodeRef
	RangeInclusive bool
	Step           NodeRef // optional explicit step, InvalidRef when absent

	// Import / extern
	ModulePath string
	ImportedAs string
	ExternLang string // e.g. "C"

	// Struct
	Fields []StructField

	// Index access / arrow / struct field access
	Index NodeRef
	Field string
}

// Arena owns every Node allocated while compiling one translation unit.
// Children are referenced by NodeRef (an index into Nodes), never by Go
// pointer, which rules out reference cycles by construction and gives the
// --debug report a trivial place to read allocation counts from.
type Arena struct {
	Nodes []Node

	// bookkeeping retained from the teacher's pooled memory manager, for
	// the --debug memory report.
	NodesAllocated  int
	TotalMemoryUsed int64
}

// NewArena returns an Arena with slot 0 reserved as the sentinel
// "no node" entry, so the zero value of NodeRef is always invalid.
func NewArena() *Arena {
	a := &Arena{}
	a.Nodes = append(a.Nodes, Node{Kind: NodeKind(-1)})
	return a
}

// New allocates n in the arena and returns its stable reference.
func (a *Arena) New(n Node) NodeRef {
	a.Nodes = append(a.Nodes, n)
	a.NodesAllocated++
	a.TotalMemoryUsed += nodeSizeEstimate
	return NodeRef(len(a.Nodes) - 1)
}

// nodeSizeEstimate is a rough per-node byte cost used only for the
// human-facing --debug memory report; it has no effect on compilation.
const nodeSizeEstimate = 256

// Get dereferences ref. Callers must check Valid first for optional refs.
func (a *Arena) Get(ref NodeRef) *Node {
	return &a.Nodes[ref]
}

// Valid reports whether ref points at a real, allocated node.
func (a *Arena) Valid(ref NodeRef) bool {
	return ref != InvalidRef && int(ref) < len(a.Nodes)
}

// Stats mirrors the teacher's MemoryManager.GetStats() contract.
type MemoryStats struct {
	NodesAllocated  int
	TotalMemoryUsed int64
}

func (a *Arena) Stats() MemoryStats {
	return MemoryStats{NodesAllocated: a.NodesAllocated, TotalMemoryUsed: a.TotalMemoryUsed}
}
