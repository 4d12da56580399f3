package algebra

// Node is a graph-pattern or solution-modifier operator in the algebra
// tree (§4.5's "Graph pattern operators" and "Solution modifiers").
// Leaves are Bgp and PathNode; every other variant wraps one or two
// child Nodes.
type Node interface {
	algebraNode()
}

// Bgp is a basic graph pattern: a conjunction of triple patterns
// evaluated against one graph (the active graph at evaluation time,
// either the default graph or whatever GraphNode selects).
type Bgp struct {
	Patterns []TriplePattern
}

// TriplePattern is one (subject, predicate, object) pattern within a Bgp.
type TriplePattern struct {
	Subject, Predicate, Object Term
}

// PathNode matches Start -Path-> End, generalizing a TriplePattern's
// predicate position to a property path (§4.5/§4.6 "Property path
// rewriting").
type PathNode struct {
	Start, End Term
	Path       Path
}

// Join is the natural (inner) join of Left and Right over shared
// variables.
type Join struct{ Left, Right Node }

// LeftJoin is SPARQL's OPTIONAL: every Left solution is kept, extended
// with a compatible Right solution when one exists, subject to Filter.
type LeftJoin struct {
	Left, Right Node
	Filter      Expr // nil if the OPTIONAL carries no extra FILTER
}

// Minus removes from Left any solution compatible with some Right
// solution over their shared variables (SPARQL MINUS).
type Minus struct{ Left, Right Node }

// Union is SPARQL's UNION: the concatenation of Left's and Right's
// solutions.
type Union struct{ Left, Right Node }

// Filter keeps only Input solutions for which Condition evaluates to
// an effective boolean true.
type Filter struct {
	Input     Node
	Condition Expr
}

// Extend binds the result of Expr to Var in every Input solution (BIND).
type Extend struct {
	Input Node
	Var   Var
	Expr  Expr
}

// Project restricts each Input solution to Vars, in the given order
// (the SELECT clause's variable list).
type Project struct {
	Input Node
	Vars  []Var
}

// Distinct removes duplicate solutions from Input, comparing full
// solutions mapping-equal.
type Distinct struct{ Input Node }

// Reduced permits (but does not require) duplicate elimination (§9's
// Open Question: implemented as a no-op pass-through, since SPARQL
// leaves REDUCED's exact elimination behavior unspecified and "no
// elimination" is always a conforming reduction).
type Reduced struct{ Input Node }

// SortKey is one ORDER BY clause entry.
type SortKey struct {
	Expr       Expr
	Descending bool
}

// OrderBy sorts Input's solutions by Keys, in order, each ascending
// unless its SortKey says otherwise.
type OrderBy struct {
	Input Node
	Keys  []SortKey
}

// Slice applies OFFSET/LIMIT to Input. A negative Length means "no
// LIMIT".
type Slice struct {
	Input  Node
	Offset int64
	Length int64
}

// Group partitions Input's solutions by Keys and computes Aggregates
// per partition (SPARQL GROUP BY / aggregate projection).
type Group struct {
	Input      Node
	Keys       []Expr
	Aggregates []AggregateBinding
}

// Graph restricts Input's evaluation to the named graph bound by
// GraphName (a bound term or a variable ranging over every named
// graph — SPARQL's GRAPH block).
type Graph struct {
	GraphName Term
	Input     Node
}

// Service represents SPARQL 1.1's SERVICE federation block. The
// evaluator treats an unreachable or unsupported Endpoint as an
// UnsupportedFeature error (§7) rather than a silent empty result,
// per REDESIGN FLAG "fail loud on federation" — this store has no
// network client of its own, so Endpoint is always rejected at
// evaluation time; the node exists so the parser and optimizer can
// recognize and report the construct distinctly from a parse error.
type Service struct {
	Endpoint Expr
	Input    Node
	Silent   bool
}

// Table is a leaf of literal solutions, used for VALUES clauses.
type Table struct {
	Vars     []Var
	Bindings []map[Var]Term
}

// ZeroNode is the empty solution set: zero solutions, zero variables.
// It is the optimizer's canonical rewrite target for a Bgp that
// contains a pattern proven impossible at plan time.
type ZeroNode struct{}

// UnitNode is the single empty-solution table: exactly one solution
// binding no variables. It is the identity element for Join, and the
// base case for a Bgp with no patterns.
type UnitNode struct{}

func (*Bgp) algebraNode()      {}
func (*PathNode) algebraNode() {}
func (*Join) algebraNode()     {}
func (*LeftJoin) algebraNode() {}
func (*Minus) algebraNode()    {}
func (*Union) algebraNode()    {}
func (*Filter) algebraNode()   {}
func (*Extend) algebraNode()   {}
func (*Project) algebraNode()  {}
func (*Distinct) algebraNode() {}
func (*Reduced) algebraNode()  {}
func (*OrderBy) algebraNode()  {}
func (*Slice) algebraNode()    {}
func (*Group) algebraNode()    {}
func (*Graph) algebraNode()    {}
func (*Service) algebraNode()  {}
func (*Table) algebraNode()    {}
func (*ZeroNode) algebraNode() {}
func (*UnitNode) algebraNode() {}
