package algebra

import "github.com/aleksaelezovic/oxifuj/internal/rdf"

// Query is a parsed SPARQL query: one of the four forms below, plus the
// dataset clauses (FROM / FROM NAMED) that select which graphs the
// query's Bgp/Graph nodes range over.
type Query struct {
	Form         QueryForm
	Default      []rdf.Term // FROM graphs, merged into one default graph
	Named        []rdf.Term // FROM NAMED graphs
	Where        Node
	SelectVars   []Var       // SELECT only; empty+Star means "SELECT *"
	Star         bool        // SELECT *
	ConstructTpl []TriplePattern
	DescribeVars []Term // DESCRIBE targets: bound IRIs or variables
}

// QueryForm enumerates the four SPARQL query forms (§4.5).
type QueryForm int

const (
	FormSelect QueryForm = iota
	FormConstruct
	FormAsk
	FormDescribe
)

// Update is one SPARQL Update operation (§4.8). Exactly one field
// besides Using/With is populated, matching Op.
type Update struct {
	Op UpdateOp

	// INSERT DATA / DELETE DATA
	Quads []QuadPattern

	// DELETE/INSERT ... WHERE and DELETE-INSERT-WHERE
	DeleteTpl []QuadPattern
	InsertTpl []QuadPattern
	Using     []rdf.Term // USING (NAMED) graphs restricting Where
	UsingNamed []rdf.Term
	With      rdf.Term // WITH <graph>: default graph for templates lacking GRAPH
	Where     Node

	// LOAD
	LoadSource rdf.Term
	LoadInto   rdf.Term // nil means the default graph
	Silent     bool

	// CLEAR / DROP / CREATE
	GraphRef GraphRef

	// COPY / MOVE / ADD
	From, To GraphRef
}

// UpdateOp enumerates SPARQL Update's operation kinds.
type UpdateOp int

const (
	OpInsertData UpdateOp = iota
	OpDeleteData
	OpDeleteInsert
	OpLoad
	OpClear
	OpDrop
	OpCreate
	OpCopy
	OpMove
	OpAdd
)

// QuadPattern is a (subject, predicate, object, graph) pattern used in
// Update templates and INSERT/DELETE DATA blocks; Graph is nil for the
// default graph. Unlike algebra.TriplePattern's Term, a QuadPattern's
// positions may themselves be variables only inside DELETE/INSERT
// WHERE templates — INSERT DATA/DELETE DATA require every position
// bound, which the parser enforces, not this type.
type QuadPattern struct {
	Subject, Predicate, Object, Graph Term
}

// GraphRef names which graph(s) a CLEAR/DROP/CREATE/COPY/MOVE/ADD
// targets.
type GraphRef struct {
	Kind GraphRefKind
	Name rdf.Term // populated only when Kind == GraphRefNamed
}

// GraphRefKind enumerates CLEAR/DROP/CREATE/COPY/MOVE/ADD's graph
// reference forms.
type GraphRefKind int

const (
	GraphRefNamed GraphRefKind = iota
	GraphRefDefault
	GraphRefNamedKeyword // the `NAMED` keyword: every named graph, collectively
	GraphRefAll
)
