// Package explain implements §2's "Explain hooks" row and §6.5's
// `explain: bool` query option: a cost-annotated mirror of the algebra
// tree, produced by walking the already-optimized plan rather than by
// instrumenting the evaluator itself (§4.7's iterators stay free of
// any explain-specific bookkeeping on the hot path).
//
// Grounded in internal/sparql/optimizer/optimizer.go's QueryPlan variant
// walk (the teacher's optimizer already recurses the whole plan tree
// once per Optimize call; this package performs the same shape of walk
// a second time, read-only, against this module's algebra.Node tree).
package explain

import (
	"fmt"
	"strings"

	"github.com/aleksaelezovic/oxifuj/internal/algebra"
)

// Node is one entry in the explain tree: an operator label, an estimated
// row-count cost when one is known, and the same structure's children.
type Node struct {
	Op       string
	Detail   string
	EstRows  int64 // -1 when unknown
	Children []*Node
}

// Build walks n and returns its explain tree. estRows, when non-nil, is
// consulted for leaf Bgp/PathNode cost estimates (the same selectivity
// table the optimizer's reordering pass uses); a nil estimator leaves
// every EstRows at -1.
func Build(n algebra.Node, estRows func(algebra.Node) int64) *Node {
	est := func(x algebra.Node) int64 {
		if estRows == nil {
			return -1
		}
		return estRows(x)
	}
	return build(n, est)
}

func build(n algebra.Node, est func(algebra.Node) int64) *Node {
	switch v := n.(type) {
	case *algebra.Bgp:
		return &Node{Op: "Bgp", Detail: fmt.Sprintf("%d pattern(s)", len(v.Patterns)), EstRows: est(n)}
	case *algebra.PathNode:
		return &Node{Op: "PathScan", Detail: pathLabel(v.Path), EstRows: est(n)}
	case *algebra.Join:
		return &Node{Op: "Join", EstRows: est(n), Children: []*Node{build(v.Left, est), build(v.Right, est)}}
	case *algebra.LeftJoin:
		return &Node{Op: "LeftJoin", EstRows: est(n), Children: []*Node{build(v.Left, est), build(v.Right, est)}}
	case *algebra.Minus:
		return &Node{Op: "Minus", EstRows: est(n), Children: []*Node{build(v.Left, est), build(v.Right, est)}}
	case *algebra.Union:
		return &Node{Op: "Union", EstRows: est(n), Children: []*Node{build(v.Left, est), build(v.Right, est)}}
	case *algebra.Filter:
		return &Node{Op: "Filter", EstRows: est(n), Children: []*Node{build(v.Input, est)}}
	case *algebra.Extend:
		return &Node{Op: "Extend", Detail: fmt.Sprintf("BIND ?%s", v.Var), EstRows: est(n), Children: []*Node{build(v.Input, est)}}
	case *algebra.Project:
		return &Node{Op: "Project", Detail: varsLabel(v.Vars), EstRows: est(n), Children: []*Node{build(v.Input, est)}}
	case *algebra.Distinct:
		return &Node{Op: "Distinct", EstRows: est(n), Children: []*Node{build(v.Input, est)}}
	case *algebra.Reduced:
		return &Node{Op: "Reduced", EstRows: est(n), Children: []*Node{build(v.Input, est)}}
	case *algebra.OrderBy:
		return &Node{Op: "OrderBy", Detail: fmt.Sprintf("%d key(s)", len(v.Keys)), EstRows: est(n), Children: []*Node{build(v.Input, est)}}
	case *algebra.Slice:
		return &Node{Op: "Slice", Detail: fmt.Sprintf("offset=%d limit=%d", v.Offset, v.Length), EstRows: est(n), Children: []*Node{build(v.Input, est)}}
	case *algebra.Group:
		return &Node{Op: "Group", Detail: fmt.Sprintf("%d key(s), %d aggregate(s)", len(v.Keys), len(v.Aggregates)), EstRows: est(n), Children: []*Node{build(v.Input, est)}}
	case *algebra.Graph:
		return &Node{Op: "Graph", EstRows: est(n), Children: []*Node{build(v.Input, est)}}
	case *algebra.Service:
		return &Node{Op: "Service", Detail: "unsupported", EstRows: est(n)}
	case *algebra.Table:
		return &Node{Op: "Table", Detail: fmt.Sprintf("%d row(s)", len(v.Bindings)), EstRows: int64(len(v.Bindings))}
	case *algebra.ZeroNode:
		return &Node{Op: "Zero", EstRows: 0}
	case *algebra.UnitNode:
		return &Node{Op: "Unit", EstRows: 1}
	default:
		return &Node{Op: "Unknown", EstRows: -1}
	}
}

func varsLabel(vars []algebra.Var) string {
	names := make([]string, len(vars))
	for i, v := range vars {
		names[i] = string(v)
	}
	return strings.Join(names, ", ")
}

func pathLabel(p algebra.Path) string {
	switch p.(type) {
	case *algebra.ZeroOrMorePath:
		return "ZeroOrMore"
	case *algebra.OneOrMorePath:
		return "OneOrMore"
	case *algebra.NegatedPropertySet:
		return "NegatedPropertySet"
	default:
		return fmt.Sprintf("%T", p)
	}
}

// String renders the explain tree as indented text, one operator per
// line, in the shape query engines conventionally print EXPLAIN output.
func (n *Node) String() string {
	var sb strings.Builder
	n.write(&sb, 0)
	return sb.String()
}

func (n *Node) write(sb *strings.Builder, depth int) {
	sb.WriteString(strings.Repeat("  ", depth))
	sb.WriteString(n.Op)
	if n.Detail != "" {
		sb.WriteString(" (" + n.Detail + ")")
	}
	if n.EstRows >= 0 {
		fmt.Fprintf(sb, " ~%d rows", n.EstRows)
	}
	sb.WriteByte('\n')
	for _, c := range n.Children {
		c.write(sb, depth+1)
	}
}
