package sparql

import (
	"github.com/aleksaelezovic/oxifuj/internal/algebra"
	"github.com/aleksaelezovic/oxifuj/internal/rdf"
)

// parseGroupGraphPattern parses a `{ ... }` group graph pattern into
// the algebra's Join/Union/LeftJoin/Filter/Extend/Graph/Table
// composition (§4.5's "Graph pattern operators"), following the
// standard SPARQL translation: triples within a block join left to
// right, FILTERs in a block apply to everything already joined in
// that block, UNION splits the surrounding block, OPTIONAL attaches a
// LeftJoin to whatever precedes it.
func (p *Parser) parseGroupGraphPattern() (algebra.Node, error) {
	p.expect('{')
	node, err := p.parseGroupGraphPatternBody()
	if err != nil {
		return nil, err
	}
	p.expect('}')
	return node, nil
}

func (p *Parser) parseGroupGraphPatternBody() (algebra.Node, error) {
	var current algebra.Node = &algebra.UnitNode{}
	var pendingFilters []algebra.Expr

	flushFilters := func() {
		for _, f := range pendingFilters {
			current = &algebra.Filter{Input: current, Condition: f}
		}
		pendingFilters = nil
	}

	for {
		p.skipWS()
		if p.pos >= p.length || p.peek() == '}' {
			break
		}

		switch {
		case p.matchKeyword("OPTIONAL"):
			rhs, err := p.parseGroupGraphPattern()
			if err != nil {
				return nil, err
			}
			current = &algebra.LeftJoin{Left: current, Right: rhs}
		case p.matchKeyword("MINUS"):
			rhs, err := p.parseGroupGraphPattern()
			if err != nil {
				return nil, err
			}
			current = &algebra.Minus{Left: current, Right: rhs}
		case p.matchKeyword("GRAPH"):
			name, err := p.parseVarOrIRITerm()
			if err != nil {
				return nil, err
			}
			inner, err := p.parseGroupGraphPattern()
			if err != nil {
				return nil, err
			}
			current = &algebra.Join{Left: current, Right: &algebra.Graph{GraphName: name, Input: inner}}
		case p.matchKeyword("SERVICE"):
			silent := p.matchKeyword("SILENT")
			ep, err := p.parseVarOrIRITerm()
			if err != nil {
				return nil, err
			}
			var epExpr algebra.Expr
			if ep.IsVariable() {
				epExpr = &algebra.VarExpr{Var: ep.Var}
			} else {
				epExpr = &algebra.ConstExpr{Value: ep.Value}
			}
			inner, err := p.parseGroupGraphPattern()
			if err != nil {
				return nil, err
			}
			current = &algebra.Join{Left: current, Right: &algebra.Service{Endpoint: epExpr, Input: inner, Silent: silent}}
		case p.matchKeyword("FILTER"):
			cond, err := p.parseFilterConstraint()
			if err != nil {
				return nil, err
			}
			pendingFilters = append(pendingFilters, cond)
		case p.matchKeyword("BIND"):
			p.expect('(')
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			p.expectKeyword("AS")
			v, err := p.parseVarName()
			if err != nil {
				return nil, err
			}
			p.expect(')')
			flushFilters()
			current = &algebra.Extend{Input: current, Var: v, Expr: e}
		case p.matchKeyword("VALUES"):
			tbl, err := p.parseValuesClause()
			if err != nil {
				return nil, err
			}
			flushFilters()
			current = &algebra.Join{Left: current, Right: tbl}
		case p.peek() == '{':
			// A bare nested group is either the left side of a UNION
			// or just a sub-group joined in.
			grp, err := p.parseGroupGraphPattern()
			if err != nil {
				return nil, err
			}
			if p.matchKeyword("UNION") {
				rhs, err := p.parseUnionRHS()
				if err != nil {
					return nil, err
				}
				grp = &algebra.Union{Left: grp, Right: rhs}
			}
			flushFilters()
			current = &algebra.Join{Left: current, Right: grp}
		default:
			block, err := p.parseTriplesBlock()
			if err != nil {
				return nil, err
			}
			flushFilters()
			current = &algebra.Join{Left: current, Right: block}
		}
	}

	flushFilters()
	return current, nil
}

// parseUnionRHS parses the group(s) following UNION, chaining further
// UNIONs (`{A} UNION {B} UNION {C}` is right-associated here, which is
// semantically equivalent to any other association since Union is
// commutative/associative over solution concatenation).
func (p *Parser) parseUnionRHS() (algebra.Node, error) {
	rhs, err := p.parseGroupGraphPattern()
	if err != nil {
		return nil, err
	}
	if p.matchKeyword("UNION") {
		more, err := p.parseUnionRHS()
		if err != nil {
			return nil, err
		}
		return &algebra.Union{Left: rhs, Right: more}, nil
	}
	return rhs, nil
}

// parseTriplesBlock parses a run of `.`-separated triple patterns (and
// property-path triples) up to the next keyword/brace, combining plain
// triples into one Bgp and interleaving PathNodes for path predicates,
// joined together in encounter order.
func (p *Parser) parseTriplesBlock() (algebra.Node, error) {
	var patterns []algebra.TriplePattern
	var node algebra.Node

	flushBgp := func() {
		if len(patterns) == 0 {
			return
		}
		bgp := &algebra.Bgp{Patterns: patterns}
		patterns = nil
		if node == nil {
			node = bgp
		} else {
			node = &algebra.Join{Left: node, Right: bgp}
		}
	}

	for {
		p.skipWS()
		if p.pos >= p.length {
			break
		}
		if p.isBlockTerminator() {
			break
		}
		subj, err := p.parseTermOrVar()
		if err != nil {
			return nil, err
		}
		for {
			pred, path, err := p.parsePredicateOrPath()
			if err != nil {
				return nil, err
			}
			obj, err := p.parseTermOrVar()
			if err != nil {
				return nil, err
			}
			if path == nil {
				patterns = append(patterns, algebra.TriplePattern{Subject: subj, Predicate: pred, Object: obj})
			} else {
				flushBgp()
				pathNode := &algebra.PathNode{Start: subj, End: obj, Path: path}
				if node == nil {
					node = pathNode
				} else {
					node = &algebra.Join{Left: node, Right: pathNode}
				}
			}
			if !p.matchByte(';') {
				break
			}
			// predicate-object list continuation: same subject, next
			// predicate/object pair.
		}
		if !p.matchByte(',') {
			p.skipDot()
		} else {
			// object-list continuation handled by looping back to the
			// same subject is not re-entered here since `,` only
			// appears within the inner loop in full SPARQL; treat a
			// stray ',' defensively as a statement separator.
			p.skipDot()
		}
	}
	flushBgp()
	if node == nil {
		return &algebra.UnitNode{}, nil
	}
	return node, nil
}

func (p *Parser) isBlockTerminator() bool {
	if p.peek() == '}' {
		return true
	}
	for _, kw := range []string{"OPTIONAL", "MINUS", "GRAPH", "SERVICE", "FILTER", "BIND", "VALUES", "UNION"} {
		if p.peekKeyword(kw) {
			return true
		}
	}
	return false
}

// parseFilterConstraint parses FILTER's argument: either a parenthesized
// expression or a bare built-in call (`FILTER EXISTS {...}`, `FILTER
// isIRI(?x)` are both valid without outer parens in full SPARQL). Bare
// EXISTS/NOT EXISTS are handled here; anything else is read by
// parseExpr, which takes a parenthesized expression and a bare call alike.
func (p *Parser) parseFilterConstraint() (algebra.Expr, error) {
	p.skipWS()
	if p.matchKeyword("NOT") {
		p.expectKeyword("EXISTS")
		pat, err := p.parseGroupGraphPattern()
		if err != nil {
			return nil, err
		}
		return &algebra.ExistsExpr{Pattern: pat, Negate: true}, nil
	}
	if p.matchKeyword("EXISTS") {
		pat, err := p.parseGroupGraphPattern()
		if err != nil {
			return nil, err
		}
		return &algebra.ExistsExpr{Pattern: pat}, nil
	}
	return p.parseExpr()
}

// parseValuesClause parses `VALUES (?x ?y) { (v1 v2) (v3 v4) }` or the
// single-variable short form `VALUES ?x { v1 v2 }`.
func (p *Parser) parseValuesClause() (*algebra.Table, error) {
	var vars []algebra.Var
	multi := false
	if p.matchByte('(') {
		multi = true
		for {
			v, ok := p.tryParseVarName()
			if !ok {
				break
			}
			vars = append(vars, v)
		}
		p.expect(')')
	} else {
		v, err := p.parseVarName()
		if err != nil {
			return nil, err
		}
		vars = []algebra.Var{v}
	}

	p.expect('{')
	var rows []map[algebra.Var]algebra.Term
	for {
		p.skipWS()
		if p.peek() == '}' {
			break
		}
		row := map[algebra.Var]algebra.Term{}
		if multi {
			p.expect('(')
			for _, v := range vars {
				t, err := p.parseValuesTerm()
				if err != nil {
					return nil, err
				}
				if t != nil {
					row[v] = algebra.Bound(t)
				}
			}
			p.expect(')')
		} else {
			t, err := p.parseValuesTerm()
			if err != nil {
				return nil, err
			}
			if t != nil {
				row[vars[0]] = algebra.Bound(t)
			}
		}
		rows = append(rows, row)
	}
	p.expect('}')
	return &algebra.Table{Vars: vars, Bindings: rows}, nil
}

// parseValuesTerm parses one VALUES cell, returning nil for UNDEF.
func (p *Parser) parseValuesTerm() (rdf.Term, error) {
	p.skipWS()
	if p.matchKeyword("UNDEF") {
		return nil, nil
	}
	return p.parseBoundTerm()
}
