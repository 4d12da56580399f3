package sparql

import (
	"github.com/aleksaelezovic/oxifuj/internal/algebra"
	"github.com/aleksaelezovic/oxifuj/internal/rdf"
)

// parsePredicateOrPath parses a triple pattern's predicate position: a
// variable, `a` (rdf:type), or a property path expression (§4.5/§4.6).
// A path that reduces to a single forward IRI is returned as an
// ordinary bound Term so the caller can fold it into an plain
// TriplePattern instead of paying for a PathNode/BFS at evaluation
// time — the same shape the optimizer's property-path decomposition
// pass (internal/optimizer/path.go) produces for fixed-length paths.
func (p *Parser) parsePredicateOrPath() (algebra.Term, algebra.Path, error) {
	p.skipWS()
	if v, ok := p.tryParseVarName(); ok {
		return algebra.Variable(v), nil, nil
	}
	save := p.pos
	if p.pos < p.length && p.input[p.pos] == 'a' {
		end := p.pos + 1
		if end >= p.length || !isNameChar(p.input[end]) {
			p.pos = end
			return algebra.Bound(rdf.RDFType), nil, nil
		}
	}
	p.pos = save

	path, err := p.parsePathAlternative()
	if err != nil {
		return algebra.Term{}, nil, err
	}
	if pp, ok := path.(*algebra.PredicatePath); ok {
		return algebra.Bound(pp.IRI), nil, nil
	}
	return algebra.Term{}, path, nil
}

func (p *Parser) parsePathAlternative() (algebra.Path, error) {
	left, err := p.parsePathSequence()
	if err != nil {
		return nil, err
	}
	for p.matchByte('|') {
		right, err := p.parsePathSequence()
		if err != nil {
			return nil, err
		}
		left = &algebra.AlternativePath{Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parsePathSequence() (algebra.Path, error) {
	left, err := p.parsePathPostfix()
	if err != nil {
		return nil, err
	}
	for p.matchByte('/') {
		right, err := p.parsePathPostfix()
		if err != nil {
			return nil, err
		}
		left = &algebra.SequencePath{Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parsePathPostfix() (algebra.Path, error) {
	inner, err := p.parsePathPrimary()
	if err != nil {
		return nil, err
	}
	for {
		p.skipWS()
		if p.pos >= p.length {
			return inner, nil
		}
		switch p.input[p.pos] {
		case '*':
			p.pos++
			inner = &algebra.ZeroOrMorePath{Inner: inner}
		case '+':
			p.pos++
			inner = &algebra.OneOrMorePath{Inner: inner}
		case '?':
			// A '?' directly followed by a name character is the
			// sigil of the next variable (`foaf:name ?name`), not
			// the ZeroOrOne postfix.
			if p.pos+1 < p.length && isNameChar(p.input[p.pos+1]) {
				return inner, nil
			}
			p.pos++
			inner = &algebra.ZeroOrOnePath{Inner: inner}
		default:
			return inner, nil
		}
	}
}

func (p *Parser) parsePathPrimary() (algebra.Path, error) {
	p.skipWS()
	if p.matchByte('^') {
		inner, err := p.parsePathPrimary()
		if err != nil {
			return nil, err
		}
		return &algebra.InversePath{Inner: inner}, nil
	}
	if p.matchByte('(') {
		inner, err := p.parsePathAlternative()
		if err != nil {
			return nil, err
		}
		p.expect(')')
		return inner, nil
	}
	if p.matchByte('!') {
		return p.parseNegatedPropertySet()
	}
	iri, err := p.parseIRITerm()
	if err != nil {
		return nil, err
	}
	nn, ok := iri.(*rdf.NamedNode)
	if !ok {
		return nil, p.err("path primary must be an IRI")
	}
	return &algebra.PredicatePath{IRI: nn}, nil
}

func (p *Parser) parseNegatedPropertySet() (algebra.Path, error) {
	nps := &algebra.NegatedPropertySet{}
	parseOne := func() error {
		inverse := p.matchByte('^')
		iri, err := p.parseIRITerm()
		if err != nil {
			return err
		}
		nn, ok := iri.(*rdf.NamedNode)
		if !ok {
			return p.err("negated property set member must be an IRI")
		}
		if inverse {
			nps.Reverse = append(nps.Reverse, nn)
		} else {
			nps.Forward = append(nps.Forward, nn)
		}
		return nil
	}
	if p.matchByte('(') {
		for {
			if err := parseOne(); err != nil {
				return nil, err
			}
			if !p.matchByte('|') {
				break
			}
		}
		p.expect(')')
	} else {
		if err := parseOne(); err != nil {
			return nil, err
		}
	}
	return nps, nil
}
