package sparql

import (
	"strconv"
	"strings"

	"github.com/aleksaelezovic/oxifuj/internal/algebra"
	"github.com/aleksaelezovic/oxifuj/internal/rdf"
)

// tryParseVarName consumes a `?name` or `$name` token if present.
func (p *Parser) tryParseVarName() (algebra.Var, bool) {
	p.skipWS()
	if p.pos >= p.length || (p.input[p.pos] != '?' && p.input[p.pos] != '$') {
		return "", false
	}
	p.pos++
	start := p.pos
	for p.pos < p.length && isNameChar(p.input[p.pos]) {
		p.pos++
	}
	if p.pos == start {
		return "", false
	}
	return algebra.Var(p.input[start:p.pos]), true
}

func (p *Parser) parseVarName() (algebra.Var, error) {
	v, ok := p.tryParseVarName()
	if !ok {
		return "", p.err("expected a variable")
	}
	return v, nil
}

// parseTriplePattern parses one `subject predicate object` triple
// pattern (the trailing '.' is left for the caller to consume).
func (p *Parser) parseTriplePattern() (algebra.TriplePattern, error) {
	s, err := p.parseTermOrVar()
	if err != nil {
		return algebra.TriplePattern{}, err
	}
	pred, err := p.parsePredicateTerm()
	if err != nil {
		return algebra.TriplePattern{}, err
	}
	o, err := p.parseTermOrVar()
	if err != nil {
		return algebra.TriplePattern{}, err
	}
	return algebra.TriplePattern{Subject: s, Predicate: pred, Object: o}, nil
}

// parsePredicateTerm parses a predicate position: `a` (rdf:type), a
// variable, or an IRI.
func (p *Parser) parsePredicateTerm() (algebra.Term, error) {
	p.skipWS()
	save := p.pos
	if p.pos < p.length && p.input[p.pos] == 'a' {
		end := p.pos + 1
		if end >= p.length || !isNameChar(p.input[end]) {
			p.pos = end
			return algebra.Bound(rdf.RDFType), nil
		}
	}
	p.pos = save
	return p.parseTermOrVar()
}

// parseTermOrVar parses any term position: variable, IRI, blank node
// (including the `[]` anonymous form), or literal.
func (p *Parser) parseTermOrVar() (algebra.Term, error) {
	p.skipWS()
	if v, ok := p.tryParseVarName(); ok {
		return algebra.Variable(v), nil
	}
	if p.pos < p.length && p.input[p.pos] == '[' {
		p.pos++
		p.skipWS()
		if p.matchByte(']') {
			return algebra.Variable(p.nextVar()), nil
		}
		// A non-empty blank node property list is out of this
		// parser's scope (§1's carve-out); treat the contents as
		// opaque and skip to the matching ']'.
		depth := 1
		for p.pos < p.length && depth > 0 {
			switch p.input[p.pos] {
			case '[':
				depth++
			case ']':
				depth--
			}
			p.pos++
		}
		return algebra.Variable(p.nextVar()), nil
	}
	t, err := p.parseBoundTerm()
	if err != nil {
		return algebra.Term{}, err
	}
	return algebra.Bound(t), nil
}

// parseVarOrIRITerm parses a GRAPH clause's name: a variable or an IRI.
func (p *Parser) parseVarOrIRITerm() (algebra.Term, error) {
	if v, ok := p.tryParseVarName(); ok {
		return algebra.Variable(v), nil
	}
	t, err := p.parseIRITerm()
	if err != nil {
		return algebra.Term{}, err
	}
	return algebra.Bound(t), nil
}

func (p *Parser) parseIRITerm() (rdf.Term, error) {
	return p.parseBoundTerm()
}

// parseBoundTerm parses an IRI (absolute or prefixed), blank node, or
// literal into an rdf.Term.
func (p *Parser) parseBoundTerm() (rdf.Term, error) {
	p.skipWS()
	if p.pos >= p.length {
		return nil, p.err("unexpected end of input")
	}
	switch p.input[p.pos] {
	case '<':
		iri, err := p.parseIRILiteral()
		if err != nil {
			return nil, err
		}
		return rdf.NewNamedNode(iri), nil
	case '_':
		return p.parseBlankNodeLabel()
	case '"', '\'':
		return p.parseStringLiteral()
	case '-', '+':
		return p.parseNumberLiteral()
	default:
		ch := p.input[p.pos]
		if ch >= '0' && ch <= '9' {
			return p.parseNumberLiteral()
		}
		if p.matchKeyword("true") {
			return rdf.NewBooleanLiteral(true), nil
		}
		if p.matchKeyword("false") {
			return rdf.NewBooleanLiteral(false), nil
		}
		return p.parsePrefixedName()
	}
}

func (p *Parser) parseBlankNodeLabel() (rdf.Term, error) {
	if !strings.HasPrefix(p.input[p.pos:], "_:") {
		return nil, p.err("expected '_:'")
	}
	p.pos += 2
	start := p.pos
	for p.pos < p.length && isNameChar(p.input[p.pos]) {
		p.pos++
	}
	return rdf.NewBlankNode(p.input[start:p.pos]), nil
}

func (p *Parser) parseStringLiteral() (rdf.Term, error) {
	quote := p.input[p.pos]
	p.pos++
	var sb strings.Builder
	for p.pos < p.length && p.input[p.pos] != quote {
		ch := p.input[p.pos]
		if ch == '\\' && p.pos+1 < p.length {
			p.pos++
			switch p.input[p.pos] {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			default:
				sb.WriteByte(p.input[p.pos])
			}
			p.pos++
			continue
		}
		sb.WriteByte(ch)
		p.pos++
	}
	if p.pos >= p.length {
		return nil, p.err("unclosed string literal")
	}
	p.pos++ // closing quote

	if p.pos < p.length && p.input[p.pos] == '@' {
		p.pos++
		start := p.pos
		for p.pos < p.length && (isNameChar(p.input[p.pos]) || p.input[p.pos] == '-') {
			p.pos++
		}
		return rdf.NewLiteralWithLanguage(sb.String(), p.input[start:p.pos]), nil
	}
	if p.pos+1 < p.length && p.input[p.pos] == '^' && p.input[p.pos+1] == '^' {
		p.pos += 2
		dt, err := p.parseBoundTerm()
		if err != nil {
			return nil, err
		}
		nn, ok := dt.(*rdf.NamedNode)
		if !ok {
			return nil, p.err("literal datatype must be an IRI")
		}
		return rdf.NewLiteralWithDatatype(sb.String(), nn), nil
	}
	return rdf.NewLiteral(sb.String()), nil
}

func (p *Parser) parseNumberLiteral() (rdf.Term, error) {
	start := p.pos
	if p.input[p.pos] == '-' || p.input[p.pos] == '+' {
		p.pos++
	}
	isDecimal := false
	for p.pos < p.length && p.input[p.pos] >= '0' && p.input[p.pos] <= '9' {
		p.pos++
	}
	if p.pos < p.length && p.input[p.pos] == '.' {
		isDecimal = true
		p.pos++
		for p.pos < p.length && p.input[p.pos] >= '0' && p.input[p.pos] <= '9' {
			p.pos++
		}
	}
	if p.pos < p.length && (p.input[p.pos] == 'e' || p.input[p.pos] == 'E') {
		isDecimal = true
		p.pos++
		if p.pos < p.length && (p.input[p.pos] == '-' || p.input[p.pos] == '+') {
			p.pos++
		}
		for p.pos < p.length && p.input[p.pos] >= '0' && p.input[p.pos] <= '9' {
			p.pos++
		}
	}
	text := p.input[start:p.pos]
	if isDecimal {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, p.err("invalid numeric literal")
		}
		return rdf.NewDoubleLiteral(f), nil
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return nil, p.err("invalid numeric literal")
	}
	return rdf.NewIntegerLiteral(n), nil
}

func (p *Parser) parsePrefixedName() (rdf.Term, error) {
	start := p.pos
	for p.pos < p.length && p.input[p.pos] != ':' && isNameChar(p.input[p.pos]) {
		p.pos++
	}
	if p.pos >= p.length || p.input[p.pos] != ':' {
		return nil, p.err("expected a prefixed name or IRI")
	}
	prefix := p.input[start:p.pos]
	p.pos++
	localStart := p.pos
	for p.pos < p.length && !isTermBoundaryChar(p.input[p.pos]) {
		p.pos++
	}
	local := p.input[localStart:p.pos]
	base, ok := p.prefixes[prefix]
	if !ok {
		return nil, p.err("undefined prefix: " + prefix)
	}
	return rdf.NewNamedNode(base + local), nil
}

func isTermBoundaryChar(ch byte) bool {
	switch ch {
	case ' ', '\t', '\n', '\r', '.', ';', ',', '}', ')', '<':
		return true
	default:
		return false
	}
}
