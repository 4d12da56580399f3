// Package sparql is a small hand-written recursive-descent parser from
// SPARQL text to internal/algebra (§1's "a convenience for cmd/oxifuj
// query|update, not a spec'd component" — it covers the query and
// update forms spec.md's §8 end-to-end scenarios exercise, not the
// full SPARQL 1.1 grammar: no Turtle-style collections, no blank-node
// property lists beyond `[]`, no sub-SELECT).
//
// Grounded in the teacher's internal/sparql/parser/parser.go's
// character-cursor recursive-descent structure (matchKeyword/
// skipWhitespace/parseTerm shape), rebuilt to emit this module's
// unified internal/algebra tree directly instead of the teacher's
// separate AST type family.
package sparql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aleksaelezovic/oxifuj/internal/algebra"
	"github.com/aleksaelezovic/oxifuj/internal/qerror"
	"github.com/aleksaelezovic/oxifuj/internal/rdf"
)

// Parser parses one SPARQL query or update string.
type Parser struct {
	input    string
	pos      int
	length   int
	prefixes map[string]string
	varSeq   int
}

func NewParser(input string) *Parser {
	return &Parser{input: input, length: len(input), prefixes: map[string]string{}}
}

// ParseQuery parses a SELECT/CONSTRUCT/ASK/DESCRIBE query.
func (p *Parser) ParseQuery() (*algebra.Query, error) {
	p.parsePrologue()

	switch {
	case p.matchKeyword("SELECT"):
		return p.parseSelect()
	case p.matchKeyword("CONSTRUCT"):
		return p.parseConstruct()
	case p.matchKeyword("ASK"):
		return p.parseAsk()
	case p.matchKeyword("DESCRIBE"):
		return p.parseDescribe()
	default:
		return nil, p.err("expected SELECT, CONSTRUCT, ASK, or DESCRIBE")
	}
}

// ParseUpdate parses one SPARQL Update operation.
func (p *Parser) ParseUpdate() (*algebra.Update, error) {
	p.parsePrologue()
	switch {
	case p.peekSeq("INSERT", "DATA"):
		p.matchKeyword("INSERT")
		p.matchKeyword("DATA")
		return p.parseData(algebra.OpInsertData)
	case p.peekSeq("DELETE", "DATA"):
		p.matchKeyword("DELETE")
		p.matchKeyword("DATA")
		return p.parseData(algebra.OpDeleteData)
	case p.peekKeyword("DELETE"), p.peekKeyword("INSERT"), p.peekKeyword("WITH"):
		return p.parseModify()
	case p.peekKeyword("LOAD"):
		p.matchKeyword("LOAD")
		return p.parseLoad()
	case p.peekKeyword("CLEAR"):
		p.matchKeyword("CLEAR")
		ref, silent, err := p.parseGraphRefAllowAll()
		if err != nil {
			return nil, err
		}
		return &algebra.Update{Op: algebra.OpClear, GraphRef: ref, Silent: silent}, nil
	case p.peekKeyword("DROP"):
		p.matchKeyword("DROP")
		ref, silent, err := p.parseGraphRefAllowAll()
		if err != nil {
			return nil, err
		}
		return &algebra.Update{Op: algebra.OpDrop, GraphRef: ref, Silent: silent}, nil
	case p.peekKeyword("CREATE"):
		p.matchKeyword("CREATE")
		silent := p.matchKeyword("SILENT")
		p.expectKeyword("GRAPH")
		name, err := p.parseIRITerm()
		if err != nil {
			return nil, err
		}
		return &algebra.Update{Op: algebra.OpCreate, GraphRef: algebra.GraphRef{Kind: algebra.GraphRefNamed, Name: name}, Silent: silent}, nil
	case p.peekKeyword("COPY"), p.peekKeyword("MOVE"), p.peekKeyword("ADD"):
		return p.parseCopyMoveAdd()
	default:
		return nil, p.err("expected an update operation")
	}
}

func (p *Parser) peekSeq(kws ...string) bool {
	save := p.pos
	defer func() { p.pos = save }()
	for _, kw := range kws {
		if !p.matchKeyword(kw) {
			return false
		}
	}
	return true
}

func (p *Parser) parseData(op algebra.UpdateOp) (*algebra.Update, error) {
	p.expect('{')
	quads, err := p.parseQuadData()
	if err != nil {
		return nil, err
	}
	p.expect('}')
	return &algebra.Update{Op: op, Quads: quads}, nil
}

// parseQuadData parses INSERT/DELETE DATA's block: plain triples, or
// GRAPH <iri> { triples }, with every position required bound.
func (p *Parser) parseQuadData() ([]algebra.QuadPattern, error) {
	var out []algebra.QuadPattern
	for {
		p.skipWS()
		if p.peek() == '}' {
			break
		}
		if p.matchKeyword("GRAPH") {
			g, err := p.parseIRITerm()
			if err != nil {
				return nil, err
			}
			p.expect('{')
			for {
				p.skipWS()
				if p.peek() == '}' {
					break
				}
				tp, err := p.parseTriplePattern()
				if err != nil {
					return nil, err
				}
				out = append(out, algebra.QuadPattern{Subject: tp.Subject, Predicate: tp.Predicate, Object: tp.Object, Graph: algebra.Bound(g)})
				p.skipDot()
			}
			p.expect('}')
			continue
		}
		tp, err := p.parseTriplePattern()
		if err != nil {
			return nil, err
		}
		out = append(out, algebra.QuadPattern{Subject: tp.Subject, Predicate: tp.Predicate, Object: tp.Object})
		p.skipDot()
	}
	return out, nil
}

// parseModify implements DELETE/INSERT WHERE's surface forms:
// `WITH <g> DELETE {...} INSERT {...} WHERE {...}`, `DELETE {...} WHERE
// {...}` and `INSERT {...} WHERE {...}`. The `DELETE WHERE {...}`
// shorthand (template == pattern) is not accepted: DELETE is always
// followed by a braced template.
func (p *Parser) parseModify() (*algebra.Update, error) {
	u := &algebra.Update{Op: algebra.OpDeleteInsert}
	if p.matchKeyword("WITH") {
		g, err := p.parseIRITerm()
		if err != nil {
			return nil, err
		}
		u.With = g
	}

	var deleteTpl, insertTpl []algebra.QuadPattern
	sawDelete, sawInsert := false, false
	if p.matchKeyword("DELETE") {
		sawDelete = true
		p.expect('{')
		tpl, err := p.parseQuadTemplate()
		if err != nil {
			return nil, err
		}
		p.expect('}')
		deleteTpl = tpl
	}
	if p.matchKeyword("INSERT") {
		sawInsert = true
		p.expect('{')
		tpl, err := p.parseQuadTemplate()
		if err != nil {
			return nil, err
		}
		p.expect('}')
		insertTpl = tpl
	}
	if !sawDelete && !sawInsert {
		return nil, p.err("expected DELETE or INSERT")
	}
	u.DeleteTpl = deleteTpl
	u.InsertTpl = insertTpl

	for p.matchKeyword("USING") {
		named := p.matchKeyword("NAMED")
		g, err := p.parseIRITerm()
		if err != nil {
			return nil, err
		}
		if named {
			u.UsingNamed = append(u.UsingNamed, g)
		} else {
			u.Using = append(u.Using, g)
		}
	}

	if sawDelete && !sawInsert {
		// DELETE {...} with no INSERT: the WHERE pattern is read
		// here exactly as for the other forms.
		if p.matchKeyword("WHERE") {
			where, err := p.parseGroupGraphPattern()
			if err != nil {
				return nil, err
			}
			u.Where = where
			return u, nil
		}
	}
	p.expectKeyword("WHERE")
	where, err := p.parseGroupGraphPattern()
	if err != nil {
		return nil, err
	}
	u.Where = where
	return u, nil
}

// parseQuadTemplate is like parseQuadData but positions may be
// variables (DELETE/INSERT templates substitute WHERE's bindings).
func (p *Parser) parseQuadTemplate() ([]algebra.QuadPattern, error) {
	var out []algebra.QuadPattern
	for {
		p.skipWS()
		if p.peek() == '}' {
			break
		}
		if p.matchKeyword("GRAPH") {
			g, err := p.parseVarOrIRITerm()
			if err != nil {
				return nil, err
			}
			p.expect('{')
			for {
				p.skipWS()
				if p.peek() == '}' {
					break
				}
				tp, err := p.parseTriplePattern()
				if err != nil {
					return nil, err
				}
				out = append(out, algebra.QuadPattern{Subject: tp.Subject, Predicate: tp.Predicate, Object: tp.Object, Graph: g})
				p.skipDot()
			}
			p.expect('}')
			continue
		}
		tp, err := p.parseTriplePattern()
		if err != nil {
			return nil, err
		}
		out = append(out, algebra.QuadPattern{Subject: tp.Subject, Predicate: tp.Predicate, Object: tp.Object})
		p.skipDot()
	}
	return out, nil
}

func (p *Parser) parseLoad() (*algebra.Update, error) {
	silent := p.matchKeyword("SILENT")
	src, err := p.parseIRITerm()
	if err != nil {
		return nil, err
	}
	u := &algebra.Update{Op: algebra.OpLoad, LoadSource: src, Silent: silent}
	if p.matchKeyword("INTO") {
		p.expectKeyword("GRAPH")
		g, err := p.parseIRITerm()
		if err != nil {
			return nil, err
		}
		u.LoadInto = g
	}
	return u, nil
}

func (p *Parser) parseGraphRefAllowAll() (algebra.GraphRef, bool, error) {
	silent := p.matchKeyword("SILENT")
	switch {
	case p.matchKeyword("DEFAULT"):
		return algebra.GraphRef{Kind: algebra.GraphRefDefault}, silent, nil
	case p.matchKeyword("NAMED"):
		return algebra.GraphRef{Kind: algebra.GraphRefNamedKeyword}, silent, nil
	case p.matchKeyword("ALL"):
		return algebra.GraphRef{Kind: algebra.GraphRefAll}, silent, nil
	default:
		p.matchKeyword("GRAPH")
		name, err := p.parseIRITerm()
		if err != nil {
			return algebra.GraphRef{}, false, err
		}
		return algebra.GraphRef{Kind: algebra.GraphRefNamed, Name: name}, silent, nil
	}
}

func (p *Parser) parseCopyMoveAdd() (*algebra.Update, error) {
	var op algebra.UpdateOp
	switch {
	case p.matchKeyword("COPY"):
		op = algebra.OpCopy
	case p.matchKeyword("MOVE"):
		op = algebra.OpMove
	case p.matchKeyword("ADD"):
		op = algebra.OpAdd
	}
	silent := p.matchKeyword("SILENT")
	from, err := p.parseGraphOrDefaultRef()
	if err != nil {
		return nil, err
	}
	p.expectKeyword("TO")
	to, err := p.parseGraphOrDefaultRef()
	if err != nil {
		return nil, err
	}
	return &algebra.Update{Op: op, From: from, To: to, Silent: silent}, nil
}

func (p *Parser) parseGraphOrDefaultRef() (algebra.GraphRef, error) {
	if p.matchKeyword("DEFAULT") {
		return algebra.GraphRef{Kind: algebra.GraphRefDefault}, nil
	}
	name, err := p.parseIRITerm()
	if err != nil {
		return algebra.GraphRef{}, err
	}
	return algebra.GraphRef{Kind: algebra.GraphRefNamed, Name: name}, nil
}

// --- Query forms ---

func (p *Parser) parseSelect() (*algebra.Query, error) {
	q := &algebra.Query{Form: algebra.FormSelect}
	distinctOrReduced := ""
	if p.matchKeyword("DISTINCT") {
		distinctOrReduced = "DISTINCT"
	} else if p.matchKeyword("REDUCED") {
		distinctOrReduced = "REDUCED"
	}

	var aggregates []algebra.AggregateBinding
	var extends []struct {
		v algebra.Var
		e algebra.Expr
	}
	if p.matchByte('*') {
		q.Star = true
	} else {
		for {
			p.skipWS()
			if p.matchByte('(') {
				agg, expr, err := p.parseAggregateOrExpr()
				if err != nil {
					return nil, err
				}
				p.expectKeyword("AS")
				v, err := p.parseVarName()
				if err != nil {
					return nil, err
				}
				p.expect(')')
				if agg != nil {
					agg.Result = v
					aggregates = append(aggregates, *agg)
				} else {
					extends = append(extends, struct {
						v algebra.Var
						e algebra.Expr
					}{v, expr})
				}
				q.SelectVars = append(q.SelectVars, v)
				continue
			}
			v, ok := p.tryParseVarName()
			if !ok {
				break
			}
			q.SelectVars = append(q.SelectVars, v)
		}
	}
	_ = distinctOrReduced

	p.parseDatasetClauses(q)
	p.expectKeyword("WHERE")
	where, err := p.parseGroupGraphPattern()
	if err != nil {
		return nil, err
	}
	for _, ex := range extends {
		where = &algebra.Extend{Input: where, Var: ex.v, Expr: ex.e}
	}
	q.Where = where

	q.Where, err = p.parseSolutionModifiers(q.Where, q.SelectVars, q.Star, aggregates)
	if err != nil {
		return nil, err
	}
	switch distinctOrReduced {
	case "DISTINCT":
		q.Where = &algebra.Distinct{Input: q.Where}
	case "REDUCED":
		q.Where = &algebra.Reduced{Input: q.Where}
	}
	return q, nil
}

func (p *Parser) parseConstruct() (*algebra.Query, error) {
	q := &algebra.Query{Form: algebra.FormConstruct}
	p.expect('{')
	for {
		p.skipWS()
		if p.peek() == '}' {
			break
		}
		tp, err := p.parseTriplePattern()
		if err != nil {
			return nil, err
		}
		q.ConstructTpl = append(q.ConstructTpl, tp)
		p.skipDot()
	}
	p.expect('}')
	p.parseDatasetClauses(q)
	p.expectKeyword("WHERE")
	where, err := p.parseGroupGraphPattern()
	if err != nil {
		return nil, err
	}
	q.Where, err = p.parseSolutionModifiers(where, nil, true, nil)
	return q, err
}

func (p *Parser) parseAsk() (*algebra.Query, error) {
	q := &algebra.Query{Form: algebra.FormAsk}
	p.parseDatasetClauses(q)
	p.expectKeyword("WHERE")
	where, err := p.parseGroupGraphPattern()
	if err != nil {
		return nil, err
	}
	q.Where = where
	return q, nil
}

func (p *Parser) parseDescribe() (*algebra.Query, error) {
	q := &algebra.Query{Form: algebra.FormDescribe}
	if p.matchByte('*') {
		q.DescribeVars = nil
	} else {
		for {
			t, ok := p.tryParseDescribeTarget()
			if !ok {
				break
			}
			q.DescribeVars = append(q.DescribeVars, t)
		}
	}
	p.parseDatasetClauses(q)
	if p.matchKeyword("WHERE") {
		where, err := p.parseGroupGraphPattern()
		if err != nil {
			return nil, err
		}
		q.Where = where
	} else {
		q.Where = &algebra.UnitNode{}
	}
	return q, nil
}

func (p *Parser) tryParseDescribeTarget() (algebra.Term, bool) {
	p.skipWS()
	if v, ok := p.tryParseVarName(); ok {
		return algebra.Variable(v), true
	}
	save := p.pos
	t, err := p.parseIRITerm()
	if err != nil {
		p.pos = save
		return algebra.Term{}, false
	}
	return algebra.Bound(t), true
}

func (p *Parser) parseDatasetClauses(q *algebra.Query) {
	for {
		if p.matchKeyword("FROM") {
			if p.matchKeyword("NAMED") {
				g, err := p.parseIRITerm()
				if err == nil {
					q.Named = append(q.Named, g)
				}
				continue
			}
			g, err := p.parseIRITerm()
			if err == nil {
				q.Default = append(q.Default, g)
			}
			continue
		}
		break
	}
}

// parseSolutionModifiers applies GROUP BY, ORDER BY, LIMIT/OFFSET and
// the final SELECT Project over where, in the standard SPARQL algebra
// translation order (Group, then OrderBy, then Project, then Slice).
func (p *Parser) parseSolutionModifiers(where algebra.Node, selectVars []algebra.Var, star bool, aggregates []algebra.AggregateBinding) (algebra.Node, error) {
	var groupKeys []algebra.Expr
	if p.matchKeyword("GROUP") {
		p.expectKeyword("BY")
		for {
			p.skipWS()
			v, ok := p.tryParseVarName()
			if ok {
				groupKeys = append(groupKeys, &algebra.VarExpr{Var: v})
				continue
			}
			if p.matchByte('(') {
				e, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				p.expect(')')
				groupKeys = append(groupKeys, e)
				continue
			}
			break
		}
	}
	if len(groupKeys) > 0 || len(aggregates) > 0 {
		where = &algebra.Group{Input: where, Keys: groupKeys, Aggregates: aggregates}
	}

	if p.matchKeyword("HAVING") {
		cond, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		where = &algebra.Filter{Input: where, Condition: cond}
	}

	if p.matchKeyword("ORDER") {
		p.expectKeyword("BY")
		var keys []algebra.SortKey
		for {
			p.skipWS()
			desc := false
			if p.matchKeyword("DESC") {
				desc = true
			} else {
				p.matchKeyword("ASC")
			}
			var e algebra.Expr
			var err error
			if p.matchByte('(') {
				e, err = p.parseExpr()
				if err != nil {
					return nil, err
				}
				p.expect(')')
			} else if v, ok := p.tryParseVarName(); ok {
				e = &algebra.VarExpr{Var: v}
			} else {
				break
			}
			keys = append(keys, algebra.SortKey{Expr: e, Descending: desc})
			p.skipWS()
			if p.peek() == '}' || p.atEnd() || p.peekKeyword("LIMIT") || p.peekKeyword("OFFSET") {
				break
			}
		}
		where = &algebra.OrderBy{Input: where, Keys: keys}
	}

	if !star && selectVars != nil {
		where = &algebra.Project{Input: where, Vars: selectVars}
	}

	offset, limit := int64(0), int64(-1)
	if p.matchKeyword("LIMIT") {
		n, err := p.parseIntLiteral()
		if err != nil {
			return nil, err
		}
		limit = n
	}
	if p.matchKeyword("OFFSET") {
		n, err := p.parseIntLiteral()
		if err != nil {
			return nil, err
		}
		offset = n
	}
	if offset != 0 || limit >= 0 {
		where = &algebra.Slice{Input: where, Offset: offset, Length: limit}
	}
	return where, nil
}

func (p *Parser) parseIntLiteral() (int64, error) {
	p.skipWS()
	start := p.pos
	for p.pos < p.length && p.input[p.pos] >= '0' && p.input[p.pos] <= '9' {
		p.pos++
	}
	if p.pos == start {
		return 0, p.err("expected an integer")
	}
	n, err := strconv.ParseInt(p.input[start:p.pos], 10, 64)
	if err != nil {
		return 0, p.err("invalid integer literal")
	}
	return n, nil
}

func (p *Parser) err(msg string) error {
	return qerror.Parse(msg, fmt.Sprintf("byte %d", p.pos))
}

// --- lexical helpers shared with path.go/expr.go/graphpattern.go in
// this package ---

func (p *Parser) skipWS() {
	for p.pos < p.length {
		ch := p.input[p.pos]
		if ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' {
			p.pos++
			continue
		}
		if ch == '#' {
			for p.pos < p.length && p.input[p.pos] != '\n' {
				p.pos++
			}
			continue
		}
		break
	}
}

func (p *Parser) atEnd() bool {
	p.skipWS()
	return p.pos >= p.length
}

func (p *Parser) peek() byte {
	p.skipWS()
	if p.pos >= p.length {
		return 0
	}
	return p.input[p.pos]
}

func (p *Parser) matchByte(b byte) bool {
	p.skipWS()
	if p.pos < p.length && p.input[p.pos] == b {
		p.pos++
		return true
	}
	return false
}

func (p *Parser) expect(b byte) {
	p.matchByte(b)
}

func (p *Parser) skipDot() {
	p.matchByte('.')
}

func (p *Parser) matchKeyword(kw string) bool {
	p.skipWS()
	if p.pos+len(kw) > p.length {
		return false
	}
	if !strings.EqualFold(p.input[p.pos:p.pos+len(kw)], kw) {
		return false
	}
	end := p.pos + len(kw)
	if end < p.length && isNameChar(p.input[end]) {
		return false
	}
	p.pos = end
	return true
}

func (p *Parser) peekKeyword(kw string) bool {
	save := p.pos
	ok := p.matchKeyword(kw)
	p.pos = save
	return ok
}

func (p *Parser) expectKeyword(kw string) {
	p.matchKeyword(kw)
}

func isNameChar(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9')
}

func (p *Parser) parsePrologue() {
	for {
		p.skipWS()
		if p.matchKeyword("PREFIX") {
			p.skipWS()
			start := p.pos
			for p.pos < p.length && p.input[p.pos] != ':' {
				p.pos++
			}
			name := strings.TrimSpace(p.input[start:p.pos])
			p.pos++ // ':'
			iri, err := p.parseIRILiteral()
			if err == nil {
				p.prefixes[name] = iri
			}
			continue
		}
		if p.matchKeyword("BASE") {
			p.parseIRILiteral()
			continue
		}
		break
	}
}

func (p *Parser) parseIRILiteral() (string, error) {
	p.skipWS()
	if p.pos >= p.length || p.input[p.pos] != '<' {
		return "", p.err("expected '<'")
	}
	p.pos++
	start := p.pos
	for p.pos < p.length && p.input[p.pos] != '>' {
		p.pos++
	}
	if p.pos >= p.length {
		return "", p.err("unclosed IRI")
	}
	iri := p.input[start:p.pos]
	p.pos++
	return iri, nil
}

func (p *Parser) nextVar() algebra.Var {
	p.varSeq++
	return algebra.Var(fmt.Sprintf(".anon%d", p.varSeq))
}
