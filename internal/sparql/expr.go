package sparql

import (
	"strings"

	"github.com/aleksaelezovic/oxifuj/internal/algebra"
	"github.com/aleksaelezovic/oxifuj/internal/rdf"
)

// parseExpr parses a full SPARQL expression, following §4.7's grammar
// precedence: conditional-or, conditional-and, value comparisons
// (including IN/NOT IN), additive, multiplicative, unary, primary.
func (p *Parser) parseExpr() (algebra.Expr, error) {
	return p.parseConditionalOr()
}

func (p *Parser) parseConditionalOr() (algebra.Expr, error) {
	left, err := p.parseConditionalAnd()
	if err != nil {
		return nil, err
	}
	for {
		p.skipWS()
		if !p.matchByte('|') {
			break
		}
		if !p.matchByte('|') {
			p.pos-- // not '||', put the single '|' back
			break
		}
		right, err := p.parseConditionalAnd()
		if err != nil {
			return nil, err
		}
		left = &algebra.BinaryExpr{Op: algebra.OpOr, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseConditionalAnd() (algebra.Expr, error) {
	left, err := p.parseValueLogical()
	if err != nil {
		return nil, err
	}
	for {
		p.skipWS()
		if !p.matchByte('&') {
			break
		}
		if !p.matchByte('&') {
			p.pos--
			break
		}
		right, err := p.parseValueLogical()
		if err != nil {
			return nil, err
		}
		left = &algebra.BinaryExpr{Op: algebra.OpAnd, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseValueLogical() (algebra.Expr, error) {
	left, err := p.parseNumericExpr()
	if err != nil {
		return nil, err
	}
	p.skipWS()
	switch {
	case p.matchKeyword("IN"):
		args, err := p.parseExprList()
		if err != nil {
			return nil, err
		}
		return &algebra.BinaryExpr{Op: algebra.OpIn, Left: left, Right: &algebra.FuncCall{Name: "LIST", Args: args}}, nil
	case p.matchKeyword("NOT"):
		p.expectKeyword("IN")
		args, err := p.parseExprList()
		if err != nil {
			return nil, err
		}
		return &algebra.BinaryExpr{Op: algebra.OpNotIn, Left: left, Right: &algebra.FuncCall{Name: "LIST", Args: args}}, nil
	}
	op, ok := p.tryMatchCompareOp()
	if !ok {
		return left, nil
	}
	right, err := p.parseNumericExpr()
	if err != nil {
		return nil, err
	}
	return &algebra.BinaryExpr{Op: op, Left: left, Right: right}, nil
}

func (p *Parser) tryMatchCompareOp() (algebra.BinOp, bool) {
	p.skipWS()
	if p.pos >= p.length {
		return 0, false
	}
	two := ""
	if p.pos+1 < p.length {
		two = p.input[p.pos : p.pos+2]
	}
	switch two {
	case "!=":
		p.pos += 2
		return algebra.OpNotEqual, true
	case "<=":
		p.pos += 2
		return algebra.OpLessEqual, true
	case ">=":
		p.pos += 2
		return algebra.OpGreaterEqual, true
	}
	switch p.input[p.pos] {
	case '=':
		p.pos++
		return algebra.OpEqual, true
	case '<':
		p.pos++
		return algebra.OpLess, true
	case '>':
		p.pos++
		return algebra.OpGreater, true
	}
	return 0, false
}

func (p *Parser) parseExprList() ([]algebra.Expr, error) {
	p.expect('(')
	var args []algebra.Expr
	p.skipWS()
	if p.peek() != ')' {
		for {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			args = append(args, e)
			if !p.matchByte(',') {
				break
			}
		}
	}
	p.expect(')')
	return args, nil
}

func (p *Parser) parseNumericExpr() (algebra.Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		p.skipWS()
		if p.matchByte('+') {
			right, err := p.parseMultiplicative()
			if err != nil {
				return nil, err
			}
			left = &algebra.BinaryExpr{Op: algebra.OpAdd, Left: left, Right: right}
			continue
		}
		if p.peek() == '-' {
			// Not ambiguous with a signed numeric literal here since
			// parsePrimaryExpr only treats a leading sign as part of a
			// number literal, never mid-expression.
			p.pos++
			right, err := p.parseMultiplicative()
			if err != nil {
				return nil, err
			}
			left = &algebra.BinaryExpr{Op: algebra.OpSubtract, Left: left, Right: right}
			continue
		}
		break
	}
	return left, nil
}

func (p *Parser) parseMultiplicative() (algebra.Expr, error) {
	left, err := p.parseUnaryExpr()
	if err != nil {
		return nil, err
	}
	for {
		p.skipWS()
		if p.matchByte('*') {
			right, err := p.parseUnaryExpr()
			if err != nil {
				return nil, err
			}
			left = &algebra.BinaryExpr{Op: algebra.OpMultiply, Left: left, Right: right}
			continue
		}
		if p.matchByte('/') {
			right, err := p.parseUnaryExpr()
			if err != nil {
				return nil, err
			}
			left = &algebra.BinaryExpr{Op: algebra.OpDivide, Left: left, Right: right}
			continue
		}
		break
	}
	return left, nil
}

func (p *Parser) parseUnaryExpr() (algebra.Expr, error) {
	p.skipWS()
	switch {
	case p.matchByte('!'):
		inner, err := p.parseUnaryExpr()
		if err != nil {
			return nil, err
		}
		return &algebra.UnaryExpr{Op: algebra.OpNot, Operand: inner}, nil
	case p.matchByte('+'):
		inner, err := p.parseUnaryExpr()
		if err != nil {
			return nil, err
		}
		return &algebra.UnaryExpr{Op: algebra.OpPlus, Operand: inner}, nil
	case p.matchByte('-'):
		inner, err := p.parseUnaryExpr()
		if err != nil {
			return nil, err
		}
		return &algebra.UnaryExpr{Op: algebra.OpMinus, Operand: inner}, nil
	}
	return p.parsePrimaryExpr()
}

// parsePrimaryExpr parses BOUND/EXISTS/NOT EXISTS/COALESCE/IF, a
// regular function call, a parenthesized expression, a variable, or a
// literal term.
func (p *Parser) parsePrimaryExpr() (algebra.Expr, error) {
	p.skipWS()
	if p.matchByte('(') {
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		p.expect(')')
		return inner, nil
	}
	if v, ok := p.tryParseVarName(); ok {
		return &algebra.VarExpr{Var: v}, nil
	}
	switch {
	case p.matchKeyword("BOUND"):
		p.expect('(')
		v, err := p.parseVarName()
		if err != nil {
			return nil, err
		}
		p.expect(')')
		return &algebra.BoundExpr{Var: v}, nil
	case p.matchKeyword("NOT"):
		p.expectKeyword("EXISTS")
		pat, err := p.parseGroupGraphPattern()
		if err != nil {
			return nil, err
		}
		return &algebra.ExistsExpr{Pattern: pat, Negate: true}, nil
	case p.matchKeyword("EXISTS"):
		pat, err := p.parseGroupGraphPattern()
		if err != nil {
			return nil, err
		}
		return &algebra.ExistsExpr{Pattern: pat}, nil
	case p.matchKeyword("COALESCE"):
		args, err := p.parseExprList()
		if err != nil {
			return nil, err
		}
		return &algebra.CoalesceExpr{Args: args}, nil
	case p.matchKeyword("IF"):
		p.expect('(')
		cond, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		p.expect(',')
		then, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		p.expect(',')
		els, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		p.expect(')')
		return &algebra.IfExpr{Cond: cond, Then: then, Else: els}, nil
	}
	if name, ok := p.tryParseFuncName(); ok {
		args, err := p.parseExprList()
		if err != nil {
			return nil, err
		}
		return &algebra.FuncCall{Name: strings.ToUpper(name), Args: args}, nil
	}
	t, err := p.parseBoundTerm()
	if err != nil {
		return nil, err
	}
	return &algebra.ConstExpr{Value: t}, nil
}

// tryParseFuncName consumes an identifier (possibly containing ':' for
// a prefixed extension function name) immediately followed by '(', the
// shape of a function call; it backtracks on anything else so the
// caller can fall through to parseBoundTerm for a prefixed-name IRI.
func (p *Parser) tryParseFuncName() (string, bool) {
	save := p.pos
	start := p.pos
	for p.pos < p.length && (isNameChar(p.input[p.pos]) || p.input[p.pos] == ':') {
		p.pos++
	}
	if p.pos == start {
		p.pos = save
		return "", false
	}
	name := p.input[start:p.pos]
	p.skipWS()
	if p.pos >= p.length || p.input[p.pos] != '(' {
		p.pos = save
		return "", false
	}
	return name, true
}

// parseAggregateOrExpr parses a SELECT projection's parenthesized
// sub-expression, which is either an aggregate function application
// (COUNT/SUM/AVG/MIN/MAX/SAMPLE/GROUP_CONCAT) or an ordinary scalar
// expression; the caller has already consumed the opening '('.
func (p *Parser) parseAggregateOrExpr() (*algebra.AggregateBinding, algebra.Expr, error) {
	p.skipWS()
	save := p.pos
	start := p.pos
	for p.pos < p.length && isNameChar(p.input[p.pos]) {
		p.pos++
	}
	name := strings.ToUpper(p.input[start:p.pos])
	var fn algebra.AggFunc
	switch name {
	case "COUNT":
		fn = algebra.AggCount
	case "SUM":
		fn = algebra.AggSum
	case "AVG":
		fn = algebra.AggAvg
	case "MIN":
		fn = algebra.AggMin
	case "MAX":
		fn = algebra.AggMax
	case "SAMPLE":
		fn = algebra.AggSample
	case "GROUP_CONCAT":
		fn = algebra.AggGroupConcat
	default:
		p.pos = save
		e, err := p.parseExpr()
		return nil, e, err
	}
	p.skipWS()
	if p.pos >= p.length || p.input[p.pos] != '(' {
		p.pos = save
		e, err := p.parseExpr()
		return nil, e, err
	}
	p.pos++ // '('
	distinct := p.matchKeyword("DISTINCT")
	p.skipWS()
	var arg algebra.Expr
	if p.matchByte('*') {
		arg = nil
	} else {
		var err error
		arg, err = p.parseExpr()
		if err != nil {
			return nil, nil, err
		}
	}
	sep := " "
	if p.matchByte(';') {
		p.expectKeyword("SEPARATOR")
		p.expect('=')
		lit, err := p.parseStringLiteral()
		if err != nil {
			return nil, nil, err
		}
		if strLit, ok := lit.(*rdf.Literal); ok {
			sep = strLit.Value
		}
	}
	p.expect(')')
	return &algebra.AggregateBinding{Func: fn, Arg: arg, Distinct: distinct, Sep: sep}, nil, nil
}
