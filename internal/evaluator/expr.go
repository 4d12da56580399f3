package evaluator

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/aleksaelezovic/oxifuj/internal/algebra"
	"github.com/aleksaelezovic/oxifuj/internal/qerror"
	"github.com/aleksaelezovic/oxifuj/internal/rdf"
)

// Evaluate computes expr against binding, producing a typed value in the
// XSD value space (§4.7's "Expression engine"). Errors are *qerror.Error
// with KindTypeError and are value-typed in the sense that callers like
// compileFilter and COALESCE/EXISTS/BOUND decide whether to propagate or
// absorb them, per §4.7/§9's "Error values inside FILTER".
//
// Grounded in the teacher's pkg/sparql/evaluator/operators.go (binary/
// unary dispatch, effectiveBooleanValue, compareTerms) and functions.go
// (the builtin function table), adapted onto this module's algebra.Expr
// tree and Binding type instead of the teacher's parser.Expression/
// store.Binding pair.
func (e *Evaluator) Evaluate(expr algebra.Expr, b Binding) (rdf.Term, error) {
	switch v := expr.(type) {
	case *algebra.ConstExpr:
		return v.Value, nil
	case *algebra.VarExpr:
		val, ok := b[v.Var]
		if !ok {
			return nil, qerror.TypeErr(fmt.Sprintf("unbound variable ?%s", v.Var))
		}
		return val, nil
	case *algebra.BinaryExpr:
		return e.evalBinary(v, b)
	case *algebra.UnaryExpr:
		return e.evalUnary(v, b)
	case *algebra.FuncCall:
		return e.evalFunc(v, b)
	case *algebra.BoundExpr:
		_, ok := b[v.Var]
		return rdf.NewBooleanLiteral(ok), nil
	case *algebra.ExistsExpr:
		return e.evalExists(v, b)
	case *algebra.CoalesceExpr:
		for _, arg := range v.Args {
			if val, err := e.Evaluate(arg, b); err == nil {
				return val, nil
			}
		}
		return nil, qerror.TypeErr("COALESCE: every argument errored")
	case *algebra.IfExpr:
		cond, err := e.Evaluate(v.Cond, b)
		if err != nil {
			return nil, err
		}
		ebv, err := effectiveBooleanValue(cond)
		if err != nil {
			return nil, err
		}
		if ebv {
			return e.Evaluate(v.Then, b)
		}
		return e.Evaluate(v.Else, b)
	default:
		return nil, qerror.Unsupported("unsupported expression node")
	}
}

// effectiveBooleanValueOf evaluates expr and reduces it to SPARQL's
// effective boolean value, treating any evaluation error as false per
// §4.7's "Filter(expr) ... expression errors on FILTER yield false".
func (e *Evaluator) effectiveBooleanValueOf(expr algebra.Expr, b Binding) bool {
	val, err := e.Evaluate(expr, b)
	if err != nil {
		return false
	}
	ebv, err := effectiveBooleanValue(val)
	if err != nil {
		return false
	}
	return ebv
}

func effectiveBooleanValue(term rdf.Term) (bool, error) {
	lit, ok := term.(*rdf.Literal)
	if !ok {
		return false, qerror.TypeErr("cannot compute effective boolean value of a non-literal term")
	}
	if lit.Datatype != nil {
		switch lit.Datatype.IRI {
		case rdf.XSDBoolean.IRI:
			return lit.Value == "true" || lit.Value == "1", nil
		case rdf.XSDInteger.IRI:
			n, err := strconv.ParseInt(lit.Value, 10, 64)
			if err != nil {
				return false, qerror.TypeErr("invalid xsd:integer literal")
			}
			return n != 0, nil
		case rdf.XSDDouble.IRI, rdf.XSDFloat.IRI, rdf.XSDDecimal.IRI:
			f, err := strconv.ParseFloat(lit.Value, 64)
			if err != nil {
				return false, qerror.TypeErr("invalid numeric literal")
			}
			return f != 0 && !math.IsNaN(f), nil
		}
		if lit.Datatype.IRI != rdf.XSDString.IRI {
			return false, qerror.TypeErr(fmt.Sprintf("cannot compute EBV of a %s literal", lit.Datatype.IRI))
		}
	}
	return lit.Value != "", nil
}

func (e *Evaluator) evalUnary(v *algebra.UnaryExpr, b Binding) (rdf.Term, error) {
	operand, err := e.Evaluate(v.Operand, b)
	if err != nil {
		return nil, err
	}
	switch v.Op {
	case algebra.OpNot:
		ebv, err := effectiveBooleanValue(operand)
		if err != nil {
			return nil, err
		}
		return rdf.NewBooleanLiteral(!ebv), nil
	case algebra.OpPlus, algebra.OpMinus:
		f, ok := extractNumeric(operand)
		if !ok {
			return nil, qerror.TypeErr("unary +/- applied to a non-numeric term")
		}
		if v.Op == algebra.OpMinus {
			f = -f
		}
		return numericResultLike(operand, f), nil
	default:
		return nil, qerror.Unsupported("unsupported unary operator")
	}
}

func (e *Evaluator) evalBinary(v *algebra.BinaryExpr, b Binding) (rdf.Term, error) {
	switch v.Op {
	case algebra.OpAnd:
		return e.evalAnd(v.Left, v.Right, b)
	case algebra.OpOr:
		return e.evalOr(v.Left, v.Right, b)
	}

	left, err := e.Evaluate(v.Left, b)
	if err != nil {
		return nil, err
	}
	right, err := e.Evaluate(v.Right, b)
	if err != nil {
		return nil, err
	}

	switch v.Op {
	case algebra.OpEqual:
		return rdf.NewBooleanLiteral(termsEqual(left, right)), nil
	case algebra.OpNotEqual:
		return rdf.NewBooleanLiteral(!termsEqual(left, right)), nil
	case algebra.OpLess, algebra.OpLessEqual, algebra.OpGreater, algebra.OpGreaterEqual:
		cmp, err := compareTerms(left, right)
		if err != nil {
			return nil, err
		}
		switch v.Op {
		case algebra.OpLess:
			return rdf.NewBooleanLiteral(cmp < 0), nil
		case algebra.OpLessEqual:
			return rdf.NewBooleanLiteral(cmp <= 0), nil
		case algebra.OpGreater:
			return rdf.NewBooleanLiteral(cmp > 0), nil
		default:
			return rdf.NewBooleanLiteral(cmp >= 0), nil
		}
	case algebra.OpAdd, algebra.OpSubtract, algebra.OpMultiply, algebra.OpDivide:
		lf, lok := extractNumeric(left)
		rf, rok := extractNumeric(right)
		if !lok || !rok {
			return nil, qerror.TypeErr("arithmetic operator applied to a non-numeric term")
		}
		var result float64
		switch v.Op {
		case algebra.OpAdd:
			result = lf + rf
		case algebra.OpSubtract:
			result = lf - rf
		case algebra.OpMultiply:
			result = lf * rf
		case algebra.OpDivide:
			if rf == 0 {
				return nil, qerror.TypeErr("division by zero")
			}
			result = lf / rf
		}
		return numericResultWidest(left, right, result), nil
	default:
		return nil, qerror.Unsupported("unsupported binary operator")
	}
}

func (e *Evaluator) evalAnd(leftExpr, rightExpr algebra.Expr, b Binding) (rdf.Term, error) {
	left, err := e.Evaluate(leftExpr, b)
	if err != nil {
		return nil, err
	}
	leftEBV, err := effectiveBooleanValue(left)
	if err != nil {
		return nil, err
	}
	if !leftEBV {
		return rdf.NewBooleanLiteral(false), nil
	}
	right, err := e.Evaluate(rightExpr, b)
	if err != nil {
		return nil, err
	}
	rightEBV, err := effectiveBooleanValue(right)
	if err != nil {
		return nil, err
	}
	return rdf.NewBooleanLiteral(rightEBV), nil
}

func (e *Evaluator) evalOr(leftExpr, rightExpr algebra.Expr, b Binding) (rdf.Term, error) {
	left, leftErr := e.Evaluate(leftExpr, b)
	if leftErr == nil {
		leftEBV, err := effectiveBooleanValue(left)
		if err == nil && leftEBV {
			return rdf.NewBooleanLiteral(true), nil
		}
	}
	right, err := e.Evaluate(rightExpr, b)
	if err != nil {
		if leftErr != nil {
			return nil, leftErr
		}
		return nil, err
	}
	rightEBV, err := effectiveBooleanValue(right)
	if err != nil {
		if leftErr != nil {
			return nil, leftErr
		}
		return nil, err
	}
	if rightEBV {
		return rdf.NewBooleanLiteral(true), nil
	}
	if leftErr != nil {
		return nil, leftErr
	}
	return rdf.NewBooleanLiteral(false), nil
}

// termsEqual implements SPARQL value-equality: numeric literals of
// differing lexical form but equal value compare equal; everything else
// falls back to bit-equal RDF term equality.
func termsEqual(a, b rdf.Term) bool {
	if af, aok := extractNumeric(a); aok {
		if bf, bok := extractNumeric(b); bok {
			return af == bf
		}
	}
	return a.Equals(b)
}

// compareTerms orders two terms for <, <=, >, >=: numeric comparison
// when both sides are numeric, else lexical string comparison (the
// teacher's compareTerms does the same two-tier fallback).
func compareTerms(left, right rdf.Term) (int, error) {
	if lf, lok := extractNumeric(left); lok {
		if rf, rok := extractNumeric(right); rok {
			switch {
			case lf < rf:
				return -1, nil
			case lf > rf:
				return 1, nil
			default:
				return 0, nil
			}
		}
	}
	ls, lok := literalString(left)
	rs, rok := literalString(right)
	if !lok || !rok {
		return 0, qerror.TypeErr("comparison operator applied to incomparable terms")
	}
	return strings.Compare(ls, rs), nil
}

func literalString(t rdf.Term) (string, bool) {
	lit, ok := t.(*rdf.Literal)
	if !ok {
		return "", false
	}
	return lit.Value, true
}

// extractNumeric returns a term's numeric value when it is an xsd
// numeric literal (integer, decimal, float, double).
func extractNumeric(t rdf.Term) (float64, bool) {
	lit, ok := t.(*rdf.Literal)
	if !ok || lit.Datatype == nil {
		return 0, false
	}
	switch lit.Datatype.IRI {
	case rdf.XSDInteger.IRI, rdf.XSDDecimal.IRI, rdf.XSDDouble.IRI, rdf.XSDFloat.IRI:
		f, err := strconv.ParseFloat(lit.Value, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// numericResultWidest picks the result literal's datatype by SPARQL's
// numeric type-promotion rule: double widens over float widens over
// decimal widens over integer; if either operand is non-integral the
// result is not re-narrowed to integer.
func numericResultWidest(left, right rdf.Term, result float64) rdf.Term {
	rank := func(t rdf.Term) int {
		lit, ok := t.(*rdf.Literal)
		if !ok || lit.Datatype == nil {
			return 0
		}
		switch lit.Datatype.IRI {
		case rdf.XSDDouble.IRI:
			return 3
		case rdf.XSDFloat.IRI:
			return 2
		case rdf.XSDDecimal.IRI:
			return 1
		default:
			return 0
		}
	}
	switch max(rank(left), rank(right)) {
	case 3:
		return rdf.NewDoubleLiteral(result)
	case 2:
		return rdf.NewLiteralWithDatatype(rdf.NewDoubleLiteral(result).Value, rdf.XSDFloat)
	case 1:
		return rdf.NewDecimalLiteral(result)
	default:
		if result == math.Trunc(result) {
			return rdf.NewIntegerLiteral(int64(result))
		}
		return rdf.NewDecimalLiteral(result)
	}
}

func numericResultLike(like rdf.Term, f float64) rdf.Term {
	return numericResultWidest(like, like, f)
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// evalExists evaluates EXISTS/NOT EXISTS: true iff compiling and pulling
// one solution from Pattern (under the current binding substituted as
// its parent) succeeds.
func (e *Evaluator) evalExists(v *algebra.ExistsExpr, b Binding) (rdf.Term, error) {
	it, err := e.Compile(v.Pattern, b)
	if err != nil {
		return nil, err
	}
	defer it.Close()
	_, found, err := it.Next(e.Tok)
	if err != nil {
		return nil, err
	}
	if v.Negate {
		found = !found
	}
	return rdf.NewBooleanLiteral(found), nil
}

// evalFunc dispatches the builtin function table of §4.7: string ops,
// numeric ops, date/time extractors, hash functions, RDF term
// constructors, coercions, and regex.
func (e *Evaluator) evalFunc(f *algebra.FuncCall, b Binding) (rdf.Term, error) {
	name := strings.ToUpper(f.Name)

	if name == "BOUND" {
		if len(f.Args) != 1 {
			return nil, qerror.TypeErr("BOUND requires exactly 1 argument")
		}
		ve, ok := f.Args[0].(*algebra.VarExpr)
		if !ok {
			return nil, qerror.TypeErr("BOUND requires a variable argument")
		}
		_, bound := b[ve.Var]
		return rdf.NewBooleanLiteral(bound), nil
	}

	args := make([]rdf.Term, len(f.Args))
	for i, a := range f.Args {
		v, err := e.Evaluate(a, b)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	switch name {
	case "ISIRI", "ISURI":
		_, ok := args[0].(*rdf.NamedNode)
		return rdf.NewBooleanLiteral(ok), nil
	case "ISBLANK":
		_, ok := args[0].(*rdf.BlankNode)
		return rdf.NewBooleanLiteral(ok), nil
	case "ISLITERAL":
		_, ok := args[0].(*rdf.Literal)
		return rdf.NewBooleanLiteral(ok), nil
	case "ISNUMERIC":
		_, ok := extractNumeric(args[0])
		return rdf.NewBooleanLiteral(ok), nil
	case "STR":
		return strOf(args[0])
	case "LANG":
		lit, ok := args[0].(*rdf.Literal)
		if !ok {
			return rdf.NewLiteral(""), nil
		}
		return rdf.NewLiteral(lit.Language), nil
	case "DATATYPE":
		lit, ok := args[0].(*rdf.Literal)
		if !ok {
			return nil, qerror.TypeErr("DATATYPE applied to a non-literal term")
		}
		return lit.EffectiveDatatype(), nil
	case "STRLEN":
		s, err := requireString(args[0])
		if err != nil {
			return nil, err
		}
		return rdf.NewIntegerLiteral(int64(len([]rune(s)))), nil
	case "UCASE":
		return mapString(args[0], strings.ToUpper)
	case "LCASE":
		return mapString(args[0], strings.ToLower)
	case "SUBSTR":
		return evalSubstr(args)
	case "CONCAT":
		var sb strings.Builder
		for _, a := range args {
			s, err := requireString(a)
			if err != nil {
				return nil, err
			}
			sb.WriteString(s)
		}
		return rdf.NewLiteral(sb.String()), nil
	case "CONTAINS":
		return stringPredicate(args, strings.Contains)
	case "STRSTARTS":
		return stringPredicate(args, strings.HasPrefix)
	case "STRENDS":
		return stringPredicate(args, strings.HasSuffix)
	case "STRBEFORE":
		return strBeforeAfter(args, true)
	case "STRAFTER":
		return strBeforeAfter(args, false)
	case "REGEX":
		return evalRegex(args)
	case "REPLACE":
		return evalReplace(args)
	case "LANGMATCHES":
		langTag, err := requireString(args[0])
		if err != nil {
			return nil, err
		}
		pattern, err := requireString(args[1])
		if err != nil {
			return nil, err
		}
		return rdf.NewBooleanLiteral(langMatches(langTag, pattern)), nil
	case "SAMETERM":
		return rdf.NewBooleanLiteral(args[0].Equals(args[1])), nil
	case "ABS":
		f, ok := extractNumeric(args[0])
		if !ok {
			return nil, qerror.TypeErr("ABS applied to a non-numeric term")
		}
		return numericResultLike(args[0], math.Abs(f)), nil
	case "CEIL":
		f, ok := extractNumeric(args[0])
		if !ok {
			return nil, qerror.TypeErr("CEIL applied to a non-numeric term")
		}
		return numericResultLike(args[0], math.Ceil(f)), nil
	case "FLOOR":
		f, ok := extractNumeric(args[0])
		if !ok {
			return nil, qerror.TypeErr("FLOOR applied to a non-numeric term")
		}
		return numericResultLike(args[0], math.Floor(f)), nil
	case "ROUND":
		f, ok := extractNumeric(args[0])
		if !ok {
			return nil, qerror.TypeErr("ROUND applied to a non-numeric term")
		}
		return numericResultLike(args[0], math.Round(f)), nil
	case "MD5":
		return hashHex(args, md5.New().Size(), func(data []byte) []byte { s := md5.Sum(data); return s[:] })
	case "SHA1":
		return hashHex(args, sha1.Size, func(data []byte) []byte { s := sha1.Sum(data); return s[:] })
	case "SHA256":
		return hashHex(args, sha256.Size, func(data []byte) []byte { s := sha256.Sum256(data); return s[:] })
	case "SHA384":
		return hashHex(args, sha512.Size384, func(data []byte) []byte { s := sha512.Sum384(data); return s[:] })
	case "SHA512":
		return hashHex(args, sha512.Size, func(data []byte) []byte { s := sha512.Sum512(data); return s[:] })
	case "IRI", "URI":
		s, err := requireString(args[0])
		if err != nil {
			return nil, err
		}
		return rdf.NewNamedNode(s), nil
	case "BNODE":
		if len(args) == 0 {
			return rdf.NewBlankNode(uuid.NewString()), nil
		}
		s, err := requireString(args[0])
		if err != nil {
			return nil, err
		}
		return rdf.NewBlankNode(s), nil
	case "STRDT":
		s, err := requireString(args[0])
		if err != nil {
			return nil, err
		}
		dt, ok := args[1].(*rdf.NamedNode)
		if !ok {
			return nil, qerror.TypeErr("STRDT's second argument must be an IRI")
		}
		return rdf.NewLiteralWithDatatype(s, dt), nil
	case "STRLANG":
		s, err := requireString(args[0])
		if err != nil {
			return nil, err
		}
		lang, err := requireString(args[1])
		if err != nil {
			return nil, err
		}
		return rdf.NewLiteralWithLanguage(s, lang), nil
	case "UUID":
		return rdf.NewNamedNode("urn:uuid:" + uuid.NewString()), nil
	case "STRUUID":
		return rdf.NewLiteral(uuid.NewString()), nil
	default:
		return nil, qerror.Unsupported(fmt.Sprintf("unsupported function %s", f.Name))
	}
}

func strOf(t rdf.Term) (rdf.Term, error) {
	switch v := t.(type) {
	case *rdf.NamedNode:
		return rdf.NewLiteral(v.IRI), nil
	case *rdf.Literal:
		return rdf.NewLiteral(v.Value), nil
	default:
		return nil, qerror.TypeErr("STR cannot be applied to this term")
	}
}

func requireString(t rdf.Term) (string, error) {
	switch v := t.(type) {
	case *rdf.Literal:
		return v.Value, nil
	case *rdf.NamedNode:
		return v.IRI, nil
	default:
		return "", qerror.TypeErr("expected a string-valued term")
	}
}

func mapString(t rdf.Term, f func(string) string) (rdf.Term, error) {
	lit, ok := t.(*rdf.Literal)
	if !ok {
		return nil, qerror.TypeErr("string function applied to a non-literal term")
	}
	out := f(lit.Value)
	if lit.Language != "" {
		return rdf.NewLiteralWithLanguage(out, lit.Language), nil
	}
	if lit.Datatype != nil {
		return rdf.NewLiteralWithDatatype(out, lit.Datatype), nil
	}
	return rdf.NewLiteral(out), nil
}

func evalSubstr(args []rdf.Term) (rdf.Term, error) {
	if len(args) < 2 {
		return nil, qerror.TypeErr("SUBSTR requires at least 2 arguments")
	}
	s, err := requireString(args[0])
	if err != nil {
		return nil, err
	}
	runes := []rune(s)
	start, ok := extractNumeric(args[1])
	if !ok {
		return nil, qerror.TypeErr("SUBSTR's start argument must be numeric")
	}
	from := int(start) - 1 // SPARQL STARTING loc is 1-based
	if from < 0 {
		from = 0
	}
	if from > len(runes) {
		from = len(runes)
	}
	to := len(runes)
	if len(args) >= 3 {
		length, ok := extractNumeric(args[2])
		if !ok {
			return nil, qerror.TypeErr("SUBSTR's length argument must be numeric")
		}
		to = from + int(length)
		if to > len(runes) {
			to = len(runes)
		}
		if to < from {
			to = from
		}
	}
	return rdf.NewLiteral(string(runes[from:to])), nil
}

func stringPredicate(args []rdf.Term, pred func(s, substr string) bool) (rdf.Term, error) {
	a, err := requireString(args[0])
	if err != nil {
		return nil, err
	}
	b, err := requireString(args[1])
	if err != nil {
		return nil, err
	}
	return rdf.NewBooleanLiteral(pred(a, b)), nil
}

func strBeforeAfter(args []rdf.Term, before bool) (rdf.Term, error) {
	a, err := requireString(args[0])
	if err != nil {
		return nil, err
	}
	b, err := requireString(args[1])
	if err != nil {
		return nil, err
	}
	idx := strings.Index(a, b)
	if idx < 0 {
		return rdf.NewLiteral(""), nil
	}
	if before {
		return rdf.NewLiteral(a[:idx]), nil
	}
	return rdf.NewLiteral(a[idx+len(b):]), nil
}

func evalRegex(args []rdf.Term) (rdf.Term, error) {
	if len(args) < 2 {
		return nil, qerror.TypeErr("REGEX requires at least 2 arguments")
	}
	s, err := requireString(args[0])
	if err != nil {
		return nil, err
	}
	pattern, err := requireString(args[1])
	if err != nil {
		return nil, err
	}
	if len(args) >= 3 {
		flags, err := requireString(args[2])
		if err != nil {
			return nil, err
		}
		pattern = applyRegexFlags(pattern, flags)
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, qerror.TypeErr("invalid REGEX pattern: " + err.Error())
	}
	return rdf.NewBooleanLiteral(re.MatchString(s)), nil
}

func evalReplace(args []rdf.Term) (rdf.Term, error) {
	if len(args) < 3 {
		return nil, qerror.TypeErr("REPLACE requires at least 3 arguments")
	}
	s, err := requireString(args[0])
	if err != nil {
		return nil, err
	}
	pattern, err := requireString(args[1])
	if err != nil {
		return nil, err
	}
	replacement, err := requireString(args[2])
	if err != nil {
		return nil, err
	}
	if len(args) >= 4 {
		flags, err := requireString(args[3])
		if err != nil {
			return nil, err
		}
		pattern = applyRegexFlags(pattern, flags)
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, qerror.TypeErr("invalid REPLACE pattern: " + err.Error())
	}
	return rdf.NewLiteral(re.ReplaceAllString(s, replacement)), nil
}

// applyRegexFlags maps the SPARQL flags i, s and m onto Go regexp's
// inline flag syntax; any other flag, x included, is ignored.
func applyRegexFlags(pattern, flags string) string {
	var goFlags []byte
	for _, f := range flags {
		switch f {
		case 'i', 's', 'm':
			goFlags = append(goFlags, byte(f))
		}
	}
	if len(goFlags) == 0 {
		return pattern
	}
	return "(?" + string(goFlags) + ")" + pattern
}

func langMatches(tag, pattern string) bool {
	if pattern == "*" {
		return tag != ""
	}
	tag, pattern = strings.ToLower(tag), strings.ToLower(pattern)
	return tag == pattern || strings.HasPrefix(tag, pattern+"-")
}

func hashHex(args []rdf.Term, _ int, sum func([]byte) []byte) (rdf.Term, error) {
	s, err := requireString(args[0])
	if err != nil {
		return nil, err
	}
	return rdf.NewLiteral(hex.EncodeToString(sum([]byte(s)))), nil
}
