package evaluator

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/aleksaelezovic/oxifuj/internal/algebra"
	"github.com/aleksaelezovic/oxifuj/internal/qerror"
	"github.com/aleksaelezovic/oxifuj/internal/rdf"
)

// compileGroup implements §4.7's Group/aggregate: materialize the group
// key into a hash table, maintain per-group aggregate state, and emit
// one solution per group binding the group keys plus each aggregate's
// Result variable. With no GROUP BY keys, the whole input is one group
// — and an ungrouped aggregate over zero input rows still emits exactly
// one row (§8: "COUNT(*) on an empty pattern is 0; SUM on empty is 0;
// AVG on empty yields a type error"). An aggregate that finishes with a
// type error leaves its Result variable unbound in that row.
func (e *Evaluator) compileGroup(g *algebra.Group, parent Binding) (Iterator, error) {
	inner, err := e.Compile(g.Input, parent)
	if err != nil {
		return nil, err
	}
	defer inner.Close()

	type groupState struct {
		keyBinding Binding
		accs       []*aggAccumulator
	}
	groups := map[string]*groupState{}
	var order []string

	ensureGroup := func(keyBinding Binding, key string) *groupState {
		gs, ok := groups[key]
		if !ok {
			accs := make([]*aggAccumulator, len(g.Aggregates))
			for i, ag := range g.Aggregates {
				accs[i] = newAggAccumulator(ag)
			}
			gs = &groupState{keyBinding: keyBinding, accs: accs}
			groups[key] = gs
			order = append(order, key)
		}
		return gs
	}

	sawInput := false
	for {
		if err := e.Tok.Check(); err != nil {
			return nil, err
		}
		b, ok, err := inner.Next(e.Tok)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		sawInput = true

		keyBinding := Binding{}
		var keyParts []string
		for i, keyExpr := range g.Keys {
			val, err := e.Evaluate(keyExpr, b)
			if err != nil {
				keyParts = append(keyParts, fmt.Sprintf("#err%d", i))
				continue
			}
			if v, ok := keyExpr.(*algebra.VarExpr); ok {
				keyBinding[v.Var] = val
			}
			keyParts = append(keyParts, termKey(val))
		}
		gs := ensureGroup(keyBinding, strings.Join(keyParts, "\x1f"))
		for i, ag := range g.Aggregates {
			if err := gs.accs[i].observe(e, ag, b); err != nil && ag.Func != algebra.AggSample {
				gs.accs[i].err = err
			}
		}
	}

	if len(g.Keys) == 0 && !sawInput {
		ensureGroup(Binding{}, "")
	}

	sort.Strings(order)
	rows := make([]Binding, 0, len(order))
	for _, key := range order {
		gs := groups[key]
		row := gs.keyBinding.clone()
		for i, ag := range g.Aggregates {
			val, err := gs.accs[i].finish(ag)
			if qerror.Is(err, qerror.KindTypeError) {
				continue
			}
			if err != nil {
				return nil, err
			}
			row[ag.Result] = val
		}
		rows = append(rows, row)
	}
	return &sliceBindingIterator{items: rows}, nil
}

// aggAccumulator holds one aggregate's running state across a group's
// rows. SAMPLE is deterministic within a run by taking the first row
// observed (§4.7's "SAMPLE is deterministic within a run (first seen)").
type aggAccumulator struct {
	count    int64
	sum      float64
	min, max rdf.Term
	sample   rdf.Term
	distinct map[string]bool
	parts    []string
	err      error
}

func newAggAccumulator(ag algebra.AggregateBinding) *aggAccumulator {
	a := &aggAccumulator{}
	if ag.Distinct {
		a.distinct = map[string]bool{}
	}
	return a
}

func (a *aggAccumulator) observe(e *Evaluator, ag algebra.AggregateBinding, b Binding) error {
	if ag.Func == algebra.AggCount && ag.Arg == nil {
		a.count++
		return nil
	}

	val, err := e.Evaluate(ag.Arg, b)
	if err != nil {
		if ag.Func == algebra.AggCount {
			return nil // COUNT(expr) skips rows where expr errors
		}
		return err
	}

	if ag.Distinct {
		key := termKey(val)
		if a.distinct[key] {
			return nil
		}
		a.distinct[key] = true
	}

	switch ag.Func {
	case algebra.AggCount:
		a.count++
	case algebra.AggSum, algebra.AggAvg:
		f, ok := extractNumeric(val)
		if !ok {
			return qerror.TypeErr("aggregate applied to a non-numeric term")
		}
		a.sum += f
		a.count++
	case algebra.AggMin:
		if a.min == nil {
			a.min = val
		} else if cmp, err := compareTerms(val, a.min); err == nil && cmp < 0 {
			a.min = val
		}
	case algebra.AggMax:
		if a.max == nil {
			a.max = val
		} else if cmp, err := compareTerms(val, a.max); err == nil && cmp > 0 {
			a.max = val
		}
	case algebra.AggSample:
		if a.sample == nil {
			a.sample = val
		}
	case algebra.AggGroupConcat:
		s, err := requireString(val)
		if err != nil {
			return err
		}
		a.parts = append(a.parts, s)
		a.count++
	}
	return nil
}

func (a *aggAccumulator) finish(ag algebra.AggregateBinding) (rdf.Term, error) {
	if a.err != nil {
		return nil, a.err
	}
	switch ag.Func {
	case algebra.AggCount:
		return rdf.NewIntegerLiteral(a.count), nil
	case algebra.AggSum:
		// §8: SUM on an empty sequence is 0.
		if a.count == 0 {
			return rdf.NewIntegerLiteral(0), nil
		}
		if a.sum == math.Trunc(a.sum) {
			return rdf.NewIntegerLiteral(int64(a.sum)), nil
		}
		return rdf.NewDecimalLiteral(a.sum), nil
	case algebra.AggAvg:
		// §8: AVG on an empty sequence yields a type error.
		if a.count == 0 {
			return nil, qerror.TypeErr("AVG of an empty sequence")
		}
		return rdf.NewDecimalLiteral(a.sum / float64(a.count)), nil
	case algebra.AggMin:
		if a.min == nil {
			return nil, qerror.TypeErr("MIN of an empty sequence")
		}
		return a.min, nil
	case algebra.AggMax:
		if a.max == nil {
			return nil, qerror.TypeErr("MAX of an empty sequence")
		}
		return a.max, nil
	case algebra.AggSample:
		if a.sample == nil {
			return nil, qerror.TypeErr("SAMPLE of an empty sequence")
		}
		return a.sample, nil
	case algebra.AggGroupConcat:
		sep := ag.Sep
		if sep == "" {
			sep = " "
		}
		return rdf.NewLiteral(strings.Join(a.parts, sep)), nil
	default:
		return nil, qerror.Unsupported("unsupported aggregate function")
	}
}
