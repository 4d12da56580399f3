package evaluator

import (
	"github.com/aleksaelezovic/oxifuj/internal/algebra"
	"github.com/aleksaelezovic/oxifuj/internal/cancel"
)

// compileJoin implements §4.7's natural join: for each Left solution,
// compile Right with that solution as parent and emit it unchanged
// (Right's compiled iterator has already folded Left's bindings into
// its own pattern matching, so every solution Right produces is
// already compatible by construction — a nested-loop join of index
// seeks, exactly as §4.7 describes for Bgp/Path).
func (e *Evaluator) compileJoin(j *algebra.Join, parent Binding) (Iterator, error) {
	left, err := e.Compile(j.Left, parent)
	if err != nil {
		return nil, err
	}
	return &joinIterator{e: e, right: j.Right, left: left}, nil
}

type joinIterator struct {
	e     *Evaluator
	right algebra.Node
	left  Iterator
	cur   Iterator
}

func (it *joinIterator) Next(tok cancel.Token) (Binding, bool, error) {
	for {
		if it.cur != nil {
			b, ok, err := it.cur.Next(tok)
			if err != nil {
				return nil, false, err
			}
			if ok {
				return b, true, nil
			}
			it.cur.Close()
			it.cur = nil
		}
		if err := tok.Check(); err != nil {
			return nil, false, err
		}
		lb, ok, err := it.left.Next(tok)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return nil, false, nil
		}
		cur, err := it.e.Compile(it.right, lb)
		if err != nil {
			return nil, false, err
		}
		it.cur = cur
	}
}

func (it *joinIterator) Close() error {
	var first error
	if it.cur != nil {
		if err := it.cur.Close(); err != nil {
			first = err
		}
	}
	if err := it.left.Close(); err != nil && first == nil {
		first = err
	}
	return first
}

// compileLeftJoin implements §4.7's OPTIONAL: every left solution is
// kept; it is extended by every compatible right solution (subject to
// Filter) when at least one exists, else emitted unchanged.
func (e *Evaluator) compileLeftJoin(lj *algebra.LeftJoin, parent Binding) (Iterator, error) {
	left, err := e.Compile(lj.Left, parent)
	if err != nil {
		return nil, err
	}
	return &leftJoinIterator{e: e, node: lj, left: left}, nil
}

type leftJoinIterator struct {
	e        *Evaluator
	node     *algebra.LeftJoin
	left     Iterator
	cur      Iterator
	curLB    Binding
	emittedAny bool
}

func (it *leftJoinIterator) Next(tok cancel.Token) (Binding, bool, error) {
	for {
		if it.cur != nil {
			rb, ok, err := it.cur.Next(tok)
			if err != nil {
				return nil, false, err
			}
			if ok {
				if it.node.Filter != nil && !it.e.effectiveBooleanValueOf(it.node.Filter, rb) {
					continue
				}
				it.emittedAny = true
				return rb, true, nil
			}
			it.cur.Close()
			it.cur = nil
			if !it.emittedAny {
				return it.curLB, true, nil
			}
			continue
		}
		if err := tok.Check(); err != nil {
			return nil, false, err
		}
		lb, ok, err := it.left.Next(tok)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return nil, false, nil
		}
		cur, err := it.e.Compile(it.node.Right, lb)
		if err != nil {
			return nil, false, err
		}
		it.cur = cur
		it.curLB = lb
		it.emittedAny = false
	}
}

func (it *leftJoinIterator) Close() error {
	var first error
	if it.cur != nil {
		if err := it.cur.Close(); err != nil {
			first = err
		}
	}
	if err := it.left.Close(); err != nil && first == nil {
		first = err
	}
	return first
}

// compileMinus implements §4.7's MINUS: a left solution survives unless
// a compatible right solution exists sharing at least one bound
// variable (SPARQL's domain-overlap rule). Right is compiled afresh
// against the empty parent for each left solution, so its own variables
// are independent of Left's, and read only up to the first excluding
// match.
func (e *Evaluator) compileMinus(m *algebra.Minus, parent Binding) (Iterator, error) {
	left, err := e.Compile(m.Left, parent)
	if err != nil {
		return nil, err
	}
	return &minusIterator{e: e, right: m.Right, left: left}, nil
}

type minusIterator struct {
	e     *Evaluator
	right algebra.Node
	left  Iterator
}

func (it *minusIterator) Next(tok cancel.Token) (Binding, bool, error) {
	for {
		if err := tok.Check(); err != nil {
			return nil, false, err
		}
		lb, ok, err := it.left.Next(tok)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return nil, false, nil
		}
		excluded, err := it.excludedBy(lb)
		if err != nil {
			return nil, false, err
		}
		if !excluded {
			return lb, true, nil
		}
	}
}

func (it *minusIterator) excludedBy(lb Binding) (bool, error) {
	rit, err := it.e.Compile(it.right, Binding{})
	if err != nil {
		return false, err
	}
	defer rit.Close()
	for {
		rb, ok, err := rit.Next(it.e.Tok)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
		if lb.sharesBoundVar(rb) && lb.compatible(rb) {
			return true, nil
		}
	}
}

func (it *minusIterator) Close() error { return it.left.Close() }

// compileUnion implements SPARQL's UNION: Left's solutions followed by
// Right's (§4.7: "concatenation preserving order of first-then-second
// branches").
func (e *Evaluator) compileUnion(u *algebra.Union, parent Binding) (Iterator, error) {
	left, err := e.Compile(u.Left, parent)
	if err != nil {
		return nil, err
	}
	right, err := e.Compile(u.Right, parent)
	if err != nil {
		left.Close()
		return nil, err
	}
	return &unionIterator{left: left, right: right}, nil
}

type unionIterator struct {
	left, right Iterator
	onRight     bool
}

func (it *unionIterator) Next(tok cancel.Token) (Binding, bool, error) {
	if !it.onRight {
		b, ok, err := it.left.Next(tok)
		if err != nil {
			return nil, false, err
		}
		if ok {
			return b, true, nil
		}
		it.onRight = true
	}
	return it.right.Next(tok)
}

func (it *unionIterator) Close() error {
	err1 := it.left.Close()
	err2 := it.right.Close()
	if err1 != nil {
		return err1
	}
	return err2
}
