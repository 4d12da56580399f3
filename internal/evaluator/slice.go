package evaluator

import (
	"github.com/aleksaelezovic/oxifuj/internal/algebra"
	"github.com/aleksaelezovic/oxifuj/internal/cancel"
)

// compileSlice implements OFFSET/LIMIT (§4.7): skip Offset solutions,
// emit up to Length (a negative Length means unbounded). LIMIT 0 never
// pulls a solution from Input at all (§8's boundary behavior).
func (e *Evaluator) compileSlice(s *algebra.Slice, parent Binding) (Iterator, error) {
	if s.Length == 0 {
		return &emptyIterator{}, nil
	}
	inner, err := e.Compile(s.Input, parent)
	if err != nil {
		return nil, err
	}
	return &sliceIterator{inner: inner, toSkip: s.Offset, remaining: s.Length}, nil
}

type sliceIterator struct {
	inner     Iterator
	toSkip    int64
	remaining int64 // negative means unbounded
	emitted   int64
}

func (it *sliceIterator) Next(tok cancel.Token) (Binding, bool, error) {
	for it.toSkip > 0 {
		if err := tok.Check(); err != nil {
			return nil, false, err
		}
		_, ok, err := it.inner.Next(tok)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return nil, false, nil
		}
		it.toSkip--
	}
	if it.remaining == 0 {
		return nil, false, nil
	}
	b, ok, err := it.inner.Next(tok)
	if err != nil || !ok {
		return nil, ok, err
	}
	if it.remaining > 0 {
		it.remaining--
	}
	return b, true, nil
}

func (it *sliceIterator) Close() error { return it.inner.Close() }
