// Package cancel implements the cooperative cancellation token of §5: the
// evaluator polls it between produced solutions, between index seeks,
// between sort runs, and between group outputs. A wall-clock timeout is
// just a token wired to a timer.
package cancel

import (
	"context"
	"time"

	"github.com/aleksaelezovic/oxifuj/internal/qerror"
)

// Token is a cooperative cancellation signal threaded through evaluator
// iterators. It wraps a context.Context so CLI/server front-ends can
// derive tokens the ordinary Go way while the evaluator only depends on
// this narrow interface.
type Token struct {
	ctx context.Context
}

// New wraps ctx as a Token. A nil ctx is treated as context.Background().
func New(ctx context.Context) Token {
	if ctx == nil {
		ctx = context.Background()
	}
	return Token{ctx: ctx}
}

// WithTimeout derives a Token that cancels itself after d, along with the
// release function the caller must invoke once the query completes.
func WithTimeout(parent Token, d time.Duration) (Token, func()) {
	base := parent.ctx
	if base == nil {
		base = context.Background()
	}
	ctx, cancel := context.WithTimeout(base, d)
	return Token{ctx: ctx}, cancel
}

// Check returns a QueryTimeout or Cancelled *qerror.Error if the token has
// fired, nil otherwise. Evaluator operators call this between solutions.
func (t Token) Check() error {
	if t.ctx == nil {
		return nil
	}
	select {
	case <-t.ctx.Done():
		if t.ctx.Err() == context.DeadlineExceeded {
			return qerror.Timeout("query exceeded its wall-clock timeout")
		}
		return qerror.Cancelled("query execution was cancelled")
	default:
		return nil
	}
}

// Done reports whether the token has fired, without allocating an error.
func (t Token) Done() bool {
	if t.ctx == nil {
		return false
	}
	select {
	case <-t.ctx.Done():
		return true
	default:
		return false
	}
}
