// Package deadline provides a single reusable call-with-deadline helper so
// every network operation attaches its time bound the same way. Each call
// owns an independent derived context; cancelling one call never affects
// another in-flight call.
package deadline

import (
	"context"
	"errors"
	"time"
)

// ErrExceeded is returned (joined with context.DeadlineExceeded) when the
// wrapped call did not finish within its bound.
var ErrExceeded = errors.New("operation deadline exceeded")

// Do runs fn with its own deadline of d. When d is zero or negative the call
// runs without a bound. The derived context is always cancelled on return so
// in-flight work tied to it is released.
func Do(ctx context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	if fn == nil {
		return errors.New("deadline: nil function")
	}
	if d <= 0 {
		return fn(ctx)
	}

	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	err := fn(ctx)
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		return errors.Join(ErrExceeded, err)
	}
	return err
}

// Exceeded reports whether err resulted from an expired deadline, either via
// this package or a raw context.DeadlineExceeded bubbled up from transports.
func Exceeded(err error) bool {
	return errors.Is(err, ErrExceeded) || errors.Is(err, context.DeadlineExceeded)
}
