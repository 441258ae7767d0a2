// Package settle runs independent tasks concurrently and collects every
// outcome, successful or not. One failing task never cancels its siblings.
package settle

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"golang.org/x/sync/errgroup"
)

// ErrPanic is wrapped by the error recorded for a task that panicked.
var ErrPanic = errors.New("task panicked")

// Outcome is the settled result of one task.
type Outcome[T any] struct {
	Value T
	Err   error
}

// OK reports whether the task completed without error.
func (o Outcome[T]) OK() bool {
	return o.Err == nil
}

// All runs fn for every input with at most limit tasks in flight
// (limit <= 0 means unbounded) and returns one Outcome per input, in input order.
//
// The context passed to fn is ctx itself, not a derived errgroup context,
// so a failure never cancels the remaining tasks. Panics are recovered and
// reported as errors wrapping ErrPanic.
func All[In, Out any](ctx context.Context, inputs []In, limit int, fn func(context.Context, In) (Out, error)) []Outcome[Out] {
	outcomes := make([]Outcome[Out], len(inputs))
	if len(inputs) == 0 {
		return outcomes
	}

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, in := range inputs {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					outcomes[i].Err = fmt.Errorf("%w: %v\n%s", ErrPanic, r, debug.Stack())
				}
			}()
			v, err := fn(ctx, in)
			outcomes[i] = Outcome[Out]{Value: v, Err: err}
			return nil
		})
	}

	// tasks never return an error to the group
	_ = g.Wait()
	return outcomes
}

// Errors returns the non-nil errors in outcomes, in order.
func Errors[T any](outcomes []Outcome[T]) []error {
	var errs []error
	for _, o := range outcomes {
		if o.Err != nil {
			errs = append(errs, o.Err)
		}
	}
	return errs
}
