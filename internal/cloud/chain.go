package cloud

import (
	"context"
	"fmt"
)

// Step is one stage of a chained operation.
type Step struct {
	Name string
	Run  func(ctx context.Context) error
}

// Chain runs steps in order. The context is checked before every step, so a
// cancellation between steps stops the chain with a Canceled error. The
// first failing step ends the chain; its error is wrapped with the step
// name and keeps its kind. Work done by earlier steps is not undone.
func Chain(ctx context.Context, steps ...Step) error {
	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			return Canceled(err)
		}
		if err := step.Run(ctx); err != nil {
			return fmt.Errorf("%s (step %d of %d): %w", step.Name, i+1, len(steps), err)
		}
	}
	return nil
}

// Sequential applies fn to each item in order and collects the results.
//
// It stops at the first error or when ctx is cancelled and returns the
// results gathered so far together with that error.
func Sequential[T, R any](ctx context.Context, items []T, fn func(context.Context, T) (R, error)) ([]R, error) {
	results := make([]R, 0, len(items))
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return results, Canceled(err)
		}
		r, err := fn(ctx, item)
		if err != nil {
			return results, fmt.Errorf("item %d of %d: %w", i+1, len(items), err)
		}
		results = append(results, r)
	}
	return results, nil
}
