// Package enrich runs enrichment steps over a stream of items: steps of one
// stage in parallel, stages in order.
package enrich

import "context"

// Step mutates item in place. Steps of the same stage run concurrently on
// the same item and must not write the same fields.
type Step[T any] func(ctx context.Context, item *T) error

// Stage groups steps that may run in parallel for one item.
type Stage[T any] struct {
	steps []Step[T]
}

func NewStage[T any](steps ...Step[T]) Stage[T] {
	return Stage[T]{steps: steps}
}
