package enrich

import (
	"context"
	"log"
	"sync"
)

// Pipeline applies a sequence of stages to every item read from a channel.
// Steps within a stage run in parallel and stages run one after another.
// Step errors are logged and do not stop the item.
type Pipeline[T any] struct {
	stages []Stage[T]
}

func NewPipeline[T any](stages ...Stage[T]) *Pipeline[T] {
	return &Pipeline[T]{stages: stages}
}

// Process returns a channel that emits each item of in once all stages have
// run on it. The output is closed after in is closed or ctx is done.
func (p *Pipeline[T]) Process(ctx context.Context, in <-chan *T) <-chan *T {
	out := make(chan *T)
	go func() {
		defer close(out)
		for item := range in {
			p.Apply(ctx, item)
			select {
			case out <- item:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Apply runs every stage on a single item.
func (p *Pipeline[T]) Apply(ctx context.Context, item *T) {
	for _, stage := range p.stages {
		var wg sync.WaitGroup
		for _, step := range stage.steps {
			wg.Add(1)
			go func(step Step[T]) {
				defer wg.Done()
				if err := step(ctx, item); err != nil {
					log.Printf("Step failed: %v", err)
				}
			}(step)
		}
		wg.Wait()
	}
}
