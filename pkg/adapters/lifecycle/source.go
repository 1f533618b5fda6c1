// Package lifecycle exposes collection change events as a lifecycle.Source,
// so a vault can be driven by the same supervisor as any other event stream.
package lifecycle

import (
	"context"
	"sync"

	"github.com/aretw0/lifecycle"

	"github.com/aretw0/tagvault/pkg/core"
)

type changeSource struct {
	inputs []<-chan core.Event
	out    chan lifecycle.Event
}

// NewSource creates a lifecycle.Source that merges the change events of one
// or more collections. The event stream closes once every input is closed
// or the context passed to Start is done.
func NewSource(inputs ...<-chan core.Event) lifecycle.Source {
	return &changeSource{
		inputs: inputs,
		out:    make(chan lifecycle.Event),
	}
}

func (s *changeSource) Events() <-chan lifecycle.Event {
	return s.out
}

func (s *changeSource) Start(ctx context.Context) error {
	var wg sync.WaitGroup
	wg.Add(len(s.inputs))
	for _, in := range s.inputs {
		lifecycle.Go(ctx, func(ctx context.Context) error {
			defer wg.Done()
			return s.forward(ctx, in)
		})
	}
	lifecycle.Go(ctx, func(context.Context) error {
		wg.Wait()
		close(s.out)
		return nil
	})
	return nil
}

// forward copies one input to the shared output. core.Event satisfies
// lifecycle.Event through its String method.
func (s *changeSource) forward(ctx context.Context, in <-chan core.Event) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-in:
			if !ok {
				return nil
			}
			select {
			case s.out <- e:
			case <-ctx.Done():
				return nil
			}
		}
	}
}
