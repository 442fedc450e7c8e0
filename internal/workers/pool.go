package workers

import (
	"context"
	"fmt"
	"hash/fnv"

	"golang.org/x/sync/errgroup"

	"sdc-indexer/internal/metrics"
)

// Handler processes one item. A returned error stops the worker that
// received the item; the other workers keep running.
type Handler[T any] func(ctx context.Context, worker int, item T) error

// Pool is a fixed-size set of consumers over a channel.
type Pool[T any] struct {
	// Size is the number of workers. Values below 1 mean 1.
	Size int
	// Handle processes each received item.
	Handle Handler[T]
	// OnDrop, if set, is called for items received after ctx is done.
	// They are not handled.
	OnDrop func(T)
	// Key, if set, routes every item with the same key to the same worker,
	// so items sharing a key are handled one at a time in arrival order.
	Key func(T) string
	// Buffer is the per-worker channel size used with Key. Defaults to 64.
	Buffer int
}

// Run starts the workers and blocks until all of them have exited. A worker
// exits when src is closed, when ctx is done, or when Handle fails. The
// context is checked again after each receive so that no item is handled
// once shutdown has begun; an item already being handled runs to completion.
// Run returns the first Handle error.
func (p *Pool[T]) Run(ctx context.Context, src <-chan T) error {
	if p.Handle == nil {
		return fmt.Errorf("workers: pool has no handler")
	}
	size := p.Size
	if size < 1 {
		size = 1
	}

	inputs := make([]<-chan T, size)
	var g errgroup.Group
	if p.Key == nil {
		for i := range inputs {
			inputs[i] = src
		}
	} else {
		lanes := p.lanes(size)
		for i, lane := range lanes {
			inputs[i] = lane
		}
		g.Go(func() error {
			p.dispatch(ctx, src, lanes)
			return nil
		})
	}

	for id := 1; id <= size; id++ {
		in := inputs[id-1]
		g.Go(func() error {
			metrics.WorkersActive.Inc()
			defer metrics.WorkersActive.Dec()
			return p.consume(ctx, id, in)
		})
	}
	return g.Wait()
}

func (p *Pool[T]) lanes(size int) []chan T {
	buffer := p.Buffer
	if buffer <= 0 {
		buffer = 64
	}
	lanes := make([]chan T, size)
	for i := range lanes {
		lanes[i] = make(chan T, buffer)
	}
	return lanes
}

// dispatch routes items from src to lanes by key hash until src is closed
// or ctx is done, then closes every lane.
func (p *Pool[T]) dispatch(ctx context.Context, src <-chan T, lanes []chan T) {
	defer func() {
		for _, lane := range lanes {
			close(lane)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case item, ok := <-src:
			if !ok {
				return
			}
			h := fnv.New32a()
			_, _ = h.Write([]byte(p.Key(item)))
			lane := lanes[h.Sum32()%uint32(len(lanes))]
			select {
			case lane <- item:
			case <-ctx.Done():
				if p.OnDrop != nil {
					p.OnDrop(item)
				}
				return
			}
		}
	}
}

func (p *Pool[T]) consume(ctx context.Context, id int, src <-chan T) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case item, ok := <-src:
			if !ok {
				return nil
			}
			if ctx.Err() != nil {
				if p.OnDrop != nil {
					p.OnDrop(item)
				}
				return nil
			}
			if err := p.Handle(ctx, id, item); err != nil {
				return fmt.Errorf("worker %d: %w", id, err)
			}
		}
	}
}
