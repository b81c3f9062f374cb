package pool

import (
	"fmt"

	"golang.org/x/sync/errgroup"
)

// BoundedPool runs each job on its own goroutine but never more than size at
// once; Spawn blocks until a slot frees up.
type BoundedPool struct {
	group errgroup.Group
}

func NewBoundedPool(size int) (*BoundedPool, error) {
	if size <= 0 {
		return nil, fmt.Errorf("pool size must be positive, got %d", size)
	}
	p := &BoundedPool{}
	p.group.SetLimit(size)
	return p, nil
}

func (p *BoundedPool) Spawn(job func()) {
	p.group.Go(func() error {
		runJob(job)
		return nil
	})
}

func (p *BoundedPool) Close() {
	_ = p.group.Wait()
}
