package pool

import (
	"fmt"
	"sync"
)

// SharedQueuePool feeds a fixed set of workers from one channel. A job that
// panics is recovered and its worker goes on serving the queue.
type SharedQueuePool struct {
	jobs chan func()
	wg   sync.WaitGroup
	once sync.Once
}

func NewSharedQueuePool(size int) (*SharedQueuePool, error) {
	if size <= 0 {
		return nil, fmt.Errorf("pool size must be positive, got %d", size)
	}
	p := &SharedQueuePool{jobs: make(chan func(), size)}
	p.wg.Add(size)
	for i := 0; i < size; i++ {
		go p.work()
	}
	return p, nil
}

func (p *SharedQueuePool) work() {
	defer p.wg.Done()
	for job := range p.jobs {
		runJob(job)
	}
}

// Spawn queues job, blocking while every worker is busy and the queue is full.
// Spawning after Close panics.
func (p *SharedQueuePool) Spawn(job func()) {
	p.jobs <- job
}

func (p *SharedQueuePool) Close() {
	p.once.Do(func() {
		close(p.jobs)
	})
	p.wg.Wait()
}
