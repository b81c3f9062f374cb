package pool

import "sync"

// NaivePool starts one goroutine per job.
type NaivePool struct {
	wg sync.WaitGroup
}

func NewNaivePool() *NaivePool {
	return &NaivePool{}
}

func (p *NaivePool) Spawn(job func()) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		runJob(job)
	}()
}

func (p *NaivePool) Close() {
	p.wg.Wait()
}
