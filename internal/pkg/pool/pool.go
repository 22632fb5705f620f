// Package pool is a fixed-size worker pool used to run order side effects
// (confirmation email, analytics event) off the request path.
package pool

import "sync"

type Pool struct {
	jobs chan func()
	wg   sync.WaitGroup
}

func New(workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	p := &Pool{
		jobs: make(chan func(), workers*2),
	}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer p.wg.Done()
			for f := range p.jobs {
				if f != nil {
					f()
				}
			}
		}()
	}
	return p
}

func (p *Pool) Submit(f func()) {
	p.jobs <- f
}

func (p *Pool) Close() {
	close(p.jobs)
}

func (p *Pool) Wait() {
	p.wg.Wait()
}
