// Package jobs runs data-parallel kernels on a fixed set of worker
// goroutines.
package jobs

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// Pool is a fixed worker pool. One ParallelFor runs at a time; it blocks
// until every batch has been processed.
type Pool struct {
	workers int
	tasks   chan *task
	mu      sync.Mutex
	closed  bool
	wg      sync.WaitGroup
}

type task struct {
	n     int
	batch int
	next  atomic.Int64
	fn    func(start, end int)
	done  sync.WaitGroup
}

// run claims batches until the range is exhausted.
func (t *task) run() {
	for {
		start := int(t.next.Add(int64(t.batch))) - t.batch
		if start >= t.n {
			return
		}
		t.fn(start, min(start+t.batch, t.n))
	}
}

// NewPool starts workers goroutines. workers <= 0 uses GOMAXPROCS.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	p := &Pool{
		workers: workers,
		tasks:   make(chan *task, workers),
	}
	// the calling goroutine works too, so start one fewer helper
	for i := 0; i < workers-1; i++ {
		p.wg.Add(1)
		go p.loop()
	}
	return p
}

func (p *Pool) loop() {
	defer p.wg.Done()
	for t := range p.tasks {
		t.run()
		t.done.Done()
	}
}

// Workers returns the number of goroutines a ParallelFor can use.
func (p *Pool) Workers() int {
	return p.workers
}

// ParallelFor calls fn over [0, n) in batches of at most batch items.
// Batches are handed out dynamically, so uneven work balances itself.
// batch <= 0 splits the range evenly across the workers.
func (p *Pool) ParallelFor(n, batch int, fn func(start, end int)) {
	if n <= 0 {
		return
	}
	if batch <= 0 {
		batch = (n + p.workers - 1) / p.workers
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	t := &task{n: n, batch: batch, fn: fn}
	helpers := min(p.workers-1, (n+batch-1)/batch-1)
	if p.closed || helpers <= 0 {
		t.run()
		return
	}

	t.done.Add(helpers)
	for i := 0; i < helpers; i++ {
		p.tasks <- t
	}
	t.run()
	t.done.Wait()
}

// Close stops the workers. ParallelFor keeps working on the calling
// goroutine after Close.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()
	p.wg.Wait()
}
