package crawler

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// DefaultPoolSize is the default number of concurrent fetch workers.
const DefaultPoolSize = 5

type result struct {
	body []byte
	err  error
}

// Future is the pending result of one submitted URL.
type Future struct {
	url string
	ch  chan result
}

// URL returns the URL this future was submitted for.
func (f *Future) URL() string { return f.url }

// Await blocks until the fetch completes or the context is done.
func (f *Future) Await(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-f.ch:
		return res.body, res.err
	}
}

type task struct {
	ctx    context.Context
	url    string
	future *Future
}

// Pool runs a fixed number of fetch workers over a shared task queue.
// Each worker applies the jitter delay before its fetch, so the pause
// rides inside the worker rather than stalling submission.
type Pool struct {
	fetcher Fetcher
	jitter  *Jitter
	tasks   chan task
	busy    atomic.Int32
	size    int

	group     *errgroup.Group
	closeOnce sync.Once
}

// NewPool starts size workers fetching through f. A nil jitter
// disables inter-fetch delays.
func NewPool(size int, f Fetcher, jitter *Jitter) *Pool {
	if size <= 0 {
		size = DefaultPoolSize
	}
	p := &Pool{
		fetcher: f,
		jitter:  jitter,
		tasks:   make(chan task, 4*size),
		size:    size,
		group:   new(errgroup.Group),
	}
	for i := 0; i < size; i++ {
		p.group.Go(p.work)
	}
	return p
}

func (p *Pool) work() error {
	for t := range p.tasks {
		p.busy.Add(1)
		res := p.fetch(t.ctx, t.url)
		p.busy.Add(-1)
		t.future.ch <- res
	}
	return nil
}

func (p *Pool) fetch(ctx context.Context, url string) result {
	if err := ctx.Err(); err != nil {
		return result{err: err}
	}
	if p.jitter != nil {
		if err := p.jitter.Sleep(ctx); err != nil {
			return result{err: err}
		}
	}
	body, err := p.fetcher.Fetch(ctx, url)
	return result{body: body, err: err}
}

// Submit queues one URL and returns its future. Blocks only when the
// task queue is saturated.
func (p *Pool) Submit(ctx context.Context, url string) *Future {
	f := &Future{url: url, ch: make(chan result, 1)}
	select {
	case <-ctx.Done():
		f.ch <- result{err: ctx.Err()}
	case p.tasks <- task{ctx: ctx, url: url, future: f}:
	}
	return f
}

// PoolStatus reports the worker split at a point in time.
type PoolStatus struct {
	Free int
	Busy int
}

// Status returns the current free/busy worker counts.
func (p *Pool) Status() PoolStatus {
	busy := int(p.busy.Load())
	return PoolStatus{Free: p.size - busy, Busy: busy}
}

// Close stops accepting work and waits for in-flight fetches.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		close(p.tasks)
		p.group.Wait()
	})
}
