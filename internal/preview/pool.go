package preview

import (
	"context"
	"errors"
	"runtime"
	"sync"
)

var ErrPoolClosed = errors.New("preview pool is closed")

// Pool runs preview jobs on a fixed number of goroutines so image decoding
// never competes with request handling for more than that many CPUs.
type Pool struct {
	jobs chan func()
	quit chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	p := &Pool{
		jobs: make(chan func()),
		quit: make(chan struct{}),
	}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case job := <-p.jobs:
			job()
		case <-p.quit:
			return
		}
	}
}

// Submit hands job to an idle worker, blocking until one is free, ctx is done
// or the pool is closed.
func (p *Pool) Submit(ctx context.Context, job func()) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-p.quit:
		return ErrPoolClosed
	default:
	}

	select {
	case p.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.quit:
		return ErrPoolClosed
	}
}

// Close stops the workers after their current job.
func (p *Pool) Close() {
	p.once.Do(func() { close(p.quit) })
	p.wg.Wait()
}
