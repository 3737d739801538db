package dispatch

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/semaphore"
)

// ErrPoolClosed is returned by Pool.Dispatch after Close.
var ErrPoolClosed = errors.New("dispatch: pool closed")

// Dispatcher runs fn on its execution context and returns once fn has
// returned. If ctx is done before fn starts, fn does not run and the
// context error is returned.
type Dispatcher interface {
	Dispatch(ctx context.Context, fn func()) error
}

type unconfined struct{}

// Unconfined returns a Dispatcher that runs work on the calling goroutine.
func Unconfined() Dispatcher {
	return unconfined{}
}

func (unconfined) Dispatch(ctx context.Context, fn func()) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fn()
	return nil
}

// Pool is a Dispatcher that runs work on at most a fixed number of
// goroutines at a time.
type Pool struct {
	sem *semaphore.Weighted

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewPool returns a pool running at most workers functions at once.
// workers below 1 is treated as 1.
func NewPool(workers int) *Pool {
	return &Pool{sem: semaphore.NewWeighted(int64(max(workers, 1)))}
}

// Dispatch implements Dispatcher. A panic in fn is re-raised on the
// calling goroutine.
func (p *Pool) Dispatch(ctx context.Context, fn func()) error {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return ErrPoolClosed
	}
	p.wg.Add(1)
	p.mu.RUnlock()
	defer p.wg.Done()

	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	// Acquire may win a race with cancellation.
	if err := ctx.Err(); err != nil {
		p.sem.Release(1)
		return err
	}

	done := make(chan any, 1)
	go func() {
		defer p.sem.Release(1)
		defer func() { done <- recover() }()
		fn()
	}()
	if v := <-done; v != nil {
		panic(v)
	}
	return nil
}

// Close stops the pool from accepting work and waits for work already
// dispatched to finish. It is safe to call more than once.
func (p *Pool) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.wg.Wait()
	return nil
}
