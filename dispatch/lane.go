package dispatch

import (
	"context"
	"sync"
)

// Lane serializes calls on one handle in the order they reach Do. The zero
// value is ready to use. A Lane must not be copied after first use.
type Lane struct {
	mu   sync.Mutex
	tail chan struct{} // closed when the last admitted call releases
}

// enqueue appends a call to the lane. The call may run once prev is closed
// and must close next when it is done.
func (l *Lane) enqueue() (prev <-chan struct{}, next chan struct{}) {
	next = make(chan struct{})
	l.mu.Lock()
	p := l.tail
	l.tail = next
	l.mu.Unlock()
	if p == nil {
		p = make(chan struct{})
		close(p)
	}
	return p, next
}

// Do waits for earlier calls on the lane, then runs fn through d.
//
// If ctx is done before fn starts, fn never runs and the context error is
// returned; the call's place in the lane is handed on once the calls ahead
// of it finish. If ctx is done while fn runs, Do still waits for fn and
// returns the context error.
func (l *Lane) Do(ctx context.Context, d Dispatcher, fn func() error) error {
	prev, next := l.enqueue()

	select {
	case <-prev:
	case <-ctx.Done():
		go func() {
			<-prev
			close(next)
		}()
		return ctx.Err()
	}
	defer close(next)

	if err := ctx.Err(); err != nil {
		return err
	}

	var fnErr error
	if err := d.Dispatch(ctx, func() { fnErr = fn() }); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return fnErr
}

// Call is Do for functions that return a value. The zero T is returned with
// any error.
func Call[T any](ctx context.Context, l *Lane, d Dispatcher, fn func() (T, error)) (T, error) {
	var out T
	err := l.Do(ctx, d, func() error {
		v, err := fn()
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}
