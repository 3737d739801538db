// Package dispatch runs blocking work on an execution context chosen by
// the caller and orders work per handle.
//
// A Dispatcher decides where a function runs. Unconfined runs it on the
// calling goroutine; a Pool runs it on one of a bounded number of
// goroutines:
//
//	pool := dispatch.NewPool(4)
//	defer pool.Close()
//
// A Lane orders calls on one handle. Calls are admitted in the order they
// reach Do and never overlap:
//
//	var lane dispatch.Lane
//	n, err := dispatch.Call(ctx, &lane, pool, func() (int, error) {
//		return eng.TextCountChars(ref)
//	})
//
// Waiting is cooperative. A call whose context is cancelled before it is
// admitted never runs. A call already running is not interrupted: the lane
// stays held until it returns, its result is dropped and the context error
// is returned.
package dispatch
