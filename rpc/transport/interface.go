package transport

import (
	"context"
	"net"
	"sync"
)

// --------------------------------------------------------------------------
// Server Transport
// --------------------------------------------------------------------------

// HandleFunc processes one accepted connection. It is called on a pool worker with the
// data the server was created with. The worker closes conn after HandleFunc returns, a
// returned error is logged and does not affect other connections.
type HandleFunc[C any] func(conn net.Conn, data C) error

// IServer is implemented by all listeners, independent of their handler data type
type IServer interface {
	// Serve binds, listens and runs the accept loop until Shutdown or an unrecoverable error
	Serve() error
	// Shutdown stops accepting and shuts the worker pool down. With wait set, queued and
	// in-flight connections are processed first, otherwise queued connections are
	// discarded and active ones are closed.
	Shutdown(wait bool) error
	// Addr returns the bound address or nil before the server is listening
	Addr() net.Addr
}

// --------------------------------------------------------------------------
// Client Transport
// --------------------------------------------------------------------------

// WorkFunc performs one round trip on a connected conn. The connector closes conn after
// WorkFunc returns.
type WorkFunc[D, R any] func(conn net.Conn, data D) (R, error)

// Future is the pending result of a WorkFunc
type Future[R any] struct {
	done   chan struct{}
	once   sync.Once
	result R
	err    error

	cancel     func()
	cancelOnce sync.Once
}

// NewFuture returns a pending future and the function that completes it. Only the first
// call of the complete function has an effect. cancel is run at most once by Cancel and
// must make the pending work return (e.g. by closing its connection), it may be nil.
func NewFuture[R any](cancel func()) (*Future[R], func(R, error)) {
	f := &Future[R]{done: make(chan struct{}), cancel: cancel}
	return f, func(result R, err error) {
		f.once.Do(func() {
			f.result = result
			f.err = err
			close(f.done)
		})
	}
}

// Wait blocks until the result is available
func (f *Future[R]) Wait() (R, error) {
	<-f.done
	return f.result, f.err
}

// WaitContext blocks until the result is available or ctx is done. Giving up cancels the
// work, so an abandoned future does not keep its connection open.
func (f *Future[R]) WaitContext(ctx context.Context) (R, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-ctx.Done():
		f.Cancel()
		var zero R
		return zero, ctx.Err()
	}
}

// Cancel abandons the work. It has no effect once the result is available.
func (f *Future[R]) Cancel() {
	select {
	case <-f.done:
		return
	default:
	}
	if f.cancel != nil {
		f.cancelOnce.Do(f.cancel)
	}
}

// Done is closed when the result is available
func (f *Future[R]) Done() <-chan struct{} {
	return f.done
}
