// Package transport defines the contracts of the connection-dispatch framework shared by
// every service: the per-connection handler of a listener, the per-call work function of
// an outbound connector with its Future, and the error taxonomy of both.
//
// Key Components:
//
//   - HandleFunc[C]: Handler invoked on a pool worker for each accepted connection, with
//     typed caller data instead of an untyped context pointer.
//
//   - WorkFunc[D, R] / Future[R]: A round trip executed by a connector on a dedicated
//     goroutine and the handle to await (Wait, WaitContext, Done) or abandon (Cancel) it.
//     Abandoning a future closes its connection.
//
//   - IServer: Lifecycle of a listener (Serve, Shutdown, Addr) independent of its
//     handler data type.
//
//   - Error / Step: Structured error naming the failed step (CreateFailed, BindFailed,
//     ListenFailed, AcceptFailed, ConnectFailed, InvalidPort, SubmitFailed). Every
//     step has a sentinel (ErrBindFailed, ...) usable with errors.Is.
//
// The generic implementations live in package base, the TCP specific socket handling in
// package tcp.
package transport
