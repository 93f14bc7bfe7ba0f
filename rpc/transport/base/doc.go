// Package base implements the protocol independent part of the connection-dispatch
// framework. It is extended with protocol specific connectors (see package tcp).
//
// Key Components:
//
//   - IServerConnector/IClientConnector: Interfaces for protocol-specific socket
//     creation and connection tuning, injected into the generic types below.
//
//   - Server[C]: Single accept loop that hands every accepted connection to a
//     pool.Pool. Each connection gets a uuid, is tracked in an xsync map of active
//     connections and is closed exactly once, by the worker after the handler returned
//     or when the pool discards its work item. Socket, bind and listen failures are
//     returned before the loop starts; an accept or submit failure ends the loop. The
//     listening socket is closed exactly once on every exit path. Shutdown stops the
//     loop and drains (wait) or discards (no wait) the pool.
//
//   - Connector[D, R]: Connects synchronously and runs the work function on its own
//     goroutine, returning a transport.Future. The connection is local to the call, so
//     concurrent Run calls on one Connector are safe.
//
// Deadlines:
//
//	When TimeoutSecond is set, every Read and Write on a server or client connection
//	refreshes the respective deadline, so a silent peer cannot block a worker forever.
//
// Metrics:
//
//	Both types export prometheus counters and histograms through VictoriaMetrics/metrics
//	(climastro_server_* and climastro_client_*).
package base
