// Package tcp implements the TCP connectors of the base package's listener and
// outbound connector.
//
// On Linux the listening socket is created with socket(2), bind(2) and listen(2) via
// golang.org/x/sys/unix so the accept backlog follows ServerConfig.MaxConn and every
// failure is reported with the step that failed (CreateFailed, BindFailed,
// ListenFailed). Other platforms fall back to net.ListenConfig with the OS backlog.
//
// Outbound connections are dialed with net.Dialer. A failing socket() is reported as
// CreateFailed, every other dial failure as ConnectFailed.
//
// Key Components:
//
//   - NewServer: base.Server with the TCP server connector
//
//   - NewConnector: base.Connector with the TCP client connector
//
// Accepted and dialed connections get the socket options of common.TCPConf (no delay,
// keep alive, linger, buffer sizes).
package tcp
