package base

import (
	"net"
	"sync"
	"time"
)

// managedConn wraps a connection owned by a worker. Close is idempotent so a handler may
// close the connection itself without the worker closing it a second time, and every
// Read and Write refreshes its deadline when a timeout is configured.
type managedConn struct {
	net.Conn
	timeout time.Duration

	closeOnce sync.Once
	closeErr  error
}

func wrapConn(conn net.Conn, timeout time.Duration) *managedConn {
	return &managedConn{Conn: conn, timeout: timeout}
}

func (c *managedConn) Read(b []byte) (int, error) {
	if c.timeout > 0 {
		if err := c.Conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
			return 0, err
		}
	}
	return c.Conn.Read(b)
}

func (c *managedConn) Write(b []byte) (int, error) {
	if c.timeout > 0 {
		if err := c.Conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
			return 0, err
		}
	}
	return c.Conn.Write(b)
}

func (c *managedConn) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.Conn.Close()
	})
	return c.closeErr
}

// seconds converts a config value to a duration, values <= 0 mean no timeout
func seconds(sec int) time.Duration {
	if sec <= 0 {
		return 0
	}
	return time.Duration(sec) * time.Second
}
