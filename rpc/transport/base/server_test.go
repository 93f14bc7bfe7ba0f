package base

import (
	"bytes"
	"errors"
	"io"
	"net"
	"os"
	"regexp"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ValentinKolb/climastro/rpc/common"
	"github.com/ValentinKolb/climastro/rpc/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	if err := common.InitLoggers("info"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// --------------------------------------------------------------------------
// Fakes
// --------------------------------------------------------------------------

// syncBuffer is a bytes.Buffer safe for concurrent writers
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// countingConn counts how often the underlying connection is closed
type countingConn struct {
	net.Conn
	closes *atomic.Int32
}

func (c *countingConn) Close() error {
	c.closes.Add(1)
	return c.Conn.Close()
}

// pipeListener hands out the server ends of net.Pipe pairs
type pipeListener struct {
	conns     chan net.Conn
	acceptErr error
	closed    chan struct{}
	closeOnce sync.Once
	closes    atomic.Int32
}

func newPipeListener() *pipeListener {
	return &pipeListener{conns: make(chan net.Conn), closed: make(chan struct{})}
}

func (l *pipeListener) Accept() (net.Conn, error) {
	select {
	case conn := <-l.conns:
		return conn, nil
	case <-l.closed:
		if l.acceptErr != nil {
			return nil, l.acceptErr
		}
		return nil, net.ErrClosed
	}
}

func (l *pipeListener) Close() error {
	l.closes.Add(1)
	l.closeOnce.Do(func() { close(l.closed) })
	return nil
}

func (l *pipeListener) Addr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0}
}

// dial returns the client end of a new connection and the close counter of the server end
func (l *pipeListener) dial(t *testing.T) (net.Conn, *atomic.Int32) {
	client, server := net.Pipe()
	closes := &atomic.Int32{}
	select {
	case l.conns <- &countingConn{Conn: server, closes: closes}:
	case <-time.After(time.Second):
		t.Fatal("listener did not accept")
	}
	return client, closes
}

// fakeServerConnector returns a prepared listener or error
type fakeServerConnector struct {
	listener net.Listener
	err      error
}

func (c *fakeServerConnector) Listen(common.ServerConfig) (net.Listener, error) {
	return c.listener, c.err
}

func (c *fakeServerConnector) UpgradeConnection(net.Conn, common.ServerConfig) error { return nil }

func (c *fakeServerConnector) GetName() string { return "fake" }

func testServerConfig() common.ServerConfig {
	cfg := common.DefaultServerConfig(0)
	cfg.MaxWorkers = 2
	return cfg
}

func serveAsync[C any](t *testing.T, s *Server[C]) <-chan error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.Serve() }()
	select {
	case <-s.Ready():
	case err := <-errCh:
		t.Fatalf("Serve returned early: %v", err)
	case <-time.After(time.Second):
		t.Fatal("server not ready")
	}
	return errCh
}

// --------------------------------------------------------------------------
// Tests
// --------------------------------------------------------------------------

func TestServer_FailingHandlerClosesOnce(t *testing.T) {
	listener := newPipeListener()
	handlerDone := make(chan struct{}, 3)

	handler := func(conn net.Conn, data string) error {
		defer func() { handlerDone <- struct{}{} }()
		buf := make([]byte, 4)
		if _, err := io.ReadFull(conn, buf); err != nil {
			return err
		}
		// the handler closes the connection itself and fails afterward
		_ = conn.Close()
		return errors.New(data)
	}

	s := NewServer[string](&fakeServerConnector{listener: listener}, testServerConfig(), handler, "handler failed")
	errCh := serveAsync(t, s)

	var counters []*atomic.Int32
	for i := 0; i < 3; i++ {
		client, closes := listener.dial(t)
		counters = append(counters, closes)
		_, err := client.Write([]byte("ping"))
		require.NoError(t, err)
		defer client.Close()
	}

	for i := 0; i < 3; i++ {
		select {
		case <-handlerDone:
		case <-time.After(time.Second):
			t.Fatal("handler did not run")
		}
	}

	assert.Eventually(t, func() bool { return s.ActiveConnections() == 0 }, time.Second, 5*time.Millisecond)
	for _, closes := range counters {
		assert.Equal(t, int32(1), closes.Load())
	}

	require.NoError(t, s.Shutdown(true))
	assert.NoError(t, <-errCh)
	assert.Equal(t, int32(1), listener.closes.Load())
}

func TestServer_PanickingHandlerClosesConnection(t *testing.T) {
	listener := newPipeListener()
	handler := func(conn net.Conn, _ struct{}) error {
		panic("boom")
	}

	s := NewServer[struct{}](&fakeServerConnector{listener: listener}, testServerConfig(), handler, struct{}{})
	errCh := serveAsync(t, s)

	client, closes := listener.dial(t)
	defer client.Close()

	assert.Eventually(t, func() bool { return closes.Load() == 1 }, time.Second, 5*time.Millisecond)

	// the worker survived
	client2, closes2 := listener.dial(t)
	defer client2.Close()
	assert.Eventually(t, func() bool { return closes2.Load() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, s.Shutdown(true))
	assert.NoError(t, <-errCh)
}

func TestServer_AcceptErrorEndsLoop(t *testing.T) {
	listener := newPipeListener()
	listener.acceptErr = errors.New("too many open files")

	s := NewServer[int](&fakeServerConnector{listener: listener}, testServerConfig(),
		func(net.Conn, int) error { return nil }, 0)
	errCh := serveAsync(t, s)

	// simulate a failing accept without Shutdown
	listener.closeOnce.Do(func() { close(listener.closed) })

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, transport.ErrAcceptFailed)
		step, ok := transport.StepOf(err)
		assert.True(t, ok)
		assert.Equal(t, transport.AcceptFailed, step)
	case <-time.After(time.Second):
		t.Fatal("accept loop did not terminate")
	}

	assert.Equal(t, int32(1), listener.closes.Load(), "listener must be closed exactly once")

	// a later Shutdown must not close it again
	require.NoError(t, s.Shutdown(true))
	assert.Equal(t, int32(1), listener.closes.Load())
}

func TestServer_StartupErrors(t *testing.T) {
	t.Run("ListenError", func(t *testing.T) {
		listenErr := transport.NewError(transport.BindFailed, ":24000", errors.New("address already in use"))
		s := NewServer[int](&fakeServerConnector{err: listenErr}, testServerConfig(),
			func(net.Conn, int) error { return nil }, 0)

		err := s.Serve()
		assert.ErrorIs(t, err, transport.ErrBindFailed)
		assert.Nil(t, s.Addr())
	})

	t.Run("InvalidPort", func(t *testing.T) {
		for _, port := range []int{80, 1024, 70000} {
			cfg := testServerConfig()
			cfg.Port = port
			s := NewServer[int](&fakeServerConnector{listener: newPipeListener()}, cfg,
				func(net.Conn, int) error { return nil }, 0)

			err := s.Serve()
			assert.ErrorIs(t, err, transport.ErrInvalidPort, "port %d", port)
			assert.ErrorIs(t, err, common.ErrInvalidPort)
		}
	})

	t.Run("ServeTwice", func(t *testing.T) {
		s := NewServer[int](&fakeServerConnector{err: errors.New("nope")}, testServerConfig(),
			func(net.Conn, int) error { return nil }, 0)
		assert.Error(t, s.Serve())
		assert.Error(t, s.Serve())
	})
}

func TestServer_ShutdownWithoutWaitClosesActive(t *testing.T) {
	listener := newPipeListener()
	started := make(chan struct{}, 1)

	// the handler blocks until its connection is closed
	handler := func(conn net.Conn, _ int) error {
		started <- struct{}{}
		_, err := io.ReadAll(conn)
		return err
	}

	cfg := testServerConfig()
	cfg.MaxWorkers = 1
	s := NewServer[int](&fakeServerConnector{listener: listener}, cfg, handler, 0)
	errCh := serveAsync(t, s)

	client1, closes1 := listener.dial(t)
	defer client1.Close()
	<-started

	// queued behind the blocked handler
	client2, closes2 := listener.dial(t)
	defer client2.Close()

	require.NoError(t, s.Shutdown(false))
	assert.NoError(t, <-errCh)

	assert.Eventually(t, func() bool {
		return closes1.Load() == 1 && closes2.Load() == 1
	}, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return s.ActiveConnections() == 0 }, time.Second, 5*time.Millisecond)
}

func TestServer_ShutdownBeforeServe(t *testing.T) {
	listener := newPipeListener()
	s := NewServer[int](&fakeServerConnector{listener: listener}, testServerConfig(),
		func(net.Conn, int) error { return nil }, 0)

	require.NoError(t, s.Shutdown(true))
	assert.NoError(t, s.Serve())
	assert.Equal(t, int32(1), listener.closes.Load())

	select {
	case <-s.Ready():
	case <-time.After(time.Second):
		t.Fatal("Ready blocks after Serve returned")
	}
	_, ok := s.PoolStats()
	assert.False(t, ok)
}

func TestServer_ShutdownReportsDiscardedOnce(t *testing.T) {
	var warnings syncBuffer
	restore := common.SetLogOutput(io.Discard, &warnings)
	defer restore()

	listener := newPipeListener()
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	handler := func(net.Conn, int) error {
		started <- struct{}{}
		<-release
		return nil
	}

	cfg := testServerConfig()
	cfg.MaxWorkers = 1
	s := NewServer[int](&fakeServerConnector{listener: listener}, cfg, handler, 0)
	errCh := serveAsync(t, s)

	client1, _ := listener.dial(t)
	defer client1.Close()
	<-started

	client2, closes2 := listener.dial(t)
	defer client2.Close()
	client3, closes3 := listener.dial(t)
	defer client3.Close()

	require.Eventually(t, func() bool {
		stats, ok := s.PoolStats()
		return ok && stats.Submitted == 3
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, s.Shutdown(false))
	close(release)
	assert.NoError(t, <-errCh)

	assert.Eventually(t, func() bool {
		return closes2.Load() == 1 && closes3.Load() == 1
	}, time.Second, 5*time.Millisecond)

	summary := regexp.MustCompile(`(?i)discarded 2 queued`)
	assert.Len(t, summary.FindAllString(warnings.String(), -1), 1, warnings.String())
}
