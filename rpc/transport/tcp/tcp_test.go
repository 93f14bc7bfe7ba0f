package tcp

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/ValentinKolb/climastro/rpc/common"
	"github.com/ValentinKolb/climastro/rpc/transport"
	"github.com/ValentinKolb/climastro/rpc/transport/base"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startServer serves on an ephemeral loopback port and returns the client config for it
func startServer[C any](t *testing.T, s *base.Server[C]) common.ClientConfig {
	errCh := make(chan error, 1)
	go func() { errCh <- s.Serve() }()

	select {
	case <-s.Ready():
	case err := <-errCh:
		t.Fatalf("Serve failed: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("server not ready")
	}

	t.Cleanup(func() {
		_ = s.Shutdown(true)
		assert.NoError(t, <-errCh)
	})

	addr := s.Addr().(*net.TCPAddr)
	cfg := common.DefaultClientConfig("127.0.0.1", addr.Port)
	cfg.TimeoutSecond = 5
	return cfg
}

func loopbackConfig(maxConn, maxWorkers int) common.ServerConfig {
	cfg := common.DefaultServerConfig(0)
	cfg.Address = "127.0.0.1"
	cfg.MaxConn = maxConn
	cfg.MaxWorkers = maxWorkers
	return cfg
}

// closedPort returns a loopback port nothing listens on
func closedPort(t *testing.T) int {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

// pingPong writes data and reads the same amount back
func pingPong(conn net.Conn, data string) (string, error) {
	if _, err := conn.Write([]byte(data)); err != nil {
		return "", err
	}
	buf := make([]byte, len(data))
	if _, err := io.ReadFull(conn, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func TestEcho_TwoWorkersThreeClients(t *testing.T) {
	var current, peak atomic.Int32

	echo := func(conn net.Conn, _ struct{}) error {
		n := current.Add(1)
		defer current.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}

		buf := make([]byte, 4)
		if _, err := io.ReadFull(conn, buf); err != nil {
			return err
		}
		// keep the worker busy so the third client has to queue
		time.Sleep(50 * time.Millisecond)
		_, err := conn.Write(buf)
		return err
	}

	s := NewServer[struct{}](loopbackConfig(10, 2), echo, struct{}{})
	clientCfg := startServer(t, s)
	connector := NewConnector[string, string](clientCfg)

	var wg sync.WaitGroup
	results := make([]string, 3)
	errs := make([]error, 3)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = connector.RunSync(pingPong, "ping")
		}(i)
	}
	wg.Wait()

	for i := 0; i < 3; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "ping", results[i])
	}
	assert.LessOrEqual(t, peak.Load(), int32(2))

	assert.Eventually(t, func() bool {
		stats, ok := s.PoolStats()
		return ok && stats.Completed == 3
	}, time.Second, 5*time.Millisecond)

	stats, _ := s.PoolStats()
	assert.LessOrEqual(t, stats.MaxActive, 2)
}

func TestEcho_ExclusiveWorkers(t *testing.T) {
	cfg := loopbackConfig(10, 2)
	cfg.Exclusive = true

	echo := func(conn net.Conn, _ int) error {
		_, err := io.Copy(conn, io.LimitReader(conn, 4))
		return err
	}

	s := NewServer[int](cfg, echo, 0)
	connector := NewConnector[string, string](startServer(t, s))

	for i := 0; i < 5; i++ {
		got, err := connector.RunSync(pingPong, "pong")
		require.NoError(t, err)
		assert.Equal(t, "pong", got)
	}
}

func TestServer_BindConflict(t *testing.T) {
	occupied, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer occupied.Close()

	cfg := loopbackConfig(10, 1)
	cfg.Port = occupied.Addr().(*net.TCPAddr).Port

	s := NewServer[int](cfg, func(net.Conn, int) error { return nil }, 0)
	err = s.Serve()

	var terr *transport.Error
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, transport.BindFailed, terr.Step)
	assert.ErrorIs(t, err, transport.ErrBindFailed)
	assert.Equal(t, net.JoinHostPort("127.0.0.1", strconv.Itoa(cfg.Port)), terr.Endpoint)
}

func TestServer_InvalidPort(t *testing.T) {
	cfg := loopbackConfig(10, 1)
	cfg.Port = 1024

	s := NewServer[int](cfg, func(net.Conn, int) error { return nil }, 0)
	assert.ErrorIs(t, s.Serve(), transport.ErrInvalidPort)
}

func TestConnector_ConnectFailed(t *testing.T) {
	cfg := common.DefaultClientConfig("127.0.0.1", closedPort(t))
	cfg.TimeoutSecond = 2
	connector := NewConnector[string, string](cfg)

	var called atomic.Bool
	work := func(conn net.Conn, data string) (string, error) {
		called.Store(true)
		return data, nil
	}

	future, err := connector.Run(work, "ping")
	assert.Nil(t, future)
	assert.ErrorIs(t, err, transport.ErrConnectFailed)
	step, ok := transport.StepOf(err)
	assert.True(t, ok)
	assert.Equal(t, transport.ConnectFailed, step)
	assert.False(t, called.Load())

	_, err = connector.RunSync(work, "ping")
	assert.ErrorIs(t, err, transport.ErrConnectFailed)
	assert.False(t, called.Load())
}

func TestConnector_ConcurrentRuns(t *testing.T) {
	echo := func(conn net.Conn, _ int) error {
		buf := make([]byte, 3)
		if _, err := io.ReadFull(conn, buf); err != nil {
			return err
		}
		_, err := conn.Write(buf)
		return err
	}

	s := NewServer[int](loopbackConfig(64, 4), echo, 0)
	connector := NewConnector[string, string](startServer(t, s))

	futures := make([]*transport.Future[string], 0, 20)
	for i := 0; i < 20; i++ {
		f, err := connector.Run(pingPong, strconv.Itoa(100+i))
		require.NoError(t, err)
		futures = append(futures, f)
	}

	for i, f := range futures {
		got, err := f.Wait()
		require.NoError(t, err)
		assert.Equal(t, strconv.Itoa(100+i), got)
	}
}

func TestConnector_WorkErrorAndPanic(t *testing.T) {
	s := NewServer[int](loopbackConfig(10, 2), func(conn net.Conn, _ int) error {
		_, err := io.Copy(io.Discard, conn)
		return err
	}, 0)
	connector := NewConnector[int, int](startServer(t, s))

	_, err := connector.RunSync(func(net.Conn, int) (int, error) {
		return 0, errors.New("bad reply")
	}, 1)
	assert.EqualError(t, err, "bad reply")

	_, err = connector.RunSync(func(net.Conn, int) (int, error) {
		panic("boom")
	}, 1)
	assert.ErrorContains(t, err, "panicked")

	_, err = connector.Run(nil, 1)
	assert.ErrorIs(t, err, base.ErrNoWork)
}

func TestServer_DeadlineUnblocksSilentPeer(t *testing.T) {
	cfg := loopbackConfig(10, 1)
	cfg.TimeoutSecond = 1

	handlerErr := make(chan error, 1)
	s := NewServer[int](cfg, func(conn net.Conn, _ int) error {
		_, err := conn.Read(make([]byte, 1))
		handlerErr <- err
		return err
	}, 0)
	clientCfg := startServer(t, s)

	conn, err := net.Dial("tcp", clientCfg.Endpoint())
	require.NoError(t, err)
	defer conn.Close()

	select {
	case err := <-handlerErr:
		var netErr net.Error
		require.True(t, errors.As(err, &netErr))
		assert.True(t, netErr.Timeout())
	case <-time.After(3 * time.Second):
		t.Fatal("handler still blocked on a silent peer")
	}
}

// silentPeer accepts one connection and reads until it is closed without ever answering.
// The returned channel is closed once the peer saw the close.
func silentPeer(t *testing.T) (common.ClientConfig, <-chan struct{}) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })

	closed := make(chan struct{})
	go func() {
		conn, err := l.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		_, _ = io.Copy(io.Discard, conn)
		close(closed)
	}()

	cfg := common.DefaultClientConfig("127.0.0.1", l.Addr().(*net.TCPAddr).Port)
	cfg.TimeoutSecond = 0
	return cfg, closed
}

func awaitClosed(t *testing.T, closed <-chan struct{}) {
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("peer never saw the connection close")
	}
}

func TestConnector_ContextCancelClosesConnection(t *testing.T) {
	cfg, closed := silentPeer(t)
	connector := NewConnector[string, string](cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	future, err := connector.RunContext(ctx, pingPong, "hola")
	require.NoError(t, err)

	_, err = future.Wait()
	assert.ErrorIs(t, err, base.ErrCanceled)
	awaitClosed(t, closed)
}

func TestConnector_AbandonedWaitClosesConnection(t *testing.T) {
	cfg, closed := silentPeer(t)
	connector := NewConnector[string, string](cfg)

	future, err := connector.Run(pingPong, "hola")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err = future.WaitContext(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	awaitClosed(t, closed)
	_, err = future.Wait()
	assert.ErrorIs(t, err, base.ErrCanceled)
}

func TestConnector_CancelledBeforeRun(t *testing.T) {
	connector := NewConnector[string, string](common.DefaultClientConfig("127.0.0.1", closedPort(t)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := connector.RunContext(ctx, pingPong, "hola")
	assert.ErrorIs(t, err, base.ErrCanceled)
}

func TestConnector_CancelAfterCompletion(t *testing.T) {
	s := NewServer[int](loopbackConfig(10, 1), func(conn net.Conn, _ int) error {
		buf := make([]byte, 4)
		if _, err := io.ReadFull(conn, buf); err != nil {
			return err
		}
		_, err := conn.Write(buf)
		return err
	}, 0)
	connector := NewConnector[string, string](startServer(t, s))

	future, err := connector.Run(pingPong, "hola")
	require.NoError(t, err)
	result, err := future.Wait()
	require.NoError(t, err)

	future.Cancel()
	again, err := future.Wait()
	assert.NoError(t, err)
	assert.Equal(t, result, again)
	assert.Equal(t, "hola", again)
}

// A server built from a zero value config must deliver everything it wrote before
// closing, the close must not reset the connection.
func TestServer_ZeroConfigFlushesOnClose(t *testing.T) {
	payload := bytes.Repeat([]byte("climastro"), 1<<20)

	s := NewServer[int](common.ServerConfig{Address: "127.0.0.1", MaxWorkers: 2}, func(conn net.Conn, _ int) error {
		_, err := conn.Write(payload)
		return err
	}, 0)
	cfg := startServer(t, s)

	for i := 0; i < 3; i++ {
		conn, err := net.Dial("tcp", cfg.Endpoint())
		require.NoError(t, err)
		require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))

		received, err := io.ReadAll(conn)
		require.NoError(t, err)
		assert.Equal(t, len(payload), len(received))
		assert.True(t, bytes.Equal(payload, received))
		require.NoError(t, conn.Close())
	}
}

func TestDialStep(t *testing.T) {
	assert.Equal(t, transport.ConnectFailed, dialStep(errors.New("refused")))
	assert.Equal(t, transport.ConnectFailed, dialStep(&net.OpError{Op: "dial", Err: os.NewSyscallError("connect", syscall.ECONNREFUSED)}))
	assert.Equal(t, transport.CreateFailed, dialStep(&net.OpError{Op: "dial", Err: os.NewSyscallError("socket", syscall.EMFILE)}))
}
