package base

import (
	"errors"
	"fmt"
	"github.com/VictoriaMetrics/metrics"
	"github.com/ValentinKolb/climastro/lib/pool"
	"github.com/ValentinKolb/climastro/rpc/common"
	"github.com/ValentinKolb/climastro/rpc/transport"
	"github.com/google/uuid"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

var Logger = logger.GetLogger("transport")

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IServerConnector defines the interface for transport-specific server operations
type IServerConnector interface {
	// Listen creates, binds and listens. Failures are returned as *transport.Error
	// with step CreateFailed, BindFailed or ListenFailed.
	Listen(config common.ServerConfig) (net.Listener, error)

	// UpgradeConnection applies protocol-specific settings to an accepted connection
	UpgradeConnection(conn net.Conn, config common.ServerConfig) error

	// GetName returns the name of the transport type (e.g., "tcp")
	GetName() string
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// serverMetrics holds the prometheus metrics of one server
type serverMetrics struct {
	accepted      *metrics.Counter
	active        *metrics.Counter
	discarded     *metrics.Counter
	handlerErrors *metrics.Counter
	panics        *metrics.Counter
	duration      *metrics.Histogram
}

func newServerMetrics(name string) *serverMetrics {
	label := fmt.Sprintf(`{server=%q}`, name)
	return &serverMetrics{
		accepted:      metrics.GetOrCreateCounter("climastro_server_connections_accepted_total" + label),
		active:        metrics.GetOrCreateCounter("climastro_server_connections_active" + label),
		discarded:     metrics.GetOrCreateCounter("climastro_server_connections_discarded_total" + label),
		handlerErrors: metrics.GetOrCreateCounter("climastro_server_handler_errors_total" + label),
		panics:        metrics.GetOrCreateCounter("climastro_server_handler_panics_total" + label),
		duration:      metrics.GetOrCreateHistogram("climastro_server_handler_duration_seconds" + label),
	}
}

// connTask is the work item of one accepted connection
type connTask[C any] struct {
	server *Server[C]
	id     uuid.UUID
	conn   *managedConn
}

func (t *connTask[C]) Execute() {
	s := t.server
	start := time.Now()

	defer s.release(t.id, t.conn)
	defer func() {
		if r := recover(); r != nil {
			s.metrics.panics.Inc()
			Logger.Errorf("Handler panicked on connection %s from %s: %v", t.id, t.conn.RemoteAddr(), r)
		}
	}()

	err := s.handler(t.conn, s.data)
	s.metrics.duration.UpdateDuration(start)

	if err != nil {
		s.metrics.handlerErrors.Inc()
		Logger.Warningf("Handler failed on connection %s from %s: %v", t.id, t.conn.RemoteAddr(), err)
		return
	}
	Logger.Debugf("Handled connection %s from %s in %s", t.id, t.conn.RemoteAddr(), time.Since(start))
}

func (t *connTask[C]) Discard() {
	t.server.metrics.discarded.Inc()
	Logger.Warningf("Discarded connection %s from %s", t.id, t.conn.RemoteAddr())
	t.server.release(t.id, t.conn)
}

// -----------------------------------------------------------
// Server
// -----------------------------------------------------------

// Server accepts connections in a single loop and hands each one to a bounded worker
// pool that runs the handler. Every accepted connection is closed exactly once, by the
// worker after the handler returned or when its work item is discarded.
type Server[C any] struct {
	connector IServerConnector
	config    common.ServerConfig
	handler   transport.HandleFunc[C]
	data      C
	name      string

	mu       sync.Mutex
	listener net.Listener
	pool     *pool.Pool
	stopping bool
	ready    chan struct{}

	started   atomic.Bool
	closeOnce sync.Once

	conns   *xsync.MapOf[uuid.UUID, *managedConn]
	metrics *serverMetrics
}

// NewServer creates a server that runs handler with data for every accepted connection
func NewServer[C any](connector IServerConnector, config common.ServerConfig, handler transport.HandleFunc[C], data C) *Server[C] {
	name := fmt.Sprintf("%s:%s", connector.GetName(), config.Endpoint())
	return &Server[C]{
		connector: connector,
		config:    config,
		handler:   handler,
		data:      data,
		name:      name,
		ready:     make(chan struct{}),
		conns:     xsync.NewMapOf[uuid.UUID, *managedConn](),
		metrics:   newServerMetrics(name),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IServer)
// --------------------------------------------------------------------------

func (s *Server[C]) Serve() error {
	if !s.started.CompareAndSwap(false, true) {
		return errors.New("server already started")
	}
	if s.handler == nil {
		return errors.New("no handler registered")
	}

	endpoint := s.config.Endpoint()

	if err := s.config.Validate(); err != nil {
		if errors.Is(err, common.ErrInvalidPort) {
			return transport.NewError(transport.InvalidPort, endpoint, err)
		}
		return err
	}

	// Create listener using the connector
	listener, err := s.connector.Listen(s.config)
	if err != nil {
		return err
	}

	p, err := pool.New(pool.Config{
		Name:        s.name,
		MaxWorkers:  s.config.Workers(),
		Exclusive:   s.config.Exclusive,
		IdleTimeout: seconds(s.config.IdleTimeoutSecond),
	})
	if err != nil {
		_ = listener.Close()
		return fmt.Errorf("failed to create worker pool: %w", err)
	}

	s.mu.Lock()
	if s.stopping {
		// shut down before the listener was published, Ready must not block forever
		close(s.ready)
		s.mu.Unlock()
		_ = listener.Close()
		p.Shutdown(false)
		return nil
	}
	s.listener = listener
	s.pool = p
	close(s.ready)
	s.mu.Unlock()

	defer s.closeListener()

	Logger.Infof("Starting %s server on %s with %d workers (exclusive: %t, backlog: %d)",
		s.connector.GetName(), listener.Addr(), s.config.Workers(), s.config.Exclusive, s.config.Backlog())

	// Accept connections
	for {
		conn, err := listener.Accept()
		if err != nil {
			if s.isStopping() {
				return nil
			}
			Logger.Errorf("Accept error: %v", err)
			s.abort()
			return transport.NewError(transport.AcceptFailed, endpoint, err)
		}
		s.metrics.accepted.Inc()

		if err := s.dispatch(conn); err != nil {
			if s.isStopping() {
				return nil
			}
			Logger.Errorf("Failed to submit connection: %v", err)
			s.abort()
			return transport.NewError(transport.SubmitFailed, endpoint, err)
		}
	}
}

func (s *Server[C]) Shutdown(wait bool) error {
	s.mu.Lock()
	s.stopping = true
	p := s.pool
	s.mu.Unlock()

	s.closeListener()

	if p == nil {
		return nil
	}

	Logger.Infof("Shutting down %s server (wait: %t)", s.name, wait)
	// the pool reports discarded connections itself
	p.Shutdown(wait)

	if !wait {
		// force close connections that are still being handled
		s.conns.Range(func(id uuid.UUID, conn *managedConn) bool {
			Logger.Debugf("Closing active connection %s", id)
			_ = conn.Close()
			return true
		})
	}

	return nil
}

func (s *Server[C]) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Ready is closed once the server is listening, or when Serve returned because Shutdown
// came first
func (s *Server[C]) Ready() <-chan struct{} {
	return s.ready
}

// ActiveConnections returns the number of accepted connections not yet closed
func (s *Server[C]) ActiveConnections() int {
	return s.conns.Size()
}

// PoolStats returns the statistics of the worker pool, ok is false before Serve listened
func (s *Server[C]) PoolStats() (stats pool.Stats, ok bool) {
	s.mu.Lock()
	p := s.pool
	s.mu.Unlock()
	if p == nil {
		return pool.Stats{}, false
	}
	return p.Stats(), true
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// dispatch registers conn and submits it to the pool. On failure conn is already closed.
func (s *Server[C]) dispatch(conn net.Conn) error {
	if err := s.connector.UpgradeConnection(conn, s.config); err != nil {
		Logger.Warningf("Failed to upgrade connection from %s: %v", conn.RemoteAddr(), err)
	}

	task := &connTask[C]{
		server: s,
		id:     uuid.New(),
		conn:   wrapConn(conn, seconds(s.config.TimeoutSecond)),
	}
	s.conns.Store(task.id, task.conn)
	s.metrics.active.Inc()

	Logger.Debugf("Accepted connection %s from %s", task.id, conn.RemoteAddr())

	if err := s.pool.Submit(task); err != nil {
		s.release(task.id, task.conn)
		return err
	}
	return nil
}

// release closes conn and removes it from the active connections
func (s *Server[C]) release(id uuid.UUID, conn *managedConn) {
	if err := conn.Close(); err != nil {
		Logger.Debugf("Close of connection %s: %v", id, err)
	}
	if _, ok := s.conns.LoadAndDelete(id); ok {
		s.metrics.active.Dec()
	}
}

// closeListener closes the listening socket exactly once
func (s *Server[C]) closeListener() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		listener := s.listener
		s.mu.Unlock()
		if listener == nil {
			return
		}
		if err := listener.Close(); err != nil {
			Logger.Warningf("Failed to close listener %s: %v", s.name, err)
		}
	})
}

// abort stops the pool after a fatal accept loop error. Queued connections are
// discarded, handlers already running finish on their own.
func (s *Server[C]) abort() {
	s.mu.Lock()
	s.stopping = true
	p := s.pool
	s.mu.Unlock()
	if p != nil {
		p.Shutdown(false)
	}
}

func (s *Server[C]) isStopping() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopping
}
