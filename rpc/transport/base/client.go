package base

import (
	"context"
	"errors"
	"fmt"
	"github.com/VictoriaMetrics/metrics"
	"github.com/ValentinKolb/climastro/rpc/common"
	"github.com/ValentinKolb/climastro/rpc/transport"
	"net"
	"runtime/debug"
	"sync/atomic"
	"time"
)

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IClientConnector defines the interface for transport-specific connection operations
type IClientConnector interface {
	// Connect creates a socket and connects it to the configured endpoint. Failures are
	// returned as *transport.Error with step CreateFailed or ConnectFailed.
	Connect(config common.ClientConfig) (net.Conn, error)

	// UpgradeConnection applies protocol-specific settings to an established connection
	UpgradeConnection(conn net.Conn, config common.ClientConfig) error

	// GetName returns the name of the transport type (e.g., "tcp")
	GetName() string
}

var (
	// ErrNoWork is returned by Run for a nil work function
	ErrNoWork = errors.New("no work func")
	// ErrCanceled is the error of a future whose work was cancelled before it returned
	ErrCanceled = errors.New("work cancelled")
)

// -----------------------------------------------------------
// Connector
// -----------------------------------------------------------

// Connector runs request/response round trips against one fixed endpoint. Every Run
// uses a fresh connection that is local to the call, so a Connector may be used by
// several goroutines at once.
type Connector[D, R any] struct {
	connector IClientConnector
	config    common.ClientConfig

	runs          *metrics.Counter
	connectErrors *metrics.Counter
	workErrors    *metrics.Counter
	cancellations *metrics.Counter
	duration      *metrics.Histogram
}

// NewConnector creates a connector for the endpoint of config
func NewConnector[D, R any](connector IClientConnector, config common.ClientConfig) *Connector[D, R] {
	label := fmt.Sprintf(`{client=%q}`, connector.GetName()+":"+config.Endpoint())
	return &Connector[D, R]{
		connector:     connector,
		config:        config,
		runs:          metrics.GetOrCreateCounter("climastro_client_runs_total" + label),
		connectErrors: metrics.GetOrCreateCounter("climastro_client_connect_errors_total" + label),
		workErrors:    metrics.GetOrCreateCounter("climastro_client_work_errors_total" + label),
		cancellations: metrics.GetOrCreateCounter("climastro_client_cancellations_total" + label),
		duration:      metrics.GetOrCreateHistogram("climastro_client_round_trip_duration_seconds" + label),
	}
}

// Run connects synchronously. If that fails the error names the failed step and work is
// not called. Otherwise work runs on its own goroutine and the returned future yields its
// result. The connection is closed exactly once, after work returned or when the future
// is cancelled; a panic in work is recovered and returned as the future's error.
func (c *Connector[D, R]) Run(work transport.WorkFunc[D, R], data D) (*transport.Future[R], error) {
	return c.RunContext(context.Background(), work, data)
}

// RunContext is Run with cancellation: when ctx is done before work returned, the
// connection is closed and the future fails with ErrCanceled.
func (c *Connector[D, R]) RunContext(ctx context.Context, work transport.WorkFunc[D, R], data D) (*transport.Future[R], error) {
	if work == nil {
		return nil, ErrNoWork
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCanceled, err)
	}

	c.runs.Inc()

	conn, err := c.connector.Connect(c.config)
	if err != nil {
		c.connectErrors.Inc()
		Logger.Debugf("Failed to connect to %s: %v", c.config.Endpoint(), err)
		return nil, err
	}

	if err := c.connector.UpgradeConnection(conn, c.config); err != nil {
		Logger.Warningf("Failed to upgrade connection to %s: %v", c.config.Endpoint(), err)
	}

	mc := wrapConn(conn, seconds(c.config.TimeoutSecond))

	// closing the connection unblocks work
	var cancelled atomic.Bool
	future, complete := transport.NewFuture[R](func() {
		cancelled.Store(true)
		c.cancellations.Inc()
		Logger.Debugf("Cancelled work on %s", c.config.Endpoint())
		_ = mc.Close()
	})
	stop := context.AfterFunc(ctx, future.Cancel)

	go func() {
		var (
			result R
			err    error
		)
		start := time.Now()

		defer func() {
			stop()
			if r := recover(); r != nil {
				Logger.Errorf("Work on %s panicked: %v\n%s", c.config.Endpoint(), r, debug.Stack())
				err = fmt.Errorf("work panicked: %v", r)
			}
			if closeErr := mc.Close(); closeErr != nil && !cancelled.Load() {
				Logger.Debugf("Close of connection to %s: %v", c.config.Endpoint(), closeErr)
			}
			if cancelled.Load() && err != nil {
				err = fmt.Errorf("%w: %v", ErrCanceled, err)
			}
			if err != nil {
				c.workErrors.Inc()
			}
			c.duration.UpdateDuration(start)
			complete(result, err)
		}()

		result, err = work(mc, data)
	}()

	return future, nil
}

// RunSync runs work and waits for its result
func (c *Connector[D, R]) RunSync(work transport.WorkFunc[D, R], data D) (R, error) {
	future, err := c.Run(work, data)
	if err != nil {
		var zero R
		return zero, err
	}
	return future.Wait()
}

// Endpoint returns the remote endpoint of the connector
func (c *Connector[D, R]) Endpoint() string {
	return c.config.Endpoint()
}

// Config returns the configuration of the connector
func (c *Connector[D, R]) Config() common.ClientConfig {
	return c.config
}
