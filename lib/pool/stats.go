package pool

import (
	"fmt"
	"github.com/VictoriaMetrics/metrics"
	gometrics "github.com/rcrowley/go-metrics"
	"sync/atomic"
	"time"
)

// Stats is a point-in-time snapshot of a pool
type Stats struct {
	Name       string
	MaxWorkers int
	Exclusive  bool

	// Workers is the number of live worker goroutines
	Workers int
	// Active is the number of tasks executing right now
	Active int
	// MaxActive is the highest value Active ever reached
	MaxActive int
	// Queued is the number of submitted tasks not yet handed to a worker
	Queued int

	Submitted int64
	Completed int64
	Discarded int64
	Panicked  int64

	MeanDuration time.Duration
	P99Duration  time.Duration
}

// String returns a one-line summary for logs
func (s Stats) String() string {
	return fmt.Sprintf("pool=%s workers=%d/%d active=%d (max %d) queued=%d submitted=%d completed=%d discarded=%d panicked=%d mean=%s p99=%s",
		s.Name, s.Workers, s.MaxWorkers, s.Active, s.MaxActive, s.Queued,
		s.Submitted, s.Completed, s.Discarded, s.Panicked, s.MeanDuration, s.P99Duration)
}

// poolStats keeps in-process statistics (go-metrics) and mirrors them into the
// Prometheus counters exported by the metrics endpoint
type poolStats struct {
	workers   atomic.Int64
	active    atomic.Int64
	maxActive atomic.Int64

	submitted gometrics.Counter
	completed gometrics.Counter
	discarded gometrics.Counter
	panicked  gometrics.Counter
	duration  gometrics.Timer

	promSubmitted *metrics.Counter
	promCompleted *metrics.Counter
	promDiscarded *metrics.Counter
	promPanicked  *metrics.Counter
	promActive    *metrics.Counter
	promWorkers   *metrics.Counter
	promDuration  *metrics.Histogram
}

func newPoolStats(name string) *poolStats {
	label := fmt.Sprintf(`{pool=%q}`, name)
	return &poolStats{
		submitted: gometrics.NewCounter(),
		completed: gometrics.NewCounter(),
		discarded: gometrics.NewCounter(),
		panicked:  gometrics.NewCounter(),
		duration:  gometrics.NewTimer(),

		promSubmitted: metrics.GetOrCreateCounter("climastro_pool_tasks_submitted_total" + label),
		promCompleted: metrics.GetOrCreateCounter("climastro_pool_tasks_completed_total" + label),
		promDiscarded: metrics.GetOrCreateCounter("climastro_pool_tasks_discarded_total" + label),
		promPanicked:  metrics.GetOrCreateCounter("climastro_pool_task_panics_total" + label),
		promActive:    metrics.GetOrCreateCounter("climastro_pool_active_tasks" + label),
		promWorkers:   metrics.GetOrCreateCounter("climastro_pool_workers" + label),
		promDuration:  metrics.GetOrCreateHistogram("climastro_pool_task_duration_seconds" + label),
	}
}

func (s *poolStats) onSubmit() {
	s.submitted.Inc(1)
	s.promSubmitted.Inc()
}

func (s *poolStats) onWorkerStart() {
	s.workers.Add(1)
	s.promWorkers.Inc()
}

func (s *poolStats) onWorkerStop() {
	s.workers.Add(-1)
	s.promWorkers.Dec()
}

func (s *poolStats) onBegin() {
	active := s.active.Add(1)
	s.promActive.Inc()

	// raise the high-water mark
	for {
		current := s.maxActive.Load()
		if active <= current || s.maxActive.CompareAndSwap(current, active) {
			return
		}
	}
}

func (s *poolStats) onEnd(start time.Time) {
	s.active.Add(-1)
	s.promActive.Dec()
	s.completed.Inc(1)
	s.promCompleted.Inc()
	s.duration.UpdateSince(start)
	s.promDuration.UpdateDuration(start)
}

func (s *poolStats) onPanic() {
	s.panicked.Inc(1)
	s.promPanicked.Inc()
}

func (s *poolStats) onDiscard() {
	s.discarded.Inc(1)
	s.promDiscarded.Inc()
}

// stop detaches the duration timer from the go-metrics meter arbiter
func (s *poolStats) stop() {
	s.duration.Stop()
}
