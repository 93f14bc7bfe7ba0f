package pool

import (
	"errors"
	"fmt"
	"github.com/lni/dragonboat/v4/logger"
	"golang.org/x/sync/semaphore"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

var Logger = logger.GetLogger("pool")

var (
	// ErrPoolClosed is returned by Submit after Shutdown was called
	ErrPoolClosed = errors.New("pool is closed")
	// ErrNilTask is returned by Submit for a nil task
	ErrNilTask = errors.New("nil task")
)

const (
	// DefaultIdleTimeout is how long a shared worker waits for work before it retires
	DefaultIdleTimeout = 15 * time.Second
)

// Config configures a Pool
type Config struct {
	// Name identifies the pool in logs and metrics
	Name string
	// MaxWorkers bounds the number of concurrently executing tasks (0 = number of CPUs)
	MaxWorkers int
	// Exclusive pins every worker to its own OS thread for the lifetime of the pool
	Exclusive bool
	// IdleTimeout retires shared workers that had no work for this long (ignored when exclusive)
	IdleTimeout time.Duration
}

// Pool executes submitted tasks on at most MaxWorkers workers. Submissions beyond that
// are queued without bound.
type Pool struct {
	config Config

	queue   *mpscQueue[Task]
	tasks   chan Task     // hand-off from the dispatcher to idle workers
	retired chan struct{} // a shared worker retired, a slot may be free again
	sem     *semaphore.Weighted

	stopCh         chan struct{} // closed by a non-waiting shutdown
	dispatcherDone chan struct{}
	workers        sync.WaitGroup

	closed       atomic.Bool
	shutdownOnce sync.Once

	stats *poolStats
}

// New creates a pool and starts its dispatcher. In exclusive mode all workers are
// started immediately.
func New(config Config) (*Pool, error) {
	if config.MaxWorkers < 0 {
		return nil, fmt.Errorf("invalid max workers: %d", config.MaxWorkers)
	}
	if config.MaxWorkers == 0 {
		config.MaxWorkers = runtime.NumCPU()
	}
	if config.IdleTimeout <= 0 {
		config.IdleTimeout = DefaultIdleTimeout
	}
	if config.Name == "" {
		config.Name = "default"
	}

	p := &Pool{
		config:         config,
		queue:          newQueue[Task](),
		tasks:          make(chan Task),
		retired:        make(chan struct{}, 1),
		sem:            semaphore.NewWeighted(int64(config.MaxWorkers)),
		stopCh:         make(chan struct{}),
		dispatcherDone: make(chan struct{}),
		stats:          newPoolStats(config.Name),
	}

	if config.Exclusive {
		for i := 0; i < config.MaxWorkers; i++ {
			p.workers.Add(1)
			go p.exclusiveWorker()
		}
	}

	go p.dispatch()

	Logger.Debugf("Created pool %s with %d workers (exclusive=%t)", config.Name, config.MaxWorkers, config.Exclusive)

	return p, nil
}

// Submit queues a task. It never blocks on busy workers.
func (p *Pool) Submit(task Task) error {
	if task == nil {
		return ErrNilTask
	}
	if p.closed.Load() || !p.queue.push(task) {
		return ErrPoolClosed
	}
	p.stats.onSubmit()
	return nil
}

// Shutdown stops accepting tasks. With wait set every queued task is still executed and
// Shutdown returns once all of them finished. Without wait queued tasks are discarded
// (their Discard method is called) and tasks already running are not waited for.
// It returns the number of discarded tasks and may be called more than once.
func (p *Pool) Shutdown(wait bool) int {
	p.shutdownOnce.Do(func() {
		p.closed.Store(true)
		if !wait {
			close(p.stopCh)
		}
		p.queue.close()
	})

	<-p.dispatcherDone
	if wait {
		p.workers.Wait()
	}
	p.stats.stop()

	discarded := int(p.stats.discarded.Count())
	if discarded > 0 {
		Logger.Warningf("Pool %s discarded %d queued tasks on shutdown", p.config.Name, discarded)
	}
	return discarded
}

// Stats returns a snapshot of the pool's counters
func (p *Pool) Stats() Stats {
	return Stats{
		Name:         p.config.Name,
		MaxWorkers:   p.config.MaxWorkers,
		Exclusive:    p.config.Exclusive,
		Workers:      int(p.stats.workers.Load()),
		Active:       int(p.stats.active.Load()),
		MaxActive:    int(p.stats.maxActive.Load()),
		Queued:       p.queue.len(),
		Submitted:    p.stats.submitted.Count(),
		Completed:    p.stats.completed.Count(),
		Discarded:    p.stats.discarded.Count(),
		Panicked:     p.stats.panicked.Count(),
		MeanDuration: time.Duration(p.stats.duration.Mean()),
		P99Duration:  time.Duration(p.stats.duration.Percentile(0.99)),
	}
}

// Config returns the effective configuration (defaults applied)
func (p *Pool) Config() Config {
	return p.config
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// dispatch is the single consumer of the queue. It hands every task to a worker, or
// discards it after a non-waiting shutdown.
func (p *Pool) dispatch() {
	defer close(p.dispatcherDone)
	defer close(p.tasks)

	for task := range p.queue.recv() {
		select {
		case <-p.stopCh:
			p.discard(task)
		default:
			p.handOff(task)
		}
	}
}

// handOff blocks until a worker took the task
func (p *Pool) handOff(task Task) {
	for {
		// an idle worker is already waiting
		select {
		case p.tasks <- task:
			return
		default:
		}

		// below the limit: start a new shared worker with this task
		if !p.config.Exclusive && p.sem.TryAcquire(1) {
			p.workers.Add(1)
			go p.sharedWorker(task)
			return
		}

		// all workers busy: wait for one of them, or for a retired slot to retry
		select {
		case p.tasks <- task:
			return
		case <-p.retired:
		case <-p.stopCh:
			p.discard(task)
			return
		}
	}
}

// exclusiveWorker runs on its own OS thread. The thread is never unlocked, so when the
// worker returns the runtime terminates it instead of reusing it.
func (p *Pool) exclusiveWorker() {
	runtime.LockOSThread()
	defer p.workers.Done()

	p.stats.onWorkerStart()
	defer p.stats.onWorkerStop()

	for task := range p.tasks {
		p.execute(task)
	}
}

// sharedWorker executes its first task and keeps taking tasks until it was idle for
// IdleTimeout or the pool shut down
func (p *Pool) sharedWorker(first Task) {
	defer p.workers.Done()

	p.stats.onWorkerStart()
	defer func() {
		p.stats.onWorkerStop()
		p.sem.Release(1)
		select {
		case p.retired <- struct{}{}:
		default:
		}
	}()

	p.execute(first)

	idle := time.NewTimer(p.config.IdleTimeout)
	defer idle.Stop()

	for {
		select {
		case task, ok := <-p.tasks:
			if !ok {
				return
			}
			p.execute(task)
			idle.Reset(p.config.IdleTimeout)
		case <-idle.C:
			Logger.Debugf("Idle worker retired from pool %s", p.config.Name)
			return
		}
	}
}

// execute runs one task and contains its panics
func (p *Pool) execute(task Task) {
	start := time.Now()
	p.stats.onBegin()

	defer func() {
		if r := recover(); r != nil {
			p.stats.onPanic()
			Logger.Errorf("Task panicked in pool %s: %v", p.config.Name, r)
		}
		p.stats.onEnd(start)
	}()

	task.Execute()
}

// discard hands a task back to its owner without executing it
func (p *Pool) discard(task Task) {
	p.stats.onDiscard()

	defer func() {
		if r := recover(); r != nil {
			Logger.Errorf("Discarding task in pool %s panicked: %v", p.config.Name, r)
		}
	}()

	task.Discard()
}
