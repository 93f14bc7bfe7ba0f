package pool

import (
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// discardTask records which of its methods ran
type discardTask struct {
	executed  atomic.Int32
	discarded atomic.Int32
	block     chan struct{}
}

func (d *discardTask) Execute() {
	d.executed.Add(1)
	if d.block != nil {
		<-d.block
	}
}

func (d *discardTask) Discard() { d.discarded.Add(1) }

func TestNew(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		p, err := New(Config{})
		require.NoError(t, err)
		defer p.Shutdown(true)

		assert.Equal(t, runtime.NumCPU(), p.Config().MaxWorkers)
		assert.Equal(t, DefaultIdleTimeout, p.Config().IdleTimeout)
		assert.Equal(t, "default", p.Config().Name)
	})

	t.Run("negative workers", func(t *testing.T) {
		p, err := New(Config{MaxWorkers: -1})
		assert.Error(t, err)
		assert.Nil(t, p)
	})
}

func TestPool_MaxConcurrency(t *testing.T) {
	for _, exclusive := range []bool{false, true} {
		name := "shared"
		if exclusive {
			name = "exclusive"
		}

		t.Run(name, func(t *testing.T) {
			const maxWorkers = 3
			const tasks = 20

			p, err := New(Config{Name: "test-" + name, MaxWorkers: maxWorkers, Exclusive: exclusive})
			require.NoError(t, err)

			var current, observed atomic.Int32
			var wg sync.WaitGroup
			wg.Add(tasks)

			for i := 0; i < tasks; i++ {
				require.NoError(t, p.Submit(TaskFunc(func() {
					defer wg.Done()
					n := current.Add(1)
					for {
						max := observed.Load()
						if n <= max || observed.CompareAndSwap(max, n) {
							break
						}
					}
					time.Sleep(10 * time.Millisecond)
					current.Add(-1)
				})))
			}

			wg.Wait()
			p.Shutdown(true)

			assert.LessOrEqual(t, int(observed.Load()), maxWorkers)
			assert.Greater(t, int(observed.Load()), 1, "tasks should overlap")

			stats := p.Stats()
			assert.LessOrEqual(t, stats.MaxActive, maxWorkers)
			assert.Equal(t, int64(tasks), stats.Submitted)
			assert.Equal(t, int64(tasks), stats.Completed)
			assert.Zero(t, stats.Discarded)
		})
	}
}

func TestPool_ShutdownWaitRunsQueued(t *testing.T) {
	p, err := New(Config{MaxWorkers: 1})
	require.NoError(t, err)

	var ran atomic.Int32
	for i := 0; i < 10; i++ {
		require.NoError(t, p.Submit(TaskFunc(func() {
			time.Sleep(time.Millisecond)
			ran.Add(1)
		})))
	}

	assert.Zero(t, p.Shutdown(true))
	assert.Equal(t, int32(10), ran.Load())
}

func TestPool_ShutdownDiscardsQueued(t *testing.T) {
	p, err := New(Config{MaxWorkers: 1})
	require.NoError(t, err)

	blocker := &discardTask{block: make(chan struct{})}
	require.NoError(t, p.Submit(blocker))
	require.Eventually(t, func() bool { return blocker.executed.Load() == 1 }, time.Second, time.Millisecond)

	queued := make([]*discardTask, 5)
	for i := range queued {
		queued[i] = &discardTask{}
		require.NoError(t, p.Submit(queued[i]))
	}

	assert.Equal(t, 5, p.Shutdown(false))
	close(blocker.block)

	for _, task := range queued {
		assert.Zero(t, task.executed.Load())
		assert.Equal(t, int32(1), task.discarded.Load())
	}
	assert.Zero(t, blocker.discarded.Load())
}

func TestPool_Submit(t *testing.T) {
	p, err := New(Config{MaxWorkers: 2})
	require.NoError(t, err)

	assert.ErrorIs(t, p.Submit(nil), ErrNilTask)

	p.Shutdown(true)
	assert.ErrorIs(t, p.Submit(TaskFunc(func() {})), ErrPoolClosed)

	// a second shutdown is harmless
	assert.Zero(t, p.Shutdown(true))
}

func TestPool_PanicIsContained(t *testing.T) {
	p, err := New(Config{MaxWorkers: 1})
	require.NoError(t, err)

	var ran atomic.Bool
	require.NoError(t, p.Submit(TaskFunc(func() { panic("boom") })))
	require.NoError(t, p.Submit(TaskFunc(func() { ran.Store(true) })))

	p.Shutdown(true)

	assert.True(t, ran.Load())
	assert.Equal(t, int64(1), p.Stats().Panicked)
	assert.Equal(t, int64(2), p.Stats().Completed)
}

func TestPool_SharedWorkersRetire(t *testing.T) {
	p, err := New(Config{MaxWorkers: 4, IdleTimeout: 20 * time.Millisecond})
	require.NoError(t, err)
	defer p.Shutdown(true)

	var wg sync.WaitGroup
	wg.Add(4)
	for i := 0; i < 4; i++ {
		require.NoError(t, p.Submit(TaskFunc(func() {
			time.Sleep(5 * time.Millisecond)
			wg.Done()
		})))
	}
	wg.Wait()

	require.Eventually(t, func() bool { return p.Stats().Workers == 0 }, 2*time.Second, 5*time.Millisecond)

	// the pool still works after every worker retired
	done := make(chan struct{})
	require.NoError(t, p.Submit(TaskFunc(func() { close(done) })))
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task was not executed after workers retired")
	}
}

func TestPool_ExclusiveWorkersStayAlive(t *testing.T) {
	p, err := New(Config{MaxWorkers: 2, Exclusive: true, IdleTimeout: 5 * time.Millisecond})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return p.Stats().Workers == 2 }, time.Second, time.Millisecond)

	// exclusive workers ignore the idle timeout
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 2, p.Stats().Workers)

	p.Shutdown(true)
	assert.Equal(t, 0, p.Stats().Workers)
}
