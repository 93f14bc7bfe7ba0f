// Package pool provides the bounded worker pool that executes accepted connections.
//
// A Pool runs at most MaxWorkers tasks at the same time. Everything submitted beyond
// that waits in an unbounded lock-free MPSC queue, so Submit never blocks; backpressure
// is expected to come from the listener's accept backlog.
//
// Worker Modes:
//
//   - Shared (default): workers are goroutines started on demand, bounded by a weighted
//     semaphore. A worker keeps taking tasks while there is work and retires after
//     IdleTimeout without work.
//
//   - Exclusive: MaxWorkers workers are started up front, each locked to its own OS
//     thread with runtime.LockOSThread. The lock is never released, so a thread is never
//     handed back to the Go scheduler for other goroutines.
//
// Shutdown:
//
//	Shutdown(true) rejects new work, runs everything already queued and waits for all
//	running tasks. Shutdown(false) rejects new work and calls Discard on every task that
//	did not reach a worker yet. A task is therefore always either executed or discarded,
//	never dropped silently.
//
// Statistics are kept with go-metrics (Stats) and exported as Prometheus counters
// named climastro_pool_* labelled with the pool name.
package pool
