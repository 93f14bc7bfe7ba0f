package pool

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// node is a single element of the task queue
type node[T any] struct {
	value T
	next  atomic.Pointer[node[T]]
}

// mpscQueue is an unbounded multi-producer single-consumer queue. Producers append
// with CAS on the tail, a single internal goroutine moves values from the head of the
// linked list into the out channel. After close every value that was successfully pushed
// is still delivered before the out channel is closed.
type mpscQueue[T any] struct {
	head    atomic.Pointer[node[T]]
	tail    atomic.Pointer[node[T]]
	out     chan T
	closed  atomic.Bool
	pushers atomic.Int64 // producers currently inside push
	length  atomic.Int64

	mu   sync.Mutex
	cond *sync.Cond
}

// newQueue creates the queue and starts its consumer goroutine
func newQueue[T any]() *mpscQueue[T] {
	sentinel := &node[T]{}

	q := &mpscQueue[T]{
		out: make(chan T),
	}
	q.cond = sync.NewCond(&q.mu)
	q.head.Store(sentinel)
	q.tail.Store(sentinel)

	go q.consume()

	return q
}

// push appends a value. It returns false if the queue is already closed.
func (q *mpscQueue[T]) push(value T) bool {
	q.pushers.Add(1)
	defer func() {
		// the consumer may be waiting for the last producer to leave before exiting
		if q.pushers.Add(-1) == 0 && q.closed.Load() {
			q.signal()
		}
	}()

	if q.closed.Load() {
		return false
	}

	newNode := &node[T]{value: value}
	var backoff uint8

	for {
		tailNode := q.tail.Load()
		next := tailNode.next.Load()

		if next == nil {
			if tailNode.next.CompareAndSwap(nil, newNode) {
				// a failed CAS here means another producer already advanced the tail
				q.tail.CompareAndSwap(tailNode, newNode)
				q.length.Add(1)
				q.signal()
				return true
			}
		} else {
			// help a producer that appended but did not advance the tail yet
			q.tail.CompareAndSwap(tailNode, next)
		}

		// spin first, then yield, under contention
		if backoff < 10 {
			backoff++
			for i := 0; i < 1<<backoff; i++ {
				runtime.Gosched()
			}
		}
		runtime.Gosched()
	}
}

// signal wakes the consumer. Holding mu makes the wakeup impossible to lose between the
// consumer's emptiness check and its Wait.
func (q *mpscQueue[T]) signal() {
	q.mu.Lock()
	q.cond.Signal()
	q.mu.Unlock()
}

// drained reports whether the consumer may exit: closed, no producer in flight and
// nothing left in the list. The order of the loads matters.
func (q *mpscQueue[T]) drained() bool {
	return q.closed.Load() && q.pushers.Load() == 0 && q.head.Load().next.Load() == nil
}

// consume moves values into the out channel until the queue is closed and drained
func (q *mpscQueue[T]) consume() {
	defer close(q.out)

	var zero T
	for {
		for {
			head := q.head.Load()
			next := head.next.Load()
			if next == nil {
				break
			}

			value := next.value
			q.head.Store(next)
			q.length.Add(-1)
			q.out <- value

			// release the reference, next is the new sentinel
			next.value = zero
		}

		if q.drained() {
			return
		}

		q.mu.Lock()
		if q.head.Load().next.Load() == nil && !q.drained() {
			q.cond.Wait()
		}
		q.mu.Unlock()
	}
}

// recv returns the channel the consumer delivers values on
func (q *mpscQueue[T]) recv() <-chan T {
	return q.out
}

// close rejects further pushes. Values already pushed are still delivered.
func (q *mpscQueue[T]) close() {
	q.closed.Store(true)
	q.signal()
}

// len returns the number of values not yet handed to the out channel
func (q *mpscQueue[T]) len() int {
	return int(q.length.Load())
}
