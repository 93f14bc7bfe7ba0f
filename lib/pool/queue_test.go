package pool

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestQueueOrderSingleProducer checks FIFO delivery for one producer
func TestQueueOrderSingleProducer(t *testing.T) {
	q := newQueue[int]()
	defer q.close()

	for i := 0; i < 10; i++ {
		require.True(t, q.push(i))
	}

	for i := 0; i < 10; i++ {
		select {
		case v := <-q.recv():
			assert.Equal(t, i, v)
		case <-time.After(time.Second):
			t.Fatalf("timeout waiting for item %d", i)
		}
	}
}

// TestQueueConcurrentProducers delivers every pushed item exactly once
func TestQueueConcurrentProducers(t *testing.T) {
	q := newQueue[int]()

	const producers = 8
	const perProducer = 500

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.push(p*perProducer + i)
			}
		}(p)
	}

	seen := make(map[int]bool, producers*perProducer)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for v := range q.recv() {
			assert.False(t, seen[v], "duplicate item %d", v)
			seen[v] = true
		}
	}()

	wg.Wait()
	q.close()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not finish")
	}
	assert.Len(t, seen, producers*perProducer)
}

// TestQueueCloseDeliversPending checks that close keeps already pushed items
func TestQueueCloseDeliversPending(t *testing.T) {
	q := newQueue[string]()
	require.True(t, q.push("a"))
	require.True(t, q.push("b"))
	q.close()

	assert.False(t, q.push("c"))

	var got []string
	for v := range q.recv() {
		got = append(got, v)
	}
	assert.Equal(t, []string{"a", "b"}, got)
	assert.Equal(t, 0, q.len())
}

// TestQueuePushRacingClose never loses an item that push reported as accepted
func TestQueuePushRacingClose(t *testing.T) {
	for round := 0; round < 50; round++ {
		q := newQueue[int]()

		var accepted sync.Map
		var wg sync.WaitGroup
		for p := 0; p < 4; p++ {
			wg.Add(1)
			go func(p int) {
				defer wg.Done()
				for i := 0; i < 100; i++ {
					if q.push(p*100 + i) {
						accepted.Store(p*100+i, true)
					}
				}
			}(p)
		}

		received := make(map[int]bool)
		done := make(chan struct{})
		go func() {
			defer close(done)
			for v := range q.recv() {
				received[v] = true
			}
		}()

		time.Sleep(time.Millisecond)
		q.close()
		wg.Wait()

		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("consumer did not finish")
		}

		accepted.Range(func(k, _ any) bool {
			assert.True(t, received[k.(int)], "accepted item %d was lost", k)
			return true
		})
	}
}
