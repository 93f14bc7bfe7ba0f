package cache

import (
	"errors"
	"fmt"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
	"sync"
	"time"
)

var Logger = logger.GetLogger("cache")

var (
	// ErrInvalidKey is returned for keys outside the fixed domain of a table
	ErrInvalidKey = errors.New("invalid cache key")
	// ErrNoGenerator is returned when GetOrGenerate is called without a generate function
	ErrNoGenerator = errors.New("no generate func")
)

// Entry is a cached value together with the time it was generated
type Entry[T any] struct {
	Value       T
	GeneratedAt time.Time
}

// Age returns how old the entry is at the given time
func (e Entry[T]) Age(now time.Time) time.Duration {
	return now.Sub(e.GeneratedAt)
}

// GenerateFunc produces the value for a key. It must not touch other keys and must not
// call back into the same table (the table lock is held while it runs).
type GenerateFunc[T any] func(key int) T

// Option configures a table
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock replaces time.Now, mainly for tests that need to move time forward
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// slot is one position of the table. generated distinguishes a zero-valued slot from a
// value that was produced at the zero time.
type slot[T any] struct {
	entry     Entry[T]
	generated bool
}

// Table holds one generated value per integer key in [0, size). A single mutex guards
// the whole read-check-regenerate-write sequence, so readers never see a torn entry.
type Table[T any] struct {
	name string
	ttl  time.Duration
	now  func() time.Time

	mu      sync.Mutex
	entries []slot[T]

	hits    *metrics.Counter
	misses  *metrics.Counter
	invalid *metrics.Counter
}

// NewTable creates a table with size zero-valued (stale) entries
func NewTable[T any](name string, size int, ttl time.Duration, opts ...Option) (*Table[T], error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid table size: %d", size)
	}
	if ttl < 0 {
		return nil, fmt.Errorf("invalid ttl: %s", ttl)
	}

	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	label := fmt.Sprintf(`{table=%q}`, name)

	return &Table[T]{
		name:    name,
		ttl:     ttl,
		now:     o.now,
		entries: make([]slot[T], size),
		hits:    metrics.GetOrCreateCounter("climastro_cache_hits_total" + label),
		misses:  metrics.GetOrCreateCounter("climastro_cache_misses_total" + label),
		invalid: metrics.GetOrCreateCounter("climastro_cache_invalid_keys_total" + label),
	}, nil
}

// GetOrGenerate returns a copy of the entry for key. If the entry is stale, generate is
// called and its result is stored with the current time before the copy is made. The
// lock is held for the whole sequence.
func (t *Table[T]) GetOrGenerate(key int, generate GenerateFunc[T]) (Entry[T], error) {
	if err := t.checkKey(key); err != nil {
		return Entry[T]{}, err
	}
	if generate == nil {
		return Entry[T]{}, ErrNoGenerator
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	s := &t.entries[key]

	if s.generated && t.isFresh(s.entry, now) {
		t.hits.Inc()
		return s.entry, nil
	}

	// the slot is only written after generate returned, a panicking generator leaves it untouched
	value := generate(key)
	s.entry = Entry[T]{Value: value, GeneratedAt: now}
	s.generated = true

	t.misses.Inc()
	Logger.Debugf("Regenerated key %d of table %s", key, t.name)

	return s.entry, nil
}

// Peek returns the current entry for key without generating. ok is false if the entry
// was never generated or is stale.
func (t *Table[T]) Peek(key int) (entry Entry[T], ok bool, err error) {
	if err := t.checkKey(key); err != nil {
		return Entry[T]{}, false, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.entries[key]
	return s.entry, s.generated && t.isFresh(s.entry, t.now()), nil
}

// Len returns the size of the key domain
func (t *Table[T]) Len() int {
	return len(t.entries)
}

// TTL returns the time-to-live of the table's entries
func (t *Table[T]) TTL() time.Duration {
	return t.ttl
}

// Name returns the table name used in metrics
func (t *Table[T]) Name() string {
	return t.name
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func (t *Table[T]) checkKey(key int) error {
	if key < 0 || key >= len(t.entries) {
		t.invalid.Inc()
		return fmt.Errorf("%w: %d not in [0, %d) of table %s", ErrInvalidKey, key, len(t.entries), t.name)
	}
	return nil
}

func (t *Table[T]) isFresh(e Entry[T], now time.Time) bool {
	return e.Age(now) <= t.ttl
}
