package cache

import (
	"fmt"
	"time"
)

// Grid is a two-dimensional table, e.g. day offset × category. Every cell has its own
// timestamp; all cells share one lock.
type Grid[T any] struct {
	table *Table[T]
	rows  int
	cols  int
}

// NewGrid creates a rows × cols grid
func NewGrid[T any](name string, rows, cols int, ttl time.Duration, opts ...Option) (*Grid[T], error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("invalid grid dimensions: %dx%d", rows, cols)
	}

	table, err := NewTable[T](name, rows*cols, ttl, opts...)
	if err != nil {
		return nil, err
	}

	return &Grid[T]{table: table, rows: rows, cols: cols}, nil
}

// GetOrGenerate is Table.GetOrGenerate for the cell (row, col)
func (g *Grid[T]) GetOrGenerate(row, col int, generate func(row, col int) T) (Entry[T], error) {
	key, err := g.index(row, col)
	if err != nil {
		return Entry[T]{}, err
	}
	if generate == nil {
		return Entry[T]{}, ErrNoGenerator
	}

	return g.table.GetOrGenerate(key, func(int) T {
		return generate(row, col)
	})
}

// Peek is Table.Peek for the cell (row, col)
func (g *Grid[T]) Peek(row, col int) (Entry[T], bool, error) {
	key, err := g.index(row, col)
	if err != nil {
		return Entry[T]{}, false, err
	}
	return g.table.Peek(key)
}

// Dimensions returns the number of rows and columns
func (g *Grid[T]) Dimensions() (rows, cols int) {
	return g.rows, g.cols
}

// TTL returns the time-to-live of the grid's cells
func (g *Grid[T]) TTL() time.Duration {
	return g.table.TTL()
}

// index maps a cell to its table key. Both coordinates are checked separately, an
// overflowing column must not alias the next row.
func (g *Grid[T]) index(row, col int) (int, error) {
	if row < 0 || row >= g.rows || col < 0 || col >= g.cols {
		g.table.invalid.Inc()
		return 0, fmt.Errorf("%w: (%d, %d) not in %dx%d grid %s", ErrInvalidKey, row, col, g.rows, g.cols, g.table.name)
	}
	return row*g.cols + col, nil
}
