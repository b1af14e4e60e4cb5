// Package chunk slices Arrow records into upload batches whose size grows
// from a small first batch to a ceiling, so the first rows reach the server
// quickly and later batches amortise per-message overhead.
package chunk

import (
	"sync/atomic"

	"github.com/apache/arrow-go/v18/arrow"
)

// Defaults used for graph construction uploads.
const (
	DefaultMinRows      = 4096
	DefaultMaxRows      = 65536
	DefaultGrowthFactor = 2.0
)

// Strategy yields successive batch sizes in rows.
type Strategy interface {
	NextChunkSize() int
	Reset()
}

// AdaptiveStrategy grows batch sizes exponentially up to a maximum.
type AdaptiveStrategy struct {
	minSize      int
	maxSize      int
	growthFactor float64
	currentSize  atomic.Int64
}

// NewAdaptiveStrategy returns a strategy starting at minSize rows and
// multiplying by growthFactor up to maxSize. Non-positive sizes fall back to
// the defaults and a growth factor below 1 disables growth.
func NewAdaptiveStrategy(minSize, maxSize int, growthFactor float64) *AdaptiveStrategy {
	if minSize <= 0 {
		minSize = DefaultMinRows
	}
	if maxSize < minSize {
		maxSize = minSize
	}
	if growthFactor < 1 {
		growthFactor = 1
	}
	s := &AdaptiveStrategy{
		minSize:      minSize,
		maxSize:      maxSize,
		growthFactor: growthFactor,
	}
	s.currentSize.Store(int64(minSize))
	return s
}

// NewDefaultStrategy returns the strategy used for construction uploads.
func NewDefaultStrategy() *AdaptiveStrategy {
	return NewAdaptiveStrategy(DefaultMinRows, DefaultMaxRows, DefaultGrowthFactor)
}

// NextChunkSize returns the current size and advances the strategy.
func (s *AdaptiveStrategy) NextChunkSize() int {
	current := int(s.currentSize.Load())

	next := int(float64(current) * s.growthFactor)
	if next > s.maxSize {
		next = s.maxSize
	}
	s.currentSize.Store(int64(next))

	return current
}

// Reset goes back to the minimum size.
func (s *AdaptiveStrategy) Reset() {
	s.currentSize.Store(int64(s.minSize))
}

// FixedStrategy always returns the same size.
type FixedStrategy int

func (f FixedStrategy) NextChunkSize() int { return int(f) }
func (f FixedStrategy) Reset()             {}

// Split slices rec into zero-copy batches sized by s. Every returned record
// must be released by the caller. An empty record yields no batches.
func Split(rec arrow.Record, s Strategy) []arrow.Record {
	total := rec.NumRows()
	if total == 0 {
		return nil
	}

	var out []arrow.Record
	for offset := int64(0); offset < total; {
		size := int64(s.NextChunkSize())
		if size <= 0 {
			size = total - offset
		}
		end := offset + size
		if end > total {
			end = total
		}
		out = append(out, rec.NewSlice(offset, end))
		offset = end
	}
	return out
}
