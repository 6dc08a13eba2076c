// Package memory provides memory accounting and admission control for the
// batch re-chunking pipeline. Accumulating components consult an admission
// Gate before growing their buffers so that accumulation cannot push the
// process over a shared memory ceiling.
//
// The accounting facility is modeled as an explicit Tracker capability that
// is passed into components, never ambient global state, so everything here
// stays testable with a mock budget.
package memory

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/tessera-db/tessera/pkg/metrics"
)

// Tracker is a read-only view into a memory accounting facility shared by
// many pipeline stages. A hard limit of 0 means unbounded.
type Tracker interface {
	// Used returns the currently accounted usage in bytes.
	Used() int64
	// HardLimit returns the ceiling in bytes, 0 meaning unbounded.
	HardLimit() int64
}

// releaseWaiter is implemented by trackers that can signal waiters when
// usage drops. The Gate prefers this over interval polling.
type releaseWaiter interface {
	AwaitRelease(ctx context.Context) error
}

// Budget is a query-scoped memory tracker. Usage is adjusted with Acquire
// and Release; every Release wakes all blocked admission waiters so they can
// re-check the ceiling without busy-spinning.
type Budget struct {
	used      atomic.Int64
	hardLimit int64

	mu       sync.Mutex
	released chan struct{}
}

// NewBudget creates a budget with the given hard limit in bytes.
// A limit of 0 means unbounded.
func NewBudget(hardLimit int64) *Budget {
	return &Budget{
		hardLimit: hardLimit,
		released:  make(chan struct{}),
	}
}

// Used returns the currently accounted usage.
func (b *Budget) Used() int64 {
	return b.used.Load()
}

// HardLimit returns the configured ceiling, 0 meaning unbounded.
func (b *Budget) HardLimit() int64 {
	return b.hardLimit
}

// Acquire accounts n additional bytes of usage.
func (b *Budget) Acquire(n int64) {
	used := b.used.Add(n)
	metrics.MemoryUsedBytes.Set(float64(used))
}

// Release returns n bytes to the budget and wakes all admission waiters.
func (b *Budget) Release(n int64) {
	used := b.used.Add(-n)
	metrics.MemoryUsedBytes.Set(float64(used))

	b.mu.Lock()
	close(b.released)
	b.released = make(chan struct{})
	b.mu.Unlock()
}

// AwaitRelease blocks until the next Release call or context cancellation.
// It does not guarantee that the released amount is sufficient; callers
// re-check the ceiling after each wake.
func (b *Budget) AwaitRelease(ctx context.Context) error {
	b.mu.Lock()
	ch := b.released
	b.mu.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-ch:
		return nil
	}
}
