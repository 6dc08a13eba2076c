package memory

import (
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
)

// SystemTracker reports process-wide memory usage from the operating system.
// It is the production tracker used when no query-scoped Budget is wired in:
// the admission gate then guards against real process growth rather than an
// accounted figure.
//
// OS reads are rate-limited with a small cache so that a tight admission
// loop does not turn into a syscall storm.
type SystemTracker struct {
	hardLimit int64

	mu         sync.Mutex
	lastSample time.Time
	lastUsed   int64
	maxAge     time.Duration
}

// NewSystemTracker creates a system-backed tracker. If hardLimit is 0 the
// limit defaults to 80% of total system memory; pass NoLimit to disable the
// ceiling entirely.
func NewSystemTracker(hardLimit int64) *SystemTracker {
	if hardLimit == 0 {
		if vm, err := mem.VirtualMemory(); err == nil {
			hardLimit = int64(vm.Total) * 8 / 10
		}
	} else if hardLimit == NoLimit {
		hardLimit = 0
	}
	return &SystemTracker{
		hardLimit: hardLimit,
		maxAge:    50 * time.Millisecond,
	}
}

// NoLimit disables the ceiling when passed to NewSystemTracker.
const NoLimit int64 = -1

// Used returns the system's used memory in bytes, sampled at most every
// 50ms.
func (t *SystemTracker) Used() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	if time.Since(t.lastSample) < t.maxAge {
		return t.lastUsed
	}

	vm, err := mem.VirtualMemory()
	if err != nil {
		// Keep the stale sample; admission degrades to its last view
		// rather than failing.
		return t.lastUsed
	}
	t.lastUsed = int64(vm.Used)
	t.lastSample = time.Now()
	return t.lastUsed
}

// HardLimit returns the ceiling in bytes, 0 meaning unbounded.
func (t *SystemTracker) HardLimit() int64 {
	return t.hardLimit
}
