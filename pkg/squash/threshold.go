package squash

import "github.com/tessera-db/tessera/pkg/columnar"

// Thresholds is the minimum size a batch or accumulation must reach before
// it is considered big enough to flush. The row and byte conditions are
// OR-ed; a zero value disables the corresponding condition. With both at
// zero, every non-empty input counts as big enough, which turns the
// component into a pass-through. That degenerate mode is intentional, not an
// error.
type Thresholds struct {
	MinRows  uint64
	MinBytes uint64
}

// Enough reports whether the given size satisfies the thresholds.
func (t Thresholds) Enough(rows, bytes uint64) bool {
	return (t.MinRows == 0 && t.MinBytes == 0) ||
		(t.MinRows != 0 && rows >= t.MinRows) ||
		(t.MinBytes != 0 && bytes >= t.MinBytes)
}

// EnoughBatch reports whether a single batch satisfies the thresholds.
func (t Thresholds) EnoughBatch(b *columnar.Batch) bool {
	return t.Enough(uint64(b.Rows()), uint64(b.ByteSize()))
}
