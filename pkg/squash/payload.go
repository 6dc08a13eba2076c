package squash

import "github.com/tessera-db/tessera/pkg/columnar"

// Payload is the unit of flow between the Balancer and the stage consuming
// its output. It is a closed sum: a payload is either Materialized (real
// columns, usable as-is) or Deferred (a list of raw batches awaiting
// concatenation). Switching over the two concrete types covers every case.
//
// Payloads are in-process constructs and must never be persisted or
// serialized across a process boundary.
type Payload interface {
	// Rows returns the logical row count carried by the payload.
	Rows() int
	// ByteSize returns the bytes held by the payload's column buffers.
	ByteSize() int64

	isPayload()
}

// Materialized wraps a real columnar batch.
type Materialized struct {
	Batch *columnar.Batch
}

func (m *Materialized) isPayload() {}

// Rows returns the batch's row count.
func (m *Materialized) Rows() int { return m.Batch.Rows() }

// ByteSize returns the batch's buffer size.
func (m *Materialized) ByteSize() int64 { return m.Batch.ByteSize() }

// Deferred carries an ordered list of raw batches in place of materialized
// columns. Its meaning is "the real data is this list; concatenate it to
// materialize an actual batch". It is created once by a Balancer flush,
// consumed exactly once by a DeferredSquasher, then discarded.
type Deferred struct {
	// Batches is the ordered group to concatenate. Ownership of the
	// batches transfers with the payload.
	Batches []*columnar.Batch
	// Schema is the column layout needed to reconstruct the batch; it may
	// be nil when the raw batches carry their own schemas.
	Schema *columnar.Schema
}

func (d *Deferred) isPayload() {}

// Rows returns the total row count across the carried batches.
func (d *Deferred) Rows() int {
	total := 0
	for _, b := range d.Batches {
		total += b.Rows()
	}
	return total
}

// ByteSize returns the total buffer size across the carried batches.
func (d *Deferred) ByteSize() int64 {
	var total int64
	for _, b := range d.Batches {
		total += b.ByteSize()
	}
	return total
}
