// Package columnar defines the batch data model used throughout Tessera's
// execution pipeline: equal-length typed columns grouped into ordered,
// schema-carrying batches.
//
// # Overview
//
// A Batch is the unit of data flow between pipeline stages. It holds an
// ordered, fixed-at-creation set of named columns where every column has
// exactly the batch's row count. Batches are immutable once observed by a
// downstream stage, but a stage that holds exclusive ownership of a batch
// may append to its columns in place.
//
// The empty batch with no columns is the designated end-of-stream sentinel;
// a nil *Batch is treated the same way. A batch with columns but zero rows
// is a real (empty) batch, not a sentinel.
//
// # Ownership
//
// Column buffers are owned by exactly one holder at a time. Handing a batch
// to another stage transfers ownership; the sender must not touch the batch
// afterwards. Clone produces an independent deep copy for the cases where
// both sides need to keep the data.
package columnar
