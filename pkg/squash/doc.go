// Package squash merges a stream of variously-sized columnar batches into
// batches of at least a configured row or byte size, preserving input order.
//
// # Overview
//
// Many consumers are inefficient on very small batches: per-batch overhead,
// poor compression, excessive file fragmentation. The components here
// re-chunk the stream before it leaves the pipeline:
//
//   - Squasher accumulates by copying column data into a growing buffer and
//     releases a result once the threshold is met. Use it when concatenation
//     must happen immediately on the producing stage.
//   - Balancer accumulates references to whole batches without copying
//     column data, then hands the group off as a single Deferred payload so
//     a later stage can pay the concatenation cost. It consults a memory
//     admission gate before accepting more data.
//   - DeferredSquasher is the consumer-side counterpart of the Balancer:
//     it concatenates the raw batches carried by a Deferred payload into one
//     materialized batch.
//
// # Protocol
//
// Each component exposes a single Add operation, called once per input batch
// and exactly once more with the end-of-stream sentinel (a nil batch or
// columnar.Sentinel()) to drain whatever is still accumulated. Skipping the
// sentinel silently drops buffered rows.
//
// A nil result means "not ready" and must not be confused with a real empty
// batch or with end of stream.
//
// # Concurrency
//
// Instances are single-threaded: each is owned by exactly one pipeline stage
// and calls to Add are sequential. The Balancer/DeferredSquasher pair may
// live on different stages; the hand-off is an ownership transfer of the
// Deferred payload and the raw batches it carries, so no shared mutable
// state remains between the two sides.
package squash
