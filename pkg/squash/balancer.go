package squash

import (
	"context"

	"go.uber.org/zap"

	"github.com/tessera-db/tessera/pkg/columnar"
	"github.com/tessera-db/tessera/pkg/errors"
	"github.com/tessera-db/tessera/pkg/memory"
	"github.com/tessera-db/tessera/pkg/metrics"
)

// Balancer accumulates references to whole incoming batches, without copying
// column data, until the thresholds are met. The group is then handed off as
// a single Deferred payload so the concatenation cost can be paid by a later
// stage, possibly on a different goroutine. Before accepting a batch the
// balancer asks the memory admission gate whether the cumulative prospective
// size of the pending list still fits under the shared ceiling.
//
// A Balancer is owned by one pipeline stage; calls to Add must be
// sequential.
type Balancer struct {
	thresholds Thresholds
	schema     *columnar.Schema
	gate       *memory.Gate

	pending      []*columnar.Batch
	pendingRows  uint64
	pendingBytes uint64

	logger    *zap.Logger
	collector *metrics.Collector
}

// NewBalancer creates a lazy balancer. schema is the expected column layout;
// incoming batches are checked against it when it is non-nil. gate may be
// nil to disable memory admission.
func NewBalancer(schema *columnar.Schema, thresholds Thresholds, gate *memory.Gate, logger *zap.Logger) *Balancer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Balancer{
		thresholds: thresholds,
		schema:     schema,
		gate:       gate,
		logger:     logger.With(zap.String("component", "balancer")),
		collector:  metrics.NewCollector("balancer"),
	}
}

// Add feeds the next batch. The result is one of:
//
//   - a *Deferred payload when the pending group crossed the thresholds or
//     the sentinel arrived with data still pending,
//   - a *Materialized payload wrapping the input batch when the group is
//     not ready yet; the batch stays queued internally as an independent
//     clone, so the caller may use the returned one freely,
//   - nil when there is nothing to hand out (sentinel with an empty list).
//
// Add blocks in the memory admission gate while the prospective growth of
// the pending list would exceed the shared ceiling; ctx cancels the wait.
func (b *Balancer) Add(ctx context.Context, batch *columnar.Batch) (Payload, error) {
	if batch.IsSentinel() {
		if len(b.pending) == 0 {
			return nil, nil
		}
		return b.flush(metrics.FlushReasonSentinel), nil
	}

	if err := batch.Validate(); err != nil {
		return nil, err
	}
	if b.schema != nil && !b.schema.Equal(batch.Schema()) {
		return nil, errors.New(errors.ErrorTypeValidation, "batch does not match balancer schema").
			WithDetail("expected", b.schema.String()).
			WithDetail("actual", batch.Schema().String())
	}
	b.collector.ObserveInput(batch.Rows())

	// Admission is decided on the cumulative prospective size of the
	// pending list including the candidate, before any state changes.
	if b.gate != nil {
		if err := b.gate.Admit(ctx, int64(b.pendingBytes)+batch.ByteSize()); err != nil {
			return nil, err
		}
	}

	// The previously accumulated group already crossed the threshold on
	// its own: a flush went unconsumed. Drop it rather than grow without
	// bound.
	if len(b.pending) > 0 && b.thresholds.Enough(b.pendingRows, b.pendingBytes) {
		b.logger.Warn("discarding pending group that was never consumed",
			zap.Int("batches", len(b.pending)),
			zap.Uint64("rows", b.pendingRows))
		b.collector.ObserveFlush(metrics.FlushReasonRestart)
		b.reset()
	}

	// Queue an independent clone; the original goes back to the caller.
	// Cloning keeps the two sides from mutating shared buffers.
	retained := batch.Clone()
	b.pending = append(b.pending, retained)
	b.pendingRows += uint64(retained.Rows())
	b.pendingBytes += uint64(retained.ByteSize())
	b.collector.SetPendingBytes(int64(b.pendingBytes))

	if b.thresholds.Enough(b.pendingRows, b.pendingBytes) {
		return b.flush(metrics.FlushReasonThreshold), nil
	}

	return &Materialized{Batch: batch}, nil
}

// DataLeft reports whether a final flush is still owed. The owning stage
// checks this during shutdown before sending the sentinel.
func (b *Balancer) DataLeft() bool {
	return len(b.pending) > 0
}

// flush wraps the whole pending group in a Deferred payload and resets the
// accumulation. The original batch order is preserved position for position.
func (b *Balancer) flush(reason string) *Deferred {
	out := &Deferred{
		Batches: b.pending,
		Schema:  b.schemaOf(),
	}
	b.logger.Debug("handing off deferred group",
		zap.String("reason", reason),
		zap.Int("batches", len(out.Batches)),
		zap.Int("rows", out.Rows()))
	b.collector.ObserveFlush(reason)
	b.collector.ObserveOutput(out.Rows())
	b.reset()
	return out
}

func (b *Balancer) reset() {
	b.pending = nil
	b.pendingRows = 0
	b.pendingBytes = 0
	b.collector.SetPendingBytes(0)
}

// schemaOf returns the schema to stamp on outgoing payloads: the configured
// template when present, otherwise the first pending batch's own schema.
func (b *Balancer) schemaOf() *columnar.Schema {
	if b.schema != nil {
		return b.schema
	}
	if len(b.pending) > 0 {
		return b.pending[0].Schema()
	}
	return nil
}
