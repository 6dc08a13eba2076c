package squash

import (
	"go.uber.org/zap"

	"github.com/tessera-db/tessera/pkg/columnar"
	"github.com/tessera-db/tessera/pkg/metrics"
)

// DeferredSquasher materializes the groups produced by a Balancer: it
// concatenates the raw batches carried by a Deferred payload into one
// columnar batch. The Balancer already guaranteed each group meets the
// thresholds, so no size re-check happens here.
//
// A DeferredSquasher is owned by one pipeline stage; calls to Add must be
// sequential.
type DeferredSquasher struct {
	accumulated *columnar.Batch

	logger    *zap.Logger
	collector *metrics.Collector
}

// NewDeferredSquasher creates the consumer-side counterpart of a Balancer.
func NewDeferredSquasher(logger *zap.Logger) *DeferredSquasher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DeferredSquasher{
		logger:    logger.With(zap.String("component", "deferred_squasher")),
		collector: metrics.NewCollector("deferred_squasher"),
	}
}

// Add consumes the next payload. A Deferred payload is concatenated and the
// materialized batch returned. Anything else (a nil payload or a
// Materialized one) is treated as an end-of-stream signal: whatever is
// accumulated is flushed and returned, which may be nil. A Deferred payload
// with an empty batch list behaves like a no-op flush.
func (d *DeferredSquasher) Add(payload Payload) (*columnar.Batch, error) {
	def, ok := payload.(*Deferred)
	if !ok {
		return d.flush(), nil
	}

	for _, raw := range def.Batches {
		if raw.IsSentinel() {
			continue
		}
		d.collector.ObserveInput(raw.Rows())
		if d.accumulated == nil {
			// First raw batch establishes the column layout; ownership
			// already transferred with the payload, so adopt it.
			d.accumulated = raw
			continue
		}
		if err := d.accumulated.AppendBatch(raw); err != nil {
			return nil, err
		}
	}

	// The whole group was delivered in one payload, so flush
	// unconditionally.
	return d.flush(), nil
}

func (d *DeferredSquasher) flush() *columnar.Batch {
	out := d.accumulated
	d.accumulated = nil
	if out != nil {
		d.collector.ObserveFlush(metrics.FlushReasonThreshold)
		d.collector.ObserveOutput(out.Rows())
		d.logger.Debug("materialized deferred group",
			zap.Int("rows", out.Rows()),
			zap.Int64("bytes", out.ByteSize()))
	}
	return out
}
