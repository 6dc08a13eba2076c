package squash

import (
	"go.uber.org/zap"

	"github.com/tessera-db/tessera/pkg/columnar"
	"github.com/tessera-db/tessera/pkg/metrics"
)

// Squasher merges consecutive batches up to the configured thresholds by
// copying column data into a single growing buffer. If an input batch is
// already big enough on its own it is passed through untouched rather than
// merged with its neighbours.
//
// A Squasher is owned by one pipeline stage; calls to Add must be
// sequential.
type Squasher struct {
	thresholds  Thresholds
	accumulated *columnar.Batch

	logger    *zap.Logger
	collector *metrics.Collector
}

// NewSquasher creates an eager squasher with the given thresholds.
func NewSquasher(thresholds Thresholds, logger *zap.Logger) *Squasher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Squasher{
		thresholds: thresholds,
		logger:     logger.With(zap.String("component", "squasher")),
		collector:  metrics.NewCollector("squasher"),
	}
}

// Add feeds the next batch and possibly returns a squashed batch. A nil
// result means nothing is ready yet. At end of stream pass the sentinel
// (nil or a zero-column batch); the result of that final call is whatever
// was still accumulated, which may be smaller than the thresholds.
//
// Ownership of the input transfers to the squasher. When the input is
// returned unchanged (the zero-copy fast path) it shares storage with what
// the caller passed in.
func (s *Squasher) Add(batch *columnar.Batch) (*columnar.Batch, error) {
	if batch.IsSentinel() {
		return s.flush(metrics.FlushReasonSentinel), nil
	}

	if err := batch.Validate(); err != nil {
		return nil, err
	}
	s.collector.ObserveInput(batch.Rows())

	// Just-read batch is already big enough on its own.
	if s.thresholds.EnoughBatch(batch) {
		if s.accumulated == nil {
			// Zero-copy fast path.
			s.collector.ObserveOutput(batch.Rows())
			return batch, nil
		}
		// Release the (possibly small) accumulation and start over with
		// the new batch. The accumulation was received earlier, so
		// returning it first keeps the order.
		return s.replace(batch), nil
	}

	// The accumulation already crossed the threshold on its own. Normally
	// it would have been flushed by the call that got it there; reaching
	// this point means a flush went unconsumed, so restart.
	if s.accumulated != nil && s.thresholds.EnoughBatch(s.accumulated) {
		return s.replace(batch), nil
	}

	if s.accumulated == nil {
		s.accumulated = batch
	} else if err := s.accumulated.AppendBatch(batch); err != nil {
		return nil, err
	}
	s.collector.SetPendingBytes(s.accumulated.ByteSize())

	if s.thresholds.EnoughBatch(s.accumulated) {
		return s.flush(metrics.FlushReasonThreshold), nil
	}

	// Squashed batch is not ready.
	return nil, nil
}

// flush releases the accumulation and resets the buffer to empty.
func (s *Squasher) flush(reason string) *columnar.Batch {
	out := s.accumulated
	s.accumulated = nil
	s.collector.SetPendingBytes(0)
	if out != nil {
		s.collector.ObserveFlush(reason)
		s.collector.ObserveOutput(out.Rows())
		s.logger.Debug("flushed accumulated batch",
			zap.String("reason", reason),
			zap.Int("rows", out.Rows()),
			zap.Int64("bytes", out.ByteSize()))
	}
	return out
}

// replace swaps the incoming batch into the buffer and returns the previous
// accumulation.
func (s *Squasher) replace(batch *columnar.Batch) *columnar.Batch {
	out := s.accumulated
	s.accumulated = batch
	s.collector.SetPendingBytes(batch.ByteSize())
	s.collector.ObserveFlush(metrics.FlushReasonRestart)
	s.collector.ObserveOutput(out.Rows())
	return out
}
