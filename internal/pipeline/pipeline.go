// Package pipeline wires the batch re-chunking components into runnable
// stages: a source producing columnar batches, the squashing core, and a
// sink consuming the re-chunked output.
//
// # Topologies
//
// Eager mode runs a single stage: every batch is squashed synchronously on
// the reading goroutine before it reaches the sink.
//
// Deferred mode splits the cost across two stages. The producer stage runs
// the Balancer, which only collects batch references; deferred groups are
// handed to the consumer stage over a channel, where the DeferredSquasher
// pays the concatenation cost. The hand-off transfers ownership of the
// payload and the raw batches it carries, so the two stages share no
// mutable state.
//
// Data flow is strictly linear and order preserving: no batch is ever
// reordered relative to another.
package pipeline

import (
	"context"
	"io"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/tessera-db/tessera/pkg/columnar"
	"github.com/tessera-db/tessera/pkg/config"
	"github.com/tessera-db/tessera/pkg/memory"
	"github.com/tessera-db/tessera/pkg/observability"
	"github.com/tessera-db/tessera/pkg/squash"
)

// Source produces columnar batches. Next returns io.EOF when the stream is
// exhausted.
type Source interface {
	Next() (*columnar.Batch, error)
}

// Sink consumes re-chunked batches.
type Sink interface {
	WriteBatch(batch *columnar.Batch) error
	Flush() error
}

// Pipeline runs a re-chunking pass from a source to a sink.
type Pipeline struct {
	cfg    *config.Config
	source Source
	sink   Sink
	logger *zap.Logger

	batchesOut int64
	rowsOut    int64
}

// New creates a pipeline. The configuration must have been validated.
func New(cfg *config.Config, source Source, sink Sink, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		cfg:    cfg,
		source: source,
		sink:   sink,
		logger: logger.With(zap.String("pipeline", cfg.Name)),
	}
}

// Run executes the pipeline until the source is exhausted or ctx is
// cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	ctx, span := observability.StartSpan(ctx, "pipeline.run",
		attribute.String("pipeline", p.cfg.Name),
		attribute.String("mode", p.cfg.Squash.Mode))
	defer span.End()

	start := time.Now()
	p.logger.Info("pipeline starting",
		zap.String("mode", p.cfg.Squash.Mode),
		zap.Uint64("min_rows", p.cfg.Squash.MinRows),
		zap.Uint64("min_bytes", p.cfg.Squash.MinBytes))

	var err error
	switch p.cfg.Squash.Mode {
	case config.ModeEager:
		err = p.runEager(ctx)
	default:
		err = p.runDeferred(ctx)
	}
	if err != nil {
		p.logger.Error("pipeline failed", zap.Error(err))
		return err
	}

	if err := p.sink.Flush(); err != nil {
		return err
	}

	duration := time.Since(start)
	p.logger.Info("pipeline completed",
		zap.Int64("batches_out", p.batchesOut),
		zap.Int64("rows_out", p.rowsOut),
		zap.Duration("duration", duration))
	return nil
}

// thresholds builds the squash thresholds from configuration.
func (p *Pipeline) thresholds() squash.Thresholds {
	return squash.Thresholds{
		MinRows:  p.cfg.Squash.MinRows,
		MinBytes: p.cfg.Squash.MinBytes,
	}
}

// runEager squashes synchronously on the reading goroutine.
func (p *Pipeline) runEager(ctx context.Context) error {
	squasher := squash.NewSquasher(p.thresholds(), p.logger)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		batch, err := p.source.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		out, err := squasher.Add(batch)
		if err != nil {
			return err
		}
		if out != nil {
			if err := p.emit(out); err != nil {
				return err
			}
		}
	}

	// Drain whatever is still accumulated.
	out, err := squasher.Add(columnar.Sentinel())
	if err != nil {
		return err
	}
	if out != nil {
		return p.emit(out)
	}
	return nil
}

// runDeferred collects on the producer goroutine and concatenates on the
// consumer goroutine. Deferred groups are accounted against the memory
// budget while they are in flight, so a slow consumer pushes back on the
// producer through the admission gate.
func (p *Pipeline) runDeferred(ctx context.Context) error {
	tracker, budget := p.buildTracker()
	gate := memory.NewGate(tracker,
		memory.WithPollInterval(p.cfg.Memory.PollInterval),
		memory.WithLogger(p.logger))

	balancer := squash.NewBalancer(nil, p.thresholds(), gate, p.logger)
	squasher := squash.NewDeferredSquasher(p.logger)

	payloads := make(chan *squash.Deferred, p.cfg.Pipeline.ChannelCapacity)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg          sync.WaitGroup
		producerErr error
		consumerErr error
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(payloads)
		producerErr = p.produce(ctx, balancer, budget, payloads)
		if producerErr != nil {
			cancel()
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		consumerErr = p.consume(ctx, squasher, budget, payloads)
		if consumerErr != nil {
			cancel()
		}
	}()

	wg.Wait()

	if producerErr != nil {
		return producerErr
	}
	return consumerErr
}

// buildTracker returns the tracker for the admission gate and, when the
// tracker is a query-scoped budget, the budget to account in-flight groups
// against.
func (p *Pipeline) buildTracker() (memory.Tracker, *memory.Budget) {
	if p.cfg.Memory.UseSystemTracker {
		return memory.NewSystemTracker(p.cfg.Memory.LimitBytes), nil
	}
	budget := memory.NewBudget(p.cfg.Memory.LimitBytes)
	return budget, budget
}

func (p *Pipeline) produce(ctx context.Context, balancer *squash.Balancer, budget *memory.Budget, payloads chan<- *squash.Deferred) error {
	for {
		batch, err := p.source.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		payload, err := balancer.Add(ctx, batch)
		if err != nil {
			return err
		}
		// Provisional materialized results stay queued inside the
		// balancer; only finished groups move downstream.
		if def, ok := payload.(*squash.Deferred); ok {
			if err := p.send(ctx, def, budget, payloads); err != nil {
				return err
			}
		}
	}

	if balancer.DataLeft() {
		payload, err := balancer.Add(ctx, columnar.Sentinel())
		if err != nil {
			return err
		}
		if def, ok := payload.(*squash.Deferred); ok {
			return p.send(ctx, def, budget, payloads)
		}
	}
	return nil
}

func (p *Pipeline) send(ctx context.Context, def *squash.Deferred, budget *memory.Budget, payloads chan<- *squash.Deferred) error {
	if budget != nil {
		budget.Acquire(def.ByteSize())
	}
	select {
	case payloads <- def:
		return nil
	case <-ctx.Done():
		if budget != nil {
			budget.Release(def.ByteSize())
		}
		return ctx.Err()
	}
}

func (p *Pipeline) consume(ctx context.Context, squasher *squash.DeferredSquasher, budget *memory.Budget, payloads <-chan *squash.Deferred) error {
	for def := range payloads {
		bytes := def.ByteSize()

		out, err := squasher.Add(def)
		if err != nil {
			return err
		}
		if out != nil {
			if err := p.emit(out); err != nil {
				return err
			}
		}

		if budget != nil {
			budget.Release(bytes)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}

	// End-of-stream flush; groups are materialized whole, so this is
	// normally empty.
	out, err := squasher.Add(nil)
	if err != nil {
		return err
	}
	if out != nil {
		return p.emit(out)
	}
	return nil
}

func (p *Pipeline) emit(batch *columnar.Batch) error {
	if err := p.sink.WriteBatch(batch); err != nil {
		return err
	}
	p.batchesOut++
	p.rowsOut += int64(batch.Rows())
	return nil
}
