// Package tessera restores batch granularity in columnar query pipelines.
//
// Query stages that filter or join aggressively tend to emit many undersized
// batches, and most consumers are inefficient on them: per-batch overhead
// dominates, compression degrades, output files fragment. Tessera merges a
// stream of variously-sized columnar batches into batches of at least a
// configured row or byte size before they leave the pipeline, preserving
// input order and avoiding copies where a batch is already big enough.
//
// # Components
//
// The squashing core lives in pkg/squash and comes in two flavors:
//
//  1. Eager: squash.Squasher concatenates column data synchronously on the
//     producing stage. Simple, one stage, pays the copy cost inline.
//
//  2. Deferred: squash.Balancer collects batch references cheaply on the
//     producing stage and hands finished groups to a squash.DeferredSquasher,
//     which pays the concatenation cost on a later stage. The Balancer
//     consults a memory admission gate (pkg/memory) before growing, so
//     accumulation is bounded by a shared memory ceiling.
//
// The batch data model is in pkg/columnar; internal/pipeline wires sources,
// the squashing core, and sinks into runnable pipelines; cmd/tessera exposes
// a CLI that re-chunks JSONL streams.
//
// # Quick Start
//
//	import (
//	    "context"
//
//	    "github.com/tessera-db/tessera/internal/pipeline"
//	    "github.com/tessera-db/tessera/pkg/batchio"
//	    "github.com/tessera-db/tessera/pkg/config"
//	)
//
//	cfg := config.New("rechunk")
//	cfg.Squash.MinRows = 65536
//
//	source := batchio.NewReader(in, cfg.Pipeline.ReadBatchRows)
//	sink := batchio.NewWriter(out)
//	p := pipeline.New(cfg, source, sink, nil)
//	err := p.Run(context.Background())
package tessera
