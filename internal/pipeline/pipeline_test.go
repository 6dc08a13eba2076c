package pipeline

import (
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tessera-db/tessera/pkg/columnar"
	"github.com/tessera-db/tessera/pkg/config"
	"github.com/tessera-db/tessera/pkg/errors"
	"github.com/tessera-db/tessera/pkg/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// sliceSource serves a fixed list of batches.
type sliceSource struct {
	batches []*columnar.Batch
	pos     int
	err     error
}

func (s *sliceSource) Next() (*columnar.Batch, error) {
	if s.pos == len(s.batches) {
		if s.err != nil {
			return nil, s.err
		}
		return nil, io.EOF
	}
	b := s.batches[s.pos]
	s.pos++
	return b, nil
}

// captureSink records every emitted batch.
type captureSink struct {
	batches []*columnar.Batch
	flushed bool
}

func (s *captureSink) WriteBatch(b *columnar.Batch) error {
	s.batches = append(s.batches, b)
	return nil
}

func (s *captureSink) Flush() error {
	s.flushed = true
	return nil
}

func testSchema() *columnar.Schema {
	return columnar.NewSchema(
		columnar.Field{Name: "id", Type: columnar.ColumnTypeInt},
		columnar.Field{Name: "label", Type: columnar.ColumnTypeString},
	)
}

func makeBatch(t *testing.T, start, n int) *columnar.Batch {
	t.Helper()
	b := columnar.NewBatch(testSchema())
	for i := 0; i < n; i++ {
		id := int64(start + i)
		require.NoError(t, b.AppendRow([]interface{}{id, fmt.Sprintf("row-%d", id)}))
	}
	return b
}

// sourceOf builds a source with the given batch sizes and sequential ids.
func sourceOf(t *testing.T, sizes ...int) (*sliceSource, int) {
	t.Helper()
	src := &sliceSource{}
	next := 0
	for _, n := range sizes {
		src.batches = append(src.batches, makeBatch(t, next, n))
		next += n
	}
	return src, next
}

// collectIDs flattens the id column across all captured batches.
func collectIDs(sink *captureSink) []int64 {
	var out []int64
	for _, b := range sink.batches {
		for i := 0; i < b.Rows(); i++ {
			out = append(out, b.Value(0, i).(int64))
		}
	}
	return out
}

func testConfig(mode string, minRows uint64) *config.Config {
	cfg := config.New("test")
	cfg.Squash.Mode = mode
	cfg.Squash.MinRows = minRows
	cfg.Squash.MinBytes = 0
	return cfg
}

func runModes(t *testing.T, fn func(t *testing.T, mode string)) {
	for _, mode := range []string{config.ModeEager, config.ModeDeferred} {
		t.Run(mode, func(t *testing.T) { fn(t, mode) })
	}
}

func TestPipelineRechunks(t *testing.T) {
	runModes(t, func(t *testing.T, mode string) {
		ctx, cancel := testutil.TestContext(t)
		defer cancel()

		src, total := sourceOf(t, 400, 400, 400, 300)
		sink := &captureSink{}

		p := New(testConfig(mode, 1000), src, sink, testutil.TestLogger(t))
		require.NoError(t, p.Run(ctx))

		require.Len(t, sink.batches, 2)
		assert.Equal(t, 1200, sink.batches[0].Rows())
		assert.Equal(t, 300, sink.batches[1].Rows(), "remainder flushed at end of stream")
		assert.True(t, sink.flushed)

		got := collectIDs(sink)
		require.Len(t, got, total)
		for i, id := range got {
			assert.Equal(t, int64(i), id)
		}
	})
}

func TestPipelineEmptySource(t *testing.T) {
	runModes(t, func(t *testing.T, mode string) {
		ctx, cancel := testutil.TestContext(t)
		defer cancel()

		sink := &captureSink{}
		p := New(testConfig(mode, 1000), &sliceSource{}, sink, testutil.TestLogger(t))
		require.NoError(t, p.Run(ctx))
		assert.Empty(t, sink.batches)
		assert.True(t, sink.flushed)
	})
}

func TestPipelinePassThrough(t *testing.T) {
	runModes(t, func(t *testing.T, mode string) {
		ctx, cancel := testutil.TestContext(t)
		defer cancel()

		src, total := sourceOf(t, 1, 2, 3)
		sink := &captureSink{}

		p := New(testConfig(mode, 0), src, sink, testutil.TestLogger(t))
		require.NoError(t, p.Run(ctx))

		// Thresholds disabled, every batch is big enough on its own.
		require.Len(t, collectIDs(sink), total)
		assert.Len(t, sink.batches, 3)
	})
}

func TestPipelineSourceError(t *testing.T) {
	runModes(t, func(t *testing.T, mode string) {
		ctx, cancel := testutil.TestContext(t)
		defer cancel()

		src, _ := sourceOf(t, 10)
		src.err = errors.New(errors.ErrorTypeInternal, "storage read failed")
		sink := &captureSink{}

		p := New(testConfig(mode, 1000), src, sink, testutil.TestLogger(t))
		err := p.Run(ctx)
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeInternal))
	})
}

func TestPipelineDeferredWithMemoryLimit(t *testing.T) {
	ctx, cancel := testutil.TestContext(t)
	defer cancel()

	src, total := sourceOf(t, 50, 50, 50, 50, 50, 50, 50, 50)
	sink := &captureSink{}

	cfg := testConfig(config.ModeDeferred, 100)
	// Tight enough that in-flight groups must drain before new ones are
	// admitted, loose enough to fit any single group.
	cfg.Memory.LimitBytes = 16 << 10
	cfg.Pipeline.ChannelCapacity = 1

	p := New(cfg, src, sink, testutil.TestLogger(t))
	require.NoError(t, p.Run(ctx))

	got := collectIDs(sink)
	require.Len(t, got, total)
	for i, id := range got {
		assert.Equal(t, int64(i), id)
	}
}

func TestPipelineEagerSingleLargeBatch(t *testing.T) {
	ctx, cancel := testutil.TestContext(t)
	defer cancel()

	src, _ := sourceOf(t, 5000)
	sink := &captureSink{}

	p := New(testConfig(config.ModeEager, 1000), src, sink, testutil.TestLogger(t))
	require.NoError(t, p.Run(ctx))

	require.Len(t, sink.batches, 1)
	assert.Equal(t, 5000, sink.batches[0].Rows())
}
