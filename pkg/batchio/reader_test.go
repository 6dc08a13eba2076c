package batchio

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessera-db/tessera/pkg/columnar"
	"github.com/tessera-db/tessera/pkg/errors"
)

const sampleJSONL = `{"id": 1, "name": "alpha", "score": 1.5, "active": true, "seen_at": "2024-03-01T12:00:00Z"}
{"id": 2, "name": "beta", "score": 2.5, "active": false, "seen_at": "2024-03-01T12:00:01Z"}
{"id": 3, "name": "gamma", "score": 3.5, "active": true, "seen_at": "2024-03-01T12:00:02Z"}
`

func TestReaderInfersSchema(t *testing.T) {
	r := NewReader(strings.NewReader(sampleJSONL), 10)

	batch, err := r.Next()
	require.NoError(t, err)
	require.NotNil(t, batch)
	assert.Equal(t, 3, batch.Rows())

	// Keys come out sorted.
	schema := r.Schema()
	require.NotNil(t, schema)
	want := columnar.NewSchema(
		columnar.Field{Name: "active", Type: columnar.ColumnTypeBool},
		columnar.Field{Name: "id", Type: columnar.ColumnTypeInt},
		columnar.Field{Name: "name", Type: columnar.ColumnTypeString},
		columnar.Field{Name: "score", Type: columnar.ColumnTypeFloat},
		columnar.Field{Name: "seen_at", Type: columnar.ColumnTypeTimestamp},
	)
	assert.True(t, want.Equal(schema), "got schema %s", schema)

	assert.Equal(t, true, batch.Value(0, 0))
	assert.Equal(t, int64(2), batch.Value(1, 1))
	assert.Equal(t, "gamma", batch.Value(2, 2))
	assert.Equal(t, 2.5, batch.Value(3, 1))
	seen := batch.Value(4, 0).(time.Time)
	assert.Equal(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), seen.UTC())

	_, err = r.Next()
	assert.Equal(t, io.EOF, err)
}

func TestReaderSplitsIntoBatches(t *testing.T) {
	var buf bytes.Buffer
	for i := 0; i < 7; i++ {
		buf.WriteString(`{"id": `)
		buf.WriteByte(byte('0' + i))
		buf.WriteString("}\n")
	}

	r := NewReader(&buf, 3)
	var sizes []int
	for {
		batch, err := r.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		sizes = append(sizes, batch.Rows())
	}
	assert.Equal(t, []int{3, 3, 1}, sizes, "full batches then the partial remainder")
}

func TestReaderSkipsBlankLines(t *testing.T) {
	input := "{\"id\": 1}\n\n{\"id\": 2}\n"
	r := NewReader(strings.NewReader(input), 10)

	batch, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, 2, batch.Rows())
}

func TestReaderMissingKeysGetZeroValues(t *testing.T) {
	input := `{"id": 1, "name": "full"}
{"id": 2}
`
	r := NewReader(strings.NewReader(input), 10)

	batch, err := r.Next()
	require.NoError(t, err)
	require.Equal(t, 2, batch.Rows())
	assert.Equal(t, "full", batch.Value(1, 0))
	assert.Equal(t, "", batch.Value(1, 1), "missing string key becomes empty")
}

func TestReaderMalformedLine(t *testing.T) {
	input := "{\"id\": 1}\nnot json\n"
	r := NewReader(strings.NewReader(input), 10)

	_, err := r.Next()
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeData))
}

func TestReaderEmptyInput(t *testing.T) {
	r := NewReader(strings.NewReader(""), 10)
	_, err := r.Next()
	assert.Equal(t, io.EOF, err)
}

func TestWriterRoundTrip(t *testing.T) {
	r := NewReader(strings.NewReader(sampleJSONL), 10)
	batch, err := r.Next()
	require.NoError(t, err)

	var out bytes.Buffer
	w := NewWriter(&out)
	require.NoError(t, w.WriteBatch(batch))
	require.NoError(t, w.Flush())

	// Decode what was written and compare against the source batch.
	r2 := NewReader(&out, 10)
	batch2, err := r2.Next()
	require.NoError(t, err)
	require.Equal(t, batch.Rows(), batch2.Rows())
	require.True(t, r.Schema().Equal(r2.Schema()))
	for row := 0; row < batch.Rows(); row++ {
		for col := 0; col < batch.NumColumns(); col++ {
			assert.Equal(t, batch.Value(col, row), batch2.Value(col, row))
		}
	}
}

func TestWriterIgnoresSentinel(t *testing.T) {
	var out bytes.Buffer
	w := NewWriter(&out)

	require.NoError(t, w.WriteBatch(columnar.Sentinel()))
	require.NoError(t, w.WriteBatch(nil))
	require.NoError(t, w.Flush())
	assert.Zero(t, out.Len())
}
