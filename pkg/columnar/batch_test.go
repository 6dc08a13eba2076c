package columnar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessera-db/tessera/pkg/errors"
)

func eventSchema() *Schema {
	return NewSchema(
		Field{Name: "id", Type: ColumnTypeInt},
		Field{Name: "name", Type: ColumnTypeString},
		Field{Name: "score", Type: ColumnTypeFloat},
		Field{Name: "active", Type: ColumnTypeBool},
		Field{Name: "seen_at", Type: ColumnTypeTimestamp},
	)
}

func eventBatch(t *testing.T, n int) *Batch {
	t.Helper()
	b := NewBatch(eventSchema())
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		require.NoError(t, b.AppendRow([]interface{}{
			int64(i), "ev", float64(i) / 2, i%2 == 0, base.Add(time.Duration(i) * time.Second),
		}))
	}
	return b
}

func TestSentinelSemantics(t *testing.T) {
	s := Sentinel()
	assert.True(t, s.IsSentinel())
	assert.Equal(t, 0, s.Rows())
	assert.Equal(t, int64(0), s.ByteSize())

	var nilBatch *Batch
	assert.True(t, nilBatch.IsSentinel())
	assert.Equal(t, 0, nilBatch.Rows())

	// A zero-row batch with columns is empty but not the sentinel.
	empty := NewBatch(eventSchema())
	assert.False(t, empty.IsSentinel())
}

func TestBatchValidate(t *testing.T) {
	b := eventBatch(t, 3)
	require.NoError(t, b.Validate())

	// Unbalance one column.
	require.NoError(t, b.Column(0).Append(int64(99)))
	err := b.Validate()
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeData))
	assert.Contains(t, err.Error(), "sizes of columns don't match")
}

func TestBatchAppendBatch(t *testing.T) {
	a := eventBatch(t, 3)
	b := eventBatch(t, 2)

	require.NoError(t, a.AppendBatch(b))
	assert.Equal(t, 5, a.Rows())
	assert.Equal(t, int64(0), a.Value(0, 3), "appended rows restart their own ids")

	// Appending the sentinel is a no-op.
	require.NoError(t, a.AppendBatch(Sentinel()))
	assert.Equal(t, 5, a.Rows())
}

func TestBatchAppendBatchSchemaMismatch(t *testing.T) {
	a := eventBatch(t, 1)
	other := NewBatch(NewSchema(Field{Name: "x", Type: ColumnTypeBytes}))
	require.NoError(t, other.AppendRow([]interface{}{[]byte("abc")}))

	err := a.AppendBatch(other)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestBatchCloneIsIndependent(t *testing.T) {
	orig := eventBatch(t, 2)
	clone := orig.Clone()

	require.NoError(t, orig.AppendBatch(eventBatch(t, 2)))
	assert.Equal(t, 4, orig.Rows())
	assert.Equal(t, 2, clone.Rows(), "clone keeps its own buffers")

	for row := 0; row < 2; row++ {
		for col := 0; col < orig.NumColumns(); col++ {
			assert.Equal(t, orig.Value(col, row), clone.Value(col, row))
		}
	}
}

func TestNewBatchFromColumns(t *testing.T) {
	schema := NewSchema(
		Field{Name: "id", Type: ColumnTypeInt},
		Field{Name: "name", Type: ColumnTypeString},
	)
	idCol := NewIntColumn()
	nameCol := NewStringColumn()
	require.NoError(t, idCol.Append(int64(7)))
	require.NoError(t, nameCol.Append("seven"))

	b, err := NewBatchFromColumns(schema, []Column{idCol, nameCol})
	require.NoError(t, err)
	assert.Equal(t, 1, b.Rows())

	// Wrong column count.
	_, err = NewBatchFromColumns(schema, []Column{idCol})
	require.Error(t, err)

	// Wrong column type.
	_, err = NewBatchFromColumns(schema, []Column{nameCol, idCol})
	require.Error(t, err)
}

func TestColumnTypesRoundTrip(t *testing.T) {
	b := eventBatch(t, 4)

	assert.Equal(t, int64(2), b.Value(0, 2))
	assert.Equal(t, "ev", b.Value(1, 0))
	assert.Equal(t, 1.5, b.Value(2, 3))
	assert.Equal(t, true, b.Value(3, 0))
	assert.Equal(t, false, b.Value(3, 1))

	seen := b.Value(4, 1).(time.Time)
	assert.Equal(t, time.Date(2024, 3, 1, 12, 0, 1, 0, time.UTC), seen.UTC())
}

func TestBoolColumnAppendColumn(t *testing.T) {
	// Bit-packed storage must splice correctly across word boundaries.
	a := NewBoolColumn()
	b := NewBoolColumn()
	for i := 0; i < 70; i++ {
		require.NoError(t, a.Append(i%3 == 0))
		require.NoError(t, b.Append(i%2 == 0))
	}

	require.NoError(t, a.AppendColumn(b))
	require.Equal(t, 140, a.Len())
	for i := 0; i < 70; i++ {
		assert.Equal(t, i%3 == 0, a.Get(i), "original bits at %d", i)
		assert.Equal(t, i%2 == 0, a.Get(70+i), "appended bits at %d", i)
	}
}

func TestByteSizeGrowsWithRows(t *testing.T) {
	small := eventBatch(t, 1)
	big := eventBatch(t, 100)
	assert.Greater(t, big.ByteSize(), small.ByteSize())
}
