package batchio

import (
	"bufio"
	"io"
	"time"

	gojson "github.com/goccy/go-json"

	"github.com/tessera-db/tessera/pkg/columnar"
	"github.com/tessera-db/tessera/pkg/errors"
	"github.com/tessera-db/tessera/pkg/pool"
)

// Writer encodes columnar batches as JSONL, one object per row with the
// batch's field names as keys.
type Writer struct {
	w *bufio.Writer
}

// NewWriter creates a batch writer over w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriterSize(w, 64*1024)}
}

// WriteBatch writes every row of the batch. Sentinels and nil batches are
// ignored.
func (w *Writer) WriteBatch(b *columnar.Batch) error {
	if b.IsSentinel() {
		return nil
	}
	schema := b.Schema()

	for row := 0; row < b.Rows(); row++ {
		obj := pool.GetRow()
		for col, f := range schema.Fields {
			obj[f.Name] = encodeValue(b.Value(col, row))
		}

		data, err := gojson.Marshal(obj)
		pool.PutRow(obj)
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeData, "encoding output row").
				WithDetail("row", row)
		}
		if _, err := w.w.Write(data); err != nil {
			return errors.Wrap(err, errors.ErrorTypeInternal, "writing output row")
		}
		if err := w.w.WriteByte('\n'); err != nil {
			return errors.Wrap(err, errors.ErrorTypeInternal, "writing output row")
		}
	}
	return nil
}

// Flush writes any buffered output.
func (w *Writer) Flush() error {
	return w.w.Flush()
}

func encodeValue(v interface{}) interface{} {
	if ts, ok := v.(time.Time); ok {
		return ts.Format(time.RFC3339Nano)
	}
	return v
}
