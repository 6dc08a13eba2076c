// Package batchio reads and writes columnar batches as line-delimited JSON
// (JSONL/NDJSON). It provides the producer and consumer ends needed to run
// the re-chunking pipeline against files and standard streams.
package batchio

import (
	"bufio"
	"io"
	"sort"
	"time"

	gojson "github.com/goccy/go-json"

	"github.com/tessera-db/tessera/pkg/columnar"
	"github.com/tessera-db/tessera/pkg/errors"
	"github.com/tessera-db/tessera/pkg/pool"
)

// defaultScanBuffer is the scanner's maximum line size.
const defaultScanBuffer = 1 << 20

// Reader decodes JSONL input into columnar batches of up to batchRows rows.
// The schema is inferred from the first record: keys are sorted, JSON
// strings map to string columns (RFC3339 values to timestamps), booleans to
// bool columns, and numbers to int columns when integral, float otherwise.
type Reader struct {
	scanner   *bufio.Scanner
	batchRows int
	schema    *columnar.Schema
	line      int64
}

// NewReader creates a reader that packs up to batchRows rows per batch.
func NewReader(r io.Reader, batchRows int) *Reader {
	scanner := bufio.NewScanner(bufio.NewReaderSize(r, 64*1024))
	scanner.Buffer(make([]byte, 0, 64*1024), defaultScanBuffer)
	return &Reader{
		scanner:   scanner,
		batchRows: batchRows,
	}
}

// Schema returns the inferred schema. It is nil until the first batch has
// been read.
func (r *Reader) Schema() *columnar.Schema {
	return r.schema
}

// Next returns the next batch, or io.EOF when the input is exhausted.
// The final batch may hold fewer than batchRows rows.
func (r *Reader) Next() (*columnar.Batch, error) {
	var batch *columnar.Batch

	for rows := 0; rows < r.batchRows; {
		if !r.scanner.Scan() {
			if err := r.scanner.Err(); err != nil {
				return nil, errors.Wrap(err, errors.ErrorTypeData, "reading input line").
					WithDetail("line", r.line)
			}
			if batch == nil {
				return nil, io.EOF
			}
			return batch, nil
		}
		r.line++

		line := r.scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		row := pool.GetRow()
		if err := gojson.Unmarshal(line, &row); err != nil {
			pool.PutRow(row)
			return nil, errors.Wrap(err, errors.ErrorTypeData, "parsing input line").
				WithDetail("line", r.line)
		}

		if r.schema == nil {
			r.schema = inferSchema(row)
		}
		if batch == nil {
			batch = columnar.NewBatch(r.schema)
		}

		if err := batch.AppendRow(rowValues(r.schema, row)); err != nil {
			pool.PutRow(row)
			return nil, errors.Wrap(err, errors.ErrorTypeData, "appending input row").
				WithDetail("line", r.line)
		}
		pool.PutRow(row)
		rows++
	}

	return batch, nil
}

// inferSchema derives a column layout from one decoded row.
func inferSchema(row map[string]interface{}) *columnar.Schema {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make([]columnar.Field, 0, len(keys))
	for _, k := range keys {
		fields = append(fields, columnar.Field{Name: k, Type: inferType(row[k])})
	}
	return columnar.NewSchema(fields...)
}

func inferType(v interface{}) columnar.ColumnType {
	switch val := v.(type) {
	case bool:
		return columnar.ColumnTypeBool
	case float64:
		if val == float64(int64(val)) {
			return columnar.ColumnTypeInt
		}
		return columnar.ColumnTypeFloat
	case string:
		if _, err := time.Parse(time.RFC3339Nano, val); err == nil {
			return columnar.ColumnTypeTimestamp
		}
		return columnar.ColumnTypeString
	default:
		return columnar.ColumnTypeString
	}
}

// rowValues extracts one value per schema field, in order, substituting the
// type's zero value for missing keys.
func rowValues(schema *columnar.Schema, row map[string]interface{}) []interface{} {
	values := make([]interface{}, len(schema.Fields))
	for i, f := range schema.Fields {
		v, ok := row[f.Name]
		if !ok || v == nil {
			values[i] = zeroValue(f.Type)
			continue
		}
		values[i] = v
	}
	return values
}

func zeroValue(t columnar.ColumnType) interface{} {
	switch t {
	case columnar.ColumnTypeString:
		return ""
	case columnar.ColumnTypeInt:
		return int64(0)
	case columnar.ColumnTypeFloat:
		return float64(0)
	case columnar.ColumnTypeBool:
		return false
	case columnar.ColumnTypeTimestamp:
		return time.Unix(0, 0).UTC()
	case columnar.ColumnTypeBytes:
		return []byte(nil)
	default:
		return ""
	}
}
