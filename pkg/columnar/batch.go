package columnar

import (
	"github.com/tessera-db/tessera/pkg/errors"
)

// Batch is an ordered set of named, equal-length columns. It is the unit of
// data flow in the pipeline. A batch with no columns is the end-of-stream
// sentinel.
type Batch struct {
	schema  *Schema
	columns []Column
}

// NewBatch creates an empty batch with one column per schema field.
func NewBatch(schema *Schema) *Batch {
	columns := make([]Column, schema.NumFields())
	for i, f := range schema.Fields {
		columns[i] = NewColumn(f.Type)
	}
	return &Batch{schema: schema, columns: columns}
}

// NewBatchFromColumns wraps pre-built columns into a batch. The column slice
// must match the schema position for position, and all columns must hold the
// same number of rows.
func NewBatchFromColumns(schema *Schema, columns []Column) (*Batch, error) {
	if len(columns) != schema.NumFields() {
		return nil, errors.New(errors.ErrorTypeValidation, "column count does not match schema").
			WithDetail("schema_fields", schema.NumFields()).
			WithDetail("columns", len(columns))
	}
	for i, col := range columns {
		if col.Type() != schema.Fields[i].Type {
			return nil, errors.New(errors.ErrorTypeValidation, "column type does not match schema").
				WithDetail("field", schema.Fields[i].Name).
				WithDetail("expected", schema.Fields[i].Type.String()).
				WithDetail("actual", col.Type().String())
		}
	}
	b := &Batch{schema: schema, columns: columns}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}

// Sentinel returns the designated end-of-stream batch: zero columns,
// zero rows.
func Sentinel() *Batch {
	return &Batch{}
}

// IsSentinel reports whether the batch is the end-of-stream sentinel.
// A nil batch counts as a sentinel; a zero-row batch with columns does not.
func (b *Batch) IsSentinel() bool {
	return b == nil || len(b.columns) == 0
}

// Schema returns the batch's schema. It may be nil for the sentinel.
func (b *Batch) Schema() *Schema {
	if b == nil {
		return nil
	}
	return b.schema
}

// NumColumns returns the number of columns in the batch.
func (b *Batch) NumColumns() int {
	if b == nil {
		return 0
	}
	return len(b.columns)
}

// Column returns the column at position i.
func (b *Batch) Column(i int) Column {
	return b.columns[i]
}

// Rows returns the batch's row count, taken from the first column.
func (b *Batch) Rows() int {
	if b == nil || len(b.columns) == 0 {
		return 0
	}
	return b.columns[0].Len()
}

// ByteSize returns the total memory held by the batch's column buffers.
func (b *Batch) ByteSize() int64 {
	if b == nil {
		return 0
	}
	var total int64
	for _, col := range b.columns {
		total += col.MemoryUsage()
	}
	return total
}

// Validate checks that every column holds the same number of rows. Columns
// of differing lengths mean corrupted input; row and byte totals would be
// meaningless, so this must pass before any threshold computation.
func (b *Batch) Validate() error {
	if b.IsSentinel() {
		return nil
	}
	rows := b.columns[0].Len()
	for i, col := range b.columns[1:] {
		if col.Len() != rows {
			return errors.New(errors.ErrorTypeData, "sizes of columns don't match").
				WithDetail("column", b.fieldName(i+1)).
				WithDetail("expected_rows", rows).
				WithDetail("actual_rows", col.Len())
		}
	}
	return nil
}

// AppendBatch concatenates other's columns onto this batch in place,
// position for position. The receiver must be exclusively owned by the
// caller. A differing column layout is a contract violation by the
// producing stage and is returned as a validation error.
func (b *Batch) AppendBatch(other *Batch) error {
	if other.IsSentinel() {
		return nil
	}
	if len(other.columns) != len(b.columns) {
		return errors.New(errors.ErrorTypeValidation, "schema mismatch between accumulated and incoming batch").
			WithDetail("accumulated", b.schema.String()).
			WithDetail("incoming", other.schema.String())
	}
	for i, col := range b.columns {
		if err := col.AppendColumn(other.columns[i]); err != nil {
			return errors.Wrap(err, errors.ErrorTypeValidation, "schema mismatch between accumulated and incoming batch").
				WithDetail("column", b.fieldName(i))
		}
	}
	return nil
}

// Clone returns an independent deep copy of the batch.
func (b *Batch) Clone() *Batch {
	if b == nil {
		return nil
	}
	columns := make([]Column, len(b.columns))
	for i, col := range b.columns {
		columns[i] = col.Clone()
	}
	return &Batch{schema: b.schema, columns: columns}
}

// AppendRow appends one value per column, in schema order.
func (b *Batch) AppendRow(values []interface{}) error {
	if len(values) != len(b.columns) {
		return errors.New(errors.ErrorTypeValidation, "row width does not match schema").
			WithDetail("schema_fields", len(b.columns)).
			WithDetail("values", len(values))
	}
	for i, v := range values {
		if err := b.columns[i].Append(v); err != nil {
			return errors.Wrap(err, errors.ErrorTypeData, "appending row value").
				WithDetail("column", b.fieldName(i))
		}
	}
	return nil
}

// Value returns the value at the given column and row.
func (b *Batch) Value(col, row int) interface{} {
	return b.columns[col].Get(row)
}

func (b *Batch) fieldName(i int) string {
	if b.schema != nil && i < len(b.schema.Fields) {
		return b.schema.Fields[i].Name
	}
	return ""
}
