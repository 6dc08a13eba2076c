package columnar

import (
	"fmt"
	"time"
)

// ColumnType represents the data type of a column
type ColumnType int

const (
	ColumnTypeString ColumnType = iota
	ColumnTypeInt
	ColumnTypeFloat
	ColumnTypeBool
	ColumnTypeTimestamp
	ColumnTypeBytes
)

// String returns the type name used in schemas and error messages.
func (t ColumnType) String() string {
	switch t {
	case ColumnTypeString:
		return "string"
	case ColumnTypeInt:
		return "int"
	case ColumnTypeFloat:
		return "float"
	case ColumnTypeBool:
		return "bool"
	case ColumnTypeTimestamp:
		return "timestamp"
	case ColumnTypeBytes:
		return "bytes"
	default:
		return fmt.Sprintf("unknown(%d)", int(t))
	}
}

// Column is the base interface for all column types.
//
// AppendColumn concatenates another column of the same concrete type onto
// this one, preserving order (incoming values after existing ones). The
// receiver must be exclusively owned by the caller; the source column is
// only read.
type Column interface {
	Type() ColumnType
	Len() int
	Get(i int) interface{}
	Append(value interface{}) error
	AppendColumn(other Column) error
	Clone() Column
	MemoryUsage() int64
}

// NewColumn creates an empty column of the given type.
func NewColumn(t ColumnType) Column {
	switch t {
	case ColumnTypeString:
		return NewStringColumn()
	case ColumnTypeInt:
		return NewIntColumn()
	case ColumnTypeFloat:
		return NewFloatColumn()
	case ColumnTypeBool:
		return NewBoolColumn()
	case ColumnTypeTimestamp:
		return NewTimestampColumn()
	case ColumnTypeBytes:
		return NewBytesColumn()
	default:
		return NewStringColumn()
	}
}

// StringColumn stores string values.
type StringColumn struct {
	values []string
}

// NewStringColumn creates a new string column
func NewStringColumn() *StringColumn {
	return &StringColumn{values: make([]string, 0, 1024)}
}

func (c *StringColumn) Type() ColumnType    { return ColumnTypeString }
func (c *StringColumn) Len() int            { return len(c.values) }
func (c *StringColumn) Get(i int) interface{} { return c.values[i] }

func (c *StringColumn) Append(value interface{}) error {
	str, ok := value.(string)
	if !ok {
		return fmt.Errorf("expected string, got %T", value)
	}
	c.values = append(c.values, str)
	return nil
}

func (c *StringColumn) AppendColumn(other Column) error {
	src, ok := other.(*StringColumn)
	if !ok {
		return fmt.Errorf("cannot append %s column to string column", other.Type())
	}
	c.values = append(c.values, src.values...)
	return nil
}

func (c *StringColumn) Clone() Column {
	values := make([]string, len(c.values))
	copy(values, c.values)
	return &StringColumn{values: values}
}

func (c *StringColumn) MemoryUsage() int64 {
	var total int64
	for _, v := range c.values {
		total += int64(len(v))
		total += 16 // string header overhead
	}
	return total
}

// IntColumn stores signed 64-bit integer values.
type IntColumn struct {
	values []int64
}

// NewIntColumn creates a new integer column
func NewIntColumn() *IntColumn {
	return &IntColumn{values: make([]int64, 0, 1024)}
}

func (c *IntColumn) Type() ColumnType    { return ColumnTypeInt }
func (c *IntColumn) Len() int            { return len(c.values) }
func (c *IntColumn) Get(i int) interface{} { return c.values[i] }

func (c *IntColumn) Append(value interface{}) error {
	switch v := value.(type) {
	case int:
		c.values = append(c.values, int64(v))
	case int32:
		c.values = append(c.values, int64(v))
	case int64:
		c.values = append(c.values, v)
	case float64:
		// JSON numbers decode as float64; accept integral values.
		if v != float64(int64(v)) {
			return fmt.Errorf("cannot store non-integral %v in int column", v)
		}
		c.values = append(c.values, int64(v))
	default:
		return fmt.Errorf("expected int, got %T", value)
	}
	return nil
}

func (c *IntColumn) AppendColumn(other Column) error {
	src, ok := other.(*IntColumn)
	if !ok {
		return fmt.Errorf("cannot append %s column to int column", other.Type())
	}
	c.values = append(c.values, src.values...)
	return nil
}

func (c *IntColumn) Clone() Column {
	values := make([]int64, len(c.values))
	copy(values, c.values)
	return &IntColumn{values: values}
}

func (c *IntColumn) MemoryUsage() int64 {
	return int64(len(c.values) * 8)
}

// FloatColumn stores 64-bit floating point values.
type FloatColumn struct {
	values []float64
}

// NewFloatColumn creates a new float column
func NewFloatColumn() *FloatColumn {
	return &FloatColumn{values: make([]float64, 0, 1024)}
}

func (c *FloatColumn) Type() ColumnType    { return ColumnTypeFloat }
func (c *FloatColumn) Len() int            { return len(c.values) }
func (c *FloatColumn) Get(i int) interface{} { return c.values[i] }

func (c *FloatColumn) Append(value interface{}) error {
	switch v := value.(type) {
	case float64:
		c.values = append(c.values, v)
	case float32:
		c.values = append(c.values, float64(v))
	case int:
		c.values = append(c.values, float64(v))
	case int64:
		c.values = append(c.values, float64(v))
	default:
		return fmt.Errorf("expected float, got %T", value)
	}
	return nil
}

func (c *FloatColumn) AppendColumn(other Column) error {
	src, ok := other.(*FloatColumn)
	if !ok {
		return fmt.Errorf("cannot append %s column to float column", other.Type())
	}
	c.values = append(c.values, src.values...)
	return nil
}

func (c *FloatColumn) Clone() Column {
	values := make([]float64, len(c.values))
	copy(values, c.values)
	return &FloatColumn{values: values}
}

func (c *FloatColumn) MemoryUsage() int64 {
	return int64(len(c.values) * 8)
}

// BoolColumn stores boolean values bit-packed, 64 per word.
type BoolColumn struct {
	words []uint64
	count int
}

// NewBoolColumn creates a new boolean column
func NewBoolColumn() *BoolColumn {
	return &BoolColumn{words: make([]uint64, 0, 16)}
}

func (c *BoolColumn) Type() ColumnType { return ColumnTypeBool }
func (c *BoolColumn) Len() int         { return c.count }

func (c *BoolColumn) Get(i int) interface{} {
	return (c.words[i/64] & (1 << (i % 64))) != 0
}

func (c *BoolColumn) Append(value interface{}) error {
	boolVal, ok := value.(bool)
	if !ok {
		return fmt.Errorf("expected bool, got %T", value)
	}
	if c.count/64 >= len(c.words) {
		c.words = append(c.words, 0)
	}
	if boolVal {
		c.words[c.count/64] |= 1 << (c.count % 64)
	}
	c.count++
	return nil
}

func (c *BoolColumn) AppendColumn(other Column) error {
	src, ok := other.(*BoolColumn)
	if !ok {
		return fmt.Errorf("cannot append %s column to bool column", other.Type())
	}
	// Incoming bits rarely align to a word boundary, so append bit by bit.
	for i := 0; i < src.count; i++ {
		if err := c.Append(src.Get(i)); err != nil {
			return err
		}
	}
	return nil
}

func (c *BoolColumn) Clone() Column {
	words := make([]uint64, len(c.words))
	copy(words, c.words)
	return &BoolColumn{words: words, count: c.count}
}

func (c *BoolColumn) MemoryUsage() int64 {
	return int64(len(c.words) * 8)
}

// TimestampColumn stores time values as nanoseconds since the Unix epoch.
type TimestampColumn struct {
	nanos []int64
}

// NewTimestampColumn creates a new timestamp column
func NewTimestampColumn() *TimestampColumn {
	return &TimestampColumn{nanos: make([]int64, 0, 1024)}
}

func (c *TimestampColumn) Type() ColumnType { return ColumnTypeTimestamp }
func (c *TimestampColumn) Len() int         { return len(c.nanos) }

func (c *TimestampColumn) Get(i int) interface{} {
	return time.Unix(0, c.nanos[i]).UTC()
}

func (c *TimestampColumn) Append(value interface{}) error {
	switch v := value.(type) {
	case time.Time:
		c.nanos = append(c.nanos, v.UnixNano())
	case int64:
		c.nanos = append(c.nanos, v)
	case string:
		ts, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return fmt.Errorf("cannot parse %q as timestamp: %w", v, err)
		}
		c.nanos = append(c.nanos, ts.UnixNano())
	default:
		return fmt.Errorf("expected timestamp, got %T", value)
	}
	return nil
}

func (c *TimestampColumn) AppendColumn(other Column) error {
	src, ok := other.(*TimestampColumn)
	if !ok {
		return fmt.Errorf("cannot append %s column to timestamp column", other.Type())
	}
	c.nanos = append(c.nanos, src.nanos...)
	return nil
}

func (c *TimestampColumn) Clone() Column {
	nanos := make([]int64, len(c.nanos))
	copy(nanos, c.nanos)
	return &TimestampColumn{nanos: nanos}
}

func (c *TimestampColumn) MemoryUsage() int64 {
	return int64(len(c.nanos) * 8)
}

// BytesColumn stores raw byte slices.
type BytesColumn struct {
	values [][]byte
}

// NewBytesColumn creates a new bytes column
func NewBytesColumn() *BytesColumn {
	return &BytesColumn{values: make([][]byte, 0, 1024)}
}

func (c *BytesColumn) Type() ColumnType    { return ColumnTypeBytes }
func (c *BytesColumn) Len() int            { return len(c.values) }
func (c *BytesColumn) Get(i int) interface{} { return c.values[i] }

func (c *BytesColumn) Append(value interface{}) error {
	b, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("expected bytes, got %T", value)
	}
	c.values = append(c.values, b)
	return nil
}

func (c *BytesColumn) AppendColumn(other Column) error {
	src, ok := other.(*BytesColumn)
	if !ok {
		return fmt.Errorf("cannot append %s column to bytes column", other.Type())
	}
	c.values = append(c.values, src.values...)
	return nil
}

func (c *BytesColumn) Clone() Column {
	values := make([][]byte, len(c.values))
	for i, v := range c.values {
		values[i] = append([]byte(nil), v...)
	}
	return &BytesColumn{values: values}
}

func (c *BytesColumn) MemoryUsage() int64 {
	var total int64
	for _, v := range c.values {
		total += int64(len(v))
		total += 24 // slice header overhead
	}
	return total
}
