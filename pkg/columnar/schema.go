package columnar

import "fmt"

// Field describes a single named, typed column position in a schema.
type Field struct {
	Name string     `yaml:"name" json:"name"`
	Type ColumnType `yaml:"type" json:"type"`
}

// Schema describes the column layout of a batch. Column order is
// significant: batches are concatenated position by position.
type Schema struct {
	Fields []Field `yaml:"fields" json:"fields"`
}

// NewSchema creates a schema from the given fields.
func NewSchema(fields ...Field) *Schema {
	return &Schema{Fields: fields}
}

// NumFields returns the number of fields in the schema.
func (s *Schema) NumFields() int {
	if s == nil {
		return 0
	}
	return len(s.Fields)
}

// Equal reports whether two schemas have the same column names and types
// in the same order.
func (s *Schema) Equal(other *Schema) bool {
	if s.NumFields() != other.NumFields() {
		return false
	}
	for i, f := range s.Fields {
		if other.Fields[i] != f {
			return false
		}
	}
	return true
}

// String renders the schema as "name:type, ..." for error messages and logs.
func (s *Schema) String() string {
	if s == nil {
		return "<nil>"
	}
	out := ""
	for i, f := range s.Fields {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%s:%s", f.Name, f.Type)
	}
	return out
}
