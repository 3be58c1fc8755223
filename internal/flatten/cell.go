// Package flatten turns nested JSON records into flat, spreadsheet-ready
// tables.
//
// Values are held in Cell, a tagged variant that is a Scalar, an Object
// (ordered key/value fields) or an Array. Flatten repeatedly expands object
// columns into dotted sibling columns and explodes array columns into extra
// rows until every remaining column is either scalar or of mixed kinds.
package flatten

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Kind identifies which variant a Cell holds.
type Kind int

const (
	KindScalar Kind = iota
	KindObject
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	default:
		return "scalar"
	}
}

// Field is one key/value pair of an Object cell.
type Field struct {
	Key   string
	Value Cell
}

// Cell is an immutable JSON value. The zero Cell is a null scalar.
type Cell struct {
	kind   Kind
	scalar any
	fields []Field
	items  []Cell
}

// Null returns a null scalar.
func Null() Cell { return Cell{} }

// Scalar wraps a primitive value: nil, bool, string, json.Number or any Go
// numeric type.
func Scalar(v any) Cell { return Cell{kind: KindScalar, scalar: v} }

// Object returns an object cell whose fields keep the given order.
func Object(fields ...Field) Cell {
	if fields == nil {
		fields = []Field{}
	}
	return Cell{kind: KindObject, fields: fields}
}

// Array returns an array cell holding items in order.
func Array(items ...Cell) Cell {
	if items == nil {
		items = []Cell{}
	}
	return Cell{kind: KindArray, items: items}
}

// F is shorthand for building a Field.
func F(key string, value Cell) Field { return Field{Key: key, Value: value} }

func (c Cell) Kind() Kind { return c.kind }

// Value returns the primitive held by a scalar cell, nil otherwise.
func (c Cell) Value() any {
	if c.kind != KindScalar {
		return nil
	}
	return c.scalar
}

// IsNull reports whether c is a null scalar.
func (c Cell) IsNull() bool { return c.kind == KindScalar && c.scalar == nil }

// Fields returns the fields of an object cell. Callers must not modify the
// returned slice.
func (c Cell) Fields() []Field { return c.fields }

// Items returns the elements of an array cell. Callers must not modify the
// returned slice.
func (c Cell) Items() []Cell { return c.items }

// Get looks up key in an object cell.
func (c Cell) Get(key string) (Cell, bool) {
	for _, f := range c.fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return Cell{}, false
}

// MarshalJSON encodes c as compact JSON. Object fields keep their order.
func (c Cell) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := c.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c Cell) encode(buf *bytes.Buffer) error {
	switch c.kind {
	case KindObject:
		buf.WriteByte('{')
		for i, f := range c.fields {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := marshalNoEscape(f.Key)
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := f.Value.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case KindArray:
		buf.WriteByte('[')
		for i, item := range c.items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	default:
		b, err := marshalNoEscape(c.scalar)
		if err != nil {
			return fmt.Errorf("encode scalar %v: %w", c.scalar, err)
		}
		buf.Write(b)
	}
	return nil
}

// marshalNoEscape is json.Marshal without HTML escaping, so policy documents
// with conditions like "<" stay readable in the workbook.
func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// String renders scalars with fmt and nested cells as compact JSON.
func (c Cell) String() string {
	if c.kind == KindScalar {
		if c.scalar == nil {
			return ""
		}
		return fmt.Sprint(c.scalar)
	}
	b, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("<%s: %v>", c.kind, err)
	}
	return string(b)
}
