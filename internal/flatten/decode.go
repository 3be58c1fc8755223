package flatten

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Decode reads exactly one JSON value from r. Object key order is preserved
// and numbers are kept as json.Number. A repeated key keeps its first position
// and its last value.
func Decode(r io.Reader) (Cell, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	c, err := decodeValue(dec)
	if err != nil {
		return Cell{}, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Cell{}, errors.New("decode json: unexpected data after top-level value")
	}
	return c, nil
}

func decodeValue(dec *json.Decoder) (Cell, error) {
	tok, err := dec.Token()
	if err != nil {
		return Cell{}, fmt.Errorf("decode json: %w", err)
	}

	switch v := tok.(type) {
	case json.Delim:
		switch v {
		case '{':
			return decodeObject(dec)
		case '[':
			return decodeArray(dec)
		default:
			return Cell{}, fmt.Errorf("decode json: unexpected delimiter %q", v)
		}
	default:
		// nil, bool, string or json.Number
		return Scalar(v), nil
	}
}

func decodeObject(dec *json.Decoder) (Cell, error) {
	fields := []Field{}
	pos := make(map[string]int)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return Cell{}, fmt.Errorf("decode json: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return Cell{}, fmt.Errorf("decode json: object key %v is not a string", tok)
		}
		val, err := decodeValue(dec)
		if err != nil {
			return Cell{}, err
		}
		if i, dup := pos[key]; dup {
			fields[i].Value = val
			continue
		}
		pos[key] = len(fields)
		fields = append(fields, Field{Key: key, Value: val})
	}
	if _, err := dec.Token(); err != nil {
		return Cell{}, fmt.Errorf("decode json: %w", err)
	}
	return Object(fields...), nil
}

func decodeArray(dec *json.Decoder) (Cell, error) {
	items := []Cell{}
	for dec.More() {
		c, err := decodeValue(dec)
		if err != nil {
			return Cell{}, err
		}
		items = append(items, c)
	}
	if _, err := dec.Token(); err != nil {
		return Cell{}, fmt.Errorf("decode json: %w", err)
	}
	return Array(items...), nil
}
