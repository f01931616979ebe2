// Package resultset holds tabular query output as returned by the backend
// and the helpers that turn it into grids and exportable text.
package resultset

import (
	"bytes"
	"encoding/json"

	"github.com/buger/jsonparser"
	"github.com/pkg/errors"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Row maps column names to values, preserving the column order of the
// JSON object it was decoded from. Values are string, json.Number, bool,
// nil, or json.RawMessage for nested objects and arrays.
type Row struct {
	fields *orderedmap.OrderedMap[string, any]
}

// ResultSet is an ordered sequence of rows sharing the same columns
type ResultSet []Row

// NewRow creates an empty row
func NewRow() Row {
	return Row{fields: orderedmap.New[string, any]()}
}

// RowOf builds a row from columns and values given in the same order
func RowOf(columns []string, values ...any) Row {
	r := NewRow()
	for i, c := range columns {
		var v any
		if i < len(values) {
			v = values[i]
		}
		r.Set(c, v)
	}
	return r
}

// Set assigns a column value. A new column is appended after the existing ones.
func (r Row) Set(column string, value any) {
	r.fields.Set(column, value)
}

// Get returns the value of a column
func (r Row) Get(column string) (any, bool) {
	if r.fields == nil {
		return nil, false
	}
	return r.fields.Get(column)
}

// Keys returns the column names in order
func (r Row) Keys() []string {
	if r.fields == nil {
		return []string{}
	}
	keys := make([]string, 0, r.fields.Len())
	for p := r.fields.Oldest(); p != nil; p = p.Next() {
		keys = append(keys, p.Key)
	}
	return keys
}

// Len returns the number of columns
func (r Row) Len() int {
	if r.fields == nil {
		return 0
	}
	return r.fields.Len()
}

// MarshalJSON encodes the row as a JSON object with columns in order
func (r Row) MarshalJSON() ([]byte, error) {
	if r.fields == nil {
		return []byte("{}"), nil
	}
	return r.fields.MarshalJSON()
}

// UnmarshalJSON decodes a JSON object keeping the key order
func (r *Row) UnmarshalJSON(data []byte) error {
	row, err := DecodeRow(data)
	if err != nil {
		return err
	}
	*r = row
	return nil
}

// Columns returns the header of the result set, derived from the first row
func (rs ResultSet) Columns() []string {
	if len(rs) == 0 {
		return []string{}
	}
	return rs[0].Keys()
}

// Decode parses a JSON array of row objects
func Decode(data []byte) (ResultSet, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ResultSet{}, nil
	}
	if trimmed[0] != '[' || trimmed[len(trimmed)-1] != ']' {
		return nil, errors.New("expected a JSON array of rows")
	}
	if len(bytes.TrimSpace(trimmed[1:len(trimmed)-1])) == 0 {
		return ResultSet{}, nil
	}

	rs := ResultSet{}
	var rowErr error
	_, err := jsonparser.ArrayEach(trimmed, func(value []byte, dataType jsonparser.ValueType, _ int, err error) {
		if rowErr != nil {
			return
		}
		if err != nil {
			rowErr = err
			return
		}
		if dataType != jsonparser.Object {
			rowErr = errors.Errorf("row %d is not a JSON object", len(rs))
			return
		}
		row, err := DecodeRow(value)
		if err != nil {
			rowErr = errors.Wrapf(err, "row %d", len(rs))
			return
		}
		rs = append(rs, row)
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse rows")
	}
	if rowErr != nil {
		return nil, rowErr
	}
	return rs, nil
}

// DecodeRow parses a single JSON object
func DecodeRow(data []byte) (Row, error) {
	row := NewRow()
	err := jsonparser.ObjectEach(data, func(key, value []byte, dataType jsonparser.ValueType, _ int) error {
		// ObjectEach hands over keys already unescaped
		column := string(key)
		v, err := decodeValue(value, dataType)
		if err != nil {
			return errors.Wrapf(err, "column %q", column)
		}
		row.Set(column, v)
		return nil
	})
	if err != nil {
		return Row{}, errors.Wrap(err, "failed to parse row")
	}
	return row, nil
}

func decodeValue(value []byte, dataType jsonparser.ValueType) (any, error) {
	switch dataType {
	case jsonparser.String:
		return jsonparser.ParseString(value)
	case jsonparser.Number:
		return json.Number(string(value)), nil
	case jsonparser.Boolean:
		return jsonparser.ParseBoolean(value)
	case jsonparser.Null:
		return nil, nil
	case jsonparser.Object, jsonparser.Array:
		return json.RawMessage(append([]byte(nil), value...)), nil
	default:
		return nil, errors.Errorf("unsupported JSON value %q", value)
	}
}
