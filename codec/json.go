// Package codec converts configured JSON columns between their structured
// form and the string form stored in the database.
package codec

import (
	"encoding/json"
	"reflect"
	"strings"
)

// EmptyObject is the stored form of an empty or missing JSON value.
const EmptyObject = "{}"

// Encode returns the storage string for v. Maps, slices and structs are
// serialized; non-blank strings are assumed to already be JSON and pass
// through; anything else collapses to EmptyObject.
func Encode(v any) string {
	switch val := v.(type) {
	case nil:
		return EmptyObject
	case string:
		if strings.TrimSpace(val) == "" {
			return EmptyObject
		}
		return val
	case []byte:
		if len(strings.TrimSpace(string(val))) == 0 {
			return EmptyObject
		}
		return string(val)
	case json.RawMessage:
		if len(val) == 0 {
			return EmptyObject
		}
		return string(val)
	}

	if !isStructured(v) {
		return EmptyObject
	}

	b, err := json.Marshal(v)
	if err != nil {
		return EmptyObject
	}
	return string(b)
}

func isStructured(v any) bool {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return false
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		return true
	}
	return false
}

// Normalize encodes every column in columns that is present in row. Missing
// columns are left alone. row is modified in place and returned.
func Normalize(row map[string]any, columns []string) map[string]any {
	for _, col := range columns {
		if v, ok := row[col]; ok {
			row[col] = Encode(v)
		}
	}
	return row
}

// Defaults sets every column in columns that is missing from row to
// EmptyObject. Used on insert only.
func Defaults(row map[string]any, columns []string) map[string]any {
	for _, col := range columns {
		if _, ok := row[col]; !ok {
			row[col] = EmptyObject
		}
	}
	return row
}

// Decode replaces each string (or []byte) value of columns with its decoded
// JSON form. Values that fail to decode are kept as they are: the column may
// hold plain text written by someone else.
func Decode(row map[string]any, columns []string) map[string]any {
	for _, col := range columns {
		v, ok := row[col]
		if !ok {
			continue
		}
		var raw string
		switch s := v.(type) {
		case string:
			raw = s
		case []byte:
			raw = string(s)
		default:
			continue
		}
		if decoded, ok := DecodeString(raw); ok {
			row[col] = decoded
		}
	}
	return row
}

// DecodeString decodes raw into a map, slice or scalar. ok is false when raw
// is not valid JSON.
func DecodeString(raw string) (any, bool) {
	var out any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, false
	}
	return out, true
}
