package core

import (
	"fmt"
	"strconv"

	"github.com/go-viper/mapstructure/v2"
)

// TimeLayout is the layout used for timestamps written by the builder.
const TimeLayout = "2006-01-02 15:04:05"

// Row is one result row keyed by column name. After eager loading, relation
// names map to a Row (or nil) for one-relations and to []Row for many-relations.
type Row map[string]any

// ID returns the row's "id" column.
func (r Row) ID() any {
	if r == nil {
		return nil
	}
	return r["id"]
}

// Clone returns a copy of r. Nested rows are copied too.
func (r Row) Clone() Row {
	if r == nil {
		return nil
	}
	out := make(Row, len(r))
	for k, v := range r {
		switch val := v.(type) {
		case Row:
			out[k] = val.Clone()
		case []Row:
			out[k] = cloneRows(val)
		default:
			out[k] = v
		}
	}
	return out
}

func cloneRows(rows []Row) []Row {
	if rows == nil {
		return nil
	}
	out := make([]Row, len(rows))
	for i, r := range rows {
		out[i] = r.Clone()
	}
	return out
}

// Decode maps r into dest, a pointer to a struct, matching columns to fields
// by their `db` tag. Nested relation rows decode into nested structs or slices.
// Values are converted weakly, so "42" fills an int and a timestamp string in
// TimeLayout fills a time.Time.
func (r Row) Decode(dest any) error {
	dec, err := newDecoder(dest)
	if err != nil {
		return fmt.Errorf("decode row: %w", err)
	}
	if err := dec.Decode(map[string]any(r)); err != nil {
		return fmt.Errorf("decode row: %w", err)
	}
	return nil
}

// DecodeRows maps rows into dest, a pointer to a slice of structs.
func DecodeRows(rows []Row, dest any) error {
	plain := make([]map[string]any, len(rows))
	for i, r := range rows {
		plain[i] = r
	}
	dec, err := newDecoder(dest)
	if err != nil {
		return fmt.Errorf("decode rows: %w", err)
	}
	if err := dec.Decode(plain); err != nil {
		return fmt.Errorf("decode rows: %w", err)
	}
	return nil
}

func newDecoder(dest any) (*mapstructure.Decoder, error) {
	return mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "db",
		WeaklyTypedInput: true,
		Result:           dest,
		DecodeHook:       mapstructure.StringToTimeHookFunc(TimeLayout),
	})
}

// indexKey normalizes a key value so that 5, int64(5), "5" and []byte("5")
// land in the same bucket; drivers disagree on the Go type of integer columns.
func indexKey(v any) string {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case string:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}
	}
	return fmt.Sprint(v)
}

func toInt64(v any) (int64, error) {
	switch val := v.(type) {
	case int64:
		return val, nil
	case int:
		return int64(val), nil
	case int32:
		return int64(val), nil
	case uint64:
		return int64(val), nil
	case float64:
		return int64(val), nil
	case []byte:
		return strconv.ParseInt(string(val), 10, 64)
	case string:
		return strconv.ParseInt(val, 10, 64)
	case nil:
		return 0, nil
	}
	return 0, fmt.Errorf("cannot convert %T to int64", v)
}
