package core

import (
	"github.com/block-bite/blockbite-orm/codec"
)

// materialize decodes columns in every row and in every row attached under
// a relation name. Relation containers themselves are never decoded.
// Decoding is idempotent, so rows shared between base rows are safe.
func materialize(rows []Row, columns []string, relations []Relation) {
	cols := columns
	if len(relations) > 0 {
		names := make(map[string]bool, len(relations))
		for _, r := range relations {
			names[r.Name] = true
		}
		cols = make([]string, 0, len(columns))
		for _, c := range columns {
			if !names[c] {
				cols = append(cols, c)
			}
		}
	}

	for _, row := range rows {
		if row == nil {
			continue
		}
		codec.Decode(row, cols)
		for _, r := range relations {
			switch nested := row[r.Name].(type) {
			case Row:
				codec.Decode(nested, cols)
			case []Row:
				for _, n := range nested {
					codec.Decode(n, cols)
				}
			}
		}
	}
}
