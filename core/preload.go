package core

import (
	"context"
	"fmt"
)

// eagerLoader attaches relation rows to a base row set. Each relation costs
// at most one query, however many base rows there are.
type eagerLoader struct {
	db  *DB
	ctx context.Context
}

func (l *eagerLoader) resolve(rows []Row, relations []Relation) error {
	if len(rows) == 0 {
		return nil
	}
	for _, rel := range relations {
		var err error
		switch rel.Mode {
		case ModeQuery:
			err = l.loadQuery(rows, rel)
		default:
			err = l.loadRelation(rows, rel)
		}
		if err != nil {
			return fmt.Errorf("load relation %s: %w", rel.Name, err)
		}
	}
	return nil
}

// relatedQuery starts the query against the relation's table.
func (l *eagerLoader) relatedQuery(rel Relation) *Query {
	q := l.db.Table(rel.Table).WithContext(l.ctx).Select(rel.selectColumns()...)
	if rel.OrderBy != "" {
		q.orderBy = rel.OrderBy
	}
	return q
}

func (l *eagerLoader) loadRelation(rows []Row, rel Relation) error {
	keys := l.collectKeys(rows, rel.LocalKey)
	if len(keys) == 0 {
		for _, row := range rows {
			attachEmpty(row, rel)
		}
		return nil
	}

	related, err := l.relatedQuery(rel).WhereIn(rel.ForeignKey, keys...).WhereCond(rel.Where...).getRows()
	if err != nil {
		return err
	}

	index := make(map[string][]Row, len(related))
	for _, r := range related {
		fk, ok := r[rel.ForeignKey]
		if !ok || fk == nil {
			continue
		}
		k := indexKey(fk)
		index[k] = append(index[k], r)
	}

	for _, row := range rows {
		v, ok := row[rel.LocalKey]
		if !ok || v == nil {
			attachEmpty(row, rel)
			continue
		}
		matches := index[indexKey(v)]
		if rel.Type == One {
			if len(matches) > 0 {
				row[rel.Name] = matches[0]
			} else {
				row[rel.Name] = nil
			}
			continue
		}
		if matches == nil {
			matches = []Row{}
		}
		row[rel.Name] = matches
	}
	return nil
}

// collectKeys returns the distinct non-nil values of column, in first-seen order.
func (l *eagerLoader) collectKeys(rows []Row, column string) []any {
	seen := make(map[string]bool, len(rows))
	keys := make([]any, 0, len(rows))
	for _, row := range rows {
		v, ok := row[column]
		if !ok || v == nil {
			continue
		}
		k := indexKey(v)
		if seen[k] {
			continue
		}
		seen[k] = true
		keys = append(keys, v)
	}
	return keys
}

// loadQuery runs the relation's own query once and attaches the same result
// to every base row.
func (l *eagerLoader) loadQuery(rows []Row, rel Relation) error {
	q := l.relatedQuery(rel).WhereCond(rel.Where...)
	if rel.Type == One {
		q = q.Limit(1)
	}
	related, err := q.getRows()
	if err != nil {
		return err
	}

	for _, row := range rows {
		if rel.Type == One {
			if len(related) > 0 {
				row[rel.Name] = related[0]
			} else {
				row[rel.Name] = nil
			}
			continue
		}
		if related == nil {
			related = []Row{}
		}
		row[rel.Name] = related
	}
	return nil
}

func attachEmpty(row Row, rel Relation) {
	if rel.Type == One {
		row[rel.Name] = nil
		return
	}
	row[rel.Name] = []Row{}
}
