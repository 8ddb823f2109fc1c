package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/cesargomez89/iptvcatalog/internal/constants"
	"github.com/cesargomez89/iptvcatalog/internal/domain"
)

// indexes maps the index names consumers query by onto the indexed columns of
// each catalog table. Every entry is backed by an index in Schema.
var indexes = map[string]map[string][]string{
	constants.CategoriesTable: {
		constants.IndexStreamType:           {"stream_type"},
		constants.IndexStreamTypeCategoryID: {"stream_type", "category_id"},
	},
	constants.StreamsTable: {
		constants.IndexCategoryID:         {"category_id"},
		constants.IndexCategoryIDStreamID: {"category_id", "stream_id"},
		constants.IndexName:               {"name"},
		constants.IndexStreamType:         {"stream_type"},
	},
}

var tableColumns = map[string]string{
	constants.CategoriesTable: "id, category_id, category_name, stream_type, stream_count",
	constants.StreamsTable:    "id, category_id, stream_id, stream_type, name, name_folded, data",
}

func indexWhere(table, index string, values []any) (string, error) {
	cols, ok := indexes[table][index]
	if !ok {
		return "", fmt.Errorf("%w: %s.%s", domain.ErrUnknownIndex, table, index)
	}
	if len(values) != len(cols) {
		return "", fmt.Errorf("index %s.%s takes %d values, got %d", table, index, len(cols), len(values))
	}

	clauses := make([]string, len(cols))
	for i, c := range cols {
		clauses[i] = c + " = ?"
	}
	return strings.Join(clauses, " AND "), nil
}

// Count returns the number of rows of table whose index key equals values.
func (db *DB) Count(ctx context.Context, table, index string, values ...any) (int, error) {
	where, err := indexWhere(table, index, values)
	if err != nil {
		return 0, err
	}

	var count int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", table, where)
	if err := db.GetContext(ctx, &count, query, values...); err != nil {
		return 0, storageErr("count "+table, err)
	}
	return count, nil
}

// Range scans rows of table whose index key equals values, in insertion
// order, skipping offset rows and returning at most limit rows into dest.
func (db *DB) Range(ctx context.Context, dest interface{}, table, index string, offset, limit int, values ...any) error {
	where, err := indexWhere(table, index, values)
	if err != nil {
		return err
	}
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 1
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY rowid LIMIT ? OFFSET ?", tableColumns[table], table, where)
	args := append(append([]any{}, values...), limit, offset)
	if err := db.SelectContext(ctx, dest, query, args...); err != nil {
		return storageErr("range "+table, err)
	}
	return nil
}
