package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/cesargomez89/iptvcatalog/internal/constants"
	"github.com/cesargomez89/iptvcatalog/internal/domain"
)

const upsertCategory = `INSERT INTO categories (id, category_id, category_name, stream_type, stream_count)
	VALUES (:id, :category_id, :category_name, :stream_type, :stream_count)
	ON CONFLICT(id) DO UPDATE SET
		category_id = excluded.category_id,
		category_name = excluded.category_name,
		stream_type = excluded.stream_type,
		stream_count = excluded.stream_count`

func (db *DB) PutCategory(ctx context.Context, c *domain.Category) error {
	if _, err := db.NamedExecContext(ctx, upsertCategory, c); err != nil {
		return storageErr("put category", err)
	}
	return nil
}

// BulkPutCategories upserts all categories in a single transaction.
func (db *DB) BulkPutCategories(ctx context.Context, categories []domain.Category) error {
	if len(categories) == 0 {
		return nil
	}
	return db.RunInTx(ctx, func(tx *sqlx.Tx) error {
		stmt, err := tx.PrepareNamedContext(ctx, upsertCategory)
		if err != nil {
			return storageErr("prepare category upsert", err)
		}
		defer stmt.Close()

		for i := range categories {
			if _, err := stmt.ExecContext(ctx, &categories[i]); err != nil {
				return storageErr("bulk put categories", err)
			}
		}
		return nil
	})
}

func (db *DB) GetCategory(ctx context.Context, id string) (*domain.Category, error) {
	var c domain.Category
	err := db.GetContext(ctx, &c, "SELECT "+tableColumns[constants.CategoriesTable]+" FROM categories WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, storageErr("get category", err)
	}
	return &c, nil
}

func (db *DB) CountCategories(ctx context.Context) (int, error) {
	var count int
	if err := db.GetContext(ctx, &count, "SELECT COUNT(*) FROM categories"); err != nil {
		return 0, storageErr("count categories", err)
	}
	return count, nil
}

func (db *DB) CountCategoriesByType(ctx context.Context, streamType domain.StreamType) (int, error) {
	return db.Count(ctx, constants.CategoriesTable, constants.IndexStreamType, string(streamType))
}

func (db *DB) CategoriesByType(ctx context.Context, streamType domain.StreamType, offset, limit int) ([]domain.Category, error) {
	categories := []domain.Category{}
	err := db.Range(ctx, &categories, constants.CategoriesTable, constants.IndexStreamType, offset, limit, string(streamType))
	return categories, err
}

// CategoryIDsByType returns the composite ids of every category of a stream type.
func (db *DB) CategoryIDsByType(ctx context.Context, streamType domain.StreamType) ([]string, error) {
	var ids []string
	if err := db.SelectContext(ctx, &ids, "SELECT id FROM categories WHERE stream_type = ? ORDER BY rowid", string(streamType)); err != nil {
		return nil, storageErr("category ids", err)
	}
	return ids, nil
}
