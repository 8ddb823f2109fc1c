package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/cesargomez89/iptvcatalog/internal/constants"
	"github.com/cesargomez89/iptvcatalog/internal/domain"
)

const upsertStream = `INSERT INTO streams (id, category_id, stream_id, stream_type, name, name_folded, data)
	VALUES (:id, :category_id, :stream_id, :stream_type, :name, :name_folded, :data)
	ON CONFLICT(id) DO UPDATE SET
		category_id = excluded.category_id,
		stream_id = excluded.stream_id,
		stream_type = excluded.stream_type,
		name = excluded.name,
		name_folded = excluded.name_folded,
		data = excluded.data`

func (db *DB) PutStream(ctx context.Context, s *domain.Stream) error {
	s.NameFolded = domain.Fold(s.Name)
	if _, err := db.NamedExecContext(ctx, upsertStream, s); err != nil {
		return storageErr("put stream", err)
	}
	return nil
}

// BulkPutStreams upserts all streams in a single transaction.
func (db *DB) BulkPutStreams(ctx context.Context, streams []domain.Stream) error {
	if len(streams) == 0 {
		return nil
	}
	return db.RunInTx(ctx, func(tx *sqlx.Tx) error {
		stmt, err := tx.PrepareNamedContext(ctx, upsertStream)
		if err != nil {
			return storageErr("prepare stream upsert", err)
		}
		defer stmt.Close()

		for i := range streams {
			streams[i].NameFolded = domain.Fold(streams[i].Name)
			if _, err := stmt.ExecContext(ctx, &streams[i]); err != nil {
				return storageErr("bulk put streams", err)
			}
		}
		return nil
	})
}

func (db *DB) GetStream(ctx context.Context, id string) (*domain.Stream, error) {
	var s domain.Stream
	err := db.GetContext(ctx, &s, "SELECT "+tableColumns[constants.StreamsTable]+" FROM streams WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, storageErr("get stream", err)
	}
	return &s, nil
}

func (db *DB) CountStreams(ctx context.Context) (int, error) {
	var count int
	if err := db.GetContext(ctx, &count, "SELECT COUNT(*) FROM streams"); err != nil {
		return 0, storageErr("count streams", err)
	}
	return count, nil
}

func (db *DB) CountStreamsByCategory(ctx context.Context, categoryID string) (int, error) {
	return db.Count(ctx, constants.StreamsTable, constants.IndexCategoryID, categoryID)
}

func (db *DB) StreamsByCategory(ctx context.Context, categoryID string, offset, limit int) ([]domain.Stream, error) {
	streams := []domain.Stream{}
	err := db.Range(ctx, &streams, constants.StreamsTable, constants.IndexCategoryID, offset, limit, categoryID)
	return streams, err
}

// SearchStreams scans streams in storage order for names whose folded form
// contains folded, optionally restricted to the given composite category ids.
// A non-nil empty categoryIDs matches nothing.
func (db *DB) SearchStreams(ctx context.Context, folded string, categoryIDs []string, limit int) ([]domain.Stream, error) {
	streams := []domain.Stream{}
	if categoryIDs != nil && len(categoryIDs) == 0 {
		return streams, nil
	}

	query := "SELECT " + tableColumns[constants.StreamsTable] + " FROM streams WHERE instr(name_folded, ?) > 0"
	args := []any{folded}
	if categoryIDs != nil {
		query += " AND category_id IN (?)"
		var err error
		query, args, err = sqlx.In(query, folded, categoryIDs)
		if err != nil {
			return nil, storageErr("build search query", err)
		}
	}
	query += " ORDER BY rowid LIMIT ?"
	args = append(args, limit)

	if err := db.SelectContext(ctx, &streams, db.Rebind(query), args...); err != nil {
		return nil, storageErr("search streams", err)
	}
	return streams, nil
}
