package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/cesargomez89/iptvcatalog/internal/domain"
)

const importRunColumns = `id, status, source, forced, progress, categories, streams, skipped, created_at, updated_at, error`

const insertImportRun = `INSERT INTO import_runs (id, status, source, forced, progress, categories, streams, skipped, created_at, updated_at)
	VALUES (:id, :status, :source, :forced, :progress, :categories, :streams, :skipped, :created_at, :updated_at)`

const selectActiveImportRun = `SELECT ` + importRunColumns + ` FROM import_runs
	WHERE status IN ('queued', 'running')
	ORDER BY created_at ASC
	LIMIT 1`

// CreateImportRunUnlessActive inserts run only when no other run is queued or
// running. The check and the insert share one write transaction. It returns
// the run that is now active and whether it is the one passed in.
func (db *DB) CreateImportRunUnlessActive(ctx context.Context, run *domain.ImportRun) (*domain.ImportRun, bool, error) {
	var active *domain.ImportRun
	err := db.RunInTx(ctx, func(tx *sqlx.Tx) error {
		existing := &domain.ImportRun{}
		err := tx.GetContext(ctx, existing, selectActiveImportRun)
		if err == nil {
			active = existing
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return storageErr("get active import run", err)
		}

		if _, err := tx.NamedExecContext(ctx, insertImportRun, run); err != nil {
			return storageErr("create import run", err)
		}
		active = run
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return active, active == run, nil
}

func (db *DB) GetImportRun(ctx context.Context, id string) (*domain.ImportRun, error) {
	run := &domain.ImportRun{}
	err := db.GetContext(ctx, run, "SELECT "+importRunColumns+" FROM import_runs WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, storageErr("get import run", err)
	}
	return run, nil
}

func (db *DB) UpdateImportStatus(ctx context.Context, id string, status domain.ImportStatus, progress float64) error {
	query := `UPDATE import_runs SET status = ?, progress = ?, updated_at = ? WHERE id = ?`
	if _, err := db.ExecContext(ctx, query, status, progress, time.Now(), id); err != nil {
		return storageErr("update import status", err)
	}
	return nil
}

func (db *DB) UpdateImportProgress(ctx context.Context, id string, progress float64) error {
	query := `UPDATE import_runs SET progress = ?, updated_at = ? WHERE id = ?`
	if _, err := db.ExecContext(ctx, query, progress, time.Now(), id); err != nil {
		return storageErr("update import progress", err)
	}
	return nil
}

func (db *DB) CompleteImportRun(ctx context.Context, id string, status domain.ImportStatus, categories, streams, skipped int) error {
	query := `UPDATE import_runs SET status = ?, progress = 100, categories = ?, streams = ?, skipped = ?, error = NULL, updated_at = ? WHERE id = ?`
	if _, err := db.ExecContext(ctx, query, status, categories, streams, skipped, time.Now(), id); err != nil {
		return storageErr("complete import run", err)
	}
	return nil
}

func (db *DB) FailImportRun(ctx context.Context, id string, errorMsg string) error {
	query := `UPDATE import_runs SET status = ?, error = ?, updated_at = ? WHERE id = ?`
	if _, err := db.ExecContext(ctx, query, domain.ImportStatusFailed, errorMsg, time.Now(), id); err != nil {
		return storageErr("fail import run", err)
	}
	return nil
}

// GetActiveImportRun returns the queued or running run, or nil when there is none.
func (db *DB) GetActiveImportRun(ctx context.Context) (*domain.ImportRun, error) {
	run := &domain.ImportRun{}
	err := db.GetContext(ctx, run, selectActiveImportRun)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("get active import run", err)
	}
	return run, nil
}

// NextQueuedImportRun returns the oldest queued run, or nil.
func (db *DB) NextQueuedImportRun(ctx context.Context) (*domain.ImportRun, error) {
	query := `SELECT ` + importRunColumns + ` FROM import_runs
		WHERE status = 'queued'
		ORDER BY created_at ASC
		LIMIT 1`

	run := &domain.ImportRun{}
	err := db.GetContext(ctx, run, query)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("next queued import run", err)
	}
	return run, nil
}

func (db *DB) LatestImportRun(ctx context.Context) (*domain.ImportRun, error) {
	run := &domain.ImportRun{}
	err := db.GetContext(ctx, run, `SELECT `+importRunColumns+` FROM import_runs ORDER BY created_at DESC LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("latest import run", err)
	}
	return run, nil
}

func (db *DB) ListImportRuns(ctx context.Context, limit int) ([]*domain.ImportRun, error) {
	var runs []*domain.ImportRun
	err := db.SelectContext(ctx, &runs, `SELECT `+importRunColumns+` FROM import_runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, storageErr("list import runs", err)
	}
	return runs, nil
}

// ResetStuckImportRuns fails runs left running by a previous process.
func (db *DB) ResetStuckImportRuns(ctx context.Context) error {
	query := `UPDATE import_runs SET status = ?, error = ?, updated_at = ? WHERE status = 'running'`
	if _, err := db.ExecContext(ctx, query, domain.ImportStatusFailed, "interrupted", time.Now()); err != nil {
		return storageErr("reset stuck import runs", err)
	}
	return nil
}
