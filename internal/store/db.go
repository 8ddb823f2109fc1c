package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/cesargomez89/iptvcatalog/internal/domain"
)

type DB struct {
	*sqlx.DB
}

// connectionParams are applied by the driver to every pooled connection.
// Transactions take the write lock when they begin so that concurrent writers
// wait on the busy timeout instead of failing on lock upgrade.
var connectionParams = []string{
	"_pragma=busy_timeout(30000)",
	"_pragma=journal_mode(WAL)",
	"_txlock=immediate",
}

// sqliteDSN appends connectionParams to path, keeping any parameters it already has.
func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + strings.Join(connectionParams, "&")
}

func NewSQLiteDB(dsn string) (*DB, error) {
	db, err := sqlx.Open("sqlite", sqliteDSN(dsn))
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	// Apply schema
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &DB{db}, nil
}

func (db *DB) Close() error {
	return db.DB.Close()
}

// RunInTx runs fn inside a transaction, committing when fn returns nil.
func (db *DB) RunInTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return storageErr("begin transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return storageErr("commit", err)
	}
	return nil
}

// Clear removes every category and stream. Import history and settings are kept.
func (db *DB) Clear(ctx context.Context) error {
	return db.RunInTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM streams"); err != nil {
			return storageErr("clear streams", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM categories"); err != nil {
			return storageErr("clear categories", err)
		}
		return nil
	})
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrStorage, op, err)
}
