package store

import (
	"context"
	"sync"
)

// OpenFunc opens the catalog database.
type OpenFunc func(ctx context.Context) (*DB, error)

// Handle opens the catalog database on first use and shares the result with
// every caller. Concurrent callers wait on the same in-flight open. A failed
// open is forgotten so that the next Get tries again.
type Handle struct {
	open OpenFunc

	mu      sync.Mutex
	db      *DB
	pending chan struct{}
	err     error
}

func NewHandle(open OpenFunc) *Handle {
	return &Handle{open: open}
}

// NewSQLiteHandle returns a Handle that opens dsn with NewSQLiteDB.
func NewSQLiteHandle(dsn string) *Handle {
	return NewHandle(func(context.Context) (*DB, error) {
		return NewSQLiteDB(dsn)
	})
}

func (h *Handle) Get(ctx context.Context) (*DB, error) {
	h.mu.Lock()
	if h.db != nil {
		db := h.db
		h.mu.Unlock()
		return db, nil
	}

	pending := h.pending
	if pending == nil {
		pending = make(chan struct{})
		h.pending = pending
		go h.init(pending)
	}
	h.mu.Unlock()

	select {
	case <-pending:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.db != nil {
		return h.db, nil
	}
	return nil, h.err
}

// init runs detached from any caller's context so that one caller giving up
// does not fail the open for the others.
func (h *Handle) init(done chan struct{}) {
	db, err := h.open(context.Background())

	h.mu.Lock()
	h.db, h.err = db, err
	h.pending = nil
	h.mu.Unlock()
	close(done)
}

func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.db == nil {
		return nil
	}
	err := h.db.Close()
	h.db = nil
	return err
}
