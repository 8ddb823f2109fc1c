// Package loader turns page-addressed catalog queries into incremental
// "load more" and windowed views.
package loader

import (
	"context"
	"sync"

	"github.com/cesargomez89/iptvcatalog/internal/domain"
)

// FetchFunc returns one page of items together with its pagination.
type FetchFunc[T any] func(ctx context.Context, page, limit int) ([]T, domain.Pagination, error)

// State is a snapshot of a Loader.
type State[T any] struct {
	Items         []T
	CurrentPage   int
	HasMore       bool
	IsLoadingMore bool
	Err           error
}

// Loader accumulates consecutive pages. At most one page fetch is in flight
// at a time, and LoadMore stops once the last page has been appended.
type Loader[T any] struct {
	fetch FetchFunc[T]
	limit int

	mu          sync.Mutex
	items       []T
	currentPage int
	hasMore     bool
	loading     bool
	err         error
	generation  int
}

func New[T any](fetch FetchFunc[T], limit int) *Loader[T] {
	if limit < 1 {
		limit = 1
	}
	return &Loader[T]{fetch: fetch, limit: limit, hasMore: true}
}

func (l *Loader[T]) State() State[T] {
	l.mu.Lock()
	defer l.mu.Unlock()
	items := make([]T, len(l.items))
	copy(items, l.items)
	return State[T]{
		Items:         items,
		CurrentPage:   l.currentPage,
		HasMore:       l.hasMore,
		IsLoadingMore: l.loading,
		Err:           l.err,
	}
}

// LoadFirstPage discards all state and fetches page 1. A LoadMore still in
// flight is abandoned and its result dropped.
func (l *Loader[T]) LoadFirstPage(ctx context.Context) error {
	l.mu.Lock()
	l.generation++
	l.items = nil
	l.currentPage = 0
	l.hasMore = true
	l.err = nil
	l.loading = true
	gen := l.generation
	l.mu.Unlock()

	return l.load(ctx, gen, 1)
}

// LoadMore appends the next page. It does nothing while another fetch is in
// flight or after the last page. A failed fetch leaves the cursor in place so
// calling LoadMore again retries the same page.
func (l *Loader[T]) LoadMore(ctx context.Context) error {
	l.mu.Lock()
	if l.loading || !l.hasMore {
		l.mu.Unlock()
		return nil
	}
	l.loading = true
	l.err = nil
	gen := l.generation
	page := l.currentPage + 1
	l.mu.Unlock()

	return l.load(ctx, gen, page)
}

// Refresh clears the loaded items and reloads page 1.
func (l *Loader[T]) Refresh(ctx context.Context) error {
	return l.LoadFirstPage(ctx)
}

func (l *Loader[T]) load(ctx context.Context, gen, page int) error {
	items, p, err := l.fetch(ctx, page, l.limit)

	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.generation {
		return err
	}
	l.loading = false

	if err != nil {
		l.err = err
		return err
	}

	l.items = append(l.items, items...)
	l.currentPage = page
	l.hasMore = p.HasMore()
	return nil
}
