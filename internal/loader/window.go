package loader

import (
	"context"
	"strconv"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// DefaultWindowConcurrency bounds the page fetches one Ensure runs at once.
const DefaultWindowConcurrency = 4

// Window caches pages by page number so that any index range can be served
// without fetching the items before it. Each page is fetched at most once
// while cached, and concurrent requests for the same page share one fetch.
type Window[T any] struct {
	fetch       FetchFunc[T]
	pageSize    int
	concurrency int

	mu    sync.RWMutex
	pages map[int][]T
	total int
	known bool

	group singleflight.Group
}

func NewWindow[T any](fetch FetchFunc[T], pageSize int) *Window[T] {
	if pageSize < 1 {
		pageSize = 1
	}
	return &Window[T]{
		fetch:       fetch,
		pageSize:    pageSize,
		concurrency: DefaultWindowConcurrency,
		pages:       make(map[int][]T),
	}
}

func (w *Window[T]) pageOf(index int) int {
	return index/w.pageSize + 1
}

// Ensure fetches the uncached pages covering the indices [start, end). Until
// the total is known, the first page of the range is fetched on its own and
// the range is clamped to the total it reports.
func (w *Window[T]) Ensure(ctx context.Context, start, end int) error {
	if start < 0 {
		start = 0
	}
	if end <= start {
		return nil
	}

	first := w.pageOf(start)
	if _, known := w.Total(); !known {
		if err := w.loadPage(ctx, first); err != nil {
			return err
		}
	}

	total, _ := w.Total()
	if end > total {
		end = total
	}
	if end <= start {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)

	for page := first; page <= w.pageOf(end-1); page++ {
		if w.cached(page) {
			continue
		}
		page := page
		g.Go(func() error {
			return w.loadPage(gctx, page)
		})
	}
	return g.Wait()
}

func (w *Window[T]) cached(page int) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.pages[page]
	return ok
}

func (w *Window[T]) loadPage(ctx context.Context, page int) error {
	_, err, _ := w.group.Do(strconv.Itoa(page), func() (any, error) {
		if w.cached(page) {
			return nil, nil
		}

		items, p, err := w.fetch(ctx, page, w.pageSize)
		if err != nil {
			return nil, err
		}

		w.mu.Lock()
		w.pages[page] = items
		w.total = p.Total
		w.known = true
		w.mu.Unlock()
		return nil, nil
	})
	return err
}

// At returns the item at index if its page is cached.
func (w *Window[T]) At(index int) (T, bool) {
	var zero T
	if index < 0 {
		return zero, false
	}

	w.mu.RLock()
	defer w.mu.RUnlock()
	items, ok := w.pages[w.pageOf(index)]
	offset := index % w.pageSize
	if !ok || offset >= len(items) {
		return zero, false
	}
	return items[offset], true
}

// Slice returns the items in [start, end), clamped to the known total. ok is
// false when any of them is not cached.
func (w *Window[T]) Slice(start, end int) ([]T, bool) {
	if start < 0 {
		start = 0
	}
	if total, known := w.Total(); known && end > total {
		end = total
	}
	if end <= start {
		return []T{}, true
	}

	out := make([]T, 0, end-start)
	for i := start; i < end; i++ {
		item, ok := w.At(i)
		if !ok {
			return nil, false
		}
		out = append(out, item)
	}
	return out, true
}

// Total returns the item count reported by the last fetched page. known is
// false until a page has been fetched.
func (w *Window[T]) Total() (total int, known bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.total, w.known
}

// Reset drops every cached page.
func (w *Window[T]) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pages = make(map[int][]T)
	w.total = 0
	w.known = false
}
