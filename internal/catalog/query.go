package catalog

import (
	"context"
	"time"

	"github.com/cesargomez89/iptvcatalog/internal/constants"
	"github.com/cesargomez89/iptvcatalog/internal/domain"
	"github.com/cesargomez89/iptvcatalog/internal/metrics"
)

// Reader is the part of the store the query side reads from.
type Reader interface {
	CountCategoriesByType(ctx context.Context, streamType domain.StreamType) (int, error)
	CategoriesByType(ctx context.Context, streamType domain.StreamType, offset, limit int) ([]domain.Category, error)
	CategoryIDsByType(ctx context.Context, streamType domain.StreamType) ([]string, error)
	CountStreamsByCategory(ctx context.Context, categoryID string) (int, error)
	StreamsByCategory(ctx context.Context, categoryID string, offset, limit int) ([]domain.Stream, error)
	SearchStreams(ctx context.Context, folded string, categoryIDs []string, limit int) ([]domain.Stream, error)
}

// QueryService serves page-bounded views of the catalog. Results depend only
// on store state. Every read waits on the gate first.
type QueryService struct {
	store       Reader
	gate        *Gate
	gateTimeout time.Duration
}

// NewQueryService returns a QueryService. A nil gate never blocks.
func NewQueryService(store Reader, gate *Gate) *QueryService {
	if gate == nil {
		gate = NewGate()
	}
	return &QueryService{store: store, gate: gate, gateTimeout: constants.DefaultGateTimeout}
}

// waitReady waits on the gate for at most gateTimeout. Cancellation of ctx is
// returned as is; running out of time is ErrNotReady.
func (q *QueryService) waitReady(ctx context.Context) error {
	wctx, cancel := context.WithTimeout(ctx, q.gateTimeout)
	defer cancel()

	if err := q.gate.Wait(wctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return domain.ErrNotReady
	}
	return nil
}

// CategoriesPage returns one page of the categories of streamType. Total is
// the count of all such categories, so a page past the end is empty but
// still carries it.
func (q *QueryService) CategoriesPage(ctx context.Context, streamType domain.StreamType, page, limit int) (*domain.CategoryPage, error) {
	defer observe("categories_page", time.Now())

	if err := q.waitReady(ctx); err != nil {
		return nil, err
	}

	total, err := q.store.CountCategoriesByType(ctx, streamType)
	if err != nil {
		return nil, err
	}
	p := domain.NewPagination(page, limit, total)

	categories, err := q.store.CategoriesByType(ctx, streamType, p.Offset(), p.Limit)
	if err != nil {
		return nil, err
	}
	return &domain.CategoryPage{Categories: categories, Pagination: p}, nil
}

// StreamsPageByCategory returns one page of the streams of the category with
// composite id categoryID.
func (q *QueryService) StreamsPageByCategory(ctx context.Context, categoryID string, page, limit int) (*domain.StreamPage, error) {
	defer observe("streams_page", time.Now())

	if err := q.waitReady(ctx); err != nil {
		return nil, err
	}

	total, err := q.store.CountStreamsByCategory(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	p := domain.NewPagination(page, limit, total)

	streams, err := q.store.StreamsByCategory(ctx, categoryID, p.Offset(), p.Limit)
	if err != nil {
		return nil, err
	}
	return &domain.StreamPage{Streams: streams, Pagination: p}, nil
}

func observe(query string, start time.Time) {
	metrics.QueryDuration.WithLabelValues(query).Observe(time.Since(start).Seconds())
}
