package catalog

import (
	"context"
	"strings"
	"time"

	"github.com/cesargomez89/iptvcatalog/internal/constants"
	"github.com/cesargomez89/iptvcatalog/internal/domain"
)

// SearchStreams returns streams whose name contains query, ignoring case, in
// storage order. A non-empty streamType restricts the scan to that type's
// categories. limit <= 0 means the maximum of 100, and larger limits are
// capped to it.
func (q *QueryService) SearchStreams(ctx context.Context, query string, streamType domain.StreamType, limit int) ([]domain.Stream, error) {
	defer observe("search", time.Now())

	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.Stream{}, nil
	}
	if limit <= 0 || limit > constants.MaxSearchResults {
		limit = constants.MaxSearchResults
	}

	if err := q.waitReady(ctx); err != nil {
		return nil, err
	}

	var categoryIDs []string
	if streamType != "" {
		ids, err := q.store.CategoryIDsByType(ctx, streamType)
		if err != nil {
			return nil, err
		}
		categoryIDs = ids
		if categoryIDs == nil {
			categoryIDs = []string{}
		}
	}

	return q.store.SearchStreams(ctx, domain.Fold(query), categoryIDs, limit)
}
