package dto

import (
	"net/url"

	"github.com/cesargomez89/iptvcatalog/internal/constants"
	"github.com/cesargomez89/iptvcatalog/internal/domain"
)

// PageQuery is the page and limit of a paginated request.
type PageQuery struct {
	Page  int
	Limit int
}

func ParsePageQuery(values url.Values) (PageQuery, []ValidationError) {
	var errs []ValidationError

	page, pageErrs := parseInt(values, "page", 1, 1, 1<<30)
	errs = append(errs, pageErrs...)

	limit, limitErrs := parseInt(values, "limit", constants.DefaultPageSize, 1, constants.MaxPageSize)
	errs = append(errs, limitErrs...)

	return PageQuery{Page: page, Limit: limit}, errs
}

// CategoriesQuery selects a page of categories of one stream type.
type CategoriesQuery struct {
	StreamType domain.StreamType
	PageQuery
}

func ParseCategoriesQuery(values url.Values) (CategoriesQuery, []ValidationError) {
	streamType := values.Get("type")
	errs := validateStreamType("type", streamType, true)

	page, pageErrs := ParsePageQuery(values)
	errs = append(errs, pageErrs...)

	return CategoriesQuery{StreamType: domain.StreamType(streamType), PageQuery: page}, errs
}
