package dto

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/cesargomez89/iptvcatalog/internal/constants"
	"github.com/cesargomez89/iptvcatalog/internal/domain"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func ToMap(errs []ValidationError) map[string]string {
	result := make(map[string]string)
	for _, e := range errs {
		result[e.Field] = e.Message
	}
	return result
}

func ToResponse(errs []ValidationError) string {
	var msgs []string
	for _, e := range errs {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}

// validateStreamType accepts the identifiers a payload can use as type keys.
func validateStreamType(field, value string, required bool) []ValidationError {
	var errs []ValidationError
	if value == "" {
		if required {
			errs = append(errs, ValidationError{Field: field, Message: "is required"})
		}
		return errs
	}
	for _, r := range value {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_' || r == '-') {
			errs = append(errs, ValidationError{Field: field, Message: "must contain only lowercase letters, digits, '_' or '-'"})
			break
		}
	}
	return errs
}

func parseInt(values url.Values, field string, fallback, min, max int) (int, []ValidationError) {
	raw := values.Get(field)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback, []ValidationError{{Field: field, Message: "must be an integer"}}
	}
	if n < min || n > max {
		return fallback, []ValidationError{{Field: field, Message: fmt.Sprintf("must be between %d and %d", min, max)}}
	}
	return n, nil
}

func parseBool(values url.Values, field string) (bool, []ValidationError) {
	raw := values.Get(field)
	if raw == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, []ValidationError{{Field: field, Message: "must be a boolean"}}
	}
	return b, nil
}

// SearchQuery is the query string of a search request.
type SearchQuery struct {
	Query      string
	StreamType domain.StreamType
	Limit      int
}

func ParseSearchQuery(values url.Values) (SearchQuery, []ValidationError) {
	var errs []ValidationError
	q := SearchQuery{Query: strings.TrimSpace(values.Get("q"))}

	if q.Query == "" {
		errs = append(errs, ValidationError{Field: "q", Message: "is required"})
	} else if len(q.Query) > 200 {
		errs = append(errs, ValidationError{Field: "q", Message: "must be at most 200 characters"})
	}

	streamType := values.Get("type")
	errs = append(errs, validateStreamType("type", streamType, false)...)
	q.StreamType = domain.StreamType(streamType)

	limit, limitErrs := parseInt(values, "limit", constants.MaxSearchResults, 1, constants.MaxSearchResults)
	errs = append(errs, limitErrs...)
	q.Limit = limit

	return q, errs
}

// ImportRequest is the query string of an import trigger.
type ImportRequest struct {
	Force bool
}

func ParseImportRequest(values url.Values) (ImportRequest, []ValidationError) {
	force, errs := parseBool(values, "force")
	return ImportRequest{Force: force}, errs
}
