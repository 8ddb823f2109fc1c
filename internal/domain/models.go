package domain

import (
	"math"
	"time"
)

type StreamType string

const (
	StreamTypeLive   StreamType = "live"
	StreamTypeVOD    StreamType = "vod"
	StreamTypeMovies StreamType = "movies"
	StreamTypeSeries StreamType = "series"
)

// KnownStreamTypes lists the stream types in the order an import visits them.
var KnownStreamTypes = []StreamType{
	StreamTypeLive,
	StreamTypeVOD,
	StreamTypeMovies,
	StreamTypeSeries,
}

func (t StreamType) Known() bool {
	for _, k := range KnownStreamTypes {
		if k == t {
			return true
		}
	}
	return false
}

// Category is one category of a stream type. ID is "<streamType>_<categoryId>".
type Category struct {
	ID           string     `json:"id" db:"id"`
	CategoryID   string     `json:"categoryId" db:"category_id"`
	CategoryName string     `json:"categoryName" db:"category_name"`
	StreamType   StreamType `json:"streamType" db:"stream_type"`
	StreamCount  int        `json:"streamCount" db:"stream_count"`
}

// Stream is a playable catalog entry. ID is "<rawCategoryId>_<streamId>" and
// CategoryID references Category.ID, not the raw category id.
type Stream struct {
	ID         string     `json:"id" db:"id"`
	CategoryID string     `json:"categoryId" db:"category_id"`
	StreamID   string     `json:"streamId" db:"stream_id"`
	StreamType StreamType `json:"streamType" db:"stream_type"`
	Name       string     `json:"name" db:"name"`
	NameFolded string     `json:"-" db:"name_folded"`
	Data       JSONObject `json:"data,omitempty" db:"data"`
}

// CategoryKey builds the composite primary key of a category.
func CategoryKey(streamType StreamType, rawCategoryID string) string {
	return string(streamType) + "_" + rawCategoryID
}

// StreamKey builds the composite primary key of a stream.
func StreamKey(rawCategoryID, streamID string) string {
	return rawCategoryID + "_" + streamID
}

// Pagination describes one page of an index range.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// NewPagination clamps page and limit to at least 1 and derives TotalPages.
func NewPagination(page, limit, total int) Pagination {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 1
	}
	return Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: int(math.Ceil(float64(total) / float64(limit))),
	}
}

// Offset is the number of rows preceding the page.
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.Limit
}

// HasMore reports whether a page follows this one.
func (p Pagination) HasMore() bool {
	return p.Page < p.TotalPages
}

type CategoryPage struct {
	Categories []Category `json:"categories"`
	Pagination Pagination `json:"pagination"`
}

type StreamPage struct {
	Streams    []Stream   `json:"streams"`
	Pagination Pagination `json:"pagination"`
}

type ImportStatus string

const (
	ImportStatusQueued    ImportStatus = "queued"
	ImportStatusRunning   ImportStatus = "running"
	ImportStatusCompleted ImportStatus = "completed"
	ImportStatusSkipped   ImportStatus = "skipped"
	ImportStatusFailed    ImportStatus = "failed"
)

// ImportRun records one attempt to populate the catalog
type ImportRun struct {
	CreatedAt  time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at" db:"updated_at"`
	Error      *string      `json:"error,omitempty" db:"error"`
	ID         string       `json:"id" db:"id"`
	Status     ImportStatus `json:"status" db:"status"`
	Source     string       `json:"source" db:"source"`
	Progress   float64      `json:"progress" db:"progress"`
	Categories int          `json:"categories" db:"categories"`
	Streams    int          `json:"streams" db:"streams"`
	Skipped    int          `json:"skipped" db:"skipped"`
	Force      bool         `json:"force" db:"forced"`
}

// Finished reports whether the run reached a terminal status.
func (r *ImportRun) Finished() bool {
	switch r.Status {
	case ImportStatusCompleted, ImportStatusSkipped, ImportStatusFailed:
		return true
	}
	return false
}
