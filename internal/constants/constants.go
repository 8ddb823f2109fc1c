// Package constants contains application-wide constants to avoid magic numbers and strings.
package constants

import "time"

// Application defaults
const (
	DefaultPort            = "8080"
	DefaultDBPath          = "iptvcatalog.db"
	DefaultPlaylistURL     = "http://127.0.0.1:8000/api/playlist"
	DefaultPlaylistTimeout = 2 * time.Minute
	DefaultPollInterval    = 2 * time.Second
	DefaultRetryCount      = 3
	DefaultRetryBase       = 1 * time.Second
	DefaultRequestRate     = 2 // requests per second towards the playlist source
	DefaultGateTimeout     = 30 * time.Second
)

// Import
const (
	StreamChunkSize        = 1000
	CategoryProgressWeight = 40.0
	StreamProgressWeight   = 60.0
	// AssumedStreamTotal is the denominator used when a payload carries no
	// resolvable stream items at all.
	AssumedStreamTotal = 10000
)

// Pagination and search
const (
	DefaultPageSize  = 20
	MaxPageSize      = 500
	MaxSearchResults = 100
)

// Database
const (
	CategoriesTable = "categories"
	StreamsTable    = "streams"
)

// Index names. They mirror the object-store index names used by catalog consumers.
const (
	IndexStreamType           = "streamType"
	IndexStreamTypeCategoryID = "[streamType+categoryId]"
	IndexCategoryID           = "categoryId"
	IndexCategoryIDStreamID   = "[categoryId+streamId]"
	IndexName                 = "name"
)

// HTTP Status Codes
const (
	StatusOK                 = 200
	StatusAccepted           = 202
	StatusBadRequest         = 400
	StatusNotFound           = 404
	StatusInternalError      = 500
	StatusServiceUnavailable = 503
)

// MIME Types
const (
	MimeTypeJSON = "application/json"
)
