package domain

import "errors"

// Sentinel errors for catalog operations
var (
	// ErrMalformedPayload indicates the playlist document could not be parsed or lacks the expected shape
	ErrMalformedPayload = errors.New("malformed playlist payload")

	// ErrStorage indicates the underlying catalog store rejected a read or write
	ErrStorage = errors.New("catalog storage failure")

	// ErrMissingStreamID indicates a stream item carries neither stream_id nor series_id
	ErrMissingStreamID = errors.New("stream has no stream_id or series_id")

	// ErrNotFound indicates the requested record does not exist
	ErrNotFound = errors.New("not found")

	// ErrNotReady indicates the catalog stayed unavailable behind a running import for too long
	ErrNotReady = errors.New("catalog not ready")

	// ErrUnknownIndex indicates a query referenced a table or index the store does not define
	ErrUnknownIndex = errors.New("unknown table or index")
)
