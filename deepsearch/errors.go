package deepsearch

import "errors"

var (
	// ErrQueryTooShort rejects queries under two characters after
	// trimming.
	ErrQueryTooShort = errors.New("deepsearch: query must be at least 2 characters")

	// ErrUpstream wraps a search engine failure.
	ErrUpstream = errors.New("deepsearch: upstream search failed")
)
