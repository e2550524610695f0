package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrProductNotFound is returned when a product is not in the store
	ErrProductNotFound = errors.New("product not found")
	// ErrFetchFailed is matched by every FetchError
	ErrFetchFailed = errors.New("fetch failed")
	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")
	// ErrNoRecords is returned when there is nothing to export
	ErrNoRecords = errors.New("no records to export")
	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")
	// ErrCacheUnavailable is returned when cache service is unavailable
	ErrCacheUnavailable = errors.New("cache service unavailable")
	// ErrStoreUnavailable is returned when the product store cannot be reached
	ErrStoreUnavailable = errors.New("product store unavailable")
)

// FetchError is returned once every attempt to fetch URL has failed.
// Err holds the cause from the last attempt.
type FetchError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s failed after %d attempt(s): %v", e.URL, e.Attempts, e.Err)
}

// Unwrap exposes both ErrFetchFailed and the underlying cause to errors.Is/As
func (e *FetchError) Unwrap() []error {
	return []error{ErrFetchFailed, e.Err}
}
