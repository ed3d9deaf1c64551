package feed

import (
	"errors"
	"fmt"
)

var (
	// ErrStoresURLRequired is returned when the store directory URL is not provided.
	ErrStoresURLRequired = errors.New("stores URL required")

	// ErrNotArray is returned when a feed body is not a JSON array.
	ErrNotArray = errors.New("feed body is not a JSON array")
)

// StatusError reports a non-2xx feed response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.StatusCode, e.URL)
}
