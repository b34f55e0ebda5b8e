package source

import (
	"errors"
	"fmt"
)

// Sentinel kinds for data source errors.
var (
	ErrFetch = errors.New("fetch failed")
	ErrParse = errors.New("parse failed")

	// ErrBodyTooLarge is wrapped by a FetchError when a response exceeds the body limit.
	ErrBodyTooLarge = errors.New("body too large")
)

// FetchError reports an unsuccessful retrieval. StatusCode is 0 when no HTTP
// response was received (network or filesystem failure).
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: %s: HTTP status %d", ErrFetch, e.URL, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", ErrFetch, e.URL, e.Err)
	default:
		return fmt.Sprintf("%s: %s", ErrFetch, e.URL)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrFetch) match.
func (e *FetchError) Is(target error) bool { return target == ErrFetch }

// ParseError reports a body that is not valid JSON of the expected shape.
type ParseError struct {
	URL string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrParse, e.URL, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrParse) match.
func (e *ParseError) Is(target error) bool { return target == ErrParse }
