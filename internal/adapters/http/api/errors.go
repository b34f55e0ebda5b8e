package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrBackpressure = errors.New("refresh queue is full")
	ErrNoData       = errors.New("no snapshot available yet")
	ErrMethod       = errors.New("method not allowed")
)

// Error codes returned in errorResponse.Code.
const (
	codeBadRequest       = "bad_request"
	codeNotFound         = "not_found"
	codeMethodNotAllowed = "method_not_allowed"
	codeNoData           = "no_data"
	codeBackpressure     = "backpressure"
	codeInternal         = "internal_error"
)
