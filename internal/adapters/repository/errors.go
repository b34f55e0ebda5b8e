package repository

import "errors"

// Sentinel kinds for snapshot store errors.
var (
	ErrNotFound         = errors.New("no snapshot published yet")
	ErrInvalidResult    = errors.New("snapshot has no result")
	// ErrCategoryNotFound is returned when a snapshot has no such category.
	ErrCategoryNotFound = errors.New("category not found")
)
