package service

import (
	"errors"

	"github.com/okian/competence/internal/adapters/repository"
)

// Sentinel kinds for service errors.
var (
	// ErrNoData is returned before the first successful refresh.
	ErrNoData = repository.ErrNotFound
	// ErrCategoryNotFound is returned when the latest snapshot has no such category.
	ErrCategoryNotFound = repository.ErrCategoryNotFound
	// ErrNoSource is returned when no source URL was configured.
	ErrNoSource = errors.New("no source configured")
)
