package config

import "errors"

var (
	// ErrInvalidConfig wraps Validate failures: empty addr or source_url,
	// negative durations, bad metric names.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrLoadConfig wraps failures reading COMPETENCE_CONFIG or the
	// COMPETENCE_* environment.
	ErrLoadConfig = errors.New("load config failed")
)
