package service

import (
	"time"

	"github.com/okian/competence/internal/adapters/source"
	"github.com/okian/competence/internal/domain/chart"
	"github.com/okian/competence/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSource sets the URL or path the competence document is read from.
func WithSource(rawURL string) Option {
	return func(s *Service) {
		s.sourceURL = rawURL
	}
}

// WithFetcher replaces the document fetcher.
func WithFetcher(f source.Source) Option {
	return func(s *Service) {
		if f != nil {
			s.fetcher = f
		}
	}
}

// WithQueueSize sets how many refresh requests may be pending.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithWorkerCount sets the number of refresh workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithRefreshInterval sets the period of automatic refreshes. Zero disables them.
func WithRefreshInterval(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.refreshInterval = d
		}
	}
}

// WithChartOptions sets the options used when building chart payloads.
func WithChartOptions(opts ...chart.Option) Option {
	return func(s *Service) {
		s.chartOpts = append([]chart.Option(nil), opts...)
	}
}
