// Package service wires the fetch, aggregate and publish pipeline behind the
// operations the HTTP API needs.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	refreshqueue "github.com/okian/competence/internal/adapters/mq/queue"
	workerpool "github.com/okian/competence/internal/adapters/mq/worker"
	"github.com/okian/competence/internal/adapters/repository"
	"github.com/okian/competence/internal/adapters/source"
	"github.com/okian/competence/internal/domain/aggregate"
	"github.com/okian/competence/internal/domain/chart"
	"github.com/okian/competence/internal/domain/model"
	"github.com/okian/competence/pkg/logger"
	"github.com/okian/competence/pkg/metrics"
)

// Refresh reasons.
const (
	ReasonStartup  = "startup"
	ReasonPeriodic = "periodic"
	ReasonManual   = "manual"
)

const (
	defaultQueueSize       = 16
	defaultWorkerCount     = 1
	defaultRefreshInterval = time.Minute
	stopTimeout            = 10 * time.Second
	refreshKey             = "refresh"
)

// Service implements the API dependencies for the competence summary.
type Service struct {
	mu sync.RWMutex

	// Core components
	store   *repository.SnapshotStore
	fetcher source.Source
	queue   *refreshqueue.InMemoryQueue
	pool    *workerpool.Pool
	group   singleflight.Group

	// Configuration
	sourceURL       string
	queueSize       int
	workerCount     int
	refreshInterval time.Duration
	chartOpts       []chart.Option

	// State
	started     bool
	cancel      context.CancelFunc
	cancelLoops context.CancelFunc
	loops       sync.WaitGroup

	refreshes atomic.Uint64
	failures  atomic.Uint64
	coalesced atomic.Uint64
	lastError atomic.Pointer[string]

	logger logger.Logger
}

// New constructs a Service. The snapshot store exists from the start so
// reads before Start report ErrNoData rather than panicking.
func New(opts ...Option) *Service {
	s := &Service{
		store:           repository.NewSnapshotStore(),
		queueSize:       defaultQueueSize,
		workerCount:     defaultWorkerCount,
		refreshInterval: defaultRefreshInterval,
		logger:          logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.fetcher == nil {
		s.fetcher = source.NewFetcher(source.WithLogger(s.logger))
	}
	return s
}

// Start launches the worker pool, runs the first refresh and starts the
// periodic refresher. A failed first refresh is logged, not returned.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	if s.sourceURL == "" {
		s.mu.Unlock()
		return ErrNoSource
	}

	s.logger.Info(ctx, "starting competence service...")

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.queue = refreshqueue.NewInMemoryQueue(refreshqueue.WithCapacity(s.queueSize))
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s,
		workerpool.WithLogger(s.logger),
	)
	s.pool.Start(runCtx)
	loopCtx, cancelLoops := context.WithCancel(runCtx)
	s.cancelLoops = cancelLoops
	s.started = true
	s.mu.Unlock()

	if _, err := s.Refresh(ctx, ReasonStartup); err != nil {
		s.logger.Warn(ctx, "initial refresh failed", logger.Error(err))
	}

	if s.refreshInterval > 0 {
		s.loops.Add(1)
		go s.periodic(loopCtx)
	}

	s.logger.Info(ctx, "competence service started",
		logger.String("source", s.sourceURL),
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Duration("refreshInterval", s.refreshInterval),
	)
	return nil
}

// Stop ends periodic refreshes, lets the workers finish the requests already
// queued and then cancels anything still running.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	cancelRun, cancelLoops, pool := s.cancel, s.cancelLoops, s.pool
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	s.logger.Info(ctx, "stopping competence service...")

	cancelLoops()
	s.loops.Wait()
	if err := pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool shutdown", logger.Error(err))
	}
	cancelRun()

	s.logger.Info(ctx, "competence service stopped")
}

func (s *Service) periodic(ctx context.Context) {
	defer s.loops.Done()

	ticker := time.NewTicker(s.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, ok := s.RequestRefresh(ctx, ReasonPeriodic); !ok {
				s.logger.Debug(ctx, "periodic refresh skipped, queue busy")
			}
		}
	}
}

// Refresh fetches the document, aggregates it and publishes the result.
// Concurrent calls share one run. On any error nothing is published and the
// previous snapshot stays current.
func (s *Service) Refresh(ctx context.Context, reason string) (repository.Snapshot, error) {
	if s.sourceURL == "" {
		return repository.Snapshot{}, ErrNoSource
	}

	v, err, shared := s.group.Do(refreshKey, func() (any, error) {
		return s.refresh(ctx, reason)
	})
	if shared {
		s.coalesced.Add(1)
	}
	if err != nil {
		return repository.Snapshot{}, err
	}
	return v.(repository.Snapshot), nil
}

func (s *Service) refresh(ctx context.Context, reason string) (repository.Snapshot, error) {
	s.refreshes.Add(1)
	seq := s.store.NextSeq()
	log := s.logger.With(logger.String("reason", reason), logger.Uint64("seq", seq))

	fetchedAt := time.Now()
	categories, err := s.fetcher.FetchCategories(ctx, s.sourceURL)
	if err != nil {
		return repository.Snapshot{}, s.fail(ctx, log, err)
	}

	start := time.Now()
	res, err := aggregate.Aggregate(categories)
	metrics.RecordAggregationLatency(float64(time.Since(start).Microseconds()) / 1000)
	if err != nil {
		metrics.RecordAggregationError()
		return repository.Snapshot{}, s.fail(ctx, log, err)
	}

	snap := repository.Snapshot{
		ID:        uuid.NewString(),
		Seq:       seq,
		Source:    s.sourceURL,
		FetchedAt: fetchedAt,
		Result:    res,
	}
	accepted, err := s.store.Put(ctx, snap)
	if err != nil {
		return repository.Snapshot{}, s.fail(ctx, log, err)
	}
	if !accepted {
		_ = metrics.RecordRefresh(metrics.OutcomeStale)
		log.Info(ctx, "refresh superseded by a newer run")
		return s.store.Latest(ctx)
	}

	s.lastError.Store(nil)
	_ = metrics.RecordRefresh(metrics.OutcomeSuccess)
	log.Info(ctx, "snapshot published",
		logger.String("id", snap.ID),
		logger.Int("categories", res.Len()),
		logger.Int("competencies", res.CompetencyCount()),
		logger.Float64("total", res.GrandTotal()),
	)
	return snap, nil
}

func (s *Service) fail(ctx context.Context, log logger.Logger, err error) error {
	s.failures.Add(1)
	msg := err.Error()
	s.lastError.Store(&msg)
	_ = metrics.RecordRefresh(outcomeOf(err))
	log.Error(ctx, "refresh failed", logger.Error(err))
	return err
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, aggregate.ErrMalformedInput):
		return metrics.OutcomeMalformed
	case errors.Is(err, source.ErrParse):
		return metrics.OutcomeParseError
	default:
		return metrics.OutcomeFetchError
	}
}

// RequestRefresh queues an asynchronous refresh and returns its request id.
// It returns false when the service is not started or the queue is full.
func (s *Service) RequestRefresh(ctx context.Context, reason string) (string, bool) {
	s.mu.RLock()
	q := s.queue
	started := s.started
	s.mu.RUnlock()

	if !started || q == nil {
		return "", false
	}

	req := model.RefreshRequest{
		ID:          uuid.NewString(),
		Reason:      reason,
		RequestedAt: time.Now(),
	}
	if err := q.Enqueue(ctx, req); err != nil {
		s.logger.Debug(ctx, "refresh request rejected",
			logger.String("reason", reason),
			logger.Error(err),
		)
		return "", false
	}
	return req.ID, true
}

// Latest returns the current snapshot or ErrNoData.
func (s *Service) Latest(ctx context.Context) (repository.Snapshot, error) {
	return s.store.Latest(ctx)
}

// Category returns one category summary from the current snapshot.
func (s *Service) Category(ctx context.Context, name string) (model.CategorySummary, error) {
	snap, err := s.store.Latest(ctx)
	if err != nil {
		return model.CategorySummary{}, err
	}
	summary, ok := snap.Result.Get(name)
	if !ok {
		return model.CategorySummary{}, fmt.Errorf("%w: %q", ErrCategoryNotFound, name)
	}
	return summary, nil
}

// Chart builds the chart payload for the current snapshot.
func (s *Service) Chart(ctx context.Context) (chart.Chart, error) {
	snap, err := s.store.Latest(ctx)
	if err != nil {
		return chart.Chart{}, err
	}
	return chart.Build(snap.Result, s.chartOpts...), nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":         s.started,
		"source":          s.sourceURL,
		"workerCount":     s.workerCount,
		"queueSize":       s.queueSize,
		"refreshInterval": s.refreshInterval.String(),
		"refreshes":       s.refreshes.Load(),
		"failures":        s.failures.Load(),
		"coalesced":       s.coalesced.Load(),
	}
	if msg := s.lastError.Load(); msg != nil {
		stats["lastError"] = *msg
	}

	if s.started {
		stats["queueLength"] = s.queue.Len()
		processed, failed := s.pool.Stats()
		stats["workerProcessed"] = processed
		stats["workerFailed"] = failed
	}

	if snap, err := s.store.Latest(context.Background()); err == nil {
		stats["snapshot"] = map[string]interface{}{
			"id":           snap.ID,
			"seq":          snap.Seq,
			"fetchedAt":    snap.FetchedAt.UTC().Format(time.RFC3339),
			"categories":   snap.Result.Len(),
			"competencies": snap.Result.CompetencyCount(),
			"total":        snap.Result.GrandTotal(),
		}
		if age, ok := s.store.Age(); ok {
			stats["snapshotAge"] = age.Round(time.Millisecond).String()
		}
	}

	return stats
}
