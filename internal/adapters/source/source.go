// Package source fetches and decodes competence documents.
//
// A document is a JSON array of {"category", "competencies"} objects. It can
// be read over HTTP(S), from a file:// URL or from a plain filesystem path.
package source

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/okian/competence/internal/domain/model"
	"github.com/okian/competence/pkg/logger"
	"github.com/okian/competence/pkg/metrics"
)

// Default fetcher configuration constants.
const (
	defaultTimeout      = 10 * time.Second
	defaultMaxRetries   = 3
	defaultInitialDelay = 200 * time.Millisecond
	defaultMaxDelay     = 5 * time.Second
	defaultMaxBodyBytes = 16 << 20
)

// Source retrieves the category records behind a URL.
type Source interface {
	FetchCategories(ctx context.Context, rawURL string) ([]model.Category, error)
}

// Fetcher implements Source over HTTP and the local filesystem.
type Fetcher struct {
	client       *http.Client
	timeout      time.Duration
	maxRetries   uint
	initialDelay time.Duration
	maxDelay     time.Duration
	maxBodyBytes int64
	logger       logger.Logger
}

// NewFetcher creates a Fetcher with configuration options.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:       &http.Client{},
		timeout:      defaultTimeout,
		maxRetries:   defaultMaxRetries,
		initialDelay: defaultInitialDelay,
		maxDelay:     defaultMaxDelay,
		maxBodyBytes: defaultMaxBodyBytes,
		logger:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchCategories reads and decodes the document at rawURL.
//
// Network errors, HTTP 5xx and 429 are retried with exponential backoff.
// Other non-2xx responses fail at once with *FetchError; undecodable bodies
// fail at once with *ParseError.
func (f *Fetcher) FetchCategories(ctx context.Context, rawURL string) ([]model.Category, error) {
	start := time.Now()
	defer func() {
		metrics.RecordFetchLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	scheme := schemeOf(rawURL)
	attempt := 0
	op := func() ([]model.Category, error) {
		attempt++
		metrics.RecordFetchAttempt(scheme)

		body, err := f.read(ctx, scheme, rawURL)
		if err != nil {
			f.logger.Debug(ctx, "fetch attempt failed",
				logger.String("url", rawURL),
				logger.Int("attempt", attempt),
				logger.Error(err),
			)
			return nil, err
		}

		cats, err := Decode(body)
		if err != nil {
			return nil, backoff.Permanent(&ParseError{URL: rawURL, Err: err})
		}
		return cats, nil
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = f.initialDelay
	eb.MaxInterval = f.maxDelay

	cats, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(eb),
		backoff.WithMaxTries(f.maxRetries+1),
		backoff.WithMaxElapsedTime(0),
	)
	if err != nil {
		kind := "fetch"
		if errors.Is(err, ErrParse) {
			kind = "parse"
		}
		metrics.RecordFetchFailure(kind)
		f.logger.Warn(ctx, "fetch failed",
			logger.String("url", rawURL),
			logger.Int("attempts", attempt),
			logger.Error(err),
		)
		if !errors.Is(err, ErrFetch) && !errors.Is(err, ErrParse) {
			// context cancellation surfaced by the retry loop
			return nil, &FetchError{URL: rawURL, Err: err}
		}
		return nil, err
	}

	f.logger.Debug(ctx, "fetched categories",
		logger.String("url", rawURL),
		logger.Int("categories", len(cats)),
		logger.Int("attempts", attempt),
	)
	return cats, nil
}

func (f *Fetcher) read(ctx context.Context, scheme, rawURL string) ([]byte, error) {
	switch scheme {
	case "http", "https":
		return f.readHTTP(ctx, rawURL)
	default:
		return readFile(rawURL)
	}
}

func (f *Fetcher) readHTTP(ctx context.Context, rawURL string) ([]byte, error) {
	reqCtx := ctx
	if f.timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, backoff.Permanent(&FetchError{URL: rawURL, Err: err})
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, backoff.Permanent(&FetchError{URL: rawURL, Err: ctx.Err()})
		}
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, f.maxBodyBytes))
		ferr := &FetchError{URL: rawURL, StatusCode: resp.StatusCode}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, ferr
		}
		return nil, backoff.Permanent(ferr)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes+1))
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	if int64(len(body)) > f.maxBodyBytes {
		return nil, backoff.Permanent(&FetchError{URL: rawURL, Err: ErrBodyTooLarge})
	}
	return body, nil
}

func readFile(rawURL string) ([]byte, error) {
	path := rawURL
	if strings.HasPrefix(rawURL, "file://") {
		u, err := url.Parse(rawURL)
		if err != nil {
			return nil, backoff.Permanent(&FetchError{URL: rawURL, Err: err})
		}
		path = u.Path
	}
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, backoff.Permanent(&FetchError{URL: rawURL, Err: err})
	}
	return body, nil
}

// Decode parses a competence document. The top level must be a JSON array;
// type mismatches are errors while unknown keys are ignored. Missing keys
// are left nil for the aggregator to reject.
func Decode(body []byte) ([]model.Category, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, errors.New("empty document")
	}
	if trimmed[0] != '[' {
		return nil, errors.New("document must be a JSON array of categories")
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	var cats []model.Category
	if err := dec.Decode(&cats); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after document")
	}
	if cats == nil {
		cats = []model.Category{}
	}
	return cats, nil
}

func schemeOf(rawURL string) string {
	if i := strings.Index(rawURL, "://"); i > 0 {
		return strings.ToLower(rawURL[:i])
	}
	return "file"
}
