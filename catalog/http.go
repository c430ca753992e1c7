package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/warp/card-ledger/card"
	"github.com/warp/card-ledger/logger"
	"github.com/warp/card-ledger/metrics"
	"github.com/warp/card-ledger/valuation"
)

const (
	defaultBatchSize = 50
	requestTimeout   = 15 * time.Second
	maxRetries       = 2
	initialBackoff   = 500 * time.Millisecond
	maxBackoff       = 8 * time.Second
	maxBodyBytes     = 4 << 20
)

// =============================================================================
// CLOCK
// =============================================================================

// Clock is the time source of an HTTPSource. The limiter reads Now and
// waits with Sleep, so a fake clock makes pacing deterministic.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type systemClock struct{}

// SystemClock is the wall clock.
func SystemClock() Clock { return systemClock{} }

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// =============================================================================
// HTTP SOURCE
// =============================================================================

// HTTPSource reads the catalog from a remote price API:
//
//	GET {base}/cards?ids=sv1-25,base1-4  -> {"data": [Card, ...]}
//	GET {base}/sets                      -> {"data": [{"id": "sv1", "name": "..."}]}
//
// Every request, retries included, takes a token from the instance's own
// limiter.
type HTTPSource struct {
	baseURL   string
	client    *http.Client
	limiter   *rate.Limiter
	clock     Clock
	batchSize int
	metrics   *metrics.Manager
	log       logger.Logger
}

var _ Source = (*HTTPSource)(nil)

// Option configures an HTTPSource.
type Option func(*HTTPSource)

func WithHTTPClient(c *http.Client) Option {
	return func(s *HTTPSource) { s.client = c }
}

func WithClock(c Clock) Option {
	return func(s *HTTPSource) { s.clock = c }
}

func WithMetrics(m *metrics.Manager) Option {
	return func(s *HTTPSource) { s.metrics = m }
}

func WithLogger(l logger.Logger) Option {
	return func(s *HTTPSource) { s.log = l }
}

func WithBatchSize(n int) Option {
	return func(s *HTTPSource) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithRateLimit allows perSecond requests with the given burst. A
// non-positive rate disables limiting.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(s *HTTPSource) {
		limit := rate.Inf
		if perSecond > 0 {
			limit = rate.Limit(perSecond)
		}
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(limit, burst)
	}
}

// NewHTTPSource creates a client for the API rooted at baseURL.
func NewHTTPSource(baseURL string, opts ...Option) *HTTPSource {
	s := &HTTPSource{
		baseURL:   strings.TrimRight(baseURL, "/"),
		client:    &http.Client{Timeout: requestTimeout},
		limiter:   rate.NewLimiter(rate.Limit(10), 1),
		clock:     SystemClock(),
		batchSize: defaultBatchSize,
		log:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *HTTPSource) Prices(ctx context.Context, ids []card.ID) (valuation.PriceMap, error) {
	cards, err := s.Cards(ctx, ids)
	if err != nil {
		return nil, err
	}
	return cards.Prices(), nil
}

// Cards fetches ids in batches. Duplicate and invalid ids are dropped
// before any request is made.
func (s *HTTPSource) Cards(ctx context.Context, ids []card.ID) (valuation.CardDataMap, error) {
	wanted := uniqueIDs(ids)
	out := make(valuation.CardDataMap, len(wanted))

	for start := 0; start < len(wanted); start += s.batchSize {
		end := min(start+s.batchSize, len(wanted))
		batch := make([]string, 0, end-start)
		for _, id := range wanted[start:end] {
			batch = append(batch, string(id))
		}

		q := url.Values{}
		q.Set("ids", strings.Join(batch, ","))

		var resp struct {
			Data []Card `json:"data"`
		}
		if err := s.get(ctx, "/cards?"+q.Encode(), &resp); err != nil {
			return nil, err
		}
		for _, c := range resp.Data {
			out[c.ID] = c.data()
		}
	}
	return out, nil
}

func (s *HTTPSource) SetNames(ctx context.Context) (map[string]string, error) {
	var resp struct {
		Data []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"data"`
	}
	if err := s.get(ctx, "/sets", &resp); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(resp.Data))
	for _, set := range resp.Data {
		out[set.ID] = set.Name
	}
	return out, nil
}

func uniqueIDs(ids []card.ID) []card.ID {
	seen := make(map[card.ID]bool, len(ids))
	out := make([]card.ID, 0, len(ids))
	for _, id := range ids {
		if seen[id] || !card.IsValidCardID(id) {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// wait takes one token, sleeping on the clock until it is available.
func (s *HTTPSource) wait(ctx context.Context) error {
	now := s.clock.Now()
	r := s.limiter.ReserveN(now, 1)
	if !r.OK() {
		return fmt.Errorf("%w: rate limiter rejected request", ErrCatalogUnavailable)
	}
	delay := r.DelayFrom(now)
	if delay <= 0 {
		return nil
	}
	if err := s.clock.Sleep(ctx, delay); err != nil {
		r.CancelAt(s.clock.Now())
		return err
	}
	return nil
}

// get performs a rate-limited GET with retries on 429 and 5xx.
func (s *HTTPSource) get(ctx context.Context, path string, result any) error {
	backoff := initialBackoff
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			if err := s.clock.Sleep(ctx, backoff); err != nil {
				return err
			}
			backoff = min(backoff*2, maxBackoff)
		}
		if err := s.wait(ctx); err != nil {
			return err
		}

		retry, wait, err := s.do(ctx, path, result)
		if err == nil {
			s.metrics.RecordPriceRequest("ok")
			return nil
		}
		lastErr = err
		if !retry {
			s.metrics.RecordPriceRequest("error")
			return err
		}
		s.metrics.RecordPriceRequest("retry")
		s.log.Warn(ctx, "catalog request failed, retrying",
			logger.String("path", path),
			logger.Int("attempt", attempt+1),
			logger.Error(err))
		if wait > backoff {
			backoff = wait
		}
	}
	s.metrics.RecordPriceRequest("error")
	return lastErr
}

// do runs one request. retry reports whether the failure is transient;
// wait is the server's Retry-After hint.
func (s *HTTPSource) do(ctx context.Context, path string, result any) (retry bool, wait time.Duration, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path, nil)
	if err != nil {
		return false, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return false, 0, ctx.Err()
		}
		return true, 0, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return true, 0, fmt.Errorf("%w: reading body: %v", ErrCatalogUnavailable, err)
		}
		if err := json.Unmarshal(body, result); err != nil {
			return false, 0, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
		}
		return false, 0, nil

	case resp.StatusCode == http.StatusTooManyRequests:
		return true, retryAfter(resp.Header.Get("Retry-After")),
			fmt.Errorf("%w: rate limited (HTTP 429)", ErrCatalogUnavailable)

	case resp.StatusCode >= 500:
		return true, 0, fmt.Errorf("%w: HTTP %d", ErrCatalogUnavailable, resp.StatusCode)

	default:
		return false, 0, fmt.Errorf("%w: HTTP %d", ErrCatalogUnavailable, resp.StatusCode)
	}
}

func retryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
