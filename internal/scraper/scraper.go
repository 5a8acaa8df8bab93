package scraper

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/pfrederiksen/opera-events/internal/event"
	"github.com/pfrederiksen/opera-events/internal/logger"
	"github.com/pfrederiksen/opera-events/internal/metrics"
	"go.uber.org/zap"
)

const (
	BaseURL          = "https://bachtrack.com"
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	Timeout          = 10 * time.Second
)

// Scraper searches the listing site and extracts opera performances.
// It holds no per-call state and is safe for concurrent use when its
// Fetcher is.
type Scraper struct {
	base       *url.URL
	fetcher    Fetcher
	now        func() time.Time
	log        *zap.Logger
	metrics    *metrics.Metrics
	qualifiers []string
}

// Option configures a Scraper
type Option func(*Scraper)

// WithBaseURL sets the site origin used for search URLs and detail links
func WithBaseURL(u *url.URL) Option {
	return func(s *Scraper) { s.base = u }
}

// WithFetcher replaces the HTTP fetcher
func WithFetcher(f Fetcher) Option {
	return func(s *Scraper) { s.fetcher = f }
}

// WithClock sets the source of "now" used for year-less dates
func WithClock(now func() time.Time) Option {
	return func(s *Scraper) { s.now = now }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(s *Scraper) { s.log = l }
}

// WithMetrics sets the metrics sink
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scraper) { s.metrics = m }
}

// WithQualifiers sets the performance labels ignored in date tokens
func WithQualifiers(q []string) Option {
	return func(s *Scraper) { s.qualifiers = q }
}

// New creates a new Scraper instance
func New(opts ...Option) *Scraper {
	base, _ := url.Parse(BaseURL)
	s := &Scraper{
		base:       base,
		now:        time.Now,
		qualifiers: event.DefaultQualifiers,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.fetcher == nil {
		s.fetcher = NewHTTPFetcher(Timeout, DefaultUserAgent, s.base.String()+"/")
	}
	if s.log == nil {
		s.log = logger.L()
	}
	return s
}

// Search fetches the results page for q and returns one event per
// performance date. A page without listings yields an empty slice.
func (s *Scraper) Search(ctx context.Context, q Query) ([]*event.Event, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	target := q.URL(s.base)
	body, err := s.fetch(ctx, metrics.KindSearch, target)
	if err != nil {
		return nil, err
	}

	events, stats, err := ParseListings(bytes.NewReader(body), s.base, s.now(), s.qualifiers)
	if err != nil {
		return nil, fmt.Errorf("parsing results page: %w", err)
	}

	for _, skipErr := range stats.Skipped {
		s.log.Debug("skipped listing block", zap.String("url", target), zap.Error(skipErr))
	}
	for _, token := range stats.DroppedTokens {
		s.log.Debug("dropped date token", zap.String("url", target), zap.String("token", token))
	}
	s.metrics.ObserveExtraction(stats.Blocks-len(stats.Skipped), len(stats.Skipped), len(stats.DroppedTokens), len(events))

	s.log.Info("search completed",
		zap.String("query", q.String()),
		zap.Int("blocks", stats.Blocks),
		zap.Int("skipped_blocks", len(stats.Skipped)),
		zap.Int("dropped_tokens", len(stats.DroppedTokens)),
		zap.Int("events", len(events)),
	)
	return events, nil
}

// Detail fetches an event detail page and extracts address and metadata.
func (s *Scraper) Detail(ctx context.Context, detailURL string) (*event.DetailInfo, error) {
	body, err := s.fetch(ctx, metrics.KindDetail, detailURL)
	if err != nil {
		return nil, err
	}

	info, err := ParseDetail(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing detail page: %w", err)
	}
	return info, nil
}

func (s *Scraper) fetch(ctx context.Context, kind, target string) ([]byte, error) {
	start := time.Now()
	body, err := s.fetcher.Fetch(ctx, target)
	s.metrics.ObserveFetch(kind, time.Since(start), err)
	if err != nil {
		s.log.Warn("fetch failed", zap.String("kind", kind), zap.String("url", target), zap.Error(err))
		return nil, err
	}
	return body, nil
}
