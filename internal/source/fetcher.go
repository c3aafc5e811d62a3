package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-resty/resty/v2"

	"HeliumRecovery.monitor/internal/ingest"
	"HeliumRecovery.monitor/internal/models"
)

var (
	// ErrSourceUnavailable is returned when the feed cannot be downloaded.
	ErrSourceUnavailable = errors.New("data source unavailable")
	// ErrMalformedFeed is returned when the downloaded feed cannot be parsed.
	ErrMalformedFeed = errors.New("malformed data feed")
)

// DefaultTTL is how long a downloaded feed is reused.
const DefaultTTL = 60 * time.Second

// SheetExportURL builds the CSV export link of a Google Sheets tab.
func SheetExportURL(sheetID, gid string) string {
	return fmt.Sprintf("https://docs.google.com/spreadsheets/d/%s/export?format=csv&gid=%s", sheetID, gid)
}

// Fetcher returns the current feed rows.
type Fetcher interface {
	Fetch(ctx context.Context) ([]models.RawReading, error)
	Invalidate(ctx context.Context) error
}

// FetcherConfig configures a SheetFetcher.
type FetcherConfig struct {
	URL     string
	TTL     time.Duration
	Timeout time.Duration
	Retries int
}

// SheetFetcher downloads the feed over HTTP and keeps the body in a Cache.
type SheetFetcher struct {
	client *resty.Client
	url    string
	ttl    time.Duration
	cache  Cache
	parser *ingest.Parser
}

// NewSheetFetcher creates a SheetFetcher. A nil cache gets an in-process one.
func NewSheetFetcher(cfg FetcherConfig, cache Cache, parser *ingest.Parser) *SheetFetcher {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cache == nil {
		cache = NewMemoryCache()
	}
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.Retries).
		SetHeader("Accept", "text/csv")
	return &SheetFetcher{
		client: client,
		url:    cfg.URL,
		ttl:    cfg.TTL,
		cache:  cache,
		parser: parser,
	}
}

// Fetch returns the feed rows, downloading the feed when the cached copy has expired.
func (f *SheetFetcher) Fetch(ctx context.Context) ([]models.RawReading, error) {
	body, err := f.body(ctx)
	if err != nil {
		return nil, err
	}

	rows, skipped, err := f.parser.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFeed, err)
	}
	if skipped > 0 {
		log.Printf("Skipped %d feed row(s) without a timestamp", skipped)
	}
	return rows, nil
}

func (f *SheetFetcher) body(ctx context.Context) ([]byte, error) {
	cached, ok, err := f.cache.Get(ctx, f.url)
	if err != nil {
		log.Printf("⚠️ Feed cache read failed, downloading instead: %v", err)
	}
	if ok {
		return cached, nil
	}

	resp, err := f.client.R().SetContext(ctx).Get(f.url)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: %s returned %d", ErrSourceUnavailable, f.url, resp.StatusCode())
	}

	body := resp.Body()
	if err := f.cache.Set(ctx, f.url, body, f.ttl); err != nil {
		log.Printf("⚠️ Feed cache write failed: %v", err)
	}
	log.Printf("✅ Downloaded feed (%d bytes)", len(body))
	return body, nil
}

// Invalidate forgets the cached feed so the next Fetch downloads it again.
func (f *SheetFetcher) Invalidate(ctx context.Context) error {
	if err := f.cache.Delete(ctx, f.url); err != nil {
		return fmt.Errorf("failed to invalidate feed cache: %w", err)
	}
	return nil
}
