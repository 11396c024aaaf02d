package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"filter-selector/internal/service/normalize"
	"filter-selector/internal/storage"
)

const defaultMaxBodyBytes = 10 << 20

// CatalogLoadError wraps every failure of one load attempt: transport, HTTP
// status, body size or a malformed sheet.
type CatalogLoadError struct {
	Source string
	Err    error
}

func (e *CatalogLoadError) Error() string {
	return fmt.Sprintf("load catalog from %s: %v", e.Source, e.Err)
}

func (e *CatalogLoadError) Unwrap() error { return e.Err }

// Malformed reports whether the sheet was fetched but could not be read as a catalog.
func (e *CatalogLoadError) Malformed() bool {
	var m *normalize.MalformedCatalogError
	return errors.As(e.Err, &m)
}

// Cache keeps the last good body per source URL.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

type Options struct {
	SourceURL    string
	FetchTimeout time.Duration
	MaxBodyBytes int64
	CacheTTL     time.Duration
}

type Loader struct {
	opts   Options
	client *http.Client
	store  *storage.SnapshotStore
	cache  Cache
	log    *slog.Logger
	group  singleflight.Group
}

// New builds a loader; cache may be nil.
func New(opts Options, client *http.Client, store *storage.SnapshotStore, cache Cache, log *slog.Logger) *Loader {
	if client == nil {
		client = http.DefaultClient
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}
	if log == nil {
		log = slog.Default()
	}

	return &Loader{
		opts:   opts,
		client: client,
		store:  store,
		cache:  cache,
		log:    log,
	}
}

func (l *Loader) Source() string {
	return l.opts.SourceURL
}

// Load fetches the source, normalizes it and publishes a new snapshot.
// Calls that overlap share one fetch. On error the current snapshot is kept.
func (l *Loader) Load(ctx context.Context) (*storage.Snapshot, error) {
	ch := l.group.DoChan("load", func() (interface{}, error) {
		// detached so one caller's cancellation does not fail the others
		fetchCtx := context.WithoutCancel(ctx)
		return l.load(fetchCtx)
	})

	select {
	case <-ctx.Done():
		return nil, &CatalogLoadError{Source: l.opts.SourceURL, Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*storage.Snapshot), nil
	}
}

func (l *Loader) load(ctx context.Context) (*storage.Snapshot, error) {
	const op = "service.loader.Load"

	log := l.log.With(slog.String("op", op), slog.String("source", l.opts.SourceURL))
	started := time.Now()

	body, err := l.fetch(ctx)
	if err != nil {
		log.Error("catalog fetch failed", slog.String("error", err.Error()))
		return nil, &CatalogLoadError{Source: l.opts.SourceURL, Err: err}
	}

	records, err := normalize.Parse(bytes.NewReader(body))
	if err != nil {
		log.Error("catalog parse failed", slog.String("error", err.Error()))
		return nil, &CatalogLoadError{Source: l.opts.SourceURL, Err: err}
	}

	snap := l.store.Replace(records, l.opts.SourceURL, storage.OriginSource)

	if l.cache != nil {
		if err := l.cache.Set(ctx, l.opts.SourceURL, string(body), l.opts.CacheTTL); err != nil {
			log.Warn("failed to cache catalog body", slog.String("error", err.Error()))
		}
	}

	log.Info("catalog loaded",
		slog.Int("records", len(records)),
		slog.Uint64("version", snap.Version),
		slog.Duration("took", time.Since(started)),
	)

	return snap, nil
}

func (l *Loader) fetch(ctx context.Context) ([]byte, error) {
	if l.opts.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.opts.FetchTimeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.opts.SourceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "text/csv, text/plain;q=0.9, */*;q=0.1")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, l.opts.MaxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > l.opts.MaxBodyBytes {
		return nil, fmt.Errorf("body exceeds %d bytes", l.opts.MaxBodyBytes)
	}

	return body, nil
}

// WarmStart publishes the cached body, if any, so calculations can run before
// the first fetch completes. It does nothing once a snapshot exists.
func (l *Loader) WarmStart(ctx context.Context) (bool, error) {
	const op = "service.loader.WarmStart"

	if l.cache == nil || l.store.Ready() {
		return false, nil
	}

	body, ok, err := l.cache.Get(ctx, l.opts.SourceURL)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return false, nil
	}

	records, err := normalize.Parse(strings.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("%s: cached body: %w", op, err)
	}

	snap, published := l.store.ReplaceIfEmpty(records, l.opts.SourceURL, storage.OriginCache)
	if !published {
		return false, nil
	}
	l.log.Info("catalog warm-started from cache",
		slog.String("op", op),
		slog.Int("records", len(records)),
		slog.Uint64("version", snap.Version),
	)

	return true, nil
}
