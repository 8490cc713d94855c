// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

package extractions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"codeberg.org/readeck/microdata/internal/cache"
	"codeberg.org/readeck/microdata/internal/db/scanner"
	"codeberg.org/readeck/microdata/internal/metrics"
	"codeberg.org/readeck/microdata/pkg/extract"
)

var (
	// ErrInvalidURL is returned when an extraction URL is not an absolute HTTP URL.
	ErrInvalidURL = errors.New("invalid URL")
	// ErrLoad wraps the errors occurring while a page is loaded.
	ErrLoad = errors.New("cannot load page")
)

// Manager runs and stores extractions.
type Manager struct {
	db      *goqu.Database
	store   cache.Store
	loader  *extract.Loader
	metrics *metrics.Metrics
	ttl     time.Duration
	group   singleflight.Group
	now     func() time.Time
}

// Option is a [Manager] option.
type Option func(*Manager)

// WithMetrics sets the metrics recording the extraction results.
func WithMetrics(m *metrics.Metrics) Option {
	return func(mgr *Manager) {
		mgr.metrics = m
	}
}

// WithTTL sets how long an extraction is served from the cache.
// A zero TTL disables the cache.
func WithTTL(ttl time.Duration) Option {
	return func(mgr *Manager) {
		mgr.ttl = ttl
	}
}

// NewManager returns a new [Manager].
func NewManager(db *goqu.Database, store cache.Store, loader *extract.Loader, options ...Option) *Manager {
	m := &Manager{
		db:     db,
		store:  store,
		loader: loader,
		ttl:    10 * time.Minute,
		now:    time.Now,
	}
	for _, f := range options {
		f(m)
	}
	return m
}

// Extract returns an extraction for the given URL. A recent extraction is
// served from the cache, otherwise the page is loaded and a new extraction
// is stored. Concurrent calls for the same URL share one load.
// The boolean result is false only when this call stored a new extraction
// on its own. A canceled context only stops waiting for the shared load.
func (m *Manager) Extract(ctx context.Context, src string) (*Extraction, bool, error) {
	u, err := normalizeURL(src)
	if err != nil {
		return nil, false, err
	}

	key := cacheKey(u)
	if e := m.fromCache(ctx, key); e != nil {
		m.metrics.Extraction(metrics.ResultCached, e.ItemCount)
		return e, true, nil
	}

	// The load is shared by every caller, so it must outlive the
	// request that started it.
	flightCtx := context.WithoutCancel(ctx)
	ch := m.group.DoChan(key, func() (any, error) {
		// The previous call for this URL may have just filled the cache.
		if e := m.fromCache(flightCtx, key); e != nil {
			return result{e, true}, nil
		}
		e, err := m.create(flightCtx, u, key)
		return result{e, false}, err
	})

	var r singleflight.Result
	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case r = <-ch:
	}
	if r.Err != nil {
		m.metrics.Extraction(metrics.ResultError, 0)
		return nil, false, r.Err
	}

	res := r.Val.(result)
	cached := res.cached || r.Shared
	if cached {
		m.metrics.Extraction(metrics.ResultCached, res.e.ItemCount)
	} else {
		m.metrics.Extraction(metrics.ResultCreated, res.e.ItemCount)
	}
	return res.e, cached, nil
}

type result struct {
	e      *Extraction
	cached bool
}

func (m *Manager) create(ctx context.Context, u, key string) (*Extraction, error) {
	page, err := m.loader.Load(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}
	doc, err := page.Document()
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}

	e := &Extraction{
		ID:        uuid.New(),
		Created:   m.now().UTC().Truncate(time.Second),
		URL:       u,
		ItemCount: len(doc.Items),
		Data:      data,
	}

	_, err = m.db.Insert(TableName).Rows(*e).Executor().ExecContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("cannot store extraction: %w", err)
	}

	if m.ttl > 0 {
		if err := cache.SetJSON(ctx, m.store, key, e, m.ttl); err != nil {
			slog.Warn("cannot cache extraction", slog.String("url", u), slog.Any("err", err))
		}
	}

	slog.Info("extraction created",
		slog.String("id", e.ID.String()),
		slog.String("url", u),
		slog.Int("items", e.ItemCount),
	)
	return e, nil
}

func (m *Manager) fromCache(ctx context.Context, key string) *Extraction {
	if m.ttl <= 0 {
		return nil
	}

	e := new(Extraction)
	err := cache.GetJSON(ctx, m.store, key, e)
	switch {
	case errors.Is(err, cache.ErrNotExists):
		return nil
	case err != nil:
		slog.Warn("cannot read cache", slog.String("key", key), slog.Any("err", err))
		return nil
	}
	return e
}

// Get returns an extraction by its ID.
func (m *Manager) Get(ctx context.Context, id uuid.UUID) (*Extraction, error) {
	e := new(Extraction)
	found, err := m.db.From(TableName).
		Where(goqu.C("id").Eq(id.String())).
		ScanStructContext(ctx, e)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	return e, nil
}

// ListOptions filters and paginates [Manager.List].
type ListOptions struct {
	URL    string
	Limit  uint
	Offset uint
}

// List returns the extractions, most recent first.
func (m *Manager) List(ctx context.Context, opts ListOptions) ([]*Extraction, error) {
	ds := m.db.From(TableName).
		Select("id", "created", "url", "item_count", "data").
		Order(goqu.C("created").Desc(), goqu.C("id").Asc())

	if opts.URL != "" {
		u, err := normalizeURL(opts.URL)
		if err != nil {
			return nil, err
		}
		ds = ds.Where(goqu.C("url").Eq(u))
	}
	if opts.Limit == 0 || opts.Limit > 100 {
		opts.Limit = 100
	}
	ds = ds.Limit(opts.Limit).Offset(opts.Offset)

	return scanner.Collect(scanner.IterContext[Extraction](ctx, ds))
}

func normalizeURL(src string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(src))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidURL, src)
	}
	u.Fragment = ""
	return u.String(), nil
}

func cacheKey(u string) string {
	return "extraction:" + u
}
