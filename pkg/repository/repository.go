// Package repository loads sheets from a source.Source and keeps the
// normalized tables in a TTL cache shared by every request.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rubiojr/crmdesk/pkg/cache"
	"github.com/rubiojr/crmdesk/pkg/clock"
	"github.com/rubiojr/crmdesk/pkg/log"
	"github.com/rubiojr/crmdesk/pkg/metrics"
	"github.com/rubiojr/crmdesk/pkg/sheet"
	"github.com/rubiojr/crmdesk/pkg/source"
	"golang.org/x/sync/singleflight"
)

// ErrDataSource wraps every failure to fetch from the backing source.
var ErrDataSource = errors.New("data source error")

// Sheet names read by the lookup service.
const (
	SheetTrips    = "Trips"
	SheetProfile  = "Profile"
	SheetContacts = "Contacts"
)

// WarmSheets are loaded eagerly by WarmCache.
var WarmSheets = []string{SheetTrips, SheetProfile, SheetContacts}

const (
	sheetKeyPrefix = "sheet:"
	timezoneKey    = "sheet:timezone"
	defaultZone    = "UTC"
)

type Options struct {
	TTL          time.Duration
	MaxSheetRows int
	FetchTimeout time.Duration
	Clock        clock.Clock
}

// Repository is safe for concurrent use. Concurrent misses on the same key
// share a single fetch.
type Repository struct {
	src          source.Source
	tables       *cache.TTL[*sheet.Table]
	zones        *cache.TTL[string]
	maxRows      int
	fetchTimeout time.Duration
	group        singleflight.Group
	logger       *log.Logger
}

func New(src source.Source, opts Options) *Repository {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	return &Repository{
		src:          src,
		tables:       cache.NewWithClock[*sheet.Table](opts.TTL, opts.Clock),
		zones:        cache.NewWithClock[string](opts.TTL, opts.Clock),
		maxRows:      opts.MaxSheetRows,
		fetchTimeout: opts.FetchTimeout,
		logger:       log.ForService("repository"),
	}
}

func (r *Repository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.fetchTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.fetchTimeout)
}

// LoadSheet returns the named sheet, fetching it on a cache miss. Data rows
// beyond the configured maximum are dropped.
func (r *Repository) LoadSheet(ctx context.Context, name string) (*sheet.Table, error) {
	key := sheetKeyPrefix + name
	if t, ok := r.tables.Get(key); ok {
		metrics.CacheLookups.WithLabelValues(key, "hit").Inc()
		return t, nil
	}
	metrics.CacheLookups.WithLabelValues(key, "miss").Inc()

	v, err, _ := r.group.Do(key, func() (any, error) {
		if t, ok := r.tables.Get(key); ok {
			return t, nil
		}
		fetchCtx, cancel := r.withTimeout(ctx)
		defer cancel()

		start := time.Now()
		raw, err := r.src.ReadSheet(fetchCtx, name)
		metrics.SourceFetchDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.SourceFetches.WithLabelValues(key, "error").Inc()
			return nil, fmt.Errorf("%w: loading sheet %s: %w", ErrDataSource, name, err)
		}
		metrics.SourceFetches.WithLabelValues(key, "ok").Inc()

		table := sheet.NewTable(raw)
		if r.maxRows > 0 && len(table.Rows) > r.maxRows {
			r.logger.Warnf("sheet %s has %d rows, keeping the first %d", name, len(table.Rows), r.maxRows)
			table = table.Truncate(r.maxRows)
		}
		r.tables.Set(key, table)
		r.logger.Debugf("loaded sheet %s: %d rows", name, len(table.Rows))
		return table, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*sheet.Table), nil
}

// Timezone returns the source's timezone, "UTC" when it reports none.
func (r *Repository) Timezone(ctx context.Context) (string, error) {
	if tz, ok := r.zones.Get(timezoneKey); ok {
		metrics.CacheLookups.WithLabelValues(timezoneKey, "hit").Inc()
		return tz, nil
	}
	metrics.CacheLookups.WithLabelValues(timezoneKey, "miss").Inc()

	v, err, _ := r.group.Do(timezoneKey, func() (any, error) {
		fetchCtx, cancel := r.withTimeout(ctx)
		defer cancel()

		tz, err := r.src.Timezone(fetchCtx)
		if err != nil {
			metrics.SourceFetches.WithLabelValues(timezoneKey, "error").Inc()
			return "", fmt.Errorf("%w: loading timezone: %w", ErrDataSource, err)
		}
		metrics.SourceFetches.WithLabelValues(timezoneKey, "ok").Inc()
		if tz == "" {
			tz = defaultZone
		}
		r.zones.Set(timezoneKey, tz)
		return tz, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// WarmCache loads the lookup sheets and the timezone so the first request
// does not pay the fetch latency. Every item is attempted; the joined error
// reports those that failed.
func (r *Repository) WarmCache(ctx context.Context) error {
	var errs []error
	for _, name := range WarmSheets {
		if _, err := r.LoadSheet(ctx, name); err != nil {
			errs = append(errs, err)
		}
	}
	if _, err := r.Timezone(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Invalidate drops every cached table and the timezone.
func (r *Repository) Invalidate() {
	r.tables.Clear()
	r.zones.Clear()
	r.logger.Infof("cache invalidated")
}
