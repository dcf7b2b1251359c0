package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rubiojr/crmdesk/pkg/clock"
	"github.com/rubiojr/crmdesk/pkg/sheet"
	"github.com/rubiojr/crmdesk/pkg/source"
)

func newTestRepo(t *testing.T, src source.Source, maxRows int) (*Repository, *clock.Fake) {
	t.Helper()
	c := clock.NewFake(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	return New(src, Options{
		TTL:          5 * time.Minute,
		MaxSheetRows: maxRows,
		FetchTimeout: time.Second,
		Clock:        c,
	}), c
}

func tripsSource() *source.Memory {
	return source.NewMemory("", map[string][][]string{
		"Trips": {
			{"Trip ID", "Last Name"},
			{"T1", "Ivanov"},
			{"T2", "Petrov"},
			{"T3", "Sidorov"},
		},
		"Profile":  {{"Trip ID"}},
		"Contacts": {{"Trip ID"}},
	})
}

func TestLoadSheetCaches(t *testing.T) {
	src := tripsSource()
	repo, c := newTestRepo(t, src, 0)
	ctx := context.Background()

	first, err := repo.LoadSheet(ctx, "Trips")
	if err != nil {
		t.Fatalf("LoadSheet: %v", err)
	}
	if len(first.Rows) != 3 {
		t.Fatalf("expected 3 data rows, got %d", len(first.Rows))
	}

	c.Advance(4 * time.Minute)
	second, err := repo.LoadSheet(ctx, "Trips")
	if err != nil {
		t.Fatal(err)
	}
	if second != first {
		t.Errorf("expected cached table within ttl")
	}
	if src.Reads() != 1 {
		t.Fatalf("expected 1 fetch within ttl, got %d", src.Reads())
	}

	c.Advance(2 * time.Minute)
	if _, err := repo.LoadSheet(ctx, "Trips"); err != nil {
		t.Fatal(err)
	}
	if src.Reads() != 2 {
		t.Fatalf("expected refetch after ttl, got %d fetches", src.Reads())
	}
}

func TestLoadSheetTruncates(t *testing.T) {
	repo, _ := newTestRepo(t, tripsSource(), 2)

	table, err := repo.LoadSheet(context.Background(), "Trips")
	if err != nil {
		t.Fatal(err)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("expected rows capped at 2, got %d", len(table.Rows))
	}
	if got := sheet.TextAt(table.Rows[1], table.Column(sheet.LastNameColumn)); got != "Petrov" {
		t.Errorf("expected head of sheet kept, got %q", got)
	}
}

func TestLoadSheetError(t *testing.T) {
	src := tripsSource()
	repo, _ := newTestRepo(t, src, 0)
	boom := errors.New("connection reset")
	src.FailWith(boom)

	_, err := repo.LoadSheet(context.Background(), "Trips")
	if !errors.Is(err, ErrDataSource) {
		t.Fatalf("expected ErrDataSource, got %v", err)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("expected cause to be preserved, got %v", err)
	}

	src.FailWith(nil)
	if _, err := repo.LoadSheet(context.Background(), "Trips"); err != nil {
		t.Fatalf("failures must not be cached: %v", err)
	}
}

func TestTimezoneDefaultAndCache(t *testing.T) {
	src := tripsSource()
	repo, _ := newTestRepo(t, src, 0)

	for i := 0; i < 3; i++ {
		tz, err := repo.Timezone(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if tz != "UTC" {
			t.Fatalf("expected UTC default, got %q", tz)
		}
	}
	if src.TimezoneReads() != 1 {
		t.Fatalf("expected timezone fetched once, got %d", src.TimezoneReads())
	}
}

func TestWarmCache(t *testing.T) {
	src := tripsSource()
	repo, _ := newTestRepo(t, src, 0)

	if err := repo.WarmCache(context.Background()); err != nil {
		t.Fatalf("WarmCache: %v", err)
	}
	if src.Reads() != 3 || src.TimezoneReads() != 1 {
		t.Fatalf("unexpected fetch counts: sheets=%d tz=%d", src.Reads(), src.TimezoneReads())
	}

	if _, err := repo.LoadSheet(context.Background(), "Profile"); err != nil {
		t.Fatal(err)
	}
	if src.Reads() != 3 {
		t.Fatalf("warm sheets should be served from cache")
	}

	repo.Invalidate()
	if _, err := repo.LoadSheet(context.Background(), "Profile"); err != nil {
		t.Fatal(err)
	}
	if src.Reads() != 4 {
		t.Fatalf("expected refetch after Invalidate, got %d", src.Reads())
	}
}

func TestWarmCacheReportsFailures(t *testing.T) {
	src := source.NewMemory("UTC", map[string][][]string{"Trips": {{"Trip ID"}}})
	repo, _ := newTestRepo(t, src, 0)

	err := repo.WarmCache(context.Background())
	if !errors.Is(err, source.ErrSheetNotFound) {
		t.Fatalf("expected missing sheets to be reported, got %v", err)
	}
	if _, err := repo.LoadSheet(context.Background(), "Trips"); err != nil || src.Reads() != 3 {
		t.Fatalf("sheets that loaded should be cached despite other failures")
	}
}

type slowSource struct {
	*source.Memory
	release chan struct{}
}

func (s *slowSource) ReadSheet(ctx context.Context, name string) ([][]sheet.Cell, error) {
	<-s.release
	return s.Memory.ReadSheet(ctx, name)
}

func TestConcurrentMissesShareFetch(t *testing.T) {
	src := &slowSource{Memory: tripsSource(), release: make(chan struct{})}
	repo, _ := newTestRepo(t, src, 0)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.LoadSheet(context.Background(), "Trips")
			errs <- err
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(src.release)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatal(err)
		}
	}
	if src.Reads() > 2 {
		t.Fatalf("expected concurrent misses to be collapsed, got %d fetches", src.Reads())
	}
}

type blockingSource struct {
	*source.Memory
}

func (b blockingSource) ReadSheet(ctx context.Context, name string) ([][]sheet.Cell, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestFetchTimeout(t *testing.T) {
	repo := New(blockingSource{tripsSource()}, Options{TTL: time.Minute, FetchTimeout: 20 * time.Millisecond})

	_, err := repo.LoadSheet(context.Background(), "Trips")
	if !errors.Is(err, ErrDataSource) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected timeout wrapped as data source error, got %v", err)
	}
}
