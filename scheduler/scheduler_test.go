package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Mephiles/torn-travelbot/config"
	"github.com/Mephiles/torn-travelbot/logring"
	"github.com/Mephiles/torn-travelbot/models"
	"github.com/Mephiles/torn-travelbot/store"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeCatalogFetcher struct {
	mu      sync.Mutex
	calls   int
	items   map[int]models.Item
	err     error
	block   chan struct{}
	started chan struct{}
}

func (f *fakeCatalogFetcher) FetchCatalog(ctx context.Context) (map[int]models.Item, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.items, nil
}

func (f *fakeCatalogFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeStockFetcher struct {
	mu        sync.Mutex
	calls     int
	countries map[string]models.CountryStock
	err       error
}

func (f *fakeStockFetcher) FetchStocks(ctx context.Context) (map[string]models.CountryStock, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.countries, nil
}

func (f *fakeStockFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func testConfig() *config.Config {
	return &config.Config{
		Refresh: config.RefreshConfig{
			TickInterval:  time.Minute,
			CatalogMaxAge: 12 * time.Hour,
			StockMaxAge:   10 * time.Minute,
		},
	}
}

func testScheduler(cf CatalogFetcher, sf StockFetcher) (*Scheduler, *store.Catalog, *store.Stock, *logring.Ring, *fakeClock) {
	catalog := store.NewCatalog()
	stocks := store.NewStock()
	ring := logring.New(10, func(t time.Time) string { return t.UTC().Format("15:04:05") })
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0).UTC()}
	s := New(testConfig(), catalog, stocks, cf, sf, ring)
	s.SetClock(clock)
	return s, catalog, stocks, ring, clock
}

func ringContains(ring *logring.Ring, substr string) bool {
	for _, entry := range ring.Tail(ring.Len()) {
		if strings.Contains(entry.Message, substr) {
			return true
		}
	}
	return false
}

func TestCatalogStaleness(t *testing.T) {
	s, catalog, _, _, clock := testScheduler(&fakeCatalogFetcher{}, &fakeStockFetcher{})

	if !s.CatalogStale(clock.Now()) {
		t.Error("never-loaded catalog should be stale")
	}

	catalog.Replace(models.CatalogSnapshot{
		Items:     map[int]models.Item{1: {ID: 1, Name: "Xanax"}},
		FetchedAt: clock.Now(),
	})
	if s.CatalogStale(clock.Now()) {
		t.Error("fresh catalog should not be stale")
	}

	clock.Advance(12*time.Hour - time.Second)
	if s.CatalogStale(clock.Now()) {
		t.Error("catalog just under max age should not be stale")
	}

	clock.Advance(time.Second)
	if !s.CatalogStale(clock.Now()) {
		t.Error("catalog at exactly max age should be stale")
	}
}

func TestStockStaleness(t *testing.T) {
	s, _, stocks, _, clock := testScheduler(&fakeCatalogFetcher{}, &fakeStockFetcher{})

	if !s.StockStale(clock.Now()) {
		t.Error("never-loaded stock should be stale")
	}

	stocks.Replace(models.StockSnapshot{
		Countries: map[string]models.CountryStock{},
		FetchedAt: clock.Now(),
	})
	if s.StockStale(clock.Now()) {
		t.Error("fresh stock should not be stale")
	}

	clock.Advance(10 * time.Minute)
	if !s.StockStale(clock.Now()) {
		t.Error("stock at exactly max age should be stale")
	}
}

func TestRefreshCatalogReplacesSnapshot(t *testing.T) {
	cf := &fakeCatalogFetcher{items: map[int]models.Item{
		206: {ID: 206, Name: "Xanax", MarketValue: 830_000, Category: models.CategoryDrug},
	}}
	s, catalog, _, ring, clock := testScheduler(cf, &fakeStockFetcher{})

	if !s.RefreshCatalog(context.Background()) {
		t.Fatal("RefreshCatalog returned false with no refresh in flight")
	}

	snap := catalog.Snapshot()
	if !snap.Loaded() {
		t.Fatal("catalog not loaded after refresh")
	}
	if len(snap.Items) != 1 || snap.Items[206].Name != "Xanax" {
		t.Errorf("unexpected snapshot items: %+v", snap.Items)
	}
	if !snap.FetchedAt.Equal(clock.Now()) {
		t.Errorf("FetchedAt = %v, want %v", snap.FetchedAt, clock.Now())
	}
	if !ringContains(ring, "Updating item catalog") || !ringContains(ring, "Item catalog updated") {
		t.Errorf("activity log missing refresh entries: %+v", ring.Tail(ring.Len()))
	}
}

func TestRefreshCatalogFailureKeepsSnapshot(t *testing.T) {
	cf := &fakeCatalogFetcher{err: errors.New("api unreachable")}
	s, catalog, _, ring, clock := testScheduler(cf, &fakeStockFetcher{})

	seeded := models.CatalogSnapshot{
		Items:     map[int]models.Item{1: {ID: 1, Name: "Dahlia"}},
		FetchedAt: clock.Now().Add(-time.Hour),
	}
	catalog.Replace(seeded)

	if !s.RefreshCatalog(context.Background()) {
		t.Fatal("RefreshCatalog returned false with no refresh in flight")
	}

	snap := catalog.Snapshot()
	if len(snap.Items) != 1 || !snap.FetchedAt.Equal(seeded.FetchedAt) {
		t.Errorf("failed refresh must keep previous snapshot, got %+v", snap)
	}
	if !ringContains(ring, "Catalog fetch failed") {
		t.Errorf("activity log missing failure entry: %+v", ring.Tail(ring.Len()))
	}
}

func TestRefreshCatalogSingleFlight(t *testing.T) {
	cf := &fakeCatalogFetcher{
		items:   map[int]models.Item{},
		block:   make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	s, _, _, _, _ := testScheduler(cf, &fakeStockFetcher{})

	done := make(chan struct{})
	go func() {
		s.RefreshCatalog(context.Background())
		close(done)
	}()
	<-cf.started

	if s.RefreshCatalog(context.Background()) {
		t.Error("second concurrent RefreshCatalog should be skipped")
	}

	close(cf.block)
	<-done

	if cf.callCount() != 1 {
		t.Errorf("fetcher called %d times, want 1", cf.callCount())
	}
	if !s.RefreshCatalog(context.Background()) {
		t.Error("refresh after completion should run again")
	}
}

func TestRefreshStockEnrichment(t *testing.T) {
	cf := &fakeCatalogFetcher{items: map[int]models.Item{
		206: {ID: 206, Name: "Xanax", Category: models.CategoryDrug},
		186: {ID: 186, Name: "Teddy Bear Plushie", Category: models.CategoryPlushie},
	}}
	sf := &fakeStockFetcher{countries: map[string]models.CountryStock{
		"mex": {
			UpdatedAt: time.Unix(1_700_000_000, 0).UTC(),
			Entries: []models.StockEntry{
				{ItemID: 206, Name: "Xanax", Cost: 530_000, Quantity: 3},
				{ItemID: 186, Name: "Teddy Bear Plushie", Cost: 100, Quantity: 12},
				{ItemID: 999, Name: "Mystery Box", Cost: 1, Quantity: 1},
			},
		},
	}}
	s, _, stocks, _, _ := testScheduler(cf, sf)

	s.RefreshCatalog(context.Background())
	s.RefreshStock(context.Background())

	snap := stocks.Snapshot()
	if snap.Degraded {
		t.Error("snapshot should not be degraded with a loaded catalog")
	}
	entries := snap.Countries["mex"].Entries
	want := []models.ItemCategory{models.CategoryDrug, models.CategoryPlushie, models.CategoryOther}
	for i, category := range want {
		if entries[i].Category != category {
			t.Errorf("entry %d category = %v, want %v", i, entries[i].Category, category)
		}
	}
}

func TestRefreshStockDegradedWithoutCatalog(t *testing.T) {
	sf := &fakeStockFetcher{countries: map[string]models.CountryStock{
		"can": {Entries: []models.StockEntry{{ItemID: 206, Name: "Xanax"}}},
	}}
	s, _, stocks, ring, _ := testScheduler(&fakeCatalogFetcher{}, sf)

	s.RefreshStock(context.Background())

	snap := stocks.Snapshot()
	if !snap.Degraded {
		t.Error("snapshot should be degraded with no catalog loaded")
	}
	if got := snap.Countries["can"].Entries[0].Category; got != models.CategoryOther {
		t.Errorf("degraded entry category = %v, want Other", got)
	}
	if !ringContains(ring, "degraded") {
		t.Errorf("activity log missing degraded entry: %+v", ring.Tail(ring.Len()))
	}
}

func TestUpdateRefreshesOnlyStaleStores(t *testing.T) {
	cf := &fakeCatalogFetcher{items: map[int]models.Item{}}
	sf := &fakeStockFetcher{countries: map[string]models.CountryStock{}}
	s, catalog, _, _, clock := testScheduler(cf, sf)

	catalog.Replace(models.CatalogSnapshot{
		Items:     map[int]models.Item{1: {ID: 1}},
		FetchedAt: clock.Now(),
	})

	s.Update(context.Background())

	if cf.callCount() != 0 {
		t.Errorf("fresh catalog refreshed %d times, want 0", cf.callCount())
	}
	if sf.callCount() != 1 {
		t.Errorf("stale stock refreshed %d times, want 1", sf.callCount())
	}
}

func TestCatalogCountryNameCollisionWarning(t *testing.T) {
	cf := &fakeCatalogFetcher{items: map[int]models.Item{
		42: {ID: 42, Name: "UK", Category: models.CategoryOther},
	}}
	s, _, _, ring, _ := testScheduler(cf, &fakeStockFetcher{})

	s.RefreshCatalog(context.Background())

	if !ringContains(ring, "collision") {
		t.Errorf("activity log missing collision entry: %+v", ring.Tail(ring.Len()))
	}
}
