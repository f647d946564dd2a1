// Package scheduler drives the periodic refresh of the catalog and stock
// stores: staleness evaluation per store, single-flight refreshes, atomic
// snapshot replacement and category enrichment.
package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Mephiles/torn-travelbot/config"
	"github.com/Mephiles/torn-travelbot/logger"
	"github.com/Mephiles/torn-travelbot/logring"
	"github.com/Mephiles/torn-travelbot/models"
	"github.com/Mephiles/torn-travelbot/store"
)

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

// SystemClock is the real-time clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// CatalogFetcher fetches the raw item catalog.
type CatalogFetcher interface {
	FetchCatalog(ctx context.Context) (map[int]models.Item, error)
}

// StockFetcher fetches the raw per-country stock dataset.
type StockFetcher interface {
	FetchStocks(ctx context.Context) (map[string]models.CountryStock, error)
}

// Scheduler owns the two snapshot stores' write side. It checks staleness on
// a fixed tick and refreshes each store independently, at most one in-flight
// refresh per store.
type Scheduler struct {
	config         *config.Config
	catalog        *store.Catalog
	stocks         *store.Stock
	catalogFetcher CatalogFetcher
	stockFetcher   StockFetcher
	clock          Clock
	ring           *logring.Ring
	log            *logger.Log

	ctx     context.Context
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool

	catalogInFlight bool
	stockInFlight   bool
}

// New creates a scheduler. The ring may be nil when activity logging is not
// wanted (tests).
func New(cfg *config.Config, catalog *store.Catalog, stocks *store.Stock, cf CatalogFetcher, sf StockFetcher, ring *logring.Ring) *Scheduler {
	return &Scheduler{
		config:         cfg,
		catalog:        catalog,
		stocks:         stocks,
		catalogFetcher: cf,
		stockFetcher:   sf,
		clock:          SystemClock{},
		ring:           ring,
		log:            logger.GetLogger(),
	}
}

// SetClock overrides the clock, for tests.
func (s *Scheduler) SetClock(clock Clock) {
	s.clock = clock
}

// Start runs an immediate refresh pass so the bot is usable without waiting
// a full tick, then evaluates staleness on every tick until ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler already running")
	}
	s.running = true
	s.ctx = ctx
	s.mu.Unlock()

	log := s.log.WithComponent("scheduler").WithFields(logger.Fields{"operation": "Start"})
	log.WithFields(logger.Fields{
		"tick_interval":   s.config.Refresh.TickInterval,
		"catalog_max_age": s.config.Refresh.CatalogMaxAge,
		"stock_max_age":   s.config.Refresh.StockMaxAge,
	}).Info("starting refresh scheduler")

	s.Update(ctx)

	s.wg.Add(1)
	go s.tickLoop(ctx)

	log.Info("refresh scheduler started successfully")
	return nil
}

// Stop waits for the tick loop and any in-flight refresh to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	s.log.WithComponent("scheduler").Info("stopping refresh scheduler")
	s.wg.Wait()
	s.log.WithComponent("scheduler").Info("refresh scheduler stopped")
}

func (s *Scheduler) tickLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Refresh.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.WithComponent("scheduler").Info("tick loop stopped due to context cancellation")
			return
		case <-ticker.C:
			s.Update(ctx)
		}
	}
}

// Update evaluates staleness for both stores independently and refreshes the
// stale ones. Catalog runs first so a same-tick stock refresh enriches
// against the newest catalog.
func (s *Scheduler) Update(ctx context.Context) {
	now := s.clock.Now()
	if s.CatalogStale(now) {
		s.RefreshCatalog(ctx)
	}
	if s.StockStale(now) {
		s.RefreshStock(ctx)
	}
}

// CatalogStale reports whether the catalog snapshot is due for refresh at
// the given instant: never fetched, or at least catalog_max_age old.
func (s *Scheduler) CatalogStale(now time.Time) bool {
	snap := s.catalog.Snapshot()
	return !snap.Loaded() || now.Sub(snap.FetchedAt) >= s.config.Refresh.CatalogMaxAge
}

// StockStale reports whether the stock snapshot is due for refresh.
func (s *Scheduler) StockStale(now time.Time) bool {
	snap := s.stocks.Snapshot()
	return !snap.Loaded() || now.Sub(snap.FetchedAt) >= s.config.Refresh.StockMaxAge
}

// begin marks a store's refresh in-flight. It returns false when a refresh
// is already outstanding; the caller must skip, not queue.
func (s *Scheduler) begin(flag *bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if *flag {
		return false
	}
	*flag = true
	return true
}

func (s *Scheduler) end(flag *bool) {
	s.mu.Lock()
	*flag = false
	s.mu.Unlock()
}

// RefreshCatalog fetches and atomically replaces the catalog snapshot. It
// returns false when another catalog refresh was already in flight. On
// fetch failure the previous snapshot keeps serving reads and the next tick
// retries naturally.
func (s *Scheduler) RefreshCatalog(ctx context.Context) bool {
	if !s.begin(&s.catalogInFlight) {
		s.log.WithComponent("scheduler").Debug("catalog refresh already in flight")
		return false
	}
	defer s.end(&s.catalogInFlight)

	log := s.log.WithComponent("scheduler").WithFields(logger.Fields{"operation": "refresh_catalog"})
	s.appendRing("Updating item catalog")

	items, err := s.catalogFetcher.FetchCatalog(ctx)
	if err != nil {
		log.WithError(err).Warn("catalog fetch failed; keeping previous snapshot")
		s.appendRing(fmt.Sprintf("Catalog fetch failed: %v", err))
		return true
	}

	s.warnNameCollisions(items)

	s.catalog.Replace(models.CatalogSnapshot{
		Items:     items,
		FetchedAt: s.clock.Now(),
	})
	log.WithFields(logger.Fields{"items": len(items)}).Info("catalog snapshot replaced")
	s.appendRing("Item catalog updated")
	return true
}

// RefreshStock fetches, enriches and atomically replaces the stock snapshot.
// It returns false when another stock refresh was already in flight.
func (s *Scheduler) RefreshStock(ctx context.Context) bool {
	if !s.begin(&s.stockInFlight) {
		s.log.WithComponent("scheduler").Debug("stock refresh already in flight")
		return false
	}
	defer s.end(&s.stockInFlight)

	log := s.log.WithComponent("scheduler").WithFields(logger.Fields{"operation": "refresh_stock"})
	s.appendRing("Updating stock data")

	countries, err := s.stockFetcher.FetchStocks(ctx)
	if err != nil {
		log.WithError(err).Warn("stock fetch failed; keeping previous snapshot")
		s.appendRing(fmt.Sprintf("Stock fetch failed: %v", err))
		return true
	}

	degraded := s.enrich(countries)
	if degraded {
		log.Warn("stock enrichment degraded: item catalog not loaded, categories default to Other")
		s.appendRing("Stock enrichment degraded: item catalog not loaded")
	}

	s.stocks.Replace(models.StockSnapshot{
		Countries: countries,
		FetchedAt: s.clock.Now(),
		Degraded:  degraded,
	})
	log.WithFields(logger.Fields{"countries": len(countries)}).Info("stock snapshot replaced")
	s.appendRing("Stock data updated")
	return true
}

// enrich derives every entry's category from the current catalog snapshot.
// Without a loaded catalog each entry defaults to Other and the snapshot is
// flagged degraded.
func (s *Scheduler) enrich(countries map[string]models.CountryStock) bool {
	catalog := s.catalog.Snapshot()
	loaded := catalog.Loaded()

	for key, country := range countries {
		for i := range country.Entries {
			category := models.CategoryOther
			if loaded {
				if item, ok := catalog.Items[country.Entries[i].ItemID]; ok {
					category = item.Category
				}
			}
			country.Entries[i].Category = category
		}
		countries[key] = country
	}
	return !loaded
}

// warnNameCollisions flags catalog items whose hyphenated names shadow a
// country name, abbreviation or key. Classification precedence means such an
// item could never be queried on its own.
func (s *Scheduler) warnNameCollisions(items map[int]models.Item) {
	var collisions []string
	for _, item := range items {
		token := models.Hyphenate(item.Name)
		if _, ok := models.CountryByHyphenatedName(token); ok {
			collisions = append(collisions, item.Name)
			continue
		}
		if _, ok := models.CountryByAbbreviation(token); ok {
			collisions = append(collisions, item.Name)
			continue
		}
		if _, ok := models.CountryByKey(token); ok {
			collisions = append(collisions, item.Name)
		}
	}
	if len(collisions) == 0 {
		return
	}

	joined := strings.Join(collisions, ", ")
	s.log.WithComponent("scheduler").WithFields(logger.Fields{
		"items": joined,
	}).Warn("catalog item names collide with country tokens; country match wins")
	s.appendRing(fmt.Sprintf("Catalog name collision with country tokens: %s", joined))
}

func (s *Scheduler) appendRing(message string) {
	if s.ring != nil {
		s.ring.Append(message)
	}
}
