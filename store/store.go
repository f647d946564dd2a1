// Package store holds the two refreshed datasets. Each store has exactly one
// writer (the refresh scheduler) and many readers; a reader always observes
// either the previous full snapshot or the new one, never a partial update.
package store

import (
	"sync"

	"github.com/Mephiles/torn-travelbot/models"
)

// Catalog holds the latest item catalog snapshot.
type Catalog struct {
	mu   sync.RWMutex
	snap models.CatalogSnapshot
}

// NewCatalog returns an empty catalog store in the "not yet loaded" state.
func NewCatalog() *Catalog {
	return &Catalog{}
}

// Snapshot returns the current catalog snapshot. The zero value means no
// catalog has been fetched yet.
func (c *Catalog) Snapshot() models.CatalogSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

// Replace swaps in a new snapshot wholesale.
func (c *Catalog) Replace(snap models.CatalogSnapshot) {
	c.mu.Lock()
	c.snap = snap
	c.mu.Unlock()
}

// Stock holds the latest per-country stock snapshot.
type Stock struct {
	mu   sync.RWMutex
	snap models.StockSnapshot
}

// NewStock returns an empty stock store in the "not yet loaded" state.
func NewStock() *Stock {
	return &Stock{}
}

// Snapshot returns the current stock snapshot.
func (s *Stock) Snapshot() models.StockSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Replace swaps in a new snapshot wholesale.
func (s *Stock) Replace(snap models.StockSnapshot) {
	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()
}
