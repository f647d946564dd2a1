package models

import (
	"time"
)

// StockEntry is one item available in a country, enriched with the category
// derived from the catalog at refresh time.
type StockEntry struct {
	ItemID   int          `json:"id"`
	Name     string       `json:"name"`
	Cost     int64        `json:"cost"`
	Quantity int          `json:"quantity"`
	Category ItemCategory `json:"item_type"`
}

// CountryStock is the stock listing of a single country.
type CountryStock struct {
	UpdatedAt time.Time    `json:"update"`
	Entries   []StockEntry `json:"stocks"`
}

// StockSnapshot maps country keys to their stock listings. The zero value is
// the explicit "not yet loaded" state.
type StockSnapshot struct {
	Countries map[string]CountryStock `json:"countries"`
	FetchedAt time.Time               `json:"fetched_at"`
	// Degraded marks a snapshot enriched without a loaded catalog; every
	// entry's category defaulted to Other.
	Degraded bool `json:"degraded,omitempty"`
}

// Loaded reports whether the snapshot holds a fetched stock dataset.
func (s StockSnapshot) Loaded() bool {
	return s.Countries != nil && !s.FetchedAt.IsZero()
}

// YataStockItem is the wire format of one stock line in the YATA export.
type YataStockItem struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Cost     int64  `json:"cost"`
	Quantity int    `json:"quantity"`
}

// YataCountry is the wire format of one country block in the YATA export.
type YataCountry struct {
	Update int64           `json:"update"`
	Stocks []YataStockItem `json:"stocks"`
}

// YataExportResponse is the YATA travel export payload.
type YataExportResponse struct {
	Stocks map[string]YataCountry `json:"stocks"`
}
