package models

import (
	"time"
)

// ItemCategory classifies catalog items for stock grouping.
type ItemCategory string

const (
	CategoryPlushie ItemCategory = "Plushie"
	CategoryFlower  ItemCategory = "Flower"
	CategoryDrug    ItemCategory = "Drug"
	CategoryOther   ItemCategory = "Other"
)

// CategoryFromType maps a Torn item type string onto the category used for
// stock page grouping. Anything outside the three tracked types is Other.
func CategoryFromType(itemType string) ItemCategory {
	switch ItemCategory(itemType) {
	case CategoryPlushie, CategoryFlower, CategoryDrug:
		return ItemCategory(itemType)
	default:
		return CategoryOther
	}
}

// Item is one catalog entry. Immutable per fetch; the whole catalog is
// replaced wholesale on refresh.
type Item struct {
	ID          int          `json:"id"`
	Name        string       `json:"name"`
	MarketValue int64        `json:"market_value"`
	Category    ItemCategory `json:"category"`
}

// CatalogSnapshot is the item catalog at a point in time. The zero value is
// the explicit "not yet loaded" state.
type CatalogSnapshot struct {
	Items     map[int]Item `json:"items"`
	FetchedAt time.Time    `json:"fetched_at"`
}

// Loaded reports whether the snapshot holds a fetched catalog.
func (s CatalogSnapshot) Loaded() bool {
	return s.Items != nil && !s.FetchedAt.IsZero()
}

// TornItem is the wire format of a single item in the Torn items payload.
type TornItem struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	MarketValue int64  `json:"market_value"`
}

// TornError is the error envelope Torn returns instead of data, for example
// on an invalid API key.
type TornError struct {
	Code    int    `json:"code"`
	Message string `json:"error"`
}

// TornItemsResponse is the Torn items selection payload. Item ids arrive as
// stringified map keys.
type TornItemsResponse struct {
	Items map[string]TornItem `json:"items"`
	Error *TornError          `json:"error"`
}
