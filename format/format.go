// Package format converts resolved travel queries into structured, paginated
// result records. It only reads the catalog and stock stores.
package format

import (
	"time"

	"github.com/Mephiles/torn-travelbot/models"
	"github.com/Mephiles/torn-travelbot/store"
)

// Record is one formatted stock line.
type Record struct {
	Label     string
	Cost      int64
	Profit    string
	Quantity  int
	UpdatedAt time.Time
	Updated   string
	TimeAgo   string
}

// Page is one category page of a country listing.
type Page struct {
	Title   string
	Records []Record
}

// Pages is a country listing split into the four fixed category pages, in
// order Plushie, Flower, Drug, Other. Navigation clamps at both ends.
type Pages struct {
	CountryName string
	Updated     string
	TimeAgo     string

	pages []Page
	index int
}

// Count returns the number of pages, always four for a country listing.
func (p *Pages) Count() int { return len(p.pages) }

// Index returns the zero-based current page index.
func (p *Pages) Index() int { return p.index }

// Current returns the current page.
func (p *Pages) Current() Page { return p.pages[p.index] }

// Next advances one page, staying on the last page when already there.
func (p *Pages) Next() Page {
	if p.index < len(p.pages)-1 {
		p.index++
	}
	return p.pages[p.index]
}

// Prev moves back one page, staying on the first page when already there.
func (p *Pages) Prev() Page {
	if p.index > 0 {
		p.index--
	}
	return p.pages[p.index]
}

// HasNext reports whether a later page exists.
func (p *Pages) HasNext() bool { return p.index < len(p.pages)-1 }

// HasPrev reports whether an earlier page exists.
func (p *Pages) HasPrev() bool { return p.index > 0 }

var pageOrder = []models.ItemCategory{
	models.CategoryPlushie,
	models.CategoryFlower,
	models.CategoryDrug,
	models.CategoryOther,
}

func pageTitle(category models.ItemCategory) string {
	if category == models.CategoryOther {
		return string(category)
	}
	return string(category) + "s"
}

// Formatter builds result records from the current snapshots.
type Formatter struct {
	catalog *store.Catalog
	stocks  *store.Stock
	now     func() time.Time
}

// New creates a formatter reading the given stores.
func New(catalog *store.Catalog, stocks *store.Stock) *Formatter {
	return &Formatter{
		catalog: catalog,
		stocks:  stocks,
		now:     time.Now,
	}
}

// SetNow overrides the clock, for tests.
func (f *Formatter) SetNow(now func() time.Time) {
	f.now = now
}

func (f *Formatter) record(label string, entry models.StockEntry, catalog models.CatalogSnapshot, updatedAt time.Time) Record {
	var marketValue int64
	if item, ok := catalog.Items[entry.ItemID]; ok {
		marketValue = item.MarketValue
	}
	return Record{
		Label:     label,
		Cost:      entry.Cost,
		Profit:    Profit(marketValue, entry.Cost),
		Quantity:  entry.Quantity,
		UpdatedAt: updatedAt,
		Updated:   TornTimeLabel(updatedAt),
		TimeAgo:   TimeAgo(updatedAt, f.now()),
	}
}

// CountryItem returns the record for one item in one country. The second
// return is false when the item is not stocked there; the caller renders the
// explicit "not available" notice instead.
func (f *Formatter) CountryItem(countryKey, itemName string) (Record, bool) {
	snap := f.stocks.Snapshot()
	catalog := f.catalog.Snapshot()

	country, ok := snap.Countries[countryKey]
	if !ok {
		return Record{}, false
	}
	for _, entry := range country.Entries {
		if entry.Name != itemName {
			continue
		}
		return f.record(entry.Name, entry, catalog, country.UpdatedAt), true
	}
	return Record{}, false
}

// Item returns one record per country stocking the named item, labeled with
// the country name, in the fixed country table order.
func (f *Formatter) Item(itemName string) []Record {
	snap := f.stocks.Snapshot()
	catalog := f.catalog.Snapshot()

	var records []Record
	for _, country := range models.Countries {
		stock, ok := snap.Countries[country.Key]
		if !ok {
			continue
		}
		for _, entry := range stock.Entries {
			if entry.Name != itemName {
				continue
			}
			records = append(records, f.record(country.Name, entry, catalog, stock.UpdatedAt))
		}
	}
	return records
}

// Country returns the four-page category listing for one country. The second
// return is false when the country is absent from the current snapshot.
func (f *Formatter) Country(countryKey string) (*Pages, bool) {
	snap := f.stocks.Snapshot()
	catalog := f.catalog.Snapshot()

	stock, ok := snap.Countries[countryKey]
	if !ok {
		return nil, false
	}

	name := countryKey
	if country, ok := models.CountryByKey(countryKey); ok {
		name = country.Name
	}

	pages := make([]Page, 0, len(pageOrder))
	for _, category := range pageOrder {
		page := Page{Title: pageTitle(category)}
		for _, entry := range stock.Entries {
			if entry.Category != category {
				continue
			}
			page.Records = append(page.Records, f.record(entry.Name, entry, catalog, stock.UpdatedAt))
		}
		pages = append(pages, page)
	}

	return &Pages{
		CountryName: name,
		Updated:     TornTimeLabel(stock.UpdatedAt),
		TimeAgo:     TimeAgo(stock.UpdatedAt, f.now()),
		pages:       pages,
	}, true
}
