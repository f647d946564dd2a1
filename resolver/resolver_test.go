package resolver

import (
	"testing"
	"time"

	"github.com/Mephiles/torn-travelbot/models"
	"github.com/Mephiles/torn-travelbot/store"
)

func seededCatalog(items map[int]models.Item) *store.Catalog {
	c := store.NewCatalog()
	c.Replace(models.CatalogSnapshot{Items: items, FetchedAt: time.Unix(1000, 0)})
	return c
}

func TestNormalize(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Mexico", "mexico"},
		{"uk,", "uk"},
		{"cayman:", "cayman"},
		{"South-Africa", "south-africa"},
	}
	for _, c := range cases {
		if got := Normalize(c.in); got != c.want {
			t.Errorf("Normalize(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestResolveCountryForms(t *testing.T) {
	r := New(seededCatalog(map[int]models.Item{
		1: {ID: 1, Name: "Xanax", MarketValue: 1000, Category: models.CategoryDrug},
	}))

	cases := []struct {
		primary string
		wantKey string
	}{
		{"mexico", "mex"},          // full name
		{"cayman-islands", "cay"},  // hyphenated full name
		{"uk", "uni"},              // abbreviation
		{"sou", "sou"},             // 3-letter key
	}
	for _, c := range cases {
		res := r.Resolve(c.primary, "")
		if res.Kind != CountryOnly || res.CountryKey != c.wantKey {
			t.Errorf("Resolve(%q) = %+v, want country %q", c.primary, res, c.wantKey)
		}
	}
}

func TestResolveCountryAndItem(t *testing.T) {
	r := New(seededCatalog(map[int]models.Item{
		1: {ID: 1, Name: "Xanax", MarketValue: 1000, Category: models.CategoryDrug},
		2: {ID: 2, Name: "Teddy Bear Plushie", MarketValue: 200, Category: models.CategoryPlushie},
	}))

	res := r.Resolve("mexico", "xanax")
	if res.Kind != CountryAndItem || res.CountryKey != "mex" || res.ItemName != "Xanax" {
		t.Errorf("unexpected result: %+v", res)
	}

	res = r.Resolve("uk", "teddy-bear-plushie")
	if res.Kind != CountryAndItem || res.CountryKey != "uni" || res.ItemName != "Teddy Bear Plushie" {
		t.Errorf("unexpected result: %+v", res)
	}

	// A secondary token that matches nothing leaves the query country-only.
	res = r.Resolve("mexico", "nonsense")
	if res.Kind != CountryOnly || res.CountryKey != "mex" {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestResolveItemOnly(t *testing.T) {
	r := New(seededCatalog(map[int]models.Item{
		1: {ID: 1, Name: "Xanax", MarketValue: 1000, Category: models.CategoryDrug},
	}))

	res := r.Resolve("xanax", "")
	if res.Kind != ItemOnly || res.ItemName != "Xanax" || res.CountryKey != "" {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestResolveNotFound(t *testing.T) {
	r := New(seededCatalog(map[int]models.Item{
		1: {ID: 1, Name: "Xanax", MarketValue: 1000, Category: models.CategoryDrug},
	}))

	res := r.Resolve("atlantis", "")
	if res.Kind != NotFound {
		t.Errorf("unexpected result: %+v", res)
	}
}

// A token that is both a country abbreviation and an item name resolves to
// the country: classification precedence, not catalog order, breaks the tie.
func TestResolveCountryBeatsItem(t *testing.T) {
	r := New(seededCatalog(map[int]models.Item{
		1: {ID: 1, Name: "UK", MarketValue: 5, Category: models.CategoryOther},
	}))

	res := r.Resolve("uk", "")
	if res.Kind != CountryOnly || res.CountryKey != "uni" {
		t.Errorf("country should win the collision: %+v", res)
	}
}

func TestResolveEmptyCatalog(t *testing.T) {
	r := New(store.NewCatalog())

	if res := r.Resolve("xanax", ""); res.Kind != NotFound {
		t.Errorf("unexpected result: %+v", res)
	}
	// Countries are static, they resolve without a catalog.
	if res := r.Resolve("mexico", ""); res.Kind != CountryOnly {
		t.Errorf("unexpected result: %+v", res)
	}
}
