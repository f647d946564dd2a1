// Package resolver classifies free-text travel query tokens against the
// static country table and the dynamic item catalog.
package resolver

import (
	"strings"

	"github.com/Mephiles/torn-travelbot/models"
	"github.com/Mephiles/torn-travelbot/store"
)

// Kind tags a resolution result.
type Kind int

const (
	NotFound Kind = iota
	CountryOnly
	CountryAndItem
	ItemOnly
)

func (k Kind) String() string {
	switch k {
	case CountryOnly:
		return "country_only"
	case CountryAndItem:
		return "country_and_item"
	case ItemOnly:
		return "item_only"
	default:
		return "not_found"
	}
}

// Result is a resolved (country?, item?) selection. CountryKey and
// CountryName are set for country results; ItemName carries the catalog's
// canonical item name for item results.
type Result struct {
	Kind        Kind
	CountryKey  string
	CountryName string
	ItemName    string
}

var tokenStripper = strings.NewReplacer(",", "", ":", "")

// Normalize lowercases a raw token and strips the separator characters users
// habitually attach (comma, colon).
func Normalize(token string) string {
	return tokenStripper.Replace(strings.ToLower(token))
}

// Resolver matches tokens against countries and the current catalog.
type Resolver struct {
	catalog *store.Catalog
}

// New creates a resolver reading the given catalog store.
func New(catalog *store.Catalog) *Resolver {
	return &Resolver{catalog: catalog}
}

// itemByHyphenatedName returns the canonical name of the catalog item whose
// hyphenated name equals the token.
func (r *Resolver) itemByHyphenatedName(token string) (string, bool) {
	if token == "" {
		return "", false
	}
	for _, item := range r.catalog.Snapshot().Items {
		if models.Hyphenate(item.Name) == token {
			return item.Name, true
		}
	}
	return "", false
}

// Resolve classifies a normalized primary token and optional secondary token.
// Precedence: country full name, country abbreviation, country key, item
// name; the first match wins. With a country matched, the secondary token is
// independently matched against item names; a miss leaves the query
// country-only rather than failing.
func (r *Resolver) Resolve(primary, secondary string) Result {
	country, ok := models.CountryByHyphenatedName(primary)
	if !ok {
		country, ok = models.CountryByAbbreviation(primary)
	}
	if !ok {
		country, ok = models.CountryByKey(primary)
	}
	if ok {
		if itemName, found := r.itemByHyphenatedName(secondary); found {
			return Result{
				Kind:        CountryAndItem,
				CountryKey:  country.Key,
				CountryName: country.Name,
				ItemName:    itemName,
			}
		}
		return Result{
			Kind:        CountryOnly,
			CountryKey:  country.Key,
			CountryName: country.Name,
		}
	}

	if itemName, found := r.itemByHyphenatedName(primary); found {
		return Result{Kind: ItemOnly, ItemName: itemName}
	}

	return Result{Kind: NotFound}
}
