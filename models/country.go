package models

import "strings"

// Country is one destination in the static travel reference list.
type Country struct {
	Name         string
	Abbreviation string
	Key          string
}

// Countries is the fixed travel destination table. Never mutated at runtime.
var Countries = []Country{
	{Name: "Mexico", Key: "mex"},
	{Name: "Cayman Islands", Abbreviation: "ci", Key: "cay"},
	{Name: "Canada", Key: "can"},
	{Name: "Hawaii", Key: "haw"},
	{Name: "United Kingdom", Abbreviation: "uk", Key: "uni"},
	{Name: "Argentina", Key: "arg"},
	{Name: "Switzerland", Key: "swi"},
	{Name: "Japan", Key: "jap"},
	{Name: "China", Key: "chi"},
	{Name: "UAE", Key: "uae"},
	{Name: "South Africa", Abbreviation: "sa", Key: "sou"},
}

// Hyphenate lowercases a name and replaces spaces with hyphens, the form
// users type multi-word names in.
func Hyphenate(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "-")
}

// CountryByKey returns the country with the given 3-letter key.
func CountryByKey(key string) (Country, bool) {
	for _, c := range Countries {
		if c.Key == key {
			return c, true
		}
	}
	return Country{}, false
}

// CountryByAbbreviation returns the country with the given abbreviation,
// where one is defined.
func CountryByAbbreviation(abbr string) (Country, bool) {
	if abbr == "" {
		return Country{}, false
	}
	for _, c := range Countries {
		if c.Abbreviation == abbr {
			return c, true
		}
	}
	return Country{}, false
}

// CountryByHyphenatedName returns the country whose hyphenated full name
// matches the token.
func CountryByHyphenatedName(token string) (Country, bool) {
	for _, c := range Countries {
		if Hyphenate(c.Name) == token {
			return c, true
		}
	}
	return Country{}, false
}
