package format

import (
	"strconv"
	"strings"
)

// WithCommas renders n with thousands separators.
func WithCommas(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}

	var b strings.Builder
	lead := len(s) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(s[:lead])
	for i := lead; i < len(s); i += 3 {
		b.WriteByte(',')
		b.WriteString(s[i : i+3])
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

// Compact abbreviates magnitudes of 1000 and above with k/mil/bil suffixes,
// exact when the value divides evenly and at 3-decimal precision otherwise.
// Thousands that do not divide evenly fall back to the comma form.
func Compact(n int64) string {
	abs := n
	if abs < 0 {
		abs = -abs
	}

	const (
		thousand = int64(1_000)
		million  = int64(1_000_000)
		billion  = int64(1_000_000_000)
	)

	switch {
	case abs >= billion:
		if abs%billion == 0 {
			return WithCommas(n/billion) + "bil"
		}
		return strconv.FormatFloat(float64(n)/float64(billion), 'f', 3, 64) + "bil"
	case abs >= million:
		if abs%million == 0 {
			return strconv.FormatInt(n/million, 10) + "mil"
		}
		return strconv.FormatFloat(float64(n)/float64(million), 'f', 3, 64) + "mil"
	case abs >= thousand && abs%thousand == 0:
		return strconv.FormatInt(n/thousand, 10) + "k"
	}
	return WithCommas(n)
}

// Profit renders marketValue − cost as signed currency: "+$N" when the market
// value exceeds the cost, "-$N" when it falls short, "0" when equal.
func Profit(marketValue, cost int64) string {
	switch {
	case marketValue > cost:
		return "+$" + WithCommas(marketValue-cost)
	case marketValue < cost:
		return "-$" + WithCommas(cost-marketValue)
	}
	return "0"
}
