package format

import (
	"fmt"
	"time"
)

type ageBand struct {
	limit  int64 // upper bound in seconds, exclusive
	unit   string
	div    int64
	past   string // fixed label bands have div == 0
	future string
}

var ageBands = []ageBand{
	{limit: 60, unit: "sec", div: 1},
	{limit: 120, past: "1min ago", future: "1min from now"},
	{limit: 3_600, unit: "min", div: 60},
	{limit: 7_200, past: "1h ago", future: "1h from now"},
	{limit: 86_400, unit: "h", div: 3_600},
	{limit: 172_800, past: "Yesterday", future: "Tomorrow"},
	{limit: 604_800, unit: "d", div: 86_400},
	{limit: 1_209_600, past: "Last week", future: "Next week"},
	{limit: 2_419_200, unit: "w", div: 604_800},
	{limit: 4_838_400, past: "Last month", future: "Next month"},
	{limit: 29_030_400, unit: "mon", div: 2_419_200},
	{limit: 58_060_800, past: "Last year", future: "Next year"},
	{limit: 2_903_040_000, unit: "y", div: 29_030_400},
	{limit: 5_806_080_000, past: "Last century", future: "Next century"},
	{limit: 58_060_800_000, unit: "cen", div: 2_903_040_000},
}

// TimeAgo renders the distance between t and now as a relative label.
func TimeAgo(t, now time.Time) string {
	seconds := int64(now.Sub(t) / time.Second)
	if seconds == 0 {
		return "Just now"
	}

	token := "ago"
	future := false
	if seconds < 0 {
		seconds = -seconds
		token = "from now"
		future = true
	}

	for _, band := range ageBands {
		if seconds >= band.limit {
			continue
		}
		if band.div == 0 {
			if future {
				return band.future
			}
			return band.past
		}
		return fmt.Sprintf("%d%s %s", seconds/band.div, band.unit, token)
	}
	return t.Format(time.RFC3339)
}
