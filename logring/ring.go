// Package logring keeps the bot's in-memory activity log: an append-only,
// timestamped sequence read through a bounded suffix slice. Growth is
// unbounded, acceptable for the process lifetime.
package logring

import (
	"strconv"
	"sync"
	"time"
)

// Entry is one logged activity line.
type Entry struct {
	Time    time.Time
	Stamp   string
	Message string
}

// Ring is safe for concurrent append and read. Appends preserve order.
type Ring struct {
	mu           sync.Mutex
	entries      []Entry
	defaultCount int
	stamp        func(time.Time) string
	now          func() time.Time
}

// New creates a ring. defaultCount bounds Tail reads when the caller does not
// ask for a specific count; stamp renders the entry timestamp.
func New(defaultCount int, stamp func(time.Time) string) *Ring {
	if defaultCount <= 0 {
		defaultCount = 10
	}
	if stamp == nil {
		stamp = func(t time.Time) string { return t.Format(time.RFC3339) }
	}
	return &Ring{
		defaultCount: defaultCount,
		stamp:        stamp,
		now:          time.Now,
	}
}

// SetNow overrides the clock, for tests.
func (r *Ring) SetNow(now func() time.Time) {
	r.mu.Lock()
	r.now = now
	r.mu.Unlock()
}

// Append adds a timestamped entry.
func (r *Ring) Append(message string) {
	r.mu.Lock()
	t := r.now()
	r.entries = append(r.entries, Entry{Time: t, Stamp: r.stamp(t), Message: message})
	r.mu.Unlock()
}

// Tail returns the last n entries in original order. n is clamped to the
// available count; non-positive n falls back to the default count.
func (r *Ring) Tail(n int) []Entry {
	if n <= 0 {
		n = r.defaultCount
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if n > len(r.entries) {
		n = len(r.entries)
	}
	out := make([]Entry, n)
	copy(out, r.entries[len(r.entries)-n:])
	return out
}

// TailArg parses a user-supplied count and returns the matching tail along
// with the count actually used. Non-numeric or non-positive input falls back
// to the default count.
func (r *Ring) TailArg(arg string) ([]Entry, int) {
	n := r.defaultCount
	if arg != "" {
		if parsed, err := strconv.Atoi(arg); err == nil && parsed > 0 {
			n = parsed
		}
	}
	entries := r.Tail(n)
	return entries, len(entries)
}

// Len returns the number of entries appended so far.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
