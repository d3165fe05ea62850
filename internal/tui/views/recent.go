package views

import (
	"sync"

	"github.com/rendis/placetap/internal/model"
)

const maxRecent = 8

// RecentEntry is one accepted record as shown in the progress view.
type RecentEntry struct {
	Name   string
	Rating string
}

// Feed keeps the last accepted records. The crawl goroutine pushes and
// the view reads, so every access goes through the mutex.
type Feed struct {
	mu      sync.Mutex
	entries []RecentEntry
	limit   int
}

func NewFeed(limit int) *Feed {
	if limit <= 0 {
		limit = maxRecent
	}
	return &Feed{limit: limit}
}

// Push records r as the newest entry.
func (f *Feed) Push(r model.Record) {
	f.mu.Lock()
	defer f.mu.Unlock()

	e := RecentEntry{Name: model.Str(r.Name), Rating: model.Str(r.Rating)}
	f.entries = append([]RecentEntry{e}, f.entries...)
	if len(f.entries) > f.limit {
		f.entries = f.entries[:f.limit]
	}
}

// Entries returns a copy, newest first.
func (f *Feed) Entries() []RecentEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]RecentEntry(nil), f.entries...)
}
