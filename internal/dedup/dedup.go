// Package dedup tracks seen article URLs so a story is processed at most once
// across repeated pipeline runs.
package dedup

import (
	"sync"
	"time"

	"espanews/internal/logger"
	"espanews/internal/storage"
)

// Record is one seen URL with its insertion timestamp.
type Record struct {
	URL     string    `json:"url"`
	AddedAt time.Time `json:"added_at"`
}

// Tracker is the URL deduplication store. Records are persisted write-through
// after every mutation and reloaded from disk on every access, so overlapping
// process invocations see each other's writes.
type Tracker struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

func New(path string) *Tracker {
	return &Tracker{path: path, now: time.Now}
}

func (t *Tracker) load() []Record {
	var records []Record
	if err := storage.ReadJSON(t.path, &records); err != nil {
		logger.Warn("dedup store read failed, treating as empty", "path", t.path, "error", err)
		return nil
	}
	return records
}

func (t *Tracker) save(records []Record) {
	if records == nil {
		records = []Record{}
	}
	if err := storage.WriteJSON(t.path, records); err != nil {
		logger.Error("dedup store write failed", "path", t.path, "error", err)
	}
}

// IsKnown reports whether the URL has already been recorded.
func (t *Tracker) IsKnown(url string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, r := range t.load() {
		if r.URL == url {
			return true
		}
	}
	return false
}

// Record adds the URL with the current timestamp. It returns true if the URL
// was newly recorded and false if it was already known. The duplicate check
// and the insert happen under one lock so recording the same URL twice within
// a batch cannot double-insert.
func (t *Tracker) Record(url string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	records := t.load()
	for _, r := range records {
		if r.URL == url {
			return false
		}
	}

	records = append(records, Record{URL: url, AddedAt: t.now().UTC()})
	t.save(records)
	return true
}

// RecordBatch records every not-yet-known URL in one pass and one write.
// It returns the number of URLs actually added.
func (t *Tracker) RecordBatch(urls []string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	records := t.load()
	known := make(map[string]struct{}, len(records))
	for _, r := range records {
		known[r.URL] = struct{}{}
	}

	added := 0
	now := t.now().UTC()
	for _, u := range urls {
		if _, dup := known[u]; dup {
			continue
		}
		records = append(records, Record{URL: u, AddedAt: now})
		known[u] = struct{}{}
		added++
	}

	if added > 0 {
		t.save(records)
	}
	return added
}

// Cleanup drops every record whose age is maxAge or older and returns how
// many were removed. It is expected to run before each ingestion cycle.
func (t *Tracker) Cleanup(maxAge time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	records := t.load()
	now := t.now()

	fresh := records[:0]
	for _, r := range records {
		if now.Sub(r.AddedAt) < maxAge {
			fresh = append(fresh, r)
		}
	}

	removed := len(records) - len(fresh)
	if removed > 0 {
		t.save(fresh)
	}
	return removed
}

// Len returns the current number of records.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.load())
}
