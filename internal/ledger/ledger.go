// Package ledger keeps the history of published posts and detects
// near-duplicate content that slipped past URL-level deduplication, e.g. the
// same story picked up from a different source URL.
package ledger

import (
	"sync"
	"time"

	"espanews/internal/logger"
	"espanews/internal/storage"
)

// Record is one published post.
type Record struct {
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"published_at"`
}

// Verdict is the result of a duplicate check.
type Verdict struct {
	IsDuplicate bool
	Match       *Record
	Score       float64
	MatchedBy   string // "title" or "body", whichever scored higher
}

// Ledger is the publication history store. Entries older than the retention
// window are purged on every access; all mutations are written through to
// disk immediately.
type Ledger struct {
	path string
	ttl  time.Duration
	mu   sync.Mutex
	now  func() time.Time
}

func New(path string, ttl time.Duration) *Ledger {
	return &Ledger{path: path, ttl: ttl, now: time.Now}
}

func (l *Ledger) load() []Record {
	var records []Record
	if err := storage.ReadJSON(l.path, &records); err != nil {
		logger.Warn("ledger read failed, treating as empty", "path", l.path, "error", err)
		return nil
	}
	return l.dropExpired(records)
}

func (l *Ledger) dropExpired(records []Record) []Record {
	cutoff := l.now().Add(-l.ttl)
	fresh := records[:0]
	for _, r := range records {
		if r.PublishedAt.After(cutoff) {
			fresh = append(fresh, r)
		}
	}
	return fresh
}

// CheckDuplicate compares title and body against every retained record.
// Title and body similarities are computed independently and the maximum of
// the two decides the verdict. Every record is scanned; retained volume is
// bounded by the TTL, so the O(n) pass is fine and the best match wins.
func (l *Ledger) CheckDuplicate(title, body string, threshold float64) Verdict {
	l.mu.Lock()
	defer l.mu.Unlock()

	best := Verdict{}
	for _, rec := range l.load() {
		titleSim := Similarity(title, rec.Title)
		bodySim := Similarity(body, rec.Body)

		score := titleSim
		matchedBy := "title"
		if bodySim > titleSim {
			score = bodySim
			matchedBy = "body"
		}

		if score > best.Score {
			rec := rec
			best = Verdict{Match: &rec, Score: score, MatchedBy: matchedBy}
		}
	}

	if best.Score >= threshold {
		best.IsDuplicate = true
		return best
	}
	return Verdict{Score: best.Score}
}

// Record appends a published post after purging expired entries.
func (l *Ledger) Record(title, body, url string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	records := l.load()
	records = append(records, Record{
		Title:       title,
		Body:        body,
		URL:         url,
		PublishedAt: l.now().UTC(),
	})
	return storage.WriteJSON(l.path, records)
}

// Len returns the number of retained records.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.load())
}
