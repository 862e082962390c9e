// Package scheduler spreads approved posts over a publication window and
// fires them one by one. Cycle plans are replaced wholesale on every replan;
// manually deferred posts live outside the plan and survive it.
package scheduler

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"espanews/internal/logger"
	"espanews/internal/model"
)

const planPrefix = "plan/"

// Job is one pending publication.
type Job struct {
	ID     string
	Post   model.Post
	FireAt time.Time
}

type entry struct {
	job   Job
	timer *time.Timer
}

// Scheduler holds pending jobs and delivers them on a channel when due.
type Scheduler struct {
	mu      sync.Mutex
	entries map[string]*entry
	fired   chan Job
	seq     int
	stopped bool

	now func() time.Time
}

func New() *Scheduler {
	return &Scheduler{
		entries: make(map[string]*entry),
		fired:   make(chan Job, 16),
		now:     time.Now,
	}
}

// Fired returns the channel due jobs are delivered on. The consumer owns
// the actual publish; the scheduler only decides when.
func (s *Scheduler) Fired() <-chan Job {
	return s.fired
}

// Plan replaces the current cycle plan with one job per post, spread evenly
// across the window. With n posts the interval is window/(n+2): the first
// post fires one interval in, the last one interval before the window ends,
// so consecutive cycles don't butt up against each other. Replanning with
// the same posts yields the same schedule; manual jobs are untouched.
func (s *Scheduler) Plan(posts []model.Post, window time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeByPrefixLocked(planPrefix)
	if len(posts) == 0 {
		return
	}

	interval := window / time.Duration(len(posts)+2)
	base := s.now()
	for i, post := range posts {
		fireAt := base.Add(interval * time.Duration(i+1))
		s.addLocked(fmt.Sprintf("%s%d", planPrefix, i), post, fireAt)
	}
	logger.Info("publication plan set",
		"posts", len(posts),
		"window", window.String(),
		"interval", interval.String(),
	)
}

// Defer schedules a single post outside the cycle plan and returns its job
// id. Used for admin-chosen delays in manual mode.
func (s *Scheduler) Defer(post model.Post, delay time.Duration) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	id := fmt.Sprintf("manual/%d", s.seq)
	s.addLocked(id, post, s.now().Add(delay))
	return id
}

// Cancel removes a pending job. Returns false if the job already fired or
// never existed.
func (s *Scheduler) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return false
	}
	if e.timer != nil {
		e.timer.Stop()
	}
	delete(s.entries, id)
	return true
}

// Jobs returns a snapshot of pending jobs ordered by fire time.
func (s *Scheduler) Jobs() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs := make([]Job, 0, len(s.entries))
	for _, e := range s.entries {
		jobs = append(jobs, e.job)
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].FireAt.Before(jobs[j].FireAt)
	})
	return jobs
}

// Stop cancels every pending job. Nothing fires after Stop returns.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	for id, e := range s.entries {
		if e.timer != nil {
			e.timer.Stop()
		}
		delete(s.entries, id)
	}
}

func (s *Scheduler) addLocked(id string, post model.Post, fireAt time.Time) {
	if old, ok := s.entries[id]; ok && old.timer != nil {
		old.timer.Stop()
	}

	e := &entry{job: Job{ID: id, Post: post, FireAt: fireAt}}
	delay := fireAt.Sub(s.now())
	if delay < 0 {
		delay = 0
	}
	e.timer = time.AfterFunc(delay, func() { s.deliver(id) })
	s.entries[id] = e
}

func (s *Scheduler) removeByPrefixLocked(prefix string) {
	for id, e := range s.entries {
		if !strings.HasPrefix(id, prefix) {
			continue
		}
		if e.timer != nil {
			e.timer.Stop()
		}
		delete(s.entries, id)
	}
}

func (s *Scheduler) deliver(id string) {
	s.mu.Lock()
	e, ok := s.entries[id]
	if ok {
		delete(s.entries, id)
	}
	stopped := s.stopped
	s.mu.Unlock()

	if !ok || stopped {
		return
	}

	select {
	case s.fired <- e.job:
	default:
		// The consumer loop is gone or wedged; dropping beats blocking a
		// timer goroutine forever. The item stays in the dedup store and
		// will not be re-picked, so log it loudly.
		logger.Error("fired job dropped, consumer not reading", "id", id)
	}
}
