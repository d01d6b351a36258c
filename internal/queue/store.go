package queue

import (
	"sync"
	"time"

	"github.com/ytget/fetchmux/internal/model"
)

// Ledger defaults
const (
	DefaultMaxCompleted    = 100
	DefaultCompletedMaxAge = 24 * time.Hour
)

// Ledger is the insertion-ordered, bounded store of terminal jobs. Once the
// cap is exceeded the oldest entry is evicted first. Entries are never
// mutated after insertion, only evicted.
type Ledger struct {
	mu     sync.Mutex
	cap    int
	maxAge time.Duration
	order  []string
	jobs   map[string]*model.Job
}

// NewLedger creates a ledger. Non-positive cap or age fall back to defaults.
func NewLedger(cap int, maxAge time.Duration) *Ledger {
	if cap <= 0 {
		cap = DefaultMaxCompleted
	}
	if maxAge <= 0 {
		maxAge = DefaultCompletedMaxAge
	}
	return &Ledger{
		cap:    cap,
		maxAge: maxAge,
		jobs:   make(map[string]*model.Job),
	}
}

// Add inserts a terminal job, evicting the oldest entries beyond the cap
func (l *Ledger) Add(job *model.Job) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.jobs[job.ID]; ok {
		return
	}
	l.jobs[job.ID] = job
	l.order = append(l.order, job.ID)

	for len(l.order) > l.cap {
		oldest := l.order[0]
		l.order = l.order[1:]
		delete(l.jobs, oldest)
	}
}

// Get returns a snapshot of a ledger entry
func (l *Ledger) Get(id string) (model.Job, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	job, ok := l.jobs[id]
	if !ok {
		return model.Job{}, false
	}
	return job.Snapshot(), true
}

// TakeForRetry removes and returns an entry, but only when its terminal
// status permits a retry
func (l *Ledger) TakeForRetry(id string) (model.Job, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	job, ok := l.jobs[id]
	if !ok || !job.Status.Retryable() {
		return model.Job{}, false
	}

	delete(l.jobs, id)
	for i, jid := range l.order {
		if jid == id {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
	return job.Snapshot(), true
}

// List returns snapshots of all entries in insertion order
func (l *Ledger) List() []model.Job {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]model.Job, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, l.jobs[id].Snapshot())
	}
	return out
}

// Len returns the number of ledger entries
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.order)
}

// Sweep removes entries whose terminal timestamp is older than the configured
// age and returns how many were removed. The caller schedules sweeps no more
// often than hourly to bound timer overhead.
func (l *Ledger) Sweep(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := now.Add(-l.maxAge)
	kept := l.order[:0]
	removed := 0
	for _, id := range l.order {
		if l.jobs[id].FinishedAt.Before(cutoff) {
			delete(l.jobs, id)
			removed++
			continue
		}
		kept = append(kept, id)
	}
	l.order = kept
	return removed
}
