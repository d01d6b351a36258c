package queue

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/ytget/fetchmux/internal/events"
	"github.com/ytget/fetchmux/internal/model"
)

// Concurrency and scheduling defaults
const (
	DefaultMaxConcurrent = 2
	MinConcurrent        = 1
	MaxConcurrent        = 10
	DefaultCooldown      = 500 * time.Millisecond

	// MaxPathCollisions bounds the numbered-suffix probing before switching
	// to the guaranteed-unique timestamp scheme.
	MaxPathCollisions = 100

	JobIDPrefix   = "job-"
	SweepSchedule = "@hourly"
)

// Config carries the manager's tunables
type Config struct {
	MaxConcurrent   int
	Cooldown        time.Duration
	OutputDir       string
	MaxCompleted    int
	CompletedMaxAge time.Duration
}

// Manager is the admission-control core: it owns the live job map and the
// queue, starts at most MaxConcurrent transcodes at a time with a cooldown
// between consecutive dequeues, and moves terminal jobs into the ledger.
// One Manager instance is constructed at process start and passed by handle
// to all callers.
type Manager struct {
	mu            sync.Mutex
	jobs          map[string]*model.Job // live: queued + downloading
	queue         []string              // queued job ids in FIFO order
	completed     *Ledger
	activeCount   int
	maxConcurrent int
	cooldown      time.Duration
	outputDir     string

	// dequeueActive guards against two dequeue loops running at once
	dequeueActive bool

	runner  Runner
	hub     *events.Hub
	log     *zap.Logger
	sweeper *cron.Cron
}

// NewManager creates a queue manager. A nil logger disables logging.
func NewManager(cfg Config, runner Runner, hub *events.Hub, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent < MinConcurrent {
		maxConcurrent = DefaultMaxConcurrent
	}
	if maxConcurrent > MaxConcurrent {
		maxConcurrent = MaxConcurrent
	}
	cooldown := cfg.Cooldown
	if cooldown < 0 {
		cooldown = DefaultCooldown
	}

	return &Manager{
		jobs:          make(map[string]*model.Job),
		completed:     NewLedger(cfg.MaxCompleted, cfg.CompletedMaxAge),
		maxConcurrent: maxConcurrent,
		cooldown:      cooldown,
		outputDir:     cfg.OutputDir,
		runner:        runner,
		hub:           hub,
		log:           log,
	}
}

// Enqueue admits a resolved request and returns the new job id. It never
// fails for a well-formed resolved request.
func (m *Manager) Enqueue(req model.ResolvedRequest) string {
	job := &model.Job{
		ID:        generateJobID(),
		Status:    model.JobStatusQueued,
		Request:   req,
		UpdatedAt: time.Now(),
		Progress:  model.Progress{ETASec: -1},
	}

	m.mu.Lock()
	m.jobs[job.ID] = job
	m.queue = append(m.queue, job.ID)
	m.mu.Unlock()

	m.log.Info("job enqueued",
		zap.String("job_id", job.ID),
		zap.String("kind", string(req.Kind)),
		zap.String("title", req.Title))

	m.emitQueuePositions()
	m.dequeue()
	return job.ID
}

// dequeue starts queued jobs while concurrency slots are free. The loop is
// protected by a re-entrancy guard; it launches each job asynchronously and
// never blocks on a running process.
func (m *Manager) dequeue() {
	m.mu.Lock()
	if m.dequeueActive {
		m.mu.Unlock()
		return
	}
	m.dequeueActive = true

	var started []string
	for len(m.queue) > 0 && m.activeCount < m.maxConcurrent {
		id := m.queue[0]
		m.queue = m.queue[1:]

		job, ok := m.jobs[id]
		if !ok {
			// Not fatal to the loop: log and move on.
			m.log.Warn("queued job record missing, skipping", zap.String("job_id", id))
			continue
		}
		m.startLocked(job)
		started = append(started, id)
	}
	m.dequeueActive = false
	m.mu.Unlock()

	if len(started) > 0 {
		m.emitQueuePositions()
		for _, id := range started {
			m.hub.Publish(events.Event{Type: events.TypeStart, JobID: id})
		}
	}
}

// startLocked transitions a job to downloading and hands it to the runner.
// Caller holds m.mu.
func (m *Manager) startLocked(job *model.Job) {
	m.resolveOutputPathLocked(job)
	m.activeCount++
	job.Status = model.JobStatusDownloading
	job.StartedAt = time.Now()
	job.UpdatedAt = job.StartedAt

	m.log.Info("job started",
		zap.String("job_id", job.ID),
		zap.String("output", job.OutputPath),
		zap.Int("active", m.activeCount))

	go m.runJob(job)
}

// runJob drives one runner invocation and settles the job on return
func (m *Manager) runJob(job *model.Job) {
	attach := func(h model.ProcessHandle) {
		m.mu.Lock()
		if _, live := m.jobs[job.ID]; !live {
			// Cancelled between dequeue and spawn: the kill already ran
			// against a nil handle, so finish the process off here.
			m.mu.Unlock()
			_ = h.Kill()
			return
		}
		if job.Handle == nil {
			job.Handle = h
		}
		m.mu.Unlock()
	}

	onProgress := func(p model.Progress) {
		m.mu.Lock()
		if _, live := m.jobs[job.ID]; !live {
			m.mu.Unlock()
			return
		}
		job.Progress = p
		job.UpdatedAt = time.Now()
		m.mu.Unlock()

		m.hub.Publish(events.Event{Type: events.TypeProgress, JobID: job.ID, Progress: p})
	}

	result, err := m.runner.Run(context.Background(), job.Request, job.OutputPath, attach, onProgress)
	m.settle(job, result, err)
}

// settle moves a finished job into the ledger, frees its concurrency slot,
// and schedules the next dequeue after the cooldown. A job cancelled while
// running was already settled by Cancel; that case is a no-op here.
func (m *Manager) settle(job *model.Job, result RunResult, err error) {
	m.mu.Lock()
	if _, live := m.jobs[job.ID]; !live {
		m.mu.Unlock()
		return
	}
	delete(m.jobs, job.ID)

	now := time.Now()
	job.FinishedAt = now
	job.UpdatedAt = now

	var evType events.Type
	var message string
	if err != nil {
		job.Status = model.JobStatusError
		job.LastError = err.Error()
		evType = events.TypeError
		message = job.LastError
	} else {
		job.Status = model.JobStatusCompleted
		job.Progress.Percent = 100
		job.Warning = result.Warning
		job.SizeBytes = result.SizeBytes
		evType = events.TypeCompleted
		message = result.Warning
	}

	m.completed.Add(job)
	m.activeCount--
	morePending := len(m.queue) > 0
	m.mu.Unlock()

	if err != nil {
		// Partial output stays on disk for diagnosis of transcoder errors.
		m.log.Error("job failed",
			zap.String("job_id", job.ID),
			zap.String("error", job.LastError))
	} else {
		m.log.Info("job completed",
			zap.String("job_id", job.ID),
			zap.Int64("size_bytes", job.SizeBytes),
			zap.String("warning", job.Warning))
	}

	m.hub.Publish(events.Event{Type: evType, JobID: job.ID, Message: message})

	if morePending {
		m.hub.Publish(events.Event{Type: events.TypeCooldown, Cooldown: m.cooldown})
		time.AfterFunc(m.cooldown, m.dequeue)
	}
}

// Cancel cancels a job. A queued job is removed from the queue directly; a
// downloading job has its process killed best-effort and its partial output
// deleted. Cancelling an unknown or already-terminal job returns false.
func (m *Manager) Cancel(id string) bool {
	m.mu.Lock()
	job, live := m.jobs[id]
	if !live {
		m.mu.Unlock()
		return false
	}

	wasQueued := job.Status == model.JobStatusQueued
	// Status first; killing the process is best-effort and may race with an
	// async spawn that has not attached a handle yet.
	handle := job.Handle
	job.Status = model.JobStatusCancelled
	now := time.Now()
	job.FinishedAt = now
	job.UpdatedAt = now
	delete(m.jobs, id)
	if wasQueued {
		m.removeFromQueueLocked(id)
	} else {
		m.activeCount--
	}
	m.completed.Add(job)
	output := job.OutputPath
	m.mu.Unlock()

	if !wasQueued {
		if handle != nil {
			if err := handle.Kill(); err != nil {
				m.log.Warn("failed to kill transcoder process",
					zap.String("job_id", id), zap.Error(err))
			}
		}
		if output != "" {
			_ = os.Remove(output)
		}
	}

	m.log.Info("job cancelled", zap.String("job_id", id), zap.Bool("was_queued", wasQueued))
	m.hub.Publish(events.Event{Type: events.TypeCancelled, JobID: id})
	m.emitQueuePositions()

	// A cancellation frees a concurrency slot.
	m.dequeue()
	return true
}

// Retry re-enqueues a terminal job in error or cancelled state. The new job
// shares the old resolved request but gets a fresh id. Returns "" and false
// when the id is unknown or not retryable.
func (m *Manager) Retry(id string) (string, bool) {
	old, ok := m.completed.TakeForRetry(id)
	if !ok {
		return "", false
	}

	m.log.Info("job retried", zap.String("job_id", id))
	return m.Enqueue(old.Request), true
}

// ForceProcessNext promotes a queued job out of FIFO order and starts it
// immediately, provided a concurrency slot is free.
func (m *Manager) ForceProcessNext(id string) bool {
	m.mu.Lock()
	if m.activeCount >= m.maxConcurrent {
		m.mu.Unlock()
		return false
	}
	job, live := m.jobs[id]
	if !live || job.Status != model.JobStatusQueued {
		m.mu.Unlock()
		return false
	}
	m.removeFromQueueLocked(id)
	m.startLocked(job)
	m.mu.Unlock()

	m.log.Info("job promoted", zap.String("job_id", id))
	m.emitQueuePositions()
	m.hub.Publish(events.Event{Type: events.TypeStart, JobID: id})
	return true
}

// ClearQueue cancels every still-queued job and returns how many were evicted
func (m *Manager) ClearQueue() int {
	m.mu.Lock()
	evicted := m.queue
	m.queue = nil
	now := time.Now()
	for _, id := range evicted {
		job, ok := m.jobs[id]
		if !ok {
			continue
		}
		job.Status = model.JobStatusCancelled
		job.FinishedAt = now
		job.UpdatedAt = now
		delete(m.jobs, id)
		m.completed.Add(job)
	}
	m.mu.Unlock()

	for _, id := range evicted {
		m.hub.Publish(events.Event{Type: events.TypeCancelled, JobID: id})
	}
	m.log.Info("queue cleared", zap.Int("evicted", len(evicted)))
	return len(evicted)
}

// GetJob returns a snapshot of a live or completed job
func (m *Manager) GetJob(id string) (model.Job, bool) {
	m.mu.Lock()
	if job, ok := m.jobs[id]; ok {
		snap := job.Snapshot()
		m.mu.Unlock()
		return snap, true
	}
	m.mu.Unlock()
	return m.completed.Get(id)
}

// ListActive returns snapshots of all downloading jobs
func (m *Manager) ListActive() []model.Job {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]model.Job, 0, m.activeCount)
	for _, job := range m.jobs {
		if job.Status.IsActive() {
			out = append(out, job.Snapshot())
		}
	}
	return out
}

// ListQueued returns snapshots of queued jobs in queue order
func (m *Manager) ListQueued() []model.Job {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]model.Job, 0, len(m.queue))
	for _, id := range m.queue {
		if job, ok := m.jobs[id]; ok {
			out = append(out, job.Snapshot())
		}
	}
	return out
}

// ListCompleted returns ledger snapshots in insertion order
func (m *Manager) ListCompleted() []model.Job {
	return m.completed.List()
}

// ActiveCount returns the number of occupied concurrency slots
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeCount
}

// StartSweeper schedules the hourly ledger age sweep. The configured age
// threshold may be shorter, but sweeps never run more often than hourly.
func (m *Manager) StartSweeper() {
	if m.sweeper != nil {
		return
	}
	m.sweeper = cron.New()
	_, err := m.sweeper.AddFunc(SweepSchedule, func() {
		if n := m.completed.Sweep(time.Now()); n > 0 {
			m.log.Info("ledger sweep", zap.Int("removed", n))
		}
	})
	if err != nil {
		m.log.Error("failed to schedule ledger sweep", zap.Error(err))
		return
	}
	m.sweeper.Start()
}

// StopSweeper stops the scheduled sweep
func (m *Manager) StopSweeper() {
	if m.sweeper != nil {
		m.sweeper.Stop()
		m.sweeper = nil
	}
}

// removeFromQueueLocked deletes an id from the queue order. Caller holds m.mu.
func (m *Manager) removeFromQueueLocked(id string) {
	for i, qid := range m.queue {
		if qid == id {
			m.queue = append(m.queue[:i], m.queue[i+1:]...)
			return
		}
	}
}

// emitQueuePositions re-publishes the position of every still-queued job so
// observers always see a consistent ordering after admissions and removals.
func (m *Manager) emitQueuePositions() {
	m.mu.Lock()
	ids := make([]string, len(m.queue))
	copy(ids, m.queue)
	m.mu.Unlock()

	for i, id := range ids {
		m.hub.Publish(events.Event{Type: events.TypeQueuePosition, JobID: id, Position: i + 1})
	}
}

// resolveOutputPathLocked assigns a collision-free output path. Probing uses
// "{base} ({n}){ext}" suffixes; after MaxPathCollisions attempts it switches
// to a timestamp+random scheme that cannot collide. Caller holds m.mu.
func (m *Manager) resolveOutputPathLocked(job *model.Job) {
	name := job.Request.Title
	if name == "" {
		name = job.ID
	}
	// Path sanitation proper is the caller's concern; only separators are
	// stripped so the name cannot escape the output directory.
	name = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' {
			return '_'
		}
		return r
	}, name)

	base := filepath.Join(m.outputDir, name)
	ext := "." + job.Request.Container

	candidate := base + ext
	if !m.pathTakenLocked(candidate, job.ID) {
		job.OutputPath = candidate
		return
	}

	for n := 1; n <= MaxPathCollisions; n++ {
		candidate = fmt.Sprintf("%s (%d)%s", base, n, ext)
		if !m.pathTakenLocked(candidate, job.ID) {
			job.OutputPath = candidate
			return
		}
	}

	job.OutputPath = fmt.Sprintf("%s_%d_%s%s", base, time.Now().UnixNano(), randomSuffix(), ext)
}

// pathTakenLocked reports whether a path exists on disk or is the target of
// another live job. Caller holds m.mu.
func (m *Manager) pathTakenLocked(path, selfID string) bool {
	for id, job := range m.jobs {
		if id != selfID && job.OutputPath == path {
			return true
		}
	}
	if _, err := os.Stat(path); err == nil {
		return true
	}
	return false
}

// generateJobID generates a unique, time-ordered job id
func generateJobID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Sprintf(JobIDPrefix+"%d", time.Now().UnixNano())
	}
	return JobIDPrefix + id.String()
}

func randomSuffix() string {
	return uuid.NewString()[:8]
}
