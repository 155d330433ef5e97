package handlers

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/photo-story/internal/constants"
	"github.com/kozaktomas/photo-story/internal/enrich"
)

// JobStatus represents the status of an async job.
type JobStatus string

// JobStatus constants define the lifecycle states of an async job.
const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// isJobTerminal returns true if the job status is a terminal state
func isJobTerminal(status JobStatus) bool {
	return status == JobStatusCompleted || status == JobStatusFailed || status == JobStatusCancelled
}

// JobEvent represents an event from a job.
type JobEvent struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// EventBroadcaster provides listener management and event broadcasting for async jobs.
type EventBroadcaster struct {
	cancel    context.CancelFunc
	listeners []chan JobEvent
	mu        sync.RWMutex
}

// AddListener adds an event listener.
func (b *EventBroadcaster) AddListener() chan JobEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan JobEvent, constants.EventChannelBuffer)
	b.listeners = append(b.listeners, ch)
	return ch
}

// RemoveListener removes an event listener.
func (b *EventBroadcaster) RemoveListener(ch chan JobEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, listener := range b.listeners {
		if listener == ch {
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			close(ch)
			return
		}
	}
}

// SendEvent sends an event to all listeners.
func (b *EventBroadcaster) SendEvent(event JobEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, listener := range b.listeners {
		select {
		case listener <- event:
		default:
			// Listener buffer full, skip.
		}
	}
}

// EnrichJobOptions are the batch options accepted from the client.
type EnrichJobOptions struct {
	Concurrency  int  `json:"concurrency"`
	SkipExisting bool `json:"skip_existing"`
}

// EnrichJob is an async batch enrichment.
type EnrichJob struct {
	EventBroadcaster

	ID          string
	Status      JobStatus
	Total       int
	Processed   int
	Enriched    int
	Skipped     int
	Failed      int
	Cancelled   int
	Errors      []string
	Error       string
	StartedAt   time.Time
	CompletedAt *time.Time
	Options     EnrichJobOptions
}

// EnrichJobSnapshot is a point-in-time copy of a job for JSON responses.
type EnrichJobSnapshot struct {
	ID          string           `json:"id"`
	Status      JobStatus        `json:"status"`
	Total       int              `json:"total"`
	Processed   int              `json:"processed"`
	Enriched    int              `json:"enriched"`
	Skipped     int              `json:"skipped"`
	Failed      int              `json:"failed"`
	Cancelled   int              `json:"cancelled"`
	Errors      []string         `json:"errors,omitempty"`
	Error       string           `json:"error,omitempty"`
	StartedAt   time.Time        `json:"started_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
	Options     EnrichJobOptions `json:"options"`
}

// Snapshot copies the job state under its lock.
func (j *EnrichJob) Snapshot() EnrichJobSnapshot {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return EnrichJobSnapshot{
		ID:          j.ID,
		Status:      j.Status,
		Total:       j.Total,
		Processed:   j.Processed,
		Enriched:    j.Enriched,
		Skipped:     j.Skipped,
		Failed:      j.Failed,
		Cancelled:   j.Cancelled,
		Errors:      append([]string(nil), j.Errors...),
		Error:       j.Error,
		StartedAt:   j.StartedAt,
		CompletedAt: j.CompletedAt,
		Options:     j.Options,
	}
}

// GetStatus returns the current job status.
func (j *EnrichJob) GetStatus() JobStatus {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status
}

// start marks the job running and stores its cancel function.
func (j *EnrichJob) start(cancel context.CancelFunc) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.Status != JobStatusPending {
		return false
	}
	j.cancel = cancel
	j.Status = JobStatusRunning
	return true
}

// recordProgress applies one progress report.
func (j *EnrichJob) recordProgress(p enrich.Progress) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Processed = p.Current
	if p.Status == enrich.ItemFailed && p.Error != "" {
		j.Errors = append(j.Errors, p.Ref+": "+p.Error)
	}
}

// finish stores the batch totals. A cancelled job stays cancelled.
func (j *EnrichJob) finish(res *enrich.BatchResult) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Enriched = res.Enriched
	j.Skipped = res.Skipped
	j.Failed = res.Failed
	j.Cancelled = res.Cancelled
	now := time.Now()
	j.CompletedAt = &now
	if j.Status == JobStatusRunning {
		j.Status = JobStatusCompleted
	}
}

// Cancel stops the job from starting further photos.
func (j *EnrichJob) Cancel() bool {
	j.mu.Lock()
	if isJobTerminal(j.Status) {
		j.mu.Unlock()
		return false
	}
	if j.cancel != nil {
		j.cancel()
	}
	j.Status = JobStatusCancelled
	j.mu.Unlock()

	j.SendEvent(JobEvent{Type: "cancelled", Message: "Job cancelled by user"})
	return true
}

// JobManager manages async enrichment jobs.
type JobManager struct {
	jobs map[string]*EnrichJob
	mu   sync.RWMutex
}

// NewJobManager creates a new job manager.
func NewJobManager() *JobManager {
	return &JobManager{
		jobs: make(map[string]*EnrichJob),
	}
}

// CreateJob registers a pending job and prunes old finished ones.
func (m *JobManager) CreateJob(total int, options EnrichJobOptions) *EnrichJob {
	job := &EnrichJob{
		ID:        uuid.New().String(),
		Status:    JobStatusPending,
		Total:     total,
		StartedAt: time.Now(),
		Options:   options,
	}

	m.mu.Lock()
	m.jobs[job.ID] = job
	m.pruneLocked()
	m.mu.Unlock()

	return job
}

// GetJob retrieves a job by ID.
func (m *JobManager) GetJob(id string) *EnrichJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.jobs[id]
}

// ListJobs returns snapshots of all jobs, newest first.
func (m *JobManager) ListJobs() []EnrichJobSnapshot {
	m.mu.RLock()
	jobs := make([]EnrichJobSnapshot, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, job.Snapshot())
	}
	m.mu.RUnlock()

	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].StartedAt.After(jobs[j].StartedAt)
	})
	return jobs
}

// pruneLocked drops the oldest finished jobs beyond the retention limit.
func (m *JobManager) pruneLocked() {
	var finished []*EnrichJob
	for _, job := range m.jobs {
		if isJobTerminal(job.GetStatus()) {
			finished = append(finished, job)
		}
	}
	if len(finished) <= constants.FinishedJobRetention {
		return
	}
	sort.Slice(finished, func(i, j int) bool {
		return finished[i].StartedAt.Before(finished[j].StartedAt)
	})
	for _, job := range finished[:len(finished)-constants.FinishedJobRetention] {
		delete(m.jobs, job.ID)
	}
}
