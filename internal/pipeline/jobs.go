package pipeline

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dgallion1/deepmd/internal/exporter"
	"github.com/google/uuid"
)

// JobStatus represents the state of an export job.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusScanning  JobStatus = "scanning"
	StatusReasoning JobStatus = "reasoning"
	StatusParsing   JobStatus = "parsing"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
)

// Job tracks the state of a single snapshot export.
type Job struct {
	mu sync.Mutex

	ID      string `json:"job_id"`
	BaseURL string `json:"base_url,omitempty"`

	Status   JobStatus `json:"status"`
	Phase    string    `json:"phase"`
	Source   string    `json:"source"`
	Filename string    `json:"filename"`

	Citations int  `json:"citations"`
	Thoughts  bool `json:"thoughts"`

	ContentHash string    `json:"content_hash,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Internal: not serialized.
	fileData []byte
	markdown string
	errors   []string
}

// NewJob returns a queued job for the uploaded snapshot.
func NewJob(source, baseURL string, data []byte) *Job {
	now := time.Now()
	return &Job{
		ID:          NewJobID(),
		BaseURL:     baseURL,
		Status:      StatusQueued,
		Phase:       "queued",
		Source:      source,
		ContentHash: ContentHashHex(data),
		CreatedAt:   now,
		UpdatedAt:   now,
		fileData:    data,
	}
}

// NewJobID returns a random job identifier.
func NewJobID() string {
	return uuid.NewString()
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Len returns the number of tracked jobs.
func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		if now.Sub(job.updatedAt()) > s.ttl {
			delete(s.jobs, id)
		}
	}
}

func (j *Job) updatedAt() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.UpdatedAt
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// Notify records a status message from the exporter as the job phase and
// advances the status to match the stage it announces.
func (j *Job) Notify(msg string, _ time.Duration) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.Status == StatusCompleted || j.Status == StatusFailed {
		return
	}
	switch {
	case strings.HasPrefix(msg, "Scanning citations"), strings.HasPrefix(msg, "Found "):
		j.Status = StatusScanning
	case strings.HasPrefix(msg, "Extracting thoughts"):
		j.Status = StatusReasoning
	case strings.HasPrefix(msg, "Parsing text"):
		j.Status = StatusParsing
	}
	j.Phase = msg
	j.UpdatedAt = time.Now()
}

// AddError records a problem, fatal or recovered from.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.UpdatedAt = time.Now()
}

// Complete stores the finished export and marks the job completed.
func (j *Job) Complete(res *exporter.Result) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.markdown = res.Markdown
	j.Filename = res.Filename
	j.Citations = res.CitationCount
	j.Thoughts = res.Thoughts
	j.fileData = nil
	j.Status = StatusCompleted
	j.Phase = "done"
	j.UpdatedAt = time.Now()
}

// Fail records err and marks the job failed.
func (j *Job) Fail(phase string, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err.Error())
	j.fileData = nil
	j.Status = StatusFailed
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// FileData returns the raw snapshot bytes.
func (j *Job) FileData() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.fileData
}

// Markdown returns the export and whether the job has finished.
func (j *Job) Markdown() (string, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.markdown, j.Status == StatusCompleted
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID        string    `json:"job_id"`
	Status    JobStatus `json:"status"`
	Phase     string    `json:"phase"`
	Source    string    `json:"source"`
	Filename  string    `json:"filename,omitempty"`
	Citations int       `json:"citations"`
	Thoughts  bool      `json:"thoughts"`
	Errors    []string  `json:"errors"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := make([]string, len(j.errors))
	copy(errs, j.errors)
	return JobSnapshot{
		ID:        j.ID,
		Status:    j.Status,
		Phase:     j.Phase,
		Source:    j.Source,
		Filename:  j.Filename,
		Citations: j.Citations,
		Thoughts:  j.Thoughts,
		Errors:    errs,
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
