package pipeline

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/dgallion1/flatjson/internal/artifact"
)

// JobStatus represents the state of an upload job.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusUploading JobStatus = "uploading"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
	StatusPartial   JobStatus = "partial"
)

// Job tracks the upload of one flatten run's artifacts.
type Job struct {
	mu sync.Mutex

	ID     string `json:"job_id"`
	Source string `json:"source"`

	Status JobStatus `json:"status"`
	Phase  string    `json:"phase"`

	Progress Progress `json:"progress"`

	ContentHash string    `json:"content_hash,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	files  []artifact.File
	errors []string
}

// Progress tracks upload progress.
type Progress struct {
	TotalFiles    int      `json:"total_files"`
	FilesUploaded int      `json:"files_uploaded"`
	BytesUploaded int64    `json:"bytes_uploaded"`
	Errors        []string `json:"errors"`
}

// NewJob creates a queued job for files. The job ID doubles as the key
// prefix the files are stored under.
func NewJob(source string, input []byte, files []artifact.File) *Job {
	now := time.Now()
	return &Job{
		ID:          NewID(),
		Source:      source,
		Status:      StatusQueued,
		Phase:       "queued",
		Progress:    Progress{TotalFiles: len(files)},
		ContentHash: ContentHashHex(input),
		CreatedAt:   now,
		UpdatedAt:   now,
		files:       files,
	}
}

// Key returns the object key for a file of this job.
func (j *Job) Key(name string) string {
	return j.ID + "/" + name
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
		job.mu.Lock()
		updated := job.UpdatedAt
		job.mu.Unlock()
		if now.Sub(updated) > s.ttl {
			delete(s.jobs, id)
		}
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// AddUploaded records one stored file of n bytes.
func (j *Job) AddUploaded(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.FilesUploaded++
	j.Progress.BytesUploaded += int64(n)
	j.UpdatedAt = time.Now()
}

// Files returns the artifacts the job uploads.
func (j *Job) Files() []artifact.File {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.files
}

// releaseFiles drops the artifact bytes once they are no longer needed.
func (j *Job) releaseFiles() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.files = nil
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID        string    `json:"job_id"`
	Source    string    `json:"source"`
	Status    JobStatus `json:"status"`
	Phase     string    `json:"phase"`
	Progress  Progress  `json:"progress"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := append([]string{}, j.Progress.Errors...)
	return JobSnapshot{
		ID:     j.ID,
		Source: j.Source,
		Status: j.Status,
		Phase:  j.Phase,
		Progress: Progress{
			TotalFiles:    j.Progress.TotalFiles,
			FilesUploaded: j.Progress.FilesUploaded,
			BytesUploaded: j.Progress.BytesUploaded,
			Errors:        errs,
		},
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
