package pipeline

import (
	"crypto/sha256"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/mdsplit/internal/chunker"
	"github.com/dgallion1/mdsplit/internal/section"
)

// JobStatus represents the state of an ingestion job.
type JobStatus string

const (
	StatusQueued      JobStatus = "queued"
	StatusParsing     JobStatus = "parsing"
	StatusSegmenting  JobStatus = "segmenting"
	StatusNormalizing JobStatus = "normalizing"
	StatusStoring     JobStatus = "storing"
	StatusCompleted   JobStatus = "completed"
	StatusFailed      JobStatus = "failed"
	StatusPartial     JobStatus = "partial"
	StatusDupSkipped  JobStatus = "duplicate_skipped"
)

// Terminal reports whether no further transitions will happen.
func (s JobStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusPartial, StatusDupSkipped:
		return true
	}
	return false
}

// Job tracks the state of a single document ingestion.
type Job struct {
	mu sync.Mutex

	ID    string `json:"job_id"`
	DocID string `json:"doc_id"`

	Status   JobStatus `json:"status"`
	Phase    string    `json:"phase"`
	Filename string    `json:"filename"`
	Title    string    `json:"title"`
	// Force skips the duplicate check.
	Force bool `json:"force"`

	Progress Progress `json:"progress"`

	ContentHash string    `json:"content_hash,omitempty"`
	DuplicateOf string    `json:"duplicate_of,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Internal: not serialized.
	fileData []byte
	sections []section.Normalized
	chunks   []chunker.Chunk
	errors   []string
}

// Progress tracks processing progress.
type Progress struct {
	TotalSections      int      `json:"total_sections"`
	SectionsNormalized int      `json:"sections_normalized"`
	SectionsStored     int      `json:"sections_stored"`
	Chunks             int      `json:"chunks"`
	Errors             []string `json:"errors"`
}

// NewJob builds a queued job for an uploaded file. An empty docID gets a
// random UUID.
func NewJob(filename, title, docID string, data []byte) *Job {
	if docID == "" {
		docID = uuid.NewString()
	}
	now := time.Now()
	return &Job{
		ID:        generateULID(),
		DocID:     docID,
		Status:    StatusQueued,
		Phase:     "queued",
		Filename:  filename,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
		fileData:  data,
	}
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

// Cleanup removes jobs not updated within the TTL.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		if now.Sub(job.lastUpdate()) > s.ttl {
			delete(s.jobs, id)
		}
	}
}

func (j *Job) lastUpdate() time.Time {
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

// CurrentStatus returns the status under the job lock.
func (j *Job) CurrentStatus() JobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.Status
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// SetSections records the segmented sections before normalization.
func (j *Job) SetSections(sections []section.Section) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.TotalSections = len(sections)
	j.UpdatedAt = time.Now()
}

// IncrNormalized atomically increments sections normalized.
func (j *Job) IncrNormalized() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.SectionsNormalized++
	j.UpdatedAt = time.Now()
}

// SetResults stores the normalized sections and their chunks.
func (j *Job) SetResults(sections []section.Normalized, chunks []chunker.Chunk) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.sections = sections
	j.chunks = chunks
	j.Progress.Chunks = len(chunks)
	j.UpdatedAt = time.Now()
}

// Results returns copies of the normalized sections and chunks.
func (j *Job) Results() ([]section.Normalized, []chunker.Chunk) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return slices.Clone(j.sections), slices.Clone(j.chunks)
}

// AddStored records stored section counts.
func (j *Job) AddStored(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.SectionsStored += n
	j.UpdatedAt = time.Now()
}

// SetFileData sets the raw file bytes for processing.
func (j *Job) SetFileData(data []byte) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.fileData = data
}

// FileData returns the raw file bytes.
func (j *Job) FileData() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.fileData
}

// releaseFileData drops the upload once it has been parsed.
func (j *Job) releaseFileData() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.fileData = nil
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID          string    `json:"job_id"`
	DocID       string    `json:"doc_id"`
	Status      JobStatus `json:"status"`
	Phase       string    `json:"phase"`
	Filename    string    `json:"filename"`
	Title       string    `json:"title"`
	ContentHash string    `json:"content_hash,omitempty"`
	DuplicateOf string    `json:"duplicate_of,omitempty"`
	Progress    Progress  `json:"progress"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := slices.Clone(j.Progress.Errors)
	if errs == nil {
		errs = []string{}
	}
	progress := j.Progress
	progress.Errors = errs
	return JobSnapshot{
		ID:          j.ID,
		DocID:       j.DocID,
		Status:      j.Status,
		Phase:       j.Phase,
		Filename:    j.Filename,
		Title:       j.Title,
		ContentHash: j.ContentHash,
		DuplicateOf: j.DuplicateOf,
		Progress:    progress,
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
