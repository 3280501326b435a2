package inmemory

import (
	"context"
	"fmt"
	"sync"

	"github.com/omnitrack/ledger/internal/projection"
)

// Store is an in-memory implementation of projection.JobStore.
// It is safe for concurrent use; job state is lost on restart, which is
// acceptable for a best-effort secondary write.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]*projection.Job
}

// NewStore creates a new in-memory projection job store.
func NewStore() *Store {
	return &Store{
		jobs: make(map[string]*projection.Job),
	}
}

// SaveJob implements the JobStore interface.
func (s *Store) SaveJob(ctx context.Context, job *projection.Job) error {
	if job.JobID == "" {
		return fmt.Errorf("job ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Store a copy to avoid external modifications
	jobCopy := *job
	s.jobs[job.JobID] = &jobCopy

	return nil
}

// GetJob implements the JobStore interface.
func (s *Store) GetJob(ctx context.Context, jobID string) (*projection.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}

	jobCopy := *job
	return &jobCopy, nil
}

// ListJobs implements the JobStore interface. An empty status returns all
// jobs.
func (s *Store) ListJobs(ctx context.Context, status projection.JobStatus) ([]*projection.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*projection.Job
	for _, job := range s.jobs {
		if status != "" && job.Status != status {
			continue
		}
		jobCopy := *job
		result = append(result, &jobCopy)
	}

	return result, nil
}

// Ensure Store implements the JobStore interface.
var _ projection.JobStore = (*Store)(nil)
