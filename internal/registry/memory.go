package registry

import (
	"context"
	"sync"

	"github.com/stemworks/api/internal/model"
)

// MemoryStore keeps upload jobs in a map. Used in tests and single-process
// deployments without redis.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]model.UploadJob
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]model.UploadJob)}
}

func (s *MemoryStore) Create(_ context.Context, job *model.UploadJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[job.ID]; ok {
		return ErrAlreadyExists
	}
	s.jobs[job.ID] = cloneJob(job)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*model.UploadJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := cloneJob(&job)
	return &copied, nil
}

func (s *MemoryStore) Update(_ context.Context, job *model.UploadJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[job.ID]; !ok {
		return ErrNotFound
	}
	s.jobs[job.ID] = cloneJob(job)
	return nil
}

// cloneJob copies the slices so callers cannot alias stored state.
func cloneJob(job *model.UploadJob) model.UploadJob {
	copied := *job
	copied.FileReferences = append([]string(nil), job.FileReferences...)
	copied.Stems = append([]model.Stem(nil), job.Stems...)
	if job.Error != nil {
		msg := *job.Error
		copied.Error = &msg
	}
	if job.CompletedAt != nil {
		at := *job.CompletedAt
		copied.CompletedAt = &at
	}
	return copied
}
