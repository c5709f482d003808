package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"solana-token-screener/internal/domain"
	"solana-token-screener/internal/storage"
)

// IngestJobStore is an in-memory implementation of storage.IngestJobStore.
type IngestJobStore struct {
	mu     sync.Mutex
	nextID int64
	data   map[int64]*domain.IngestJob
	now    func() time.Time
}

// NewIngestJobStore creates a new in-memory ingest job store.
func NewIngestJobStore() *IngestJobStore {
	return &IngestJobStore{
		data: make(map[int64]*domain.IngestJob),
		now:  time.Now,
	}
}

// Enqueue adds a pending job and returns its ID.
func (s *IngestJobStore) Enqueue(_ context.Context, source string, payload []byte) (int64, error) {
	if source == "" || len(payload) == 0 {
		return 0, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	job := &domain.IngestJob{
		ID:        s.nextID,
		Source:    source,
		Payload:   append([]byte(nil), payload...),
		Status:    domain.JobPending,
		CreatedAt: s.now().UnixMilli(),
	}
	s.data[job.ID] = job
	return job.ID, nil
}

// Claim atomically claims up to limit pending jobs, oldest first, and
// marks them processing.
func (s *IngestJobStore) Claim(_ context.Context, limit int) ([]*domain.IngestJob, error) {
	if limit < 1 {
		return nil, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var pending []*domain.IngestJob
	for _, job := range s.data {
		if job.Status == domain.JobPending {
			pending = append(pending, job)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].ID < pending[j].ID })

	if len(pending) > limit {
		pending = pending[:limit]
	}

	claimed := make([]*domain.IngestJob, 0, len(pending))
	for _, job := range pending {
		job.Status = domain.JobProcessing
		claimed = append(claimed, copyJob(job))
	}
	return claimed, nil
}

// MarkDone marks a claimed job completed.
func (s *IngestJobStore) MarkDone(_ context.Context, jobID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.data[jobID]
	if !exists {
		return storage.ErrNotFound
	}
	ts := s.now().UnixMilli()
	job.Status = domain.JobDone
	job.ProcessedAt = &ts
	return nil
}

// MarkFailed marks a claimed job failed with a reason.
func (s *IngestJobStore) MarkFailed(_ context.Context, jobID int64, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.data[jobID]
	if !exists {
		return storage.ErrNotFound
	}
	ts := s.now().UnixMilli()
	job.Status = domain.JobFailed
	job.Error = reason
	job.ProcessedAt = &ts
	return nil
}

func copyJob(job *domain.IngestJob) *domain.IngestJob {
	jobCopy := *job
	jobCopy.Payload = append([]byte(nil), job.Payload...)
	if job.ProcessedAt != nil {
		v := *job.ProcessedAt
		jobCopy.ProcessedAt = &v
	}
	return &jobCopy
}

// Verify interface compliance at compile time.
var _ storage.IngestJobStore = (*IngestJobStore)(nil)
