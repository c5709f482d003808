package postgres

import (
	"context"
	"fmt"
	"time"

	"solana-token-screener/internal/domain"
	"solana-token-screener/internal/storage"
)

// IngestJobStore implements storage.IngestJobStore using PostgreSQL.
// Claim uses FOR UPDATE SKIP LOCKED so multiple workers can drain the
// queue concurrently without ever processing the same job twice.
type IngestJobStore struct {
	pool *Pool
	now  func() time.Time
}

// NewIngestJobStore creates a new IngestJobStore.
func NewIngestJobStore(pool *Pool) *IngestJobStore {
	return &IngestJobStore{pool: pool, now: time.Now}
}

// Compile-time interface check.
var _ storage.IngestJobStore = (*IngestJobStore)(nil)

// Enqueue adds a pending job and returns its ID.
func (s *IngestJobStore) Enqueue(ctx context.Context, source string, payload []byte) (int64, error) {
	if source == "" || len(payload) == 0 {
		return 0, storage.ErrInvalidInput
	}

	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO ingest_jobs (source, payload, status, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, source, payload, domain.JobPending, s.now().UnixMilli()).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("enqueue job: %w", err)
	}
	return id, nil
}

// Claim atomically claims up to limit pending jobs, oldest first, and
// marks them processing.
func (s *IngestJobStore) Claim(ctx context.Context, limit int) ([]*domain.IngestJob, error) {
	if limit < 1 {
		return nil, storage.ErrInvalidInput
	}

	query := `
		UPDATE ingest_jobs
		SET status = $1
		WHERE id IN (
			SELECT id FROM ingest_jobs
			WHERE status = $2
			ORDER BY id ASC
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, source, payload, status, error, created_at, processed_at
	`

	rows, err := s.pool.Query(ctx, query, domain.JobProcessing, domain.JobPending, limit)
	if err != nil {
		return nil, fmt.Errorf("claim jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*domain.IngestJob
	for rows.Next() {
		var job domain.IngestJob
		err := rows.Scan(
			&job.ID,
			&job.Source,
			&job.Payload,
			&job.Status,
			&job.Error,
			&job.CreatedAt,
			&job.ProcessedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan job row: %w", err)
		}
		jobs = append(jobs, &job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate job rows: %w", err)
	}
	return jobs, nil
}

// MarkDone marks a claimed job completed.
func (s *IngestJobStore) MarkDone(ctx context.Context, jobID int64) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE ingest_jobs
		SET status = $2, processed_at = $3
		WHERE id = $1
	`, jobID, domain.JobDone, s.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("mark job done: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// MarkFailed marks a claimed job failed with a reason.
func (s *IngestJobStore) MarkFailed(ctx context.Context, jobID int64, reason string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE ingest_jobs
		SET status = $2, error = $3, processed_at = $4
		WHERE id = $1
	`, jobID, domain.JobFailed, reason, s.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("mark job failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}
