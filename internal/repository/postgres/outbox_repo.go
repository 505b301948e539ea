package postgres

import (
	"context"
	"time"

	"github.com/kural1554/Finance/internal/jobs"
)

// DefaultClaimLease is how long a claimed job may stay in processing before
// another worker may claim it again.
const DefaultClaimLease = 5 * time.Minute

type OutboxRepository struct {
	db    DBTX
	lease time.Duration
}

func NewOutboxRepository(db DBTX) *OutboxRepository {
	return &OutboxRepository{db: db, lease: DefaultClaimLease}
}

// WithLease returns a copy whose claims expire after lease.
func (r *OutboxRepository) WithLease(lease time.Duration) *OutboxRepository {
	out := *r
	if lease > 0 {
		out.lease = lease
	}
	return &out
}

func (r *OutboxRepository) Enqueue(ctx context.Context, topic string, payload []byte) error {
	q := `INSERT INTO outbox_jobs (topic, payload, status) VALUES ($1, $2::jsonb, 'pending')`
	_, err := r.db.Exec(ctx, q, topic, payload)
	return err
}

// ClaimPending moves up to limit due jobs to processing and returns them.
// Jobs left in processing longer than the lease, by a worker that died or
// failed to record the outcome, are claimed again. Concurrent workers skip
// rows another worker holds locked.
func (r *OutboxRepository) ClaimPending(ctx context.Context, limit int32) ([]jobs.OutboxJob, error) {
	if limit <= 0 {
		limit = 20
	}
	q := `
WITH due AS (
  SELECT id FROM outbox_jobs
  WHERE (status = 'pending' AND available_at <= NOW())
     OR (status = 'processing' AND updated_at < NOW() - make_interval(secs => $2))
  ORDER BY id ASC
  LIMIT $1
  FOR UPDATE SKIP LOCKED
)
UPDATE outbox_jobs o
SET status = 'processing', attempts = o.attempts + 1, updated_at = NOW()
FROM due
WHERE o.id = due.id
RETURNING o.id, o.topic, o.payload, o.status, o.attempts, o.last_error, o.available_at
`
	rows, err := r.db.Query(ctx, q, limit, r.lease.Seconds())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]jobs.OutboxJob, 0)
	for rows.Next() {
		var job jobs.OutboxJob
		if err := rows.Scan(&job.ID, &job.Topic, &job.Payload, &job.Status, &job.Attempts, &job.LastError, &job.AvailableAt); err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *OutboxRepository) MarkDone(ctx context.Context, jobID int64) error {
	_, err := r.db.Exec(ctx, `UPDATE outbox_jobs SET status = 'done', last_error = '', updated_at = NOW() WHERE id = $1`, jobID)
	return err
}

func (r *OutboxRepository) MarkRetry(ctx context.Context, jobID int64, nextAvailableAt time.Time, lastError string) error {
	q := `
UPDATE outbox_jobs
SET status = 'pending', available_at = $2, last_error = $3, updated_at = NOW()
WHERE id = $1
`
	_, err := r.db.Exec(ctx, q, jobID, nextAvailableAt, lastError)
	return err
}

func (r *OutboxRepository) MarkFailed(ctx context.Context, jobID int64, lastError string) error {
	_, err := r.db.Exec(ctx, `UPDATE outbox_jobs SET status = 'failed', last_error = $2, updated_at = NOW() WHERE id = $1`, jobID, lastError)
	return err
}
