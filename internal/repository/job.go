package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Job statuses as stored in the cover_jobs table.
const (
	JobStatusPending   = "pending"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

// Job is one queued background job.
type Job struct {
	ID          uuid.UUID
	JobType     string
	Payload     []byte
	Status      string
	Priority    int32
	Attempts    int32
	MaxAttempts int32
	LastError   string
	ScheduledAt time.Time
	CreatedAt   time.Time
}

// EnqueueJobParams configures a new job.
type EnqueueJobParams struct {
	JobType     string
	Payload     []byte
	Priority    int32
	MaxAttempts int32
	ScheduledAt time.Time
}

// EnqueueJob inserts a pending job and returns its ID.
func (q *Queries) EnqueueJob(ctx context.Context, p EnqueueJobParams) (uuid.UUID, error) {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.ScheduledAt.IsZero() {
		p.ScheduledAt = time.Now().UTC()
	}
	if len(p.Payload) == 0 {
		p.Payload = []byte("{}")
	}

	id := uuid.New()
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO cover_jobs (id, job_type, payload, priority, max_attempts, scheduled_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		id, p.JobType, p.Payload, p.Priority, p.MaxAttempts, p.ScheduledAt)
	if err != nil {
		return uuid.Nil, fmt.Errorf("enqueue job: %w", err)
	}
	return id, nil
}

// DequeueJob claims the next due pending job. It must run inside a
// transaction; SKIP LOCKED keeps concurrent workers off each other's
// jobs. Returns sql.ErrNoRows when nothing is due.
func (q *Queries) DequeueJob(ctx context.Context) (Job, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT id, job_type, payload, status, priority, attempts, max_attempts,
			last_error, scheduled_at, created_at
		FROM cover_jobs
		WHERE status = $1 AND scheduled_at <= now()
		ORDER BY priority DESC, scheduled_at
		LIMIT 1
		FOR UPDATE SKIP LOCKED`, JobStatusPending)

	var j Job
	err := row.Scan(&j.ID, &j.JobType, &j.Payload, &j.Status, &j.Priority,
		&j.Attempts, &j.MaxAttempts, &j.LastError, &j.ScheduledAt, &j.CreatedAt)
	if err != nil {
		return Job{}, err
	}
	return j, nil
}

// UpdateJobStarted marks a job as running and counts the attempt.
func (q *Queries) UpdateJobStarted(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE cover_jobs
		SET status = $2, attempts = attempts + 1, started_at = now()
		WHERE id = $1`, id, JobStatusRunning)
	if err != nil {
		return fmt.Errorf("mark job started: %w", err)
	}
	return nil
}

// MarkJobCompleted finishes a job successfully.
func (q *Queries) MarkJobCompleted(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE cover_jobs
		SET status = $2, finished_at = now()
		WHERE id = $1`, id, JobStatusCompleted)
	if err != nil {
		return fmt.Errorf("mark job completed: %w", err)
	}
	return nil
}

// MarkJobFailed records a failure. Jobs with attempts remaining go back
// to pending with a linear backoff; exhausted or permanently failed jobs
// stay failed.
func (q *Queries) MarkJobFailed(ctx context.Context, id uuid.UUID, lastError string, permanent bool) error {
	if permanent {
		_, err := q.db.ExecContext(ctx, `
			UPDATE cover_jobs
			SET status = $2, last_error = $3, finished_at = now()
			WHERE id = $1`, id, JobStatusFailed, lastError)
		if err != nil {
			return fmt.Errorf("mark job failed: %w", err)
		}
		return nil
	}

	_, err := q.db.ExecContext(ctx, `
		UPDATE cover_jobs
		SET status = CASE WHEN attempts >= max_attempts THEN $2 ELSE $3 END,
			last_error = $4,
			scheduled_at = now() + (attempts * interval '30 seconds'),
			finished_at = CASE WHEN attempts >= max_attempts THEN now() ELSE NULL END
		WHERE id = $1`, id, JobStatusFailed, JobStatusPending, lastError)
	if err != nil {
		return fmt.Errorf("mark job failed: %w", err)
	}
	return nil
}

// RecoverStaleJobs resets running jobs older than the threshold back to
// pending. Called on worker startup to pick up after crashes.
func (q *Queries) RecoverStaleJobs(ctx context.Context, thresholdSeconds float64) (int64, error) {
	res, err := q.db.ExecContext(ctx, `
		UPDATE cover_jobs
		SET status = $1
		WHERE status = $2
		  AND started_at < now() - ($3 * interval '1 second')`,
		JobStatusPending, JobStatusRunning, thresholdSeconds)
	if err != nil {
		return 0, fmt.Errorf("recover stale jobs: %w", err)
	}
	return res.RowsAffected()
}
