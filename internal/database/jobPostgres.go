package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ds124wfegd/imgenhance/internal/entity"

	_ "github.com/lib/pq"
)

type JobPostgres struct {
	db *sql.DB
}

func NewJobRepository(db *sql.DB) JobRepository {
	return &JobPostgres{db: db}
}

func (r *JobPostgres) Create(ctx context.Context, job *entity.Job) error {
	query := `INSERT INTO enhancement_jobs (id, status, preset, scale, strength, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)`
	_, err := r.db.ExecContext(ctx, query, job.ID, job.Status, job.Preset, job.Scale, job.Strength, job.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert job %s: %w", job.ID, err)
	}
	return nil
}

func (r *JobPostgres) GetByID(ctx context.Context, id string) (*entity.Job, error) {
	var (
		job       entity.Job
		metadata  []byte
		errorText sql.NullString
		errorCode sql.NullString
	)
	query := `SELECT id, status, preset, scale, strength, metadata, error, error_code, created_at, updated_at
		FROM enhancement_jobs WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&job.ID, &job.Status, &job.Preset, &job.Scale, &job.Strength,
		&metadata, &errorText, &errorCode, &job.CreatedAt, &job.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select job %s: %w", id, err)
	}

	if len(metadata) > 0 {
		var meta entity.Metadata
		if err := json.Unmarshal(metadata, &meta); err != nil {
			return nil, fmt.Errorf("decode metadata of job %s: %w", id, err)
		}
		job.Metadata = &meta
	}
	job.Error = errorText.String
	job.ErrorCode = entity.ErrorCode(errorCode.String)
	return &job, nil
}

// MarkProcessing only moves jobs that have not finished yet; a redelivered
// task for a finished job reports ErrJobNotFound.
func (r *JobPostgres) MarkProcessing(ctx context.Context, id string) error {
	query := `UPDATE enhancement_jobs SET status = $2, updated_at = $3 WHERE id = $1 AND status IN ($4, $2)`
	return r.update(ctx, id, query, id, entity.JobProcessing, time.Now().UTC(), entity.JobQueued)
}

func (r *JobPostgres) Complete(ctx context.Context, id string, meta *entity.Metadata) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	query := `UPDATE enhancement_jobs SET status = $2, metadata = $3, updated_at = $4 WHERE id = $1`
	return r.update(ctx, id, query, id, entity.JobCompleted, data, time.Now().UTC())
}

func (r *JobPostgres) Fail(ctx context.Context, id string, code entity.ErrorCode, message string) error {
	query := `UPDATE enhancement_jobs SET status = $2, error_code = $3, error = $4, updated_at = $5 WHERE id = $1`
	return r.update(ctx, id, query, id, entity.JobFailed, code, message, time.Now().UTC())
}

func (r *JobPostgres) update(ctx context.Context, id, query string, args ...interface{}) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update job %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return entity.ErrJobNotFound
	}
	return nil
}

func (r *JobPostgres) PurgeFinished(ctx context.Context, before time.Time) ([]string, error) {
	query := `DELETE FROM enhancement_jobs WHERE status IN ($1, $2) AND updated_at < $3 RETURNING id`
	rows, err := r.db.QueryContext(ctx, query, entity.JobCompleted, entity.JobFailed, before)
	if err != nil {
		return nil, fmt.Errorf("purge jobs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
