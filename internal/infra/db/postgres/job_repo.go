// File: internal/infra/db/postgres/job_repo.go
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"askline/internal/domain"
	"askline/internal/domain/model"
	"askline/internal/domain/ports/repository"
)

var _ repository.JobRepository = (*JobRepo)(nil)

type JobRepo struct {
	pool *pgxpool.Pool
}

func NewJobRepo(pool *pgxpool.Pool) *JobRepo {
	return &JobRepo{pool: pool}
}

const jobColumns = `id, status, channel, user_id, prompt, channel_data, priority, result, created_at, updated_at, expires_at`

func (r *JobRepo) Save(ctx context.Context, job *model.Job) error {
	if job.ID == "" {
		return domain.ErrInvalidArgument
	}
	cd, err := json.Marshal(job.ChannelData)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO jobs (id, status, channel, user_id, prompt, channel_data, priority, created_at, updated_at, expires_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10);`
	_, err = r.pool.Exec(ctx, q,
		job.ID, string(job.Status), string(job.Channel), job.UserID, job.Prompt,
		cd, job.Priority, job.CreatedAt, job.UpdatedAt, job.ExpiresAt)
	return err
}

func (r *JobRepo) FindByID(ctx context.Context, id string) (*model.Job, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id=$1;`, id)
	return scanJob(row)
}

func (r *JobRepo) UpdateStatus(ctx context.Context, id string, status model.JobStatus, result *model.JobResult) error {
	if !status.Valid() {
		return domain.ErrInvalidArgument
	}
	var res []byte
	if result != nil {
		b, err := json.Marshal(result)
		if err != nil {
			return err
		}
		res = b
	}
	// The WHERE clause refuses terminal -> non-terminal regressions.
	const q = `
UPDATE jobs
   SET status=$2, updated_at=$3, result=COALESCE($4, result)
 WHERE id=$1
   AND NOT (status IN ('completed','failed') AND $2 IN ('pending','processing'));`
	tag, err := r.pool.Exec(ctx, q, id, string(status), time.Now(), res)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, ferr := r.FindByID(ctx, id); ferr == nil {
			return domain.ErrTerminalStatus
		}
		return domain.ErrNotFound
	}
	return nil
}

func (r *JobRepo) ListPendingDue(ctx context.Context, limit int, channel model.Channel) ([]*model.Job, error) {
	if limit <= 0 {
		limit = 1
	}
	var (
		rows pgx.Rows
		err  error
	)
	if channel != "" {
		const q = `
SELECT ` + jobColumns + ` FROM jobs
 WHERE status='pending' AND created_at <= now() AND channel=$1
 ORDER BY created_at ASC LIMIT $2;`
		rows, err = r.pool.Query(ctx, q, string(channel), limit)
	} else {
		const q = `
SELECT ` + jobColumns + ` FROM jobs
 WHERE status='pending' AND created_at <= now()
 ORDER BY created_at ASC LIMIT $1;`
		rows, err = r.pool.Query(ctx, q, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanJobs(rows)
}

func (r *JobRepo) ListByUser(ctx context.Context, userID string, status model.JobStatus, limit int) ([]*model.Job, error) {
	if limit <= 0 {
		limit = 50
	}
	var (
		rows pgx.Rows
		err  error
	)
	if status != "" {
		const q = `
SELECT ` + jobColumns + ` FROM jobs
 WHERE user_id=$1 AND status=$2
 ORDER BY created_at DESC LIMIT $3;`
		rows, err = r.pool.Query(ctx, q, userID, string(status), limit)
	} else {
		const q = `
SELECT ` + jobColumns + ` FROM jobs
 WHERE user_id=$1
 ORDER BY created_at DESC LIMIT $2;`
		rows, err = r.pool.Query(ctx, q, userID, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanJobs(rows)
}

func (r *JobRepo) ListByChannel(ctx context.Context, channel model.Channel, limit int) ([]*model.Job, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `
SELECT ` + jobColumns + ` FROM jobs
 WHERE channel=$1
 ORDER BY created_at DESC LIMIT $2;`
	rows, err := r.pool.Query(ctx, q, string(channel), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanJobs(rows)
}

func (r *JobRepo) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM jobs WHERE expires_at < $1;`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanJob(row pgx.Row) (*model.Job, error) {
	var (
		j       model.Job
		status  string
		channel string
		cdRaw   []byte
		resRaw  []byte
	)
	err := row.Scan(&j.ID, &status, &channel, &j.UserID, &j.Prompt, &cdRaw, &j.Priority, &resRaw,
		&j.CreatedAt, &j.UpdatedAt, &j.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	j.Status = model.JobStatus(status)
	j.Channel = model.Channel(channel)
	j.ChannelData = map[string]string{}
	if len(cdRaw) > 0 {
		if err := json.Unmarshal(cdRaw, &j.ChannelData); err != nil {
			return nil, err
		}
	}
	if len(resRaw) > 0 {
		var res model.JobResult
		if err := json.Unmarshal(resRaw, &res); err != nil {
			return nil, err
		}
		j.Result = &res
	}
	return &j, nil
}

func scanJobs(rows pgx.Rows) ([]*model.Job, error) {
	var out []*model.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}
