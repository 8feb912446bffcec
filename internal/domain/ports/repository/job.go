package repository

import (
	"context"
	"time"

	"askline/internal/domain/model"
)

type JobRepository interface {
	// Save inserts the job (enqueue). The id must already be assigned.
	Save(ctx context.Context, job *model.Job) error

	FindByID(ctx context.Context, id string) (*model.Job, error)

	// UpdateStatus sets status and updated_at and, when result is non-nil,
	// stores the terminal result. A terminal status is never overwritten with
	// a non-terminal one; such an update fails with domain.ErrTerminalStatus.
	UpdateStatus(ctx context.Context, id string, status model.JobStatus, result *model.JobResult) error

	// ListPendingDue returns pending jobs with created_at <= now, oldest
	// first, optionally filtered by channel ("" means all channels).
	ListPendingDue(ctx context.Context, limit int, channel model.Channel) ([]*model.Job, error)

	// ListByUser and ListByChannel return most-recent-first.
	ListByUser(ctx context.Context, userID string, status model.JobStatus, limit int) ([]*model.Job, error)
	ListByChannel(ctx context.Context, channel model.Channel, limit int) ([]*model.Job, error)

	// DeleteExpired reclaims records whose expires_at is before cutoff.
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}
