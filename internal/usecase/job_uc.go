// File: internal/usecase/job_uc.go
package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"askline/internal/domain"
	"askline/internal/domain/model"
	"askline/internal/domain/ports/repository"
	"askline/internal/infra/metrics"
)

// Compile-time check
var _ JobUseCase = (*jobUC)(nil)

type EnqueueInput struct {
	Channel     model.Channel
	UserID      string
	Prompt      string
	ChannelData map[string]string
	Priority    string
}

type JobUseCase interface {
	// Enqueue validates input, rejects users with an answer already in
	// flight, and stores a pending job.
	Enqueue(ctx context.Context, in EnqueueInput) (*model.Job, error)

	// Get returns the job, enforcing ownership when callerUserID is set.
	Get(ctx context.Context, id, callerUserID string) (*model.Job, error)

	ListByUser(ctx context.Context, userID string, status model.JobStatus, limit int) ([]*model.Job, error)
	ListByChannel(ctx context.Context, channel model.Channel, limit int) ([]*model.Job, error)
}

type jobUC struct {
	jobs      repository.JobRepository
	locks     repository.UserLockService
	retention time.Duration
	log       *zerolog.Logger
}

func NewJobUseCase(jobs repository.JobRepository, locks repository.UserLockService, retention time.Duration, logger *zerolog.Logger) *jobUC {
	if retention <= 0 {
		retention = model.DefaultRetention
	}
	l := logger.With().Str("component", "JobUC").Logger()
	return &jobUC{jobs: jobs, locks: locks, retention: retention, log: &l}
}

func (u *jobUC) Enqueue(ctx context.Context, in EnqueueInput) (*model.Job, error) {
	if !in.Channel.Valid() {
		return nil, domain.ErrInvalidArgument
	}
	in.Prompt = strings.TrimSpace(in.Prompt)
	if in.Prompt == "" {
		return nil, domain.ErrInvalidArgument
	}

	// The relay channel identifies a conversation by its sender address.
	if in.UserID == "" && in.Channel == model.ChannelTextRelay {
		if addr := strings.TrimSpace(in.ChannelData["address"]); addr != "" {
			in.UserID = model.RelayUserID(addr)
		}
	}
	if in.UserID == "" {
		return nil, domain.ErrInvalidArgument
	}

	locked, err := u.locks.IsLocked(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	if locked {
		return nil, domain.ErrUserBusy
	}

	job := model.NewJob(ulid.Make().String(), in.Channel, in.UserID, in.Prompt, in.ChannelData, in.Priority)
	job.ExpiresAt = job.CreatedAt.Add(u.retention)
	if err := u.jobs.Save(ctx, job); err != nil {
		return nil, err
	}

	metrics.IncJobEnqueued(string(job.Channel))
	u.log.Info().Str("job_id", job.ID).Str("user_id", job.UserID).Str("channel", string(job.Channel)).Msg("job enqueued")
	return job, nil
}

func (u *jobUC) Get(ctx context.Context, id, callerUserID string) (*model.Job, error) {
	job, err := u.jobs.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if callerUserID != "" && callerUserID != job.UserID {
		return nil, domain.ErrForbidden
	}
	return job, nil
}

func (u *jobUC) ListByUser(ctx context.Context, userID string, status model.JobStatus, limit int) ([]*model.Job, error) {
	if userID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if status != "" && !status.Valid() {
		return nil, domain.ErrInvalidArgument
	}
	return u.jobs.ListByUser(ctx, userID, status, limit)
}

func (u *jobUC) ListByChannel(ctx context.Context, channel model.Channel, limit int) ([]*model.Job, error) {
	if !channel.Valid() {
		return nil, domain.ErrInvalidArgument
	}
	return u.jobs.ListByChannel(ctx, channel, limit)
}
