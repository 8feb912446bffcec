package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"askline/internal/domain/ports/repository"
	"askline/internal/infra/metrics"
)

// Janitor periodically deletes jobs past their retention window. Results are
// gone after the sweep; callers that poll too late get a not-found.
type Janitor struct {
	interval time.Duration
	jobs     repository.JobRepository
	log      *zerolog.Logger
}

func NewJanitor(interval time.Duration, jobs repository.JobRepository, logger *zerolog.Logger) *Janitor {
	l := logger.With().Str("component", "Janitor").Logger()
	if interval <= 0 {
		interval = time.Minute
	}
	return &Janitor{interval: interval, jobs: jobs, log: &l}
}

func (j *Janitor) Run(ctx context.Context) error {
	j.log.Info().Dur("interval", j.interval).Msg("Starting job janitor")
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.log.Info().Msg("Stopping job janitor")
			return ctx.Err()
		case <-ticker.C:
			n, err := j.jobs.DeleteExpired(ctx, time.Now())
			if err != nil {
				j.log.Error().Err(err).Msg("janitor sweep error")
				continue
			}
			if n > 0 {
				metrics.AddJobsReclaimed(n)
				j.log.Info().Int64("count", n).Msg("expired jobs reclaimed")
			}
		}
	}
}
