// File: internal/infra/router/mobile.go
package router

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"askline/internal/domain"
	"askline/internal/domain/model"
	"askline/internal/domain/ports/adapter"
	"askline/internal/domain/ports/repository"
	"askline/internal/infra/metrics"
)

var _ Deliverer = (*MobileDeliverer)(nil)

// previewLen caps how much of the answer rides in the push body; the full
// text is fetched by the app via the job endpoint.
const previewLen = 140

// MobileDeliverer sends a best-effort completion push. Missing profile,
// disabled notifications or an absent token are not errors: polling the job
// is the canonical result path.
type MobileDeliverer struct {
	profiles repository.UserProfileRepository
	push     adapter.PushGateway
	log      *zerolog.Logger
}

func NewMobileDeliverer(profiles repository.UserProfileRepository, push adapter.PushGateway, logger *zerolog.Logger) *MobileDeliverer {
	l := logger.With().Str("component", "MobileDeliverer").Logger()
	return &MobileDeliverer{profiles: profiles, push: push, log: &l}
}

func (d *MobileDeliverer) DeliverSuccess(ctx context.Context, job *model.Job, answer *adapter.Answer) error {
	return d.notify(ctx, job, "Your answer is ready", truncate(answer.Text, previewLen), "answer_completed")
}

func (d *MobileDeliverer) DeliverFailure(ctx context.Context, job *model.Job, message string) error {
	return d.notify(ctx, job, "We couldn't answer your question", message, "answer_failed")
}

func (d *MobileDeliverer) notify(ctx context.Context, job *model.Job, title, body, kind string) error {
	profile, err := d.profiles.FindByID(ctx, job.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			d.log.Debug().Str("user_id", job.UserID).Msg("no profile, skipping push")
			return nil
		}
		return err
	}
	if !profile.NotificationsEnabled || profile.PushToken == "" {
		return nil
	}

	data := map[string]string{"job_id": job.ID, "type": kind}
	if _, err := d.push.Send(ctx, profile.PushToken, title, body, data); err != nil {
		if errors.Is(err, domain.ErrInvalidPushToken) {
			// Dead token: evict so we stop pushing at it.
			if rerr := d.profiles.RemovePushToken(ctx, job.UserID); rerr != nil {
				d.log.Error().Err(rerr).Str("user_id", job.UserID).Msg("failed to evict push token")
			} else {
				metrics.IncPushTokenEvicted()
				d.log.Info().Str("user_id", job.UserID).Msg("evicted invalid push token")
			}
			return nil
		}
		return err
	}
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
