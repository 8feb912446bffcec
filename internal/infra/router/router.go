// File: internal/infra/router/router.go
package router

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"askline/internal/domain"
	"askline/internal/domain/model"
	"askline/internal/domain/ports/adapter"
	"askline/internal/infra/metrics"
)

// Deliverer carries one channel's answers back to the user.
type Deliverer interface {
	DeliverSuccess(ctx context.Context, job *model.Job, answer *adapter.Answer) error
	DeliverFailure(ctx context.Context, job *model.Job, message string) error
}

const (
	timeoutApology = "Sorry, that question took too long to answer. Please try a simpler question."
	genericApology = "Sorry, something went wrong while answering your question. Please try again in a moment."
)

// Router dispatches deliveries on the job's channel tag. One Deliverer per
// channel; an unregistered channel is a configuration error, fatal to the
// single routing call but never to the worker.
type Router struct {
	byChannel map[model.Channel]Deliverer
	log       *zerolog.Logger
}

func New(logger *zerolog.Logger) *Router {
	l := logger.With().Str("component", "Router").Logger()
	return &Router{byChannel: map[model.Channel]Deliverer{}, log: &l}
}

func (r *Router) Register(channel model.Channel, d Deliverer) {
	r.byChannel[channel] = d
}

// RouteSuccess delivers the answer over the job's channel. Delivery is
// best-effort: the stored result remains retrievable by polling either way.
func (r *Router) RouteSuccess(ctx context.Context, job *model.Job, answer *adapter.Answer) error {
	d, ok := r.byChannel[job.Channel]
	if !ok {
		metrics.IncDelivery(string(job.Channel), "success", "unsupported")
		return fmt.Errorf("%w: %q", domain.ErrUnsupportedChannel, job.Channel)
	}
	if err := d.DeliverSuccess(ctx, job, answer); err != nil {
		metrics.IncDelivery(string(job.Channel), "success", "error")
		return fmt.Errorf("deliver success for job %s: %w", job.ID, err)
	}
	metrics.IncDelivery(string(job.Channel), "success", "ok")
	return nil
}

// RouteFailure sends a user-facing apology. A message equal to the stored
// timeout condition gets the "took too long" variant. Transport failures are
// logged and swallowed: a failed notification must not crash the worker.
func (r *Router) RouteFailure(ctx context.Context, job *model.Job, errorMessage string) error {
	d, ok := r.byChannel[job.Channel]
	if !ok {
		metrics.IncDelivery(string(job.Channel), "failure", "unsupported")
		return fmt.Errorf("%w: %q", domain.ErrUnsupportedChannel, job.Channel)
	}

	message := genericApology
	if errorMessage == domain.ErrAnswerTimeout.Error() {
		message = timeoutApology
	}

	if err := d.DeliverFailure(ctx, job, message); err != nil {
		metrics.IncDelivery(string(job.Channel), "failure", "error")
		r.log.Error().Err(err).Str("job_id", job.ID).Str("channel", string(job.Channel)).Msg("failure delivery error")
		return nil
	}
	metrics.IncDelivery(string(job.Channel), "failure", "ok")
	return nil
}
