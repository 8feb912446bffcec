// File: internal/infra/worker/worker.go
package worker

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"askline/internal/domain"
	"askline/internal/domain/model"
	"askline/internal/domain/ports/adapter"
	"askline/internal/domain/ports/repository"
	"askline/internal/infra/metrics"
)

// Router delivers a finished job's result back over its originating channel.
type Router interface {
	RouteSuccess(ctx context.Context, job *model.Job, answer *adapter.Answer) error
	RouteFailure(ctx context.Context, job *model.Job, errorMessage string) error
}

type Config struct {
	PollInterval         time.Duration
	MaxConcurrentJobs    int
	MaxExecutionTime     time.Duration
	MaxJobProcessingTime time.Duration

	// Channel restricts claiming to one surface; empty claims all.
	Channel model.Channel
}

const (
	// drainMargin is how close to MaxExecutionTime the worker stops taking
	// new work. The worker may run inside a compute environment with a hard
	// wall-clock ceiling per invocation, so it drains before hitting it.
	drainMargin = 30 * time.Second

	// stopWait bounds how long Stop waits for in-flight jobs.
	stopWait = 10 * time.Second
)

type Status struct {
	Running         bool          `json:"running"`
	ActiveJobs      []string      `json:"active_jobs"`
	ActiveCount     int           `json:"active_count"`
	BudgetRemaining time.Duration `json:"budget_remaining"`
}

// Worker drives pending jobs from the store to a terminal status. The poll
// loop makes one fetch-and-dispatch decision at a time; claimed job bodies
// run concurrently, bounded by MaxConcurrentJobs. Several worker processes
// may poll the same store; the per-user lock is the only cross-process
// exclusion.
type Worker struct {
	cfg    Config
	jobs   repository.JobRepository
	locks  repository.UserLockService
	answer adapter.AnswerService
	router Router
	log    *zerolog.Logger

	mu         sync.Mutex
	running    bool
	forced     bool
	startTime  time.Time
	processing map[string]struct{}
	cancelLoop context.CancelFunc
	cancelJobs context.CancelFunc

	sem *semaphore.Weighted
	wg  sync.WaitGroup
}

func New(cfg Config, jobs repository.JobRepository, locks repository.UserLockService, answer adapter.AnswerService, router Router, logger *zerolog.Logger) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 500 * time.Millisecond
	}
	if cfg.MaxConcurrentJobs <= 0 {
		cfg.MaxConcurrentJobs = 3
	}
	if cfg.MaxJobProcessingTime <= 0 {
		cfg.MaxJobProcessingTime = 90 * time.Second
	}
	l := logger.With().Str("component", "Worker").Logger()
	return &Worker{
		cfg:        cfg,
		jobs:       jobs,
		locks:      locks,
		answer:     answer,
		router:     router,
		log:        &l,
		processing: map[string]struct{}{},
	}
}

// Start launches the poll loop. Returns an error if already running. The
// loop runs until Stop or ForceStop; it is not bound to ctx.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return errors.New("worker already running")
	}
	w.running = true
	w.forced = false
	w.startTime = time.Now()
	w.processing = map[string]struct{}{}
	w.sem = semaphore.NewWeighted(int64(w.cfg.MaxConcurrentJobs))

	// The loop and the job bodies hang off worker-owned contexts: the caller's
	// ctx may be an admin request that is cancelled the moment the handler
	// returns, and job bodies outlive the loop during a graceful drain. The
	// loop context is cancelled by Stop, the job context only by ForceStop.
	loopCtx, cancelLoop := context.WithCancel(context.Background())
	w.cancelLoop = cancelLoop
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	w.cancelJobs = cancelJobs

	go w.loop(loopCtx, jobCtx)
	w.log.Info().
		Int("max_concurrent", w.cfg.MaxConcurrentJobs).
		Dur("poll_interval", w.cfg.PollInterval).
		Msg("worker started")
	return nil
}

func (w *Worker) loop(ctx context.Context, jobCtx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.markStopped()
			return
		case <-ticker.C:
			if !w.isRunning() {
				return
			}
			if w.nearDeadline() {
				w.log.Warn().Dur("elapsed", time.Since(w.startTime)).Msg("approaching execution deadline, draining")
				go func() {
					if err := w.Stop(context.Background()); err != nil {
						w.log.Error().Err(err).Msg("drain did not finish cleanly")
					}
				}()
				return
			}
			w.claimOne(ctx, jobCtx)
		}
	}
}

func (w *Worker) nearDeadline() bool {
	if w.cfg.MaxExecutionTime <= 0 {
		return false
	}
	return time.Since(w.startTime) >= w.cfg.MaxExecutionTime-drainMargin
}

// claimOne fetches at most one due job and dispatches it without blocking the
// poll loop. The semaphore is captured up front: a force stop and restart
// swaps w.sem, and a slot must be released on the semaphore it came from.
func (w *Worker) claimOne(ctx context.Context, jobCtx context.Context) {
	w.mu.Lock()
	sem := w.sem
	w.mu.Unlock()

	if !sem.TryAcquire(1) {
		return // at capacity
	}
	release := true
	defer func() {
		if release {
			sem.Release(1)
		}
	}()

	due, err := w.jobs.ListPendingDue(ctx, 1, w.cfg.Channel)
	if err != nil {
		w.log.Error().Err(err).Msg("failed to fetch due jobs")
		return
	}
	if len(due) == 0 {
		return
	}
	job := due[0]

	w.mu.Lock()
	if _, inFlight := w.processing[job.ID]; inFlight {
		w.mu.Unlock()
		return
	}
	w.mu.Unlock()

	locked, err := w.locks.IsLocked(ctx, job.UserID)
	if err != nil {
		w.log.Error().Err(err).Str("user_id", job.UserID).Msg("lock check failed")
		return
	}
	if locked {
		w.log.Debug().Str("job_id", job.ID).Str("user_id", job.UserID).Msg("user busy, skipping job")
		return
	}

	w.mu.Lock()
	w.processing[job.ID] = struct{}{}
	metrics.SetJobsInFlight(len(w.processing))
	w.mu.Unlock()

	release = false
	w.wg.Add(1)
	go w.process(jobCtx, job, sem)
}

func (w *Worker) process(ctx context.Context, job *model.Job, sem *semaphore.Weighted) {
	defer w.finish(job.ID, sem)

	log := w.log.With().
		Str("job_id", job.ID).
		Str("user_id", job.UserID).
		Str("channel", string(job.Channel)).
		Logger()

	if err := w.locks.Lock(ctx, job.UserID, w.cfg.MaxJobProcessingTime); err != nil {
		// Another worker won the user; the job stays pending and a later
		// poll cycle retries it.
		if errors.Is(err, domain.ErrUserBusy) {
			log.Warn().Msg("lost user lock race, leaving job pending")
		} else {
			log.Error().Err(err).Msg("user lock failed")
		}
		return
	}
	unlock := true
	defer func() {
		if !unlock {
			return
		}
		if err := w.locks.Unlock(context.Background(), job.UserID); err != nil {
			log.Error().Err(err).Msg("failed to unlock user")
		}
	}()

	if err := w.jobs.UpdateStatus(ctx, job.ID, model.JobStatusProcessing, nil); err != nil {
		log.Error().Err(err).Msg("failed to mark job processing")
		return
	}
	log.Info().Msg("processing job")

	start := time.Now()
	answer, err := w.callAnswer(ctx, job)
	elapsed := time.Since(start)

	if w.isForced() {
		// Hard teardown: the job stays `processing` in the store and the
		// user lease expires on its own. No terminal write, no delivery.
		unlock = false
		log.Warn().Msg("force stopped mid-job, abandoning")
		return
	}

	// Terminal writes and delivery use a background context so a shutdown of
	// the poll loop cannot lose a finished result.
	if err != nil {
		now := time.Now()
		result := &model.JobResult{
			Error:            err.Error(),
			FailedAt:         &now,
			ProcessingTimeMs: elapsed.Milliseconds(),
		}
		if uerr := w.jobs.UpdateStatus(context.Background(), job.ID, model.JobStatusFailed, result); uerr != nil {
			log.Error().Err(uerr).Msg("failed to store failed status")
		}
		metrics.IncJobProcessed(string(model.JobStatusFailed), string(job.Channel))
		log.Error().Err(err).Dur("duration", elapsed).Msg("job failed")
		if rerr := w.router.RouteFailure(context.Background(), job, err.Error()); rerr != nil {
			log.Error().Err(rerr).Msg("failure delivery error")
		}
		return
	}

	now := time.Now()
	result := &model.JobResult{
		Response:         answer.Text,
		CompletedAt:      &now,
		ProcessingTimeMs: elapsed.Milliseconds(),
	}
	if uerr := w.jobs.UpdateStatus(context.Background(), job.ID, model.JobStatusCompleted, result); uerr != nil {
		log.Error().Err(uerr).Msg("failed to store completed status")
	}
	metrics.IncJobProcessed(string(model.JobStatusCompleted), string(job.Channel))
	log.Info().Dur("duration", elapsed).Str("provider", answer.Provider).Msg("job completed")
	if rerr := w.router.RouteSuccess(context.Background(), job, answer); rerr != nil {
		log.Error().Err(rerr).Msg("success delivery error")
	}
}

// callAnswer races the answer service against the per-job budget. A timer
// fire means "stop waiting and mark failed"; the remote call is not aborted.
func (w *Worker) callAnswer(ctx context.Context, job *model.Job) (*adapter.Answer, error) {
	type outcome struct {
		answer *adapter.Answer
		err    error
	}
	ch := make(chan outcome, 1)
	go func() {
		hints := adapter.ProviderHints{
			Provider: job.ChannelData["provider"],
			Model:    job.ChannelData["model"],
		}
		a, err := w.answer.Answer(ctx, job.Prompt, hints)
		ch <- outcome{a, err}
	}()

	timer := time.NewTimer(w.cfg.MaxJobProcessingTime)
	defer timer.Stop()
	select {
	case out := <-ch:
		return out.answer, out.err
	case <-timer.C:
		return nil, domain.ErrAnswerTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// finish releases the slot on the semaphore the job was admitted under, which
// may no longer be w.sem if the worker was force stopped and restarted while
// the body was still running.
func (w *Worker) finish(jobID string, sem *semaphore.Weighted) {
	w.mu.Lock()
	delete(w.processing, jobID)
	metrics.SetJobsInFlight(len(w.processing))
	w.mu.Unlock()
	sem.Release(1)
	w.wg.Done()
}

// Stop halts polling and waits (bounded) for in-flight jobs to finish.
func (w *Worker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	cancel := w.cancelLoop
	w.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		w.log.Info().Msg("worker stopped")
		return nil
	case <-time.After(stopWait):
		return fmt.Errorf("stop timed out after %s with %d jobs in flight", stopWait, w.activeCount())
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ForceStop halts polling and abandons in-flight jobs immediately. Abandoned
// jobs remain `processing` in the store until their record and lease expire;
// there is no automatic requeue.
func (w *Worker) ForceStop() {
	w.mu.Lock()
	w.running = false
	w.forced = true
	cancelLoop := w.cancelLoop
	cancelJobs := w.cancelJobs
	w.processing = map[string]struct{}{}
	metrics.SetJobsInFlight(0)
	w.mu.Unlock()
	if cancelLoop != nil {
		cancelLoop()
	}
	if cancelJobs != nil {
		cancelJobs()
	}
	w.log.Warn().Msg("worker force stopped")
}

func (w *Worker) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	ids := make([]string, 0, len(w.processing))
	for id := range w.processing {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	var budget time.Duration
	if w.running && w.cfg.MaxExecutionTime > 0 {
		budget = w.cfg.MaxExecutionTime - time.Since(w.startTime)
		if budget < 0 {
			budget = 0
		}
	}
	return Status{
		Running:         w.running,
		ActiveJobs:      ids,
		ActiveCount:     len(ids),
		BudgetRemaining: budget,
	}
}

// markStopped reconciles the running flag when the loop exits on its own,
// so Status never reports a worker whose loop is gone.
func (w *Worker) markStopped() {
	w.mu.Lock()
	w.running = false
	w.mu.Unlock()
}

func (w *Worker) isRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *Worker) isForced() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.forced
}

func (w *Worker) activeCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.processing)
}
