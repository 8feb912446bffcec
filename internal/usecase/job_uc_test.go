package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"askline/internal/domain"
	"askline/internal/domain/model"
)

func newTestUC(t *testing.T) (*jobUC, *memJobRepo, *fakeLock) {
	t.Helper()
	repo := newMemJobRepo()
	locks := newFakeLock()
	logger := zerolog.Nop()
	return NewJobUseCase(repo, locks, 10*time.Minute, &logger), repo, locks
}

func TestEnqueueStoresPendingJob(t *testing.T) {
	uc, repo, _ := newTestUC(t)

	job, err := uc.Enqueue(context.Background(), EnqueueInput{
		Channel: model.ChannelMobile,
		UserID:  "user-1",
		Prompt:  "  What is the capital of France?  ",
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if job.ID == "" {
		t.Fatalf("expected assigned job id")
	}
	if job.Status != model.JobStatusPending {
		t.Fatalf("expected pending, got %s", job.Status)
	}
	if job.Prompt != "What is the capital of France?" {
		t.Fatalf("expected trimmed prompt, got %q", job.Prompt)
	}
	if !job.ExpiresAt.After(job.CreatedAt) {
		t.Fatalf("expected expiry after creation")
	}

	stored, err := repo.FindByID(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("find stored: %v", err)
	}
	if stored.Status != model.JobStatusPending {
		t.Fatalf("stored job not pending: %s", stored.Status)
	}
}

func TestEnqueueValidation(t *testing.T) {
	uc, _, _ := newTestUC(t)
	ctx := context.Background()

	cases := []struct {
		name string
		in   EnqueueInput
	}{
		{"unknown channel", EnqueueInput{Channel: "carrier-pigeon", UserID: "u", Prompt: "q"}},
		{"empty prompt", EnqueueInput{Channel: model.ChannelMobile, UserID: "u", Prompt: "   "}},
		{"missing user", EnqueueInput{Channel: model.ChannelMobile, Prompt: "q"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := uc.Enqueue(ctx, tc.in); !errors.Is(err, domain.ErrInvalidArgument) {
				t.Fatalf("expected ErrInvalidArgument, got %v", err)
			}
		})
	}
}

func TestEnqueueDerivesRelayUserFromAddress(t *testing.T) {
	uc, _, _ := newTestUC(t)

	job, err := uc.Enqueue(context.Background(), EnqueueInput{
		Channel:     model.ChannelTextRelay,
		Prompt:      "hello",
		ChannelData: map[string]string{"address": "+15550001111"},
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if job.UserID != "relay:+15550001111" {
		t.Fatalf("expected derived relay identity, got %q", job.UserID)
	}
}

func TestEnqueueRejectsBusyUser(t *testing.T) {
	uc, _, locks := newTestUC(t)
	ctx := context.Background()

	if err := locks.Lock(ctx, "user-1", time.Minute); err != nil {
		t.Fatalf("seed lock: %v", err)
	}
	_, err := uc.Enqueue(ctx, EnqueueInput{Channel: model.ChannelMobile, UserID: "user-1", Prompt: "q"})
	if !errors.Is(err, domain.ErrUserBusy) {
		t.Fatalf("expected ErrUserBusy, got %v", err)
	}

	// A different user is unaffected.
	if _, err := uc.Enqueue(ctx, EnqueueInput{Channel: model.ChannelMobile, UserID: "user-2", Prompt: "q"}); err != nil {
		t.Fatalf("enqueue for free user: %v", err)
	}
}

func TestGetEnforcesOwnership(t *testing.T) {
	uc, _, _ := newTestUC(t)
	ctx := context.Background()

	job, err := uc.Enqueue(ctx, EnqueueInput{Channel: model.ChannelMobile, UserID: "owner", Prompt: "q"})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	if _, err := uc.Get(ctx, job.ID, "owner"); err != nil {
		t.Fatalf("owner read: %v", err)
	}
	if _, err := uc.Get(ctx, job.ID, ""); err != nil {
		t.Fatalf("unscoped read: %v", err)
	}
	if _, err := uc.Get(ctx, job.ID, "intruder"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, err := uc.Get(ctx, "no-such-job", "owner"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListByUserFiltersStatus(t *testing.T) {
	uc, repo, _ := newTestUC(t)
	ctx := context.Background()

	a, _ := uc.Enqueue(ctx, EnqueueInput{Channel: model.ChannelMobile, UserID: "u", Prompt: "first"})
	if _, err := uc.Enqueue(ctx, EnqueueInput{Channel: model.ChannelMobile, UserID: "u", Prompt: "second"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	now := time.Now()
	if err := repo.UpdateStatus(ctx, a.ID, model.JobStatusCompleted, &model.JobResult{Response: "ok", CompletedAt: &now}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	done, err := uc.ListByUser(ctx, "u", model.JobStatusCompleted, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(done) != 1 || done[0].ID != a.ID {
		t.Fatalf("expected only the completed job, got %d", len(done))
	}

	all, err := uc.ListByUser(ctx, "u", "", 10)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(all))
	}

	if _, err := uc.ListByUser(ctx, "", "", 10); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for empty user, got %v", err)
	}
	if _, err := uc.ListByUser(ctx, "u", "bogus", 10); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for bogus status, got %v", err)
	}
}

func TestTerminalStatusNeverRegresses(t *testing.T) {
	uc, repo, _ := newTestUC(t)
	ctx := context.Background()

	job, err := uc.Enqueue(ctx, EnqueueInput{Channel: model.ChannelMobile, UserID: "u", Prompt: "q"})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	now := time.Now()
	if err := repo.UpdateStatus(ctx, job.ID, model.JobStatusFailed, &model.JobResult{Error: "boom", FailedAt: &now}); err != nil {
		t.Fatalf("fail: %v", err)
	}
	if err := repo.UpdateStatus(ctx, job.ID, model.JobStatusProcessing, nil); !errors.Is(err, domain.ErrTerminalStatus) {
		t.Fatalf("expected ErrTerminalStatus, got %v", err)
	}
	got, _ := repo.FindByID(ctx, job.ID)
	if got.Status != model.JobStatusFailed {
		t.Fatalf("terminal status changed to %s", got.Status)
	}
}
