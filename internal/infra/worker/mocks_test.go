package worker

import (
	"context"
	"sort"
	"sync"
	"time"

	"askline/internal/domain"
	"askline/internal/domain/model"
	"askline/internal/domain/ports/adapter"
)

type memJobRepo struct {
	mu   sync.Mutex
	byID map[string]*model.Job
}

func newMemJobRepo(jobs ...*model.Job) *memJobRepo {
	m := &memJobRepo{byID: map[string]*model.Job{}}
	for _, j := range jobs {
		cp := *j
		m.byID[j.ID] = &cp
	}
	return m
}

func (m *memJobRepo) Save(ctx context.Context, job *model.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *job
	m.byID[job.ID] = &cp
	return nil
}

func (m *memJobRepo) FindByID(ctx context.Context, id string) (*model.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (m *memJobRepo) UpdateStatus(ctx context.Context, id string, status model.JobStatus, result *model.JobResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	if j.Status.Terminal() && !status.Terminal() {
		return domain.ErrTerminalStatus
	}
	j.Status = status
	j.UpdatedAt = time.Now()
	if result != nil {
		r := *result
		j.Result = &r
	}
	return nil
}

func (m *memJobRepo) ListPendingDue(ctx context.Context, limit int, channel model.Channel) ([]*model.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Job
	for _, j := range m.byID {
		if j.Status != model.JobStatusPending {
			continue
		}
		if channel != "" && j.Channel != channel {
			continue
		}
		cp := *j
		out = append(out, &cp)
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].CreatedAt.Equal(out[b].CreatedAt) {
			return out[a].ID < out[b].ID
		}
		return out[a].CreatedAt.Before(out[b].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memJobRepo) ListByUser(ctx context.Context, userID string, status model.JobStatus, limit int) ([]*model.Job, error) {
	return nil, nil
}

func (m *memJobRepo) ListByChannel(ctx context.Context, channel model.Channel, limit int) ([]*model.Job, error) {
	return nil, nil
}

func (m *memJobRepo) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func (m *memJobRepo) status(id string) model.JobStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j, ok := m.byID[id]; ok {
		return j.Status
	}
	return ""
}

func (m *memJobRepo) result(id string) *model.JobResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j, ok := m.byID[id]; ok && j.Result != nil {
		r := *j.Result
		return &r
	}
	return nil
}

type fakeLock struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func newFakeLock() *fakeLock {
	return &fakeLock{held: map[string]struct{}{}}
}

func (f *fakeLock) Lock(ctx context.Context, userID string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.held[userID]; ok {
		return domain.ErrUserBusy
	}
	f.held[userID] = struct{}{}
	return nil
}

func (f *fakeLock) IsLocked(ctx context.Context, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.held[userID]
	return ok, nil
}

func (f *fakeLock) Unlock(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.held, userID)
	return nil
}

func (f *fakeLock) lockedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.held)
}

type fakeAnswer struct {
	fn func(ctx context.Context, prompt string, hints adapter.ProviderHints) (*adapter.Answer, error)
}

func (f *fakeAnswer) Answer(ctx context.Context, prompt string, hints adapter.ProviderHints) (*adapter.Answer, error) {
	if f.fn != nil {
		return f.fn(ctx, prompt, hints)
	}
	return &adapter.Answer{Text: "answer to: " + prompt, Provider: "fake"}, nil
}

type routedCall struct {
	jobID   string
	message string
}

type fakeRouter struct {
	mu        sync.Mutex
	successes []routedCall
	failures  []routedCall
}

func (f *fakeRouter) RouteSuccess(ctx context.Context, job *model.Job, answer *adapter.Answer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.successes = append(f.successes, routedCall{jobID: job.ID, message: answer.Text})
	return nil
}

func (f *fakeRouter) RouteFailure(ctx context.Context, job *model.Job, errorMessage string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = append(f.failures, routedCall{jobID: job.ID, message: errorMessage})
	return nil
}

func (f *fakeRouter) successCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.successes)
}

func (f *fakeRouter) failureCalls() []routedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]routedCall(nil), f.failures...)
}
