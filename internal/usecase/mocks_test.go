package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"askline/internal/domain"
	"askline/internal/domain/model"
)

// ---- Fakes ----

type memJobRepo struct {
	mu   sync.Mutex
	byID map[string]*model.Job

	saveErr error
}

func newMemJobRepo() *memJobRepo {
	return &memJobRepo{byID: map[string]*model.Job{}}
}

func (m *memJobRepo) clone(j *model.Job) *model.Job {
	cp := *j
	if j.Result != nil {
		r := *j.Result
		cp.Result = &r
	}
	return &cp
}

func (m *memJobRepo) Save(ctx context.Context, job *model.Job) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[job.ID] = m.clone(job)
	return nil
}

func (m *memJobRepo) FindByID(ctx context.Context, id string) (*model.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return m.clone(j), nil
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
		out = append(out, m.clone(j))
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.Before(out[b].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memJobRepo) ListByUser(ctx context.Context, userID string, status model.JobStatus, limit int) ([]*model.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Job
	for _, j := range m.byID {
		if j.UserID != userID {
			continue
		}
		if status != "" && j.Status != status {
			continue
		}
		out = append(out, m.clone(j))
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.After(out[b].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memJobRepo) ListByChannel(ctx context.Context, channel model.Channel, limit int) ([]*model.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Job
	for _, j := range m.byID {
		if j.Channel != channel {
			continue
		}
		out = append(out, m.clone(j))
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.After(out[b].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memJobRepo) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, j := range m.byID {
		if j.ExpiresAt.Before(cutoff) {
			delete(m.byID, id)
			n++
		}
	}
	return n, nil
}

type fakeLock struct {
	mu     sync.Mutex
	held   map[string]struct{}
	isErr  error
	lckErr error
}

func newFakeLock() *fakeLock {
	return &fakeLock{held: map[string]struct{}{}}
}

func (f *fakeLock) Lock(ctx context.Context, userID string, ttl time.Duration) error {
	if f.lckErr != nil {
		return f.lckErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.held[userID]; ok {
		return domain.ErrUserBusy
	}
	f.held[userID] = struct{}{}
	return nil
}

func (f *fakeLock) IsLocked(ctx context.Context, userID string) (bool, error) {
	if f.isErr != nil {
		return false, f.isErr
	}
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
