package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"askline/internal/domain"
	"askline/internal/domain/model"
	"askline/internal/infra/worker"
	"askline/internal/usecase"
)

// ---- Fakes ----

type fakeJobUC struct {
	enqueueErr error
	getErr     error
	jobs       map[string]*model.Job
}

func newFakeJobUC() *fakeJobUC {
	return &fakeJobUC{jobs: map[string]*model.Job{}}
}

func (f *fakeJobUC) Enqueue(ctx context.Context, in usecase.EnqueueInput) (*model.Job, error) {
	if f.enqueueErr != nil {
		return nil, f.enqueueErr
	}
	job := model.NewJob(fmt.Sprintf("job-%d", len(f.jobs)+1), in.Channel, in.UserID, in.Prompt, in.ChannelData, in.Priority)
	f.jobs[job.ID] = job
	return job, nil
}

func (f *fakeJobUC) Get(ctx context.Context, id, callerUserID string) (*model.Job, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	job, ok := f.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if callerUserID != "" && callerUserID != job.UserID {
		return nil, domain.ErrForbidden
	}
	return job, nil
}

func (f *fakeJobUC) ListByUser(ctx context.Context, userID string, status model.JobStatus, limit int) ([]*model.Job, error) {
	var out []*model.Job
	for _, j := range f.jobs {
		if j.UserID == userID {
			out = append(out, j)
		}
	}
	return out, nil
}

func (f *fakeJobUC) ListByChannel(ctx context.Context, channel model.Channel, limit int) ([]*model.Job, error) {
	var out []*model.Job
	for _, j := range f.jobs {
		if j.Channel == channel {
			out = append(out, j)
		}
	}
	return out, nil
}

type fakeWorkerCtl struct {
	running  bool
	startErr error
}

func (f *fakeWorkerCtl) Start(ctx context.Context) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.running = true
	return nil
}

func (f *fakeWorkerCtl) Stop(ctx context.Context) error {
	f.running = false
	return nil
}

func (f *fakeWorkerCtl) ForceStop() { f.running = false }

func (f *fakeWorkerCtl) Status() worker.Status {
	return worker.Status{Running: f.running, ActiveJobs: []string{}}
}

func newTestServer(uc usecase.JobUseCase, ctl WorkerControl) *Server {
	logger := zerolog.Nop()
	return NewServer(Config{
		Port:        0,
		AdminAPIKey: "test-key",
		SessionKey:  "test-session-secret",
		SessionTTL:  time.Minute,
		ListLimit:   50,
	}, uc, ctl, nil, &logger)
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// ---- Job endpoints ----

func TestSubmitJobAccepted(t *testing.T) {
	srv := newTestServer(newFakeJobUC(), &fakeWorkerCtl{})

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/v1/jobs", map[string]any{
		"user_id": "u1",
		"channel": "mobile",
		"prompt":  "what is go",
	}, nil)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp jobResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.JobID)
	require.Equal(t, model.JobStatusPending, resp.Status)
}

func TestSubmitJobErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"invalid input", domain.ErrInvalidArgument, http.StatusBadRequest},
		{"user busy", domain.ErrUserBusy, http.StatusTooManyRequests},
		{"internal", errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			uc := newFakeJobUC()
			uc.enqueueErr = tc.err
			srv := newTestServer(uc, &fakeWorkerCtl{})
			rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/v1/jobs", map[string]any{
				"user_id": "u1", "channel": "mobile", "prompt": "q",
			}, nil)
			require.Equal(t, tc.code, rec.Code)
		})
	}
}

func TestGetJob(t *testing.T) {
	uc := newFakeJobUC()
	job, err := uc.Enqueue(context.Background(), usecase.EnqueueInput{Channel: model.ChannelMobile, UserID: "u1", Prompt: "q"})
	require.NoError(t, err)
	srv := newTestServer(uc, &fakeWorkerCtl{})

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/api/v1/jobs/"+job.ID+"?user_id=u1", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv.Handler(), http.MethodGet, "/api/v1/jobs/"+job.ID+"?user_id=intruder", nil, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, srv.Handler(), http.MethodGet, "/api/v1/jobs/missing", nil, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListJobsRequiresScope(t *testing.T) {
	srv := newTestServer(newFakeJobUC(), &fakeWorkerCtl{})
	rec := doJSON(t, srv.Handler(), http.MethodGet, "/api/v1/jobs", nil, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, srv.Handler(), http.MethodGet, "/api/v1/jobs?user_id=u1", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

// ---- Admin / worker control ----

func TestWorkerControlRequiresSession(t *testing.T) {
	srv := newTestServer(newFakeJobUC(), &fakeWorkerCtl{})

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/v1/worker/start", nil, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, srv.Handler(), http.MethodGet, "/api/v1/worker/status", nil, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminLoginAndWorkerControl(t *testing.T) {
	ctl := &fakeWorkerCtl{}
	srv := newTestServer(newFakeJobUC(), ctl)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/v1/admin/login", map[string]string{"api_key": "wrong"}, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, srv.Handler(), http.MethodPost, "/api/v1/admin/login", map[string]string{"api_key": "test-key"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var login map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))
	require.NotEmpty(t, login["token"])

	auth := map[string]string{"Authorization": "Bearer " + login["token"]}

	rec = doJSON(t, srv.Handler(), http.MethodPost, "/api/v1/worker/start", nil, auth)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, ctl.running)

	rec = doJSON(t, srv.Handler(), http.MethodGet, "/api/v1/worker/status", nil, auth)
	require.Equal(t, http.StatusOK, rec.Code)
	var st worker.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	require.True(t, st.Running)

	rec = doJSON(t, srv.Handler(), http.MethodPost, "/api/v1/worker/force-stop", nil, auth)
	require.Equal(t, http.StatusOK, rec.Code)
	require.False(t, ctl.running)
}

func TestWorkerStartConflict(t *testing.T) {
	ctl := &fakeWorkerCtl{startErr: errors.New("worker already running")}
	srv := newTestServer(newFakeJobUC(), ctl)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/v1/admin/login", map[string]string{"api_key": "test-key"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var login map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))

	rec = doJSON(t, srv.Handler(), http.MethodPost, "/api/v1/worker/start", nil,
		map[string]string{"Authorization": "Bearer " + login["token"]})
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(newFakeJobUC(), &fakeWorkerCtl{})
	rec := doJSON(t, srv.Handler(), http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}
