package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"askline/internal/domain"
	"askline/internal/domain/model"
	"askline/internal/infra/logging"
	redisinfra "askline/internal/infra/redis"
	"askline/internal/usecase"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

type jobResponse struct {
	JobID     string           `json:"job_id"`
	Status    model.JobStatus  `json:"status"`
	Channel   model.Channel    `json:"channel"`
	UserID    string           `json:"user_id"`
	Prompt    string           `json:"prompt,omitempty"`
	Priority  string           `json:"priority,omitempty"`
	Result    *model.JobResult `json:"result,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
	ExpiresAt time.Time        `json:"expires_at"`
}

func toJobResponse(j *model.Job) jobResponse {
	return jobResponse{
		JobID:     j.ID,
		Status:    j.Status,
		Channel:   j.Channel,
		UserID:    j.UserID,
		Prompt:    j.Prompt,
		Priority:  j.Priority,
		Result:    j.Result,
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
		ExpiresAt: j.ExpiresAt,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type submitJobRequest struct {
	UserID      string            `json:"user_id"`
	Channel     string            `json:"channel"`
	Prompt      string            `json:"prompt"`
	ChannelData map[string]string `json:"channel_data"`
	Priority    string            `json:"priority"`
}

func (s *Server) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	var req submitJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	if s.limiter != nil && s.cfg.SubmitPerMin > 0 {
		key := req.UserID
		if key == "" {
			key = r.RemoteAddr
		}
		ok, err := s.limiter.Allow(r.Context(), redisinfra.SubmitKey(key), s.cfg.SubmitPerMin, time.Minute)
		if err == nil && !ok {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
	}

	job, err := s.jobs.Enqueue(r.Context(), usecase.EnqueueInput{
		Channel:     model.Channel(req.Channel),
		UserID:      req.UserID,
		Prompt:      req.Prompt,
		ChannelData: req.ChannelData,
		Priority:    req.Priority,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidArgument):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrUserBusy):
			writeError(w, http.StatusTooManyRequests, "a question is already being processed for this user")
		default:
			logging.With(r.Context(), &s.log).Error().Err(err).Msg("enqueue failed")
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	writeJSON(w, http.StatusAccepted, toJobResponse(job))
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	caller := r.URL.Query().Get("user_id")

	job, err := s.jobs.Get(r.Context(), id, caller)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "job not found")
		case errors.Is(err, domain.ErrForbidden):
			writeError(w, http.StatusForbidden, "job belongs to another user")
		default:
			logging.With(r.Context(), &s.log).Error().Err(err).Msg("get job failed")
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	writeJSON(w, http.StatusOK, toJobResponse(job))
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	userID := q.Get("user_id")
	channel := q.Get("channel")
	status := model.JobStatus(q.Get("status"))

	limit := s.cfg.ListLimit
	if limit <= 0 {
		limit = 50
	}

	var (
		jobs []*model.Job
		err  error
	)
	switch {
	case userID != "":
		jobs, err = s.jobs.ListByUser(r.Context(), userID, status, limit)
	case channel != "":
		jobs, err = s.jobs.ListByChannel(r.Context(), model.Channel(channel), limit)
	default:
		writeError(w, http.StatusBadRequest, "user_id or channel query parameter required")
		return
	}
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		logging.With(r.Context(), &s.log).Error().Err(err).Msg("list jobs failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	out := make([]jobResponse, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, toJobResponse(j))
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": out})
}

type adminLoginRequest struct {
	APIKey string `json:"api_key"`
}

func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var req adminLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if s.cfg.AdminAPIKey == "" || req.APIKey != s.cfg.AdminAPIKey {
		writeError(w, http.StatusUnauthorized, "invalid api key")
		return
	}
	token, err := s.auth.Mint(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) handleWorkerStart(w http.ResponseWriter, r *http.Request) {
	if err := s.workers.Start(r.Context()); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "started"})
}

func (s *Server) handleWorkerStop(w http.ResponseWriter, r *http.Request) {
	if err := s.workers.Stop(r.Context()); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

func (s *Server) handleWorkerForceStop(w http.ResponseWriter, _ *http.Request) {
	s.workers.ForceStop()
	writeJSON(w, http.StatusOK, map[string]string{"status": "force-stopped"})
}

func (s *Server) handleWorkerStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.workers.Status())
}
