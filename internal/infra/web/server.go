package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"askline/internal/infra/worker"
	"askline/internal/usecase"

	redisinfra "askline/internal/infra/redis"
)

// WorkerControl is the slice of the worker the operator endpoints drive.
type WorkerControl interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	ForceStop()
	Status() worker.Status
}

type Config struct {
	Port          int
	AdminAPIKey   string
	SessionKey    string
	SessionTTL    time.Duration
	SubmitPerMin  int
	ListLimit     int
	SecureCookies bool
}

type Server struct {
	cfg     Config
	jobs    usecase.JobUseCase
	workers WorkerControl
	limiter *redisinfra.RateLimiter
	auth    *AuthManager
	log     zerolog.Logger

	httpSrv *http.Server
}

func NewServer(cfg Config, jobs usecase.JobUseCase, workers WorkerControl, limiter *redisinfra.RateLimiter, logger *zerolog.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		jobs:    jobs,
		workers: workers,
		limiter: limiter,
		auth:    NewAuthManager(cfg.SessionKey, cfg.SecureCookies, cfg.SessionTTL),
		log:     logger.With().Str("component", "web").Logger(),
	}
	s.httpSrv = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(TraceID(&s.log))
	r.Use(Recover(&s.log))
	r.Use(RequestLog(&s.log))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/jobs", s.handleSubmitJob)
		r.Get("/jobs", s.handleListJobs)
		r.Get("/jobs/{id}", s.handleGetJob)

		r.Post("/admin/login", s.handleAdminLogin)
		r.Group(func(r chi.Router) {
			r.Use(s.requireAdmin)
			r.Post("/worker/start", s.handleWorkerStart)
			r.Post("/worker/stop", s.handleWorkerStop)
			r.Post("/worker/force-stop", s.handleWorkerForceStop)
			r.Get("/worker/status", s.handleWorkerStatus)
		})
	})

	return r
}

// Start blocks serving HTTP until Shutdown is called or the listener fails.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.httpSrv.Addr).Msg("http server starting")
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.httpSrv.Handler }

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := s.auth.ParseFromRequest(r); err != nil {
			writeError(w, http.StatusUnauthorized, "admin session required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
