package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"askline/internal/config"
	"askline/internal/domain/model"
	"askline/internal/domain/ports/adapter"
	"askline/internal/domain/ports/repository"
	aiAdapters "askline/internal/infra/adapters/ai"
	"askline/internal/infra/adapters/push"
	"askline/internal/infra/adapters/textmsg"
	pg "askline/internal/infra/db/postgres"
	"askline/internal/infra/logging"
	"askline/internal/infra/metrics"
	red "askline/internal/infra/redis"
	"askline/internal/infra/router"
	"askline/internal/infra/sched"
	"askline/internal/infra/web"
	"askline/internal/infra/worker"
	"askline/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_ = godotenv.Load()

	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, noop AI fallback)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("developer mode enabled")
	}

	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connect")
	}
	defer pool.Close()
	if err := pg.EnsureSchema(ctx, pool); err != nil {
		logger.Fatal().Err(err).Msg("postgres schema")
	}

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connect")
	}
	defer redisClient.Close()
	userLock := red.NewUserLock(redisClient)
	rateLimiter := red.NewRateLimiter(redisClient)

	// ---- Repositories ----
	jobRepo := pg.NewJobRepo(pool)
	var profileRepo repository.UserProfileRepository = pg.NewUserProfileRepo(pool)
	cachedProfiles := pg.NewCachedUserProfileRepo(profileRepo, 5*time.Minute)
	defer cachedProfiles.Stop()
	profileRepo = cachedProfiles

	// ---- Answer service ----
	multi := aiAdapters.NewMultiAnswerer(cfg.AI.DefaultProvider, logger)
	if cfg.AI.OpenAIKey != "" {
		oa, err := aiAdapters.NewOpenAIAnswerer(cfg.AI.OpenAIKey, cfg.AI.DefaultModel, cfg.AI.MaxPromptTokens, cfg.AI.MaxOutputTokens)
		if err != nil {
			logger.Fatal().Err(err).Msg("openai answerer")
		}
		multi.Register("openai", oa)
	}
	if cfg.AI.GeminiKey != "" {
		ga, err := aiAdapters.NewGeminiAnswerer(ctx, cfg.AI.GeminiKey, cfg.AI.GeminiURL, cfg.AI.DefaultModel, cfg.AI.MaxOutputTokens)
		if err != nil {
			logger.Fatal().Err(err).Msg("gemini answerer")
		}
		multi.Register("gemini", ga)
	}
	if cfg.Runtime.Dev {
		multi.Register("noop", aiAdapters.NewNoopAnswerer())
	}

	// ---- Delivery ----
	pushGW := push.NewExpoGateway(cfg.Push.ExpoURL, cfg.Push.AccessToken)

	var transport adapter.TextTransport
	switch strings.ToLower(cfg.Relay.Provider) {
	case "telegram":
		transport, err = textmsg.NewTelegramTransport(cfg.Relay.Telegram.Token)
	default:
		transport, err = textmsg.NewTwilioTransport(cfg.Relay.Twilio.AccountSID, cfg.Relay.Twilio.AuthToken, cfg.Relay.Twilio.From, cfg.Relay.Twilio.BaseURL)
	}
	if err != nil {
		logger.Fatal().Err(err).Str("provider", cfg.Relay.Provider).Msg("relay transport")
	}

	rtr := router.New(logger)
	rtr.Register(model.ChannelMobile, router.NewMobileDeliverer(profileRepo, pushGW, logger))
	rtr.Register(model.ChannelTextRelay, router.NewRelayDeliverer(transport, cfg.Relay.MaxMessageLen, cfg.Relay.PartDelay, logger))

	// ---- Use cases ----
	jobUC := usecase.NewJobUseCase(jobRepo, userLock, cfg.Jobs.Retention, logger)

	// ---- Worker ----
	wk := worker.New(worker.Config{
		PollInterval:         cfg.Worker.PollInterval,
		MaxConcurrentJobs:    cfg.Worker.MaxConcurrentJobs,
		MaxExecutionTime:     cfg.Worker.MaxExecutionTime,
		MaxJobProcessingTime: cfg.Worker.MaxJobProcessingTime,
		Channel:              model.Channel(cfg.Worker.Channel),
	}, jobRepo, userLock, multi, rtr, logger)
	if cfg.Worker.AutoStart {
		if err := wk.Start(ctx); err != nil {
			logger.Fatal().Err(err).Msg("worker start")
		}
	}

	// ---- Janitor ----
	janitor := sched.NewJanitor(cfg.Jobs.SweepEvery, jobRepo, logger)
	go func() { _ = janitor.Run(ctx) }()

	// ---- HTTP ----
	srv := web.NewServer(web.Config{
		Port:          cfg.Server.Port,
		AdminAPIKey:   cfg.Server.AdminAPIKey,
		SessionKey:    cfg.Server.SessionKey,
		SessionTTL:    cfg.Server.SessionTTL,
		SubmitPerMin:  cfg.RateLimit.SubmitPerMinute,
		ListLimit:     cfg.Jobs.DefaultLimit,
		SecureCookies: !cfg.Runtime.Dev,
	}, jobUC, wk, rateLimiter, logger)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Error().Err(err).Msg("http server error")
			cancel()
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigc:
	case <-ctx.Done():
	}
	logger.Info().Msg("shutdown requested")

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer stopCancel()
	if err := wk.Stop(stopCtx); err != nil {
		logger.Warn().Err(err).Msg("worker did not drain cleanly")
	}
	if err := srv.Shutdown(stopCtx); err != nil {
		logger.Warn().Err(err).Msg("http shutdown error")
	}
	cancel()
}
