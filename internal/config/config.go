// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type ServerConfig struct {
	Port        int           `yaml:"port"`
	AdminAPIKey string        `yaml:"admin_api_key"`
	SessionKey  string        `yaml:"session_key"` // HMAC secret for admin session JWTs
	SessionTTL  time.Duration `yaml:"session_ttl"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type AIConfig struct {
	OpenAIKey       string `yaml:"openai_key"`
	GeminiKey       string `yaml:"gemini_key"`
	GeminiURL       string `yaml:"gemini_url"`
	DefaultProvider string `yaml:"default_provider"` // openai | gemini
	DefaultModel    string `yaml:"default_model"`
	MaxPromptTokens int    `yaml:"max_prompt_tokens"`
	MaxOutputTokens int    `yaml:"max_output_tokens"`
}

type WorkerConfig struct {
	PollInterval         time.Duration `yaml:"poll_interval"`
	MaxConcurrentJobs    int           `yaml:"max_concurrent_jobs"`
	MaxExecutionTime     time.Duration `yaml:"max_execution_time"`
	MaxJobProcessingTime time.Duration `yaml:"max_job_processing_time"`
	Channel              string        `yaml:"channel"` // optional claim filter
	AutoStart            bool          `yaml:"auto_start"`
}

type PushConfig struct {
	ExpoURL     string `yaml:"expo_url"`
	AccessToken string `yaml:"access_token"`
}

type RelayConfig struct {
	Provider      string        `yaml:"provider"` // twilio | telegram
	MaxMessageLen int           `yaml:"max_message_len"`
	PartDelay     time.Duration `yaml:"part_delay"`

	Twilio struct {
		AccountSID string `yaml:"account_sid"`
		AuthToken  string `yaml:"auth_token"`
		From       string `yaml:"from"`
		BaseURL    string `yaml:"base_url"`
	} `yaml:"twilio"`

	Telegram struct {
		Token string `yaml:"token"`
	} `yaml:"telegram"`
}

type RateLimitConfig struct {
	SubmitPerMinute int `yaml:"submit_per_minute"`
}

type JobsConfig struct {
	Retention    time.Duration `yaml:"retention"`
	SweepEvery   time.Duration `yaml:"sweep_every"`
	DefaultLimit int           `yaml:"default_limit"`
}

type Config struct {
	Log       LogConfig       `yaml:"log"`
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	AI        AIConfig        `yaml:"ai"`
	Worker    WorkerConfig    `yaml:"worker"`
	Push      PushConfig      `yaml:"push"`
	Relay     RelayConfig     `yaml:"relay"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Jobs      JobsConfig      `yaml:"jobs"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.SessionTTL <= 0 {
		cfg.Server.SessionTTL = 30 * time.Minute
	}
	if cfg.AI.DefaultProvider == "" {
		cfg.AI.DefaultProvider = "openai"
	}
	if cfg.AI.DefaultModel == "" {
		cfg.AI.DefaultModel = "gpt-4o-mini"
	}
	if cfg.AI.MaxPromptTokens <= 0 {
		cfg.AI.MaxPromptTokens = 4000
	}
	if cfg.AI.MaxOutputTokens <= 0 {
		cfg.AI.MaxOutputTokens = 1024
	}
	if cfg.Worker.PollInterval <= 0 {
		cfg.Worker.PollInterval = 500 * time.Millisecond
	}
	if cfg.Worker.MaxConcurrentJobs <= 0 {
		cfg.Worker.MaxConcurrentJobs = 3
	}
	if cfg.Worker.MaxExecutionTime <= 0 {
		cfg.Worker.MaxExecutionTime = 10 * time.Minute
	}
	if cfg.Worker.MaxJobProcessingTime <= 0 {
		cfg.Worker.MaxJobProcessingTime = 90 * time.Second
	}
	if cfg.Push.ExpoURL == "" {
		cfg.Push.ExpoURL = "https://exp.host/--/api/v2/push/send"
	}
	if cfg.Relay.Provider == "" {
		cfg.Relay.Provider = "twilio"
	}
	if cfg.Relay.MaxMessageLen <= 0 {
		cfg.Relay.MaxMessageLen = 1500
	}
	if cfg.Relay.PartDelay <= 0 {
		cfg.Relay.PartDelay = 500 * time.Millisecond
	}
	if cfg.RateLimit.SubmitPerMinute <= 0 {
		cfg.RateLimit.SubmitPerMinute = 10
	}
	if cfg.Jobs.Retention <= 0 {
		cfg.Jobs.Retention = 10 * time.Minute
	}
	if cfg.Jobs.SweepEvery <= 0 {
		cfg.Jobs.SweepEvery = time.Minute
	}
	if cfg.Jobs.DefaultLimit <= 0 {
		cfg.Jobs.DefaultLimit = 50
	}

	// env overrides for secrets so they can live in .env instead of the yaml
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.AI.OpenAIKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.AI.GeminiKey = v
	}
	if v := os.Getenv("ADMIN_API_KEY"); v != "" {
		cfg.Server.AdminAPIKey = v
	}

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}
