package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
)

// NewPgxPool opens a connection pool against the given DSN.
func NewPgxPool(ctx context.Context, dsn string, maxConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return pgxpool.ConnectConfig(cctx, cfg)
}

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
  id           TEXT PRIMARY KEY,
  status       TEXT NOT NULL,
  channel      TEXT NOT NULL,
  user_id      TEXT NOT NULL,
  prompt       TEXT NOT NULL,
  channel_data JSONB NOT NULL DEFAULT '{}'::jsonb,
  priority     TEXT NOT NULL DEFAULT 'normal',
  result       JSONB,
  created_at   TIMESTAMPTZ NOT NULL,
  updated_at   TIMESTAMPTZ NOT NULL,
  expires_at   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS jobs_status_created_idx  ON jobs (status, created_at);
CREATE INDEX IF NOT EXISTS jobs_user_created_idx    ON jobs (user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS jobs_channel_created_idx ON jobs (channel, created_at DESC);
CREATE INDEX IF NOT EXISTS jobs_expires_idx         ON jobs (expires_at);

CREATE TABLE IF NOT EXISTS user_profiles (
  user_id               TEXT PRIMARY KEY,
  push_token            TEXT NOT NULL DEFAULT '',
  notifications_enabled BOOLEAN NOT NULL DEFAULT TRUE,
  app_version           TEXT NOT NULL DEFAULT '',
  updated_at            TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// EnsureSchema creates the tables and indexes if they do not exist yet.
// Idempotent; safe to run at every startup.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, schema)
	return err
}
