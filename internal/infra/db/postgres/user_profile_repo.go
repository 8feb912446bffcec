package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"askline/internal/domain"
	"askline/internal/domain/model"
	"askline/internal/domain/ports/repository"
)

var _ repository.UserProfileRepository = (*UserProfileRepo)(nil)

type UserProfileRepo struct {
	pool *pgxpool.Pool
}

func NewUserProfileRepo(pool *pgxpool.Pool) *UserProfileRepo {
	return &UserProfileRepo{pool: pool}
}

func (r *UserProfileRepo) FindByID(ctx context.Context, userID string) (*model.UserProfile, error) {
	const q = `
SELECT user_id, push_token, notifications_enabled, app_version, updated_at
  FROM user_profiles WHERE user_id=$1;`
	var p model.UserProfile
	err := r.pool.QueryRow(ctx, q, userID).
		Scan(&p.UserID, &p.PushToken, &p.NotificationsEnabled, &p.AppVersion, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *UserProfileRepo) Save(ctx context.Context, p *model.UserProfile) error {
	p.UpdatedAt = time.Now()
	const q = `
INSERT INTO user_profiles (user_id, push_token, notifications_enabled, app_version, updated_at)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (user_id) DO UPDATE SET
  push_token=$2, notifications_enabled=$3, app_version=$4, updated_at=$5;`
	_, err := r.pool.Exec(ctx, q, p.UserID, p.PushToken, p.NotificationsEnabled, p.AppVersion, p.UpdatedAt)
	return err
}

func (r *UserProfileRepo) RemovePushToken(ctx context.Context, userID string) error {
	const q = `UPDATE user_profiles SET push_token='', updated_at=now() WHERE user_id=$1;`
	_, err := r.pool.Exec(ctx, q, userID)
	return err
}
