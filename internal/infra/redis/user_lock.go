// File: internal/infra/redis/user_lock.go
package redis

import (
	"context"
	"time"

	"askline/internal/domain"
	"askline/internal/domain/ports/repository"
)

var _ repository.UserLockService = (*UserLock)(nil)

// UserLock is the per-user answer-generation lease. Acquisition is a
// create-if-absent write with a TTL, so an expired lease is indistinguishable
// from an absent one. Unlock is an unconditional delete: the lease carries no
// holder token, matching the "one answer in flight per user" contract where
// whoever finishes the job releases the user.
type UserLock struct {
	cli RedisClient
}

func NewUserLock(cli RedisClient) *UserLock {
	return &UserLock{cli: cli}
}

func lockKey(userID string) string { return "user_lock:" + userID }

func (l *UserLock) Lock(ctx context.Context, userID string, ttl time.Duration) error {
	ok, err := l.cli.SetNX(ctx, lockKey(userID), "locked", ttl)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrUserBusy
	}
	return nil
}

func (l *UserLock) IsLocked(ctx context.Context, userID string) (bool, error) {
	return l.cli.Exists(ctx, lockKey(userID))
}

func (l *UserLock) Unlock(ctx context.Context, userID string) error {
	return l.cli.Del(ctx, lockKey(userID))
}
