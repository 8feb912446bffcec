package repository

import (
	"context"
	"time"
)

// UserLockService serializes answer generation per user across worker
// processes. The lease is advisory: it is acquired with a
// create-if-absent-or-expired write and simply expires if never released.
type UserLockService interface {
	// Lock acquires the lease for userID. Returns domain.ErrUserBusy when a
	// live lease is already held by someone else.
	Lock(ctx context.Context, userID string, ttl time.Duration) error

	// IsLocked reports whether a live (non-expired) lease exists.
	IsLocked(ctx context.Context, userID string) (bool, error)

	// Unlock deletes the lease unconditionally. Idempotent.
	Unlock(ctx context.Context, userID string) error
}
