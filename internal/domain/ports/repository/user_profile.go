package repository

import (
	"context"

	"askline/internal/domain/model"
)

type UserProfileRepository interface {
	FindByID(ctx context.Context, userID string) (*model.UserProfile, error)
	Save(ctx context.Context, profile *model.UserProfile) error

	// RemovePushToken clears a stored token the push gateway reported as
	// invalid. Idempotent.
	RemovePushToken(ctx context.Context, userID string) error
}
