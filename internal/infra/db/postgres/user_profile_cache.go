package postgres

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"askline/internal/domain/model"
	"askline/internal/domain/ports/repository"
)

var _ repository.UserProfileRepository = (*CachedUserProfileRepo)(nil)

// CachedUserProfileRepo is a read-through TTL cache over the profile repo.
// Every delivery of a mobile answer reads the profile; caching keeps the hot
// path off the database. Writes invalidate the entry.
type CachedUserProfileRepo struct {
	inner repository.UserProfileRepository
	cache *ttlcache.Cache[string, *model.UserProfile]
}

func NewCachedUserProfileRepo(inner repository.UserProfileRepository, ttl time.Duration) *CachedUserProfileRepo {
	if ttl <= 0 {
		ttl = time.Minute
	}
	c := ttlcache.New(
		ttlcache.WithTTL[string, *model.UserProfile](ttl),
		ttlcache.WithDisableTouchOnHit[string, *model.UserProfile](),
	)
	go c.Start()
	return &CachedUserProfileRepo{inner: inner, cache: c}
}

func (r *CachedUserProfileRepo) FindByID(ctx context.Context, userID string) (*model.UserProfile, error) {
	if item := r.cache.Get(userID); item != nil {
		return item.Value(), nil
	}
	p, err := r.inner.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	r.cache.Set(userID, p, ttlcache.DefaultTTL)
	return p, nil
}

func (r *CachedUserProfileRepo) Save(ctx context.Context, p *model.UserProfile) error {
	if err := r.inner.Save(ctx, p); err != nil {
		return err
	}
	r.cache.Delete(p.UserID)
	return nil
}

func (r *CachedUserProfileRepo) RemovePushToken(ctx context.Context, userID string) error {
	if err := r.inner.RemovePushToken(ctx, userID); err != nil {
		return err
	}
	r.cache.Delete(userID)
	return nil
}

func (r *CachedUserProfileRepo) Stop() { r.cache.Stop() }
