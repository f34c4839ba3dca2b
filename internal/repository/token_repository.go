package repository

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationRepository tracks access tokens invalidated before their expiry.
type RevocationRepository interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
	// RevokeIssuedBefore invalidates every token of the user issued before cutoff.
	RevokeIssuedBefore(ctx context.Context, userID string, cutoff time.Time, ttl time.Duration) error
	// IssuedCutoff returns the user's cutoff, zero when none is active.
	IssuedCutoff(ctx context.Context, userID string) (time.Time, error)
}

type redisRevocationRepository struct {
	client     redis.Cmdable
	prefix     string
	userPrefix string
}

// NewRedisRevocationRepository stores revoked token ids as expiring keys.
func NewRedisRevocationRepository(client redis.Cmdable, prefix string) RevocationRepository {
	if prefix == "" {
		prefix = "devlab"
	}
	return &redisRevocationRepository{client: client, prefix: prefix + ":revoked:", userPrefix: prefix + ":revoked-before:"}
}

func (r *redisRevocationRepository) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, r.prefix+tokenID, 1, ttl).Err()
}

func (r *redisRevocationRepository) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	err := r.client.Get(ctx, r.prefix+tokenID).Err()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, redis.Nil):
		return false, nil
	default:
		return false, err
	}
}

func (r *redisRevocationRepository) RevokeIssuedBefore(ctx context.Context, userID string, cutoff time.Time, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, r.userPrefix+userID, cutoff.Unix(), ttl).Err()
}

func (r *redisRevocationRepository) IssuedCutoff(ctx context.Context, userID string) (time.Time, error) {
	raw, err := r.client.Get(ctx, r.userPrefix+userID).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return time.Time{}, nil
	case err != nil:
		return time.Time{}, err
	}
	secs, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(secs, 0), nil
}
