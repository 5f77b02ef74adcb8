package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/playbind/server/internal/repository/position"
)

type savedPosition struct {
	Seconds   float64 `redis:"seconds"`
	UpdatedAt int64   `redis:"updated_at"`
}

type repo struct {
	rc             *redis.Client
	expireDuration time.Duration
}

func NewRepo(rc *redis.Client, expireDuration time.Duration) *repo {
	return &repo{
		rc:             rc,
		expireDuration: expireDuration,
	}
}

func (r repo) getPositionKey(sourceURL string) string {
	return "position:" + sourceURL
}

func (r repo) SetPosition(ctx context.Context, params *position.SetPositionParams) error {
	positionKey := r.getPositionKey(params.SourceURL)

	saved := savedPosition{
		Seconds:   params.Seconds,
		UpdatedAt: params.UpdatedAt,
	}
	if err := r.rc.HSet(ctx, positionKey, saved).Err(); err != nil {
		return fmt.Errorf("failed to set position: %w", err)
	}

	r.rc.Expire(ctx, positionKey, r.expireDuration)

	return nil
}

func (r repo) GetPosition(ctx context.Context, sourceURL string) (float64, error) {
	positionKey := r.getPositionKey(sourceURL)

	seconds, err := r.rc.HGet(ctx, positionKey, "seconds").Float64()
	if err != nil {
		if err == redis.Nil {
			return 0, position.ErrPositionNotFound
		}
		return 0, fmt.Errorf("failed to get position: %w", err)
	}

	r.rc.Expire(ctx, positionKey, r.expireDuration)

	return seconds, nil
}

func (r repo) RemovePosition(ctx context.Context, sourceURL string) error {
	positionKey := r.getPositionKey(sourceURL)

	res, err := r.rc.Del(ctx, positionKey).Result()
	if err != nil {
		return fmt.Errorf("failed to remove position: %w", err)
	}

	if res == 0 {
		return position.ErrPositionNotFound
	}

	return nil
}
