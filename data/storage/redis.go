package storage

import (
	"context"
	"errors"
	"log/slog"

	"github.com/KotFed0t/asset_tracker/utils"
	"github.com/redis/go-redis/v9"
)

type RedisStorage struct {
	redis *redis.Client
}

func NewRedisStorage(redisClient *redis.Client) *RedisStorage {
	return &RedisStorage{redis: redisClient}
}

func (r *RedisStorage) Get(ctx context.Context, key string) ([]byte, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "RedisStorage.Get"

	slog.Debug("Get start", slog.String("rqID", rqID), slog.String("op", op), slog.String("key", key))

	data, err := r.redis.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		slog.Error("failed on redis.Get", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	slog.Debug("Get completed", slog.String("rqID", rqID), slog.String("op", op), slog.Int("bytes", len(data)))

	return data, nil
}

// Set stores the value without expiry.
func (r *RedisStorage) Set(ctx context.Context, key string, value []byte) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "RedisStorage.Set"

	slog.Debug("Set start", slog.String("rqID", rqID), slog.String("op", op), slog.String("key", key), slog.Int("bytes", len(value)))

	err := r.redis.Set(ctx, key, value, 0).Err()
	if err != nil {
		slog.Error("failed on redis.Set", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	slog.Debug("Set completed", slog.String("rqID", rqID), slog.String("op", op))

	return nil
}
