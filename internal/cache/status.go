package cache

import (
	"context"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const (
	jobStatusHash  = "extraction:job:status"
	fileStatusHash = "extraction:file:status"
)

// StatusCache mirrors job and file statuses for cheap poll reads.
type StatusCache interface {
	SetJobStatus(ctx context.Context, jobID, status string) error
	GetJobStatus(ctx context.Context, jobID string) (string, error)
	SetFileStatus(ctx context.Context, fileID, status string) error
	GetFileStatus(ctx context.Context, fileID string) (string, error)
}

var _ StatusCache = (*RedisStatusCache)(nil)

// RedisStatusCache keeps the latest job and file statuses in redis
// hashes. Writes are best effort, the store stays the source of truth.
type RedisStatusCache struct {
	client *redis.Client
}

func NewRedisStatusCache(addr string) *RedisStatusCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: "", // No password set
		DB:       0,  // Use default DB
		Protocol: 2,  // Connection protocol
	})

	return &RedisStatusCache{client: client}
}

func (r *RedisStatusCache) SetJobStatus(ctx context.Context, jobID, status string) error {
	if err := r.client.HSet(ctx, jobStatusHash, jobID, status).Err(); err != nil {
		return err
	}
	return r.client.Expire(ctx, jobStatusHash, time.Hour).Err()
}

func (r *RedisStatusCache) GetJobStatus(ctx context.Context, jobID string) (string, error) {
	return r.client.HGet(ctx, jobStatusHash, jobID).Result()
}

func (r *RedisStatusCache) SetFileStatus(ctx context.Context, fileID, status string) error {
	if err := r.client.HSet(ctx, fileStatusHash, fileID, status).Err(); err != nil {
		return err
	}
	return r.client.Expire(ctx, fileStatusHash, time.Hour).Err()
}

func (r *RedisStatusCache) GetFileStatus(ctx context.Context, fileID string) (string, error) {
	return r.client.HGet(ctx, fileStatusHash, fileID).Result()
}
