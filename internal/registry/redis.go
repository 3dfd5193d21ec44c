package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/stemworks/api/internal/model"
)

// uploadRetention bounds how long finished jobs stay queryable.
const uploadRetention = 7 * 24 * time.Hour

// RedisStore persists upload jobs as JSON blobs keyed by id.
type RedisStore struct {
	redis *redis.Client
}

func NewRedisStore(redisClient *redis.Client) *RedisStore {
	return &RedisStore{redis: redisClient}
}

func (s *RedisStore) Create(ctx context.Context, job *model.UploadJob) error {
	exists, err := s.redis.Exists(ctx, uploadKey(job.ID)).Result()
	if err != nil {
		return fmt.Errorf("failed to check upload key: %w", err)
	}
	if exists > 0 {
		return ErrAlreadyExists
	}
	return s.save(ctx, job)
}

func (s *RedisStore) Get(ctx context.Context, id string) (*model.UploadJob, error) {
	data, err := s.redis.Get(ctx, uploadKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load upload: %w", err)
	}

	var job model.UploadJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal upload: %w", err)
	}
	return &job, nil
}

func (s *RedisStore) Update(ctx context.Context, job *model.UploadJob) error {
	exists, err := s.redis.Exists(ctx, uploadKey(job.ID)).Result()
	if err != nil {
		return fmt.Errorf("failed to check upload key: %w", err)
	}
	if exists == 0 {
		return ErrNotFound
	}
	return s.save(ctx, job)
}

func (s *RedisStore) save(ctx context.Context, job *model.UploadJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal upload: %w", err)
	}
	return s.redis.Set(ctx, uploadKey(job.ID), data, uploadRetention).Err()
}

func uploadKey(id string) string {
	return fmt.Sprintf("upload:%s", id)
}
