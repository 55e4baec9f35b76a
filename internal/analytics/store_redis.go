package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "bulkjob:"

// RedisStore is a JobStore backed by Redis. Each job is stored wholesale as
// one JSON value; updates replace the value, matching the copy-on-write
// snapshot contract of JobStore. Finished jobs expire after the configured
// retention instead of accumulating forever.
//
// Jobs still run in-process; Redis only holds their observable state, so
// pollers can be served by any replica sharing the same Redis.
type RedisStore struct {
	client    *redis.Client
	retention time.Duration // TTL applied once a job reaches a terminal state; 0 keeps forever
}

// NewRedisStore creates a Redis-backed job store.
func NewRedisStore(client *redis.Client, retention time.Duration) *RedisStore {
	return &RedisStore{client: client, retention: retention}
}

func redisKey(id uuid.UUID) string {
	return redisKeyPrefix + id.String()
}

// Create allocates a new pending job.
func (s *RedisStore) Create(ctx context.Context) (uuid.UUID, error) {
	id := uuid.New()
	if err := s.put(ctx, NewJobRecord(id)); err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// Get returns the stored snapshot of the job.
func (s *RedisStore) Get(ctx context.Context, id uuid.UUID) (*JobRecord, error) {
	data, err := s.client.Get(ctx, redisKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading job %s: %w", id, err)
	}

	var job JobRecord
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("decoding job %s: %w", id, err)
	}
	return &job, nil
}

// Update applies mutate to the current record and writes it back. The
// read-modify-write is safe without a lock because each job has a single
// writer (the owning orchestrator goroutine).
func (s *RedisStore) Update(ctx context.Context, id uuid.UUID, mutate func(*JobRecord)) error {
	job, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	mutate(job)
	return s.put(ctx, job)
}

func (s *RedisStore) put(ctx context.Context, job *JobRecord) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encoding job %s: %w", job.ID, err)
	}

	var ttl time.Duration // 0 = no expiration
	if job.Status.Terminal() && s.retention > 0 {
		ttl = s.retention
	}

	if err := s.client.Set(ctx, redisKey(job.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("writing job %s: %w", job.ID, err)
	}
	return nil
}
