// Package signals carries stop requests between the API and running crawls
// through Redis, so a job can be cancelled from any process that shares the
// same Redis instance.
package signals

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Store reads and writes stop sentinels in Redis.
type Store struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewStore initialises a Redis-backed stop signal store.
func NewStore(addr, prefix string, ttl time.Duration) *Store {
	return &Store{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		prefix: prefix,
		ttl:    ttl,
	}
}

// Close closes the Redis client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) key(jobID, stepID string) string {
	return fmt.Sprintf("%sstop:%s:%s", s.prefix, jobID, stepID)
}

// IsCancelled reports whether a stop has been requested for the job step.
// Redis being unreachable reads as "not cancelled" so a broker outage never
// kills running work.
func (s *Store) IsCancelled(ctx context.Context, jobID, stepID string) bool {
	exists, err := s.client.Exists(ctx, s.key(jobID, stepID)).Result()
	if err != nil {
		log.Warn().Err(err).Str("job_id", jobID).Msg("Failed to check stop signal")
		return false
	}
	return exists > 0
}

// RequestStop asks the job step to stop at its next checkpoint.
func (s *Store) RequestStop(ctx context.Context, jobID, stepID string) error {
	if err := s.client.Set(ctx, s.key(jobID, stepID), "1", s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set stop signal: %w", err)
	}
	log.Info().Str("job_id", jobID).Str("step_id", stepID).Msg("Stop requested")
	return nil
}

// ClearStop removes a stop request, typically once the job has acknowledged
// it or before a re-run.
func (s *Store) ClearStop(ctx context.Context, jobID, stepID string) error {
	if err := s.client.Del(ctx, s.key(jobID, stepID)).Err(); err != nil {
		return fmt.Errorf("failed to clear stop signal: %w", err)
	}
	return nil
}
