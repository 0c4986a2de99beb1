package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/salescoach-team/coaching-engine/internal/domain/entities"
	repo "github.com/salescoach-team/coaching-engine/internal/domain/repositories"
)

const bufferKeyPrefix = "coach:buffer:"

type contextBufferRepository struct {
	rdb    *redis.Client
	maxLen int
	ttl    time.Duration
}

// NewContextBufferRepository creates the Redis-backed rolling transcript
// buffer. Capacity bounds memory during long calls; the TTL bounds memory for
// sessions that were never closed cleanly.
func NewContextBufferRepository(rdb *redis.Client, maxLen int, ttl time.Duration) repo.ContextBufferRepository {
	return &contextBufferRepository{rdb: rdb, maxLen: maxLen, ttl: ttl}
}

func bufferKey(sessionID uuid.UUID) string {
	return bufferKeyPrefix + sessionID.String()
}

// Append pushes the chunk to the head of the list, trims to capacity and
// refreshes the TTL. The three commands run in one pipeline so a half-applied
// append is never observable.
func (r *contextBufferRepository) Append(ctx context.Context, sessionID uuid.UUID, chunk entities.TranscriptChunk) error {
	data, err := json.Marshal(chunk)
	if err != nil {
		return fmt.Errorf("failed to marshal chunk: %w", err)
	}

	key := bufferKey(sessionID)
	pipe := r.rdb.TxPipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, int64(r.maxLen-1))
	pipe.Expire(ctx, key, r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append chunk: %w", err)
	}
	return nil
}

// Snapshot returns up to limit chunks oldest-first. LRANGE is a single
// command, so the read is a consistent point-in-time view.
func (r *contextBufferRepository) Snapshot(ctx context.Context, sessionID uuid.UUID, limit int) ([]entities.TranscriptChunk, error) {
	if limit <= 0 || limit > r.maxLen {
		limit = r.maxLen
	}

	raw, err := r.rdb.LRange(ctx, bufferKey(sessionID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read buffer: %w", err)
	}

	// List head is the newest chunk; reverse into append order.
	chunks := make([]entities.TranscriptChunk, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		var chunk entities.TranscriptChunk
		if err := json.Unmarshal([]byte(raw[i]), &chunk); err != nil {
			return nil, fmt.Errorf("failed to unmarshal chunk: %w", err)
		}
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}
