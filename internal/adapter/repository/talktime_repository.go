package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	repo "github.com/salescoach-team/coaching-engine/internal/domain/repositories"
)

const talkTimeKeyPrefix = "coach:talktime:"

type talkTimeRepository struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewTalkTimeRepository creates the Redis-backed per-speaker talk-time
// counters. Counters live in a hash keyed by session id so no two sessions
// ever share a partition.
func NewTalkTimeRepository(rdb *redis.Client, ttl time.Duration) repo.TalkTimeRepository {
	return &talkTimeRepository{rdb: rdb, ttl: ttl}
}

func talkTimeKey(sessionID uuid.UUID) string {
	return talkTimeKeyPrefix + sessionID.String()
}

func (r *talkTimeRepository) Record(ctx context.Context, sessionID uuid.UUID, speaker string, seconds float64) error {
	if speaker == "" || seconds <= 0 {
		return nil
	}

	key := talkTimeKey(sessionID)
	pipe := r.rdb.TxPipeline()
	pipe.HIncrByFloat(ctx, key, speaker, seconds)
	pipe.Expire(ctx, key, r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record talk time: %w", err)
	}
	return nil
}

func (r *talkTimeRepository) Totals(ctx context.Context, sessionID uuid.UUID) (map[string]float64, error) {
	fields, err := r.rdb.HGetAll(ctx, talkTimeKey(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read talk time: %w", err)
	}

	totals := make(map[string]float64, len(fields))
	for speaker, value := range fields {
		seconds, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("corrupt talk-time counter for %q: %w", speaker, err)
		}
		totals[speaker] = seconds
	}
	return totals, nil
}
