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

const snapshotKeyPrefix = "coach:session:"

type sessionSnapshotRepository struct {
	rdb       *redis.Client
	retention time.Duration
}

// NewSessionSnapshotRepository creates the Redis-backed store for final
// session metadata flushed at close, kept for a bounded retention window.
func NewSessionSnapshotRepository(rdb *redis.Client, retention time.Duration) repo.SessionSnapshotRepository {
	return &sessionSnapshotRepository{rdb: rdb, retention: retention}
}

func snapshotKey(sessionID uuid.UUID) string {
	return snapshotKeyPrefix + sessionID.String()
}

func (r *sessionSnapshotRepository) Save(ctx context.Context, snapshot entities.SessionSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal session snapshot: %w", err)
	}

	if err := r.rdb.Set(ctx, snapshotKey(snapshot.ID), data, r.retention).Err(); err != nil {
		return fmt.Errorf("failed to save session snapshot: %w", err)
	}
	return nil
}

func (r *sessionSnapshotRepository) Get(ctx context.Context, sessionID uuid.UUID) (*entities.SessionSnapshot, error) {
	data, err := r.rdb.Get(ctx, snapshotKey(sessionID)).Bytes()
	if err == redis.Nil {
		return nil, entities.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session snapshot: %w", err)
	}

	var snapshot entities.SessionSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session snapshot: %w", err)
	}
	return &snapshot, nil
}
