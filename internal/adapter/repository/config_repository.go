package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/salescoach-team/coaching-engine/internal/domain/entities"
	repo "github.com/salescoach-team/coaching-engine/internal/domain/repositories"
)

const configKeyPrefix = "coach:config:"

type configRepository struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewConfigRepository creates the Redis-backed per-organization coaching
// config store. Reads return nil when no override exists so callers fall back
// to defaults; writes replace the whole document.
func NewConfigRepository(rdb *redis.Client, ttl time.Duration) repo.ConfigRepository {
	return &configRepository{rdb: rdb, ttl: ttl}
}

func configKey(organizationID string) string {
	return configKeyPrefix + organizationID
}

func (r *configRepository) Get(ctx context.Context, organizationID string) (*entities.CoachingConfig, error) {
	data, err := r.rdb.Get(ctx, configKey(organizationID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	var config entities.CoachingConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &config, nil
}

func (r *configRepository) Save(ctx context.Context, organizationID string, config entities.CoachingConfig) error {
	data, err := json.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := r.rdb.Set(ctx, configKey(organizationID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}
