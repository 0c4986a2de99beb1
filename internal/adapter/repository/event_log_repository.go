package repository

import (
	"context"
	"fmt"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"gorm.io/gorm"

	"github.com/salescoach-team/coaching-engine/internal/domain/entities"
	repo "github.com/salescoach-team/coaching-engine/internal/domain/repositories"
)

type eventLogRepository struct {
	db *gorm.DB
}

// NewEventLogRepository creates the GORM-backed append-only log of dispatched
// coaching events.
func NewEventLogRepository(db *gorm.DB) repo.EventLogRepository {
	return &eventLogRepository{db: db}
}

// AppendEvent inserts one event record, retrying briefly on transient
// database errors. The caller treats a final failure as a soft miss.
func (r *eventLogRepository) AppendEvent(ctx context.Context, record *entities.CoachingEventRecord) error {
	insertFn := func() error {
		return r.db.WithContext(ctx).Create(record).Error
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxInterval = 2 * time.Second
	bo.MaxElapsedTime = 5 * time.Second

	if err := backoff.Retry(insertFn, backoff.WithContext(bo, ctx)); err != nil {
		return fmt.Errorf("failed to append event record: %w", err)
	}
	return nil
}
