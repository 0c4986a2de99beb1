package repositories

import (
	"context"

	"github.com/google/uuid"

	"github.com/salescoach-team/coaching-engine/internal/domain/entities"
)

// ContextBufferRepository is the bounded, TTL-backed rolling window of recent
// transcript chunks for one session, held in the low-latency shared store.
type ContextBufferRepository interface {
	// Append pushes a chunk, trims the buffer to its configured capacity and
	// refreshes the backing TTL.
	Append(ctx context.Context, sessionID uuid.UUID, chunk entities.TranscriptChunk) error
	// Snapshot returns up to limit chunks oldest-first as a consistent
	// point-in-time read. limit <= 0 means the full buffer.
	Snapshot(ctx context.Context, sessionID uuid.UUID, limit int) ([]entities.TranscriptChunk, error)
}

// TalkTimeRepository accumulates per-speaker talk time with a bounded TTL.
type TalkTimeRepository interface {
	Record(ctx context.Context, sessionID uuid.UUID, speaker string, seconds float64) error
	Totals(ctx context.Context, sessionID uuid.UUID) (map[string]float64, error)
}

// ConfigRepository persists per-organization coaching config for reuse
// across sessions. Updates are whole-document replacements.
type ConfigRepository interface {
	Get(ctx context.Context, organizationID string) (*entities.CoachingConfig, error)
	Save(ctx context.Context, organizationID string, config entities.CoachingConfig) error
}

// SessionSnapshotRepository stores final session metadata with a bounded
// retention TTL when a session closes.
type SessionSnapshotRepository interface {
	Save(ctx context.Context, snapshot entities.SessionSnapshot) error
	Get(ctx context.Context, sessionID uuid.UUID) (*entities.SessionSnapshot, error)
}

// EventLogRepository is the durable append-only log of dispatched
// suggestions and sentiment snapshots for later retrieval by reporting
// tooling.
type EventLogRepository interface {
	AppendEvent(ctx context.Context, record *entities.CoachingEventRecord) error
}
