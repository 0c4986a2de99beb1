package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/salescoach-team/coaching-engine/internal/domain/entities"
	"github.com/salescoach-team/coaching-engine/internal/domain/repositories"
	"github.com/salescoach-team/coaching-engine/internal/usecase/pattern"
	"github.com/salescoach-team/coaching-engine/internal/usecase/sentiment"
	"github.com/salescoach-team/coaching-engine/internal/usecase/suggestion"
	"github.com/salescoach-team/coaching-engine/internal/usecase/talktime"
	"github.com/salescoach-team/coaching-engine/pkg/callcontext"
)

// liveSession binds one coaching session to its connection and processing
// state. The per-session mutex serializes message handling and async result
// delivery so session fields never race.
type liveSession struct {
	mu         sync.Mutex
	session    *entities.CoachingSession
	dispatcher *Dispatcher
	cancel     context.CancelFunc
	ctx        context.Context

	// suggesting guards against overlapping automatic suggestion calls.
	suggesting bool
}

// Manager owns the live session registry and routes inbound messages through
// the analysis pipeline.
type Manager struct {
	buffer    repositories.ContextBufferRepository
	configs   repositories.ConfigRepository
	snapshots repositories.SessionSnapshotRepository
	eventLog  repositories.EventLogRepository

	talkTime    *talktime.Accumulator
	patterns    *pattern.Detector
	sentiments  *sentiment.Sampler
	suggestions *suggestion.Generator

	logger *zap.Logger

	mu       sync.RWMutex
	sessions map[uuid.UUID]*liveSession
}

// NewManager creates a session manager
func NewManager(
	buffer repositories.ContextBufferRepository,
	configs repositories.ConfigRepository,
	snapshots repositories.SessionSnapshotRepository,
	eventLog repositories.EventLogRepository,
	talkTime *talktime.Accumulator,
	patterns *pattern.Detector,
	sentiments *sentiment.Sampler,
	suggestions *suggestion.Generator,
	logger *zap.Logger,
) *Manager {
	return &Manager{
		buffer:      buffer,
		configs:     configs,
		snapshots:   snapshots,
		eventLog:    eventLog,
		talkTime:    talkTime,
		patterns:    patterns,
		sentiments:  sentiments,
		suggestions: suggestions,
		logger:      logger,
		sessions:    make(map[uuid.UUID]*liveSession),
	}
}

// Open registers a new live session for an authenticated user and announces
// it to the client. The organization's stored config is used when present,
// defaults otherwise.
func (m *Manager) Open(ctx context.Context, meetingID, organizationID string, userID uuid.UUID, conn Conn) (*entities.CoachingSession, error) {
	cfg, err := m.configs.Get(ctx, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load coaching config: %w", err)
	}
	if cfg == nil {
		defaults := entities.DefaultCoachingConfig()
		cfg = &defaults
	}

	sess := entities.NewCoachingSession(meetingID, organizationID, userID, *cfg)

	sessionCtx, cancel := context.WithCancel(context.Background())
	live := &liveSession{
		session:    sess,
		dispatcher: NewDispatcher(conn, m.logger),
		ctx:        sessionCtx,
		cancel:     cancel,
	}

	m.mu.Lock()
	m.sessions[sess.ID] = live
	m.mu.Unlock()

	if m.logger != nil {
		m.logger.Info("🎧 Coaching session opened",
			zap.String("session_id", sess.ID.String()),
			zap.String("meeting_id", meetingID),
			zap.String("organization_id", organizationID),
			zap.String("user_id", userID.String()),
		)
	}

	live.dispatcher.Send(entities.Event{
		Type: entities.EventSessionStarted,
		Payload: map[string]interface{}{
			"session_id": sess.ID,
			"meeting_id": sess.MeetingID,
			"started_at": sess.StartedAt,
			"config":     sess.Config,
		},
	})

	return sess, nil
}

// HandleMessage decodes and routes one inbound envelope. Unknown message
// types are logged and ignored so older clients keep working.
func (m *Manager) HandleMessage(ctx context.Context, sessionID uuid.UUID, raw []byte) error {
	live, err := m.live(sessionID)
	if err != nil {
		return err
	}

	var msg entities.InboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return fmt.Errorf("malformed message: %w", err)
	}

	switch msg.Type {
	case entities.MessageTranscriptChunk:
		var chunk entities.TranscriptChunk
		if err := json.Unmarshal(msg.Payload, &chunk); err != nil {
			return fmt.Errorf("malformed transcript chunk: %w", err)
		}
		return m.processChunk(ctx, live, chunk)

	case entities.MessageRequestSuggestion:
		var req struct {
			Topic string `json:"topic,omitempty"`
			Type  string `json:"type,omitempty"`
		}
		if len(msg.Payload) > 0 {
			if err := json.Unmarshal(msg.Payload, &req); err != nil {
				return fmt.Errorf("malformed suggestion request: %w", err)
			}
		}
		return m.suggestOnDemand(ctx, live, req.Topic, req.Type)

	case entities.MessageRequestTalkTime:
		return m.sendTalkTime(ctx, live)

	case entities.MessageRequestPatterns:
		return m.sendPatterns(ctx, live)

	case entities.MessageUpdateConfig:
		var update entities.CoachingConfigUpdate
		if err := json.Unmarshal(msg.Payload, &update); err != nil {
			return fmt.Errorf("malformed config update: %w", err)
		}
		return m.updateConfig(ctx, live, update)

	case entities.MessagePing:
		live.dispatcher.Send(entities.Event{Type: entities.EventPong})
		return nil

	default:
		if m.logger != nil {
			m.logger.Warn("⚠️ Ignoring unknown message type",
				zap.String("session_id", sessionID.String()),
				zap.String("type", string(msg.Type)),
			)
		}
		return nil
	}
}

// processChunk runs the per-chunk pipeline: buffer append, talk-time
// accounting, competitor scan, periodic sentiment sampling and an automatic
// suggestion attempt. Local analysis runs inline; the suggestion call goes
// async so the read loop never blocks on the completion service.
func (m *Manager) processChunk(ctx context.Context, live *liveSession, chunk entities.TranscriptChunk) error {
	live.mu.Lock()
	if !live.session.IsActive {
		live.mu.Unlock()
		return entities.ErrSessionClosed
	}
	sess := live.session
	sess.ChunkCount++
	chunkCount := sess.ChunkCount
	cfg := sess.Config
	live.mu.Unlock()

	if err := m.buffer.Append(ctx, sess.ID, chunk); err != nil {
		return fmt.Errorf("failed to buffer chunk: %w", err)
	}

	if err := m.talkTime.Record(ctx, sess.ID, chunk); err != nil && m.logger != nil {
		m.logger.Warn("⚠️ Talk time accounting failed",
			zap.String("session_id", sess.ID.String()),
			zap.Error(err),
		)
	}

	if cfg.CompetitorAlerts {
		for _, competitor := range suggestion.ScanCompetitors(chunk.Text, cfg.Competitors) {
			live.dispatcher.Send(entities.Event{
				Type: entities.EventCompetitorAlert,
				Payload: map[string]interface{}{
					"competitor": competitor,
					"context":    chunk.Text,
					"speaker":    chunk.Speaker,
					"timestamp":  chunk.Timestamp,
				},
			})
		}
	}

	if cfg.SentimentMonitoring && m.sentiments.ShouldSample(chunkCount) {
		sampleCtx, cancel := callcontext.Begin(ctx, sess.ID, "sentiment")
		analysis, alert := m.sentiments.Sample(sampleCtx, sess.ID, chunk.Text, cfg.SentimentThreshold)
		cancel()
		live.dispatcher.Send(entities.Event{
			Type:    entities.EventSentimentUpdate,
			Payload: analysis,
		})
		if alert {
			live.dispatcher.Send(entities.Event{
				Type: entities.EventSentimentAlert,
				Payload: map[string]interface{}{
					"sentiment": analysis,
					"threshold": cfg.SentimentThreshold,
				},
			})
		}

		record := entities.NewCoachingEventRecord(sess, entities.EventSentimentUpdate, analysis)
		if err := m.eventLog.AppendEvent(ctx, record); err != nil && m.logger != nil {
			m.logger.Error("❌ Failed to persist sentiment snapshot",
				zap.String("session_id", sess.ID.String()),
				zap.Error(err),
			)
		}
	}

	m.maybeSuggest(live)
	return nil
}

// maybeSuggest spawns at most one automatic suggestion attempt. The cheap
// gates (toggle, in-flight guard, cooldown) are checked before the goroutine
// starts so most chunks cost nothing here. On-demand requests are serviced
// regardless of the toggle.
func (m *Manager) maybeSuggest(live *liveSession) {
	live.mu.Lock()
	if !live.session.Config.QuestionSuggestions ||
		live.suggesting || !live.session.IsActive || !live.session.CooldownElapsed(time.Now()) {
		live.mu.Unlock()
		return
	}
	live.suggesting = true
	sessionCopy := *live.session
	live.mu.Unlock()

	go func() {
		defer func() {
			live.mu.Lock()
			live.suggesting = false
			live.mu.Unlock()
		}()

		ctx, cancel := callcontext.Begin(live.ctx, sessionCopy.ID, "suggestion")
		defer cancel()

		chunks, err := m.buffer.Snapshot(ctx, sessionCopy.ID, 0)
		if err != nil {
			if m.logger != nil {
				m.logger.Warn("⚠️ Buffer snapshot failed for suggestion",
					zap.String("session_id", sessionCopy.ID.String()),
					zap.Error(err),
				)
			}
			return
		}

		sugg, err := m.suggestions.Generate(ctx, &sessionCopy, chunks, "", false)
		if err != nil {
			if !errors.Is(err, entities.ErrInsufficientContext) &&
				!errors.Is(err, entities.ErrCooldownActive) &&
				!errors.Is(err, entities.ErrNoSuggestion) && m.logger != nil {
				m.logger.Warn("⚠️ Automatic suggestion failed",
					zap.String("session_id", sessionCopy.ID.String()),
					zap.Error(err),
				)
			}
			return
		}

		m.dispatchSuggestion(ctx, live, sugg, true)
	}()
}

// dispatchSuggestion delivers a generated suggestion if the session is still
// active. Results arriving after close are discarded without touching
// cooldown state. The cooldown resets only for automatic dispatches.
func (m *Manager) dispatchSuggestion(ctx context.Context, live *liveSession, sugg *entities.CoachingSuggestion, automatic bool) {
	live.mu.Lock()
	if !live.session.IsActive {
		live.mu.Unlock()
		return
	}
	if automatic {
		live.session.LastSuggestionAt = time.Now()
	}
	sess := live.session
	live.mu.Unlock()

	if err := live.dispatcher.Send(entities.Event{
		Type:    entities.EventSuggestion,
		Payload: sugg,
	}); err != nil {
		return
	}

	if m.logger != nil {
		m.logger.Info("💡 Coaching suggestion dispatched",
			zap.String("session_id", sess.ID.String()),
			zap.String("type", string(sugg.Type)),
			zap.Float64("confidence", sugg.Confidence),
			zap.Bool("automatic", automatic),
		)
	}

	record := entities.NewCoachingEventRecord(sess, entities.EventSuggestion, sugg)
	if err := m.eventLog.AppendEvent(ctx, record); err != nil && m.logger != nil {
		m.logger.Error("❌ Failed to persist suggestion",
			zap.String("session_id", sess.ID.String()),
			zap.Error(err),
		)
	}
}

// suggestOnDemand generates a suggestion immediately, bypassing the cooldown.
// The client asked, so gating errors come back as explicit events instead of
// silence.
func (m *Manager) suggestOnDemand(ctx context.Context, live *liveSession, topic, suggestionType string) error {
	live.mu.Lock()
	if !live.session.IsActive {
		live.mu.Unlock()
		return entities.ErrSessionClosed
	}
	sessionCopy := *live.session
	live.mu.Unlock()

	chunks, err := m.buffer.Snapshot(ctx, sessionCopy.ID, 0)
	if err != nil {
		return fmt.Errorf("failed to snapshot buffer: %w", err)
	}

	hint := buildHint(topic, suggestionType)
	sugg, err := m.suggestions.Generate(ctx, &sessionCopy, chunks, hint, true)
	if err != nil {
		if errors.Is(err, entities.ErrInsufficientContext) || errors.Is(err, entities.ErrNoSuggestion) {
			live.dispatcher.Send(entities.Event{
				Type: entities.EventSuggestion,
				Payload: map[string]interface{}{
					"no_suggestion": true,
					"reason":        err.Error(),
				},
			})
			return nil
		}
		return err
	}

	m.dispatchSuggestion(ctx, live, sugg, false)
	return nil
}

// sendTalkTime pushes a fresh talk-time analysis to the client. The
// imbalance recommendation is withheld when talk-time alerts are disabled.
func (m *Manager) sendTalkTime(ctx context.Context, live *liveSession) error {
	live.mu.Lock()
	cfg := live.session.Config
	live.mu.Unlock()

	analysis, err := m.talkTime.Analyze(ctx, live.session.ID)
	if err != nil {
		return fmt.Errorf("failed to analyze talk time: %w", err)
	}
	if !cfg.TalkTimeAlerts {
		analysis.Recommendation = ""
	}
	return live.dispatcher.Send(entities.Event{
		Type:    entities.EventTalkTimeAnalysis,
		Payload: analysis,
	})
}

// sendPatterns runs the detector over the current buffer and pushes the
// result. Objection patterns are filtered out when objection detection is
// disabled for the session.
func (m *Manager) sendPatterns(ctx context.Context, live *liveSession) error {
	live.mu.Lock()
	cfg := live.session.Config
	live.mu.Unlock()

	chunks, err := m.buffer.Snapshot(ctx, live.session.ID, 0)
	if err != nil {
		return fmt.Errorf("failed to snapshot buffer: %w", err)
	}
	analysis := m.patterns.Analyze(chunks)
	if !cfg.ObjectionDetection {
		kept := analysis.Patterns[:0]
		for _, p := range analysis.Patterns {
			if p.Type != entities.PatternObjection {
				kept = append(kept, p)
			}
		}
		analysis.Patterns = kept
	}
	return live.dispatcher.Send(entities.Event{
		Type:    entities.EventPatternAnalysis,
		Payload: analysis,
	})
}

// updateConfig applies a partial config update to the live session, persists
// the merged document for the organization and confirms to the client.
func (m *Manager) updateConfig(ctx context.Context, live *liveSession, update entities.CoachingConfigUpdate) error {
	live.mu.Lock()
	live.session.Config = live.session.Config.Apply(update)
	merged := live.session.Config
	orgID := live.session.OrganizationID
	live.mu.Unlock()

	if err := m.configs.Save(ctx, orgID, merged); err != nil {
		return fmt.Errorf("failed to persist coaching config: %w", err)
	}

	if m.logger != nil {
		m.logger.Info("⚙️ Coaching config updated",
			zap.String("session_id", live.session.ID.String()),
			zap.String("organization_id", orgID),
		)
	}

	return live.dispatcher.Send(entities.Event{
		Type:    entities.EventConfigUpdated,
		Payload: merged,
	})
}

// Close tears a session down: announce, flush the snapshot, drop in-memory
// state and close the connection. Idempotent; the second and later calls
// return ErrSessionNotFound.
func (m *Manager) Close(ctx context.Context, sessionID uuid.UUID, reason string) error {
	m.mu.Lock()
	live, ok := m.sessions[sessionID]
	if ok {
		delete(m.sessions, sessionID)
	}
	m.mu.Unlock()
	if !ok {
		return entities.ErrSessionNotFound
	}

	live.mu.Lock()
	live.session.IsActive = false
	sess := live.session
	live.mu.Unlock()
	live.cancel()

	endedAt := time.Now()
	live.dispatcher.Send(entities.Event{
		Type: entities.EventSessionEnded,
		Payload: map[string]interface{}{
			"session_id":       sess.ID,
			"reason":           reason,
			"duration_seconds": endedAt.Sub(sess.StartedAt).Seconds(),
			"chunk_count":      sess.ChunkCount,
		},
	})

	snapshot := entities.SessionSnapshot{
		ID:             sess.ID,
		MeetingID:      sess.MeetingID,
		OrganizationID: sess.OrganizationID,
		UserID:         sess.UserID,
		StartedAt:      sess.StartedAt,
		EndedAt:        endedAt,
		ChunkCount:     sess.ChunkCount,
		Config:         sess.Config,
	}
	if err := m.snapshots.Save(ctx, snapshot); err != nil && m.logger != nil {
		m.logger.Error("❌ Failed to save session snapshot",
			zap.String("session_id", sess.ID.String()),
			zap.Error(err),
		)
	}

	m.sentiments.Forget(sess.ID)
	live.dispatcher.Close()

	if m.logger != nil {
		m.logger.Info("👋 Coaching session closed",
			zap.String("session_id", sess.ID.String()),
			zap.String("reason", reason),
			zap.Int("chunk_count", sess.ChunkCount),
		)
	}
	return nil
}

// CloseAll drains every live session, used during graceful shutdown.
func (m *Manager) CloseAll(ctx context.Context, reason string) {
	m.mu.RLock()
	ids := make([]uuid.UUID, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	for _, id := range ids {
		if err := m.Close(ctx, id, reason); err != nil && !errors.Is(err, entities.ErrSessionNotFound) && m.logger != nil {
			m.logger.Warn("⚠️ Failed to close session during drain",
				zap.String("session_id", id.String()),
				zap.Error(err),
			)
		}
	}
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Dispatcher exposes the session's dispatcher for the transport layer's
// keepalive pings.
func (m *Manager) Dispatcher(sessionID uuid.UUID) (*Dispatcher, error) {
	live, err := m.live(sessionID)
	if err != nil {
		return nil, err
	}
	return live.dispatcher, nil
}

func (m *Manager) live(sessionID uuid.UUID) (*liveSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	live, ok := m.sessions[sessionID]
	if !ok {
		return nil, entities.ErrSessionNotFound
	}
	return live, nil
}

func buildHint(topic, suggestionType string) string {
	switch {
	case topic != "" && suggestionType != "":
		return fmt.Sprintf("The rep asked for a %s suggestion about: %s", suggestionType, topic)
	case topic != "":
		return fmt.Sprintf("The rep asked for help with: %s", topic)
	case suggestionType != "":
		return fmt.Sprintf("The rep asked for a %s suggestion", suggestionType)
	default:
		return ""
	}
}
