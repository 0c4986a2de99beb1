package talktime

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/salescoach-team/coaching-engine/internal/domain/entities"
	"github.com/salescoach-team/coaching-engine/internal/domain/repositories"
)

// Recommendation thresholds for the inferred primary presenter.
const (
	repTalkTooMuchPct   = 65.0
	repTalkTooLittlePct = 30.0
)

// Accumulator tracks per-speaker talk time and derives balance analysis.
type Accumulator struct {
	store  repositories.TalkTimeRepository
	roles  RoleInferrer
	logger *zap.Logger
}

// NewAccumulator constructs a talk-time accumulator
func NewAccumulator(store repositories.TalkTimeRepository, roles RoleInferrer, logger *zap.Logger) *Accumulator {
	return &Accumulator{store: store, roles: roles, logger: logger}
}

// Record adds the chunk's speaking time to the speaker's counter, estimating
// duration from word count when the feed omitted it.
func (a *Accumulator) Record(ctx context.Context, sessionID uuid.UUID, chunk entities.TranscriptChunk) error {
	seconds := chunk.EstimatedDuration()
	if seconds <= 0 {
		return nil
	}
	if err := a.store.Record(ctx, sessionID, chunk.Speaker, seconds); err != nil {
		return fmt.Errorf("failed to record talk time: %w", err)
	}
	return nil
}

// Analyze reads all counters and derives percentages, balance and an optional
// recommendation. Percentages sum to 100 (within rounding) whenever total
// talk time is positive.
func (a *Accumulator) Analyze(ctx context.Context, sessionID uuid.UUID) (*entities.TalkTimeAnalysis, error) {
	totals, err := a.store.Totals(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	analysis := &entities.TalkTimeAnalysis{
		Participants: make(map[string]entities.SpeakerStat, len(totals)),
	}

	var totalSeconds float64
	for _, seconds := range totals {
		totalSeconds += seconds
	}
	analysis.TotalSeconds = totalSeconds

	if len(totals) == 0 {
		analysis.Balance = 1
		return analysis, nil
	}

	idealPct := 100.0 / float64(len(totals))
	var totalDeviation float64

	for speaker, seconds := range totals {
		pct := 0.0
		if totalSeconds > 0 {
			pct = seconds / totalSeconds * 100.0
		}
		totalDeviation += math.Abs(pct - idealPct)

		analysis.Participants[speaker] = entities.SpeakerStat{
			TalkTimeSeconds: seconds,
			Percentage:      pct,
			Role:            a.roles.Infer(speaker),
		}
	}

	analysis.Balance = math.Max(0, 1-totalDeviation/200.0)
	analysis.Recommendation = a.recommend(analysis)

	if a.logger != nil {
		a.logger.Debug("talk time analyzed",
			zap.String("session_id", sessionID.String()),
			zap.Int("speakers", len(totals)),
			zap.Float64("balance", analysis.Balance),
		)
	}

	return analysis, nil
}

// recommend produces advice only when the inferred rep is clearly dominating
// or clearly quiet. An unknown role is never actionable.
func (a *Accumulator) recommend(analysis *entities.TalkTimeAnalysis) string {
	for _, stat := range analysis.Participants {
		if stat.Role != entities.SpeakerRoleRep {
			continue
		}
		if stat.Percentage > repTalkTooMuchPct {
			return "You're doing most of the talking. Try asking more open-ended questions to get the prospect engaged."
		}
		if stat.Percentage < repTalkTooLittlePct && analysis.TotalSeconds > 0 {
			return "Good listening. Look for openings to add value and guide the conversation."
		}
	}
	return ""
}
