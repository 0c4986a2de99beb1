package suggestion

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/salescoach-team/coaching-engine/internal/domain/entities"
	"github.com/salescoach-team/coaching-engine/pkg/ai"
)

// contextWindow is how many recent chunks are sent to the completion
// collaborator as conversational context.
const contextWindow = 20

// Completer is the external text-completion collaborator.
type Completer interface {
	GenerateSuggestion(ctx context.Context, conversation string, hint string) (*ai.SuggestionResult, error)
}

// Generator produces cooldown-gated, confidence-gated coaching suggestions.
// It never mutates cooldown state itself; the session manager resets the
// cooldown only when a suggestion is actually dispatched.
type Generator struct {
	completer      Completer
	minContext     int
	confidenceGate float64
	logger         *zap.Logger
}

// NewGenerator constructs a suggestion generator
func NewGenerator(completer Completer, minContext int, confidenceGate float64, logger *zap.Logger) *Generator {
	return &Generator{
		completer:      completer,
		minContext:     minContext,
		confidenceGate: confidenceGate,
		logger:         logger,
	}
}

// Generate attempts one suggestion over the buffered chunks.
//
// Automatic attempts (onDemand=false) are refused before any external call
// when the session cooldown has not elapsed. On-demand attempts bypass the
// cooldown but still require minimum context. A returned suggestion below the
// confidence gate is dropped with ErrNoSuggestion so the caller leaves
// cooldown state untouched and the next eligible chunk may retry.
func (g *Generator) Generate(ctx context.Context, session *entities.CoachingSession, chunks []entities.TranscriptChunk, hint string, onDemand bool) (*entities.CoachingSuggestion, error) {
	if len(chunks) < g.minContext {
		return nil, entities.ErrInsufficientContext
	}
	if !onDemand && !session.CooldownElapsed(time.Now()) {
		return nil, entities.ErrCooldownActive
	}

	conversation := formatConversation(chunks)

	result, err := g.completer.GenerateSuggestion(ctx, conversation, hint)
	if err != nil {
		return nil, fmt.Errorf("completion call failed: %w", err)
	}

	if result.NoSuggestion {
		return nil, entities.ErrNoSuggestion
	}

	suggestionType := entities.SuggestionType(result.Type)
	if !entities.ValidSuggestionType(suggestionType) {
		if g.logger != nil {
			g.logger.Warn("⚠️ Completion returned unknown suggestion type",
				zap.String("session_id", session.ID.String()),
				zap.String("type", result.Type),
			)
		}
		return nil, entities.ErrNoSuggestion
	}

	if result.Confidence < g.confidenceGate {
		if g.logger != nil {
			g.logger.Info("🔇 Suggestion below confidence gate, dropped",
				zap.String("session_id", session.ID.String()),
				zap.Float64("confidence", result.Confidence),
				zap.Float64("gate", g.confidenceGate),
			)
		}
		return nil, entities.ErrNoSuggestion
	}

	priority := entities.SuggestionPriority(result.Priority)
	switch priority {
	case entities.PriorityLow, entities.PriorityMedium, entities.PriorityHigh:
	default:
		priority = entities.PriorityMedium
	}

	newest := chunks[len(chunks)-1]
	return &entities.CoachingSuggestion{
		ID:             uuid.New(),
		Type:           suggestionType,
		Content:        result.Content,
		Reasoning:      result.Reasoning,
		Confidence:     result.Confidence,
		Priority:       priority,
		Timestamp:      time.Now(),
		RelatedContext: newest.Text,
	}, nil
}

// ScanCompetitors returns the configured competitor names mentioned in the
// chunk text. This is a zero-cost local comparison with no AI call and no
// cooldown, so it runs on every chunk.
func ScanCompetitors(text string, competitors []string) []string {
	if text == "" || len(competitors) == 0 {
		return nil
	}

	lower := strings.ToLower(text)
	var mentioned []string
	for _, competitor := range competitors {
		if competitor == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(competitor)) {
			mentioned = append(mentioned, competitor)
		}
	}
	return mentioned
}

// formatConversation renders the last contextWindow chunks in the
// "[MM:SS Speaker]: text" form the completion prompt expects.
func formatConversation(chunks []entities.TranscriptChunk) string {
	if len(chunks) > contextWindow {
		chunks = chunks[len(chunks)-contextWindow:]
	}

	var sb strings.Builder
	for _, chunk := range chunks {
		minutes := int(chunk.Timestamp) / 60
		seconds := int(chunk.Timestamp) % 60
		sb.WriteString(fmt.Sprintf("[%02d:%02d %s]: %s\n", minutes, seconds, chunk.Speaker, chunk.Text))
	}
	return sb.String()
}
