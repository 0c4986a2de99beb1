package sentiment

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/salescoach-team/coaching-engine/internal/domain/entities"
	"github.com/salescoach-team/coaching-engine/pkg/ai"
)

// windowSize is the number of recent samples kept per session.
const windowSize = 20

// Classifier is the external emotional-tone collaborator.
type Classifier interface {
	ClassifySentiment(ctx context.Context, text string) (*ai.SentimentResult, error)
}

// Sampler runs periodic, rate-limited sentiment classification over
// individual transcript chunks. Classification happens only every Nth chunk
// to amortize external-call cost; every other chunk is a no-op.
type Sampler struct {
	classifier     Classifier
	sampleInterval int
	logger         *zap.Logger

	mu      sync.Mutex
	windows map[uuid.UUID][]entities.SentimentAnalysis
}

// NewSampler constructs a sentiment sampler
func NewSampler(classifier Classifier, sampleInterval int, logger *zap.Logger) *Sampler {
	if sampleInterval <= 0 {
		sampleInterval = 5
	}
	return &Sampler{
		classifier:     classifier,
		sampleInterval: sampleInterval,
		logger:         logger,
		windows:        make(map[uuid.UUID][]entities.SentimentAnalysis),
	}
}

// ShouldSample reports whether classification runs for this chunk count.
func (s *Sampler) ShouldSample(chunkCount int) bool {
	return chunkCount > 0 && chunkCount%s.sampleInterval == 0
}

// Sample classifies the chunk text and records the result in the session's
// rolling window. A classifier failure degrades to the fixed neutral default
// rather than failing the pipeline. The second return value reports whether
// the score dipped below the session threshold (each dip alerts
// independently; there is no dedup across samples).
func (s *Sampler) Sample(ctx context.Context, sessionID uuid.UUID, text string, threshold float64) (*entities.SentimentAnalysis, bool) {
	result, err := s.classifier.ClassifySentiment(ctx, text)

	var analysis *entities.SentimentAnalysis
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("⚠️ Sentiment classification failed, using neutral default",
				zap.String("session_id", sessionID.String()),
				zap.Error(err),
			)
		}
		analysis = entities.NeutralSentiment()
	} else {
		analysis = &entities.SentimentAnalysis{
			Score:      result.Score,
			Label:      entities.SentimentLabel(result.Label),
			Confidence: result.Confidence,
			Emotions:   result.Emotions,
			Timestamp:  time.Now(),
		}
	}

	s.mu.Lock()
	window := append(s.windows[sessionID], *analysis)
	if len(window) > windowSize {
		window = window[len(window)-windowSize:]
	}
	s.windows[sessionID] = window
	s.mu.Unlock()

	return analysis, analysis.Score < threshold
}

// Window returns a copy of the session's recent samples, oldest first.
func (s *Sampler) Window(sessionID uuid.UUID) []entities.SentimentAnalysis {
	s.mu.Lock()
	defer s.mu.Unlock()

	window := s.windows[sessionID]
	out := make([]entities.SentimentAnalysis, len(window))
	copy(out, window)
	return out
}

// Forget drops the session's rolling window. Called at session teardown.
func (s *Sampler) Forget(sessionID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.windows, sessionID)
}
