package entities

import "time"

// SentimentLabel classifies the emotional tone of a chunk.
type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "positive"
	SentimentNeutral  SentimentLabel = "neutral"
	SentimentNegative SentimentLabel = "negative"
)

// SentimentAnalysis is one emotional-tone classification of a transcript
// chunk. A short rolling window is kept per session; the most recent value is
// also persisted as an event.
type SentimentAnalysis struct {
	Score      float64        `json:"score"`
	Label      SentimentLabel `json:"label"`
	Confidence float64        `json:"confidence"`
	Emotions   []string       `json:"emotions"`
	Timestamp  time.Time      `json:"timestamp"`
}

// NeutralSentiment is the fixed fallback used when the classifier fails so a
// momentary miss never breaks the pipeline.
func NeutralSentiment() *SentimentAnalysis {
	return &SentimentAnalysis{
		Score:      0,
		Label:      SentimentNeutral,
		Confidence: 0.5,
		Emotions:   []string{},
		Timestamp:  time.Now(),
	}
}
