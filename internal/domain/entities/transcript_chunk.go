package entities

import (
	"math"
	"strings"
)

// wordsPerMinute is the assumed speaking rate used to estimate chunk duration
// when the transcription feed does not provide one.
const wordsPerMinute = 150.0

// TranscriptChunk is one fragment of live transcribed speech. Chunks are
// immutable once appended; ordering is append order.
type TranscriptChunk struct {
	Text       string   `json:"text"`
	Speaker    string   `json:"speaker"`
	Timestamp  float64  `json:"timestamp"`
	Confidence *float64 `json:"confidence,omitempty"`
	Duration   *float64 `json:"duration,omitempty"`
}

// EstimatedDuration returns the chunk duration in seconds, estimating from
// word count at 150 words/minute (rounded up) when the feed omitted it.
func (c TranscriptChunk) EstimatedDuration() float64 {
	if c.Duration != nil && *c.Duration > 0 {
		return *c.Duration
	}
	words := len(strings.Fields(c.Text))
	if words == 0 {
		return 0
	}
	return math.Ceil(float64(words) / wordsPerMinute * 60.0)
}

// EndsSentence reports whether the chunk text ends with terminal punctuation.
// Used by interruption detection: a speaker change right after an unfinished
// sentence looks like a cut-off.
func (c TranscriptChunk) EndsSentence() bool {
	t := strings.TrimSpace(c.Text)
	if t == "" {
		return false
	}
	switch t[len(t)-1] {
	case '.', '?', '!':
		return true
	}
	return false
}
