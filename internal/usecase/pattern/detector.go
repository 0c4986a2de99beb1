package pattern

import (
	"fmt"
	"strings"
	"time"

	"github.com/salescoach-team/coaching-engine/internal/domain/entities"
)

// Monologue run thresholds (consecutive chunks by the same speaker).
const (
	monologueInfoRun    = 5
	monologueWarningRun = 8
)

// maxReportedPatterns caps the analysis payload; detection still runs over
// the full buffer.
const maxReportedPatterns = 20

// objectionKeywords is the fixed keyword set flagged as potential objections.
var objectionKeywords = []string{
	"concern", "budget", "competitor", "expensive", "too costly",
	"worried", "hesitant", "not convinced", "pricing",
}

// Detector finds structural conversational signals in a context-buffer
// snapshot. It is stateless: every call is a pure function of the chunks and
// the thresholds.
type Detector struct {
	interruptionGap  time.Duration
	rapidExchangeGap time.Duration
}

// NewDetector constructs a pattern detector. The gap thresholds were
// calibrated empirically (0.5s / 2s defaults); they come from config so
// deployments can tune them.
func NewDetector(interruptionGap, rapidExchangeGap time.Duration) *Detector {
	return &Detector{
		interruptionGap:  interruptionGap,
		rapidExchangeGap: rapidExchangeGap,
	}
}

// Analyze scans the chunks oldest-first and returns the detected patterns
// (capped to the 20 most recent) plus an overall engagement classification.
// Short buffers are fine; detection runs over whatever is available.
func (d *Detector) Analyze(chunks []entities.TranscriptChunk) *entities.PatternAnalysis {
	analysis := &entities.PatternAnalysis{
		Patterns: []entities.Pattern{},
	}
	if len(chunks) == 0 {
		analysis.OverallEngagement = entities.EngagementLow
		return analysis
	}

	var patterns []entities.Pattern
	var monologues, rapidExchanges, questions int

	// Monologue runs: consecutive chunks by the same speaker.
	runStart := 0
	for i := 1; i <= len(chunks); i++ {
		if i < len(chunks) && chunks[i].Speaker == chunks[runStart].Speaker {
			continue
		}
		runLen := i - runStart
		if runLen >= monologueInfoRun {
			severity := entities.SeverityInfo
			if runLen >= monologueWarningRun {
				severity = entities.SeverityWarning
			}
			patterns = append(patterns, entities.Pattern{
				Type:         entities.PatternMonologue,
				Description:  fmt.Sprintf("%s has been speaking for %d consecutive segments", chunks[runStart].Speaker, runLen),
				Timestamp:    chunks[i-1].Timestamp,
				Participants: []string{chunks[runStart].Speaker},
				Severity:     severity,
			})
			monologues++
		}
		runStart = i
	}

	// Speaker-change signals: rapid exchanges and interruptions.
	for i := 1; i < len(chunks); i++ {
		prev, curr := chunks[i-1], chunks[i]
		if curr.Speaker == prev.Speaker {
			continue
		}
		gap := time.Duration((curr.Timestamp - prev.Timestamp) * float64(time.Second))
		if gap < 0 {
			continue
		}
		if gap < d.interruptionGap && !prev.EndsSentence() {
			patterns = append(patterns, entities.Pattern{
				Type:         entities.PatternInterruption,
				Description:  fmt.Sprintf("%s may have interrupted %s", curr.Speaker, prev.Speaker),
				Timestamp:    curr.Timestamp,
				Participants: []string{prev.Speaker, curr.Speaker},
				Severity:     entities.SeverityWarning,
			})
		}
		if gap < d.rapidExchangeGap {
			patterns = append(patterns, entities.Pattern{
				Type:         entities.PatternRapidExchange,
				Description:  "Quick back-and-forth exchange",
				Timestamp:    curr.Timestamp,
				Participants: []string{prev.Speaker, curr.Speaker},
				Severity:     entities.SeverityInfo,
			})
			rapidExchanges++
		}
	}

	// Per-chunk signals: questions and objection keywords.
	for _, chunk := range chunks {
		if strings.Contains(chunk.Text, "?") {
			patterns = append(patterns, entities.Pattern{
				Type:         entities.PatternQuestion,
				Description:  fmt.Sprintf("%s asked a question", chunk.Speaker),
				Timestamp:    chunk.Timestamp,
				Participants: []string{chunk.Speaker},
				Severity:     entities.SeverityInfo,
			})
			questions++
		}
		if keyword := matchObjection(chunk.Text); keyword != "" {
			patterns = append(patterns, entities.Pattern{
				Type:         entities.PatternObjection,
				Description:  fmt.Sprintf("Possible objection raised (%q)", keyword),
				Timestamp:    chunk.Timestamp,
				Participants: []string{chunk.Speaker},
				Severity:     entities.SeverityWarning,
			})
		}
	}

	analysis.OverallEngagement = classifyEngagement(questions, rapidExchanges, monologues)

	if len(patterns) > maxReportedPatterns {
		patterns = patterns[len(patterns)-maxReportedPatterns:]
	}
	analysis.Patterns = patterns

	return analysis
}

// classifyEngagement applies the fixed threshold combination over the signal
// counts.
func classifyEngagement(questions, rapidExchanges, monologues int) entities.EngagementLevel {
	if questions > 3 && rapidExchanges > 2 && monologues < 2 {
		return entities.EngagementHigh
	}
	if monologues > 3 || questions < 1 {
		return entities.EngagementLow
	}
	return entities.EngagementMedium
}

func matchObjection(text string) string {
	lower := strings.ToLower(text)
	for _, keyword := range objectionKeywords {
		if strings.Contains(lower, keyword) {
			return keyword
		}
	}
	return ""
}
