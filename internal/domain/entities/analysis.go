package entities

// SpeakerRole is the coarse inferred role of a call participant.
type SpeakerRole string

const (
	SpeakerRoleRep      SpeakerRole = "rep"
	SpeakerRoleProspect SpeakerRole = "prospect"
	SpeakerRoleUnknown  SpeakerRole = "unknown"
)

// SpeakerStat holds accumulated talk time for one speaker.
type SpeakerStat struct {
	TalkTimeSeconds float64     `json:"talk_time_seconds"`
	Percentage      float64     `json:"percentage"`
	Role            SpeakerRole `json:"role"`
}

// TalkTimeAnalysis is derived from the per-speaker counters; it is never
// stored long-term.
type TalkTimeAnalysis struct {
	Participants   map[string]SpeakerStat `json:"participants"`
	TotalSeconds   float64                `json:"total_seconds"`
	Balance        float64                `json:"balance"`
	Recommendation string                 `json:"recommendation,omitempty"`
}

// PatternType identifies a structural conversational signal.
type PatternType string

const (
	PatternMonologue     PatternType = "monologue"
	PatternRapidExchange PatternType = "rapid_exchange"
	PatternInterruption  PatternType = "interruption"
	PatternQuestion      PatternType = "question"
	PatternObjection     PatternType = "objection"
)

// PatternSeverity grades a detected pattern.
type PatternSeverity string

const (
	SeverityInfo    PatternSeverity = "info"
	SeverityWarning PatternSeverity = "warning"
)

// Pattern is one detected conversational signal.
type Pattern struct {
	Type         PatternType     `json:"type"`
	Description  string          `json:"description"`
	Timestamp    float64         `json:"timestamp"`
	Participants []string        `json:"participants"`
	Severity     PatternSeverity `json:"severity"`
}

// EngagementLevel is the coarse engagement classification.
type EngagementLevel string

const (
	EngagementLow    EngagementLevel = "low"
	EngagementMedium EngagementLevel = "medium"
	EngagementHigh   EngagementLevel = "high"
)

// PatternAnalysis is the detector output over the current context buffer.
// Patterns is capped to the 20 most recent to bound message size.
type PatternAnalysis struct {
	Patterns          []Pattern       `json:"patterns"`
	OverallEngagement EngagementLevel `json:"overall_engagement"`
}
