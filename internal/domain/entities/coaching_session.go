package entities

import (
	"time"

	"github.com/google/uuid"
)

// CoachingSession represents one live coaching context bound to a single call
// and a single client connection. The session manager owns it exclusively for
// its lifetime.
type CoachingSession struct {
	ID             uuid.UUID      `json:"id"`
	MeetingID      string         `json:"meeting_id"`
	OrganizationID string         `json:"organization_id"`
	UserID         uuid.UUID      `json:"user_id"`
	StartedAt      time.Time      `json:"started_at"`
	IsActive       bool           `json:"is_active"`
	Config         CoachingConfig `json:"config"`

	// ChunkCount is the number of transcript chunks processed so far.
	ChunkCount int `json:"chunk_count"`

	// LastSuggestionAt is the wall-clock time of the last dispatched
	// automatic suggestion. Zero value means no suggestion yet.
	LastSuggestionAt time.Time `json:"last_suggestion_at"`
}

// NewCoachingSession creates a new active session with the given config.
func NewCoachingSession(meetingID, organizationID string, userID uuid.UUID, config CoachingConfig) *CoachingSession {
	return &CoachingSession{
		ID:             uuid.New(),
		MeetingID:      meetingID,
		OrganizationID: organizationID,
		UserID:         userID,
		StartedAt:      time.Now(),
		IsActive:       true,
		Config:         config,
	}
}

// CooldownElapsed reports whether the suggestion cooldown has passed.
func (s *CoachingSession) CooldownElapsed(now time.Time) bool {
	if s.LastSuggestionAt.IsZero() {
		return true
	}
	return now.Sub(s.LastSuggestionAt) >= s.Config.SuggestionCooldown
}

// CoachingConfig holds per-organization coaching toggles and tuning. It is
// created with defaults at session start and replaced whole-document on
// update.
type CoachingConfig struct {
	CompetitorAlerts    bool          `json:"competitor_alerts"`
	ObjectionDetection  bool          `json:"objection_detection"`
	SentimentMonitoring bool          `json:"sentiment_monitoring"`
	TalkTimeAlerts      bool          `json:"talk_time_alerts"`
	QuestionSuggestions bool          `json:"question_suggestions"`
	Competitors         []string      `json:"competitors"`
	MaxRepTalkRatio     float64       `json:"max_rep_talk_ratio"`
	SentimentThreshold  float64       `json:"sentiment_threshold"`
	SuggestionCooldown  time.Duration `json:"suggestion_cooldown"`
}

// DefaultCoachingConfig returns the config used when an organization has no
// stored override.
func DefaultCoachingConfig() CoachingConfig {
	return CoachingConfig{
		CompetitorAlerts:    true,
		ObjectionDetection:  true,
		SentimentMonitoring: true,
		TalkTimeAlerts:      true,
		QuestionSuggestions: true,
		Competitors:         []string{},
		MaxRepTalkRatio:     0.65,
		SentimentThreshold:  -0.3,
		SuggestionCooldown:  30 * time.Second,
	}
}

// CoachingConfigUpdate is a partial update; nil fields are left unchanged.
type CoachingConfigUpdate struct {
	CompetitorAlerts    *bool          `json:"competitor_alerts,omitempty"`
	ObjectionDetection  *bool          `json:"objection_detection,omitempty"`
	SentimentMonitoring *bool          `json:"sentiment_monitoring,omitempty"`
	TalkTimeAlerts      *bool          `json:"talk_time_alerts,omitempty"`
	QuestionSuggestions *bool          `json:"question_suggestions,omitempty"`
	Competitors         *[]string      `json:"competitors,omitempty"`
	MaxRepTalkRatio     *float64       `json:"max_rep_talk_ratio,omitempty"`
	SentimentThreshold  *float64       `json:"sentiment_threshold,omitempty"`
	SuggestionCooldown  *time.Duration `json:"suggestion_cooldown,omitempty"`
}

// Apply returns a copy of the config with the provided fields replaced.
func (c CoachingConfig) Apply(update CoachingConfigUpdate) CoachingConfig {
	if update.CompetitorAlerts != nil {
		c.CompetitorAlerts = *update.CompetitorAlerts
	}
	if update.ObjectionDetection != nil {
		c.ObjectionDetection = *update.ObjectionDetection
	}
	if update.SentimentMonitoring != nil {
		c.SentimentMonitoring = *update.SentimentMonitoring
	}
	if update.TalkTimeAlerts != nil {
		c.TalkTimeAlerts = *update.TalkTimeAlerts
	}
	if update.QuestionSuggestions != nil {
		c.QuestionSuggestions = *update.QuestionSuggestions
	}
	if update.Competitors != nil {
		c.Competitors = *update.Competitors
	}
	if update.MaxRepTalkRatio != nil {
		c.MaxRepTalkRatio = *update.MaxRepTalkRatio
	}
	if update.SentimentThreshold != nil {
		c.SentimentThreshold = *update.SentimentThreshold
	}
	if update.SuggestionCooldown != nil {
		c.SuggestionCooldown = *update.SuggestionCooldown
	}
	return c
}

// SessionSnapshot is the minimal session state flushed to the shared store on
// close for cross-restart continuity. It deliberately excludes the live
// connection handle.
type SessionSnapshot struct {
	ID             uuid.UUID      `json:"id"`
	MeetingID      string         `json:"meeting_id"`
	OrganizationID string         `json:"organization_id"`
	UserID         uuid.UUID      `json:"user_id"`
	StartedAt      time.Time      `json:"started_at"`
	EndedAt        time.Time      `json:"ended_at"`
	ChunkCount     int            `json:"chunk_count"`
	Config         CoachingConfig `json:"config"`
}
