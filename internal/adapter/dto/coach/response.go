package coach

import (
	"time"

	"github.com/salescoach-team/coaching-engine/internal/domain/entities"
)

// CreateSessionResponse returns the connect credentials for a new session.
type CreateSessionResponse struct {
	Ticket          string `json:"ticket"`
	WebsocketPath   string `json:"websocket_path"`
	TicketExpiresIn int    `json:"ticket_expires_in_seconds"`
	MeetingID       string `json:"meeting_id"`
}

// ConfigResponse is the stored (or default) coaching config for an
// organization, with the cooldown flattened to seconds for clients.
type ConfigResponse struct {
	CompetitorAlerts    bool     `json:"competitor_alerts"`
	ObjectionDetection  bool     `json:"objection_detection"`
	SentimentMonitoring bool     `json:"sentiment_monitoring"`
	TalkTimeAlerts      bool     `json:"talk_time_alerts"`
	QuestionSuggestions bool     `json:"question_suggestions"`
	Competitors         []string `json:"competitors"`
	MaxRepTalkRatio     float64  `json:"max_rep_talk_ratio"`
	SentimentThreshold  float64  `json:"sentiment_threshold"`
	CooldownSeconds     int      `json:"cooldown_seconds"`
}

// NewConfigResponse converts the domain config.
func NewConfigResponse(cfg entities.CoachingConfig) ConfigResponse {
	competitors := cfg.Competitors
	if competitors == nil {
		competitors = []string{}
	}
	return ConfigResponse{
		CompetitorAlerts:    cfg.CompetitorAlerts,
		ObjectionDetection:  cfg.ObjectionDetection,
		SentimentMonitoring: cfg.SentimentMonitoring,
		TalkTimeAlerts:      cfg.TalkTimeAlerts,
		QuestionSuggestions: cfg.QuestionSuggestions,
		Competitors:         competitors,
		MaxRepTalkRatio:     cfg.MaxRepTalkRatio,
		SentimentThreshold:  cfg.SentimentThreshold,
		CooldownSeconds:     int(cfg.SuggestionCooldown / time.Second),
	}
}

// SessionResponse describes a finished session's recorded outcome.
type SessionResponse struct {
	ID             string    `json:"id"`
	MeetingID      string    `json:"meeting_id"`
	OrganizationID string    `json:"organization_id"`
	StartedAt      time.Time `json:"started_at"`
	EndedAt        time.Time `json:"ended_at,omitempty"`
	ChunkCount     int       `json:"chunk_count"`
	Active         bool      `json:"active"`
}

// NewSessionResponse converts a stored snapshot.
func NewSessionResponse(snapshot *entities.SessionSnapshot) SessionResponse {
	return SessionResponse{
		ID:             snapshot.ID.String(),
		MeetingID:      snapshot.MeetingID,
		OrganizationID: snapshot.OrganizationID,
		StartedAt:      snapshot.StartedAt,
		EndedAt:        snapshot.EndedAt,
		ChunkCount:     snapshot.ChunkCount,
	}
}

func secondsToDuration(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}
