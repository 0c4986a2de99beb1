package coach

import "github.com/salescoach-team/coaching-engine/internal/domain/entities"

// CreateSessionRequest asks for a one-time websocket ticket for a call.
type CreateSessionRequest struct {
	MeetingID string `json:"meeting_id" validate:"required,max=255"`
}

// UpdateConfigRequest carries a partial coaching config update. Absent fields
// are left unchanged.
type UpdateConfigRequest struct {
	CompetitorAlerts    *bool     `json:"competitor_alerts,omitempty"`
	ObjectionDetection  *bool     `json:"objection_detection,omitempty"`
	SentimentMonitoring *bool     `json:"sentiment_monitoring,omitempty"`
	TalkTimeAlerts      *bool     `json:"talk_time_alerts,omitempty"`
	QuestionSuggestions *bool     `json:"question_suggestions,omitempty"`
	Competitors         *[]string `json:"competitors,omitempty"`
	MaxRepTalkRatio     *float64  `json:"max_rep_talk_ratio,omitempty" validate:"omitempty,gt=0,lte=1"`
	SentimentThreshold  *float64  `json:"sentiment_threshold,omitempty" validate:"omitempty,gte=-1,lte=1"`
	CooldownSeconds     *int      `json:"cooldown_seconds,omitempty" validate:"omitempty,gte=5,lte=600"`
}

// ToEntity converts the request into the domain update.
func (r UpdateConfigRequest) ToEntity() entities.CoachingConfigUpdate {
	update := entities.CoachingConfigUpdate{
		CompetitorAlerts:    r.CompetitorAlerts,
		ObjectionDetection:  r.ObjectionDetection,
		SentimentMonitoring: r.SentimentMonitoring,
		TalkTimeAlerts:      r.TalkTimeAlerts,
		QuestionSuggestions: r.QuestionSuggestions,
		Competitors:         r.Competitors,
		MaxRepTalkRatio:     r.MaxRepTalkRatio,
		SentimentThreshold:  r.SentimentThreshold,
	}
	if r.CooldownSeconds != nil {
		cooldown := secondsToDuration(*r.CooldownSeconds)
		update.SuggestionCooldown = &cooldown
	}
	return update
}
