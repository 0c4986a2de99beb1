package entities

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType is the closed set of outbound event discriminators.
type EventType string

const (
	EventSessionStarted   EventType = "session_started"
	EventSuggestion       EventType = "coaching_suggestion"
	EventCompetitorAlert  EventType = "competitor_alert"
	EventSentimentAlert   EventType = "sentiment_alert"
	EventSentimentUpdate  EventType = "sentiment_update"
	EventTalkTimeAnalysis EventType = "talk_time_analysis"
	EventPatternAnalysis  EventType = "pattern_analysis"
	EventConfigUpdated    EventType = "config_updated"
	EventSessionEnded     EventType = "session_ended"
	EventPong             EventType = "pong"
)

// MessageType is the closed set of inbound message discriminators.
type MessageType string

const (
	MessageTranscriptChunk   MessageType = "transcript_chunk"
	MessageRequestSuggestion MessageType = "request_suggestion"
	MessageRequestTalkTime   MessageType = "request_talk_time"
	MessageRequestPatterns   MessageType = "request_patterns"
	MessageUpdateConfig      MessageType = "update_config"
	MessagePing              MessageType = "ping"
)

// Event is the outbound envelope pushed to a session's client. The type
// discriminator is mandatory; payloads may carry extra fields for forward
// compatibility.
type Event struct {
	Type    EventType   `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// InboundMessage is the raw inbound envelope; the payload is decoded per
// message type by the session manager.
type InboundMessage struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// CoachingEventRecord is the durable, append-only persistence of a dispatched
// event (suggestions and sentiment snapshots) for later audit and reporting.
type CoachingEventRecord struct {
	ID             uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	SessionID      uuid.UUID `json:"session_id" gorm:"type:uuid;not null;index"`
	MeetingID      string    `json:"meeting_id" gorm:"type:varchar(255);not null;index"`
	OrganizationID string    `json:"organization_id" gorm:"type:varchar(255);not null;index"`
	EventType      string    `json:"event_type" gorm:"type:varchar(64);not null"`
	Payload        []byte    `json:"payload" gorm:"type:jsonb"`
	CreatedAt      time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName overrides the gorm table name.
func (CoachingEventRecord) TableName() string {
	return "coaching_events"
}

// NewCoachingEventRecord builds a record for the durable log; payload
// marshalling failures degrade to an empty JSON object rather than dropping
// the record.
func NewCoachingEventRecord(session *CoachingSession, eventType EventType, payload interface{}) *CoachingEventRecord {
	raw, err := json.Marshal(payload)
	if err != nil {
		raw = []byte("{}")
	}
	return &CoachingEventRecord{
		ID:             uuid.New(),
		SessionID:      session.ID,
		MeetingID:      session.MeetingID,
		OrganizationID: session.OrganizationID,
		EventType:      string(eventType),
		Payload:        raw,
		CreatedAt:      time.Now(),
	}
}
