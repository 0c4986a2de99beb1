package entities

import (
	"time"

	"github.com/google/uuid"
)

// SuggestionType is the closed set of coaching advice categories the
// completion collaborator may return.
type SuggestionType string

const (
	SuggestionQuestion         SuggestionType = "question"
	SuggestionObjectionHandler SuggestionType = "objection_handler"
	SuggestionTalkingPoint     SuggestionType = "talking_point"
	SuggestionWarning          SuggestionType = "warning"
	SuggestionEncouragement    SuggestionType = "encouragement"
	SuggestionNextStep         SuggestionType = "next_step"
)

// ValidSuggestionType reports whether t is one of the known categories.
func ValidSuggestionType(t SuggestionType) bool {
	switch t {
	case SuggestionQuestion, SuggestionObjectionHandler, SuggestionTalkingPoint,
		SuggestionWarning, SuggestionEncouragement, SuggestionNextStep:
		return true
	}
	return false
}

// SuggestionPriority ranks how urgently advice should be surfaced.
type SuggestionPriority string

const (
	PriorityLow    SuggestionPriority = "low"
	PriorityMedium SuggestionPriority = "medium"
	PriorityHigh   SuggestionPriority = "high"
)

// CoachingSuggestion is an advisory produced by the suggestion generator.
// It is sent once and durably logged; never mutated.
type CoachingSuggestion struct {
	ID             uuid.UUID          `json:"id"`
	Type           SuggestionType     `json:"type"`
	Content        string             `json:"content"`
	Reasoning      string             `json:"reasoning"`
	Confidence     float64            `json:"confidence"`
	Priority       SuggestionPriority `json:"priority"`
	Timestamp      time.Time          `json:"timestamp"`
	RelatedContext string             `json:"related_context,omitempty"`
}
