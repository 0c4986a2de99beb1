package talktime

import (
	"strings"

	"github.com/salescoach-team/coaching-engine/internal/domain/entities"
)

// RoleInferrer maps a speaker label to a coarse role. An
// org-directory-backed implementation can replace the default heuristic
// without touching callers. Unknown must be treated as non-actionable.
type RoleInferrer interface {
	Infer(speaker string) entities.SpeakerRole
}

// HeuristicRoleInferrer infers roles from naming conventions in speaker
// labels produced by the transcription feed.
type HeuristicRoleInferrer struct{}

// NewHeuristicRoleInferrer creates the default substring-based role inferrer
func NewHeuristicRoleInferrer() *HeuristicRoleInferrer {
	return &HeuristicRoleInferrer{}
}

var repMarkers = []string{"rep", "sales", "agent", "host", "account"}
var prospectMarkers = []string{"prospect", "customer", "client", "guest", "buyer"}

// Infer returns the inferred role, or unknown when the label matches neither
// convention.
func (h *HeuristicRoleInferrer) Infer(speaker string) entities.SpeakerRole {
	name := strings.ToLower(speaker)
	for _, marker := range repMarkers {
		if strings.Contains(name, marker) {
			return entities.SpeakerRoleRep
		}
	}
	for _, marker := range prospectMarkers {
		if strings.Contains(name, marker) {
			return entities.SpeakerRoleProspect
		}
	}
	return entities.SpeakerRoleUnknown
}
