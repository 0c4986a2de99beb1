package ticket

import (
	"testing"

	"github.com/google/uuid"

	"github.com/salescoach-team/coaching-engine/internal/infrastructure/cache"
)

func TestIssueAndConsume(t *testing.T) {
	manager := NewManager(cache.NewMemoryStore())

	claims := Claims{
		MeetingID:      "meet-1",
		OrganizationID: "org-1",
		UserID:         uuid.New(),
	}

	tk, err := manager.Issue(claims)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if tk == "" {
		t.Fatalf("expected non-empty ticket")
	}

	got, ok := manager.Consume(tk)
	if !ok {
		t.Fatalf("expected ticket to validate")
	}
	if got.MeetingID != claims.MeetingID || got.UserID != claims.UserID {
		t.Fatalf("claims mismatch: %+v", got)
	}
}

func TestConsumeIsOneTimeUse(t *testing.T) {
	manager := NewManager(cache.NewMemoryStore())

	tk, err := manager.Issue(Claims{MeetingID: "meet-1", OrganizationID: "org-1", UserID: uuid.New()})
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	if _, ok := manager.Consume(tk); !ok {
		t.Fatalf("first consume must succeed")
	}
	if _, ok := manager.Consume(tk); ok {
		t.Fatalf("second consume must fail")
	}
}

func TestConsumeUnknownTicket(t *testing.T) {
	manager := NewManager(cache.NewMemoryStore())
	if _, ok := manager.Consume("never-issued"); ok {
		t.Fatalf("unknown ticket must not validate")
	}
}
