package mongo

import (
	"testing"
	"time"

	"github.com/99minutos/identity-access/internal/core/domain"
)

func TestToAuditDocument(t *testing.T) {
	loc := time.FixedZone("UTC-6", -6*3600)
	occurred := time.Date(2026, 1, 1, 6, 0, 0, 0, loc)
	recorded := occurred.Add(time.Second)

	doc := toAuditDocument(domain.AuditEntry{
		Action:         domain.AuditAdminGranted,
		ActorID:        "s1",
		ActorRole:      domain.RoleSuperAdmin,
		TargetUsername: "alice",
		OccurredAt:     occurred,
	}, recorded)

	if doc.Action != "admin_granted" || doc.ActorRole != "super_admin" || doc.TargetUsername != "alice" {
		t.Fatalf("unexpected document %+v", doc)
	}
	if doc.OccurredAt.Location() != time.UTC || !doc.OccurredAt.Equal(occurred) {
		t.Fatalf("expected UTC occurred_at, got %s", doc.OccurredAt)
	}
	if !doc.RecordedAt.Equal(recorded) {
		t.Fatalf("unexpected recorded_at %s", doc.RecordedAt)
	}
}
