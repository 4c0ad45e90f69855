package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/99minutos/identity-access/internal/core/domain"
)

const auditCollection = "user_audit_events"

// AuditRepository implements ports.AuditLog using MongoDB. The collection is
// append-only.
type AuditRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewAuditRepository(db *mongo.Database) *AuditRepository {
	return &AuditRepository{coll: db.Collection(auditCollection), now: time.Now}
}

type auditDocument struct {
	Action         string    `bson:"action"`
	ActorID        string    `bson:"actor_id"`
	ActorRole      string    `bson:"actor_role"`
	TargetUsername string    `bson:"target_username"`
	OccurredAt     time.Time `bson:"occurred_at"`
	RecordedAt     time.Time `bson:"recorded_at"`
}

func toAuditDocument(e domain.AuditEntry, recordedAt time.Time) auditDocument {
	return auditDocument{
		Action:         string(e.Action),
		ActorID:        e.ActorID,
		ActorRole:      e.ActorRole.String(),
		TargetUsername: e.TargetUsername,
		OccurredAt:     e.OccurredAt.UTC(),
		RecordedAt:     recordedAt.UTC(),
	}
}

// Record appends one entry to the audit trail.
func (r *AuditRepository) Record(ctx context.Context, entry domain.AuditEntry) error {
	if _, err := r.coll.InsertOne(ctx, toAuditDocument(entry, r.now())); err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// EnsureIndexes creates the lookup index on target username and time.
func (r *AuditRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "target_username", Value: 1}, {Key: "occurred_at", Value: -1}},
		Options: options.Index().SetName("target_username_occurred_at"),
	})
	if err != nil {
		return fmt.Errorf("create audit index: %w", err)
	}
	return nil
}
