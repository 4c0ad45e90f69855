package domain

import "time"

type AuditAction string

const (
	AuditUserReactivated AuditAction = "user_reactivated"
	AuditUserDeactivated AuditAction = "user_deactivated"
	AuditAdminGranted    AuditAction = "admin_granted"
	AuditAdminRevoked    AuditAction = "admin_revoked"
	AuditPasswordChanged AuditAction = "password_changed"
)

// AuditEntry records an administrative action after it has been committed.
type AuditEntry struct {
	Action         AuditAction
	ActorID        string
	ActorRole      Role
	TargetUsername string
	OccurredAt     time.Time
}
