package ports

import (
	"context"

	"github.com/99minutos/identity-access/internal/core/domain"
)

// UserAdmin groups the administrative use cases exposed to the transport
// layer. Every method is a single all-or-nothing unit of work.
type UserAdmin interface {
	ReactivateUser(ctx context.Context, username string) error
	DeactivateUser(ctx context.Context, username string) error
	GrantAdmin(ctx context.Context, username string) error
	RevokeAdmin(ctx context.Context, username string) error
	ChangePassword(ctx context.Context, username, password string) error
}

// AuditLog persists committed administrative actions.
type AuditLog interface {
	Record(ctx context.Context, entry domain.AuditEntry) error
}
