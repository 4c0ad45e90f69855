// Package command holds the administrative use cases. Each exported method of
// UserAdmin is one interactor and runs as a single unit of work:
//
//  1. resolve the current user from the session
//  2. coarse authorization against a ceiling role
//  3. parse the target username
//  4. load the target with a locking read
//  5. authorize against the target's actual role
//  6. apply the domain mutation
//  7. commit
//
// Any failure before commit rolls the transaction back.
package command

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/identity-access/internal/core/domain"
	"github.com/99minutos/identity-access/internal/core/ports"
	"github.com/99minutos/identity-access/internal/core/service"
)

// UserAdmin implements ports.UserAdmin.
type UserAdmin struct {
	currentUser ports.CurrentUserService
	authz       *service.AuthorizationService
	users       *service.UserService
	tx          ports.TransactionManager
	audit       ports.AuditLog
	log         zerolog.Logger
	now         func() time.Time
}

func NewUserAdmin(
	currentUser ports.CurrentUserService,
	authz *service.AuthorizationService,
	users *service.UserService,
	tx ports.TransactionManager,
	audit ports.AuditLog,
	log zerolog.Logger,
) *UserAdmin {
	return &UserAdmin{
		currentUser: currentUser,
		authz:       authz,
		users:       users,
		tx:          tx,
		audit:       audit,
		log:         log,
		now:         time.Now,
	}
}

// mutation changes target in place and reports whether anything changed.
type mutation func(ctx context.Context, target *domain.User) (bool, error)

type operation struct {
	name    string
	action  domain.AuditAction
	ceiling domain.Role
	// self lets an actor target their own account without the ceiling and
	// subordinate checks.
	self   bool
	mutate mutation
}

// ReactivateUser restores a soft-deleted user. Open to admins; only super
// admins may reactivate admins. Reactivating an active user is a no-op.
func (a *UserAdmin) ReactivateUser(ctx context.Context, username string) error {
	return a.run(ctx, username, operation{
		name:    "reactivate user",
		action:  domain.AuditUserReactivated,
		ceiling: domain.RoleUser,
		mutate: func(_ context.Context, u *domain.User) (bool, error) {
			return a.users.ToggleUserActivation(u, true)
		},
	})
}

// DeactivateUser soft-deletes a user. Super admins cannot be deactivated.
func (a *UserAdmin) DeactivateUser(ctx context.Context, username string) error {
	return a.run(ctx, username, operation{
		name:    "deactivate user",
		action:  domain.AuditUserDeactivated,
		ceiling: domain.RoleUser,
		mutate: func(_ context.Context, u *domain.User) (bool, error) {
			return a.users.ToggleUserActivation(u, false)
		},
	})
}

// GrantAdmin promotes a user to admin. Super admins only.
func (a *UserAdmin) GrantAdmin(ctx context.Context, username string) error {
	return a.run(ctx, username, operation{
		name:    "grant admin",
		action:  domain.AuditAdminGranted,
		ceiling: domain.RoleAdmin,
		mutate: func(_ context.Context, u *domain.User) (bool, error) {
			return a.users.ToggleUserAdminRole(u, true)
		},
	})
}

// RevokeAdmin demotes an admin to user. Super admins only.
func (a *UserAdmin) RevokeAdmin(ctx context.Context, username string) error {
	return a.run(ctx, username, operation{
		name:    "revoke admin",
		action:  domain.AuditAdminRevoked,
		ceiling: domain.RoleAdmin,
		mutate: func(_ context.Context, u *domain.User) (bool, error) {
			return a.users.ToggleUserAdminRole(u, false)
		},
	})
}

// ChangePassword sets a new password for the actor's own account or for a
// subordinate's.
func (a *UserAdmin) ChangePassword(ctx context.Context, username, password string) error {
	return a.run(ctx, username, operation{
		name:    "change password",
		action:  domain.AuditPasswordChanged,
		ceiling: domain.RoleUser,
		self:    true,
		mutate: func(ctx context.Context, u *domain.User) (bool, error) {
			raw, err := domain.NewRawPassword(password)
			if err != nil {
				return false, err
			}
			if err := a.users.ChangePassword(ctx, u, raw); err != nil {
				return false, err
			}
			return true, nil
		},
	})
}

func (a *UserAdmin) run(ctx context.Context, username string, op operation) error {
	a.log.Info().Str("username", username).Msgf("%s: started", op.name)

	actor, err := a.currentUser.GetCurrentUser(ctx)
	if err != nil {
		return err
	}

	isSelf := op.self && strings.ToLower(strings.TrimSpace(username)) == actor.Username.String()
	if !isSelf {
		if err := a.authz.AuthorizeForSubordinateRole(actor.Role, op.ceiling); err != nil {
			return err
		}
	}

	name, err := domain.NewUsername(username)
	if err != nil {
		return err
	}

	tx, err := a.tx.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%s: begin: %w", op.name, err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			a.log.Warn().Err(rbErr).Str("username", name.String()).Msgf("%s: rollback failed", op.name)
		}
	}()

	target, err := tx.Users().ReadByUsername(ctx, name, true)
	if err != nil {
		return fmt.Errorf("%s: %w", op.name, err)
	}
	if target == nil {
		return fmt.Errorf("%w: %s", domain.ErrUserNotFoundByUsername, name)
	}

	if !isSelf || target.ID != actor.ID {
		if err := a.authz.AuthorizeForSubordinateRole(actor.Role, target.Role); err != nil {
			return err
		}
	}

	changed, err := op.mutate(ctx, target)
	if err != nil {
		return err
	}
	if changed {
		if err := tx.Users().Update(ctx, target); err != nil {
			return fmt.Errorf("%s: %w", op.name, err)
		}
	}

	// A request abandoned before this point leaves no trace.
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op.name, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%s: commit: %w", op.name, err)
	}

	if !changed {
		a.log.Info().Str("username", name.String()).Msgf("%s: no change", op.name)
		return nil
	}

	a.record(ctx, actor, name, op.action)
	a.log.Info().Str("username", name.String()).Msgf("%s: done", op.name)
	return nil
}

// record writes the audit entry. Failures are logged, never returned: the
// mutation is already committed.
func (a *UserAdmin) record(ctx context.Context, actor *domain.User, target domain.Username, action domain.AuditAction) {
	entry := domain.AuditEntry{
		Action:         action,
		ActorID:        actor.ID,
		ActorRole:      actor.Role,
		TargetUsername: target.String(),
		OccurredAt:     a.now().UTC(),
	}
	if err := a.audit.Record(ctx, entry); err != nil {
		a.log.Warn().Err(err).Str("action", string(action)).Str("username", target.String()).Msg("failed to record audit entry")
	}
}
