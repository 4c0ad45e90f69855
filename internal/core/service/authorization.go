package service

import (
	"fmt"

	"github.com/99minutos/identity-access/internal/core/domain"
)

// AuthorizationService decides whether an acting role may operate on a
// target role. It has no dependencies and no side effects.
type AuthorizationService struct{}

func NewAuthorizationService() *AuthorizationService {
	return &AuthorizationService{}
}

// AuthorizeForSubordinateRole allows the actor only when it strictly outranks
// the target. Super admins are the one exception: only they may act on a
// super admin, including their peers.
func (s *AuthorizationService) AuthorizeForSubordinateRole(actor, target domain.Role) error {
	if actor == domain.RoleSuperAdmin {
		return nil
	}
	if actor.IsValid() && target.IsValid() && actor.Outranks(target) {
		return nil
	}
	return fmt.Errorf("%w: role %s cannot act on role %s", domain.ErrAuthorization, actor, target)
}
