package service

import (
	"context"
	"fmt"
	"time"

	"github.com/99minutos/identity-access/internal/core/domain"
	"github.com/99minutos/identity-access/internal/core/ports"
)

// UserService applies mutations to the User aggregate. It never persists;
// the caller owns the transaction.
type UserService struct {
	hasher ports.PasswordHasher
	now    func() time.Time
}

func NewUserService(hasher ports.PasswordHasher) *UserService {
	return &UserService{hasher: hasher, now: time.Now}
}

// ToggleUserActivation sets user.IsActive. Super admins can never change
// activation. A request matching the current state is a no-op and reports
// changed == false.
func (s *UserService) ToggleUserActivation(user *domain.User, isActive bool) (changed bool, err error) {
	if !user.Role.IsChangeable() {
		return false, fmt.Errorf("%w: cannot change activation of %s (%s)",
			domain.ErrActivationChangeNotPermitted, user.Username, user.Role)
	}
	if user.IsActive == isActive {
		return false, nil
	}
	user.IsActive = isActive
	user.UpdatedAt = s.now().UTC()
	return true, nil
}

// ToggleUserAdminRole promotes a user to admin or demotes an admin to user.
func (s *UserService) ToggleUserAdminRole(user *domain.User, isAdmin bool) (changed bool, err error) {
	if !user.Role.IsChangeable() {
		return false, fmt.Errorf("%w: cannot change role of %s (%s)",
			domain.ErrRoleChangeNotPermitted, user.Username, user.Role)
	}
	target := domain.RoleUser
	if isAdmin {
		target = domain.RoleAdmin
	}
	if user.Role == target {
		return false, nil
	}
	user.Role = target
	user.UpdatedAt = s.now().UTC()
	return true, nil
}

// ChangePassword replaces the stored hash with one derived from raw.
func (s *UserService) ChangePassword(ctx context.Context, user *domain.User, raw domain.RawPassword) error {
	hash, err := s.hasher.Hash(ctx, raw)
	if err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	user.PasswordHash = hash
	user.UpdatedAt = s.now().UTC()
	return nil
}
