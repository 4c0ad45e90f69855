package service

import (
	"context"
	"fmt"

	"github.com/99minutos/identity-access/internal/core/domain"
	"github.com/99minutos/identity-access/internal/core/ports"
)

// CurrentUserService resolves the actor from the session subject in ctx.
// Inactive users are rejected, so deactivation ends live sessions.
type CurrentUserService struct {
	users ports.UserReader
}

func NewCurrentUserService(users ports.UserReader) *CurrentUserService {
	return &CurrentUserService{users: users}
}

func (s *CurrentUserService) GetCurrentUser(ctx context.Context) (*domain.User, error) {
	subject, ok := SessionSubject(ctx)
	if !ok {
		return nil, fmt.Errorf("%w: no session", domain.ErrAuthentication)
	}

	user, err := s.users.ReadByID(ctx, subject)
	if err != nil {
		return nil, fmt.Errorf("current user: %w", err)
	}
	if user == nil || !user.IsActive {
		return nil, fmt.Errorf("%w: session subject is unknown or inactive", domain.ErrAuthentication)
	}
	return user, nil
}
