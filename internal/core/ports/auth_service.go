package ports

import (
	"context"

	"github.com/99minutos/identity-access/internal/core/domain"
)

// PasswordHasher hashes and verifies peppered credentials. Implementations
// are CPU-bound; callers run them off the request path.
type PasswordHasher interface {
	Hash(ctx context.Context, raw domain.RawPassword) (domain.PasswordHash, error)
	Verify(ctx context.Context, raw domain.RawPassword, hashed domain.PasswordHash) (bool, error)
}

// SessionTokens issues and verifies stateless session tokens.
type SessionTokens interface {
	Issue(subject string) (domain.SessionToken, error)
	Verify(raw string) (domain.VerifiedSession, error)
}

// CurrentUserService resolves the authenticated actor of the request.
type CurrentUserService interface {
	GetCurrentUser(ctx context.Context) (*domain.User, error)
}

// LoginThrottle counts failed log-in attempts per key.
type LoginThrottle interface {
	Blocked(ctx context.Context, key string) (bool, error)
	RecordFailure(ctx context.Context, key string) error
	Reset(ctx context.Context, key string) error
}

type AuthService interface {
	LogIn(ctx context.Context, username, password string) (domain.SessionToken, *domain.User, error)
}
