package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/99minutos/identity-access/internal/core/domain"
	"github.com/99minutos/identity-access/internal/core/ports"
)

var errInvalidCredentials = fmt.Errorf("%w: invalid credentials", domain.ErrAuthentication)

// AuthService implements log-in.
type AuthService struct {
	users    ports.UserReader
	hasher   ports.PasswordHasher
	sessions ports.SessionTokens
	throttle ports.LoginThrottle
	log      zerolog.Logger
}

func NewAuthService(
	users ports.UserReader,
	hasher ports.PasswordHasher,
	sessions ports.SessionTokens,
	throttle ports.LoginThrottle,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		users:    users,
		hasher:   hasher,
		sessions: sessions,
		throttle: throttle,
		log:      log,
	}
}

// LogIn checks the credentials and issues a session token. Unknown users,
// inactive users and wrong passwords all fail with the same error.
func (s *AuthService) LogIn(ctx context.Context, username, password string) (domain.SessionToken, *domain.User, error) {
	name, err := domain.NewUsername(username)
	if err != nil {
		return domain.SessionToken{}, nil, err
	}
	raw, err := domain.NewRawPassword(password)
	if err != nil {
		return domain.SessionToken{}, nil, errInvalidCredentials
	}

	key := name.String()
	blocked, err := s.throttle.Blocked(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Str("username", key).Msg("login throttle check failed, continuing")
	} else if blocked {
		return domain.SessionToken{}, nil, fmt.Errorf("%w: too many failed attempts", domain.ErrAuthentication)
	}

	user, err := s.users.ReadByUsername(ctx, name)
	if err != nil {
		return domain.SessionToken{}, nil, fmt.Errorf("log in: %w", err)
	}

	if user == nil || !user.IsActive {
		s.recordFailure(ctx, key)
		return domain.SessionToken{}, nil, errInvalidCredentials
	}

	ok, err := s.hasher.Verify(ctx, raw, user.PasswordHash)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidHashFormat) {
			s.log.Error().Err(err).Str("user_id", user.ID).Msg("stored password hash is corrupt")
		}
		return domain.SessionToken{}, nil, fmt.Errorf("log in: %w", err)
	}
	if !ok {
		s.recordFailure(ctx, key)
		return domain.SessionToken{}, nil, errInvalidCredentials
	}

	if err := s.throttle.Reset(ctx, key); err != nil {
		s.log.Warn().Err(err).Str("username", key).Msg("failed to reset login throttle")
	}

	token, err := s.sessions.Issue(user.ID)
	if err != nil {
		return domain.SessionToken{}, nil, fmt.Errorf("log in: %w", err)
	}

	s.log.Info().Str("user_id", user.ID).Str("username", key).Msg("user logged in")
	return token, user, nil
}

func (s *AuthService) recordFailure(ctx context.Context, key string) {
	if err := s.throttle.RecordFailure(ctx, key); err != nil {
		s.log.Warn().Err(err).Str("username", key).Msg("failed to record login failure")
	}
}
