package service

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/99minutos/identity-access/internal/core/domain"
)

const MinSessionTTL = time.Minute

// SessionConfig holds the validated token settings. For HS* algorithms Key
// is the shared secret; for RS* it is a PEM-encoded RSA private key.
type SessionConfig struct {
	Algorithm        string
	Key              string
	TTL              time.Duration
	RefreshThreshold float64
}

// SessionTokenService issues JWT session tokens and implements sliding
// expiration: verifying a token that has used at least RefreshThreshold of
// its lifetime yields a replacement with a full new window.
type SessionTokenService struct {
	method    jwt.SigningMethod
	signKey   any
	verifyKey any
	ttl       time.Duration
	threshold float64
	now       func() time.Time
}

type SessionOption func(*SessionTokenService)

// WithClock overrides the time source.
func WithClock(now func() time.Time) SessionOption {
	return func(s *SessionTokenService) { s.now = now }
}

func NewSessionTokenService(cfg SessionConfig, opts ...SessionOption) (*SessionTokenService, error) {
	if cfg.TTL < MinSessionTTL {
		return nil, fmt.Errorf("session: ttl %s is below %s", cfg.TTL, MinSessionTTL)
	}
	if !(cfg.RefreshThreshold > 0 && cfg.RefreshThreshold < 1) {
		return nil, fmt.Errorf("session: refresh threshold %v must be between 0 and 1, exclusive", cfg.RefreshThreshold)
	}
	if cfg.Key == "" {
		return nil, errors.New("session: signing key must not be empty")
	}

	s := &SessionTokenService{
		ttl:       cfg.TTL,
		threshold: cfg.RefreshThreshold,
		now:       time.Now,
	}

	switch cfg.Algorithm {
	case "HS256", "HS384", "HS512":
		s.method = jwt.GetSigningMethod(cfg.Algorithm)
		s.signKey = []byte(cfg.Key)
		s.verifyKey = []byte(cfg.Key)
	case "RS256", "RS384", "RS512":
		priv, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(cfg.Key))
		if err != nil {
			return nil, fmt.Errorf("session: parse rsa key: %w", err)
		}
		s.method = jwt.GetSigningMethod(cfg.Algorithm)
		s.signKey = priv
		s.verifyKey = &priv.PublicKey
	default:
		return nil, fmt.Errorf("session: unsupported algorithm %q", cfg.Algorithm)
	}

	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issue signs a token for subject valid from now until now+ttl.
func (s *SessionTokenService) Issue(subject string) (domain.SessionToken, error) {
	if subject == "" {
		return domain.SessionToken{}, errors.New("session: empty subject")
	}

	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}

	signed, err := jwt.NewWithClaims(s.method, claims).SignedString(s.signKey)
	if err != nil {
		return domain.SessionToken{}, fmt.Errorf("session: sign: %w", err)
	}

	return domain.SessionToken{
		Value:     signed,
		Subject:   subject,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Verify checks signature, algorithm and expiry and returns the subject. A
// replacement token is attached once the elapsed share of the lifetime
// reaches the refresh threshold.
func (s *SessionTokenService) Verify(raw string) (domain.VerifiedSession, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, s.keyFunc,
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.VerifiedSession{}, fmt.Errorf("%w: session expired", domain.ErrAuthentication)
		}
		return domain.VerifiedSession{}, fmt.Errorf("%w: invalid session token: %v", domain.ErrAuthentication, err)
	}
	if claims.Subject == "" || claims.IssuedAt == nil {
		return domain.VerifiedSession{}, fmt.Errorf("%w: incomplete session token", domain.ErrAuthentication)
	}

	issuedAt, expiresAt := claims.IssuedAt.Time, claims.ExpiresAt.Time
	lifetime := expiresAt.Sub(issuedAt)
	if lifetime <= 0 {
		return domain.VerifiedSession{}, fmt.Errorf("%w: malformed session window", domain.ErrAuthentication)
	}

	out := domain.VerifiedSession{Subject: claims.Subject}

	elapsed := s.now().Sub(issuedAt)
	if float64(elapsed)/float64(lifetime) >= s.threshold {
		fresh, err := s.Issue(claims.Subject)
		if err != nil {
			return domain.VerifiedSession{}, err
		}
		out.Replacement = &fresh
	}
	return out, nil
}

func (s *SessionTokenService) keyFunc(t *jwt.Token) (any, error) {
	switch s.verifyKey.(type) {
	case *rsa.PublicKey:
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
	default:
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
	}
	return s.verifyKey, nil
}
