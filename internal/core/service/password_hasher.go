package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/99minutos/identity-access/internal/core/domain"
)

// BcryptPasswordHasher mixes a server-wide pepper into every password before
// bcrypt. The pepper is applied as HMAC-SHA256 so the bcrypt input stays
// under its 72-byte limit regardless of password length.
type BcryptPasswordHasher struct {
	pepper []byte
	cost   int
}

func NewBcryptPasswordHasher(pepper string, cost int) (*BcryptPasswordHasher, error) {
	if pepper == "" {
		return nil, errors.New("password hasher: pepper must not be empty")
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("password hasher: cost %d outside [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	return &BcryptPasswordHasher{pepper: []byte(pepper), cost: cost}, nil
}

func (h *BcryptPasswordHasher) Hash(ctx context.Context, raw domain.RawPassword) (domain.PasswordHash, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword(h.peppered(raw), h.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return domain.PasswordHash(hash), nil
}

// Verify reports whether raw matches hashed. bcrypt compares in constant
// time; only a malformed stored hash produces an error.
func (h *BcryptPasswordHasher) Verify(ctx context.Context, raw domain.RawPassword, hashed domain.PasswordHash) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	err := bcrypt.CompareHashAndPassword(hashed, h.peppered(raw))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("%w: %v", domain.ErrInvalidHashFormat, err)
	}
}

func (h *BcryptPasswordHasher) peppered(raw domain.RawPassword) []byte {
	mac := hmac.New(sha256.New, h.pepper)
	mac.Write(raw.Bytes())
	sum := mac.Sum(nil)
	out := make([]byte, base64.StdEncoding.EncodedLen(len(sum)))
	base64.StdEncoding.Encode(out, sum)
	return out
}
