package domain

import "fmt"

const (
	PasswordMinLen = 6
	redacted       = "[REDACTED]"
)

// RawPassword holds a plaintext secret for the duration of a request. It is
// never persisted and formats as [REDACTED].
type RawPassword struct {
	value []byte
}

func NewRawPassword(raw string) (RawPassword, error) {
	if len(raw) < PasswordMinLen {
		return RawPassword{}, fmt.Errorf("%w: password must be at least %d characters", ErrDomainField, PasswordMinLen)
	}
	return RawPassword{value: []byte(raw)}, nil
}

// Bytes exposes the plaintext to hashers.
func (p RawPassword) Bytes() []byte { return p.value }

func (p RawPassword) String() string   { return redacted }
func (p RawPassword) GoString() string { return redacted }

func (p RawPassword) MarshalText() ([]byte, error) { return []byte(redacted), nil }

// PasswordHash is a bcrypt modular-crypt digest. Salt and cost travel inside
// the encoded value.
type PasswordHash []byte
