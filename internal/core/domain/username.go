package domain

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	UsernameMinLen = 5
	UsernameMaxLen = 20
)

var (
	usernameStart       = regexp.MustCompile(`^[a-z0-9]`)
	usernameAllowed     = regexp.MustCompile(`^[a-z0-9._-]*$`)
	usernameConsecutive = regexp.MustCompile(`[._-]{2}`)
	usernameEnd         = regexp.MustCompile(`[a-z0-9]$`)
)

// Username is a validated, normalized (trimmed, lower-cased) login name.
type Username struct {
	value string
}

// NewUsername validates raw and returns its normalized form.
func NewUsername(raw string) (Username, error) {
	v := strings.ToLower(strings.TrimSpace(raw))

	switch {
	case len(v) < UsernameMinLen || len(v) > UsernameMaxLen:
		return Username{}, fmt.Errorf("%w: username must be between %d and %d characters",
			ErrDomainField, UsernameMinLen, UsernameMaxLen)
	case !usernameStart.MatchString(v):
		return Username{}, fmt.Errorf("%w: username must start with a letter or digit", ErrDomainField)
	case !usernameAllowed.MatchString(v):
		return Username{}, fmt.Errorf("%w: username may only contain letters, digits, dots, hyphens and underscores", ErrDomainField)
	case usernameConsecutive.MatchString(v):
		return Username{}, fmt.Errorf("%w: username cannot contain consecutive special characters", ErrDomainField)
	case !usernameEnd.MatchString(v):
		return Username{}, fmt.Errorf("%w: username must end with a letter or digit", ErrDomainField)
	}

	return Username{value: v}, nil
}

func (u Username) String() string { return u.value }
