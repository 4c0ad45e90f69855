package domain

import "time"

// User is the identity aggregate. A super admin is never inactive.
type User struct {
	ID           string       `json:"id"`
	Username     Username     `json:"-"`
	Role         Role         `json:"role"`
	IsActive     bool         `json:"is_active"`
	PasswordHash PasswordHash `json:"-"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}
