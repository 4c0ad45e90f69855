package domain

import "time"

// SessionToken is a signed, stateless session credential.
type SessionToken struct {
	Value     string
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// VerifiedSession is the outcome of a successful verification. Replacement is
// non-nil when the token entered its refresh window and a fresh one was
// issued; the caller must hand it to the client.
type VerifiedSession struct {
	Subject     string
	Replacement *SessionToken
}
