package domain

import "errors"

var (
	ErrAuthentication               = errors.New("authentication failed")
	ErrAuthorization                = errors.New("authorization failed")
	ErrDomainField                  = errors.New("invalid field")
	ErrUserNotFoundByUsername       = errors.New("user not found by username")
	ErrActivationChangeNotPermitted = errors.New("activation change not permitted")
	ErrRoleChangeNotPermitted       = errors.New("role change not permitted")
	ErrInvalidHashFormat            = errors.New("invalid password hash format")
)
