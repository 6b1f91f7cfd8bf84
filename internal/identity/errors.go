package identity

import "errors"

var (
	// ErrInvalidCredentials covers both unknown accounts and wrong passwords
	// so responses never reveal which one failed.
	ErrInvalidCredentials = errors.New("identity: invalid credentials")

	ErrEmailTaken     = errors.New("identity: email already registered")
	ErrUserNotFound   = errors.New("identity: user not found")
	ErrRoleNotAllowed = errors.New("identity: role not allowed at signup")
	ErrWeakPassword   = errors.New("identity: password too short")
	ErrInvalidEmail   = errors.New("identity: invalid email")
	ErrMissingName    = errors.New("identity: name required")
	ErrTokenInvalid   = errors.New("identity: token invalid")
	ErrTokenExpired   = errors.New("identity: token expired")
)
