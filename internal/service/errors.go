package service

import "errors"

// Domain errors. Handlers translate these to HTTP statuses; no raw storage
// error ever reaches a client.
var (
	ErrValidation         = errors.New("invalid input")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrDuplicateAccount   = errors.New("username or email already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account locked")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrNotFound           = errors.New("not found")
	ErrMissingCredentials = errors.New("api key and endpoint required for internet deployment")
	ErrStoreUnavailable   = errors.New("store unavailable")
	ErrUpstream           = errors.New("upstream provider unreachable")
)
