package auth

import "errors"

var (
	// ErrUnauthenticated covers a missing, malformed, forged or expired token
	// and a subject that no longer resolves to a user.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden means the identity is valid but not allowed.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidCredentials is returned by Login for an unknown username and
	// for a wrong password alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountDisabled always travels together with ErrForbidden.
	ErrAccountDisabled = errors.New("account disabled")
	ErrInvalidToken    = errors.New("invalid token")
	// ErrPasswordTooLong is returned by Hash when bcrypt would reject the
	// password. The limit is in bytes, not characters.
	ErrPasswordTooLong = errors.New("password exceeds 72 bytes")
)
