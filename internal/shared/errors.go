package shared

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials covers both unknown accounts and wrong passwords
	// so responses cannot be used to probe for registered emails.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrCSRFTokenMissing means the request carried no CSRF token.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch means the token did not match the session.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)
