package auth

import "errors"

// Sentinel errors for credential handling.
var (
	// ErrNotAuthenticated means no credential is stored.
	ErrNotAuthenticated = errors.New("auth: not authenticated")

	// ErrTokenExpired means the stored JWT is past its exp claim.
	ErrTokenExpired = errors.New("auth: token expired")

	// ErrTokenMalformed means a token could not be decoded as a JWT.
	ErrTokenMalformed = errors.New("auth: token malformed")

	// ErrInvalidCredentials means SignIn was given an empty token.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
)
