package session

import "errors"

var (
	// ErrInvalidCredentials covers both unknown accounts and wrong passwords
	ErrInvalidCredentials = errors.New("session: invalid credentials")
	ErrAccountDisabled    = errors.New("session: account is disabled")
	ErrAccountLocked      = errors.New("session: account is locked")
	// ErrInvalidToken wraps the verifier's error for a rejected refresh or logout token
	ErrInvalidToken = errors.New("session: invalid token")
	// ErrUpstreamUnavailable means the identity store failed or timed out; callers may retry
	ErrUpstreamUnavailable = errors.New("session: identity store unavailable")
)
