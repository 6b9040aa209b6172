package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound        = errors.New("entity not found")
	ErrAlreadyExists   = errors.New("entity already exists")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")

	// Auth
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrInvalidRefreshToken    = errors.New("invalid refresh token")
	ErrRefreshTokenRevoked    = errors.New("refresh token revoked or invalid")
	ErrAlreadyVerified        = errors.New("email already verified")
	ErrInvalidVerification    = errors.New("invalid or expired verification token")
	ErrInvalidVerifyCode      = errors.New("invalid verification code")
	ErrRateLimited            = errors.New("too many requests")
	ErrGoogleSignInDisabled   = errors.New("google sign-in is not configured")
	ErrInvalidGoogleToken     = errors.New("invalid google token")
	ErrRegistrationInProgress = errors.New("registration already in progress")

	// Content
	ErrInvalidModel   = errors.New("invalid model")
	ErrInvalidPersona = errors.New("invalid persona")
	ErrPrivate        = errors.New("resource is private")

	// Sessions
	ErrSessionNotStarted = errors.New("session not started")
	ErrSessionActive     = errors.New("session already started")
	ErrSessionClosed     = errors.New("session closed")
	ErrNoActiveSession   = errors.New("no active session")
	ErrEmptyTurn         = errors.New("turn produced no audio")
)
