// Package common defines shared constants and sentinel errors used across
// the server, the transport layer and the operator CLI. Callers should use
// errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Signing session errors.
	ErrMissingChannelAddress = errors.New("subject has no contact point to receive a code")
	ErrChannelDispatch       = errors.New("code could not be sent")
	ErrDispatchInFlight      = errors.New("code dispatch already in progress")
	ErrCodeMismatch          = errors.New("verification code does not match")
	ErrCodeExpired           = errors.New("verification code expired")
	ErrAttemptsExhausted     = errors.New("verification attempts exhausted")
	ErrInvalidState          = errors.New("operation not allowed in current session state")
	ErrSessionNotFound       = errors.New("signing session not found")
	ErrSessionSuperseded     = errors.New("signing session superseded or token mismatch")

	// Capture errors.
	ErrEmptySignature = errors.New("signature is empty")
	ErrNoActiveStroke = errors.New("no active stroke")

	// Record and certificate errors.
	ErrImageDecode         = errors.New("signature image could not be decoded")
	ErrInconsistentRecord  = errors.New("consent record has inconsistent signing event fields")
	ErrTamperedRecord      = errors.New("consent record audit seal does not match")
	ErrNotSigned           = errors.New("document has not been signed")
	ErrUnknownDocumentKind = errors.New("unknown document kind")
	ErrUnknownTextVersion  = errors.New("unknown legal text version")

	// Validation errors.
	ErrIncorrectField = errors.New("incorrect field")
)
