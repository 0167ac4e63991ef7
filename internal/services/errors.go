package services

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Kind is the machine readable error category surfaced to API clients.
type Kind string

const (
	KindValidation       Kind = "validation_error"
	KindRateLimited      Kind = "rate_limited"
	KindNotFound         Kind = "not_found"
	KindInvalidOrExpired Kind = "invalid_or_expired"
	KindAlreadyUsed      Kind = "already_used"
	KindSelfPairing      Kind = "self_pairing"
	KindSelfTrust        Kind = "self_trust"
	KindConflict         Kind = "conflict"
	KindRetryNotAllowed  Kind = "retry_not_allowed"
	KindUnauthorized     Kind = "unauthorized"
	KindInternal         Kind = "internal"
)

// Validation errors
var (
	ErrInvalidFormat      = errors.New("invalid pairing code format")
	ErrInvalidDeviceID    = errors.New("device_id must be 1-128 characters of [A-Za-z0-9._:-]")
	ErrMissingDeviceInfo  = errors.New("user_agent is required")
	ErrInvalidPublicKey   = errors.New("public_key must be a PEM encoded public key")
	ErrInvalidTTL         = errors.New("expires_in must not be negative")
	ErrInvalidTrustLevel  = errors.New("trust level must be at least 1")
	ErrMissingSecret      = errors.New("user_secret is required")
	ErrInvalidTokenLength = errors.New("token length must be positive")
	ErrMissingPairingCode = errors.New("pairing code is required")
)

var (
	ErrRateLimited = errors.New("rate limit exceeded")

	ErrDeviceNotFound      = errors.New("device not found")
	ErrPairingCodeNotFound = errors.New("pairing code not found")
	ErrTrustNotFound       = errors.New("trust relationship not found")

	ErrPairingCodeInvalid = errors.New("pairing code is invalid or expired")
	ErrPairingCodeUsed    = errors.New("pairing code already used")

	ErrSelfPairing = errors.New("a device cannot pair with itself")
	ErrSelfTrust   = errors.New("a device cannot trust itself")

	ErrDeviceAlreadyRegistered = errors.New("device already registered")
	ErrDeviceIDTaken           = errors.New("device_id is registered to another active device")

	ErrRetryNotAllowed = errors.New("retry is only allowed after a failed attempt")

	ErrUnauthorized = errors.New("invalid or expired session token")
)

var errorKinds = []struct {
	err  error
	kind Kind
}{
	{ErrInvalidFormat, KindValidation},
	{ErrInvalidDeviceID, KindValidation},
	{ErrMissingDeviceInfo, KindValidation},
	{ErrInvalidPublicKey, KindValidation},
	{ErrInvalidTTL, KindValidation},
	{ErrInvalidTrustLevel, KindValidation},
	{ErrMissingSecret, KindValidation},
	{ErrInvalidTokenLength, KindValidation},
	{ErrMissingPairingCode, KindValidation},
	{ErrRateLimited, KindRateLimited},
	{ErrDeviceNotFound, KindNotFound},
	{ErrPairingCodeNotFound, KindNotFound},
	{ErrTrustNotFound, KindNotFound},
	{ErrPairingCodeInvalid, KindInvalidOrExpired},
	{ErrPairingCodeUsed, KindAlreadyUsed},
	{ErrSelfPairing, KindSelfPairing},
	{ErrSelfTrust, KindSelfTrust},
	{ErrDeviceAlreadyRegistered, KindConflict},
	{ErrDeviceIDTaken, KindConflict},
	{ErrRetryNotAllowed, KindRetryNotAllowed},
	{ErrUnauthorized, KindUnauthorized},
}

// ErrorKind maps err onto its Kind. Unknown errors are internal.
func ErrorKind(err error) Kind {
	if err == nil {
		return ""
	}
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}

// RateLimitError is returned when the limiter denies an action.
type RateLimitError struct {
	Action     string
	RetryAfter time.Duration
	ResetAt    time.Time
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s, retry after %s", e.Action, e.RetryAfter)
}

func (e *RateLimitError) Unwrap() error {
	return ErrRateLimited
}

// RetryAfterSeconds rounds RetryAfter up to whole seconds, never below 1.
func (e *RateLimitError) RetryAfterSeconds() int {
	secs := int(math.Ceil(e.RetryAfter.Seconds()))
	return max(secs, 1)
}
