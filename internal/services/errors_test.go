package services

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want Kind
	}{
		{nil, ""},
		{ErrInvalidFormat, KindValidation},
		{fmt.Errorf("wrapped: %w", ErrInvalidPublicKey), KindValidation},
		{&RateLimitError{Action: "pairing"}, KindRateLimited},
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
		{errors.New("disk on fire"), KindInternal},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ErrorKind(tt.err), "%v", tt.err)
	}
}

func TestRateLimitError(t *testing.T) {
	err := &RateLimitError{Action: "registration", RetryAfter: 1500 * time.Millisecond}
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, 2, err.RetryAfterSeconds())
	assert.Contains(t, err.Error(), "registration")

	zero := &RateLimitError{Action: "registration"}
	assert.Equal(t, 1, zero.RetryAfterSeconds())
}
