package store

import "errors"

var (
	// ErrRecordNotFound wraps GORM's not found error for consistency
	ErrRecordNotFound = errors.New("record not found")

	// ErrDuplicateKey is returned when a write violates a unique index, such
	// as a second active device with the same fingerprint.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrPairingCodeNotRedeemable is returned by MarkPairingCodeUsed when the
	// row was already consumed or expired by the time the update ran (0 rows updated).
	ErrPairingCodeNotRedeemable = errors.New("pairing code not redeemable")
)
