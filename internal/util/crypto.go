package util

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"hash"

	"golang.org/x/crypto/pbkdf2"
)

// CryptoRandomBytes generates cryptographically secure random bytes
func CryptoRandomBytes(length int64) ([]byte, error) {
	buf := make([]byte, length)
	_, err := rand.Read(buf)
	return buf, err
}

// CryptoRandomHex returns hex encoding of n random bytes (2n characters).
func CryptoRandomHex(n int) (string, error) {
	b, err := CryptoRandomBytes(int64(n))
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// DeriveKey runs PBKDF2 with the given hash over secret and salt.
func DeriveKey(secret, salt []byte, iterations, keyLen int, h func() hash.Hash) []byte {
	return pbkdf2.Key(secret, salt, iterations, keyLen, h)
}

// SHA256Hex returns the SHA-256 hash of s as a lowercase hex string.
// Intended for use with high-entropy, unguessable values (e.g., randomly
// generated tokens); for such inputs, a salt is not required for security.
func SHA256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// Zero overwrites b in place.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
