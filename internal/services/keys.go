package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"

	"github.com/go-authgate/pairgate/internal/core"
	"github.com/go-authgate/pairgate/internal/models"
	"github.com/go-authgate/pairgate/internal/util"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

const (
	KeyAlgorithm = "PBKDF2-SHA256"
	KeyLength    = 256 // bits
	SaltLength   = 32  // bytes
)

// KeyDerivation is everything a device needs to re-derive its key. The key
// itself is never part of it.
type KeyDerivation struct {
	KeyID      string `json:"key_id"`
	Algorithm  string `json:"algorithm"`
	Iterations int    `json:"iterations"`
	Salt       string `json:"salt"`
	KeyLength  int    `json:"key_length"`
}

// KeyService derives device keys and generates tokens and pairing codes.
type KeyService struct {
	iterations int
	sem        *semaphore.Weighted
	metrics    core.Recorder
}

// NewKeyService bounds concurrent PBKDF2 runs to concurrency.
func NewKeyService(iterations, concurrency int, m core.Recorder) *KeyService {
	return &KeyService{
		iterations: iterations,
		sem:        semaphore.NewWeighted(int64(max(concurrency, 1))),
		metrics:    m,
	}
}

// DeriveDeviceKey runs PBKDF2-HMAC-SHA256 over userSecret and fingerprint with
// a fresh salt. Only the derivation parameters and a key identifier leave
// this function; the derived bytes are zeroed.
func (s *KeyService) DeriveDeviceKey(
	ctx context.Context,
	deviceID, userSecret, fingerprint string,
) (*KeyDerivation, error) {
	if deviceID == "" {
		return nil, ErrInvalidDeviceID
	}
	if userSecret == "" {
		return nil, ErrMissingSecret
	}

	salt, err := util.CryptoRandomBytes(SaltLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("key derivation cancelled: %w", err)
	}
	start := time.Now()
	secret := []byte(userSecret + fingerprint)
	key := util.DeriveKey(secret, salt, s.iterations, KeyLength/8, sha256.New)
	s.sem.Release(1)
	s.metrics.RecordKeyDerivation(time.Since(start))

	h := sha256.New()
	h.Write(key)
	h.Write([]byte(deviceID))
	keyID := hex.EncodeToString(h.Sum(nil))[:16]
	util.Zero(key)
	util.Zero(secret)

	return &KeyDerivation{
		KeyID:      keyID,
		Algorithm:  KeyAlgorithm,
		Iterations: s.iterations,
		Salt:       base64.StdEncoding.EncodeToString(salt),
		KeyLength:  KeyLength,
	}, nil
}

// GenerateFingerprint hashes the client reported attributes.
func (s *KeyService) GenerateFingerprint(userAgent, screenResolution, timezone string) string {
	return util.SHA256Hex(userAgent + screenResolution + timezone)
}

// GenerateToken returns lengthBytes random bytes hex encoded.
func (s *KeyService) GenerateToken(lengthBytes int) (string, error) {
	if lengthBytes <= 0 {
		return "", ErrInvalidTokenLength
	}
	return util.CryptoRandomHex(lengthBytes)
}

var legacyCodeSpan = big.NewInt(900000)

// GeneratePairingCode produces a code in the requested format.
func (s *KeyService) GeneratePairingCode(format models.CodeFormat) (string, error) {
	switch format {
	case models.CodeFormatUUID:
		id, err := uuid.NewRandom()
		if err != nil {
			return "", err
		}
		return id.String(), nil
	case models.CodeFormatShort:
		return util.CryptoRandomHex(6)
	case models.CodeFormatLegacy:
		n, err := rand.Int(rand.Reader, legacyCodeSpan)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%06d", n.Int64()+100000), nil
	default:
		return "", ErrInvalidFormat
	}
}
