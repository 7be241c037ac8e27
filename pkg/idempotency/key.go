// Package idempotency validates client supplied Idempotency-Key headers and derives
// the storage keys and request fingerprints used to replay a previous response.
package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"regexp"
	"strings"
)

const (
	MinKeyLength = 16
	MaxKeyLength = 128
	KeyPrefix    = "idempotency"
)

var (
	ErrKeyTooShort = errors.New("idempotency key must be at least 16 characters")
	ErrKeyTooLong  = errors.New("idempotency key must not exceed 128 characters")
	ErrKeyInvalid  = errors.New("idempotency key contains invalid characters")
	ErrKeyReused   = errors.New("idempotency key was already used with a different request")

	validKeyPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

func Validate(key string) error {
	switch {
	case len(key) < MinKeyLength:
		return ErrKeyTooShort
	case len(key) > MaxKeyLength:
		return ErrKeyTooLong
	case !validKeyPattern.MatchString(key):
		return ErrKeyInvalid
	}

	return nil
}

// BuildCacheKey scopes a client key to the method and path it was sent with.
func BuildCacheKey(method, path, key string) string {
	return KeyPrefix + ":" + digest(strings.ToUpper(method), path, key)
}

// Fingerprint identifies a request payload so a replay can be told apart from key reuse.
func Fingerprint(body []byte) string {
	sum := sha256.Sum256(body)

	return hex.EncodeToString(sum[:])
}

func digest(parts ...string) string {
	h := sha256.New()

	for _, part := range parts {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}

	return hex.EncodeToString(h.Sum(nil))
}
