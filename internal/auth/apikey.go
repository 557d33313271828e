// Package auth provides the API key primitives: generation, keyed hashing,
// and constant-time verification. Keys are hashed with HMAC-SHA256 under a
// server-wide secret so the resolver can look a presented key up by digest in
// a single graph query; see internal/middleware/auth.go for the request-time
// resolution logic that uses these primitives.
package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

const (
	// APIKeyRandomBytes is the length of the random part of a raw key.
	APIKeyRandomBytes = 32

	// DefaultKeyPrefix marks raw keys so leaked values are recognizable in
	// scanners and logs.
	DefaultKeyPrefix = "cc_live_"

	// DisplayPrefixLength is the number of raw-key characters safe to show
	// in listings.
	DisplayPrefixLength = 12
)

// GenerateAPIKey creates a new random raw key with the given prefix. The raw
// key is shown to the caller exactly once; only its digest is stored.
// Returns the raw key and a display prefix for listings.
func GenerateAPIKey(prefix string) (key string, displayPrefix string, err error) {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}

	randomBytes := make([]byte, APIKeyRandomBytes)
	if _, err = rand.Read(randomBytes); err != nil {
		return "", "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	key = prefix + hex.EncodeToString(randomBytes)

	displayPrefix = key
	if len(key) > DisplayPrefixLength {
		displayPrefix = key[:DisplayPrefixLength]
	}

	return key, displayPrefix, nil
}

// HashAPIKey computes the HMAC-SHA256 digest of a raw key under the server
// secret, hex encoded. The digest is deterministic: the same key and secret
// always produce the same value, which is what lets the resolver match a
// presented key against stored digests in one query.
func HashAPIKey(rawKey, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(rawKey))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyAPIKey recomputes the digest of a presented key and compares it
// against the stored digest in constant time. Any mismatch, including a
// length mismatch, returns false; verification never returns an error.
func VerifyAPIKey(rawKey, storedDigest, secret string) bool {
	computed := HashAPIKey(rawKey, secret)
	return hmac.Equal([]byte(computed), []byte(storedDigest))
}
