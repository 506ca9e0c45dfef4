// Package security holds the API-key codec: generation, one-way hashing, and
// the constant-format validation the bearer path runs before touching storage.
package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	// KeyPrefix marks issued API keys so support can recognize leaked values.
	KeyPrefix = "sch_"
	// keyEntropyBytes encodes to exactly KeyBodyLength base64url characters.
	keyEntropyBytes = 24
	KeyBodyLength   = 32
)

// GenerateKey produces a fresh plaintext API key. The plaintext is returned
// exactly once; only its hash is ever stored.
func GenerateKey() (string, error) {
	raw := make([]byte, keyEntropyBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("security: generate api key: %w", err)
	}
	return KeyPrefix + base64.RawURLEncoding.EncodeToString(raw), nil
}

// ValidFormat is the cheap pre-storage check: fixed prefix, fixed length,
// base64url body. It rejects junk before any hash or lookup runs.
func ValidFormat(key string) bool {
	if !strings.HasPrefix(key, KeyPrefix) {
		return false
	}
	body := key[len(KeyPrefix):]
	if len(body) != KeyBodyLength {
		return false
	}
	_, err := base64.RawURLEncoding.DecodeString(body)
	return err == nil
}

// HashKey maps a plaintext key to its stored lookup hash. SHA-256 is
// deliberate: the key carries full random entropy, and the hash doubles as a
// deterministic storage index.
func HashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
