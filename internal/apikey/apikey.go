// Package apikey holds the secret material primitives: one-way digests,
// API key issuance, and challenge nonces. Plaintext keys exist only in the
// return value of Issue; everything persisted is a digest.
package apikey

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// KeyPrefix marks issued keys as ClawPulse keys.
const KeyPrefix = "cpk_"

// DisplayPrefixLen is how much of the plaintext is kept for display.
// Enough for a human to recognize a key, far too short to reconstruct it.
const DisplayPrefixLen = 8

const secretBytes = 16

// Digest returns the lowercase hex SHA-256 of secret. Used for stored key
// digests and for challenge answers.
func Digest(secret string) string {
	h := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(h[:])
}

// Issue generates a new API key from a CSPRNG and returns the plaintext,
// its digest, and the display prefix. The plaintext is never returned again.
func Issue() (plaintext, digest, prefix string, err error) {
	buf := make([]byte, secretBytes)
	if _, err = rand.Read(buf); err != nil {
		return "", "", "", fmt.Errorf("apikey: read random: %w", err)
	}
	plaintext = KeyPrefix + hex.EncodeToString(buf)
	return plaintext, Digest(plaintext), plaintext[:DisplayPrefixLen], nil
}

// NewNonce returns a random 32-hex-char challenge nonce.
func NewNonce() (string, error) {
	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("apikey: read random: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
