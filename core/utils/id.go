package utils

import (
	"crypto/subtle"
	"encoding/hex"

	"scheduling-engine/core/constants"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"golang.org/x/crypto/blake2b"
)

const alphanumeric = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// GenerateID returns a short lowercase-safe suffix used in public slugs.
func GenerateID() string {
	id, err := gonanoid.Generate("0123456789abcdefghijklmnopqrstuvwxyz", 7)
	if err != nil {
		return ""
	}
	return id
}

// NewManageToken returns an opaque cancel or reschedule token. It is random,
// never derived from a booking id.
func NewManageToken() (string, error) {
	return gonanoid.Generate(alphanumeric, constants.ManageTokenLength)
}

// HashToken is the at-rest form of a manage token.
func HashToken(token string) string {
	sum := blake2b.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// TokensEqual compares two token hashes in constant time.
func TokensEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
