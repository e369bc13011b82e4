package auth

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"

	"golang.org/x/crypto/pbkdf2"

	"authkeeper/internal/common"
)

const (
	// saltBytes random bytes, hex-encoded, so salts are 32 characters long.
	saltBytes = 16

	hashIterations = 10000
	hashKeyLength  = 512
)

// CreateSalt returns a cryptographically random, hex-encoded salt. Salts are
// never reused across users.
func CreateSalt() (string, error) {
	salt, err := common.MakeRandHexString(saltBytes)
	if err != nil {
		return "", common.InternalError(err)
	}
	return salt, nil
}

// HashPassword derives a hex-encoded PBKDF2-HMAC-SHA512 key from the
// password and salt. The derivation is deterministic: the same
// (password, salt) pair always yields the same hash.
func HashPassword(password, salt string) string {
	key := pbkdf2.Key([]byte(password), []byte(salt), hashIterations, hashKeyLength, sha512.New)
	return hex.EncodeToString(key)
}

// CheckPassword recomputes the hash for the candidate password with the
// stored salt and compares it to the stored hash in constant time.
func CheckPassword(password, salt, storedHash string) bool {
	candidate := HashPassword(password, salt)
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(storedHash)) == 1
}
