// Package auth provides credential hashing, bearer tokens and the
// request principal.
package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordBytes is the longest input bcrypt hashes without truncation.
const MaxPasswordBytes = 72

// PasswordCost is the bcrypt work factor used for new hashes.
var PasswordCost = bcrypt.DefaultCost

// ErrPasswordTooLong indicates the password exceeds MaxPasswordBytes.
var ErrPasswordTooLong = errors.New("password exceeds 72 bytes")

// HashPassword returns a salted bcrypt hash of password.
// Hashing the same password twice yields different hashes.
func HashPassword(password string) (string, error) {
	if len(password) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword reports whether password matches encodedHash.
// A malformed or empty hash never matches.
func VerifyPassword(password, encodedHash string) bool {
	if encodedHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password)) == nil
}
