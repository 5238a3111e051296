package security

import (
	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 10

// HashPassword produces a one-way bcrypt hash of the plaintext.
func HashPassword(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ComparePassword reports whether plain matches the stored hash.
// bcrypt does the constant-time comparison internally.
func ComparePassword(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
