// Package auth implements the two stateless credential primitives:
// bcrypt password hashing and the signed access-token codec.
package auth

import "golang.org/x/crypto/bcrypt"

// HashPassword produces a salted one-way digest of password. The salt and
// work factor are embedded in the output, so nothing else needs storing.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the stored hash.
// A malformed hash yields false, never an error.
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
