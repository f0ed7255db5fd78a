// Package password provides one-way hashing for user credentials. Hashes are
// bcrypt with a fixed work factor; plaintext never leaves this package's
// callers and is never logged.
package password

import (
	"errors"

	"golang.org/x/crypto/bcrypt"

	dErrors "clavis/pkg/domain-errors"
)

// cost fixes the bcrypt work factor. Changing it only affects new hashes;
// existing ones verify against the factor embedded in the hash string.
const cost = 10

// Hash derives a salted bcrypt hash from a plaintext password.
func Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "password must not be empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", dErrors.New(dErrors.CodeInvalidInput, "password is too long")
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not hash password")
	}
	return string(hashed), nil
}

// Verify reports whether plaintext matches the stored hash. A mismatch is a
// plain false, not an error; bcrypt's comparison is already constant-time with
// respect to the hash contents.
func Verify(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
