package auth

import (
	"errors"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"dochub-backend/internal/shared/telemetry"
)

// MaxPasswordBytes is the bcrypt input ceiling. Longer passwords are
// truncated, so two passwords sharing their first 72 bytes are equivalent.
const MaxPasswordBytes = 72

// PasswordHasher hashes and verifies passwords with bcrypt.
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher returns a hasher using cost, or bcrypt.DefaultCost when
// cost is out of range.
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &PasswordHasher{cost: cost}
}

// Hash returns the bcrypt hash of the first 72 bytes of password.
func (h *PasswordHasher) Hash(password string) (string, error) {
	if !utf8.ValidString(password) {
		return "", ErrInvalidPassword
	}
	hashed, err := bcrypt.GenerateFromPassword(truncatePassword(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify reports whether password matches hash. Malformed hashes are logged
// and treated as a mismatch.
func (h *PasswordHasher) Verify(password, hash string) bool {
	if hash == "" {
		return false
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), truncatePassword(password))
	if err == nil {
		return true
	}
	if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		telemetry.Warn("password.verify_failed", map[string]any{"error": err})
	}
	return false
}

func truncatePassword(password string) []byte {
	b := []byte(password)
	if len(b) > MaxPasswordBytes {
		b = b[:MaxPasswordBytes]
	}
	return b
}
