package security

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/gsblab/gsb-frais/internal/application/port"
)

// DefaultBcryptCost is used when the configuration leaves the cost unset
const DefaultBcryptCost = 10

// BcryptHasher implements port.PasswordHasher for both visitors and accountants
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher creates a hasher. Costs outside bcrypt's range fall back to the default.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash generates a bcrypt hash of the password
func (h *BcryptHasher) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Verify checks if the provided password matches the hash
func (h *BcryptHasher) Verify(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

var _ port.PasswordHasher = (*BcryptHasher)(nil)
