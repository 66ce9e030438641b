package identity

import (
	"errors"

	goerrors "github.com/goliatone/go-errors"
	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost mirrors the cost used across the org's services
const DefaultBcryptCost = 14

// PasswordHasher hashes and verifies plaintext secrets
type PasswordHasher interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

type bcryptHasher struct {
	cost int
}

// NewBcryptHasher returns the default PasswordHasher. A cost of 0 uses
// DefaultBcryptCost.
func NewBcryptHasher(cost int) PasswordHasher {
	if cost == 0 {
		cost = DefaultBcryptCost
	}
	return &bcryptHasher{cost: cost}
}

func (h *bcryptHasher) HashPassword(password string) (string, error) {
	return hashPasswordWithCost(password, h.cost)
}

func (h *bcryptHasher) ComparePasswordAndHash(password, hash string) error {
	return ComparePasswordAndHash(password, hash)
}

// HashPassword will generate a password hash with a per-call random salt
func HashPassword(password string) (string, error) {
	return hashPasswordWithCost(password, DefaultBcryptCost)
}

func hashPasswordWithCost(password string, cost int) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}

	h, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}
	return string(h), nil
}

// ComparePasswordAndHash will validate the given cleartext password
// matches the hashed password. Mismatches return
// ErrMismatchedHashAndPassword; anything else is a malformed digest.
func ComparePasswordAndHash(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatchedHashAndPassword
		}
		return err
	}
	return nil
}
