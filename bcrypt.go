package directory

import (
	"errors"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is the default work factor. It is deliberately slow;
// hashing is expected to dominate login latency.
const DefaultBcryptCost = 10

// ErrNoEmptyString is returned when hashing an empty password.
var ErrNoEmptyString = errors.New("password must not be empty")

// Hasher wraps bcrypt with a tunable cost.
type Hasher struct {
	cost int
}

// NewHasher creates a Hasher. A cost outside bcrypt's supported range falls
// back to DefaultBcryptCost.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	return &Hasher{cost: cost}
}

// Hash will generate a password hash
func (h *Hasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}

	b, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	return string(b), err
}

// Verify reports whether the cleartext password matches the hashed password.
// A malformed hash is treated as a mismatch, never an error.
func (h *Hasher) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// RandomPasswordHash returns the hash of a throwaway random password. Used
// for accounts that should only ever log in through a federated provider.
func (h *Hasher) RandomPasswordHash() string {
	pwd := uuid.New()

	out, err := h.Hash(pwd.String())
	if err != nil {
		return h.RandomPasswordHash()
	}

	return out
}
