package security

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultBcryptCost dominates login latency on purpose.
	DefaultBcryptCost = 12
	minBcryptCost     = 10
	maxBcryptCost     = 16

	// dummyPassword feeds the pre-computed hash used to equalise timing for
	// lookups against nonexistent users.
	dummyPassword = "DummyHardPassword123!"
)

// BcryptHasher implements port.PasswordHasher on top of bcrypt. Each Hash call
// embeds a fresh random salt in the output.
type BcryptHasher struct {
	cost      int
	dummyHash []byte
}

// NewBcryptHasher constructs a hasher with the supplied cost factor clamped to
// the safe range. The dummy hash is computed once up front so VerifyDummy
// never pays hash-generation cost per request.
func NewBcryptHasher(cost int) (*BcryptHasher, error) {
	if cost < minBcryptCost || cost > maxBcryptCost {
		cost = DefaultBcryptCost
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte(dummyPassword), cost)
	if err != nil {
		return nil, fmt.Errorf("precompute dummy hash: %w", err)
	}
	return &BcryptHasher{cost: cost, dummyHash: dummy}, nil
}

// Cost returns the active cost factor.
func (h *BcryptHasher) Cost() int {
	return h.cost
}

// Hash derives a salted bcrypt hash of the password.
func (h *BcryptHasher) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether the password matches the stored hash. bcrypt's
// comparison is constant-time over the derived key; malformed stored hashes
// simply report false so the caller can treat the credential as repairable.
func (h *BcryptHasher) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// VerifyDummy performs one full-cost comparison against the fixed hash,
// making "user not found" indistinguishable from "wrong password" by timing.
func (h *BcryptHasher) VerifyDummy(password string) {
	_ = bcrypt.CompareHashAndPassword(h.dummyHash, []byte(password))
}

// ValidStoredHash reports whether the stored value parses as a bcrypt hash.
// Corrupted credentials fail this check and can be rebuilt by the caller.
func (h *BcryptHasher) ValidStoredHash(hash string) bool {
	_, err := bcrypt.Cost([]byte(hash))
	return err == nil
}
