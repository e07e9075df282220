package port

// PasswordHasher hashes and verifies secrets using a slow adaptive algorithm.
type PasswordHasher interface {
	Hash(password string) (string, error)
	// Verify reports whether the password matches the stored hash. Malformed
	// stored hashes yield false, never an error; the caller decides whether
	// that counts as a repairable credential.
	Verify(password, hash string) bool
	// VerifyDummy burns one full hash comparison against a fixed
	// pre-computed hash so lookups against nonexistent users cost the same
	// as real verification.
	VerifyDummy(password string)
	// ValidStoredHash reports whether the stored value is structurally a
	// hash this hasher could have produced.
	ValidStoredHash(hash string) bool
}
