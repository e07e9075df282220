package security

import (
	"strings"
	"testing"
)

func TestBcryptHasherRoundtrip(t *testing.T) {
	hasher, err := NewBcryptHasher(10)
	if err != nil {
		t.Fatalf("NewBcryptHasher returned error: %v", err)
	}

	hash, err := hasher.Hash("Correct!Horse9Battery")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}
	if !strings.HasPrefix(hash, "$2") {
		t.Fatalf("expected bcrypt hash, got %q", hash)
	}
	if !hasher.Verify("Correct!Horse9Battery", hash) {
		t.Fatalf("expected password to verify")
	}
	if hasher.Verify("wrong-password", hash) {
		t.Fatalf("expected wrong password to fail")
	}
}

func TestBcryptHasherCostClamping(t *testing.T) {
	cases := []struct {
		in   int
		want int
	}{
		{0, DefaultBcryptCost},
		{9, DefaultBcryptCost},
		{10, 10},
		{12, 12},
		{16, 16},
		{17, DefaultBcryptCost},
	}
	for _, tc := range cases {
		hasher, err := NewBcryptHasher(tc.in)
		if err != nil {
			t.Fatalf("NewBcryptHasher(%d) returned error: %v", tc.in, err)
		}
		if hasher.Cost() != tc.want {
			t.Fatalf("cost %d: expected clamp to %d, got %d", tc.in, tc.want, hasher.Cost())
		}
	}
}

func TestBcryptHasherMalformedHashVerifiesFalse(t *testing.T) {
	hasher, err := NewBcryptHasher(10)
	if err != nil {
		t.Fatalf("NewBcryptHasher returned error: %v", err)
	}
	if hasher.Verify("anything", "not-a-bcrypt-hash") {
		t.Fatalf("malformed hash must not verify")
	}
	if hasher.Verify("anything", "") {
		t.Fatalf("empty hash must not verify")
	}
}

func TestBcryptHasherValidStoredHash(t *testing.T) {
	hasher, err := NewBcryptHasher(10)
	if err != nil {
		t.Fatalf("NewBcryptHasher returned error: %v", err)
	}

	hash, err := hasher.Hash("Correct!Horse9Battery")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}
	if !hasher.ValidStoredHash(hash) {
		t.Fatalf("freshly generated hash should be structurally valid")
	}
	if hasher.ValidStoredHash("plaintext-leak") {
		t.Fatalf("plaintext must not be a valid stored hash")
	}
	if hasher.ValidStoredHash("") {
		t.Fatalf("empty string must not be a valid stored hash")
	}
}

func TestGenerateSecureToken(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 32; i++ {
		token, err := GenerateSessionToken()
		if err != nil {
			t.Fatalf("GenerateSessionToken returned error: %v", err)
		}
		// 32 random bytes encode to 43 base64url characters.
		if len(token) != 43 {
			t.Fatalf("expected 43-character token, got %d", len(token))
		}
		if _, dup := seen[token]; dup {
			t.Fatalf("token collision after %d draws", i)
		}
		seen[token] = struct{}{}
	}

	if _, err := GenerateSecureToken(0); err == nil {
		t.Fatalf("expected error for non-positive length")
	}
}
