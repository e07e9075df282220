package security

import (
	"errors"
	"testing"
)

func violationCodes(t *testing.T, err error) map[string]bool {
	t.Helper()
	var policyErr *PolicyError
	if !errors.As(err, &policyErr) {
		t.Fatalf("expected *PolicyError, got %T: %v", err, err)
	}
	codes := make(map[string]bool, len(policyErr.Violations))
	for _, v := range policyErr.Violations {
		codes[v.Code] = true
	}
	return codes
}

func TestValidatorCollectsEveryViolation(t *testing.T) {
	validator := DefaultPasswordValidator()

	err := validator.Validate("alllowercase")
	if err == nil {
		t.Fatalf("expected violations for all-lowercase password")
	}

	codes := violationCodes(t, err)
	for _, want := range []string{"uppercase", "digit", "symbol"} {
		if !codes[want] {
			t.Fatalf("expected %s violation, got %v", want, codes)
		}
	}
	if codes["lowercase"] || codes["min_length"] {
		t.Fatalf("unexpected violations: %v", codes)
	}
}

func TestValidatorMinLength(t *testing.T) {
	validator := DefaultPasswordValidator()
	codes := violationCodes(t, validator.Validate("Ab1!"))
	if !codes["min_length"] {
		t.Fatalf("expected min_length violation, got %v", codes)
	}
}

func TestValidatorDenylist(t *testing.T) {
	validator := DefaultPasswordValidator()
	for _, candidate := range []string{"MyPassword123!x", "SuperPASSWORT9!x", "Tricky-Qwertz1!"} {
		err := validator.Validate(candidate)
		if err == nil {
			t.Fatalf("expected denylist violation for %q", candidate)
		}
		if codes := violationCodes(t, err); !codes["denylisted"] {
			t.Fatalf("expected denylisted violation for %q, got %v", candidate, codes)
		}
	}
}

func TestValidatorEmptyPassword(t *testing.T) {
	validator := DefaultPasswordValidator()
	err := validator.Validate("   ")
	if err == nil {
		t.Fatalf("expected violation for blank password")
	}
	if codes := violationCodes(t, err); !codes["empty"] {
		t.Fatalf("expected empty violation, got %v", codes)
	}
}

func TestValidatorAcceptsStrongPassword(t *testing.T) {
	validator := DefaultPasswordValidator()
	for _, candidate := range []string{"Korrekt!Pferd9Batterie", "Admin123!Test", "Tr4ktor&Wiese#2026"} {
		if err := validator.Validate(candidate); err != nil {
			t.Fatalf("expected %q to pass, got %v", candidate, err)
		}
	}
}

func TestValidatorAcceptsDefaultAdminPassword(t *testing.T) {
	// The password EnsureDefaultAdmin seeds must satisfy the default policy,
	// otherwise the reset-to-default flow can never complete.
	if err := DefaultPasswordValidator().Validate("Admin123!Test"); err != nil {
		t.Fatalf("expected default admin password to pass, got %v", err)
	}
}

func TestStrictValidatorEnforcesScoreFloor(t *testing.T) {
	strict := StrictPasswordValidator(4)

	err := strict.Validate("Aaaaaaaaaa1!")
	if err == nil {
		t.Fatalf("expected score-floor violation for repetitive password")
	}
	if codes := violationCodes(t, err); !codes["weak_password"] {
		t.Fatalf("expected weak_password violation, got %v", codes)
	}

	// A floor of zero disables the rule and matches the default policy.
	if err := StrictPasswordValidator(0).Validate("Admin123!Test"); err != nil {
		t.Fatalf("expected pass with disabled floor, got %v", err)
	}
}

func TestPolicyErrorMessages(t *testing.T) {
	validator := DefaultPasswordValidator()
	err := validator.Validate("short")

	var policyErr *PolicyError
	if !errors.As(err, &policyErr) {
		t.Fatalf("expected *PolicyError, got %T", err)
	}
	msgs := policyErr.Messages()
	if len(msgs) != len(policyErr.Violations) {
		t.Fatalf("expected %d messages, got %d", len(policyErr.Violations), len(msgs))
	}
	if policyErr.Error() == "" {
		t.Fatalf("expected joined error message")
	}
}
