package security

import (
	"fmt"
	"strings"
	"unicode"

	zxcvbn "github.com/nbutton23/zxcvbn-go"
)

// PasswordValidationError represents a single password policy violation.
type PasswordValidationError struct {
	Code    string
	Message string
}

// Error implements error for PasswordValidationError.
func (e *PasswordValidationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// PolicyError aggregates every violated rule so the client can surface the
// complete list instead of fixing one rule per attempt.
type PolicyError struct {
	Violations []*PasswordValidationError
}

// Error joins all violation messages.
func (e *PolicyError) Error() string {
	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		msgs = append(msgs, v.Message)
	}
	return strings.Join(msgs, " ")
}

// Messages returns the individual violation messages.
func (e *PolicyError) Messages() []string {
	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		msgs = append(msgs, v.Message)
	}
	return msgs
}

// PasswordRule validates a password according to a specific policy rule.
type PasswordRule interface {
	Validate(password string) *PasswordValidationError
}

// PasswordRuleFunc adapts a function to be used as a PasswordRule.
type PasswordRuleFunc func(password string) *PasswordValidationError

// Validate executes the underlying rule function.
func (f PasswordRuleFunc) Validate(password string) *PasswordValidationError {
	return f(password)
}

// PasswordValidator applies a sequence of password rules and collects every
// violation rather than stopping at the first.
type PasswordValidator struct {
	rules []PasswordRule
}

// NewPasswordValidator constructs a validator with the provided rules.
func NewPasswordValidator(rules ...PasswordRule) *PasswordValidator {
	copied := make([]PasswordRule, len(rules))
	copy(copied, rules)
	return &PasswordValidator{rules: copied}
}

// Validate runs all rules. It returns nil when the password satisfies the
// policy and a *PolicyError carrying every violation otherwise.
func (v *PasswordValidator) Validate(password string) error {
	if v == nil {
		return fmt.Errorf("password validator not configured")
	}
	if strings.TrimSpace(password) == "" {
		return &PolicyError{Violations: []*PasswordValidationError{{
			Code:    "empty",
			Message: "password must not be empty",
		}}}
	}

	var violations []*PasswordValidationError
	for _, rule := range v.rules {
		if violation := rule.Validate(password); violation != nil {
			violations = append(violations, violation)
		}
	}
	if len(violations) == 0 {
		return nil
	}
	return &PolicyError{Violations: violations}
}

// MinLengthRule ensures the password has at least min characters.
func MinLengthRule(min int) PasswordRule {
	return PasswordRuleFunc(func(password string) *PasswordValidationError {
		if len([]rune(password)) < min {
			return &PasswordValidationError{
				Code:    "min_length",
				Message: fmt.Sprintf("password must be at least %d characters long", min),
			}
		}
		return nil
	})
}

// RequireLowercaseRule ensures at least one lowercase letter.
func RequireLowercaseRule() PasswordRule {
	return requireClassRule("lowercase", "password must include at least one lowercase letter", unicode.IsLower)
}

// RequireUppercaseRule ensures at least one uppercase letter.
func RequireUppercaseRule() PasswordRule {
	return requireClassRule("uppercase", "password must include at least one uppercase letter", unicode.IsUpper)
}

// RequireDigitRule ensures at least one digit.
func RequireDigitRule() PasswordRule {
	return requireClassRule("digit", "password must include at least one digit", unicode.IsDigit)
}

// RequireSymbolRule ensures at least one symbol or punctuation character.
func RequireSymbolRule() PasswordRule {
	return requireClassRule("symbol", "password must include at least one special character", func(r rune) bool {
		return unicode.IsSymbol(r) || unicode.IsPunct(r)
	})
}

func requireClassRule(code, message string, match func(rune) bool) PasswordRule {
	return PasswordRuleFunc(func(password string) *PasswordValidationError {
		for _, r := range password {
			if match(r) {
				return nil
			}
		}
		return &PasswordValidationError{Code: code, Message: message}
	})
}

// DenylistRule rejects passwords containing any of the supplied substrings,
// compared case-insensitively.
func DenylistRule(terms ...string) PasswordRule {
	lowered := make([]string, 0, len(terms))
	for _, term := range terms {
		lowered = append(lowered, strings.ToLower(term))
	}
	return PasswordRuleFunc(func(password string) *PasswordValidationError {
		candidate := strings.ToLower(password)
		for _, term := range lowered {
			if strings.Contains(candidate, term) {
				return &PasswordValidationError{
					Code:    "denylisted",
					Message: "password must not contain obvious terms",
				}
			}
		}
		return nil
	})
}

// RequirePasswordStrengthRule enforces a minimum zxcvbn score to reject
// structurally weak passwords that pass the character-class rules.
func RequirePasswordStrengthRule(minScore int, userInputs ...string) PasswordRule {
	return PasswordRuleFunc(func(password string) *PasswordValidationError {
		if minScore <= 0 {
			return nil
		}
		if minScore > 4 {
			minScore = 4
		}
		result := zxcvbn.PasswordStrength(password, userInputs)
		if result.Score >= minScore {
			return nil
		}
		return &PasswordValidationError{
			Code:    "weak_password",
			Message: "password is too weak; choose a more complex value",
		}
	})
}

func defaultRules() []PasswordRule {
	return []PasswordRule{
		MinLengthRule(12),
		RequireLowercaseRule(),
		RequireUppercaseRule(),
		RequireDigitRule(),
		RequireSymbolRule(),
		DenylistRule("password", "passwort", "123456", "qwertz", "qwerty"),
	}
}

// DefaultPasswordValidator returns the policy applied throughout the service.
// The length, character-class and denylist rules alone decide acceptance; an
// entropy floor is available through StrictPasswordValidator for deployments
// that opt into it.
func DefaultPasswordValidator() *PasswordValidator {
	return NewPasswordValidator(defaultRules()...)
}

// StrictPasswordValidator extends the default policy with a zxcvbn score
// floor. Enabled via auth.password_min_score; a score of 0 is equivalent to
// the default policy.
func StrictPasswordValidator(minScore int, userInputs ...string) *PasswordValidator {
	rules := append(defaultRules(), RequirePasswordStrengthRule(minScore, userInputs...))
	return NewPasswordValidator(rules...)
}
