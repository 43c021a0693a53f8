package auth

import (
	"strings"

	"github.com/nstepanov/passport/internal/apperrors"
)

// Credential format checks. Pure predicates, no side effects.
// Request-shape validation (required fields, JSON types) happens in the
// HTTP layer; these own the domain rules and are reusable outside HTTP.

func ValidateEmail(s string) error {
	if len(s) < 5 || len(s) > 255 {
		return &apperrors.ValidationError{Field: "email", Reason: "must be between 5 and 255 characters"}
	}

	local, domain, found := strings.Cut(s, "@")
	switch {
	case !found, strings.Contains(domain, "@"):
		return &apperrors.ValidationError{Field: "email", Reason: "must contain exactly one @"}
	case local == "" || domain == "":
		return &apperrors.ValidationError{Field: "email", Reason: "local and domain parts must not be empty"}
	case !strings.Contains(domain, "."):
		return &apperrors.ValidationError{Field: "email", Reason: "domain must contain a dot"}
	}

	return nil
}

func ValidatePassword(s string) error {
	if len(s) < 8 {
		return &apperrors.ValidationError{Field: "password", Reason: "must be at least 8 characters"}
	}

	var hasUpper, hasLower, hasDigit bool
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasDigit = true
		}
	}

	if !hasUpper || !hasLower || !hasDigit {
		return &apperrors.ValidationError{Field: "password", Reason: "must contain an uppercase letter, a lowercase letter and a digit"}
	}

	return nil
}

func ValidateUsername(s string) error {
	if len(s) < 3 || len(s) > 50 {
		return &apperrors.ValidationError{Field: "username", Reason: "must be between 3 and 50 characters"}
	}

	// It's ok to check bytes here: any multibyte rune fails anyway
	for i := 0; i < len(s); i++ {
		c := s[i]
		ok := c == '_' ||
			(c >= 'a' && c <= 'z') ||
			(c >= 'A' && c <= 'Z') ||
			(c >= '0' && c <= '9')
		if !ok {
			return &apperrors.ValidationError{Field: "username", Reason: "only letters, digits and underscore are allowed"}
		}
	}

	return nil
}
