package util

import (
	"net/mail"
	"strings"
	"unicode"

	"go-media-share/pkg/apierror"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 50
	passwordSpecials  = "@$!%*?&+."
)

func NormalizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// ValidateEmail accepts a bare address only; display names and angle
// brackets are rejected.
func ValidateEmail(email string) error {
	if email == "" {
		return apierror.BadRequest("email is required", "email")
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@")+1:], ".") {
		return apierror.BadRequest("email must be a valid email address", "email")
	}

	return nil
}

// ValidatePassword enforces 8-50 characters drawn from letters, digits and
// @$!%*?&+. with at least one lowercase, uppercase, digit and special.
func ValidatePassword(password string) error {
	length := len([]rune(password))
	if length < minPasswordLength || length > maxPasswordLength {
		return apierror.BadRequest("password must be between 8 and 50 characters", "password")
	}

	var hasLower, hasUpper, hasDigit, hasSpecial bool
	for _, char := range password {
		switch {
		case char > unicode.MaxASCII:
			return apierror.BadRequest("password contains unsupported characters", "password")
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsDigit(char):
			hasDigit = true
		case strings.ContainsRune(passwordSpecials, char):
			hasSpecial = true
		default:
			return apierror.BadRequest("password contains unsupported characters", "password")
		}
	}

	if !hasLower || !hasUpper || !hasDigit || !hasSpecial {
		return apierror.BadRequest(
			"password must contain at least one uppercase letter, one lowercase letter, one number and one special character",
			"password",
		)
	}

	return nil
}
