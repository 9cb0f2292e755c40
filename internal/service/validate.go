package service

import (
	"net/mail"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	minPasswordLen = 6
	// bcrypt only looks at the first 72 bytes and x/crypto refuses longer input.
	maxPasswordBytes = 72
)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// validEmail accepts a bare address only, no display name.
func validEmail(email string) bool {
	if email == "" || len(email) > 254 {
		return false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return false
	}
	at := strings.LastIndexByte(email, '@')
	return at > 0 && strings.Contains(email[at+1:], ".")
}

func checkPassword(v *ValidationError, field, password string) {
	if utf8.RuneCountInString(password) < minPasswordLen {
		v.add(field, "Password must be at least 6 characters long")
		return
	}
	if len(password) > maxPasswordBytes {
		v.add(field, "Password must be at most 72 bytes")
		return
	}
	if !strings.ContainsFunc(password, unicode.IsDigit) {
		v.add(field, "Password must contain at least one number")
	}
}

func lengthBetween(s string, min, max int) bool {
	n := utf8.RuneCountInString(s)
	return n >= min && n <= max
}
