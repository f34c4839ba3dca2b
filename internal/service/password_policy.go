package service

import (
	"strings"
	"unicode"
)

// Length bounds apply to every password the service accepts. bcrypt only
// hashes the first 72 bytes and rejects longer input.
const (
	MinPasswordLength = 8
	MaxPasswordBytes  = 72
)

const passwordTooLong = "password must have at most 72 bytes"

var commonPasswords = map[string]struct{}{
	"password": {}, "password1": {}, "password123": {}, "12345678": {}, "123456789": {},
	"1234567890": {}, "qwerty123": {}, "qwertyuiop": {}, "iloveyou": {}, "sunshine": {},
	"princess": {}, "football": {}, "baseball": {}, "welcome1": {}, "admin123": {},
	"abc12345": {}, "senha123": {}, "senha1234": {}, "mudar123": {}, "11111111": {},
	"00000000": {}, "letmein1": {}, "trustno1": {}, "dragon12": {}, "master12": {},
}

// PasswordPolicy checks account passwords. Attributes are the account's
// username and e-mail local part; a password may not contain them.
type PasswordPolicy struct{}

// Check returns the first violated rule, or "" when the password is acceptable.
func (PasswordPolicy) Check(password string, attributes ...string) string {
	if len([]rune(password)) < MinPasswordLength {
		return "password must have at least 8 characters"
	}
	if len(password) > MaxPasswordBytes {
		return passwordTooLong
	}
	if isAllDigits(password) {
		return "password cannot be entirely numeric"
	}
	if _, common := commonPasswords[strings.ToLower(password)]; common {
		return "password is too common"
	}
	lower := strings.ToLower(password)
	for _, attr := range attributes {
		attr = strings.ToLower(strings.TrimSpace(attr))
		if local, _, found := strings.Cut(attr, "@"); found {
			attr = local
		}
		if len(attr) < 3 {
			continue
		}
		if strings.Contains(lower, attr) || strings.Contains(attr, lower) {
			return "password is too similar to the account details"
		}
	}
	return ""
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}
