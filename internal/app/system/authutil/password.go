// Package authutil holds login and password rules shared by the login page,
// the person admin pages and the operator CLI.
package authutil

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dalemusser/waffle/pantry/text"
	"golang.org/x/crypto/bcrypt"
)

const (
	MinPasswordLength = 8
	MaxPasswordLength = 128
	MaxLoginIDLength  = 64

	bcryptCost = 12
)

var (
	ErrPasswordTooShort = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrPasswordTooLong  = fmt.Errorf("password must be at most %d characters", MaxPasswordLength)
	ErrPasswordCommon   = errors.New("password is too common")
	ErrLoginIDEmpty     = errors.New("login id is required")
	ErrLoginIDTooLong   = fmt.Errorf("login id must be at most %d characters", MaxLoginIDLength)
)

var commonPasswords = map[string]struct{}{
	"123456": {}, "1234567": {}, "12345678": {}, "123456789": {},
	"password": {}, "qwerty": {}, "abc123": {}, "iloveyou": {},
	"letmein": {}, "football": {}, "welcome": {}, "monkey": {},
	"dragon": {}, "111111": {}, "admin1": {},
}

// ValidatePassword checks length and rejects well-known passwords.
func ValidatePassword(pw string) error {
	switch {
	case len(pw) < MinPasswordLength:
		return ErrPasswordTooShort
	case len(pw) > MaxPasswordLength:
		return ErrPasswordTooLong
	}
	if _, bad := commonPasswords[strings.ToLower(pw)]; bad {
		return ErrPasswordCommon
	}
	return nil
}

// PasswordRules describes ValidatePassword for form hints.
func PasswordRules() string {
	return fmt.Sprintf("%d to %d characters; common passwords are rejected.", MinPasswordLength, MaxPasswordLength)
}

// HashPassword returns a bcrypt hash of pw.
func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CheckPassword reports whether pw matches hash.
func CheckPassword(pw, hash string) bool {
	if pw == "" || hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// NormalizeLoginID trims id and returns it with its folded lookup form.
func NormalizeLoginID(id string) (loginID, loginIDCI string, err error) {
	loginID = strings.TrimSpace(id)
	if loginID == "" {
		return "", "", ErrLoginIDEmpty
	}
	if len(loginID) > MaxLoginIDLength {
		return "", "", ErrLoginIDTooLong
	}
	return loginID, text.Fold(loginID), nil
}
