package auth

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"

	"github.com/daat21/lumiere/internal/domain"
)

const (
	MinPasswordLength = 8
	passwordSpecials  = "@$!%*#?&"
)

var ErrWeakPassword = fmt.Errorf("%w: password must be at least %d characters and contain a letter, a digit and one of %s",
	domain.ErrInvalidInput, MinPasswordLength, passwordSpecials)

// hashCost is lowered by tests.
var hashCost = bcrypt.DefaultCost

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), hashCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the stored hash.
func CheckPassword(hash, password string) bool {
	if hash == "" {
		return false
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// ValidatePasswordStrength requires a letter, a digit and a special character.
func ValidatePasswordStrength(password string) error {
	if len(password) < MinPasswordLength {
		return ErrWeakPassword
	}
	var letter, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		}
	}
	if !letter || !digit || !special {
		return ErrWeakPassword
	}
	return nil
}
