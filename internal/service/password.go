package service

import (
	"crypto/rand"
	"math/big"
	"unicode"

	"github.com/hartleydigital/portal-api/internal/domain"

	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 12

// ValidatePasswordStrength enforces the portal password policy:
// at least 8 characters with upper, lower, digit and symbol.
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return &domain.ErrValidation{Field: "password", Message: "must be at least 8 characters"}
	}
	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSymbol = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit || !hasSymbol {
		return &domain.ErrValidation{
			Field:   "password",
			Message: "must contain upper and lower case letters, a digit and a symbol",
		}
	}
	return nil
}

const (
	tempUpper   = "ABCDEFGHJKLMNPQRSTUVWXYZ"
	tempLower   = "abcdefghijkmnpqrstuvwxyz"
	tempDigits  = "23456789"
	tempSymbols = "!@#$%&*+-?"
)

// GenerateTempPassword returns a random 12-character password that
// always satisfies the strength policy. Ambiguous characters (0/O, 1/l)
// are excluded.
func GenerateTempPassword() string {
	all := tempUpper + tempLower + tempDigits + tempSymbols

	// One guaranteed character per class, rest from the full set.
	chars := []byte{
		randomFrom(tempUpper),
		randomFrom(tempLower),
		randomFrom(tempDigits),
		randomFrom(tempSymbols),
	}
	for len(chars) < 12 {
		chars = append(chars, randomFrom(all))
	}

	// Shuffle so the class-guaranteed characters are not positional.
	for i := len(chars) - 1; i > 0; i-- {
		j := randomIndex(i + 1)
		chars[i], chars[j] = chars[j], chars[i]
	}
	return string(chars)
}

func randomFrom(set string) byte {
	return set[randomIndex(len(set))]
}

func randomIndex(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic("crypto/rand unavailable: " + err.Error())
	}
	return int(v.Int64())
}

// HashPassword produces a bcrypt hash for a legacy-style credential.
// Only used by tooling and tests; production accounts delegate to the
// identity provider.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckLegacyPassword compares a candidate password against a stored
// bcrypt hash using constant-time comparison.
func CheckLegacyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
