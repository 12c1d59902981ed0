package auth

import (
	"errors"
	"regexp"
	"unicode"
)

var mobilePattern = regexp.MustCompile(`^[6-9][0-9]{9}$`)

var (
	ErrWeakPassword  = errors.New("password must be at least 8 characters and contain upper case, lower case and a digit")
	ErrInvalidMobile = errors.New("mobile number must be a valid 10 digit Indian number")
)

// ValidMobile accepts 10 digit Indian mobile numbers.
func ValidMobile(s string) bool { return mobilePattern.MatchString(s) }

func ValidatePassword(p string) error {
	if len(p) < 8 {
		return ErrWeakPassword
	}
	var upper, lower, digit bool
	for _, r := range p {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper || !lower || !digit {
		return ErrWeakPassword
	}
	return nil
}
