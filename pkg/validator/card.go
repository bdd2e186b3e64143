package validator

import (
	"errors"
	"regexp"
	"strings"
)

var (
	// ErrInvalidCardNumber indicates the card number is not 16 digits
	ErrInvalidCardNumber = errors.New("card number must be exactly 16 digits")

	// ErrInvalidCVV indicates the CVV is not 3 digits
	ErrInvalidCVV = errors.New("cvv must be exactly 3 digits")

	// ErrInvalidExpiry indicates the expiry date is not in MM/YY format
	ErrInvalidExpiry = errors.New("expiry date must be in MM/YY format")

	// ErrEmptyCardHolder indicates the card holder name is missing
	ErrEmptyCardHolder = errors.New("card holder name cannot be empty")
)

// digitsRegex matches digits only
var digitsRegex = regexp.MustCompile(`^\d+$`)

// expiryRegex matches MM/YY with MM in 01-12
var expiryRegex = regexp.MustCompile(`^(0[1-9]|1[0-2])/\d{2}$`)

// CardValidator performs format-level validation of payment card
// details. It is not a payment gateway: validation is purely
// structural and no external call is made.
type CardValidator struct{}

// NewCardValidator creates a new card validator instance
func NewCardValidator() *CardValidator {
	return &CardValidator{}
}

// CardDetails holds the fields checked by Validate
type CardDetails struct {
	Number string
	Holder string
	Expiry string
	CVV    string
}

// Validate checks card details and returns the sanitized 16-digit card
// number (spaces and dashes stripped) on success
func (v *CardValidator) Validate(details CardDetails) (string, error) {
	number := v.Sanitize(details.Number)
	if len(number) != 16 || !digitsRegex.MatchString(number) {
		return "", ErrInvalidCardNumber
	}

	if len(details.CVV) != 3 || !digitsRegex.MatchString(details.CVV) {
		return "", ErrInvalidCVV
	}

	if details.Expiry != "" && !expiryRegex.MatchString(details.Expiry) {
		return "", ErrInvalidExpiry
	}

	if strings.TrimSpace(details.Holder) == "" {
		return "", ErrEmptyCardHolder
	}

	return number, nil
}

// Sanitize removes spaces and dashes from a card number
func (v *CardValidator) Sanitize(number string) string {
	number = strings.ReplaceAll(number, " ", "")
	return strings.ReplaceAll(number, "-", "")
}

// LastFour returns the final four digits of a sanitized card number
func (v *CardValidator) LastFour(number string) string {
	number = v.Sanitize(number)
	if len(number) < 4 {
		return number
	}
	return number[len(number)-4:]
}
