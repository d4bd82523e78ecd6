package services

import (
	"encoding/hex"
	"regexp"
	"strings"
	"unicode"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"golang.org/x/crypto/blake2b"

	"parking-ticket-system/models"
)

var (
	cardNumberPattern = regexp.MustCompile(`^\d{16}$`)
	cardExpiryPattern = regexp.MustCompile(`^(0[1-9]|1[0-2])\d{2}$`)
	cardCVCPattern    = regexp.MustCompile(`^\d{3}$`)
)

// normalizeCard drops everything but digits, so "4242 4242 4242 4242" and
// "12/27" are accepted.
func normalizeCard(card models.CardDetails) models.CardDetails {
	return models.CardDetails{
		Number: digitsOnly(card.Number),
		Expiry: digitsOnly(card.Expiry),
		CVC:    digitsOnly(card.CVC),
	}
}

func validateCard(card *models.CardDetails) error {
	return toValidationError(validation.ValidateStruct(card,
		validation.Field(&card.Number, validation.Required, validation.Match(cardNumberPattern).Error("must be 16 digits")),
		validation.Field(&card.Expiry, validation.Required, validation.Match(cardExpiryPattern).Error("must be MMYY")),
		validation.Field(&card.CVC, validation.Required, validation.Match(cardCVCPattern).Error("must be 3 digits")),
	))
}

// CardFingerprint identifies a card in audit records without keeping the
// card number.
func CardFingerprint(number string) string {
	sum := blake2b.Sum256([]byte(number))
	return hex.EncodeToString(sum[:8])
}

func digitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}
