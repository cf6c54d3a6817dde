package booking

import (
	"strings"

	"github.com/turnly/turnly/services/booking-service/internal/apperr"
)

var errInvalidPhone = apperr.Validation("invalid_phone", "please enter a valid WhatsApp number, digits only with country code")

// NormalizePhone reduces a number to its digits (country code included) so
// the same number always maps to the same customer.
func NormalizePhone(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	var b strings.Builder
	for i, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
		case r == ' ' || r == '-' || r == '(' || r == ')' || r == '.':
		default:
			return "", errInvalidPhone
		}
	}
	digits := b.String()
	if len(digits) < 7 || len(digits) > 15 {
		return "", errInvalidPhone
	}
	return digits, nil
}
