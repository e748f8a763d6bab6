package receipt

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// formatPrice renders a float amount as a two-place decimal string
func formatPrice(amount float64) string {
	return decimal.NewFromFloat(amount).StringFixed(2)
}

// parseMoney validates a user-supplied amount and normalizes it to two places
func parseMoney(value string) (string, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return "", fmt.Errorf("%w: invalid amount %q", ErrInvalidInput, value)
	}
	if d.IsNegative() {
		return "", fmt.Errorf("%w: amount must not be negative: %s", ErrInvalidInput, value)
	}
	return d.StringFixed(2), nil
}
