// Package currency normalises ISO 4217 codes carried on ledger accounts.
package currency

import (
	"errors"
	"fmt"
	"strings"

	"github.com/govalues/money"
)

// ErrUnknown indicates a code that is not a recognised ISO 4217 currency.
var ErrUnknown = errors.New("currency: unknown code")

// Normalize returns the canonical upper-case code. The empty code stands for
// the tenant's base currency and is returned unchanged.
func Normalize(code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", nil
	}
	curr, err := money.ParseCurr(code)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrUnknown, code)
	}
	return curr.Code(), nil
}
