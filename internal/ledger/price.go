package ledger

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// MaxPriceScale matches the decimal(20,8) price columns.
	MaxPriceScale = 8
	// MaxPriceDigits keeps prices exact where sqlite stores them as REAL.
	MaxPriceDigits = 15
	// MaxPriceIntegerDigits bounds the integer part to below 10^12.
	MaxPriceIntegerDigits = 12
)

var maxPrice = decimal.New(1, MaxPriceIntegerDigits)

var (
	// ErrPriceTooLarge is returned for prices of 10^12 or more.
	ErrPriceTooLarge = fmt.Errorf("price must be below %s", maxPrice)
	// ErrPriceTooPrecise is returned for prices the ledger cannot store exactly.
	ErrPriceTooPrecise = fmt.Errorf("price must have at most %d decimal places and %d significant digits", MaxPriceScale, MaxPriceDigits)
)

// ValidatePrice reports whether p can be stored in the ledger and read back unchanged.
// The exponent is checked first so huge or tiny exponents never reach big.Int math.
func ValidatePrice(p decimal.Decimal) error {
	if !p.IsPositive() {
		return ErrInvalidPrice
	}

	exp := p.Exponent()
	if exp >= MaxPriceIntegerDigits {
		return ErrPriceTooLarge
	}
	if exp < -(MaxPriceScale + MaxPriceDigits) {
		return ErrPriceTooPrecise
	}

	coefficient := p.Coefficient().String()
	if len(coefficient) > MaxPriceScale+MaxPriceDigits+MaxPriceIntegerDigits {
		return ErrPriceTooPrecise
	}
	if !p.LessThan(maxPrice) {
		return ErrPriceTooLarge
	}

	digits := strings.TrimRight(coefficient, "0")
	scale := -int(exp) - (len(coefficient) - len(digits))
	if scale > MaxPriceScale || len(digits) > MaxPriceDigits {
		return ErrPriceTooPrecise
	}
	return nil
}
