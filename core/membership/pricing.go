package membership

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/trezcool/kelasi/core"
)

var (
	ErrInvalidPrice    = errors.New("monthly price cannot be negative")
	ErrInvalidDiscount = errors.New("discount rate must be between 0 and 100")

	hundred = decimal.NewFromInt(100)
)

// ComputeMonthlyDue derives a student's monthly due amount from a plan price and an optional discount rate (percent):
// price - price * discount / 100, rounded to currency units. A missing discount counts as 0.
func ComputeMonthlyDue(monthlyPrice decimal.Decimal, discountRate decimal.NullDecimal) (decimal.Decimal, error) {
	if monthlyPrice.IsNegative() {
		return decimal.Zero, ErrInvalidPrice
	}
	if !discountRate.Valid || discountRate.Decimal.IsZero() {
		return core.RoundMoney(monthlyPrice), nil
	}
	rate := discountRate.Decimal
	if rate.IsNegative() || rate.GreaterThan(hundred) {
		return decimal.Zero, ErrInvalidDiscount
	}
	discount := monthlyPrice.Mul(rate).Div(hundred)
	return core.RoundMoney(monthlyPrice.Sub(discount)), nil
}
