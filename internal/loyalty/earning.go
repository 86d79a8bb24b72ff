package loyalty

import (
	"github.com/shopspring/decimal"
)

// DefaultCurrencyUnit is the purchase amount that earns one point.
const DefaultCurrencyUnit = 10000

// MaxPurchaseTotal is the largest total transactions.amount (DECIMAL(15,2))
// can hold.
var MaxPurchaseTotal = decimal.RequireFromString("9999999999999.99")

// PointsForPurchase converts a purchase total into points: one point per
// unit, floored.  A total that earns nothing returns ErrPurchaseTooSmall;
// non-positive totals and totals above MaxPurchaseTotal return
// ErrInvalidAmount.
func PointsForPurchase(total decimal.Decimal, unit int64) (int64, error) {
	if unit <= 0 {
		unit = DefaultCurrencyUnit
	}
	if !total.IsPositive() || total.GreaterThan(MaxPurchaseTotal) {
		return 0, ErrInvalidAmount
	}
	pts := total.Div(decimal.NewFromInt(unit)).Floor().IntPart()
	if pts <= 0 {
		return 0, ErrPurchaseTooSmall
	}
	return pts, nil
}
