package valueobject

import "github.com/shopspring/decimal"

// CentPlaces is the number of decimal places monetary amounts are rounded to
const CentPlaces int32 = 2

var hundred = decimal.NewFromInt(100)

// RoundCents rounds an amount half away from zero to two decimals
func RoundCents(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(CentPlaces)
}

// IsWholeCents reports whether amount fits the DECIMAL(18,2) columns
// without rounding
func IsWholeCents(amount decimal.Decimal) bool {
	return amount.Equal(RoundCents(amount))
}

// PercentOf returns amount * percent / 100 rounded to cents
func PercentOf(amount, percent decimal.Decimal) decimal.Decimal {
	return RoundCents(amount.Mul(percent).Div(hundred))
}

// MinAmount returns the smaller of two amounts
func MinAmount(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

// MaxAmount returns the larger of two amounts
func MaxAmount(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

// SumAmounts adds up a list of amounts
func SumAmounts(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
