package checkout

import "github.com/shopspring/decimal"

// moneyPlaces is the number of decimal places charged amounts are rounded to.
const moneyPlaces = 2

// tierDiscounts holds the fractional discount granted to each tier. Tiers not
// listed here pay full price.
var tierDiscounts = map[Tier]decimal.Decimal{
	TierStandard: decimal.Zero,
	TierPremium:  decimal.RequireFromString("0.10"),
}

// DiscountRate returns the fraction of the subtotal waived for the tier.
func (t Tier) DiscountRate() decimal.Decimal {
	if rate, ok := tierDiscounts[t]; ok {
		return rate
	}
	return decimal.Zero
}

// ApplyDiscount returns the amount to charge for subtotal after the tier's
// loyalty discount, rounded to whole cents.
func ApplyDiscount(subtotal decimal.Decimal, tier Tier) decimal.Decimal {
	rate := tier.DiscountRate()
	if rate.IsZero() {
		return subtotal
	}
	return subtotal.Mul(decimal.NewFromInt(1).Sub(rate)).Round(moneyPlaces)
}
