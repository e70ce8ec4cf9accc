package checkout

import "strings"

// Tier is a customer's loyalty classification. It drives discount eligibility.
type Tier string

const (
	// TierStandard customers pay the cart subtotal.
	TierStandard Tier = "STANDARD"
	// TierPremium customers receive a percentage discount on every checkout.
	TierPremium Tier = "PREMIUM"
)

// ParseTier maps a tier name to a Tier, ignoring case. Unrecognised names are
// kept verbatim and receive no discount.
func ParseTier(s string) Tier {
	switch t := Tier(strings.ToUpper(strings.TrimSpace(s))); t {
	case TierStandard, TierPremium:
		return t
	case "":
		return TierStandard
	default:
		return Tier(s)
	}
}

// Customer identifies the owner of a cart.
type Customer struct {
	ID    string
	Name  string
	Email string
	Tier  Tier
}
