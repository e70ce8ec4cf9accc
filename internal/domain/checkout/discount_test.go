package checkout

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestApplyDiscount(t *testing.T) {
	tests := []struct {
		name     string
		subtotal string
		tier     Tier
		want     string
	}{
		{name: "premium gets ten percent off", subtotal: "200.00", tier: TierPremium, want: "180"},
		{name: "premium rounds to cents", subtotal: "0.05", tier: TierPremium, want: "0.05"},
		{name: "premium half cent rounds up", subtotal: "10.05", tier: TierPremium, want: "9.05"},
		{name: "premium empty cart", subtotal: "0", tier: TierPremium, want: "0"},
		{name: "standard pays subtotal", subtotal: "200.00", tier: TierStandard, want: "200"},
		{name: "standard keeps sub-cent precision", subtotal: "10.005", tier: TierStandard, want: "10.005"},
		{name: "unknown tier pays subtotal", subtotal: "75.50", tier: Tier("PLATINUM"), want: "75.5"},
		{name: "zero tier pays subtotal", subtotal: "12", tier: "", want: "12"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ApplyDiscount(decimal.RequireFromString(tt.subtotal), tt.tier)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "expected %s, got %s", tt.want, got)
		})
	}
}

func TestTier_DiscountRate(t *testing.T) {
	assert.True(t, decimal.RequireFromString("0.1").Equal(TierPremium.DiscountRate()))
	assert.True(t, TierStandard.DiscountRate().IsZero())
	assert.True(t, Tier("UNKNOWN").DiscountRate().IsZero())
}
