package checkout

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// MaxAmount is the largest price or total an order can carry. It matches the
// orders table's NUMERIC(14,4) columns at cent precision.
var MaxAmount = decimal.RequireFromString("9999999999.99")

var (
	// ErrNegativePrice is returned by NewItem for prices below zero.
	ErrNegativePrice = errors.New("item price must not be negative")
	// ErrPricePrecision is returned by NewItem for prices finer than a cent.
	ErrPricePrecision = errors.New("item price must have at most 2 decimal places")
	// ErrAmountTooLarge is returned when a price or cart total exceeds MaxAmount.
	ErrAmountTooLarge = errors.New("amount exceeds maximum order amount")
)

// Item is a single priced entry in a cart.
type Item struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// NewItem returns an Item. Prices must be whole cents between zero and
// MaxAmount.
func NewItem(name string, price decimal.Decimal) (Item, error) {
	switch {
	case price.IsNegative():
		return Item{}, errors.Wrapf(ErrNegativePrice, "item %q", name)
	case !price.Equal(price.Round(moneyPlaces)):
		return Item{}, errors.Wrapf(ErrPricePrecision, "item %q", name)
	case price.GreaterThan(MaxAmount):
		return Item{}, errors.Wrapf(ErrAmountTooLarge, "item %q", name)
	}
	return Item{Name: name, Price: price}, nil
}

// Cart is a customer's basket for a single checkout attempt.
type Cart struct {
	Owner Customer
	Items []Item
}

// NewCart creates a Cart owned by the given customer.
func NewCart(owner Customer, items ...Item) Cart {
	return Cart{Owner: owner, Items: items}
}

// Subtotal returns the undiscounted sum of item prices. An empty cart totals zero.
func (c Cart) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range c.Items {
		sum = sum.Add(item.Price)
	}
	return sum
}
