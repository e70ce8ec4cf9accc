package checkout

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
)

// --- Fixtures ---

func standardCustomer() Customer {
	return Customer{ID: "1", Name: "John Smith", Email: "john@email.com", Tier: TierStandard}
}

func premiumCustomer() Customer {
	return Customer{ID: "2", Name: "Mary Premium", Email: "premium@email.com", Tier: TierPremium}
}

func customerWithEmail(email string) Customer {
	return Customer{ID: "3", Name: "Test Customer", Email: email, Tier: TierStandard}
}

// cartBuilder starts from a standard customer with one 100.00 item.
type cartBuilder struct {
	owner Customer
	items []Item
}

func newCartBuilder() *cartBuilder {
	return &cartBuilder{
		owner: standardCustomer(),
		items: []Item{{Name: "Default Product", Price: decimal.RequireFromString("100.00")}},
	}
}

func (b *cartBuilder) withOwner(c Customer) *cartBuilder {
	b.owner = c
	return b
}

func (b *cartBuilder) withItems(items ...Item) *cartBuilder {
	b.items = items
	return b
}

func (b *cartBuilder) withTotal(total string) *cartBuilder {
	b.items = []Item{{Name: "Custom Item", Price: decimal.RequireFromString(total)}}
	return b
}

func (b *cartBuilder) empty() *cartBuilder {
	b.items = nil
	return b
}

func (b *cartBuilder) build() Cart {
	return NewCart(b.owner, b.items...)
}

// --- Collaborator stubs ---

type chargeCall struct {
	amount decimal.Decimal
	token  string
}

type stubGateway struct {
	mu     sync.Mutex
	result ChargeResult
	err    error
	calls  []chargeCall
}

func (g *stubGateway) Charge(_ context.Context, amount decimal.Decimal, token string) (ChargeResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, chargeCall{amount: amount, token: token})
	return g.result, g.err
}

type stubOrderRepo struct {
	mu     sync.Mutex
	nextID int64
	err    error
	saved  []Order
}

func (r *stubOrderRepo) Save(_ context.Context, o Order) (*Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved = append(r.saved, o)
	if r.err != nil {
		return nil, r.err
	}
	o.ID = r.nextID
	return &o, nil
}

type sendCall struct {
	recipient string
	subject   string
	body      string
}

type stubNotifier struct {
	mu    sync.Mutex
	sent  bool
	err   error
	calls []sendCall
}

func (n *stubNotifier) Send(_ context.Context, recipient, subject, body string) (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, sendCall{recipient: recipient, subject: subject, body: body})
	return n.sent, n.err
}
