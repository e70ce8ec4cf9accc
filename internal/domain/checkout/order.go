package checkout

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of a persisted order.
type Status string

// StatusProcessed marks an order that was paid for and saved.
const StatusProcessed Status = "PROCESSED"

// ErrOrderNotFound is returned when no order exists for the requested ID.
var ErrOrderNotFound = errors.New("order not found")

// Order is the outcome of a successful checkout. ID is zero until the order
// has been saved by an OrderRepository.
type Order struct {
	ID         int64
	CustomerID string
	Status     Status
	Subtotal   decimal.Decimal
	Total      decimal.Decimal
	Items      []Item
	CreatedAt  time.Time
}

// ChargeResult is the gateway's verdict on a charge attempt.
type ChargeResult struct {
	Success bool
}

// PaymentGateway charges a payment instrument. A declined charge is reported
// through ChargeResult; errors are reserved for transport failures.
type PaymentGateway interface {
	Charge(ctx context.Context, amount decimal.Decimal, token string) (ChargeResult, error)
}

// OrderRepository persists orders. Save returns a copy of the order carrying
// the assigned ID.
type OrderRepository interface {
	Save(ctx context.Context, order Order) (*Order, error)
}

// Notifier delivers a message to a customer.
type Notifier interface {
	Send(ctx context.Context, recipient, subject, body string) (bool, error)
}
