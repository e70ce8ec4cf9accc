package checkout

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

const (
	instrumentationName = "github.com/xenking/kart-checkout/internal/domain/checkout"

	// ApprovedSubject is the subject of the order confirmation email.
	ApprovedSubject = "Your Order has been Approved!"

	// DefaultCurrencySymbol prefixes amounts in notification bodies.
	DefaultCurrencySymbol = "$"
)

// Outcome labels recorded on the orders counter.
const (
	outcomeProcessed = "processed"
	outcomeDeclined  = "declined"
	outcomeFailed    = "failed"
)

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger used for notification failures and outcomes.
func WithLogger(lg *zap.Logger) Option {
	return func(s *Service) { s.lg = lg }
}

// WithCurrencySymbol sets the symbol rendered before amounts in emails.
func WithCurrencySymbol(symbol string) Option {
	return func(s *Service) { s.currency = symbol }
}

// WithTracerProvider sets the provider used to trace checkouts.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) { s.tracer = tp.Tracer(instrumentationName) }
}

// WithMeterProvider sets the provider used to count checkout outcomes.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *Service) { s.meter = mp.Meter(instrumentationName) }
}

// Service runs checkouts: it prices the cart, charges the customer, saves the
// order and sends a confirmation. It holds no per-call state and is safe for
// concurrent use.
type Service struct {
	payments PaymentGateway
	orders   OrderRepository
	notifier Notifier

	lg       *zap.Logger
	currency string
	tracer   trace.Tracer
	meter    metric.Meter
	outcomes metric.Int64Counter
}

// NewService creates a checkout Service with the required collaborators.
func NewService(
	payments PaymentGateway,
	orders OrderRepository,
	notifier Notifier,
	opts ...Option,
) *Service {
	s := &Service{
		payments: payments,
		orders:   orders,
		notifier: notifier,
		lg:       zap.NewNop(),
		currency: DefaultCurrencySymbol,
		tracer:   tracenoop.NewTracerProvider().Tracer(instrumentationName),
		meter:    metricnoop.NewMeterProvider().Meter(instrumentationName),
	}
	for _, o := range opts {
		o(s)
	}

	outcomes, err := s.meter.Int64Counter("checkout.orders",
		metric.WithDescription("Checkout attempts by outcome"),
	)
	if err != nil {
		s.lg.Warn("Create orders counter", zap.Error(err))
		outcomes, _ = metricnoop.Meter{}.Int64Counter("checkout.orders")
	}
	s.outcomes = outcomes

	return s
}

// ProcessOrder checks out the cart using the given payment token.
//
// A declined payment is not an error: ProcessOrder returns a nil order and nil
// error, and nothing is saved or sent. A cart whose subtotal exceeds MaxAmount
// fails with ErrAmountTooLarge before anything is charged. Errors from the gateway or repository
// are returned as-is (wrapped). Notification failures are logged and never
// change the result.
func (s *Service) ProcessOrder(ctx context.Context, cart Cart, paymentToken string) (_ *Order, rerr error) {
	ctx, span := s.tracer.Start(ctx, "checkout.ProcessOrder",
		trace.WithAttributes(
			attribute.String("customer.id", cart.Owner.ID),
			attribute.String("customer.tier", string(cart.Owner.Tier)),
			attribute.Int("cart.items", len(cart.Items)),
		),
	)
	defer func() {
		if rerr != nil {
			span.RecordError(rerr)
			span.SetStatus(codes.Error, rerr.Error())
			s.record(ctx, outcomeFailed)
		}
		span.End()
	}()

	subtotal := cart.Subtotal()
	if subtotal.GreaterThan(MaxAmount) {
		return nil, errors.Wrapf(ErrAmountTooLarge, "cart subtotal %s", subtotal)
	}
	total := ApplyDiscount(subtotal, cart.Owner.Tier)

	result, err := s.payments.Charge(ctx, total, paymentToken)
	if err != nil {
		return nil, errors.Wrap(err, "charge payment")
	}
	if !result.Success {
		s.lg.Info("Payment declined",
			zap.String("customer_id", cart.Owner.ID),
			zap.Stringer("amount", total),
		)
		s.record(ctx, outcomeDeclined)
		return nil, nil
	}

	saved, err := s.orders.Save(ctx, Order{
		CustomerID: cart.Owner.ID,
		Status:     StatusProcessed,
		Subtotal:   subtotal,
		Total:      total,
		Items:      cart.Items,
	})
	if err != nil {
		return nil, errors.Wrap(err, "save order")
	}
	if saved == nil {
		return nil, errors.New("save order: repository returned no order")
	}
	span.SetAttributes(attribute.Int64("order.id", saved.ID))

	s.notify(ctx, cart.Owner.Email, saved)
	s.record(ctx, outcomeProcessed)

	return saved, nil
}

// notify sends the confirmation email. Failures are logged and swallowed.
func (s *Service) notify(ctx context.Context, recipient string, o *Order) {
	body := fmt.Sprintf("Order %d for the amount of %s%s", o.ID, s.currency, o.Total.String())

	sent, err := s.notifier.Send(ctx, recipient, ApprovedSubject, body)
	if err != nil {
		s.lg.Error("Failed to send email", zap.Error(err), zap.Int64("order_id", o.ID))
		return
	}
	if !sent {
		s.lg.Warn("Email not accepted by notifier", zap.Int64("order_id", o.ID))
	}
}

func (s *Service) record(ctx context.Context, outcome string) {
	s.outcomes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
