// Package payment implements checkout.PaymentGateway over a JSON HTTP API.
//
// A charge is a POST to {BaseURL}/charges with body
//
//	{"amount":"180","token":"1234-5678-9012-3456"}
//
// and a 2xx response {"success":true|false}. A 402 response is treated as a
// decline. Any other status, or a transport failure, is an error. Calls go
// through a circuit breaker so a failing gateway is not hammered; declines do
// not count as failures.
package payment

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/xenking/kart-checkout/internal/domain/checkout"
)

var _ checkout.PaymentGateway = (*Client)(nil)

// Config controls the gateway endpoint, per-call timeout and breaker.
type Config struct {
	BaseURL string
	// Timeout bounds a single charge call. Zero means no timeout.
	Timeout time.Duration
	// MaxFailures is the number of consecutive failures that opens the breaker.
	MaxFailures uint32
	// OpenTimeout is how long the breaker stays open before probing again.
	OpenTimeout time.Duration
}

// StatusError is returned when the gateway answers with an unexpected status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("payment gateway returned status %d: %s", e.Code, e.Body)
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for charges.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithLogger sets the logger for breaker state transitions.
func WithLogger(lg *zap.Logger) Option {
	return func(cl *Client) { cl.lg = lg }
}

// Client charges payment tokens through a remote gateway.
type Client struct {
	http    *http.Client
	lg      *zap.Logger
	url     string
	timeout time.Duration
	breaker *gobreaker.CircuitBreaker[checkout.ChargeResult]
}

// New creates a Client for the given configuration.
func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("payment gateway URL is required")
	}
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}

	c := &Client{
		http:    &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		lg:      zap.NewNop(),
		url:     strings.TrimRight(cfg.BaseURL, "/") + "/charges",
		timeout: cfg.Timeout,
	}
	for _, o := range opts {
		o(c)
	}

	c.breaker = gobreaker.NewCircuitBreaker[checkout.ChargeResult](gobreaker.Settings{
		Name:        "payment-gateway",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		IsSuccessful: func(err error) bool {
			// The caller giving up says nothing about the gateway's health.
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.lg.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.Stringer("from", from),
				zap.Stringer("to", to),
			)
		},
	})

	return c, nil
}

// Charge requests a charge of amount against token.
func (c *Client) Charge(ctx context.Context, amount decimal.Decimal, token string) (checkout.ChargeResult, error) {
	return c.breaker.Execute(func() (checkout.ChargeResult, error) {
		return c.charge(ctx, amount, token)
	})
}

func (c *Client) charge(ctx context.Context, amount decimal.Decimal, token string) (checkout.ChargeResult, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(encodeChargeRequest(amount, token)))
	if err != nil {
		return checkout.ChargeResult{}, errors.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return checkout.ChargeResult{}, errors.Wrap(err, "send charge")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return checkout.ChargeResult{}, errors.Wrap(err, "read response")
	}

	switch {
	case resp.StatusCode == http.StatusPaymentRequired:
		return checkout.ChargeResult{Success: false}, nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return checkout.ChargeResult{}, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	result, err := decodeChargeResponse(body)
	if err != nil {
		return checkout.ChargeResult{}, errors.Wrap(err, "decode response")
	}
	return result, nil
}

func encodeChargeRequest(amount decimal.Decimal, token string) []byte {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("amount")
	e.Str(amount.String())
	e.FieldStart("token")
	e.Str(token)
	e.ObjEnd()
	return e.Bytes()
}

func decodeChargeResponse(data []byte) (checkout.ChargeResult, error) {
	var (
		result  checkout.ChargeResult
		hasFlag bool
	)
	d := jx.DecodeBytes(data)
	if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "success":
			v, err := d.Bool()
			if err != nil {
				return errors.Wrap(err, "success")
			}
			result.Success = v
			hasFlag = true
			return nil
		default:
			return d.Skip()
		}
	}); err != nil {
		return checkout.ChargeResult{}, err
	}
	if !hasFlag {
		return checkout.ChargeResult{}, errors.New("missing success field")
	}
	return result, nil
}
