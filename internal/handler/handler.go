// Package handler serves the checkout HTTP API.
package handler

import (
	"context"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/xenking/kart-checkout/internal/domain/auth"
	"github.com/xenking/kart-checkout/internal/domain/checkout"
)

// Checkout processes carts.
type Checkout interface {
	ProcessOrder(ctx context.Context, cart checkout.Cart, paymentToken string) (*checkout.Order, error)
}

// Orders reads persisted orders.
type Orders interface {
	FindByID(ctx context.Context, id int64) (*checkout.Order, error)
}

// Config holds non-dependency handler settings.
type Config struct {
	// Keys enables api_key authentication when non-nil.
	Keys   auth.Repository
	Pepper []byte
	// Timeout bounds each API request. Zero disables it.
	Timeout time.Duration
}

// Handler serves /api routes.
type Handler struct {
	checkout Checkout
	orders   Orders

	keys    auth.Repository
	pepper  []byte
	timeout time.Duration
}

// New creates a Handler.
func New(cfg Config, c Checkout, orders Orders) *Handler {
	return &Handler{
		checkout: c,
		orders:   orders,
		keys:     cfg.Keys,
		pepper:   cfg.Pepper,
		timeout:  cfg.Timeout,
	}
}

// Routes mounts the API under r:
//
//	POST /checkout     process a cart (scope "checkout")
//	GET  /orders/{id}  read a persisted order (scope "orders:read")
func (h *Handler) Routes(r chi.Router) {
	if h.timeout > 0 {
		r.Use(middleware.Timeout(h.timeout))
	}
	r.With(h.requireScope(auth.ScopeCheckout)).Post("/checkout", h.ProcessOrder)
	r.With(h.requireScope(auth.ScopeOrdersRead)).Get("/orders/{id}", h.GetOrder)
}
