package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/kart-checkout/internal/domain/checkout"
)

const maxBodyBytes = 1 << 20

// ProcessOrder handles POST /api/checkout.
//
// 201 with the order when payment succeeds, 402 when it is declined, 400 for
// a malformed cart or one priced beyond checkout.MaxAmount, and 500 when
// payment or persistence fails.
func (h *Handler) ProcessOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "request body too large")
		return
	}
	req, err := decodeCheckoutRequest(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	o, err := h.checkout.ProcessOrder(ctx, checkout.NewCart(req.Customer, req.Items...), req.PaymentToken)
	if errors.Is(err, checkout.ErrAmountTooLarge) {
		writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	if err != nil {
		zctx.From(ctx).Error("Checkout failed", zap.Error(err), zap.String("customer_id", req.Customer.ID))
		writeError(w, http.StatusInternalServerError, "checkout failed")
		return
	}
	if o == nil {
		writeError(w, http.StatusPaymentRequired, "payment declined")
		return
	}

	var e jx.Encoder
	encodeOrder(&e, o)
	w.Header().Set("Location", "/api/orders/"+strconv.FormatInt(o.ID, 10))
	writeJSON(w, http.StatusCreated, &e)
}

// GetOrder handles GET /api/orders/{id}.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	o, err := h.orders.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, checkout.ErrOrderNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		zctx.From(ctx).Error("Get order failed", zap.Error(err), zap.Int64("order_id", id))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	var e jx.Encoder
	encodeOrder(&e, o)
	writeJSON(w, http.StatusOK, &e)
}
