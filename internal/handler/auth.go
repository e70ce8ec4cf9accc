package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/kart-checkout/internal/domain/auth"
)

// APIKeyHeader carries the caller's API key.
const APIKeyHeader = "api_key"

// requireScope rejects requests without a valid key granting scope. It is a
// no-op when no key repository is configured.
func (h *Handler) requireScope(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if h.keys == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get(APIKeyHeader)
			if raw == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			ctx := r.Context()
			key, err := h.keys.FindByHash(ctx, auth.Hash(h.pepper, raw))
			switch {
			case errors.Is(err, auth.ErrKeyNotFound):
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			case err != nil:
				zctx.From(ctx).Error("API key lookup failed", zap.Error(err))
				writeError(w, http.StatusInternalServerError, "internal server error")
				return
			}

			// The lookup matched on hash; compare again in constant time
			// against what the repository actually returned.
			if !auth.Verify(h.pepper, raw, key.Hash) {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			if !key.Allows(scope) {
				writeError(w, http.StatusForbidden, "forbidden")
				return
			}

			next.ServeHTTP(w, r.WithContext(zctx.With(ctx, zap.String("api_key", key.Name))))
		})
	}
}
