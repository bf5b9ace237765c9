package http

import (
	"log/slog"
	"net/http"

	"github.com/codehouse/bookshop/internal/service"
	"github.com/codehouse/bookshop/pkg/httputil"
)

// CheckoutHandler handles HTTP requests for checkout.
type CheckoutHandler struct {
	coordinator *service.CheckoutCoordinator
	logger      *slog.Logger
}

// NewCheckoutHandler creates a new checkout HTTP handler.
func NewCheckoutHandler(coordinator *service.CheckoutCoordinator, logger *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		coordinator: coordinator,
		logger:      logger,
	}
}

// Checkout handles POST /api/v1/checkout. The response is held until the
// payment attempt resolves; if the client goes away first, the attempt keeps
// running and its flash message waits in the session for the next page view.
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	sessionID := sessionIDFromContext(r.Context())

	// Only signed-in shoppers may pay; the purchase mail goes to them.
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		httputil.WriteJSON(w, http.StatusUnauthorized, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "UNAUTHORIZED", Message: "authentication required"},
		})
		return
	}

	results := h.coordinator.Checkout(r.Context(), sessionID, claims.Email)

	select {
	case outcome := <-results:
		status := http.StatusOK
		switch outcome.Status {
		case service.StatusRejected:
			status = http.StatusUnprocessableEntity
		case service.StatusFailed:
			status = http.StatusBadGateway
		}
		httputil.WriteJSON(w, status, httputil.Response{Data: outcome})
	case <-r.Context().Done():
		h.logger.InfoContext(r.Context(), "client gone before checkout resolved",
			slog.String("session_id", sessionID),
		)
	}
}
