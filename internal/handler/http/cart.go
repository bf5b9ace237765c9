package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/codehouse/bookshop/internal/domain"
	"github.com/codehouse/bookshop/internal/service"
	apperrors "github.com/codehouse/bookshop/pkg/errors"
	"github.com/codehouse/bookshop/pkg/httputil"
	"github.com/codehouse/bookshop/pkg/validator"
)

// CartHandler handles HTTP requests for the shopping cart.
type CartHandler struct {
	service *service.CartService
	logger  *slog.Logger
}

// NewCartHandler creates a new cart HTTP handler.
func NewCartHandler(svc *service.CartService, logger *slog.Logger) *CartHandler {
	return &CartHandler{
		service: svc,
		logger:  logger,
	}
}

// AddItemRequest is the JSON request body for adding an item to the cart.
type AddItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Variant   string `json:"variant" validate:"required,oneof=ebook printed combo"`
}

// GetCart handles GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	sessionID := sessionIDFromContext(r.Context())

	view := h.service.GetCart(r.Context(), sessionID)

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: view})
}

// AddItem handles POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	sessionID := sessionIDFromContext(r.Context())

	var req AddItemRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	variant, err := domain.ParsePriceVariant(req.Variant)
	if err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput(err.Error()), h.logger)
		return
	}

	view, err := h.service.AddToCart(r.Context(), sessionID, req.ProductID, variant)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: view})
}

// RemoveItem handles DELETE /api/v1/cart/items/{productID}/{variant}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	sessionID := sessionIDFromContext(r.Context())

	productID := chi.URLParam(r, "productID")
	variant, err := domain.ParsePriceVariant(chi.URLParam(r, "variant"))
	if err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput(err.Error()), h.logger)
		return
	}

	view := h.service.RemoveFromCart(r.Context(), sessionID, productID, variant)

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: view})
}
