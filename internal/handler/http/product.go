package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/codehouse/bookshop/internal/domain"
	"github.com/codehouse/bookshop/internal/service"
	"github.com/codehouse/bookshop/internal/session"
	apperrors "github.com/codehouse/bookshop/pkg/errors"
	"github.com/codehouse/bookshop/pkg/httputil"
	"github.com/codehouse/bookshop/pkg/validator"
)

// ProductHandler handles HTTP requests for the product catalog.
type ProductHandler struct {
	catalog  service.Catalog
	sessions *session.Store
	logger   *slog.Logger
}

// NewProductHandler creates a new product HTTP handler.
func NewProductHandler(catalog service.Catalog, sessions *session.Store, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{
		catalog:  catalog,
		sessions: sessions,
		logger:   logger,
	}
}

// ProductListing is the listing payload. Checkout redirects here, so any
// flash messages queued on the session ride along and are consumed.
type ProductListing struct {
	Products []*domain.Product `json:"products"`
	Flashes  []session.Flash   `json:"flashes,omitempty"`
}

// PriceRequest is one priced edition in a product creation request.
type PriceRequest struct {
	Variant string `json:"variant" validate:"required,oneof=ebook printed combo"`
	Amount  string `json:"amount" validate:"required"`
}

// CreateProductRequest is the JSON request body for registering a product.
type CreateProductRequest struct {
	Title       string         `json:"title" validate:"required,min=1,max=500"`
	Description string         `json:"description" validate:"max=5000"`
	Pages       int            `json:"pages" validate:"gte=0"`
	ReleaseDate string         `json:"release_date" validate:"required"`
	Prices      []PriceRequest `json:"prices" validate:"required,min=1,dive"`
}

// List handles GET /api/v1/products
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.ListProducts(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	listing := ProductListing{Products: products}
	if id := sessionIDFromContext(r.Context()); id != "" {
		if sess, ok := h.sessions.Get(id); ok {
			listing.Flashes = sess.PopFlashes()
		}
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: listing})
}

// Get handles GET /api/v1/products/{productID}
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")

	product, err := h.catalog.GetProduct(r.Context(), productID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: product})
}

// Create handles POST /api/v1/products (admin only).
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	releaseDate, err := time.Parse("2006-01-02", req.ReleaseDate)
	if err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("release_date must be YYYY-MM-DD"), h.logger)
		return
	}

	prices := make([]domain.Price, 0, len(req.Prices))
	for _, p := range req.Prices {
		variant, err := domain.ParsePriceVariant(p.Variant)
		if err != nil {
			httputil.WriteError(w, r, apperrors.InvalidInput(err.Error()), h.logger)
			return
		}
		amount, err := decimal.NewFromString(p.Amount)
		if err != nil || amount.IsNegative() {
			httputil.WriteError(w, r, apperrors.InvalidInput("amount must be a non-negative decimal"), h.logger)
			return
		}
		prices = append(prices, domain.Price{Variant: variant, Amount: amount})
	}

	product, err := h.catalog.CreateProduct(r.Context(), service.CreateProductInput{
		Title:       req.Title,
		Description: req.Description,
		Pages:       req.Pages,
		ReleaseDate: releaseDate,
		Prices:      prices,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: product})
}
