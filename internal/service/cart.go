package service

import (
	"context"
	"log/slog"

	"github.com/codehouse/bookshop/internal/domain"
	"github.com/codehouse/bookshop/internal/event"
	"github.com/codehouse/bookshop/internal/session"
	apperrors "github.com/codehouse/bookshop/pkg/errors"
	"github.com/codehouse/bookshop/pkg/logger"
)

// CartLineView is one cart line as presented to the shopper.
type CartLineView struct {
	ProductID string `json:"product_id"`
	Variant   string `json:"variant"`
	Title     string `json:"title"`
	UnitPrice string `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	LineTotal string `json:"line_total"`
}

// CartView is a read snapshot of a session's cart.
type CartView struct {
	Lines         []CartLineView  `json:"lines"`
	TotalQuantity int             `json:"total_quantity"`
	Total         string          `json:"total"`
	Flashes       []session.Flash `json:"flashes,omitempty"`
}

// CartService mediates all cart access. Every operation resolves the session
// and runs the mutation under that session's lock, so concurrent requests for
// the same cart apply one at a time while other sessions proceed in parallel.
type CartService struct {
	sessions  *session.Store
	catalog   Catalog
	publisher event.Publisher
	logger    *slog.Logger
}

// NewCartService creates a cart service.
func NewCartService(sessions *session.Store, catalog Catalog, publisher event.Publisher, log *slog.Logger) *CartService {
	return &CartService{
		sessions:  sessions,
		catalog:   catalog,
		publisher: publisher,
		logger:    log,
	}
}

// AddToCart resolves the product's price for the variant and adds one unit to
// the session's cart. When the catalog lookup fails the cart is left
// untouched and the error propagates to the caller.
func (s *CartService) AddToCart(ctx context.Context, sessionID, productID string, variant domain.PriceVariant) (*CartView, error) {
	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	item, err := domain.NewLineItem(product, variant)
	if err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}

	sess := s.sessions.GetOrCreate(sessionID)

	var view *CartView
	var quantity int
	sess.Update(func(cart *domain.Cart) {
		cart.Add(item)
		quantity = cart.Quantity(item.Key())
		view = snapshotView(cart)
	})

	s.logger.InfoContext(ctx, "item added to cart",
		slog.String("session_id", sess.ID),
		slog.String("product_id", productID),
		slog.String("variant", string(variant)),
		slog.Int("quantity", quantity),
	)

	s.publishCartEvent(ctx, sess.ID, event.TypeCartUpdated, event.CartUpdatedData{
		ProductID: productID,
		Variant:   string(variant),
		Action:    "add",
		Quantity:  quantity,
		Total:     view.Total,
	})

	return view, nil
}

// RemoveFromCart takes the matching line out of the cart entirely. Removing
// an absent line is a no-op that still returns the current cart.
func (s *CartService) RemoveFromCart(ctx context.Context, sessionID, productID string, variant domain.PriceVariant) *CartView {
	sess := s.sessions.GetOrCreate(sessionID)

	var view *CartView
	sess.Update(func(cart *domain.Cart) {
		cart.Remove(productID, variant)
		view = snapshotView(cart)
	})

	s.logger.InfoContext(ctx, "item removed from cart",
		slog.String("session_id", sess.ID),
		slog.String("product_id", productID),
		slog.String("variant", string(variant)),
	)

	s.publishCartEvent(ctx, sess.ID, event.TypeCartUpdated, event.CartUpdatedData{
		ProductID: productID,
		Variant:   string(variant),
		Action:    "remove",
		Total:     view.Total,
	})

	return view
}

// GetCart returns the session's current cart along with any pending flash
// messages, which are consumed by the read.
func (s *CartService) GetCart(ctx context.Context, sessionID string) *CartView {
	sess := s.sessions.GetOrCreate(sessionID)

	var view *CartView
	sess.View(func(cart *domain.Cart) {
		view = snapshotView(cart)
	})
	view.Flashes = sess.PopFlashes()

	return view
}

// Session resolves the session for the given ID, creating it on first access.
func (s *CartService) Session(sessionID string) *session.Session {
	return s.sessions.GetOrCreate(sessionID)
}

func (s *CartService) publishCartEvent(ctx context.Context, sessionID, eventType string, data any) {
	evt, err := event.New(eventType, sessionID, "cart", data)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to build cart event", slog.String("error", err.Error()))
		return
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		evt.WithCorrelationID(id)
	}
	if err := s.publisher.Publish(ctx, event.TopicCart, evt); err != nil {
		s.logger.WarnContext(ctx, "cart event not published", slog.String("error", err.Error()))
	}
}

// snapshotView renders a cart into its transport shape. Must run under the
// session lock.
func snapshotView(cart *domain.Cart) *CartView {
	snap := cart.Snapshot()

	lines := make([]CartLineView, 0, len(snap.Lines))
	for _, l := range snap.Lines {
		lines = append(lines, CartLineView{
			ProductID: l.ProductID,
			Variant:   string(l.Variant),
			Title:     l.Title,
			UnitPrice: l.UnitPrice.StringFixed(2),
			Quantity:  l.Quantity,
			LineTotal: l.LineTotal.StringFixed(2),
		})
	}

	return &CartView{
		Lines:         lines,
		TotalQuantity: cart.TotalQuantity(),
		Total:         snap.Total.StringFixed(2),
	}
}
