package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codehouse/bookshop/internal/domain"
	"github.com/codehouse/bookshop/internal/event"
	"github.com/codehouse/bookshop/internal/session"
	apperrors "github.com/codehouse/bookshop/pkg/errors"
)

func newCartService(t *testing.T, products ...*domain.Product) (*CartService, *fakeProductRepo) {
	t.Helper()
	repo := newFakeProductRepo(products...)
	catalog := NewCatalogService(repo, nil, time.Minute, testLogger())
	sessions := session.NewStore(time.Hour, testLogger())
	return NewCartService(sessions, catalog, event.NopPublisher{}, testLogger()), repo
}

func TestCartService_AddToCart_ResolvesPrice(t *testing.T) {
	svc, _ := newCartService(t, testProduct("prod-1"))

	view, err := svc.AddToCart(context.Background(), "sess-1", "prod-1", domain.VariantEbook)

	require.NoError(t, err)
	require.Len(t, view.Lines, 1)
	assert.Equal(t, "19.90", view.Lines[0].UnitPrice)
	assert.Equal(t, 1, view.Lines[0].Quantity)
	assert.Equal(t, "19.90", view.Total)
}

func TestCartService_AddToCart_RepeatedAddsIncrement(t *testing.T) {
	svc, _ := newCartService(t, testProduct("prod-1"))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.AddToCart(ctx, "sess-1", "prod-1", domain.VariantEbook)
		require.NoError(t, err)
	}

	view := svc.GetCart(ctx, "sess-1")
	require.Len(t, view.Lines, 1)
	assert.Equal(t, 3, view.Lines[0].Quantity)
	assert.Equal(t, "59.70", view.Total)
}

func TestCartService_AddToCart_VariantsAreDistinctLines(t *testing.T) {
	svc, _ := newCartService(t, testProduct("prod-1"))
	ctx := context.Background()

	_, err := svc.AddToCart(ctx, "sess-1", "prod-1", domain.VariantEbook)
	require.NoError(t, err)
	_, err = svc.AddToCart(ctx, "sess-1", "prod-1", domain.VariantPrinted)
	require.NoError(t, err)

	view := svc.GetCart(ctx, "sess-1")
	require.Len(t, view.Lines, 2)
	assert.Equal(t, "ebook", view.Lines[0].Variant)
	assert.Equal(t, "printed", view.Lines[1].Variant)
	assert.Equal(t, "59.80", view.Total)
}

func TestCartService_AddToCart_UnknownProductLeavesCartUntouched(t *testing.T) {
	svc, _ := newCartService(t, testProduct("prod-1"))
	ctx := context.Background()

	_, err := svc.AddToCart(ctx, "sess-1", "missing", domain.VariantEbook)

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	view := svc.GetCart(ctx, "sess-1")
	assert.Empty(t, view.Lines)
	assert.Equal(t, "0.00", view.Total)
}

func TestCartService_RemoveFromCart_RemovesWholeLine(t *testing.T) {
	svc, _ := newCartService(t, testProduct("prod-1"))
	ctx := context.Background()

	_, err := svc.AddToCart(ctx, "sess-1", "prod-1", domain.VariantEbook)
	require.NoError(t, err)
	_, err = svc.AddToCart(ctx, "sess-1", "prod-1", domain.VariantEbook)
	require.NoError(t, err)

	view := svc.RemoveFromCart(ctx, "sess-1", "prod-1", domain.VariantEbook)

	assert.Empty(t, view.Lines)
	assert.Equal(t, "0.00", view.Total)
}

func TestCartService_RemoveFromCart_AbsentLineIsNoop(t *testing.T) {
	svc, _ := newCartService(t, testProduct("prod-1"))
	ctx := context.Background()

	_, err := svc.AddToCart(ctx, "sess-1", "prod-1", domain.VariantEbook)
	require.NoError(t, err)

	view := svc.RemoveFromCart(ctx, "sess-1", "prod-1", domain.VariantCombo)

	require.Len(t, view.Lines, 1)
	assert.Equal(t, "19.90", view.Total)
}

func TestCartService_SessionsAreIsolated(t *testing.T) {
	svc, _ := newCartService(t, testProduct("prod-1"))
	ctx := context.Background()

	_, err := svc.AddToCart(ctx, "sess-a", "prod-1", domain.VariantEbook)
	require.NoError(t, err)

	other := svc.GetCart(ctx, "sess-b")
	assert.Empty(t, other.Lines)
}

func TestCartService_GetCart_ConsumesFlashes(t *testing.T) {
	svc, _ := newCartService(t, testProduct("prod-1"))
	ctx := context.Background()

	svc.Session("sess-1").PushFlash("success", "Purchase completed successfully")

	first := svc.GetCart(ctx, "sess-1")
	require.Len(t, first.Flashes, 1)
	assert.Equal(t, "success", first.Flashes[0].Kind)

	second := svc.GetCart(ctx, "sess-1")
	assert.Empty(t, second.Flashes)
}
