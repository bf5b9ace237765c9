package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codehouse/bookshop/internal/domain"
	"github.com/codehouse/bookshop/internal/event"
	"github.com/codehouse/bookshop/internal/gateway"
	"github.com/codehouse/bookshop/internal/session"
	apperrors "github.com/codehouse/bookshop/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// fakes
// ─────────────────────────────────────────────────────────────────────────────

type stubGateway struct {
	receipt *gateway.Receipt
	err     error

	gotAmount decimal.Decimal
	gotCtxErr error
	release   chan struct{} // when set, SubmitPayment blocks until closed
}

func (g *stubGateway) SubmitPayment(ctx context.Context, amount decimal.Decimal) (*gateway.Receipt, error) {
	if g.release != nil {
		<-g.release
	}
	g.gotAmount = amount
	g.gotCtxErr = ctx.Err()
	if g.err != nil {
		return nil, g.err
	}
	return g.receipt, nil
}

type recordSender struct {
	to      string
	subject string
	body    string
	calls   int
}

func (s *recordSender) Name() string { return "record" }

func (s *recordSender) Send(_ context.Context, to, subject, body string) error {
	s.to, s.subject, s.body = to, subject, body
	s.calls++
	return nil
}

type checkoutFixture struct {
	coordinator *CheckoutCoordinator
	cart        *CartService
	gateway     *stubGateway
	mail        *recordSender
}

func newCheckoutFixture(t *testing.T, gw *stubGateway) *checkoutFixture {
	t.Helper()

	repo := newFakeProductRepo(testProduct("prod-1"))
	catalog := NewCatalogService(repo, nil, time.Minute, testLogger())
	sessions := session.NewStore(time.Hour, testLogger())
	cart := NewCartService(sessions, catalog, event.NopPublisher{}, testLogger())
	mail := &recordSender{}

	coordinator := NewCheckoutCoordinator(sessions, gw, mail, event.NopPublisher{}, time.Minute, testLogger())

	return &checkoutFixture{
		coordinator: coordinator,
		cart:        cart,
		gateway:     gw,
		mail:        mail,
	}
}

func (f *checkoutFixture) fillCart(t *testing.T, sessionID string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := f.cart.AddToCart(context.Background(), sessionID, "prod-1", domain.VariantPrinted)
		require.NoError(t, err)
	}
}

func waitOutcome(t *testing.T, results <-chan Outcome) Outcome {
	t.Helper()
	select {
	case out := <-results:
		return out
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for checkout outcome")
		return Outcome{}
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// scenarios
// ─────────────────────────────────────────────────────────────────────────────

func TestCheckout_Accepted(t *testing.T) {
	gw := &stubGateway{receipt: &gateway.Receipt{Confirmation: "payment ok"}}
	f := newCheckoutFixture(t, gw)
	f.fillCart(t, "sess-1", 3)

	out := waitOutcome(t, f.coordinator.Checkout(context.Background(), "sess-1", "shopper@example.com"))

	assert.Equal(t, StatusAccepted, out.Status)
	assert.Equal(t, SuccessMessage, out.Message)
	assert.Equal(t, "payment ok", out.Confirmation)
	assert.Equal(t, "119.70", out.Total)
	assert.Equal(t, "/api/v1/products", out.Redirect)

	// Gateway saw the snapshot total.
	assert.Equal(t, "119.70", gw.gotAmount.StringFixed(2))

	// Cart cleared, success flash queued, mail sent.
	view := f.cart.GetCart(context.Background(), "sess-1")
	assert.Empty(t, view.Lines)
	require.Len(t, view.Flashes, 1)
	assert.Equal(t, "success", view.Flashes[0].Kind)
	assert.Equal(t, SuccessMessage, view.Flashes[0].Message)

	assert.Equal(t, 1, f.mail.calls)
	assert.Equal(t, "shopper@example.com", f.mail.to)
	assert.Equal(t, SuccessMessage, f.mail.subject)
	assert.Contains(t, f.mail.body, "119.70")
}

func TestCheckout_Rejected(t *testing.T) {
	gw := &stubGateway{err: apperrors.PaymentRejected(gateway.RejectionMessage)}
	f := newCheckoutFixture(t, gw)
	f.fillCart(t, "sess-1", 2)

	out := waitOutcome(t, f.coordinator.Checkout(context.Background(), "sess-1", "shopper@example.com"))

	assert.Equal(t, StatusRejected, out.Status)
	assert.Equal(t, gateway.RejectionMessage, out.Message)

	// Cart survives a rejection so the shopper can adjust it. No mail.
	view := f.cart.GetCart(context.Background(), "sess-1")
	require.Len(t, view.Lines, 1)
	assert.Equal(t, 2, view.Lines[0].Quantity)
	require.Len(t, view.Flashes, 1)
	assert.Equal(t, "failure", view.Flashes[0].Kind)
	assert.Equal(t, gateway.RejectionMessage, view.Flashes[0].Message)

	assert.Equal(t, 0, f.mail.calls)
}

func TestCheckout_GatewayUnreachable(t *testing.T) {
	gw := &stubGateway{err: apperrors.PaymentGateway(context.DeadlineExceeded)}
	f := newCheckoutFixture(t, gw)
	f.fillCart(t, "sess-1", 1)

	out := waitOutcome(t, f.coordinator.Checkout(context.Background(), "sess-1", "shopper@example.com"))

	assert.Equal(t, StatusFailed, out.Status)
	assert.Equal(t, FailureMessage, out.Message)

	view := f.cart.GetCart(context.Background(), "sess-1")
	require.Len(t, view.Lines, 1)
	require.Len(t, view.Flashes, 1)
	assert.Equal(t, "failure", view.Flashes[0].Kind)

	assert.Equal(t, 0, f.mail.calls)
}

func TestCheckout_EmptyCartStillSubmits(t *testing.T) {
	gw := &stubGateway{receipt: &gateway.Receipt{Confirmation: "payment ok"}}
	f := newCheckoutFixture(t, gw)

	out := waitOutcome(t, f.coordinator.Checkout(context.Background(), "sess-1", ""))

	assert.Equal(t, StatusAccepted, out.Status)
	assert.Equal(t, "0.00", out.Total)
	assert.True(t, gw.gotAmount.IsZero())
	// No shopper address, no mail.
	assert.Equal(t, 0, f.mail.calls)
}

func TestCheckout_SurvivesClientDisconnect(t *testing.T) {
	gw := &stubGateway{
		receipt: &gateway.Receipt{Confirmation: "payment ok"},
		release: make(chan struct{}),
	}
	f := newCheckoutFixture(t, gw)
	f.fillCart(t, "sess-1", 1)

	ctx, cancel := context.WithCancel(context.Background())
	results := f.coordinator.Checkout(ctx, "sess-1", "shopper@example.com")

	// The shopper disconnects while the payment is in flight.
	cancel()
	close(gw.release)

	out := waitOutcome(t, results)

	assert.Equal(t, StatusAccepted, out.Status)
	// The detached context kept the payment alive past the cancellation.
	assert.NoError(t, gw.gotCtxErr)

	view := f.cart.GetCart(context.Background(), "sess-1")
	assert.Empty(t, view.Lines)
	assert.Equal(t, 1, f.mail.calls)
}

func TestCheckout_SnapshotIgnoresLaterMutations(t *testing.T) {
	gw := &stubGateway{
		receipt: &gateway.Receipt{Confirmation: "payment ok"},
		release: make(chan struct{}),
	}
	f := newCheckoutFixture(t, gw)
	f.fillCart(t, "sess-1", 1)

	results := f.coordinator.Checkout(context.Background(), "sess-1", "")

	// Cart grows after dispatch; the submitted amount must not change.
	f.fillCart(t, "sess-1", 5)
	close(gw.release)

	out := waitOutcome(t, results)

	assert.Equal(t, StatusAccepted, out.Status)
	assert.Equal(t, "39.90", out.Total)
	assert.Equal(t, "39.90", gw.gotAmount.StringFixed(2))
}
