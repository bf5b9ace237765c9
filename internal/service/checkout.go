package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/codehouse/bookshop/internal/domain"
	"github.com/codehouse/bookshop/internal/event"
	"github.com/codehouse/bookshop/internal/gateway"
	"github.com/codehouse/bookshop/internal/mailer"
	"github.com/codehouse/bookshop/internal/session"
	apperrors "github.com/codehouse/bookshop/pkg/errors"
	"github.com/codehouse/bookshop/pkg/logger"
)

var checkoutsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "bookshop_checkouts_total",
	Help: "Checkout attempts by outcome",
}, []string{"outcome"})

// Checkout outcome statuses.
const (
	StatusAccepted = "accepted"
	StatusRejected = "rejected"
	StatusFailed   = "failed"
)

// SuccessMessage is the flash shown after an accepted payment.
const SuccessMessage = "Purchase completed successfully"

// FailureMessage is the flash shown when the payment system is unreachable.
const FailureMessage = "payment could not be processed, please try again"

// Outcome is the result of one checkout attempt.
type Outcome struct {
	Status       string `json:"status"`
	Message      string `json:"message"`
	Confirmation string `json:"confirmation,omitempty"`
	Total        string `json:"total"`
	Redirect     string `json:"redirect"`
}

// CheckoutCoordinator snapshots a session's cart and submits its total to the
// payment gateway off the request goroutine. The payment call runs under a
// detached context, so a shopper closing the tab mid-checkout never aborts a
// payment already in flight — the flash, mail and cart clear still happen.
type CheckoutCoordinator struct {
	sessions  *session.Store
	gateway   gateway.PaymentGateway
	mail      mailer.Sender
	publisher event.Publisher
	timeout   time.Duration
	logger    *slog.Logger
}

// NewCheckoutCoordinator creates a checkout coordinator. timeout bounds the
// whole payment attempt once dispatched.
func NewCheckoutCoordinator(
	sessions *session.Store,
	gw gateway.PaymentGateway,
	mail mailer.Sender,
	publisher event.Publisher,
	timeout time.Duration,
	log *slog.Logger,
) *CheckoutCoordinator {
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &CheckoutCoordinator{
		sessions:  sessions,
		gateway:   gw,
		mail:      mail,
		publisher: publisher,
		timeout:   timeout,
		logger:    log,
	}
}

// Checkout snapshots the cart under the session lock, dispatches the payment
// asynchronously and returns a buffered channel that receives exactly one
// outcome. The caller may stop waiting at any point; the attempt still runs
// to completion.
func (c *CheckoutCoordinator) Checkout(ctx context.Context, sessionID, shopperEmail string) <-chan Outcome {
	sess := c.sessions.GetOrCreate(sessionID)

	var snapshot *domain.CheckoutRequest
	sess.View(func(cart *domain.Cart) {
		snapshot = cart.Snapshot()
	})

	// Buffered so the worker never blocks on a caller that went away.
	results := make(chan Outcome, 1)

	// Detach from the request context: client disconnect must not cancel a
	// payment already dispatched.
	workCtx := context.WithoutCancel(ctx)

	go func() {
		workCtx, cancel := context.WithTimeout(workCtx, c.timeout)
		defer cancel()
		results <- c.process(workCtx, sess, snapshot, shopperEmail)
	}()

	return results
}

func (c *CheckoutCoordinator) process(ctx context.Context, sess *session.Session, snapshot *domain.CheckoutRequest, shopperEmail string) Outcome {
	log := c.logger.With(slog.String("session_id", sess.ID))

	log.InfoContext(ctx, "checkout dispatched",
		slog.Int("lines", len(snapshot.Lines)),
		slog.String("total", snapshot.Total.StringFixed(2)),
	)

	receipt, err := c.gateway.SubmitPayment(ctx, snapshot.Total)
	if err != nil {
		return c.fail(ctx, sess, snapshot, err, log)
	}

	// Success path: flash, clear the cart, notify. The mail is best-effort
	// and only ever sent for an accepted payment.
	sess.PushFlash("success", SuccessMessage)
	sess.Update(func(cart *domain.Cart) {
		cart.Clear()
	})

	if shopperEmail != "" {
		body := fmt.Sprintf("Your order of %s was confirmed (%s).", snapshot.Total.StringFixed(2), receipt.Confirmation)
		if err := c.mail.Send(ctx, shopperEmail, SuccessMessage, body); err != nil {
			log.WarnContext(ctx, "purchase mail not sent", slog.String("error", err.Error()))
		}
	}

	c.publishCheckoutEvent(ctx, sess.ID, event.TypeCheckoutCompleted, event.CheckoutData{
		Total:   snapshot.Total.StringFixed(2),
		Items:   len(snapshot.Lines),
		Outcome: StatusAccepted,
	})
	c.publishCartClearedEvent(ctx, sess.ID)

	checkoutsTotal.WithLabelValues(StatusAccepted).Inc()
	log.InfoContext(ctx, "checkout accepted", slog.String("confirmation", receipt.Confirmation))

	return Outcome{
		Status:       StatusAccepted,
		Message:      SuccessMessage,
		Confirmation: receipt.Confirmation,
		Total:        snapshot.Total.StringFixed(2),
		Redirect:     "/api/v1/products",
	}
}

// fail classifies a payment error. A rejection keeps the cart intact so the
// shopper can adjust it; a transport failure likewise leaves everything as it
// was. No mail goes out on either path.
func (c *CheckoutCoordinator) fail(ctx context.Context, sess *session.Session, snapshot *domain.CheckoutRequest, err error, log *slog.Logger) Outcome {
	outcome := Outcome{
		Total:    snapshot.Total.StringFixed(2),
		Redirect: "/api/v1/products",
	}

	switch {
	case errors.Is(err, apperrors.ErrPaymentRejected):
		outcome.Status = StatusRejected
		outcome.Message = gateway.RejectionMessage
		log.InfoContext(ctx, "checkout rejected", slog.String("total", snapshot.Total.StringFixed(2)))
	default:
		outcome.Status = StatusFailed
		outcome.Message = FailureMessage
		log.ErrorContext(ctx, "checkout failed", slog.String("error", err.Error()))
	}

	sess.PushFlash("failure", outcome.Message)

	c.publishCheckoutEvent(ctx, sess.ID, event.TypeCheckoutFailed, event.CheckoutData{
		Total:   snapshot.Total.StringFixed(2),
		Items:   len(snapshot.Lines),
		Outcome: outcome.Status,
		Reason:  outcome.Message,
	})

	checkoutsTotal.WithLabelValues(outcome.Status).Inc()
	return outcome
}

func (c *CheckoutCoordinator) publishCheckoutEvent(ctx context.Context, sessionID, eventType string, data event.CheckoutData) {
	evt, err := event.New(eventType, sessionID, "checkout", data)
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to build checkout event", slog.String("error", err.Error()))
		return
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		evt.WithCorrelationID(id)
	}
	if err := c.publisher.Publish(ctx, event.TopicCheckout, evt); err != nil {
		c.logger.WarnContext(ctx, "checkout event not published", slog.String("error", err.Error()))
	}
}

func (c *CheckoutCoordinator) publishCartClearedEvent(ctx context.Context, sessionID string) {
	evt, err := event.New(event.TypeCartCleared, sessionID, "cart", struct{}{})
	if err != nil {
		return
	}
	if err := c.publisher.Publish(ctx, event.TopicCart, evt); err != nil {
		c.logger.WarnContext(ctx, "cart event not published", slog.String("error", err.Error()))
	}
}
