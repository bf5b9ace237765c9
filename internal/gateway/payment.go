package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"

	apperrors "github.com/codehouse/bookshop/pkg/errors"
)

// RejectionMessage is the user-facing text for a payment the gateway refused.
const RejectionMessage = "amount exceeds allowed limit"

// Receipt is the gateway's confirmation of an accepted payment.
type Receipt struct {
	Confirmation string
}

// PaymentGateway submits a payment amount to the external payment system.
// The call blocks for the duration of the network round trip; callers run it
// off the request-serving goroutine.
//
// Errors classify the outcome: apperrors.ErrPaymentRejected for a refusal,
// apperrors.ErrPaymentGateway for anything transport-level.
type PaymentGateway interface {
	SubmitPayment(ctx context.Context, amount decimal.Decimal) (*Receipt, error)
}

// Config holds payment client configuration.
type Config struct {
	URL        string
	Timeout    time.Duration
	MaxRetries int
}

// Client is the HTTP payment gateway client. Requests go through a circuit
// breaker so a flapping gateway fails fast instead of tying up goroutines.
type Client struct {
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[*http.Response]
	cfg        Config
	logger     *slog.Logger
}

// NewClient creates a payment gateway client.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:   true,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	breaker := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:    "payment-gateway",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	})

	return &Client{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		breaker: breaker,
		cfg:     cfg,
		logger:  logger,
	}
}

// paymentPayload is the wire format the payment system expects: a single
// numeric amount field.
type paymentPayload struct {
	Value json.Number `json:"value"`
}

// SubmitPayment posts the amount and classifies the response:
// 2xx is accepted, 4xx is a rejection, everything else is a transport error.
func (c *Client) SubmitPayment(ctx context.Context, amount decimal.Decimal) (*Receipt, error) {
	body, err := json.Marshal(paymentPayload{Value: json.Number(amount.String())})
	if err != nil {
		return nil, fmt.Errorf("marshal payment payload: %w", err)
	}

	resp, err := c.post(ctx, body)
	if err != nil {
		return nil, apperrors.PaymentGateway(err)
	}
	defer resp.Body.Close()

	text, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return nil, apperrors.PaymentGateway(fmt.Errorf("read response: %w", err))
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return &Receipt{Confirmation: strings.TrimSpace(string(text))}, nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, apperrors.PaymentRejected(RejectionMessage)
	default:
		return nil, apperrors.PaymentGateway(fmt.Errorf("gateway returned status %d", resp.StatusCode))
	}
}

// post sends the request through the breaker, retrying network-level failures
// with exponential backoff.
func (c *Client) post(ctx context.Context, body []byte) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := time.Second * time.Duration(1<<uint(attempt-1))
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		resp, err := c.breaker.Execute(func() (*http.Response, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
			if err != nil {
				return nil, err
			}
			req.Header.Set("Content-Type", "application/json")
			return c.httpClient.Do(req)
		})
		if err != nil {
			lastErr = err
			continue
		}
		return resp, nil
	}

	return nil, fmt.Errorf("payment request failed after %d attempts: %w", c.cfg.MaxRetries+1, lastErr)
}
