package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/codehouse/bookshop/pkg/errors"
)

func newTestClient(url string) *Client {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewClient(Config{URL: url, MaxRetries: 0}, logger)
}

func TestSubmitPayment_Accepted(t *testing.T) {
	var gotBody map[string]json.Number
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("payment approved\n"))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)

	receipt, err := client.SubmitPayment(context.Background(), decimal.RequireFromString("120.00"))

	require.NoError(t, err)
	assert.Equal(t, "payment approved", receipt.Confirmation)
	// The payload carries the snapshot amount as a bare number.
	assert.Equal(t, json.Number("120.00"), gotBody["value"])
}

func TestSubmitPayment_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "limit exceeded", http.StatusBadRequest)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)

	_, err := client.SubmitPayment(context.Background(), decimal.RequireFromString("99999.00"))

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrPaymentRejected)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, RejectionMessage, appErr.Message)
}

func TestSubmitPayment_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)

	_, err := client.SubmitPayment(context.Background(), decimal.RequireFromString("10.00"))

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrPaymentGateway)
}

func TestSubmitPayment_TransportError(t *testing.T) {
	// Point at a closed server to force a connection error.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client := newTestClient(srv.URL)

	_, err := client.SubmitPayment(context.Background(), decimal.RequireFromString("10.00"))

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrPaymentGateway)
}
