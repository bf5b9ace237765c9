package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_SentinelMatching(t *testing.T) {
	err := NotFound("product", "p-1")

	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, http.StatusNotFound, HTTPStatus(err))
	assert.Contains(t, err.Error(), "p-1")
}

func TestPaymentErrors(t *testing.T) {
	rejected := PaymentRejected("amount exceeds allowed limit")
	assert.ErrorIs(t, rejected, ErrPaymentRejected)
	assert.Equal(t, http.StatusUnprocessableEntity, HTTPStatus(rejected))
	assert.Equal(t, "amount exceeds allowed limit", rejected.Message)

	gw := PaymentGateway(errors.New("connection refused"))
	assert.ErrorIs(t, gw, ErrPaymentGateway)
	assert.Equal(t, http.StatusBadGateway, HTTPStatus(gw))
}

func TestHTTPStatus_WrappedSentinels(t *testing.T) {
	err := fmt.Errorf("outer: %w", ErrUnauthorized)
	assert.Equal(t, http.StatusUnauthorized, HTTPStatus(err))

	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("boom")))
}

func TestWrap(t *testing.T) {
	base := ErrInvalidInput
	wrapped := Wrap(base, "parse request")

	assert.ErrorIs(t, wrapped, base)
	assert.Contains(t, wrapped.Error(), "parse request")
}
