package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, 24*time.Hour, cfg.JWTExpiry)
	assert.False(t, cfg.TracingEnabled)
}

func TestLoad_InvalidHTTPPort(t *testing.T) {
	t.Setenv("HTTP_PORT", "0")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid HTTP port")
}

func TestLoad_InvalidSessionTTL(t *testing.T) {
	t.Setenv("SESSION_TTL", "-5m")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session TTL")
}

func TestLoad_CustomPaymentURL(t *testing.T) {
	t.Setenv("PAYMENT_URL", "https://payments.prod/pay")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "https://payments.prod/pay", cfg.PaymentURL)
}

func TestLoad_KafkaBrokerList(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
}
