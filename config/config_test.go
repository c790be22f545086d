package config

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("DATABASE_URL", "mongodb://localhost:27017")
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_123")
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_123")
	t.Setenv("JWT_SECRET", "jwt-secret")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "5000", cfg.Port)
	assert.Equal(t, OrderStoreMongo, cfg.OrderStore)
	assert.Equal(t, PublisherNone, cfg.EventPublisher)
	assert.Equal(t, 10*time.Second, cfg.StripeTimeout)
	assert.Equal(t, "http://localhost:3000", cfg.FrontendURL)
	assert.False(t, cfg.NeedsAWS())
}

func TestLoadConfigOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("ORDER_STORE", "DynamoDB")
	t.Setenv("STRIPE_TIMEOUT", "3s")
	t.Setenv("ALLOWED_ORIGINS", "https://shop.example.com/, https://admin.example.com")
	t.Setenv("FRONTEND_URL", "https://shop.example.com/")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, OrderStoreDynamoDB, cfg.OrderStore)
	assert.Equal(t, 3*time.Second, cfg.StripeTimeout)
	assert.Equal(t, []string{"https://shop.example.com", "https://admin.example.com"}, cfg.AllowedOrigins)
	assert.Equal(t, "https://shop.example.com", cfg.FrontendURL)
	assert.True(t, cfg.NeedsAWS())
}

func TestValidateReportsMissing(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("STRIPE_SECRET_KEY", "")
	t.Setenv("STRIPE_WEBHOOK_SECRET", "")
	t.Setenv("JWT_SECRET", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
	assert.Contains(t, err.Error(), "STRIPE_WEBHOOK_SECRET")
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestValidateRejectsUnknownBackends(t *testing.T) {
	setRequired(t)
	t.Setenv("ORDER_STORE", "cassandra")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Error(t, cfg.Validate())
}

type fakeSecrets struct {
	values map[string]string
	err    error
}

func (f fakeSecrets) GetSecretMap(context.Context, string) (map[string]string, error) {
	return f.values, f.err
}

func TestApplySecrets(t *testing.T) {
	cfg := &Config{AWSSecretName: "storefront/prod", StripeSecretKey: "from-env"}

	err := cfg.ApplySecrets(context.Background(), fakeSecrets{values: map[string]string{
		"STRIPE_WEBHOOK_SECRET": "whsec_from_secret",
		"JWT_SECRET":            "jwt_from_secret",
	}})
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.StripeSecretKey)
	assert.Equal(t, "whsec_from_secret", cfg.StripeWebhookSecret)
	assert.Equal(t, "jwt_from_secret", cfg.JWTSecret)

	err = cfg.ApplySecrets(context.Background(), fakeSecrets{err: errors.New("denied")})
	assert.Error(t, err)
}
