package config

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DB_DRIVER", "")
	t.Setenv("POSTGRES_USER", "checkout")
	t.Setenv("POSTGRES_PASSWORD", "secret")
	t.Setenv("POSTGRES_DB", "checkout")
	t.Setenv("POSTGRES_HOST", "db")
	t.Setenv("PAYMENT_PROCESSOR", "stripe")
	t.Setenv("STRIPE_API_KEY", "sk_test_123")
	t.Setenv("AWS_USE_SECRETS", "")
}

func TestLoadConfig_Defaults(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("UPSTREAM_TIMEOUT", "")
	t.Setenv("KAFKA_BROKERS", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, DriverPostgres, cfg.DBDriver)
	assert.Equal(t, 5*time.Second, cfg.UpstreamTimeout)
	assert.Equal(t, 4, cfg.ValidationConcurrency)
	assert.Nil(t, cfg.KafkaBrokers)
	assert.Contains(t, cfg.PostgresDSN(), "host=db user=checkout password=secret dbname=checkout")
}

func TestLoadConfig_ParsesListsAndDurations(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("CHECKOUT_LOCK_TTL", "30s")
	t.Setenv("VALIDATION_CONCURRENCY", "8")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 30*time.Second, cfg.CheckoutLockTTL)
	assert.Equal(t, 8, cfg.ValidationConcurrency)
}

func TestValidate_Failures(t *testing.T) {
	cases := map[string]func(*Config){
		"missing db password": func(c *Config) { c.PostgresPassword = "" },
		"unknown driver":      func(c *Config) { c.DBDriver = "mysql" },
		"stripe without key":  func(c *Config) { c.StripeAPIKey = "" },
		"unknown processor":   func(c *Config) { c.PaymentProcessor = "paypal" },
		"missing cart url":    func(c *Config) { c.CartServiceURL = "" },
		"zero workers":        func(c *Config) { c.NotificationWorkers = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			setBaseEnv(t)
			cfg := fromEnv()
			require.NoError(t, cfg.Validate())
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidate_SQLiteNeedsNoPostgres(t *testing.T) {
	cfg := &Config{
		DBDriver:               DriverSQLite,
		SQLiteDSN:              "file::memory:",
		CartServiceURL:         "http://cart",
		ProductServiceURL:      "http://product",
		UserServiceURL:         "http://user",
		NotificationServiceURL: "http://notify",
		PaymentProcessor:       ProcessorSimulated,
		ValidationConcurrency:  1,
		NotificationWorkers:    1,
		NotificationQueueSize:  1,
	}
	assert.NoError(t, cfg.Validate())
}

type fakeSecrets struct {
	maps    map[string]map[string]string
	strings map[string]string
}

func (f *fakeSecrets) GetSecretMap(_ context.Context, name string) (map[string]string, error) {
	if m, ok := f.maps[name]; ok {
		return m, nil
	}
	return nil, errors.New("not found")
}

func (f *fakeSecrets) GetSecret(_ context.Context, name string) (string, error) {
	if s, ok := f.strings[name]; ok {
		return s, nil
	}
	return "", errors.New("not found")
}

func TestApplySecrets_OverridesOnlyPresentValues(t *testing.T) {
	cfg := &Config{PostgresUser: "env-user", PostgresPassword: "env-pass", StripeAPIKey: "env-key"}
	sm := &fakeSecrets{
		maps: map[string]map[string]string{
			"checkout/DB_CREDENTIALS": {"POSTGRES_PASSWORD": "sm-pass"},
		},
		strings: map[string]string{"checkout/STRIPE_API_KEY": " sk_live_sm \n"},
	}

	require.NoError(t, cfg.applySecrets(context.Background(), sm))
	assert.Equal(t, "env-user", cfg.PostgresUser)
	assert.Equal(t, "sm-pass", cfg.PostgresPassword)
	assert.Equal(t, "sk_live_sm", cfg.StripeAPIKey)
}

func TestApplySecrets_UnreadableSecretIsAnError(t *testing.T) {
	cfg := &Config{PostgresUser: "env-user", PostgresPassword: "env-pass", StripeAPIKey: "env-key"}
	sm := &fakeSecrets{strings: map[string]string{"checkout/STRIPE_API_KEY": "sk_live_sm"}}

	err := cfg.applySecrets(context.Background(), sm)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "checkout/DB_CREDENTIALS")
	assert.NotContains(t, err.Error(), "checkout/STRIPE_API_KEY")
	assert.Equal(t, "env-pass", cfg.PostgresPassword)
	assert.Equal(t, "sk_live_sm", cfg.StripeAPIKey)

	err = cfg.applySecrets(context.Background(), &fakeSecrets{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "checkout/DB_CREDENTIALS")
	assert.Contains(t, err.Error(), "checkout/STRIPE_API_KEY")
}
