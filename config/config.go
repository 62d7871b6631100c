package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	aws_pkg "checkout-service/pkg/aws"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	ProcessorStripe    = "stripe"
	ProcessorSimulated = "simulated"

	secretDBCredentials = "checkout/DB_CREDENTIALS"
	secretStripeAPIKey  = "checkout/STRIPE_API_KEY"
)

type Config struct {
	Port   string
	AppEnv string

	DBDriver         string
	SQLiteDSN        string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresHost     string
	PostgresPort     string
	PostgresSSLMode  string
	PostgresTimeZone string

	CartServiceURL         string
	ProductServiceURL      string
	UserServiceURL         string
	NotificationServiceURL string
	UpstreamTimeout        time.Duration

	PaymentProcessor        string
	StripeAPIKey            string
	PaymentCurrency         string
	SimulatedDeclineMethods []string

	ValidationConcurrency int
	NotificationWorkers   int
	NotificationQueueSize int

	RedisURL        string
	CheckoutLockTTL time.Duration

	KafkaBrokers     []string
	OrderEventsTopic string
	OrderSNSTopicARN string
	CheckoutQueueURL string

	CheckoutRatePerMinute int
	CheckoutRateBurst     int

	CloudWatchEnabled   bool
	CloudWatchNamespace string
	CloudWatchLogGroup  string
	UseAWSSecrets       bool

	OTLPEndpoint string
}

// SecretSource is the part of the Secrets Manager client LoadConfig uses.
type SecretSource interface {
	GetSecretMap(ctx context.Context, name string) (map[string]string, error)
	GetSecret(ctx context.Context, name string) (string, error)
}

// LoadConfig reads .env (when present) and the process environment. When AWS_USE_SECRETS
// is true, database credentials and the Stripe key are overridden from Secrets Manager.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := fromEnv()
	if cfg.UseAWSSecrets {
		awsCfg, err := aws_pkg.LoadAWSConfig(context.Background())
		if err != nil {
			return nil, err
		}
		if err := cfg.applySecrets(context.Background(), aws_pkg.NewSecretsClient(awsCfg)); err != nil {
			return nil, fmt.Errorf("AWS_USE_SECRETS is set: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromEnv() *Config {
	return &Config{
		Port:   getEnv("PORT", "8085"),
		AppEnv: getEnv("APP_ENV", "development"),

		DBDriver:         getEnv("DB_DRIVER", DriverPostgres),
		SQLiteDSN:        getEnv("SQLITE_DSN", "file:checkout.db?_foreign_keys=on"),
		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       os.Getenv("POSTGRES_DB"),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		PostgresTimeZone: getEnv("POSTGRES_TIMEZONE", "UTC"),

		CartServiceURL:         getEnv("CART_SERVICE_URL", "http://cart-service:8086"),
		ProductServiceURL:      getEnv("PRODUCT_SERVICE_URL", "http://product-service:8082"),
		UserServiceURL:         getEnv("USER_SERVICE_URL", "http://user-service:8081"),
		NotificationServiceURL: getEnv("NOTIFICATION_SERVICE_URL", "http://notification-service:8087"),
		UpstreamTimeout:        getDuration("UPSTREAM_TIMEOUT", 5*time.Second),

		PaymentProcessor:        strings.ToLower(getEnv("PAYMENT_PROCESSOR", ProcessorStripe)),
		StripeAPIKey:            os.Getenv("STRIPE_API_KEY"),
		PaymentCurrency:         getEnv("PAYMENT_CURRENCY", "usd"),
		SimulatedDeclineMethods: getList("SIMULATED_DECLINE_METHODS", []string{"pm_card_chargeDeclined"}),

		ValidationConcurrency: getInt("VALIDATION_CONCURRENCY", 4),
		NotificationWorkers:   getInt("NOTIFICATION_WORKERS", 2),
		NotificationQueueSize: getInt("NOTIFICATION_QUEUE_SIZE", 256),

		RedisURL:        os.Getenv("REDIS_URL"),
		CheckoutLockTTL: getDuration("CHECKOUT_LOCK_TTL", 60*time.Second),

		KafkaBrokers:     getList("KAFKA_BROKERS", nil),
		OrderEventsTopic: getEnv("ORDER_EVENTS_TOPIC", "order.events"),
		OrderSNSTopicARN: os.Getenv("ORDER_SNS_TOPIC_ARN"),
		CheckoutQueueURL: os.Getenv("CHECKOUT_QUEUE_URL"),

		CheckoutRatePerMinute: getInt("CHECKOUT_RATE_PER_MINUTE", 10),
		CheckoutRateBurst:     getInt("CHECKOUT_RATE_BURST", 3),

		CloudWatchEnabled:   os.Getenv("CLOUDWATCH_ENABLED") == "true",
		CloudWatchNamespace: getEnv("CLOUDWATCH_NAMESPACE", "ECommerce"),
		CloudWatchLogGroup:  getEnv("CLOUDWATCH_LOG_GROUP", "/ecommerce/services"),
		UseAWSSecrets:       os.Getenv("AWS_USE_SECRETS") == "true",

		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}
}

// applySecrets overrides credentials from Secrets Manager. Values a secret omits keep
// their env setting; a secret that cannot be read is an error.
func (c *Config) applySecrets(ctx context.Context, sm SecretSource) error {
	var errs []error
	if m, err := sm.GetSecretMap(ctx, secretDBCredentials); err != nil {
		errs = append(errs, fmt.Errorf("read secret %s: %w", secretDBCredentials, err))
	} else {
		overrideIfSet(&c.PostgresUser, m["POSTGRES_USER"])
		overrideIfSet(&c.PostgresPassword, m["POSTGRES_PASSWORD"])
		overrideIfSet(&c.PostgresDB, m["POSTGRES_DB"])
		overrideIfSet(&c.PostgresHost, m["POSTGRES_HOST"])
		overrideIfSet(&c.PostgresPort, m["POSTGRES_PORT"])
	}
	if key, err := sm.GetSecret(ctx, secretStripeAPIKey); err != nil {
		errs = append(errs, fmt.Errorf("read secret %s: %w", secretStripeAPIKey, err))
	} else {
		overrideIfSet(&c.StripeAPIKey, strings.TrimSpace(key))
	}
	return errors.Join(errs...)
}

// Validate checks the settings the service cannot start without.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case DriverPostgres:
		if c.PostgresUser == "" || c.PostgresPassword == "" || c.PostgresDB == "" || c.PostgresHost == "" {
			return fmt.Errorf("database config incomplete")
		}
	case DriverSQLite:
		if c.SQLiteDSN == "" {
			return fmt.Errorf("SQLITE_DSN is required")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}

	for name, v := range map[string]string{
		"CART_SERVICE_URL":         c.CartServiceURL,
		"PRODUCT_SERVICE_URL":      c.ProductServiceURL,
		"USER_SERVICE_URL":         c.UserServiceURL,
		"NOTIFICATION_SERVICE_URL": c.NotificationServiceURL,
	} {
		if v == "" {
			return fmt.Errorf("%s is required", name)
		}
	}

	switch c.PaymentProcessor {
	case ProcessorStripe:
		if c.StripeAPIKey == "" {
			return fmt.Errorf("STRIPE_API_KEY is required when PAYMENT_PROCESSOR=stripe")
		}
	case ProcessorSimulated:
	default:
		return fmt.Errorf("unsupported PAYMENT_PROCESSOR %q", c.PaymentProcessor)
	}

	if c.ValidationConcurrency < 1 || c.NotificationWorkers < 1 || c.NotificationQueueSize < 1 {
		return fmt.Errorf("worker and queue sizes must be positive")
	}
	return nil
}

// PostgresDSN builds the DSN the way the other services do.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		c.PostgresHost, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresPort, c.PostgresSSLMode, c.PostgresTimeZone,
	)
}

func overrideIfSet(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getList(key string, fallback []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
