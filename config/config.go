package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Order store backends selectable through ORDER_STORE.
const (
	OrderStoreMongo    = "mongo"
	OrderStoreDynamoDB = "dynamodb"
	OrderStorePostgres = "postgres"
	OrderStoreMemory   = "memory"
)

// Event publishers selectable through EVENT_PUBLISHER.
const (
	PublisherNone  = "none"
	PublisherSNS   = "sns"
	PublisherKafka = "kafka"
)

type Config struct {
	Port string
	Env  string

	DatabaseURL  string
	DatabaseName string

	StripeSecretKey     string
	StripeWebhookSecret string
	StripeTimeout       time.Duration
	JWTSecret           string

	FrontendURL    string
	AllowedOrigins []string

	OrderStore  string
	OrdersTable string
	PostgresDSN string

	RedisURL        string
	ProductCacheTTL time.Duration

	EventPublisher      string
	OrderEventsTopicARN string
	KafkaBrokers        []string
	KafkaOrderTopic     string

	RateLimitRPS   float64
	RateLimitBurst int

	CloudWatchEnabled  bool
	CloudWatchLogGroup string
	MetricsNamespace   string

	AWSRegion     string
	AWSEndpoint   string
	AWSSecretName string
}

// SecretSource resolves a JSON object secret into key/value pairs.
type SecretSource interface {
	GetSecretMap(ctx context.Context, name string) (map[string]string, error)
}

// LoadConfig reads configuration from the environment, after loading .env if one exists.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{
		Port: getEnv("PORT", "5000"),
		Env:  getEnv("ENV", "development"),

		DatabaseURL:  os.Getenv("DATABASE_URL"),
		DatabaseName: getEnv("DATABASE_NAME", "storefront"),

		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		StripeTimeout:       getDuration("STRIPE_TIMEOUT", 10*time.Second),
		JWTSecret:           os.Getenv("JWT_SECRET"),

		FrontendURL:    strings.TrimSuffix(getEnv("FRONTEND_URL", "http://localhost:3000"), "/"),
		AllowedOrigins: getList("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),

		OrderStore:  strings.ToLower(getEnv("ORDER_STORE", OrderStoreMongo)),
		OrdersTable: getEnv("ORDERS_TABLE", "Orders"),
		PostgresDSN: os.Getenv("POSTGRES_DSN"),

		RedisURL:        os.Getenv("REDIS_URL"),
		ProductCacheTTL: getDuration("PRODUCT_CACHE_TTL", 5*time.Minute),

		EventPublisher:      strings.ToLower(getEnv("EVENT_PUBLISHER", PublisherNone)),
		OrderEventsTopicARN: os.Getenv("ORDER_EVENTS_TOPIC_ARN"),
		KafkaBrokers:        getList("KAFKA_BROKERS", nil),
		KafkaOrderTopic:     getEnv("KAFKA_ORDER_TOPIC", "order-events"),

		RateLimitRPS:   getFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst: getInt("RATE_LIMIT_BURST", 20),

		CloudWatchEnabled:  os.Getenv("CLOUDWATCH_ENABLED") == "true",
		CloudWatchLogGroup: getEnv("CLOUDWATCH_LOG_GROUP", "/storefront/services"),
		MetricsNamespace:   getEnv("METRICS_NAMESPACE", "Storefront"),

		AWSRegion:     getEnv("AWS_REGION", "us-east-1"),
		AWSEndpoint:   os.Getenv("AWS_ENDPOINT"),
		AWSSecretName: os.Getenv("AWS_SECRET_NAME"),
	}

	return cfg, nil
}

// ApplySecrets overrides the Stripe and JWT secrets with values held in the
// AWS_SECRET_NAME secret. Keys absent from the secret keep their env value.
func (c *Config) ApplySecrets(ctx context.Context, src SecretSource) error {
	if c.AWSSecretName == "" {
		return nil
	}
	values, err := src.GetSecretMap(ctx, c.AWSSecretName)
	if err != nil {
		return fmt.Errorf("failed to resolve secrets: %w", err)
	}
	if v := values["STRIPE_SECRET_KEY"]; v != "" {
		c.StripeSecretKey = v
	}
	if v := values["STRIPE_WEBHOOK_SECRET"]; v != "" {
		c.StripeWebhookSecret = v
	}
	if v := values["JWT_SECRET"]; v != "" {
		c.JWTSecret = v
	}
	if v := values["DATABASE_URL"]; v != "" {
		c.DatabaseURL = v
	}
	return nil
}

// Validate reports every missing or inconsistent setting in one error.
func (c *Config) Validate() error {
	var missing []string
	if c.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.StripeSecretKey == "" {
		missing = append(missing, "STRIPE_SECRET_KEY")
	}
	if c.StripeWebhookSecret == "" {
		missing = append(missing, "STRIPE_WEBHOOK_SECRET")
	}
	if c.JWTSecret == "" {
		if c.Env == "development" {
			c.JWTSecret = "secret"
		} else {
			missing = append(missing, "JWT_SECRET")
		}
	}

	switch c.OrderStore {
	case OrderStoreMongo, OrderStoreDynamoDB, OrderStoreMemory:
	case OrderStorePostgres:
		if c.PostgresDSN == "" {
			missing = append(missing, "POSTGRES_DSN")
		}
	default:
		return fmt.Errorf("unsupported ORDER_STORE %q", c.OrderStore)
	}

	switch c.EventPublisher {
	case PublisherNone:
	case PublisherSNS:
		if c.OrderEventsTopicARN == "" {
			missing = append(missing, "ORDER_EVENTS_TOPIC_ARN")
		}
	case PublisherKafka:
		if len(c.KafkaBrokers) == 0 {
			missing = append(missing, "KAFKA_BROKERS")
		}
	default:
		return fmt.Errorf("unsupported EVENT_PUBLISHER %q", c.EventPublisher)
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return nil
}

// NeedsAWS reports whether any configured component talks to AWS.
func (c *Config) NeedsAWS() bool {
	return c.AWSSecretName != "" ||
		c.CloudWatchEnabled ||
		c.OrderStore == OrderStoreDynamoDB ||
		c.EventPublisher == PublisherSNS
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil && d > 0 {
		return d
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil && n > 0 {
		return n
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if f, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil && f > 0 {
		return f
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
		if part = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(part), "/")); part != "" {
			out = append(out, part)
		}
	}
	return out
}
