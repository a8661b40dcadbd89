package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds the configuration of the checkout front ends.
type Config struct {
	Port              string        `validate:"required,numeric"`
	Environment       string        `validate:"oneof=development production"`
	ServerURL         string        `validate:"required,url"` // checkout server serving /config and /create-payment-intent
	Currency          string        `validate:"required,len=3,lowercase"`
	PaymentMethodType string        `validate:"required"`
	RequestTimeout    time.Duration `validate:"gt=0"`
	SessionTTL        time.Duration `validate:"gt=0"`
	StripeAPIURL      string        `validate:"omitempty,url"` // stripe-mock or a proxy
	StripeMaxRetries  int64         `validate:"gte=0"`
	SNSTopicARN       string        // optional, publishes checkout events when set
	OTLPEndpoint      string        // optional, enables tracing when set
	CORSOrigins       []string      `validate:"dive,url"` // origins allowed to read the messages API
}

// LoadConfig reads .env (if present) and the environment.
func LoadConfig() (*Config, error) {
	// A missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	requestTimeout, err := getDuration("CHECKOUT_REQUEST_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}
	sessionTTL, err := getDuration("CHECKOUT_SESSION_TTL", 30*time.Minute)
	if err != nil {
		return nil, err
	}
	var retries int64
	if v := os.Getenv("STRIPE_MAX_NETWORK_RETRIES"); v != "" {
		if retries, err = strconv.ParseInt(v, 10, 64); err != nil {
			return nil, fmt.Errorf("invalid STRIPE_MAX_NETWORK_RETRIES %q: %w", v, err)
		}
	}

	cfg := &Config{
		Port:              getEnv("PORT", "4243"),
		Environment:       getEnv("APP_ENV", "development"),
		ServerURL:         strings.TrimSuffix(getEnv("CHECKOUT_SERVER_URL", "http://localhost:4242"), "/"),
		Currency:          getEnv("CHECKOUT_CURRENCY", "eur"),
		PaymentMethodType: getEnv("CHECKOUT_PAYMENT_METHOD_TYPE", "card"),
		RequestTimeout:    requestTimeout,
		SessionTTL:        sessionTTL,
		StripeAPIURL:      os.Getenv("STRIPE_API_URL"),
		StripeMaxRetries:  retries,
		SNSTopicARN:       os.Getenv("CHECKOUT_SNS_TOPIC_ARN"),
		OTLPEndpoint:      os.Getenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT"),
		CORSOrigins:       getList("CHECKOUT_CORS_ORIGINS"),
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, val, err)
	}
	return d, nil
}

func getList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
