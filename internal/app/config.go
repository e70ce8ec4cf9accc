package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (CHECKOUT_ prefix), flags, or YAML config files.
type Config struct {
	Addr         string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL  string `usage:"PostgreSQL connection URL (CHECKOUT_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	APIKeyPepper string `usage:"HMAC pepper for API keys; empty disables api_key auth" flag:"api-key-pepper"`
	Currency     CurrencyConfig
	Payment      PaymentConfig
	Mail         MailConfig
	RateLimit    RateLimitConfig
	CORS         CORSConfig
	Graceful     GracefulConfig
}

// CurrencyConfig controls how amounts are rendered in notifications.
type CurrencyConfig struct {
	Symbol string `default:"$" usage:"Currency symbol prefixed to notification amounts"`
}

// PaymentConfig points at the payment gateway.
type PaymentConfig struct {
	URL         string        `usage:"Payment gateway base URL" flag:"payment-url"`
	Timeout     time.Duration `default:"10s" usage:"Per-charge timeout"`
	MaxFailures uint32        `default:"5"   usage:"Consecutive failures that open the circuit breaker"`
	OpenTimeout time.Duration `default:"30s" usage:"How long the breaker stays open"`
}

// MailConfig selects the notifier. Without a SendGrid key notifications are
// only logged.
type MailConfig struct {
	SendGridAPIKey string `usage:"SendGrid API key" flag:"sendgrid-api-key"`
	SendGridHost   string `usage:"SendGrid API host override"`
	From           string `default:"orders@kart.example" usage:"Sender address"`
	FromName       string `default:"Kart" usage:"Sender display name"`
}

// RateLimitConfig controls the per-client token bucket.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Requests a client may burst"`
	Window time.Duration `default:"1m"  usage:"Time for an empty bucket to refill"`
	// TrustedProxies are CIDRs or addresses whose forwarding headers identify
	// the client. Empty means clients are keyed by their socket address.
	TrustedProxies []string `usage:"Proxies allowed to set X-Forwarded-For" flag:"trusted-proxies"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables and YAML config
// files, then applies platform defaults.
func LoadConfig() (*Config, error) {
	return loadConfig(aconfig.Config{
		EnvPrefix: "CHECKOUT",
		Files:     []string{"config.yaml", "/etc/checkout/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
}

func loadConfig(ac aconfig.Config) (*Config, error) {
	var cfg Config
	if err := aconfig.LoaderFor(&cfg, ac).Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyPlatformDefaults maps the standard DATABASE_URL and PORT variables set
// by hosting platforms onto the CHECKOUT_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return errors.New("database URL is required: set CHECKOUT_DATABASE_URL or DATABASE_URL")
	}
	if c.Payment.URL == "" {
		return errors.New("payment gateway URL is required: set CHECKOUT_PAYMENT_URL")
	}
	return nil
}
