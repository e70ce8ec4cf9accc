package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLoaderConfig(files ...string) aconfig.Config {
	return aconfig.Config{
		EnvPrefix:        "CHECKOUT",
		SkipFlags:        true,
		AllowUnknownEnvs: true,
		Files:            files,
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	}
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("CHECKOUT_DATABASE_URL", "postgres://localhost/checkout")
	t.Setenv("CHECKOUT_PAYMENT_URL", "http://payments:8080")
	t.Setenv("CHECKOUT_CURRENCY_SYMBOL", "€")
	t.Setenv("CHECKOUT_PAYMENT_TIMEOUT", "2s")

	cfg, err := loadConfig(testLoaderConfig())
	require.NoError(t, err)

	assert.Equal(t, defaultAddr, cfg.Addr)
	assert.Equal(t, "postgres://localhost/checkout", cfg.DatabaseURL)
	assert.Equal(t, "http://payments:8080", cfg.Payment.URL)
	assert.Equal(t, 2*time.Second, cfg.Payment.Timeout)
	assert.EqualValues(t, 5, cfg.Payment.MaxFailures)
	assert.Equal(t, "€", cfg.Currency.Symbol)
	assert.Equal(t, 100, cfg.RateLimit.Max)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Empty(t, cfg.RateLimit.TrustedProxies)
	assert.Equal(t, "orders@kart.example", cfg.Mail.From)
	assert.Empty(t, cfg.Mail.SendGridAPIKey)
}

func TestLoadConfig_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database_url: postgres://db/checkout
payment:
  url: http://pay
  max_failures: 3
mail:
  from: billing@kart.example
`), 0o600))

	cfg, err := loadConfig(testLoaderConfig(path))
	require.NoError(t, err)

	assert.Equal(t, "postgres://db/checkout", cfg.DatabaseURL)
	assert.Equal(t, "http://pay", cfg.Payment.URL)
	assert.EqualValues(t, 3, cfg.Payment.MaxFailures)
	assert.Equal(t, "billing@kart.example", cfg.Mail.From)
	assert.Equal(t, "$", cfg.Currency.Symbol)
}

func TestLoadConfig_PlatformDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://platform/db")
	t.Setenv("PORT", "9000")
	t.Setenv("CHECKOUT_PAYMENT_URL", "http://pay")

	cfg, err := loadConfig(testLoaderConfig())
	require.NoError(t, err)
	assert.Equal(t, "postgres://platform/db", cfg.DatabaseURL)
	assert.Equal(t, "0.0.0.0:9000", cfg.Addr)
}

func TestLoadConfig_Required(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("PORT", "")

	_, err := loadConfig(testLoaderConfig())
	require.ErrorContains(t, err, "database URL is required")

	t.Setenv("CHECKOUT_DATABASE_URL", "postgres://localhost/checkout")
	_, err = loadConfig(testLoaderConfig())
	require.ErrorContains(t, err, "payment gateway URL is required")
}
