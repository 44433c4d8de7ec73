package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/SN7k/Flexova/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "flexova", cfg.MongoDBName)
	assert.Equal(t, "checkout-outbox", cfg.CheckoutTopic)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 3, cfg.CartSaveAttempts)
	assert.Equal(t, 15*time.Minute, cfg.CacheTTL)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, domain.DefaultPricingPolicy, cfg.PricingPolicy())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("REQUEST_TIMEOUT", "5s")
	t.Setenv("CART_SAVE_ATTEMPTS", "7")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("TAX_RATE_BPS", "500")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.HTTPPort)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 7, cfg.CartSaveAttempts)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, int64(500), cfg.PricingPolicy().TaxRateBPS)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flexova.yaml")
	require.NoError(t, os.WriteFile(path, []byte("jwt_secret: from-file\nmongo_db_name: shop\nhttp_port: \"7000\"\n"), 0o600))
	t.Setenv("HTTP_PORT", "7100")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.JWTSecret)
	assert.Equal(t, "shop", cfg.MongoDBName)
	assert.Equal(t, "7100", cfg.HTTPPort, "env wins over file")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_Validation(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := Load("")
	assert.ErrorContains(t, err, "JWT_SECRET")

	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("CART_SAVE_ATTEMPTS", "0")
	_, err = Load("")
	assert.ErrorContains(t, err, "CART_SAVE_ATTEMPTS")
}

func TestLoadClient(t *testing.T) {
	t.Setenv("API_URL", "https://shop.example")
	t.Setenv("API_TOKEN", "tok")

	cfg, err := LoadClient("")
	require.NoError(t, err)
	assert.Equal(t, "https://shop.example", cfg.APIURL)
	assert.Equal(t, "tok", cfg.APIToken)
	assert.Equal(t, "flexova-cart.db", cfg.LocalCachePath)
}
