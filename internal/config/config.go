// Package config loads process settings from the environment and an
// optional config file. Environment variables win over the file.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/SN7k/Flexova/internal/domain"
	"github.com/spf13/viper"
)

type Config struct {
	HTTPPort          string        `mapstructure:"http_port"`
	MongoURI          string        `mapstructure:"mongo_uri"`
	MongoDBName       string        `mapstructure:"mongo_db_name"`
	RedisAddr         string        `mapstructure:"redis_addr"`
	RedisPassword     string        `mapstructure:"redis_password"`
	KafkaBrokers      []string      `mapstructure:"kafka_brokers"`
	CheckoutTopic     string        `mapstructure:"checkout_topic"`
	JWTSecret         string        `mapstructure:"jwt_secret"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
	CartSaveAttempts  int           `mapstructure:"cart_save_attempts"`
	ShippingFlatMinor int64         `mapstructure:"shipping_flat_minor"`
	TaxRateBPS        int64         `mapstructure:"tax_rate_bps"`
	LogLevel          string        `mapstructure:"log_level"`
	CacheTTL          time.Duration `mapstructure:"cache_ttl"`
}

// ClientConfig configures cartctl.
type ClientConfig struct {
	APIURL         string `mapstructure:"api_url"`
	APIToken       string `mapstructure:"api_token"`
	LocalCachePath string `mapstructure:"local_cache_path"`
	LogLevel       string `mapstructure:"log_level"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http_port", "8080")
	v.SetDefault("mongo_uri", "mongodb://localhost:27017")
	v.SetDefault("mongo_db_name", "flexova")
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_password", "")
	v.SetDefault("kafka_brokers", []string{})
	v.SetDefault("checkout_topic", "checkout-outbox")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("request_timeout", 30*time.Second)
	v.SetDefault("shutdown_timeout", 10*time.Second)
	v.SetDefault("cart_save_attempts", 3)
	v.SetDefault("shipping_flat_minor", int64(domain.DefaultPricingPolicy.FlatShipping))
	v.SetDefault("tax_rate_bps", domain.DefaultPricingPolicy.TaxRateBPS)
	v.SetDefault("log_level", "info")
	v.SetDefault("cache_ttl", 15*time.Minute)
}

func setClientDefaults(v *viper.Viper) {
	v.SetDefault("api_url", "http://localhost:8080")
	v.SetDefault("api_token", "")
	v.SetDefault("local_cache_path", "flexova-cart.db")
	v.SetDefault("log_level", "warn")
}

// Load reads the server configuration. path may be empty.
func Load(path string) (*Config, error) {
	v, err := newViper(path, setDefaults)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// LoadClient reads the cartctl configuration. path may be empty.
func LoadClient(path string) (*ClientConfig, error) {
	v, err := newViper(path, setClientDefaults)
	if err != nil {
		return nil, err
	}

	var cfg ClientConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

func newViper(path string, defaults func(*viper.Viper)) (*viper.Viper, error) {
	v := viper.New()
	defaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.AutomaticEnv()
	return v, nil
}

func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return errors.New("HTTP_PORT is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.CartSaveAttempts < 1 {
		return fmt.Errorf("invalid CART_SAVE_ATTEMPTS: %d", c.CartSaveAttempts)
	}
	if c.TaxRateBPS < 0 || c.ShippingFlatMinor < 0 {
		return errors.New("pricing settings must not be negative")
	}
	return nil
}

func (c *Config) PricingPolicy() domain.PricingPolicy {
	return domain.PricingPolicy{
		FlatShipping: domain.Money(c.ShippingFlatMinor),
		TaxRateBPS:   c.TaxRateBPS,
	}
}
