package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"

	go_storefront "github.com/merchkit/go-storefront"
	"github.com/merchkit/go-storefront/currency"
	"github.com/merchkit/go-storefront/identity"
)

// Config holds all configuration for a storefront application
type Config struct {
	API  APIConfig  `mapstructure:"api"`
	Cart CartConfig `mapstructure:"cart"`

	// Redis is optional; when Host is empty the cart identity lives in a
	// local file (or memory when that is empty too).
	Redis RedisConfig `mapstructure:"redis"`
}

// APIConfig holds commerce API connection settings
type APIConfig struct {
	BaseURL              string `mapstructure:"base_url"`
	AccessToken          string `mapstructure:"access_token"`
	Timeout              int    `mapstructure:"timeout"`
	MaxRetries           int    `mapstructure:"max_retries"`
	RetryWaitMS          int    `mapstructure:"retry_wait_ms"`
	MaxRequestsPerSecond int    `mapstructure:"max_requests_per_second"`
	LogHTTPBodies        bool   `mapstructure:"log_http_bodies"`
}

// CartConfig holds shopper-session behavior settings
type CartConfig struct {
	Currency     string `mapstructure:"currency"`
	DebounceMS   int    `mapstructure:"debounce_ms"`
	IdentityFile string `mapstructure:"identity_file"`
}

// RedisConfig holds Redis connection details for shared identity storage
type RedisConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Password   string `mapstructure:"password"`
	Database   int    `mapstructure:"database"`
	SessionKey string `mapstructure:"session_key"`
}

// Load loads configuration from YAML file with environment variable overrides
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	setDefaults()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Missing file is fine: defaults plus env cover the minimum.
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if config.API.AccessToken == "" {
		return nil, fmt.Errorf("api.access_token is required (config.yaml or API_ACCESS_TOKEN)")
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("api.base_url", "")
	viper.SetDefault("api.access_token", "")
	viper.SetDefault("api.timeout", 30)
	viper.SetDefault("api.max_retries", 3)
	viper.SetDefault("api.retry_wait_ms", 500)
	viper.SetDefault("api.max_requests_per_second", 0)
	viper.SetDefault("api.log_http_bodies", false)

	viper.SetDefault("cart.currency", "USD")
	viper.SetDefault("cart.debounce_ms", 500)
	viper.SetDefault("cart.identity_file", "")

	viper.SetDefault("redis.host", "")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.database", 0)
	viper.SetDefault("redis.session_key", "")
}

// ClientOptions translates the API section into client options.
func (c *Config) ClientOptions() []go_storefront.Option {
	opts := []go_storefront.Option{
		go_storefront.WithAccessToken(c.API.AccessToken),
		go_storefront.WithTimeout(time.Duration(c.API.Timeout) * time.Second),
		go_storefront.WithRetry(c.API.MaxRetries, time.Duration(c.API.RetryWaitMS)*time.Millisecond),
	}
	if c.API.BaseURL != "" {
		opts = append(opts, go_storefront.WithBaseURL(c.API.BaseURL))
	}
	if c.API.MaxRequestsPerSecond > 0 {
		opts = append(opts, go_storefront.WithRateLimit(c.API.MaxRequestsPerSecond))
	}
	if c.API.LogHTTPBodies {
		opts = append(opts, go_storefront.WithLogHTTPBodies(true))
	}
	return opts
}

// SessionOptions translates the cart and redis sections into session
// options, picking the identity store by what is configured: Redis wins
// over a local file, and with neither the id stays in memory.
func (c *Config) SessionOptions() []go_storefront.SessionOption {
	opts := []go_storefront.SessionOption{
		go_storefront.WithDebounceDelay(time.Duration(c.Cart.DebounceMS) * time.Millisecond),
		go_storefront.WithCurrencyContext(currency.NewContext(c.Cart.Currency)),
	}

	switch {
	case c.Redis.Host != "":
		rdb := redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port),
			Password: c.Redis.Password,
			DB:       c.Redis.Database,
		})
		opts = append(opts, go_storefront.WithIdentityStore(identity.NewRedis(rdb, c.Redis.SessionKey)))
	case c.Cart.IdentityFile != "":
		opts = append(opts, go_storefront.WithIdentityStore(identity.NewFile(c.Cart.IdentityFile)))
	}

	return opts
}
