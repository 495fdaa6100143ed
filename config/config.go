package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig     `mapstructure:"server"`
	Database    DatabaseConfig   `mapstructure:"database"`
	Redis       RedisConfig      `mapstructure:"redis"`
	Storage     StorageConfig    `mapstructure:"storage"`
	Log         LogConfig        `mapstructure:"log"`
	Fulfillment DependencyConfig `mapstructure:"fulfillment"`
	Marketplace DependencyConfig `mapstructure:"marketplace"`
	Retry       RetryConfig      `mapstructure:"retry"`
	Pipeline    PipelineConfig   `mapstructure:"pipeline"`
	Catalog     CatalogConfig    `mapstructure:"catalog"`
	Webhooks    WebhookConfig    `mapstructure:"webhooks"`
	Tracking    TrackingConfig   `mapstructure:"tracking"`
	Metrics     MetricsConfig    `mapstructure:"metrics"`
	Telemetry   TelemetryConfig  `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // debug, release, test
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
	RateLimit       int           `mapstructure:"rate_limit"` // inbound requests per window per client
	RateLimitWindow time.Duration `mapstructure:"rate_limit_window"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// StorageConfig selects the sync record backend.
type StorageConfig struct {
	Driver string `mapstructure:"driver"` // postgres, memory
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// DependencyConfig describes one outbound integration and the resilience
// settings guarding it.
type DependencyConfig struct {
	BaseURL   string          `mapstructure:"base_url"`
	APIKey    string          `mapstructure:"api_key"`
	Timeout   time.Duration   `mapstructure:"timeout"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Breaker   BreakerConfig   `mapstructure:"breaker"`
}

// RateLimitConfig is a token bucket: Rate tokens per second, Burst capacity.
type RateLimitConfig struct {
	Rate    float64       `mapstructure:"rate"`
	Burst   int           `mapstructure:"burst"`
	MaxWait time.Duration `mapstructure:"max_wait"`
}

type BreakerConfig struct {
	FailureThreshold  int           `mapstructure:"failure_threshold"`
	Window            time.Duration `mapstructure:"window"`
	Cooldown          time.Duration `mapstructure:"cooldown"`
	HalfOpenMaxProbes int           `mapstructure:"half_open_max_probes"`
	SuccessThreshold  int           `mapstructure:"success_threshold"`
}

type RetryConfig struct {
	MaxAttempts         int           `mapstructure:"max_attempts"`
	InitialInterval     time.Duration `mapstructure:"initial_interval"`
	MaxInterval         time.Duration `mapstructure:"max_interval"`
	Multiplier          float64       `mapstructure:"multiplier"`
	RandomizationFactor float64       `mapstructure:"randomization_factor"`
}

type PipelineConfig struct {
	ShippingSpeed         string        `mapstructure:"shipping_speed"`
	AcceptedCurrencies    []string      `mapstructure:"accepted_currencies"`
	InventoryLowThreshold int           `mapstructure:"inventory_low_threshold"`
	LockTTL               time.Duration `mapstructure:"lock_ttl"`
}

// CatalogItem maps a marketplace SKU onto the provider's SKU.
type CatalogItem struct {
	SKU         string `mapstructure:"sku"`
	ProviderSKU string `mapstructure:"provider_sku"`
}

type CatalogConfig struct {
	Items []CatalogItem `mapstructure:"items"`
}

// SKUMap returns the catalog as a marketplace SKU to provider SKU map.
func (c CatalogConfig) SKUMap() map[string]string {
	m := make(map[string]string, len(c.Items))
	for _, it := range c.Items {
		m[it.SKU] = it.ProviderSKU
	}
	return m
}

type SubscriberConfig struct {
	URL    string   `mapstructure:"url"`
	Secret string   `mapstructure:"secret"`
	Events []string `mapstructure:"events"`
}

type WebhookConfig struct {
	Workers        int                `mapstructure:"workers"`
	QueueSize      int                `mapstructure:"queue_size"`
	Timeout        time.Duration      `mapstructure:"timeout"`
	RetryIntervals []time.Duration    `mapstructure:"retry_intervals"`
	Subscribers    []SubscriberConfig `mapstructure:"subscribers"`
}

type TrackingConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	BatchSize    int           `mapstructure:"batch_size"`
}

type MetricsConfig struct {
	SampleCapacity     int           `mapstructure:"sample_capacity"`
	ErrorRateWindow    time.Duration `mapstructure:"error_rate_window"`
	DegradedErrorRate  float64       `mapstructure:"degraded_error_rate"`
	UnhealthyErrorRate float64       `mapstructure:"unhealthy_error_rate"`
}

type TelemetryConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ServiceName string `mapstructure:"service_name"`
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: OSG_ (Order Sync Gateway).
// Nested keys use underscore: OSG_FULFILLMENT_BASE_URL, OSG_RETRY_MAX_ATTEMPTS, etc.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: OSG_DATABASE_HOST -> database.host
	v.SetEnvPrefix("OSG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required, env vars can suffice)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.request_timeout", "30s")
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("server.rate_limit", 300)
	v.SetDefault("server.rate_limit_window", "1m")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "order_sync")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("storage.driver", "postgres")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	for _, dep := range []string{"fulfillment", "marketplace"} {
		v.SetDefault(dep+".base_url", "")
		v.SetDefault(dep+".api_key", "")
		v.SetDefault(dep+".timeout", "10s")
		v.SetDefault(dep+".rate_limit.rate", 5.0)
		v.SetDefault(dep+".rate_limit.burst", 10)
		v.SetDefault(dep+".rate_limit.max_wait", "5s")
		v.SetDefault(dep+".breaker.failure_threshold", 5)
		v.SetDefault(dep+".breaker.window", "1m")
		v.SetDefault(dep+".breaker.cooldown", "30s")
		v.SetDefault(dep+".breaker.half_open_max_probes", 1)
		v.SetDefault(dep+".breaker.success_threshold", 2)
	}

	v.SetDefault("retry.max_attempts", 5)
	v.SetDefault("retry.initial_interval", "500ms")
	v.SetDefault("retry.max_interval", "10s")
	v.SetDefault("retry.multiplier", 2.0)
	v.SetDefault("retry.randomization_factor", 0.5)
	v.SetDefault("pipeline.shipping_speed", "Standard")
	v.SetDefault("pipeline.accepted_currencies", []string{"USD"})
	v.SetDefault("pipeline.inventory_low_threshold", 10)
	v.SetDefault("pipeline.lock_ttl", "2m")
	v.SetDefault("webhooks.workers", 4)
	v.SetDefault("webhooks.queue_size", 256)
	v.SetDefault("webhooks.timeout", "10s")
	v.SetDefault("webhooks.retry_intervals", []time.Duration{time.Second, 5 * time.Second, 30 * time.Second})
	v.SetDefault("tracking.enabled", true)
	v.SetDefault("tracking.poll_interval", "1m")
	v.SetDefault("tracking.batch_size", 50)
	v.SetDefault("metrics.sample_capacity", 100)
	v.SetDefault("metrics.error_rate_window", "5m")
	v.SetDefault("metrics.degraded_error_rate", 0.1)
	v.SetDefault("metrics.unhealthy_error_rate", 0.5)
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "order-sync-gateway")
}

// Validate rejects settings the gateway cannot run with.
func (c *Config) Validate() error {
	var errs []error

	switch c.Storage.Driver {
	case "postgres", "memory":
	default:
		errs = append(errs, fmt.Errorf("storage.driver: unsupported driver %q", c.Storage.Driver))
	}

	for name, dep := range map[string]DependencyConfig{"fulfillment": c.Fulfillment, "marketplace": c.Marketplace} {
		if dep.RateLimit.Rate <= 0 || dep.RateLimit.Burst <= 0 {
			errs = append(errs, fmt.Errorf("%s.rate_limit: rate and burst must be positive", name))
		}
		if dep.Breaker.FailureThreshold <= 0 || dep.Breaker.HalfOpenMaxProbes <= 0 || dep.Breaker.SuccessThreshold <= 0 {
			errs = append(errs, fmt.Errorf("%s.breaker: thresholds must be positive", name))
		}
		if dep.Breaker.Window <= 0 || dep.Breaker.Cooldown <= 0 {
			errs = append(errs, fmt.Errorf("%s.breaker: window and cooldown must be positive", name))
		}
	}

	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, errors.New("retry.max_attempts must be at least 1"))
	}
	if c.Retry.Multiplier < 1 {
		errs = append(errs, errors.New("retry.multiplier must be >= 1"))
	}
	if c.Retry.RandomizationFactor < 0 || c.Retry.RandomizationFactor > 1 {
		errs = append(errs, errors.New("retry.randomization_factor must be within [0,1]"))
	}
	if c.Metrics.SampleCapacity < 1 {
		errs = append(errs, errors.New("metrics.sample_capacity must be at least 1"))
	}
	if c.Webhooks.Workers < 1 || c.Webhooks.QueueSize < 1 {
		errs = append(errs, errors.New("webhooks.workers and webhooks.queue_size must be positive"))
	}

	seen := make(map[string]bool, len(c.Catalog.Items))
	for _, it := range c.Catalog.Items {
		if it.SKU == "" || it.ProviderSKU == "" {
			errs = append(errs, errors.New("catalog.items: sku and provider_sku are required"))
			continue
		}
		if seen[it.SKU] {
			errs = append(errs, fmt.Errorf("catalog.items: duplicate sku %q", it.SKU))
		}
		seen[it.SKU] = true
	}

	return errors.Join(errs...)
}
