package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment string
	Server      ServerConfig
	Logging     LoggingConfig
	Redis       RedisConfig
	Kafka       KafkaConfig
	RateLimits  map[string]RateLimitConfig
}

type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type LoggingConfig struct {
	Level  string
	Format string
}

// RedisConfig carries connection details for the shared counter store.
// An empty URL is valid configuration: the service then runs on local
// counters only.
type RedisConfig struct {
	URL      string
	DB       int
	PoolSize int
	Timeout  time.Duration
}

// KafkaConfig carries connection details for the throttle audit stream.
// Empty brokers disable publishing.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type RateLimitConfig struct {
	Limit  int
	Window time.Duration
}

// Default admission policies per request category. Orders of magnitude
// apart on purpose: five login attempts per minute is generous, five
// public reads per minute would be unusable.
var defaultRateLimits = map[string]RateLimitConfig{
	"login":            {Limit: 5, Window: time.Minute},
	"credential_reset": {Limit: 3, Window: 15 * time.Minute},
	"api":              {Limit: 100, Window: time.Minute},
	"admin":            {Limit: 30, Window: time.Minute},
	"public":           {Limit: 300, Window: time.Minute},
}

// LoadConfig reads configuration from the environment, with an optional
// .env file for local development. Policy values are validated here so a
// misconfigured limit fails the process at startup, never at request time.
func LoadConfig() (*Config, error) {
	// Ignore a missing .env; the environment itself is authoritative.
	_ = godotenv.Load()

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Port:         getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:  getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Redis: RedisConfig{
			URL:      os.Getenv("REDIS_URL"),
			DB:       getEnvInt("REDIS_DB", 0),
			PoolSize: getEnvInt("REDIS_POOL_SIZE", 50),
			Timeout:  getEnvDuration("REDIS_TIMEOUT", 2*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(os.Getenv("KAFKA_BROKERS")),
			Topic:   getEnv("KAFKA_AUDIT_TOPIC", "throttle-events"),
		},
		RateLimits: make(map[string]RateLimitConfig, len(defaultRateLimits)),
	}

	for category, def := range defaultRateLimits {
		upper := strings.ToUpper(category)
		cfg.RateLimits[category] = RateLimitConfig{
			Limit:  getEnvInt("RATE_LIMIT_"+upper, def.Limit),
			Window: getEnvDuration("RATE_WINDOW_"+upper, def.Window),
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid SERVER_PORT: %d", c.Server.Port)
	}
	if c.Redis.Timeout <= 0 {
		return fmt.Errorf("REDIS_TIMEOUT must be positive, got %s", c.Redis.Timeout)
	}
	for category, rl := range c.RateLimits {
		if rl.Limit <= 0 {
			return fmt.Errorf("rate limit for %q must be positive, got %d", category, rl.Limit)
		}
		if rl.Window <= 0 {
			return fmt.Errorf("rate window for %q must be positive, got %s", category, rl.Window)
		}
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) GetServerAddress() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

// RedisEnabled reports whether a shared counter store was configured at
// all. Absence is not an error; it selects local-only mode.
func (c *Config) RedisEnabled() bool {
	return strings.TrimSpace(c.Redis.URL) != ""
}

func (c *Config) KafkaEnabled() bool {
	return len(c.Kafka.Brokers) > 0
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return i
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}

func splitList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
