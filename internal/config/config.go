package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName        string
	AppEnv         string
	AppPort        string
	BodyLimitMB    int
	DatabaseDriver string
	DatabaseURL    string
	RedisURL       string
	CacheTTL       time.Duration
	NATSURL        string
	ChatChannel    string
	ChatRateLimit  int
	StaticDir      string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// BodyLimitBytes converts the configured request body limit to bytes.
func (c Config) BodyLimitBytes() int {
	if c.BodyLimitMB <= 0 {
		return 10 * 1024 * 1024
	}
	return c.BodyLimitMB * 1024 * 1024
}

// ClientConfig holds settings for the terminal board client.
type ClientConfig struct {
	BaseURL       string
	PollInterval  time.Duration
	StatePath     string
	Transport     string
	CacheVersion  string
	CacheRedisURL string
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	v := newViper()

	v.SetDefault("app.name", "Lost & Found API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "3001")
	v.SetDefault("app.body_limit_mb", 10)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.url", "file:lostfound.db?cache=shared")
	v.SetDefault("cache.ttl", "5s")
	v.SetDefault("chat.channel", "lostfound")
	v.SetDefault("chat.rate_limit", 30)
	v.SetDefault("static.dir", "./public")

	ttl, err := parseDuration(v, "cache.ttl", 5*time.Second)
	if err != nil {
		return Config{}, fmt.Errorf("invalid cache ttl: %w", err)
	}

	cfg := Config{
		AppName:        v.GetString("app.name"),
		AppEnv:         v.GetString("app.env"),
		AppPort:        v.GetString("app.port"),
		BodyLimitMB:    v.GetInt("app.body_limit_mb"),
		DatabaseDriver: strings.ToLower(strings.TrimSpace(v.GetString("database.driver"))),
		DatabaseURL:    v.GetString("database.url"),
		RedisURL:       v.GetString("redis.url"),
		CacheTTL:       ttl,
		NATSURL:        v.GetString("nats.url"),
		ChatChannel:    v.GetString("chat.channel"),
		ChatRateLimit:  v.GetInt("chat.rate_limit"),
		StaticDir:      v.GetString("static.dir"),
	}

	switch cfg.DatabaseDriver {
	case "postgres", "sqlite":
	default:
		return Config{}, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("database url must be provided")
	}

	if cfg.BodyLimitMB <= 0 {
		cfg.BodyLimitMB = 10
	}

	if cfg.ChatRateLimit <= 0 {
		cfg.ChatRateLimit = 30
	}

	return cfg, nil
}

// LoadClient reads the board client configuration.
func LoadClient() (ClientConfig, error) {
	v := newViper()

	v.SetDefault("client.base_url", "http://localhost:3001")
	v.SetDefault("client.poll_interval", "5s")
	v.SetDefault("client.state_path", "boardctl.db")
	v.SetDefault("client.transport", "poll")
	v.SetDefault("client.cache_version", "v1.0.0")

	interval, err := parseDuration(v, "client.poll_interval", 5*time.Second)
	if err != nil {
		return ClientConfig{}, fmt.Errorf("invalid poll interval: %w", err)
	}

	cfg := ClientConfig{
		BaseURL:       strings.TrimRight(v.GetString("client.base_url"), "/"),
		PollInterval:  interval,
		StatePath:     v.GetString("client.state_path"),
		Transport:     strings.ToLower(v.GetString("client.transport")),
		CacheVersion:  v.GetString("client.cache_version"),
		CacheRedisURL: v.GetString("client.cache_redis_url"),
	}

	if cfg.Transport != "poll" && cfg.Transport != "ws" {
		return ClientConfig{}, fmt.Errorf("unsupported client transport %q", cfg.Transport)
	}

	return cfg, nil
}

func newViper() *viper.Viper {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("LOSTFOUND")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}

func parseDuration(v *viper.Viper, key string, fallback time.Duration) (time.Duration, error) {
	raw := v.GetString(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return fallback, nil
	}
	return d, nil
}
