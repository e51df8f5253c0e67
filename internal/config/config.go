// Package config loads the gateway configuration from an optional YAML file,
// a .env file and the process environment, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/chatgate/obo-identity/core"
)

// Session store kinds.
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

// Config represents the complete gateway configuration
type Config struct {
	Auth       AuthConfig       `yaml:"auth"`
	Server     ServerConfig     `yaml:"server"`
	Session    SessionConfig    `yaml:"session"`
	Log        LogConfig        `yaml:"log"`
	Downstream DownstreamConfig `yaml:"downstream"`
}

// AuthConfig selects the deployment mode.
type AuthConfig struct {
	// EnablePasswordAuth switches to static-secret mode with password logins.
	EnablePasswordAuth bool `yaml:"enable_password_auth"`
	// EnableHeaderAuth enables the proxy header login. It has no effect while
	// EnablePasswordAuth is set.
	EnableHeaderAuth bool `yaml:"enable_header_auth"`
	// PAT is the static secret served in static-secret mode.
	PAT            string            `yaml:"pat"`
	Users          []core.Credential `yaml:"users"`
	TrustedProxies []string          `yaml:"trusted_proxies"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	ListenAddr      string        `yaml:"listen_addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// CookieSecure marks the session cookie Secure. Disable only for local
	// plain-HTTP development.
	CookieSecure bool `yaml:"cookie_secure"`
}

// SessionConfig selects and configures the session store.
type SessionConfig struct {
	Store         string        `yaml:"store"`
	TTL           time.Duration `yaml:"ttl"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	DatabaseURL   string        `yaml:"database_url"`
	Table         string        `yaml:"table"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or text
}

// DownstreamConfig locates the agent endpoint called on the user's behalf.
type DownstreamConfig struct {
	URL      string        `yaml:"url"`
	Endpoint string        `yaml:"endpoint"`
	Timeout  time.Duration `yaml:"timeout"`
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr:      ":8080",
			ReadTimeout:     30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			CookieSecure:    true,
		},
		Session: SessionConfig{
			Store: StoreMemory,
			TTL:   12 * time.Hour,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Downstream: DownstreamConfig{
			Timeout: 180 * time.Second,
		},
	}
}

// Load reads path (skipped when empty), then .env in the working directory,
// then the environment, and validates the result.
func Load(path string) (*Config, error) {
	return load(path, ".env")
}

func load(path, envFile string) (*Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	var err error
	if c.Auth.EnablePasswordAuth, err = envBool("ENABLE_PASSWORD_AUTH", c.Auth.EnablePasswordAuth); err != nil {
		return err
	}
	if c.Auth.EnableHeaderAuth, err = envBool("ENABLE_HEADER_AUTH", c.Auth.EnableHeaderAuth); err != nil {
		return err
	}
	c.Auth.PAT = envString("PAT", c.Auth.PAT)
	if v, ok := os.LookupEnv("TRUSTED_PROXIES"); ok {
		c.Auth.TrustedProxies = splitList(v)
	}

	c.Server.ListenAddr = envString("LISTEN_ADDR", c.Server.ListenAddr)
	if c.Server.CookieSecure, err = envBool("COOKIE_SECURE", c.Server.CookieSecure); err != nil {
		return err
	}

	c.Session.Store = envString("SESSION_STORE", c.Session.Store)
	c.Session.RedisAddr = envString("REDIS_ADDR", c.Session.RedisAddr)
	c.Session.RedisPassword = envString("REDIS_PASSWORD", c.Session.RedisPassword)
	c.Session.DatabaseURL = envString("DATABASE_URL", c.Session.DatabaseURL)
	if c.Session.TTL, err = envDuration("SESSION_TTL", c.Session.TTL); err != nil {
		return err
	}

	c.Log.Level = envString("LOG_LEVEL", c.Log.Level)
	c.Log.Format = envString("LOG_FORMAT", c.Log.Format)

	c.Downstream.URL = envString("DOWNSTREAM_URL", c.Downstream.URL)
	c.Downstream.Endpoint = envString("DOWNSTREAM_ENDPOINT", c.Downstream.Endpoint)
	return nil
}

// Validate checks the configuration for contradictions and missing values.
func (c *Config) Validate() error {
	if !c.Auth.EnablePasswordAuth && !c.Auth.EnableHeaderAuth {
		return errors.New("no login method enabled: set enable_password_auth or enable_header_auth")
	}
	if c.Auth.EnablePasswordAuth && len(c.Auth.Users) == 0 {
		return errors.New("password auth requires at least one user")
	}

	switch c.Session.Store {
	case StoreMemory:
	case StoreRedis:
		if c.Session.RedisAddr == "" {
			return errors.New("redis session store requires redis_addr")
		}
	case StorePostgres:
		if c.Session.DatabaseURL == "" {
			return errors.New("postgres session store requires database_url")
		}
	default:
		return fmt.Errorf("unknown session store %q", c.Session.Store)
	}
	if c.Session.TTL < 0 {
		return errors.New("session ttl cannot be negative")
	}

	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}

	if (c.Downstream.URL == "") != (c.Downstream.Endpoint == "") {
		return errors.New("downstream url and endpoint must be set together")
	}
	return nil
}

// HeaderAuthActive reports whether the header login is registered. Password
// auth takes precedence.
func (c *Config) HeaderAuthActive() bool {
	return c.Auth.EnableHeaderAuth && !c.Auth.EnablePasswordAuth
}

func envString(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func envBool(key string, fallback bool) (bool, error) {
	valueStr, ok := os.LookupEnv(key)
	if !ok || valueStr == "" {
		return fallback, nil
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return value, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	valueStr, ok := os.LookupEnv(key)
	if !ok || valueStr == "" {
		return fallback, nil
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return value, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
