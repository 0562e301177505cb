package internal

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"path/filepath"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// KV drivers.
const (
	KVDriverSQLite = "sqlite"
	KVDriverRedis  = "redis"
)

// Config represents the application configuration.
type Config struct {
	App  ApplicationConfig `yaml:"app"`
	Data DataConfig        `yaml:"data"`
	KV   KVConfig          `yaml:"kv"`
	Auth AuthConfig        `yaml:"auth"`
	SSE  SSEConfig         `yaml:"sse"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Data.Validate(); err != nil {
		return err
	}
	if err := c.KV.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if !c.Auth.AuthEnabled() && !c.App.HTTP.Loopback() {
		return fmt.Errorf("auth: mode %q requires a loopback http host, got %q", AuthModeDisabled, c.App.HTTP.Host)
	}
	return c.SSE.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
//
// An empty Host listens on every interface.
type HTTPConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Loopback reports whether Host only accepts local connections.
func (c *HTTPConfig) Loopback() bool {
	if c.Host == "localhost" {
		return true
	}
	ip := net.ParseIP(c.Host)
	return ip != nil && ip.IsLoopback()
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// DataConfig points at the directory holding the catalogs and media folders.
type DataConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the data configuration.
func (c *DataConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// MediaPath returns the root of the per-prompt media folders.
func (c *DataConfig) MediaPath() string {
	return filepath.Join(c.Path, "media")
}

// KVConfig selects the preference store backend.
//
// SQLitePath is resolved against the data directory when relative.
type KVConfig struct {
	Driver     string      `yaml:"driver"`
	SQLitePath string      `yaml:"sqlite_path"`
	Redis      RedisConfig `yaml:"redis"`
}

// Validate validates the KV configuration.
func (c *KVConfig) Validate() error {
	if c.Driver == "" {
		c.Driver = KVDriverSQLite
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Driver, validation.Required, validation.In(KVDriverSQLite, KVDriverRedis)),
		validation.Field(&c.SQLitePath, validation.When(c.Driver == KVDriverSQLite, validation.Required)),
	); err != nil {
		return err
	}
	if c.Driver == KVDriverRedis {
		return c.Redis.Validate()
	}
	return nil
}

// ResolveSQLitePath returns SQLitePath, joined to dataDir when relative.
func (c *KVConfig) ResolveSQLitePath(dataDir string) string {
	if filepath.IsAbs(c.SQLitePath) {
		return c.SQLitePath
	}
	return filepath.Join(dataDir, c.SQLitePath)
}

// RedisConfig holds the Redis connection used by the redis KV driver.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// Validate validates the Redis configuration.
func (c *RedisConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Addr, validation.Required),
		validation.Field(&c.DB, validation.Min(0), validation.Max(15)),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required. Only allowed when
//     the HTTP server is bound to a loopback host.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// SSEConfig tunes the change event stream.
type SSEConfig struct {
	// Throttle is the minimum gap between catalog.updated events.
	Throttle time.Duration `yaml:"throttle"`
}

// Validate validates the SSE configuration.
func (c *SSEConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Throttle, validation.Min(time.Duration(0))),
	)
}

// DefaultDataPath returns <user config dir>/PromptHub, or ./data when the
// user config dir cannot be determined.
func DefaultDataPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "./data"
	}
	return filepath.Join(dir, "PromptHub")
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Host: "127.0.0.1",
				Port: 8080,
			},
		},
		Data: DataConfig{
			Path: DefaultDataPath(),
		},
		KV: KVConfig{
			Driver:     KVDriverSQLite,
			SQLitePath: "prefs.db",
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "prompthub:",
			},
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		SSE: SSEConfig{
			Throttle: 2 * time.Second,
		},
	}
}
