package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/notewatch/internal/format"
	"github.com/starford/notewatch/internal/settings"
	"github.com/starford/notewatch/internal/source"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Settings backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Vault    VaultConfig       `yaml:"vault"`
	Settings SettingsConfig    `yaml:"settings"`
	Watch    WatchConfig       `yaml:"watch"`
	Log      LogConfig         `yaml:"log"`
	Notify   NotifyConfig      `yaml:"notify"`
	Auth     AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	for _, v := range []validation.Validatable{&c.App, &c.Vault, &c.Settings, &c.Watch, &c.Log, &c.Notify} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return c.Auth.Validate()
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
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// VaultConfig holds the path to the watched vault directory.
type VaultConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SettingsConfig selects where the user settings are persisted.
type SettingsConfig struct {
	Backend    string      `yaml:"backend"`
	File       string      `yaml:"file"`
	SQLitePath string      `yaml:"sqlite_path"`
	Redis      RedisConfig `yaml:"redis"`
}

// Validate validates the settings backend configuration.
func (c *SettingsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Backend, validation.Required,
			validation.In(BackendMemory, BackendFile, BackendSQLite, BackendRedis)),
		validation.Field(&c.File, validation.When(c.Backend == BackendFile, validation.Required)),
		validation.Field(&c.SQLitePath, validation.When(c.Backend == BackendSQLite, validation.Required)),
		validation.Field(&c.Redis, validation.Skip.When(c.Backend != BackendRedis)),
	)
}

// RedisConfig holds the Redis connection for the redis settings backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Key      string `yaml:"key"`
}

// Validate validates the Redis configuration.
func (c RedisConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Addr, validation.Required),
		validation.Field(&c.DB, validation.Min(0), validation.Max(15)),
	)
}

// WatchConfig tunes the vault watcher.
type WatchConfig struct {
	// RenameWindow is how long a rename waits for its matching create.
	RenameWindow time.Duration `yaml:"rename_window"`
}

// Validate validates the watch configuration.
func (c *WatchConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.RenameWindow, validation.Required,
			validation.Min(time.Millisecond), validation.Max(10*time.Second)),
	)
}

// LogConfig controls how log entry timestamps are rendered.
type LogConfig struct {
	TimeFormat string `yaml:"time_format"`
	// TimeZone is an IANA zone name; empty means the local zone.
	TimeZone string `yaml:"time_zone"`
}

// Validate validates the log configuration.
func (c *LogConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.TimeFormat, validation.Required),
		validation.Field(&c.TimeZone, validation.By(func(any) error {
			_, err := c.Location()
			return err
		})),
	)
}

// Location resolves TimeZone.
func (c *LogConfig) Location() (*time.Location, error) {
	if c.TimeZone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, errors.New("unknown time zone")
	}
	return loc, nil
}

// NotifyConfig selects the notice channels besides the operator log.
type NotifyConfig struct {
	// Terminal prints notices as coloured lines on stderr.
	Terminal bool `yaml:"terminal"`
	// SSEBuffer is the per-client queue length of the event stream.
	SSEBuffer int `yaml:"sse_buffer"`
}

// Validate validates the notify configuration.
func (c *NotifyConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.SSEBuffer, validation.Min(0), validation.Max(4096)),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local use.
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

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Vault: VaultConfig{
			Path: "./vault",
		},
		Settings: SettingsConfig{
			Backend:    BackendFile,
			File:       "./notewatch-settings.yaml",
			SQLitePath: "./notewatch.db",
			Redis: RedisConfig{
				Addr: "localhost:6379",
				Key:  settings.DefaultRedisKey,
			},
		},
		Watch: WatchConfig{
			RenameWindow: source.DefaultRenameWindow,
		},
		Log: LogConfig{
			TimeFormat: format.DefaultTimeLayout,
		},
		Notify: NotifyConfig{
			SSEBuffer: 64,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
