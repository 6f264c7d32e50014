package internal

import (
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/checkmark/internal/categories"
	"github.com/starford/checkmark/internal/rescan"
	"github.com/starford/checkmark/internal/scan"
	"github.com/starford/checkmark/internal/view"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Vault  VaultConfig       `yaml:"vault"`
	SQLite SQLiteConfig      `yaml:"sqlite"`
	Auth   AuthConfig        `yaml:"auth"`
	Tasks  TasksConfig       `yaml:"tasks"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Vault.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	return c.Tasks.Validate()
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
	// Host is empty to listen on every interface.
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// VaultConfig holds the path to the Markdown vault directory.
type VaultConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SQLiteConfig holds the path of the SQLite metadata cache.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
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

// TasksConfig holds the task view configuration.
type TasksConfig struct {
	// SettingsPath is the JSON (with comments) file holding the global exclusions.
	SettingsPath string `yaml:"settings_path"`
	// View is a view block applied to the served view and to the list command.
	View           string        `yaml:"view"`
	Workers        int           `yaml:"workers"`
	RescanDebounce time.Duration `yaml:"rescan_debounce"`
	SeedCategories []string      `yaml:"seed_categories"`
}

// Validate validates the tasks configuration.
func (c *TasksConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.SettingsPath, validation.Required),
		validation.Field(&c.Workers, validation.Min(1), validation.Max(256)),
		validation.Field(&c.RescanDebounce, validation.Min(10*time.Millisecond), validation.Max(time.Minute)),
	)
}

// ViewBlock parses the configured view block.
func (c *TasksConfig) ViewBlock() view.Block {
	return view.ParseBlock(c.View)
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
		SQLite: SQLiteConfig{
			Path: "./checkmark.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Tasks: TasksConfig{
			SettingsPath:   "./checkmark-settings.json",
			Workers:        scan.DefaultWorkers,
			RescanDebounce: rescan.DefaultQuiet,
			SeedCategories: append([]string(nil), categories.DefaultSeed...),
		},
	}
}
