package internal

import (
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/raido/internal/cardid"
	"github.com/starford/raido/internal/deck"
	"github.com/starford/raido/internal/nav"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Deck   DeckConfig        `yaml:"deck"`
	Limits LimitsConfig      `yaml:"limits"`
	SQLite SQLiteConfig      `yaml:"sqlite"`
	Auth   AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Deck.Validate(); err != nil {
		return err
	}
	if err := c.Limits.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
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

// DeckConfig describes where cards come from.
//
// Exactly one source must be set. Path points at a local deck directory
// that the server hosts itself; BaseURL points at an external deck host.
type DeckConfig struct {
	Path        string `yaml:"path"`
	BaseURL     string `yaml:"base_url"`
	IndexFile   string `yaml:"index_file"`
	DefaultCard string `yaml:"default_card"`
}

// validCardID passes when the value survives sanitization unchanged.
var validCardID = validation.By(func(value interface{}) error {
	s, _ := value.(string)
	clean, ok := cardid.Sanitize(s)
	if !ok || clean != s {
		return fmt.Errorf("not a valid card id")
	}
	return nil
})

// Validate validates the deck configuration.
func (c *DeckConfig) Validate() error {
	if c.Path == "" && c.BaseURL == "" {
		return fmt.Errorf("deck: either path or base_url is required")
	}
	if c.Path != "" && c.BaseURL != "" {
		return fmt.Errorf("deck: path and base_url are mutually exclusive")
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.DefaultCard, validation.Required, validCardID),
	)
}

// IndexFileName returns the deck index filename, defaulting to cardlist.txt.
func (c *DeckConfig) IndexFileName() string {
	if c.IndexFile == "" {
		return "cardlist.txt"
	}
	return c.IndexFile
}

// LimitsConfig bounds view stacks and deck fetch traffic.
type LimitsConfig struct {
	MaxPanels     int `yaml:"max_panels"`
	MaxRequests   int `yaml:"max_requests"`
	WindowSeconds int `yaml:"window_seconds"`
	MaxSessions   int `yaml:"max_sessions"`
}

// Validate validates the limits configuration.
func (c *LimitsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxPanels, validation.Min(1), validation.Max(nav.MaxZIndex)),
		validation.Field(&c.MaxRequests, validation.Min(1)),
		validation.Field(&c.WindowSeconds, validation.Min(1)),
		validation.Field(&c.MaxSessions, validation.Min(1)),
	)
}

// SQLiteConfig holds SQLite database configuration for the link index.
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

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Deck: DeckConfig{
			Path:        "./deck",
			IndexFile:   "cardlist.txt",
			DefaultCard: "Welcome",
		},
		Limits: LimitsConfig{
			MaxPanels:     nav.DefaultMaxPanels,
			MaxRequests:   deck.DefaultMaxRequests,
			WindowSeconds: 60,
		},
		SQLite: SQLiteConfig{
			Path: "./raido.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
