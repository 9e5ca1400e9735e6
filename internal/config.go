package internal

import (
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Journal JournalConfig     `yaml:"journal"`
	Inbox   InboxConfig       `yaml:"inbox"`
	Archive ArchiveConfig     `yaml:"archive"`
	OCR     OCRConfig         `yaml:"ocr"`
	Auth    AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Journal.Validate(); err != nil {
		return err
	}
	if err := c.Archive.Validate(); err != nil {
		return err
	}
	if err := c.OCR.Validate(); err != nil {
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

// JournalConfig holds the entry database configuration.
type JournalConfig struct {
	DBPath string `yaml:"db_path"`
}

// Validate validates the journal configuration.
func (c *JournalConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.DBPath, validation.Required),
	)
}

// InboxConfig holds the watched drop-directory configuration.
type InboxConfig struct {
	Path    string `yaml:"path"`
	Enabled bool   `yaml:"enabled"`
}

// ArchiveConfig holds the processed-image archive directory.
type ArchiveConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the archive configuration.
func (c *ArchiveConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// OCRConfig holds provider credentials and default orchestration knobs.
type OCRConfig struct {
	// DefaultMaxTier caps provider cost when a request doesn't specify one.
	// Empty means no cap.
	DefaultMaxTier string          `yaml:"default_max_tier"`
	Prefer         string          `yaml:"prefer"`
	Providers      ProvidersConfig `yaml:"providers"`
}

// Validate validates the OCR configuration.
func (c *OCRConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.DefaultMaxTier, validation.In("", "free", "standard", "premium")),
		validation.Field(&c.Prefer, validation.In("", "speed", "accuracy")),
	)
}

// ProvidersConfig holds per-provider settings. A provider with no credentials
// is registered but unavailable.
type ProvidersConfig struct {
	Vision    VisionConfig    `yaml:"vision"`
	OCRSpace  OCRSpaceConfig  `yaml:"ocrspace"`
	Claude    ClaudeConfig    `yaml:"claude"`
	Tesseract TesseractConfig `yaml:"tesseract"`
}

// VisionConfig holds Google Cloud Vision credentials.
type VisionConfig struct {
	APIKey string `yaml:"api_key"`
}

// OCRSpaceConfig holds OCR.space credentials.
type OCRSpaceConfig struct {
	APIKey string `yaml:"api_key"`
}

// ClaudeConfig holds Anthropic credentials.
type ClaudeConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// TesseractConfig controls the local engine.
type TesseractConfig struct {
	Enabled   bool     `yaml:"enabled"`
	Languages []string `yaml:"languages"`
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
		Journal: JournalConfig{
			DBPath: "./dagaz.db",
		},
		Inbox: InboxConfig{
			Path:    "./inbox",
			Enabled: true,
		},
		Archive: ArchiveConfig{
			Path: "./archive",
		},
		OCR: OCRConfig{
			Providers: ProvidersConfig{
				Tesseract: TesseractConfig{
					Enabled:   true,
					Languages: []string{"eng"},
				},
			},
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
