package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/chrono/internal/processing"
	"github.com/starford/chrono/internal/vcs"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Log formats.
const (
	LogFormatJSON = "json"
	LogFormatText = "text"
)

// MaxWorkers bounds run.workers.
const MaxWorkers = 64

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Content ContentConfig     `yaml:"content"`
	VCS     VCSConfig         `yaml:"vcs"`
	Run     RunConfig         `yaml:"run"`
	Ledger  LedgerConfig      `yaml:"ledger"`
	HTTP    HTTPConfig        `yaml:"http"`
	Auth    AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Content.Validate(); err != nil {
		return err
	}
	if err := c.VCS.Validate(); err != nil {
		return err
	}
	if err := c.Run.Validate(); err != nil {
		return err
	}
	if err := c.HTTP.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel  slog.Level `yaml:"log_level"`
	LogFormat string     `yaml:"log_format"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if c.LogFormat == "" {
		c.LogFormat = LogFormatJSON
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.LogFormat, validation.In(LogFormatJSON, LogFormatText)),
	)
}

// ContentConfig describes the content tree and which files in it are documents.
type ContentConfig struct {
	Root       string   `yaml:"root"`
	Extensions []string `yaml:"extensions"`
	SkipNames  []string `yaml:"skip_names"`
	Ignore     []string `yaml:"ignore"`
}

var extensionRe = regexp.MustCompile(`^\.[^./\\]+$`)

// Validate validates the content configuration.
func (c *ContentConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Root, validation.Required),
		validation.Field(&c.Extensions, validation.Required,
			validation.Each(validation.Match(extensionRe).Error("must look like .md"))),
		validation.Field(&c.Ignore, validation.Each(validation.By(validGlob))),
	)
}

func validGlob(value any) error {
	s, _ := value.(string)
	if !doublestar.ValidatePattern(s) {
		return fmt.Errorf("invalid glob %q", s)
	}
	return nil
}

// SkipRules returns the processing rules described by c.
func (c *ContentConfig) SkipRules() processing.SkipRules {
	return processing.SkipRules{
		Extensions: c.Extensions,
		SkipNames:  c.SkipNames,
		Ignore:     c.Ignore,
	}
}

// VCSConfig holds git configuration and the clean-tree gate switches.
type VCSConfig struct {
	Binary      string        `yaml:"binary"`
	Timeout     time.Duration `yaml:"timeout"`
	AllowDirty  bool          `yaml:"allow_dirty"`
	AllowStaged bool          `yaml:"allow_staged"`
	AllowNoVCS  bool          `yaml:"allow_no_vcs"`
}

// Validate validates the VCS configuration.
func (c *VCSConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Binary, validation.Required),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	)
}

// CleanOptions returns the clean-tree gate switches.
func (c *VCSConfig) CleanOptions() vcs.CleanOptions {
	return vcs.CleanOptions{
		AllowDirty:  c.AllowDirty,
		AllowStaged: c.AllowStaged,
		AllowNoVCS:  c.AllowNoVCS,
	}
}

// RunConfig controls a single reconciliation run.
type RunConfig struct {
	Workers    int  `yaml:"workers"`
	Unattended bool `yaml:"unattended"`
	CheckOnly  bool `yaml:"check_only"`
}

// Validate validates the run configuration.
func (c *RunConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Workers, validation.Required, validation.Min(1), validation.Max(MaxWorkers)),
	)
}

// LedgerConfig holds the SQLite run ledger location. An empty path disables it.
type LedgerConfig struct {
	Path string `yaml:"path"`
}

// Enabled reports whether runs are recorded.
func (c *LedgerConfig) Enabled() bool { return c.Path != "" }

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

// AuthConfig holds authentication configuration for the HTTP API.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required.
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
		return errors.New("auth: mode is \"token\" but token is empty")
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	rules := processing.DefaultSkipRules()
	return &Config{
		App: ApplicationConfig{
			LogLevel:  slog.LevelInfo,
			LogFormat: LogFormatJSON,
		},
		Content: ContentConfig{
			Root:       ".",
			Extensions: rules.Extensions,
			SkipNames:  rules.SkipNames,
		},
		VCS: VCSConfig{
			Binary:  "git",
			Timeout: 10 * time.Second,
		},
		Run: RunConfig{
			Workers: 1,
		},
		HTTP: HTTPConfig{
			Port: 8080,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
