package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/notegraph/internal/linkgraph"
	"github.com/starford/notegraph/internal/mutator"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Vault   VaultConfig       `yaml:"vault"`
	SQLite  SQLiteConfig      `yaml:"sqlite"`
	Auth    AuthConfig        `yaml:"auth"`
	Graph   GraphConfig       `yaml:"graph"`
	Cascade CascadeConfig     `yaml:"cascade"`
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
	if err := c.Graph.Validate(); err != nil {
		return err
	}
	return c.Cascade.Validate()
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

// SQLiteConfig holds SQLite database configuration.
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

// GraphConfig tunes graph views.
type GraphConfig struct {
	Sovereignty         string `yaml:"sovereignty"`
	ImportanceThreshold int    `yaml:"importance_threshold"`
	NodeGap             int    `yaml:"node_gap"`
	RankGap             int    `yaml:"rank_gap"`
	// CacheSize bounds the number of memoized views; 0 disables the cache.
	CacheSize int `yaml:"cache_size"`
}

// Validate validates the graph configuration.
func (c *GraphConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Sovereignty, validation.Required, validation.By(func(v any) error {
			_, err := linkgraph.ParseSovereigntyStrategy(v.(string))
			return err
		})),
		validation.Field(&c.ImportanceThreshold, validation.Min(0)),
		validation.Field(&c.NodeGap, validation.Min(0)),
		validation.Field(&c.RankGap, validation.Min(0)),
		validation.Field(&c.CacheSize, validation.Min(0)),
	)
}

// Options converts the section into builder options. Zero values fall back
// to the builder defaults.
func (c *GraphConfig) Options() linkgraph.Options {
	return linkgraph.Options{
		Strategy:            linkgraph.SovereigntyStrategy(c.Sovereignty),
		ImportanceThreshold: c.ImportanceThreshold,
		Layout: linkgraph.LayoutOptions{
			NodeGap: c.NodeGap,
			RankGap: c.RankGap,
		},
	}
}

// CascadeConfig bounds the writes of rename and unlink cascades.
type CascadeConfig struct {
	Concurrency int `yaml:"concurrency"`
	// WriteInterval is the minimum spacing between cascade writes; 0 means
	// unpaced.
	WriteInterval time.Duration `yaml:"write_interval"`
}

// Validate validates the cascade configuration.
func (c *CascadeConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Concurrency, validation.Required, validation.Min(1), validation.Max(64)),
		validation.Field(&c.WriteInterval, validation.Min(time.Duration(0))),
	)
}

// Options converts the section into mutator options.
func (c *CascadeConfig) Options() mutator.Options {
	return mutator.Options{Concurrency: c.Concurrency, WriteInterval: c.WriteInterval}
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
			Path: "./notegraph.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Graph: GraphConfig{
			Sovereignty:         string(linkgraph.SovereigntyExclusive),
			ImportanceThreshold: 3,
			NodeGap:             linkgraph.DefaultNodeGap,
			RankGap:             linkgraph.DefaultRankGap,
			CacheSize:           32,
		},
		Cascade: CascadeConfig{
			Concurrency: 4,
		},
	}
}
