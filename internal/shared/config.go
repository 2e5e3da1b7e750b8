package shared

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Auth        AuthConfig        `toml:"auth"`
	Database    DatabaseConfig    `toml:"database"`
	Store       StoreConfig       `toml:"store"`
	Server      ServerConfig      `toml:"server"`
	Sync        SyncConfig        `toml:"sync"`
	Log         LogConfig         `toml:"log"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
}

// Configured reports whether the client credentials are present.
func (c SpotifyConfig) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// AuthConfig locates the persisted OAuth token.
type AuthConfig struct {
	TokenPath string `toml:"token_path"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// StoreConfig selects the entity store backend.
type StoreConfig struct {
	Driver   string         `toml:"driver"`
	Supabase SupabaseConfig `toml:"supabase"`
}

// SupabaseConfig contains the PostgREST endpoint and service key.
type SupabaseConfig struct {
	URL            string `toml:"url"`
	ServiceKey     string `toml:"service_key"`
	Schema         string `toml:"schema"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SyncConfig tunes fetching from Spotify.
type SyncConfig struct {
	PageSize  int     `toml:"page_size"`
	RateLimit float64 `toml:"rate_limit"`
}

// LogConfig controls log level and optional file rotation.
type LogConfig struct {
	Level      string `toml:"level"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
}

const (
	StoreDriverSQLite   = "sqlite"
	StoreDriverSupabase = "supabase"
)

// envOverrides maps environment variables to the config fields they replace.
// Secrets are usually kept out of config.toml, so these win over the file.
var envOverrides = map[string]func(*Config, string){
	"SPOTIFY_CLIENT_ID":     func(c *Config, v string) { c.Credentials.Spotify.ClientID = v },
	"SPOTIFY_CLIENT_SECRET": func(c *Config, v string) { c.Credentials.Spotify.ClientSecret = v },
	"SPOTIFY_REDIRECT_URI":  func(c *Config, v string) { c.Credentials.Spotify.RedirectURI = v },
	"SUPABASE_URL":          func(c *Config, v string) { c.Store.Supabase.URL = v },
	"SUPABASE_SERVICE_KEY":  func(c *Config, v string) { c.Store.Supabase.ServiceKey = v },
	"LIKESYNC_DATABASE":     func(c *Config, v string) { c.Database.Path = v },
	"LIKESYNC_LOG_LEVEL":    func(c *Config, v string) { c.Log.Level = v },
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values absent from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.ApplyEnv(os.LookupEnv)
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// ApplyEnv overwrites fields from the environment using lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	for key, set := range envOverrides {
		if v, ok := lookup(key); ok && v != "" {
			set(c, v)
		}
	}
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case StoreDriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("%w: database.path is required for the sqlite store", ErrInvalidConfig)
		}
	case StoreDriverSupabase:
		if c.Store.Supabase.URL == "" || c.Store.Supabase.ServiceKey == "" {
			return fmt.Errorf("%w: store.supabase.url and service_key are required", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store driver %q", ErrInvalidConfig, c.Store.Driver)
	}

	if c.Sync.PageSize < 1 || c.Sync.PageSize > 50 {
		return fmt.Errorf("%w: sync.page_size must be between 1 and 50", ErrInvalidConfig)
	}
	return nil
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveConfig writes config back to path as TOML.
func SaveConfig(path string, config *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
