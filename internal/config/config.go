// Package config handles TOML configuration loading and validation.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

// configSearchPaths lists paths checked in order when no explicit config is given.
var configSearchPaths = []string{
	"/etc/graphql-proxy/config.toml",
	"configs/config.toml",
}

const (
	defaultEnvFile     = ".env"
	secretPlaceholder  = "YOUR_ADMIN_SECRET_HERE"
	defaultGraphQLPath = "/api/graphql"
	healthzPath        = "/healthz"
)

// CLI holds command-line arguments parsed by Kong.
type CLI struct {
	Config      string `kong:"short='c',help='Path to TOML config file.',env='CONFIG_PATH'"`
	EnvFile     string `kong:"help='Path to a .env file loaded before resolving the environment.',env='ENV_FILE'"`
	Host        string `kong:"help='Listen host (overrides config).',env='HOST'"`
	Port        int    `kong:"short='p',help='Listen port (overrides config).',env='PORT'"`
	Endpoint    string `kong:"help='Upstream GraphQL endpoint URL (overrides config).'"`
	AdminSecret string `kong:"help='Hasura admin secret (overrides config).'"`
	LogLevel    string `kong:"help='Log level: debug|info|warn|error (overrides config).',env='LOG_LEVEL'"`
}

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	GraphQL  GraphQLConfig  `toml:"graphql"`
	Upstream UpstreamConfig `toml:"upstream"`
	Log      LogConfig      `toml:"log"`
	Metrics  MetricsConfig  `toml:"metrics"`

	filePath string // resolved config file path (unexported)
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string     `toml:"host"`
	Port         int        `toml:"port"` // 0 means "use default" (8000); TOML cannot distinguish 0 from unset
	Path         string     `toml:"path"`
	BodyMaxBytes int64      `toml:"body_max_bytes"`
	CORS         CORSConfig `toml:"cors"`
}

// CORSConfig controls cross-origin access for browser clients served from
// another origin. Credentials are always allowed so session cookies pass.
type CORSConfig struct {
	AllowedOrigins []string `toml:"allowed_origins"`
}

// GraphQLConfig holds the upstream GraphQL endpoint and its credentials.
//
// EndpointURL and AdminSecret are fallbacks; the variables named in
// EndpointEnv and AdminSecretEnv are consulted first on every request.
type GraphQLConfig struct {
	EndpointURL    string   `toml:"endpoint_url"`
	AdminSecret    string   `toml:"admin_secret"`
	EndpointEnv    []string `toml:"endpoint_env"`
	AdminSecretEnv []string `toml:"admin_secret_env"`
}

// UpstreamConfig holds upstream connection settings.
type UpstreamConfig struct {
	TimeoutSeconds  int `toml:"timeout_seconds"`
	IdleConnections int `toml:"idle_connections"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Load reads the optional TOML config file and applies CLI overrides.
// When no explicit path is given (via --config or CONFIG_PATH), it searches
// /etc/graphql-proxy/config.toml then configs/config.toml, and falls back to
// defaults if neither exists.
func Load(cli *CLI) (*Config, error) {
	if err := loadEnvFile(cli.EnvFile); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	path := cli.Config
	if path == "" {
		path = findConfig()
	}

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
		cfg.filePath = path
	}

	cfg.applyCLI(cli)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}

	cfg.setDefaults()
	return &cfg, nil
}

// loadEnvFile loads variables from a .env file without overriding the
// process environment. An explicit path must exist; the default is optional.
func loadEnvFile(path string) error {
	if path == "" {
		if _, err := os.Stat(defaultEnvFile); errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		path = defaultEnvFile
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// applyCLI overrides config values with non-zero CLI flags.
func (c *Config) applyCLI(cli *CLI) {
	if cli.Host != "" {
		c.Server.Host = cli.Host
	}
	if cli.Port != 0 {
		c.Server.Port = cli.Port
	}
	if cli.Endpoint != "" {
		c.GraphQL.EndpointURL = cli.Endpoint
	}
	if cli.AdminSecret != "" {
		c.GraphQL.AdminSecret = cli.AdminSecret
	}
	if cli.LogLevel != "" {
		c.Log.Level = cli.LogLevel
	}
}

func (c *Config) validate() error {
	if c.GraphQL.AdminSecret == secretPlaceholder {
		return fmt.Errorf("graphql.admin_secret contains placeholder value; set a real secret or leave empty")
	}

	// The endpoint may come from the environment at request time, so it is
	// only checked here when set statically.
	if c.GraphQL.EndpointURL != "" {
		if err := validateEndpoint(c.GraphQL.EndpointURL); err != nil {
			return fmt.Errorf("graphql.endpoint_url %w", err)
		}
	}
	for _, name := range append(append([]string{}, c.GraphQL.EndpointEnv...), c.GraphQL.AdminSecretEnv...) {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("graphql env alias lists must not contain empty names")
		}
	}

	// Numeric bounds.
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 0–65535; got %d", c.Server.Port)
	}
	if c.Server.BodyMaxBytes < 0 {
		return fmt.Errorf("server.body_max_bytes must be non-negative; got %d", c.Server.BodyMaxBytes)
	}
	if c.Upstream.TimeoutSeconds < 0 {
		return fmt.Errorf("upstream.timeout_seconds must be non-negative; got %d", c.Upstream.TimeoutSeconds)
	}
	if c.Upstream.IdleConnections < 0 {
		return fmt.Errorf("upstream.idle_connections must be non-negative; got %d", c.Upstream.IdleConnections)
	}

	if p := c.Server.Path; p != "" {
		if p[0] != '/' {
			return fmt.Errorf("server.path must start with '/'; got %q", p)
		}
		if p == healthzPath {
			return fmt.Errorf("server.path %q conflicts with reserved route %q", p, healthzPath)
		}
	}
	for _, origin := range c.Server.CORS.AllowedOrigins {
		if origin == "*" {
			return fmt.Errorf("server.cors.allowed_origins must list explicit origins; wildcard cannot be combined with credentials")
		}
	}

	// Log fields.
	level := strings.ToLower(c.Log.Level)
	switch level {
	case "debug", "info", "warn", "error", "":
		// valid
	default:
		return fmt.Errorf("log.level must be one of: debug, info, warn, error; got %q", c.Log.Level)
	}
	format := strings.ToLower(c.Log.Format)
	switch format {
	case "json", "text", "":
		// valid
	default:
		return fmt.Errorf("log.format must be one of: json, text; got %q", c.Log.Format)
	}

	// Metrics path validation (only when metrics are enabled).
	if c.Metrics.Enabled && c.Metrics.Path != "" {
		p := c.Metrics.Path
		if p[0] != '/' {
			return fmt.Errorf("metrics.path must start with '/'; got %q", p)
		}
		graphqlPath := c.Server.Path
		if graphqlPath == "" {
			graphqlPath = defaultGraphQLPath
		}
		for _, reserved := range []string{graphqlPath, healthzPath} {
			if p == reserved || strings.HasPrefix(p, reserved+"/") {
				return fmt.Errorf("metrics.path %q conflicts with reserved route %q", p, reserved)
			}
		}
	}

	return nil
}

// validateEndpoint checks that raw is an absolute http(s) URL.
func validateEndpoint(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("must use http or https; got %q", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("must be absolute (scheme://host); got %q", raw)
	}
	return nil
}

// setDefaults fills zero-valued fields with sensible defaults.
// For integer fields (Port, BodyMaxBytes, etc.), zero means "unset" because TOML
// cannot distinguish between an explicit 0 and an omitted key. Setting port=0 in
// the config file therefore results in the default port (8000).
func (c *Config) setDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
	if c.Server.Path == "" {
		c.Server.Path = defaultGraphQLPath
	}
	if c.Server.BodyMaxBytes == 0 {
		c.Server.BodyMaxBytes = 10 * 1024 * 1024 // 10 MB
	}
	if len(c.GraphQL.EndpointEnv) == 0 {
		c.GraphQL.EndpointEnv = append([]string(nil), DefaultEndpointEnv...)
	}
	if len(c.GraphQL.AdminSecretEnv) == 0 {
		c.GraphQL.AdminSecretEnv = append([]string(nil), DefaultAdminSecretEnv...)
	}
	if c.Upstream.TimeoutSeconds == 0 {
		c.Upstream.TimeoutSeconds = 30
	}
	if c.Upstream.IdleConnections == 0 {
		c.Upstream.IdleConnections = 100
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
}

// findConfig returns the first config path that exists, or empty string.
func findConfig() string {
	return findConfigInPaths(configSearchPaths)
}

// findConfigInPaths returns the first path that exists on disk, or empty string.
func findConfigInPaths(paths []string) string {
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Addr returns the server listen address as host:port.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// WarnPermissions logs a warning if the config file is readable by group or others.
// The file may carry the admin secret.
func (c *Config) WarnPermissions(logger *slog.Logger) {
	if c.filePath == "" {
		return
	}
	info, err := os.Stat(c.filePath)
	if err != nil {
		return
	}
	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		logger.Warn("config file is readable by group/others; consider chmod 600",
			"path", c.filePath,
			"mode", fmt.Sprintf("%04o", perm),
		)
	}
}
