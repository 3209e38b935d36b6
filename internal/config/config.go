// Package config provides configuration management for the dotnet-dap server.
//
// Configuration controls:
//   - Capability mode (readonly vs full): readonly exposes parsing and
//     resolution only, full also runs builds and starts debug sessions
//   - The dotnet executable used for builds
//   - Debugger adapter settings: explicit binary paths and the cache
//     directory searched when a debugger is not on PATH
//   - The binary cache discipline and safety limits
//
// Configuration is layered: defaults, then an optional JSON file, then
// DOTNET_DAP_* environment variables. A .env file in the working directory
// is loaded into the environment first.
package config

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/ctagard/dotnet-dap/internal/errors"
)

// CapabilityMode defines the level of capabilities exposed
type CapabilityMode string

const (
	ModeReadOnly CapabilityMode = "readonly" // Parsing and resolution only
	ModeFull     CapabilityMode = "full"     // Builds and debug sessions too
)

// Environment variables that override file configuration
const (
	EnvDotnetPath     = "DOTNET_DAP_DOTNET_PATH"
	EnvAdaptersDir    = "DOTNET_DAP_ADAPTERS_DIR"
	EnvVsdbgPath      = "DOTNET_DAP_VSDBG_PATH"
	EnvNetcoredbgPath = "DOTNET_DAP_NETCOREDBG_PATH"
	EnvCacheFailures  = "DOTNET_DAP_CACHE_FAILURES"
	EnvMetricsAddr    = "DOTNET_DAP_METRICS_ADDR"
	EnvLogLevel       = "DOTNET_DAP_LOG_LEVEL"
)

// Config holds the server configuration
type Config struct {
	Mode CapabilityMode `json:"mode"`

	Dotnet DotnetConfig `json:"dotnet"`

	// AdaptersDir holds one subdirectory per adapter with a cached binary
	AdaptersDir    string         `json:"adaptersDir"`
	Adapters       AdapterConfigs `json:"adapters"`
	DefaultAdapter string         `json:"defaultAdapter"`

	// CacheFailures makes a failed binary resolution sticky for the
	// adapter's lifetime. The default only caches successes.
	CacheFailures bool `json:"cacheFailures"`

	// Limits for safety
	MaxScenarios int `json:"maxScenarios"`
	MaxSessions  int `json:"maxSessions"`

	MetricsAddr string `json:"metricsAddr"`
	LogLevel    string `json:"logLevel"`
}

// DotnetConfig holds build tool configuration
type DotnetConfig struct {
	Path string `json:"path"`
}

// AdapterConfigs holds configuration for each debugger adapter
type AdapterConfigs struct {
	Vsdbg      AdapterConfig `json:"vsdbg"`
	Netcoredbg AdapterConfig `json:"netcoredbg"`
}

// AdapterConfig holds adapter-specific configuration
type AdapterConfig struct {
	// Path is a user-installed debugger binary; it bypasses resolution
	Path string `json:"path"`
	// Args are extra arguments passed to the debugger
	Args []string `json:"args"`
	// Env is extra environment for the debugger process
	Env map[string]string `json:"env"`
}

// defaultAdaptersDir returns <user cache dir>/dotnet-dap/debug_adapters,
// falling back to the temp directory when no cache dir is known.
func defaultAdaptersDir() string {
	base, err := os.UserCacheDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, "dotnet-dap", "debug_adapters")
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Mode:        ModeFull,
		Dotnet:      DotnetConfig{Path: "dotnet"},
		AdaptersDir: defaultAdaptersDir(),
		Adapters: AdapterConfigs{
			// vsdbg only speaks DAP in this mode
			Vsdbg: AdapterConfig{Args: []string{"--interpreter=vscode"}},
		},
		DefaultAdapter: "vsdbg",
		MaxScenarios:   64,
		MaxSessions:    10,
		LogLevel:       "info",
	}
}

// LoadConfig loads configuration from an optional JSON file and the
// environment.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the limits. maxSessions of zero means unlimited.
func (c *Config) Validate() error {
	if c.MaxScenarios < 1 {
		return errors.ConfigError("maxScenarios", fmt.Sprintf("must be at least 1, got %d", c.MaxScenarios))
	}
	if c.MaxSessions < 0 {
		return errors.ConfigError("maxSessions", fmt.Sprintf("must not be negative, got %d", c.MaxSessions))
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvDotnetPath); v != "" {
		c.Dotnet.Path = v
	}
	if v := os.Getenv(EnvAdaptersDir); v != "" {
		c.AdaptersDir = v
	}
	if v := os.Getenv(EnvVsdbgPath); v != "" {
		c.Adapters.Vsdbg.Path = v
	}
	if v := os.Getenv(EnvNetcoredbgPath); v != "" {
		c.Adapters.Netcoredbg.Path = v
	}
	if v := os.Getenv(EnvCacheFailures); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvCacheFailures, err)
		}
		c.CacheFailures = b
	}
	if v := os.Getenv(EnvMetricsAddr); v != "" {
		c.MetricsAddr = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	return nil
}

// CanBuild returns true if running build tasks is allowed
func (c *Config) CanBuild() bool {
	return c.Mode == ModeFull
}

// CanStartSessions returns true if spawning debugger processes is allowed
func (c *Config) CanStartSessions() bool {
	return c.Mode == ModeFull
}
