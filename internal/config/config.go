package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir      string `toml:"data_dir"`
	StoreDir     string `toml:"store_dir"`
	OverridesDir string `toml:"overrides_dir"`
	LogDir       string `toml:"log_dir"`
}

// Jikan contains the sequential-catalog API settings.
type Jikan struct {
	BaseURL        string `toml:"base_url"`
	RequestTimeout int    `toml:"request_timeout"`
	SearchLimit    int    `toml:"search_limit"`
}

// Window is one gateway rate window: at most Calls per PerMillis.
type Window struct {
	Calls     int `toml:"calls"`
	PerMillis int `toml:"per_ms"`
}

// Gateway contains throttling and retry settings.
type Gateway struct {
	Windows          []Window `toml:"windows"`
	MaxInFlight      int      `toml:"max_in_flight"`
	RetryAttempts    int      `toml:"retry_attempts"`
	BackoffInitialMS int      `toml:"backoff_initial_ms"`
	BackoffMaxSec    int      `toml:"backoff_max_seconds"`
}

// Matcher contains the fuzzy-match acceptance thresholds.
type Matcher struct {
	Threshold         float64 `toml:"threshold"`
	SubtitleThreshold float64 `toml:"subtitle_threshold"`
	RelationThreshold float64 `toml:"relation_threshold"`
}

// Workflow contains run parallelism settings.
type Workflow struct {
	SeriesWorkers int `toml:"series_workers"`
}

// Logging contains log output settings.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Config is the full application configuration.
type Config struct {
	Paths    Paths    `toml:"paths"`
	Jikan    Jikan    `toml:"jikan"`
	Gateway  Gateway  `toml:"gateway"`
	Matcher  Matcher  `toml:"matcher"`
	Workflow Workflow `toml:"workflow"`
	Logging  Logging  `toml:"logging"`
}

// DefaultPath returns the conventional config file location.
func DefaultPath() string {
	return filepath.Join(configHome(), "animap", "config.toml")
}

func configHome() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return xdg
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config")
}

// Load reads the config file at path (or the default location when path is
// empty), applies defaults, expands home-relative paths, and validates the
// result. A missing file at the default location yields the defaults.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if path == "" {
		path = DefaultPath()
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		// Defaults only.
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg.expandPaths()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// WriteSample writes the embedded sample config to path, refusing to
// overwrite an existing file.
func WriteSample(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure config dir: %w", err)
	}
	return os.WriteFile(path, []byte(sampleConfig), 0o644)
}

// EnsureDirectories creates the directories the run needs.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StoreDir, c.Paths.LogDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("ensure directory %s: %w", dir, err)
		}
	}
	return nil
}

func (c *Config) expandPaths() {
	c.Paths.DataDir = expandHome(c.Paths.DataDir)
	c.Paths.StoreDir = expandHome(c.Paths.StoreDir)
	c.Paths.OverridesDir = expandHome(c.Paths.OverridesDir)
	c.Paths.LogDir = expandHome(c.Paths.LogDir)
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
