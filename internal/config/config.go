package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/theirongolddev/jobmetrics/internal/logger"
	"github.com/theirongolddev/jobmetrics/internal/pipeline"
	"github.com/theirongolddev/jobmetrics/internal/source"
)

// Environment variables that override the config file.
const (
	EnvDataDir  = "JOBMETRICS_DATA_DIR"
	EnvAMQPURL  = "JOBMETRICS_AMQP_URL"
	EnvAddr     = "JOBMETRICS_ADDR"
	EnvLogLevel = "JOBMETRICS_LOG_LEVEL"
)

// Config holds all jobmetrics configuration.
type Config struct {
	General    GeneralConfig    `toml:"general"`
	Rules      RulesConfig      `toml:"rules"`
	Daemon     DaemonConfig     `toml:"daemon"`
	History    HistoryConfig    `toml:"history"`
	AMQP       AMQPConfig       `toml:"amqp"`
	Logging    logger.LogConfig `toml:"logging"`
	Appearance AppearanceConfig `toml:"appearance"`
}

// GeneralConfig locates the extract files.
type GeneralConfig struct {
	DataDir string       `toml:"data_dir"`
	Files   source.Files `toml:"files"`
}

// RulesConfig holds the name-based exclusions.
type RulesConfig struct {
	ExcludedVendors      []string `toml:"excluded_vendors"`
	ExcludedPMSubstrings []string `toml:"excluded_pm_substrings"`
}

// DaemonConfig holds settings for the background refresh service.
type DaemonConfig struct {
	Addr            string `toml:"addr"`
	IntervalSeconds int    `toml:"interval_seconds"`
	RequestTimeout  int    `toml:"request_timeout_seconds"`
	EventBuffer     int    `toml:"event_buffer"`
}

// HistoryConfig controls the refresh history database.
type HistoryConfig struct {
	Enabled bool   `toml:"enabled"`
	DBPath  string `toml:"db_path,omitempty"`
	Keep    int    `toml:"keep"`
}

// AMQPConfig holds refresh event publishing settings. An empty URL disables publishing.
type AMQPConfig struct {
	URL           string `toml:"url,omitempty"`
	Exchange      string `toml:"exchange"`
	RoutingPrefix string `toml:"routing_prefix"`
}

// AppearanceConfig holds theme settings.
type AppearanceConfig struct {
	Theme string `toml:"theme"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	rules := pipeline.DefaultRules()
	return Config{
		General: GeneralConfig{
			DataDir: ".",
			Files:   source.DefaultFiles(),
		},
		Rules: RulesConfig{
			ExcludedVendors:      rules.ExcludedVendors,
			ExcludedPMSubstrings: rules.ExcludedPMSubstrings,
		},
		Daemon: DaemonConfig{
			Addr:            "127.0.0.1:8765",
			IntervalSeconds: 300,
			RequestTimeout:  30,
			EventBuffer:     200,
		},
		History: HistoryConfig{
			Enabled: true,
			Keep:    500,
		},
		AMQP: AMQPConfig{
			Exchange:      "jobmetrics",
			RoutingPrefix: "jobmetrics",
		},
		Logging: logger.DefaultConfig(),
		Appearance: AppearanceConfig{
			Theme: "flexoki-dark",
		},
	}
}

// PipelineRules converts the rules section.
func (c Config) PipelineRules() pipeline.Rules {
	return pipeline.Rules{
		ExcludedVendors:      c.Rules.ExcludedVendors,
		ExcludedPMSubstrings: c.Rules.ExcludedPMSubstrings,
	}
}

// RefreshInterval returns the daemon polling interval.
func (c Config) RefreshInterval() time.Duration {
	return time.Duration(c.Daemon.IntervalSeconds) * time.Second
}

// HistoryPath returns the history database path, defaulting under the cache dir.
func (c Config) HistoryPath() string {
	if c.History.DBPath != "" {
		return c.History.DBPath
	}
	return filepath.Join(CacheDir(), "history.db")
}

// ConfigDir returns the XDG-compliant config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "jobmetrics")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "jobmetrics")
}

// CacheDir returns the XDG-compliant cache directory.
func CacheDir() string {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "jobmetrics")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".cache", "jobmetrics")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// LoadDotEnv loads variables from the given .env files into the process
// environment. Missing files are skipped; existing variables win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// Load reads the config file, returning defaults if it doesn't exist.
// Environment overrides are applied last.
func Load() (Config, error) {
	return LoadFile(ConfigPath())
}

// LoadFile reads config from path. See Load.
func LoadFile(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path) //nolint:gosec // user-chosen config path
	if err != nil {
		if !os.IsNotExist(err) {
			return cfg, fmt.Errorf("reading config: %w", err)
		}
	} else if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	cfg.ApplyEnv()
	return cfg, nil
}

// ApplyEnv overrides fields from JOBMETRICS_* environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvDataDir); v != "" {
		c.General.DataDir = v
	}
	if v := os.Getenv(EnvAMQPURL); v != "" {
		c.AMQP.URL = v
	}
	if v := os.Getenv(EnvAddr); v != "" {
		c.Daemon.Addr = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
}

// Validate reports every problem in the config at once.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.General.DataDir) == "" {
		errs = append(errs, errors.New("general.data_dir is empty"))
	}
	for name, f := range map[string]string{
		"jobs": c.General.Files.Jobs,
		"ar":   c.General.Files.AR,
		"ap":   c.General.Files.AP,
	} {
		if strings.TrimSpace(f) == "" {
			errs = append(errs, fmt.Errorf("general.files.%s is empty", name))
		}
	}
	if c.Daemon.IntervalSeconds < 1 {
		errs = append(errs, fmt.Errorf("daemon.interval_seconds must be at least 1, got %d", c.Daemon.IntervalSeconds))
	}
	if c.Daemon.RequestTimeout < 1 {
		errs = append(errs, fmt.Errorf("daemon.request_timeout_seconds must be at least 1, got %d", c.Daemon.RequestTimeout))
	}
	if c.Daemon.EventBuffer < 1 {
		errs = append(errs, fmt.Errorf("daemon.event_buffer must be at least 1, got %d", c.Daemon.EventBuffer))
	}
	if c.History.Keep < 0 {
		errs = append(errs, fmt.Errorf("history.keep must not be negative, got %d", c.History.Keep))
	}
	if c.AMQP.URL != "" && c.AMQP.Exchange == "" {
		errs = append(errs, errors.New("amqp.exchange is required when amqp.url is set"))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "console", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format))
	}
	return errors.Join(errs...)
}

// Save writes the config to disk.
func Save(cfg Config) error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(ConfigPath(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(ConfigPath())
	return err == nil
}
