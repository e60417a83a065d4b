// Package config holds the hs-tools configuration, loaded through viper from
// defaults, an optional YAML file, HS_TOOLS_ environment variables and flags.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete hs-tools configuration
type Config struct {
	// Workdir is the directory operations run against. Empty means the
	// current directory.
	Workdir string        `mapstructure:"workdir"`
	Cache   CacheConfig   `mapstructure:"cache"`
	UI      UIConfig      `mapstructure:"ui"`
	Lock    LockConfig    `mapstructure:"lock"`
	Logging LoggingConfig `mapstructure:"logging"`
	NPM     NPMConfig     `mapstructure:"npm"`
	GitHub  GitHubConfig  `mapstructure:"github"`
	Seeds   SeedsConfig   `mapstructure:"seeds"`
}

// CacheConfig controls the response cache
type CacheConfig struct {
	// Enabled turns the file cache on. When false a Null cache is used.
	Enabled bool `mapstructure:"enabled"`
	// Dir is the state directory, relative to the workdir unless absolute.
	// It holds the cache payloads, the index, the lock and the debug log.
	Dir string `mapstructure:"dir"`
	// TTL is the default entry lifetime.
	TTL time.Duration `mapstructure:"ttl"`
}

// UIConfig controls progress rendering
type UIConfig struct {
	// Mode is one of "auto", "live" or "text".
	Mode string `mapstructure:"mode"`
	// MaxSteps caps the step lines shown per task in live mode.
	MaxSteps int `mapstructure:"max_steps"`
	// Tick is the redraw interval.
	Tick time.Duration `mapstructure:"tick"`
}

// LockConfig controls the working directory lock
type LockConfig struct {
	// Force skips locking entirely.
	Force      bool          `mapstructure:"force"`
	StaleAfter time.Duration `mapstructure:"stale_after"`
	Retries    int           `mapstructure:"retries"`
	RetryDelay time.Duration `mapstructure:"retry_delay"`
	Heartbeat  time.Duration `mapstructure:"heartbeat"`
}

// LoggingConfig controls the debug log
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `mapstructure:"level"`
}

// NPMConfig controls the npm registry client
type NPMConfig struct {
	Registry    string        `mapstructure:"registry"`
	Concurrency int           `mapstructure:"concurrency"`
	TTL         time.Duration `mapstructure:"ttl"`
}

// GitHubConfig controls the GitHub API client
type GitHubConfig struct {
	API         string `mapstructure:"api"`
	Token       string `mapstructure:"token"`
	Concurrency int    `mapstructure:"concurrency"`
	// Repo is "owner/name". Empty means parse it from the origin remote.
	Repo string `mapstructure:"repo"`
}

// SeedsConfig controls DNS seed discovery
type SeedsConfig struct {
	Hosts       []string      `mapstructure:"hosts"`
	Port        int           `mapstructure:"port"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Concurrency int           `mapstructure:"concurrency"`
	TTL         time.Duration `mapstructure:"ttl"`
}

// StateDirName is the default state directory name.
const StateDirName = ".hs-tools"

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Workdir: "",
		Cache: CacheConfig{
			Enabled: true,
			Dir:     StateDirName,
			TTL:     2 * time.Hour,
		},
		UI: UIConfig{
			Mode:     "auto",
			MaxSteps: 8,
			Tick:     100 * time.Millisecond,
		},
		Lock: LockConfig{
			Force:      false,
			StaleAfter: 30 * time.Second,
			Retries:    3,
			RetryDelay: 2 * time.Second,
			Heartbeat:  5 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		NPM: NPMConfig{
			Registry:    "https://registry.npmjs.org",
			Concurrency: 8,
			TTL:         2 * time.Hour,
		},
		GitHub: GitHubConfig{
			API:         "https://api.github.com",
			Concurrency: 4,
		},
		Seeds: SeedsConfig{
			Hosts:       []string{"hs-mainnet.bcoin.ninja", "seed.htools.work"},
			Port:        12038,
			Timeout:     3 * time.Second,
			Concurrency: 16,
			TTL:         30 * time.Minute,
		},
	}
}

// SetDefaults registers default values with viper. Durations are registered
// in their string form so `config show` prints them readably.
func SetDefaults() {
	defaults := Default()

	viper.SetDefault("workdir", defaults.Workdir)

	// Cache defaults
	viper.SetDefault("cache.enabled", defaults.Cache.Enabled)
	viper.SetDefault("cache.dir", defaults.Cache.Dir)
	viper.SetDefault("cache.ttl", defaults.Cache.TTL.String())

	// UI defaults
	viper.SetDefault("ui.mode", defaults.UI.Mode)
	viper.SetDefault("ui.max_steps", defaults.UI.MaxSteps)
	viper.SetDefault("ui.tick", defaults.UI.Tick.String())

	// Lock defaults
	viper.SetDefault("lock.force", defaults.Lock.Force)
	viper.SetDefault("lock.stale_after", defaults.Lock.StaleAfter.String())
	viper.SetDefault("lock.retries", defaults.Lock.Retries)
	viper.SetDefault("lock.retry_delay", defaults.Lock.RetryDelay.String())
	viper.SetDefault("lock.heartbeat", defaults.Lock.Heartbeat.String())

	// Logging defaults
	viper.SetDefault("logging.level", defaults.Logging.Level)

	// npm defaults
	viper.SetDefault("npm.registry", defaults.NPM.Registry)
	viper.SetDefault("npm.concurrency", defaults.NPM.Concurrency)
	viper.SetDefault("npm.ttl", defaults.NPM.TTL.String())

	// GitHub defaults
	viper.SetDefault("github.api", defaults.GitHub.API)
	viper.SetDefault("github.token", defaults.GitHub.Token)
	viper.SetDefault("github.concurrency", defaults.GitHub.Concurrency)
	viper.SetDefault("github.repo", defaults.GitHub.Repo)

	// Seeds defaults
	viper.SetDefault("seeds.hosts", defaults.Seeds.Hosts)
	viper.SetDefault("seeds.port", defaults.Seeds.Port)
	viper.SetDefault("seeds.timeout", defaults.Seeds.Timeout.String())
	viper.SetDefault("seeds.concurrency", defaults.Seeds.Concurrency)
	viper.SetDefault("seeds.ttl", defaults.Seeds.TTL.String())
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ResolveWorkdir returns the absolute working directory.
func (c *Config) ResolveWorkdir() (string, error) {
	dir := c.Workdir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		dir = wd
	}
	return filepath.Abs(dir)
}

// StateDir returns the directory holding cache, lock and log for workdir.
func (c *Config) StateDir(workdir string) string {
	dir := c.Cache.Dir
	if dir == "" {
		dir = StateDirName
	}
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(workdir, dir)
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "hs-tools")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return StateDirName
	}
	return filepath.Join(home, ".config", "hs-tools")
}

// ConfigFile returns the path to the user config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// Redacted is shown in place of secrets.
const Redacted = "<redacted>"

// Effective returns every setting viper knows about, with secrets redacted.
func Effective() map[string]any {
	settings := viper.AllSettings()
	if gh, ok := settings["github"].(map[string]any); ok {
		if tok, _ := gh["token"].(string); tok != "" {
			gh["token"] = Redacted
		}
	}
	return settings
}
