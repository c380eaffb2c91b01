package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"golang.org/x/text/language"
)

const appName = "shelves"

type Config struct {
	LibrarySources []string `koanf:"library_sources"` // directories forming the track catalog
	DBPath         string   `koanf:"db_path"`         // library store (default: XDG data dir)
	UnknownArtist  string   `koanf:"unknown_artist"`  // folder title for tracks without album artist
	Collation      string   `koanf:"collation"`       // BCP 47 tag for folder ordering

	Log    LogConfig    `koanf:"log"`
	Watch  WatchConfig  `koanf:"watch"`
	Notify NotifyConfig `koanf:"notify"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `koanf:"level"`  // "debug", "info", "warn", "error" (default: "info")
	Format string `koanf:"format"` // "json", "console" or "auto" (default: "auto")
}

// WatchConfig holds catalog watching configuration.
type WatchConfig struct {
	DebounceMS int `koanf:"debounce_ms"` // quiet period before a pass (default: 2000)
}

// NotifyConfig holds desktop notification configuration.
type NotifyConfig struct {
	Enabled bool `koanf:"enabled"`
}

// Load reads the config files in order of priority, last wins. A non-empty
// explicit path is loaded last and must exist.
func Load(explicit string) (*Config, error) {
	k := koanf.New(".")

	for _, path := range getConfigPaths() {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, fmt.Errorf("loading %s: %w", path, err)
			}
		}
	}
	if explicit != "" {
		if err := k.Load(file.Provider(expandPath(explicit)), toml.Parser()); err != nil {
			return nil, fmt.Errorf("loading %s: %w", explicit, err)
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	for i, src := range cfg.LibrarySources {
		cfg.LibrarySources[i] = expandPath(src)
	}
	if cfg.DBPath != "" {
		cfg.DBPath = expandPath(cfg.DBPath)
	}

	return cfg, nil
}

func getConfigPaths() []string {
	paths := []string{}

	// 1. ~/.config/shelves/config.toml
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", appName, "config.toml"))
	}

	// 2. ./config.toml (pwd, highest priority)
	paths = append(paths, "config.toml")

	return paths
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// HasLibrarySources returns true if at least one catalog directory is configured.
func (c *Config) HasLibrarySources() bool {
	return len(c.LibrarySources) > 0
}

// GetDBPath returns the store path, defaulting to the XDG data directory.
func (c *Config) GetDBPath() (string, error) {
	if c.DBPath != "" {
		return c.DBPath, nil
	}
	return xdg.DataFile(filepath.Join(appName, appName+".db"))
}

// GetUnknownArtist returns the unknown artist placeholder.
func (c *Config) GetUnknownArtist() string {
	if s := strings.TrimSpace(c.UnknownArtist); s != "" {
		return s
	}
	return "Unknown Artist"
}

// GetCollation returns the folder ordering language, falling back to the
// root collation for an empty or invalid tag.
func (c *Config) GetCollation() language.Tag {
	if c.Collation == "" {
		return language.Und
	}
	tag, err := language.Parse(c.Collation)
	if err != nil {
		return language.Und
	}
	return tag
}

// GetLogConfig returns the logging configuration with defaults applied.
func (c *Config) GetLogConfig() LogConfig {
	cfg := c.Log

	cfg.Level = strings.ToLower(strings.TrimSpace(cfg.Level))
	switch cfg.Level {
	case "debug", "info", "warn", "error":
	default:
		cfg.Level = "info"
	}

	cfg.Format = strings.ToLower(strings.TrimSpace(cfg.Format))
	switch cfg.Format {
	case "json", "console", "auto":
	default:
		cfg.Format = "auto"
	}

	return cfg
}

// GetWatchDebounce returns the watcher quiet period.
func (c *Config) GetWatchDebounce() time.Duration {
	if c.Watch.DebounceMS <= 0 {
		return 2 * time.Second
	}
	return time.Duration(c.Watch.DebounceMS) * time.Millisecond
}
