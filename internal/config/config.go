package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Decks       DecksConfig       `koanf:"decks"`
	AutoAdvance AutoAdvanceConfig `koanf:"auto_advance"`
	Output      OutputConfig      `koanf:"output"`
	Cache       CacheConfig       `koanf:"cache"`
	Library     LibraryConfig     `koanf:"library"`
	Log         LogConfig         `koanf:"log"`
}

// DecksConfig sizes the deck pool.
type DecksConfig struct {
	Count         int `koanf:"count"`          // number of decks (1-8, default: 2)
	BufferSeconds int `koanf:"buffer_seconds"` // ring buffer window per deck (1-30, default: 5)
}

// AutoAdvanceConfig holds the automatic next-track settings.
type AutoAdvanceConfig struct {
	Enabled     bool `koanf:"enabled"`      // initial state of the global toggle
	MaxAttempts int  `koanf:"max_attempts"` // candidate picks before giving up (default: 25)
	SettleMs    int  `koanf:"settle_ms"`    // fallback wait for the next deck to start (default: 500)
}

// OutputConfig selects the audio sink backend.
type OutputConfig struct {
	Backend    string `koanf:"backend"`     // "speaker", "wav" or "discard" (default: "speaker")
	SampleRate int    `koanf:"sample_rate"` // speaker mixing rate (default: 44100)
	BufferMs   int    `koanf:"buffer_ms"`   // speaker device buffer (default: 100)
	RecordDir  string `koanf:"record_dir"`  // wav backend output directory (default: ./recordings)
	Paced      *bool  `koanf:"paced"`       // wav/discard write at real-time speed (default: true)
}

// CacheConfig locates the remote audio cache.
type CacheConfig struct {
	Dir string `koanf:"dir"` // empty means $XDG_CACHE_HOME/deckcast/audio
}

// LibraryConfig locates the catalog and its sources.
type LibraryConfig struct {
	Database string         `koanf:"database"` // empty means $XDG_DATA_HOME/deckcast/deckcast.db
	Sources  []SourceConfig `koanf:"sources"`
}

// SourceConfig is one library source directory.
type SourceConfig struct {
	Name        string `koanf:"name"`
	Path        string `koanf:"path"`
	AutoAdvance *bool  `koanf:"auto_advance"` // eligible for random auto-advance picks (default: true)
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string `koanf:"level"`  // "debug", "info", "warn", "error" (default: "info")
	Format string `koanf:"format"` // "text" or "json" (default: "text")
}

// Load reads path, or the default locations when path is empty.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, err
		}
	} else {
		// Try config files in order of priority (last wins)
		for _, p := range getConfigPaths() {
			if _, err := os.Stat(p); err == nil {
				if err := k.Load(file.Provider(p), toml.Parser()); err != nil {
					return nil, err
				}
			}
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	cfg.Cache.Dir = expandPath(cfg.Cache.Dir)
	cfg.Library.Database = expandPath(cfg.Library.Database)
	cfg.Output.RecordDir = expandPath(cfg.Output.RecordDir)
	for i := range cfg.Library.Sources {
		cfg.Library.Sources[i].Path = expandPath(cfg.Library.Sources[i].Path)
	}
	cfg.Output.Backend = strings.ToLower(strings.TrimSpace(cfg.Output.Backend))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings no default can repair.
func (c *Config) Validate() error {
	switch c.Output.Backend {
	case "", "speaker", "wav", "discard":
	default:
		return fmt.Errorf("output.backend: unknown backend %q", c.Output.Backend)
	}
	seen := make(map[string]bool)
	for i, s := range c.Library.Sources {
		if s.Name == "" || s.Path == "" {
			return fmt.Errorf("library.sources[%d]: name and path are required", i)
		}
		if seen[s.Name] {
			return fmt.Errorf("library.sources[%d]: duplicate name %q", i, s.Name)
		}
		seen[s.Name] = true
	}
	return nil
}

func getConfigPaths() []string {
	paths := []string{}

	// 1. ~/.config/deckcast/config.toml
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "deckcast", "config.toml"))
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

// GetDecksConfig returns the deck configuration with defaults applied.
func (c *Config) GetDecksConfig() DecksConfig {
	cfg := c.Decks
	if cfg.Count <= 0 || cfg.Count > 8 {
		cfg.Count = 2
	}
	if cfg.BufferSeconds <= 0 || cfg.BufferSeconds > 30 {
		cfg.BufferSeconds = 5
	}
	return cfg
}

// GetAutoAdvanceConfig returns the auto-advance configuration with defaults applied.
func (c *Config) GetAutoAdvanceConfig() AutoAdvanceConfig {
	cfg := c.AutoAdvance
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 25
	}
	if cfg.SettleMs <= 0 {
		cfg.SettleMs = 500
	}
	return cfg
}

// Settle is the settle fallback as a duration.
func (c AutoAdvanceConfig) Settle() time.Duration {
	return time.Duration(c.SettleMs) * time.Millisecond
}

// GetOutputConfig returns the output configuration with defaults applied.
func (c *Config) GetOutputConfig() OutputConfig {
	cfg := c.Output
	if cfg.Backend == "" {
		cfg.Backend = "speaker"
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 44100
	}
	if cfg.BufferMs <= 0 {
		cfg.BufferMs = 100
	}
	if cfg.RecordDir == "" {
		cfg.RecordDir = "recordings"
	}
	if cfg.Paced == nil {
		paced := true
		cfg.Paced = &paced
	}
	return cfg
}

// Buffer is the speaker device buffer as a duration.
func (c OutputConfig) Buffer() time.Duration {
	return time.Duration(c.BufferMs) * time.Millisecond
}

// IsPaced reports whether wav/discard sinks write in real time.
func (c OutputConfig) IsPaced() bool {
	return c.Paced == nil || *c.Paced
}

// IsAutoAdvance reports whether the source feeds random auto-advance picks.
func (s SourceConfig) IsAutoAdvance() bool {
	return s.AutoAdvance == nil || *s.AutoAdvance
}

// GetLogConfig returns the logging configuration with defaults applied.
func (c *Config) GetLogConfig() LogConfig {
	cfg := c.Log
	cfg.Level = strings.ToLower(cfg.Level)
	if cfg.Level == "" {
		cfg.Level = "info"
	}
	cfg.Format = strings.ToLower(cfg.Format)
	if cfg.Format != "json" {
		cfg.Format = "text"
	}
	return cfg
}
