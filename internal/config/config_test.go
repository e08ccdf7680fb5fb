//nolint:goconst // test cases intentionally repeat strings for readability
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("Could not get home dir: %v", err)
	}

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "tilde expands to home",
			input:    "~/music",
			expected: filepath.Join(home, "music"),
		},
		{
			name:     "absolute path unchanged",
			input:    "/srv/audio",
			expected: "/srv/audio",
		},
		{
			name:     "relative path unchanged",
			input:    "music/jingles",
			expected: "music/jingles",
		},
		{
			name:     "empty string unchanged",
			input:    "",
			expected: "",
		},
		{
			name:     "tilde only",
			input:    "~",
			expected: home,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := expandPath(tt.input)
			if result != tt.expected {
				t.Errorf("expandPath(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestGetConfigPaths(t *testing.T) {
	paths := getConfigPaths()

	if len(paths) == 0 {
		t.Fatal("getConfigPaths() returned empty slice")
	}

	lastPath := paths[len(paths)-1]
	if lastPath != "config.toml" {
		t.Errorf("last config path = %q, want %q", lastPath, "config.toml")
	}

	if home, err := os.UserHomeDir(); err == nil {
		expectedFirst := filepath.Join(home, ".config", "deckcast", "config.toml")
		if paths[0] != expectedFirst {
			t.Errorf("first config path = %q, want %q", paths[0], expectedFirst)
		}
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
[decks]
count = 3
buffer_seconds = 8

[auto_advance]
enabled = true
max_attempts = 10

[output]
backend = "WAV"
record_dir = "/tmp/takes"
paced = false

[[library.sources]]
name = "main"
path = "/srv/music"

[[library.sources]]
name = "jingles"
path = "/srv/jingles"
auto_advance = false

[log]
level = "DEBUG"
format = "json"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	decks := cfg.GetDecksConfig()
	assert.Equal(t, 3, decks.Count)
	assert.Equal(t, 8, decks.BufferSeconds)

	aa := cfg.GetAutoAdvanceConfig()
	assert.True(t, aa.Enabled)
	assert.Equal(t, 10, aa.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, aa.Settle())

	out := cfg.GetOutputConfig()
	assert.Equal(t, "wav", out.Backend)
	assert.Equal(t, "/tmp/takes", out.RecordDir)
	assert.False(t, out.IsPaced())

	require.Len(t, cfg.Library.Sources, 2)
	assert.True(t, cfg.Library.Sources[0].IsAutoAdvance())
	assert.False(t, cfg.Library.Sources[1].IsAutoAdvance())

	logCfg := cfg.GetLogConfig()
	assert.Equal(t, "debug", logCfg.Level)
	assert.Equal(t, "json", logCfg.Format)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestLoad_RejectsUnknownBackend(t *testing.T) {
	_, err := Load(writeConfig(t, "[output]\nbackend = \"alsa\"\n"))
	assert.ErrorContains(t, err, "unknown backend")
}

func TestLoad_RejectsDuplicateSource(t *testing.T) {
	_, err := Load(writeConfig(t, `
[[library.sources]]
name = "a"
path = "/x"
[[library.sources]]
name = "a"
path = "/y"
`))
	assert.ErrorContains(t, err, "duplicate")
}

func TestDefaults(t *testing.T) {
	cfg := &Config{}

	decks := cfg.GetDecksConfig()
	assert.Equal(t, 2, decks.Count)
	assert.Equal(t, 5, decks.BufferSeconds)

	aa := cfg.GetAutoAdvanceConfig()
	assert.False(t, aa.Enabled)
	assert.Equal(t, 25, aa.MaxAttempts)
	assert.Equal(t, 500, aa.SettleMs)

	out := cfg.GetOutputConfig()
	assert.Equal(t, "speaker", out.Backend)
	assert.Equal(t, 44100, out.SampleRate)
	assert.Equal(t, 100*time.Millisecond, out.Buffer())
	assert.True(t, out.IsPaced())

	logCfg := cfg.GetLogConfig()
	assert.Equal(t, "info", logCfg.Level)
	assert.Equal(t, "text", logCfg.Format)
}

func TestGetDecksConfig_ClampsOutOfRange(t *testing.T) {
	cfg := &Config{Decks: DecksConfig{Count: 42, BufferSeconds: -1}}
	decks := cfg.GetDecksConfig()
	assert.Equal(t, 2, decks.Count)
	assert.Equal(t, 5, decks.BufferSeconds)
}
