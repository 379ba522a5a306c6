package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults("/home/farmer/.agrovihan")

	assert.Equal(t, "/home/farmer/.agrovihan/queue", cfg.Storage.QueueDir)
	assert.Equal(t, "/home/farmer/.agrovihan/ledger.db", cfg.Storage.LedgerPath)
	assert.Equal(t, "/home/farmer/.agrovihan/config.yaml", cfg.Path())
	assert.Equal(t, DefaultProbeInterval, cfg.Sync.ProbeInterval)
	assert.Equal(t, "table", cfg.Output.DefaultFormat)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	t.Setenv(EnvLogLevel, "")
	t.Setenv(EnvLogFormat, "")
	t.Setenv(EnvOffline, "")
	dir := t.TempDir()

	cfg, err := Load(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults(dir).Storage, cfg.Storage)
}

func TestSaveThenLoad(t *testing.T) {
	t.Setenv(EnvLogLevel, "")
	t.Setenv(EnvOffline, "")
	dir := t.TempDir()

	cfg := Defaults(dir)
	cfg.Identity.Email = "farmer@example.com"
	cfg.Sync.ProbeAddress = "ledger.example:443"
	cfg.Sync.ProbeInterval = time.Minute
	cfg.Sync.RemoveAfterSync = true
	require.NoError(t, cfg.Save())

	loaded, err := Load(cfg.Path())
	require.NoError(t, err)
	assert.Equal(t, cfg.Identity, loaded.Identity)
	assert.Equal(t, cfg.Sync, loaded.Sync)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvLogFormat, "json")
	t.Setenv(EnvOffline, "true")

	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.True(t, cfg.Sync.Offline)
}

func TestLoad_MalformedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	cfg := Defaults(dir)
	require.NoError(t, cfg.Save())
	require.NoError(t, writeFile(path, "storage: [oops"))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestNew_UsesConfigDir(t *testing.T) {
	home := stubHome(t)
	seed := Defaults(home)
	seed.Identity.Username = "ravi"
	require.NoError(t, seed.Save())

	cfg := New()
	assert.Equal(t, "ravi", cfg.Identity.Username)
	assert.Equal(t, filepath.Join(home, "config.yaml"), cfg.Path())
}

func TestGetSet(t *testing.T) {
	cfg := Defaults(t.TempDir())

	tests := []struct {
		key   string
		value string
		want  string
	}{
		{"identity.email", "farmer@example.com", "farmer@example.com"},
		{"sync.remove_after_sync", "true", "true"},
		{"sync.probe_interval", "45s", "45s"},
		{"Output.Default_Format", "json", "json"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			require.NoError(t, cfg.Set(tt.key, tt.value))
			got, err := cfg.Get(tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("unknown key", func(t *testing.T) {
		_, err := cfg.Get("plugins.aws")
		require.ErrorIs(t, err, ErrUnknownKey)
		require.ErrorIs(t, cfg.Set("plugins.aws", "x"), ErrUnknownKey)
	})

	t.Run("bad values", func(t *testing.T) {
		assert.ErrorIs(t, cfg.Set("sync.offline", "maybe"), ErrInvalidValue)
		assert.ErrorIs(t, cfg.Set("sync.probe_timeout", "soon"), ErrInvalidValue)
	})
}

func TestKeysAndList(t *testing.T) {
	cfg := Defaults("/data")
	keys := Keys()
	list := cfg.List()

	assert.Len(t, list, len(keys))
	assert.IsNonDecreasing(t, keys)
	assert.Equal(t, "/data/queue", list["storage.queue_dir"])
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"empty queue dir", func(c *Config) { c.Storage.QueueDir = "" }, "storage.queue_dir"},
		{"bad format", func(c *Config) { c.Output.DefaultFormat = "xml" }, "output.default_format"},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"bad log format", func(c *Config) { c.Logging.Format = "yaml" }, "logging.format"},
		{"zero probe interval", func(c *Config) {
			c.Sync.ProbeAddress = "ledger.example:443"
			c.Sync.ProbeInterval = 0
		}, "sync.probe_interval"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults("/data")
			tt.mutate(cfg)
			err := cfg.Validate()
			require.ErrorIs(t, err, ErrInvalidValue)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o600)
}
