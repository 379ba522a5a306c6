package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrovihan/agrovihan/internal/config"
)

// writeConfig writes YAML content to a temp file and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestShallowMergeYAML_SectionOverride(t *testing.T) {
	target := config.Defaults("/data")
	path := writeConfig(t, `
output:
  default_format: json
`)

	require.NoError(t, config.ShallowMergeYAML(target, path))

	assert.Equal(t, "json", target.Output.DefaultFormat)
	assert.Equal(t, "/data/queue", target.Storage.QueueDir, "absent sections are untouched")
}

func TestShallowMergeYAML_KeepsDefaultsInsideSection(t *testing.T) {
	target := config.Defaults("/data")
	path := writeConfig(t, `
sync:
  probe_address: ledger.example:443
  probe_interval: 30s
`)

	require.NoError(t, config.ShallowMergeYAML(target, path))

	assert.Equal(t, "ledger.example:443", target.Sync.ProbeAddress)
	assert.Equal(t, 30*time.Second, target.Sync.ProbeInterval)
	assert.Equal(t, config.DefaultProbeTimeout, target.Sync.ProbeTimeout)
}

func TestShallowMergeYAML_IgnoresUnknownKeys(t *testing.T) {
	target := config.Defaults("/data")
	path := writeConfig(t, `
plugins:
  aws: {}
identity:
  email: farmer@example.com
`)

	require.NoError(t, config.ShallowMergeYAML(target, path))
	assert.Equal(t, "farmer@example.com", target.Identity.Email)
}

func TestShallowMergeYAML_Errors(t *testing.T) {
	tests := []struct {
		name    string
		target  *config.Config
		path    string
		wantErr string
	}{
		{
			name:    "nil target",
			target:  nil,
			path:    "unused",
			wantErr: "nil target",
		},
		{
			name:    "missing file",
			target:  config.Defaults("/data"),
			path:    filepath.Join(t.TempDir(), "missing.yaml"),
			wantErr: "reading config file",
		},
		{
			name:    "malformed yaml",
			target:  config.Defaults("/data"),
			path:    writeConfig(t, "output: [unclosed"),
			wantErr: "parsing config YAML",
		},
		{
			name:    "wrong section type",
			target:  config.Defaults("/data"),
			path:    writeConfig(t, "sync:\n  probe_interval: forever\n"),
			wantErr: `applying config section "sync"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := config.ShallowMergeYAML(tt.target, tt.path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestShallowMergeYAML_EmptyFile(t *testing.T) {
	target := config.Defaults("/data")
	require.NoError(t, config.ShallowMergeYAML(target, writeConfig(t, "# nothing\n")))
	assert.Equal(t, config.Defaults("/data").Output, target.Output)
}
