// Package config loads and persists agrovihan settings.
//
// Settings live in $AGROVIHAN_HOME/config.yaml (default ~/.agrovihan). A
// missing file is not an error: defaults apply. Environment variables
// override the file for the few settings that are commonly changed per run.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/agrovihan/agrovihan/internal/logging"
)

// Defaults.
const (
	DefaultOutputFormat  = "table"
	DefaultProbeInterval = 15 * time.Second
	DefaultProbeTimeout  = 3 * time.Second

	configFileName = "config.yaml"
	queueDirName   = "queue"
	ledgerFileName = "ledger.db"
)

// Environment variables.
const (
	EnvHome      = "AGROVIHAN_HOME"
	EnvLogLevel  = "AGROVIHAN_LOG_LEVEL"
	EnvLogFormat = "AGROVIHAN_LOG_FORMAT"
	EnvOffline   = "AGROVIHAN_OFFLINE"
)

// Sentinel errors.
var (
	ErrUnknownKey   = errors.New("unknown config key")
	ErrInvalidValue = errors.New("invalid config value")
)

// Config is the full set of settings.
type Config struct {
	Storage  StorageConfig  `yaml:"storage"`
	Sync     SyncConfig     `yaml:"sync"`
	Identity IdentityConfig `yaml:"identity"`
	Output   OutputConfig   `yaml:"output"`
	Logging  LoggingConfig  `yaml:"logging"`

	path string
}

// StorageConfig locates local data.
type StorageConfig struct {
	QueueDir   string `yaml:"queue_dir"`
	LedgerPath string `yaml:"ledger_path"`
}

// SyncConfig controls uploads and connectivity detection.
type SyncConfig struct {
	RemoveAfterSync bool `yaml:"remove_after_sync"`
	// ProbeAddress is a host:port dialed to detect connectivity. When empty
	// connectivity is set manually (see Offline).
	ProbeAddress  string        `yaml:"probe_address"`
	ProbeInterval time.Duration `yaml:"probe_interval"`
	ProbeTimeout  time.Duration `yaml:"probe_timeout"`
	// Offline starts a manually driven session offline.
	Offline bool `yaml:"offline"`
}

// IdentityConfig holds the defaults for --email and --username.
type IdentityConfig struct {
	Email    string `yaml:"email"`
	Username string `yaml:"username"`
}

// OutputConfig controls rendering.
type OutputConfig struct {
	DefaultFormat string `yaml:"default_format"`
}

// LoggingConfig mirrors logging.Config in YAML form.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// Defaults returns a Config rooted at dir with every default applied.
func Defaults(dir string) *Config {
	return &Config{
		Storage: StorageConfig{
			QueueDir:   filepath.Join(dir, queueDirName),
			LedgerPath: filepath.Join(dir, ledgerFileName),
		},
		Sync: SyncConfig{
			ProbeInterval: DefaultProbeInterval,
			ProbeTimeout:  DefaultProbeTimeout,
		},
		Output: OutputConfig{DefaultFormat: DefaultOutputFormat},
		Logging: LoggingConfig{
			Level:  logging.DefaultLevel,
			Format: logging.FormatConsole,
		},
		path: filepath.Join(dir, configFileName),
	}
}

// New returns the configuration from the config directory, falling back to
// defaults when the file is missing or unreadable.
func New() *Config {
	dir, err := GetConfigDir()
	if err != nil {
		dir = ".agrovihan"
	}
	cfg, err := Load(filepath.Join(dir, configFileName))
	if err != nil {
		cfg = Defaults(dir)
		cfg.applyEnv()
	}
	return cfg
}

// Load reads path on top of defaults rooted at path's directory. A missing
// file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Defaults(filepath.Dir(path))
	cfg.path = path

	if _, err := os.Stat(path); err == nil {
		if mergeErr := ShallowMergeYAML(cfg, path); mergeErr != nil {
			return nil, mergeErr
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg.applyEnv()
	return cfg, nil
}

// Path is the file Save writes to.
func (c *Config) Path() string { return c.path }

// Save writes the configuration to Path, creating its directory.
func (c *Config) Save() error {
	if c.path == "" {
		return errors.New("config has no file path")
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	tmp := c.path + ".tmp"
	if err = os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	if err = os.Rename(tmp, c.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Validate checks values that cannot be checked by type alone.
func (c *Config) Validate() error {
	var errs []error

	if c.Storage.QueueDir == "" {
		errs = append(errs, fmt.Errorf("%w: storage.queue_dir is empty", ErrInvalidValue))
	}
	if c.Storage.LedgerPath == "" {
		errs = append(errs, fmt.Errorf("%w: storage.ledger_path is empty", ErrInvalidValue))
	}
	switch c.Output.DefaultFormat {
	case "table", "json":
	default:
		errs = append(errs, fmt.Errorf("%w: output.default_format %q (want table or json)",
			ErrInvalidValue, c.Output.DefaultFormat))
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(c.Logging.Level)); err != nil {
		errs = append(errs, fmt.Errorf("%w: logging.level: %w", ErrInvalidValue, err))
	}
	switch c.Logging.Format {
	case logging.FormatConsole, logging.FormatJSON:
	default:
		errs = append(errs, fmt.Errorf("%w: logging.format %q", ErrInvalidValue, c.Logging.Format))
	}
	if c.Sync.ProbeAddress != "" {
		if c.Sync.ProbeInterval <= 0 {
			errs = append(errs, fmt.Errorf("%w: sync.probe_interval must be positive", ErrInvalidValue))
		}
		if c.Sync.ProbeTimeout <= 0 {
			errs = append(errs, fmt.Errorf("%w: sync.probe_timeout must be positive", ErrInvalidValue))
		}
	}

	return errors.Join(errs...)
}

// applyEnv applies environment overrides.
func (c *Config) applyEnv() {
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv(EnvOffline); v != "" {
		if offline, err := strconv.ParseBool(v); err == nil {
			c.Sync.Offline = offline
		}
	}
}

// field is a dotted-key accessor used by Get and Set.
type field struct {
	get func(*Config) string
	set func(*Config, string) error
}

func stringField(ptr func(*Config) *string) field {
	return field{
		get: func(c *Config) string { return *ptr(c) },
		set: func(c *Config, v string) error {
			*ptr(c) = v
			return nil
		},
	}
}

func boolField(ptr func(*Config) *bool) field {
	return field{
		get: func(c *Config) string { return strconv.FormatBool(*ptr(c)) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%w: %q is not a boolean", ErrInvalidValue, v)
			}
			*ptr(c) = b
			return nil
		},
	}
}

func durationField(ptr func(*Config) *time.Duration) field {
	return field{
		get: func(c *Config) string { return ptr(c).String() },
		set: func(c *Config, v string) error {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%w: %q is not a duration", ErrInvalidValue, v)
			}
			*ptr(c) = d
			return nil
		},
	}
}

//nolint:gochecknoglobals // Static lookup table of settable keys.
var fields = map[string]field{
	"storage.queue_dir":      stringField(func(c *Config) *string { return &c.Storage.QueueDir }),
	"storage.ledger_path":    stringField(func(c *Config) *string { return &c.Storage.LedgerPath }),
	"sync.remove_after_sync": boolField(func(c *Config) *bool { return &c.Sync.RemoveAfterSync }),
	"sync.probe_address":     stringField(func(c *Config) *string { return &c.Sync.ProbeAddress }),
	"sync.probe_interval":    durationField(func(c *Config) *time.Duration { return &c.Sync.ProbeInterval }),
	"sync.probe_timeout":     durationField(func(c *Config) *time.Duration { return &c.Sync.ProbeTimeout }),
	"sync.offline":           boolField(func(c *Config) *bool { return &c.Sync.Offline }),
	"identity.email":         stringField(func(c *Config) *string { return &c.Identity.Email }),
	"identity.username":      stringField(func(c *Config) *string { return &c.Identity.Username }),
	"output.default_format":  stringField(func(c *Config) *string { return &c.Output.DefaultFormat }),
	"logging.level":          stringField(func(c *Config) *string { return &c.Logging.Level }),
	"logging.format":         stringField(func(c *Config) *string { return &c.Logging.Format }),
	"logging.file":           stringField(func(c *Config) *string { return &c.Logging.File }),
}

// Keys returns every dotted key accepted by Get and Set, sorted.
func Keys() []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the value of a dotted key such as "sync.probe_address".
func (c *Config) Get(key string) (string, error) {
	f, ok := fields[strings.ToLower(key)]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	return f.get(c), nil
}

// Set assigns a dotted key from its string form.
func (c *Config) Set(key, value string) error {
	f, ok := fields[strings.ToLower(key)]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	return f.set(c, value)
}

// List returns every key with its current value.
func (c *Config) List() map[string]string {
	out := make(map[string]string, len(fields))
	for k, f := range fields {
		out[k] = f.get(c)
	}
	return out
}
