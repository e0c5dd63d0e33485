// Package config loads the shelfkeeper configuration file.
//
// The file is YAML. ${VAR} references are expanded from the environment
// after .env and .env.local have been loaded, defaults are applied per
// section, and the result is validated before use.
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/shelfkeeper/internal/foundation/errors"
)

// Version is the configuration format version this build reads.
const Version = "1.0"

// Config is the complete shelfkeeper configuration.
type Config struct {
	Version  string         `yaml:"version"`
	DataDir  string         `yaml:"data_dir"`
	Registry RegistryConfig `yaml:"registry"`
	Shelf    ShelfConfig    `yaml:"shelf"`
	Owners   OwnersConfig   `yaml:"owners"`
	Journal  JournalConfig  `yaml:"journal"`
	Relay    RelayConfig    `yaml:"relay"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// RegistryConfig controls persistence of tracked shelf locations.
type RegistryConfig struct {
	File          string        `yaml:"file"`           // Relative to data_dir unless absolute
	Debounce      time.Duration `yaml:"debounce"`       // Delay before a change is written out
	ShutdownGrace time.Duration `yaml:"shutdown_grace"` // Wait for an in-flight write on shutdown
}

// ShelfConfig tunes shelf operations.
type ShelfConfig struct {
	DeleteSettle time.Duration `yaml:"delete_settle"`
}

// OwnersConfig locates owner data and sizes owner containers.
type OwnersConfig struct {
	PlayerDataDir  string `yaml:"playerdata_dir"`
	Usercache      string `yaml:"usercache"`
	PrimarySlots   int    `yaml:"primary_slots"`
	SecondarySlots int    `yaml:"secondary_slots"`
}

// JournalConfig controls the operation journal.
type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// RelayConfig controls forwarding of push events to NATS. An empty URL disables it.
type RelayConfig struct {
	NATSURL       string `yaml:"nats_url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
	Path    string `yaml:"path"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// Load reads, expands, defaults and validates the file at path.
func Load(path string) (*Config, error) {
	loadEnvFiles()

	// #nosec G304 -- path is provided by the operator
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ferrors.ConfigError("configuration file not found").
			WithContext("path", path).
			Build()
	}
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "read configuration file").
			WithContext("path", path).
			Fatal().
			Build()
	}
	return Parse(data, filepath.Dir(path))
}

// Parse decodes data. Relative paths resolve against baseDir.
func Parse(data []byte, baseDir string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "parse configuration").Fatal().Build()
	}
	if cfg.Version == "" {
		cfg.Version = Version
	}
	if cfg.Version != Version {
		return nil, ferrors.ConfigError("unsupported configuration version").
			WithContext("version", cfg.Version).
			WithContext("expected", Version).
			Build()
	}
	if err := ApplyDefaults(&cfg, baseDir); err != nil {
		return nil, err
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a configuration with every default applied, for running
// without a file.
func Default(baseDir string) *Config {
	cfg := &Config{Version: Version}
	_ = ApplyDefaults(cfg, baseDir)
	return cfg
}

// Init writes an example configuration to path.
func Init(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return ferrors.ConfigError("configuration file already exists (use --force to overwrite)").
			WithContext("path", path).
			Build()
	}
	example := Config{
		Version: Version,
		DataDir: "./plugins/shelfkeeper",
		Registry: RegistryConfig{
			File:          "bookshelves.yml",
			Debounce:      DefaultRegistryDebounce,
			ShutdownGrace: DefaultRegistryShutdownGrace,
		},
		Shelf: ShelfConfig{DeleteSettle: DefaultDeleteSettle},
		Owners: OwnersConfig{
			PlayerDataDir:  "./world/playerdata",
			Usercache:      "./usercache.json",
			PrimarySlots:   DefaultPrimarySlots,
			SecondarySlots: DefaultSecondarySlots,
		},
		Journal: JournalConfig{Enabled: true, Path: "journal.db"},
		Relay:   RelayConfig{NATSURL: "${SHELFKEEPER_NATS_URL}", SubjectPrefix: DefaultSubjectPrefix},
		Metrics: MetricsConfig{Enabled: false, Listen: DefaultMetricsListen, Path: DefaultMetricsPath},
		Logging: LoggingConfig{Level: LogLevelInfo, Format: LogFormatText},
	}
	data, err := yaml.Marshal(&example)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryInternal, "marshal example configuration").Build()
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "write configuration file").
			WithContext("path", path).
			Build()
	}
	return nil
}
