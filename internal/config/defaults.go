package config

import (
	"path/filepath"
	"time"
)

// Defaults.
const (
	DefaultDataDir               = "."
	DefaultRegistryFile          = "bookshelves.yml"
	DefaultRegistryDebounce      = 5 * time.Second
	DefaultRegistryShutdownGrace = 6 * time.Second
	DefaultDeleteSettle          = 100 * time.Millisecond
	DefaultPrimarySlots          = 36
	DefaultSecondarySlots        = 27
	DefaultJournalFile           = "journal.db"
	DefaultSubjectPrefix         = "shelfkeeper.events"
	DefaultMetricsListen         = ":9464"
	DefaultMetricsPath           = "/metrics"
)

// DefaultApplier fills in one configuration section.
type DefaultApplier interface {
	ApplyDefaults(cfg *Config, baseDir string) error
	Domain() string
}

type pathDefaults struct{}

func (pathDefaults) Domain() string { return "paths" }

func (pathDefaults) ApplyDefaults(cfg *Config, baseDir string) error {
	if cfg.DataDir == "" {
		cfg.DataDir = DefaultDataDir
	}
	cfg.DataDir = resolve(baseDir, cfg.DataDir)
	if cfg.Registry.File == "" {
		cfg.Registry.File = DefaultRegistryFile
	}
	cfg.Registry.File = resolve(cfg.DataDir, cfg.Registry.File)
	if cfg.Journal.Path == "" {
		cfg.Journal.Path = DefaultJournalFile
	}
	cfg.Journal.Path = resolve(cfg.DataDir, cfg.Journal.Path)
	if cfg.Owners.PlayerDataDir != "" {
		cfg.Owners.PlayerDataDir = resolve(baseDir, cfg.Owners.PlayerDataDir)
	}
	if cfg.Owners.Usercache != "" {
		cfg.Owners.Usercache = resolve(baseDir, cfg.Owners.Usercache)
	}
	return nil
}

type timingDefaults struct{}

func (timingDefaults) Domain() string { return "timing" }

func (timingDefaults) ApplyDefaults(cfg *Config, _ string) error {
	if cfg.Registry.Debounce <= 0 {
		cfg.Registry.Debounce = DefaultRegistryDebounce
	}
	if cfg.Registry.ShutdownGrace <= 0 {
		cfg.Registry.ShutdownGrace = DefaultRegistryShutdownGrace
	}
	if cfg.Shelf.DeleteSettle <= 0 {
		cfg.Shelf.DeleteSettle = DefaultDeleteSettle
	}
	return nil
}

type ownerDefaults struct{}

func (ownerDefaults) Domain() string { return "owners" }

func (ownerDefaults) ApplyDefaults(cfg *Config, _ string) error {
	if cfg.Owners.PrimarySlots <= 0 {
		cfg.Owners.PrimarySlots = DefaultPrimarySlots
	}
	if cfg.Owners.SecondarySlots <= 0 {
		cfg.Owners.SecondarySlots = DefaultSecondarySlots
	}
	return nil
}

type outputDefaults struct{}

func (outputDefaults) Domain() string { return "output" }

func (outputDefaults) ApplyDefaults(cfg *Config, _ string) error {
	if cfg.Relay.SubjectPrefix == "" {
		cfg.Relay.SubjectPrefix = DefaultSubjectPrefix
	}
	if cfg.Metrics.Listen == "" {
		cfg.Metrics.Listen = DefaultMetricsListen
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}
	cfg.Logging.Level = NormalizeLogLevel(string(cfg.Logging.Level))
	cfg.Logging.Format = NormalizeLogFormat(string(cfg.Logging.Format))
	return nil
}

var appliers = []DefaultApplier{pathDefaults{}, timingDefaults{}, ownerDefaults{}, outputDefaults{}}

// ApplyDefaults fills every unset field. Relative paths resolve against baseDir.
func ApplyDefaults(cfg *Config, baseDir string) error {
	for _, a := range appliers {
		if err := a.ApplyDefaults(cfg, baseDir); err != nil {
			return err
		}
	}
	return nil
}

func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) || base == "" {
		return p
	}
	return filepath.Join(base, p)
}
