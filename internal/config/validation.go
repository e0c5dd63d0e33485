package config

import (
	"net/url"
	"strings"
	"time"

	ferrors "git.home.luguber.info/inful/shelfkeeper/internal/foundation/errors"
)

// maxOwnerSlots bounds container sizes to what an owner file can address.
const maxOwnerSlots = 100

// Validate checks a defaulted configuration.
func Validate(cfg *Config) error {
	checks := []func(*Config) error{
		validateRegistry,
		validateOwners,
		validateRelay,
		validateMetrics,
	}
	for _, check := range checks {
		if err := check(cfg); err != nil {
			return err
		}
	}
	return nil
}

func validateRegistry(cfg *Config) error {
	if cfg.Registry.ShutdownGrace < cfg.Registry.Debounce/10 {
		return ferrors.ConfigError("registry.shutdown_grace is too short for the debounce window").
			WithContext("debounce", cfg.Registry.Debounce.String()).
			WithContext("shutdown_grace", cfg.Registry.ShutdownGrace.String()).
			Build()
	}
	if cfg.Shelf.DeleteSettle > 5*time.Second {
		return ferrors.ConfigError("shelf.delete_settle must not exceed 5s").
			WithContext("delete_settle", cfg.Shelf.DeleteSettle.String()).
			Build()
	}
	return nil
}

func validateOwners(cfg *Config) error {
	if cfg.Owners.PrimarySlots > maxOwnerSlots || cfg.Owners.SecondarySlots > maxOwnerSlots {
		return ferrors.ConfigError("owner container sizes must not exceed 100 slots").
			WithContext("primary_slots", cfg.Owners.PrimarySlots).
			WithContext("secondary_slots", cfg.Owners.SecondarySlots).
			Build()
	}
	return nil
}

func validateRelay(cfg *Config) error {
	if cfg.Relay.NATSURL == "" {
		return nil
	}
	for _, raw := range strings.Split(cfg.Relay.NATSURL, ",") {
		u, err := url.Parse(strings.TrimSpace(raw))
		if err != nil || u.Host == "" {
			return ferrors.ConfigError("relay.nats_url must be a nats:// URL list").
				WithContext("nats_url", cfg.Relay.NATSURL).
				Build()
		}
	}
	if strings.ContainsAny(cfg.Relay.SubjectPrefix, " *>") {
		return ferrors.ConfigError("relay.subject_prefix must not contain spaces or wildcards").
			WithContext("subject_prefix", cfg.Relay.SubjectPrefix).
			Build()
	}
	return nil
}

func validateMetrics(cfg *Config) error {
	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return ferrors.ConfigError("metrics.path must start with /").
			WithContext("path", cfg.Metrics.Path).
			Build()
	}
	return nil
}
