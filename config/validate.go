package config

import (
	"fmt"
	"net/url"
	"strings"
)

var (
	logLevels   = []string{"debug", "info", "warn", "error"}
	storeLevels = []string{"silent", "error", "warn", "info"}
	permissions = []string{"granted", "denied", "prompt"}
)

// Validate performs business-rule validation on the loaded configuration.
// Load calls it automatically.
func (c *Config) Validate() error {
	if u, err := url.Parse(c.API.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api.base_url must be an absolute URL (got %q)", c.API.BaseURL)
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be > 0 (got %v)", c.API.Timeout)
	}
	if c.Validation.MaxAccuracyM <= 0 {
		return fmt.Errorf("validation.max_accuracy_m must be > 0 (got %v)", c.Validation.MaxAccuracyM)
	}
	if err := c.Replay.validate(); err != nil {
		return fmt.Errorf("replay: %w", err)
	}
	if !oneOf(c.Log.Level, logLevels) {
		return fmt.Errorf("log.level must be one of %v (got %q)", logLevels, c.Log.Level)
	}
	if !oneOf(c.Store.LogLevel, storeLevels) {
		return fmt.Errorf("store.log_level must be one of %v (got %q)", storeLevels, c.Store.LogLevel)
	}
	if !oneOf(c.Location.Permission, permissions) {
		return fmt.Errorf("location.permission must be one of %v (got %q)", permissions, c.Location.Permission)
	}
	return nil
}

func (r *ReplayConfig) validate() error {
	if r.Retention < 0 {
		return fmt.Errorf("retention must be >= 0 (got %v)", r.Retention)
	}
	if r.MaxAttempts < 0 {
		return fmt.Errorf("max_attempts must be >= 0 (got %d)", r.MaxAttempts)
	}
	if strings.TrimSpace(r.SyncTag) == "" {
		return fmt.Errorf("sync_tag is required")
	}
	if r.ProbeInterval <= 0 {
		return fmt.Errorf("probe_interval must be > 0 (got %v)", r.ProbeInterval)
	}
	return nil
}

func oneOf(v string, allowed []string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
