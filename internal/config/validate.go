// internal/config/validate.go
package config

import (
	"fmt"
	"net/url"
	"time"
)

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true, "": true,
}

// Validate checks the configuration for errors.
// Returns a slice of error messages (empty if valid).
func (c *Config) Validate() []string {
	var errs []string

	// Catalog validation
	if c.Catalog.URL == "" {
		errs = append(errs, "catalog.url: required")
	} else if u, err := url.Parse(c.Catalog.URL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Sprintf("catalog.url: not a valid URL: %q", c.Catalog.URL))
	}
	if c.Catalog.MaxRetries < 0 || c.Catalog.MaxRetries > 10 {
		errs = append(errs, fmt.Sprintf("catalog.max_retries: must be between 0 and 10, got %d", c.Catalog.MaxRetries))
	}

	// Sweep validation
	if time.Duration(c.Sweep.ItemDelay) < 0 {
		errs = append(errs, fmt.Sprintf("sweep.item_delay: must not be negative, got %s", time.Duration(c.Sweep.ItemDelay)))
	}

	// Log validation
	if !validLogLevels[c.Log.Level] {
		errs = append(errs, fmt.Sprintf("log.level: must be one of debug, info, warn, error; got %q", c.Log.Level))
	}

	return errs
}
