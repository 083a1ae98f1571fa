package config

import (
	"fmt"
	"log/slog"
)

var validLogLevels = map[string]bool{
	"debug":   true,
	"info":    true,
	"warn":    true,
	"warning": true,
	"error":   true,
}

var validLogFormats = map[string]bool{
	"text": true,
	"json": true,
}

// Validate checks the config for invalid values and returns all errors found.
// Dangerous zero-values that would make the polling loop spin are clamped to
// safe defaults. Other validation errors are logged as warnings but do not
// prevent startup.
func (c *Config) Validate() []error {
	var errs []error

	if c.Monitor < 0 {
		errs = append(errs, fmt.Errorf("monitor index must be >= 0, got %d", c.Monitor))
		c.Monitor = 0
	}

	if c.TickIntervalMs <= 0 {
		slog.Warn("tick_interval_ms invalid, clamping", "value", c.TickIntervalMs, "clamped", 16)
		c.TickIntervalMs = 16
	}

	if c.LogLevel != "" && !validLogLevels[c.LogLevel] {
		errs = append(errs, fmt.Errorf("log_level %q is not one of debug/info/warn/error", c.LogLevel))
	}

	if c.LogFormat != "" && !validLogFormats[c.LogFormat] {
		errs = append(errs, fmt.Errorf("log_format %q is not one of text/json", c.LogFormat))
	}

	return errs
}
