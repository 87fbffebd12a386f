package config

import (
	"fmt"
	"strings"

	"github.com/breeze-rmm/codecrt/internal/logging"
)

var log = logging.L("config")

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"warning": true,
	"error": true,
}

// ValidationResult separates fatal errors (abort startup) from warnings
// (logged, offending field clamped to a safe value, startup continues).
type ValidationResult struct {
	Fatals   []error
	Warnings []error
}

func (r *ValidationResult) HasFatals() bool { return len(r.Fatals) > 0 }

func (r *ValidationResult) fatal(format string, args ...any) {
	r.Fatals = append(r.Fatals, fmt.Errorf(format, args...))
}

func (r *ValidationResult) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Errorf(format, args...))
}

// ValidateTiered checks the config and clamps out-of-range values in place.
// A non-positive default bitrate or framerate is fatal. An unknown log level
// or log format is a warning and falls back to its default; the other
// out-of-range numeric knobs are warnings that get clamped rather than
// blocking startup.
func (c *Config) ValidateTiered() *ValidationResult {
	r := &ValidationResult{}

	if c.LogLevel != "" && !validLogLevels[strings.ToLower(c.LogLevel)] {
		r.warn("log_level %q is not valid (use debug, info, warn, error), defaulting to info", c.LogLevel)
		c.LogLevel = "info"
	}

	if c.LogFormat != "" && c.LogFormat != "text" && c.LogFormat != "json" {
		r.warn("log_format %q is not valid (use text or json), defaulting to text", c.LogFormat)
		c.LogFormat = "text"
	}

	if c.DefaultBitrate <= 0 {
		r.fatal("default_bitrate must be positive, got %d", c.DefaultBitrate)
	}

	if c.DefaultFramerate <= 0 {
		r.fatal("default_framerate must be positive, got %d", c.DefaultFramerate)
	}

	if c.DefaultGOPSize < 1 {
		r.warn("default_gop_size %d is below minimum 1, clamping", c.DefaultGOPSize)
		c.DefaultGOPSize = 1
	}

	if c.QueueSoftLimit < 1 {
		r.warn("queue_soft_limit %d is below minimum 1, clamping", c.QueueSoftLimit)
		c.QueueSoftLimit = 1
	}
	if c.QueueHardLimit < c.QueueSoftLimit {
		r.warn("queue_hard_limit %d is below queue_soft_limit %d, raising to match", c.QueueHardLimit, c.QueueSoftLimit)
		c.QueueHardLimit = c.QueueSoftLimit
	}

	if c.MaxInstances < 1 {
		r.warn("max_instances %d is below minimum 1, clamping", c.MaxInstances)
		c.MaxInstances = 1
	}

	return r
}
