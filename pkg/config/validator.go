package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/getmockd/scriptd/pkg/logging"
)

var validLogLevels = map[string]bool{
	"debug":   true,
	"info":    true,
	"warn":    true,
	"warning": true,
	"error":   true,
}

var validLogFormats = map[string]bool{
	string(logging.FormatText): true,
	string(logging.FormatJSON): true,
}

// ValidationError reports one invalid setting.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on %s: %s", e.Field, e.Message)
}

// Validate checks every setting and returns all problems joined.
func (c *ServerConfig) Validate() error {
	var errs []error
	add := func(field, format string, args ...any) {
		errs = append(errs, &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if c.Port < 0 || c.Port > 65535 {
		add("port", "must be between 0 and 65535, got %d", c.Port)
	}
	if c.Workers < 1 {
		add("workers", "must be at least 1, got %d", c.Workers)
	}
	if c.SessionTimeout <= 0 {
		add("sessionTimeout", "must be positive, got %s", c.SessionTimeout)
	}
	if c.SweepInterval < 0 {
		add("sweepInterval", "must not be negative, got %s", c.SweepInterval)
	}
	if c.Domain == "" {
		add("domain", "is required")
	}

	if c.DocumentRoot == "" {
		add("documentRoot", "is required")
	} else if info, err := os.Stat(c.DocumentRoot); err != nil {
		add("documentRoot", "cannot access %s: %v", c.DocumentRoot, err)
	} else if !info.IsDir() {
		add("documentRoot", "%s is not a directory", c.DocumentRoot)
	}

	for i, p := range c.PrivatePatterns {
		if !doublestar.ValidatePattern(p) {
			add(fmt.Sprintf("privatePatterns[%d]", i), "invalid pattern %q", p)
		}
	}
	for path, name := range c.Routes {
		if path == "" || path[0] != '/' {
			add("routes", "path %q must start with /", path)
		}
		if name == "" {
			add("routes", "path %q has no worker", path)
		}
	}
	if c.ScriptExtension == "" {
		add("scriptExtension", "is required")
	}

	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		add("log.level", "must be one of debug, info, warn, error, got %q", c.Log.Level)
	}
	if !validLogFormats[strings.ToLower(c.Log.Format)] {
		add("log.format", "must be text or json, got %q", c.Log.Format)
	}
	return errors.Join(errs...)
}
