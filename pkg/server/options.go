package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/getmockd/scriptd/pkg/metrics"
	"github.com/getmockd/scriptd/pkg/workers"
)

// Options is the typed configuration of a Server.
type Options struct {
	// Address is the interface to bind; empty means all interfaces.
	Address string
	Port    int
	// Domain is the cookie domain used when a request has no Host header.
	Domain string

	// Workers caps the number of connections handled at once.
	Workers        int
	SessionTimeout time.Duration
	SweepInterval  time.Duration

	DocumentRoot string
	// MimeTypes maps lower-case extensions without the dot to media types.
	MimeTypes map[string]string
	// Routes maps exact URL paths to worker names.
	Routes map[string]string

	// PrivatePatterns are doublestar globs over the URL path that clients
	// may not request directly.
	PrivatePatterns []string
	ExtensionPrefix string
	ScriptExtension string
	ScriptCache     bool
	// StrictFunctions makes unknown script functions fail the script.
	StrictFunctions bool

	// Registry supplies workers by name; nil means workers.Defaults.
	Registry *workers.Registry
	Logger   *slog.Logger
	// Metrics is created by New when nil.
	Metrics *metrics.Server
}

// Defaults.
const (
	DefaultPort            = 8080
	DefaultDomain          = "localhost"
	DefaultWorkers         = 10
	DefaultSessionTimeout  = 10 * time.Minute
	DefaultSweepInterval   = 30 * time.Second
	DefaultExtensionPrefix = "/ext/"
	DefaultScriptExtension = "smscr"
	DefaultMimeType        = "application/octet-stream"
)

// DefaultPrivatePatterns hides /private and everything below it.
func DefaultPrivatePatterns() []string {
	return []string{"/private", "/private/**"}
}

// DefaultMimeTypes is the built-in extension table.
func DefaultMimeTypes() map[string]string {
	return map[string]string{
		"html": "text/html",
		"htm":  "text/html",
		"txt":  "text/plain",
		"css":  "text/css",
		"js":   "text/javascript",
		"json": "application/json",
		"xml":  "application/xml",
		"png":  "image/png",
		"gif":  "image/gif",
		"jpg":  "image/jpeg",
		"jpeg": "image/jpeg",
		"svg":  "image/svg+xml",
		"ico":  "image/x-icon",
		"pdf":  "application/pdf",
	}
}

// DefaultOptions returns options serving docRoot with the stock workers.
func DefaultOptions(docRoot string) Options {
	return Options{
		Port:            DefaultPort,
		Domain:          DefaultDomain,
		Workers:         DefaultWorkers,
		SessionTimeout:  DefaultSessionTimeout,
		SweepInterval:   DefaultSweepInterval,
		DocumentRoot:    docRoot,
		MimeTypes:       DefaultMimeTypes(),
		Routes:          workers.DefaultRoutes(),
		PrivatePatterns: DefaultPrivatePatterns(),
		ExtensionPrefix: DefaultExtensionPrefix,
		ScriptExtension: DefaultScriptExtension,
		ScriptCache:     true,
	}
}

// ErrInvalidOptions wraps every validation failure.
var ErrInvalidOptions = errors.New("invalid server options")

// Validate checks the options and fills zero values with defaults.
func (o *Options) Validate() error {
	var errs []error
	if o.DocumentRoot == "" {
		errs = append(errs, errors.New("document root is required"))
	}
	if o.Port < 0 || o.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", o.Port))
	}
	if o.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative, got %d", o.Workers))
	}
	if o.SessionTimeout < 0 {
		errs = append(errs, fmt.Errorf("session timeout must not be negative, got %s", o.SessionTimeout))
	}
	for _, p := range o.PrivatePatterns {
		if !doublestar.ValidatePattern(p) {
			errs = append(errs, fmt.Errorf("invalid private pattern %q", p))
		}
	}
	if o.ExtensionPrefix != "" && (!strings.HasPrefix(o.ExtensionPrefix, "/") || !strings.HasSuffix(o.ExtensionPrefix, "/")) {
		errs = append(errs, fmt.Errorf("extension prefix %q must start and end with /", o.ExtensionPrefix))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidOptions, err)
	}

	if o.Domain == "" {
		o.Domain = DefaultDomain
	}
	if o.Workers == 0 {
		o.Workers = DefaultWorkers
	}
	if o.SessionTimeout == 0 {
		o.SessionTimeout = DefaultSessionTimeout
	}
	if o.SweepInterval <= 0 {
		o.SweepInterval = DefaultSweepInterval
	}
	if o.MimeTypes == nil {
		o.MimeTypes = DefaultMimeTypes()
	}
	if o.ScriptExtension == "" {
		o.ScriptExtension = DefaultScriptExtension
	}
	o.ScriptExtension = strings.TrimPrefix(o.ScriptExtension, ".")
	return nil
}

// Addr returns the listen address.
func (o Options) Addr() string {
	return net.JoinHostPort(o.Address, strconv.Itoa(o.Port))
}
