package config

import (
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/getmockd/scriptd/pkg/server"
	"github.com/getmockd/scriptd/pkg/workers"
)

// ServerConfig is the file form of the server settings.
type ServerConfig struct {
	Address string `json:"address,omitempty" yaml:"address,omitempty"`
	Port    int    `json:"port" yaml:"port"`
	Domain  string `json:"domain" yaml:"domain"`
	Workers int    `json:"workers" yaml:"workers"`

	SessionTimeout Duration `json:"sessionTimeout" yaml:"sessionTimeout"`
	SweepInterval  Duration `json:"sweepInterval" yaml:"sweepInterval"`

	// DocumentRoot is resolved against the config file's directory when
	// relative.
	DocumentRoot string            `json:"documentRoot" yaml:"documentRoot"`
	MimeTypes    map[string]string `json:"mimeTypes,omitempty" yaml:"mimeTypes,omitempty"`
	Routes       map[string]string `json:"routes,omitempty" yaml:"routes,omitempty"`

	PrivatePatterns []string `json:"privatePatterns,omitempty" yaml:"privatePatterns,omitempty"`
	ExtensionPrefix string   `json:"extensionPrefix" yaml:"extensionPrefix"`
	ScriptExtension string   `json:"scriptExtension" yaml:"scriptExtension"`
	ScriptCache     bool     `json:"scriptCache" yaml:"scriptCache"`
	StrictFunctions bool     `json:"strictFunctions,omitempty" yaml:"strictFunctions,omitempty"`

	Log LogConfig `json:"log" yaml:"log"`

	// Sources records where each overridden setting came from.
	Sources map[string]string `json:"-" yaml:"-"`
}

// LogConfig selects the log level, format and optional JSON log file.
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
	File   string `json:"file,omitempty" yaml:"file,omitempty"`
}

// Setting sources.
const (
	SourceDefault = "default"
	SourceFile    = "file"
	SourceEnv     = "env"
	SourceFlag    = "flag"
)

// Default returns the built-in configuration serving ./webroot.
func Default() *ServerConfig {
	return &ServerConfig{
		Port:            server.DefaultPort,
		Domain:          server.DefaultDomain,
		Workers:         server.DefaultWorkers,
		SessionTimeout:  Duration(server.DefaultSessionTimeout),
		SweepInterval:   Duration(server.DefaultSweepInterval),
		DocumentRoot:    "webroot",
		MimeTypes:       server.DefaultMimeTypes(),
		Routes:          workers.DefaultRoutes(),
		PrivatePatterns: server.DefaultPrivatePatterns(),
		ExtensionPrefix: server.DefaultExtensionPrefix,
		ScriptExtension: server.DefaultScriptExtension,
		ScriptCache:     true,
		Log:             LogConfig{Level: "info", Format: "text"},
		Sources:         map[string]string{},
	}
}

// ToOptions converts the configuration into server options. Logger,
// metrics and registry are left for the caller.
func (c *ServerConfig) ToOptions() server.Options {
	return server.Options{
		Address:         c.Address,
		Port:            c.Port,
		Domain:          c.Domain,
		Workers:         c.Workers,
		SessionTimeout:  c.SessionTimeout.Duration(),
		SweepInterval:   c.SweepInterval.Duration(),
		DocumentRoot:    c.DocumentRoot,
		MimeTypes:       c.MimeTypes,
		Routes:          c.Routes,
		PrivatePatterns: c.PrivatePatterns,
		ExtensionPrefix: c.ExtensionPrefix,
		ScriptExtension: c.ScriptExtension,
		ScriptCache:     c.ScriptCache,
		StrictFunctions: c.StrictFunctions,
	}
}

func (c *ServerConfig) setSource(key, source string) {
	if c.Sources == nil {
		c.Sources = make(map[string]string)
	}
	c.Sources[key] = source
}

// Duration is a time.Duration written as a string such as "10m".
type Duration time.Duration

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

// MarshalJSON marshals the duration as a string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts a duration string or an integer in seconds.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var secs int64
		if err := json.Unmarshal(data, &secs); err != nil {
			return fmt.Errorf("duration must be a string or seconds: %s", data)
		}
		*d = Duration(time.Duration(secs) * time.Second)
		return nil
	}
	return d.parse(s)
}

// MarshalYAML marshals the duration as a string.
func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

// UnmarshalYAML accepts a duration string or an integer in seconds.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a scalar", node.Line)
	}
	if node.Tag == "!!int" {
		var secs int64
		if err := node.Decode(&secs); err != nil {
			return err
		}
		*d = Duration(time.Duration(secs) * time.Second)
		return nil
	}
	return d.parse(node.Value)
}

func (d *Duration) parse(s string) error {
	if s == "" {
		*d = 0
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}
