package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment variable names.
const (
	EnvAddress         = "SCRIPTD_ADDRESS"
	EnvPort            = "SCRIPTD_PORT"
	EnvDomain          = "SCRIPTD_DOMAIN"
	EnvWorkers         = "SCRIPTD_WORKERS"
	EnvSessionTimeout  = "SCRIPTD_SESSION_TIMEOUT"
	EnvSweepInterval   = "SCRIPTD_SWEEP_INTERVAL"
	EnvDocumentRoot    = "SCRIPTD_DOCROOT"
	EnvScriptCache     = "SCRIPTD_SCRIPT_CACHE"
	EnvStrict          = "SCRIPTD_STRICT"
	EnvExtensionPrefix = "SCRIPTD_EXTENSION_PREFIX"
	EnvLogLevel        = "SCRIPTD_LOG_LEVEL"
	EnvLogFormat       = "SCRIPTD_LOG_FORMAT"
	EnvLogFile         = "SCRIPTD_LOG_FILE"
	EnvConfig          = "SCRIPTD_CONFIG"
)

// ApplyEnv overrides cfg with the SCRIPTD_* variables that are set.
// Values that do not parse are ignored. The map and list settings
// (mimeTypes, routes, privatePatterns) and scriptExtension are only read
// from the config file.
func ApplyEnv(cfg *ServerConfig) {
	applyEnv(cfg, os.LookupEnv)
}

func applyEnv(cfg *ServerConfig, lookup func(string) (string, bool)) {
	str := func(name, key string, dst *string) {
		if v, ok := lookup(name); ok && v != "" {
			*dst = v
			cfg.setSource(key, SourceEnv)
		}
	}
	boolean := func(name, key string, dst *bool) {
		if v, ok := lookup(name); ok {
			if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
				*dst = b
				cfg.setSource(key, SourceEnv)
			}
		}
	}
	duration := func(name, key string, dst *Duration) {
		if v, ok := lookup(name); ok {
			if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
				*dst = Duration(d)
				cfg.setSource(key, SourceEnv)
			}
		}
	}
	num := func(name, key string, dst *int) {
		if v, ok := lookup(name); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				*dst = n
				cfg.setSource(key, SourceEnv)
			}
		}
	}

	str(EnvAddress, "address", &cfg.Address)
	num(EnvPort, "port", &cfg.Port)
	str(EnvDomain, "domain", &cfg.Domain)
	num(EnvWorkers, "workers", &cfg.Workers)
	str(EnvDocumentRoot, "documentRoot", &cfg.DocumentRoot)
	str(EnvLogLevel, "log.level", &cfg.Log.Level)
	str(EnvLogFormat, "log.format", &cfg.Log.Format)
	str(EnvLogFile, "log.file", &cfg.Log.File)
	str(EnvExtensionPrefix, "extensionPrefix", &cfg.ExtensionPrefix)
	duration(EnvSessionTimeout, "sessionTimeout", &cfg.SessionTimeout)
	duration(EnvSweepInterval, "sweepInterval", &cfg.SweepInterval)
	boolean(EnvScriptCache, "scriptCache", &cfg.ScriptCache)
	boolean(EnvStrict, "strictFunctions", &cfg.StrictFunctions)
}

// ConfigPath returns the config file named by SCRIPTD_CONFIG, or flagValue
// when it is set.
func ConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv(EnvConfig)
}
