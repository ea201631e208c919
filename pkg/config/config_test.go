package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/scriptd/pkg/server"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "webroot"), 0o755))
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFromFile_YAML(t *testing.T) {
	path := writeConfig(t, "scriptd.yaml", `
port: 9090
workers: 4
sessionTimeout: 90s
sweepInterval: 5
documentRoot: webroot
routes:
  /hi: HelloWorker
privatePatterns:
  - /secret/**
log:
  level: debug
  format: json
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 90*time.Second, cfg.SessionTimeout.Duration())
	assert.Equal(t, 5*time.Second, cfg.SweepInterval.Duration())
	assert.Equal(t, filepath.Join(filepath.Dir(path), "webroot"), cfg.DocumentRoot)
	assert.Equal(t, []string{"/secret/**"}, cfg.PrivatePatterns)
	assert.Equal(t, "HelloWorker", cfg.Routes["/hi"])
	assert.Equal(t, "HelloWorker", cfg.Routes["/hello"], "default routes are kept")
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, server.DefaultDomain, cfg.Domain)
	assert.Equal(t, SourceFile, cfg.Sources["port"])
	assert.NotContains(t, cfg.Sources, "domain")
	require.NoError(t, cfg.Validate())
}

func TestLoadFromFile_JSON(t *testing.T) {
	path := writeConfig(t, "scriptd.json", `{"port": 8181, "sessionTimeout": "2m", "documentRoot": "webroot"}`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 8181, cfg.Port)
	assert.Equal(t, 2*time.Minute, cfg.SessionTimeout.Duration())
	assert.True(t, cfg.ScriptCache)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromFile_CommentOnlyYAML(t *testing.T) {
	path := writeConfig(t, "scriptd.yml", "# nothing here\n")

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, server.DefaultPort, cfg.Port)
}

func TestLoadFromFile_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		want    error
	}{
		{"empty", "a.yaml", "  \n", ErrEmptyFile},
		{"bad yaml", "a.yaml", "port: [1", ErrInvalidYAML},
		{"unknown yaml field", "a.yaml", "colour: red\n", ErrInvalidYAML},
		{"bad json", "a.json", "{port: 1}", ErrInvalidJSON},
		{"unknown json field", "a.json", `{"colour": "red"}`, ErrInvalidJSON},
		{"bad duration", "a.yaml", "sessionTimeout: soon\n", ErrInvalidYAML},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.file, tt.content))
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, ErrFileNotFound)

	_, err = LoadFromFile(t.TempDir())
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvPort:            "7000",
		EnvWorkers:         "nope",
		EnvSessionTimeout:  "1h",
		EnvScriptCache:     "false",
		EnvLogLevel:        "warn",
		EnvDocumentRoot:    "/srv/www",
		EnvSweepInterval:   "5s",
		EnvStrict:          "true",
		EnvExtensionPrefix: "/w/",
		EnvLogFile:         "/var/log/scriptd.log",
	}
	cfg := Default()
	applyEnv(cfg, func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})

	assert.Equal(t, 7000, cfg.Port)
	assert.Equal(t, server.DefaultWorkers, cfg.Workers, "unparsable values are ignored")
	assert.Equal(t, time.Hour, cfg.SessionTimeout.Duration())
	assert.False(t, cfg.ScriptCache)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "/srv/www", cfg.DocumentRoot)
	assert.Equal(t, 5*time.Second, cfg.SweepInterval.Duration())
	assert.True(t, cfg.StrictFunctions)
	assert.Equal(t, "/w/", cfg.ExtensionPrefix)
	assert.Equal(t, "/var/log/scriptd.log", cfg.Log.File)
	assert.Equal(t, SourceEnv, cfg.Sources["port"])
	assert.Equal(t, SourceEnv, cfg.Sources["strictFunctions"])
	assert.NotContains(t, cfg.Sources, "workers")
}

func TestApplyEnvFromProcess(t *testing.T) {
	t.Setenv(EnvDomain, "example.org")
	cfg := Default()
	ApplyEnv(cfg)
	assert.Equal(t, "example.org", cfg.Domain)
}

func TestConfigPath(t *testing.T) {
	t.Setenv(EnvConfig, "/etc/scriptd.yaml")
	assert.Equal(t, "/etc/scriptd.yaml", ConfigPath(""))
	assert.Equal(t, "local.yaml", ConfigPath("local.yaml"))
}

func TestValidate(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "file.txt")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	tests := []struct {
		name   string
		mutate func(*ServerConfig)
		field  string
	}{
		{"port", func(c *ServerConfig) { c.Port = 70000 }, "port"},
		{"workers", func(c *ServerConfig) { c.Workers = 0 }, "workers"},
		{"timeout", func(c *ServerConfig) { c.SessionTimeout = 0 }, "sessionTimeout"},
		{"domain", func(c *ServerConfig) { c.Domain = "" }, "domain"},
		{"missing root", func(c *ServerConfig) { c.DocumentRoot = filepath.Join(root, "nope") }, "documentRoot"},
		{"root is file", func(c *ServerConfig) { c.DocumentRoot = file }, "documentRoot"},
		{"pattern", func(c *ServerConfig) { c.PrivatePatterns = []string{"/a/["} }, "privatePatterns[0]"},
		{"route path", func(c *ServerConfig) { c.Routes = map[string]string{"x": "Home"} }, "routes"},
		{"log level", func(c *ServerConfig) { c.Log.Level = "loud" }, "log.level"},
		{"log format", func(c *ServerConfig) { c.Log.Format = "xml" }, "log.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.DocumentRoot = root
			tt.mutate(cfg)

			err := cfg.Validate()
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestToOptions(t *testing.T) {
	cfg := Default()
	cfg.DocumentRoot = t.TempDir()
	cfg.StrictFunctions = true

	opts := cfg.ToOptions()
	assert.Equal(t, cfg.Port, opts.Port)
	assert.Equal(t, server.DefaultSessionTimeout, opts.SessionTimeout)
	assert.True(t, opts.StrictFunctions)
	assert.Equal(t, cfg.Routes, opts.Routes)

	_, err := server.New(opts)
	require.NoError(t, err)
}

func TestSaveToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "scriptd.yaml")
	cfg := Default()
	cfg.Port = 8123
	require.NoError(t, SaveToFile(path, cfg, false))
	assert.ErrorIs(t, SaveToFile(path, cfg, false), ErrFileExists)
	require.NoError(t, SaveToFile(path, cfg, true))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "sessionTimeout: 10m0s")

	loaded, err := ParseYAML(data)
	require.NoError(t, err)
	assert.Equal(t, 8123, loaded.Port)
	assert.Equal(t, cfg.Routes, loaded.Routes)
}

func TestDurationJSON(t *testing.T) {
	cfg, err := ParseJSON([]byte(`{"sessionTimeout": 30}`))
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.SessionTimeout.Duration())

	data, err := ToJSON(cfg)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"sessionTimeout": "30s"`)
}

func TestExampleConfig(t *testing.T) {
	cfg, err := LoadFromFile(filepath.Join("..", "..", "examples", "with-config-file", "scriptd.yaml"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "text/markdown", cfg.MimeTypes["md"])
	assert.Equal(t, "text/html", cfg.MimeTypes["html"])
	assert.Equal(t, "HelloWorker", cfg.Routes["/greeting"])
}
