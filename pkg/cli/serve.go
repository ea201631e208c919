package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/getmockd/scriptd/pkg/config"
	"github.com/getmockd/scriptd/pkg/logging"
	"github.com/getmockd/scriptd/pkg/server"
)

// shutdownTimeout is the maximum time to wait for graceful shutdown.
const shutdownTimeout = 30 * time.Second

type serveFlags struct {
	configFile     string
	address        string
	port           int
	domain         string
	docRoot        string
	workers        int
	sessionTimeout time.Duration
	strict         bool
	noCache        bool
	logLevel       string
	logFormat      string
	logFile        string
}

var serveFlagVals serveFlags

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the server in the foreground",
	Long: `Start the server and block until SIGINT or SIGTERM.

Settings are layered: built-in defaults, then the config file, then SCRIPTD_*
environment variables, then flags.`,
	Example: `  # Serve ./webroot on port 8080
  scriptd serve

  # Use a config file and override the port
  scriptd serve --config scriptd.yaml --port 9000

  # JSON logs to a file as well as the console
  scriptd serve --docroot ./site --log-file scriptd.log`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadServeConfig(cmd, &serveFlagVals)
		if err != nil {
			return err
		}

		log, closeLog, err := newServeLogger(cmd, cfg)
		if err != nil {
			return err
		}
		defer closeLog()

		opts := cfg.ToOptions()
		opts.Logger = log
		srv, err := server.New(opts)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serveUntilDone(ctx, srv, log)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	f := serveCmd.Flags()
	f.StringVarP(&serveFlagVals.configFile, "config", "c", "", "Path to a YAML or JSON config file (env: SCRIPTD_CONFIG)")
	f.StringVar(&serveFlagVals.address, "address", "", "Interface to bind (default: all)")
	f.IntVarP(&serveFlagVals.port, "port", "p", server.DefaultPort, "TCP port to listen on")
	f.StringVar(&serveFlagVals.domain, "domain", server.DefaultDomain, "Cookie domain for requests without a Host header")
	f.StringVarP(&serveFlagVals.docRoot, "docroot", "d", "", "Document root directory")
	f.IntVarP(&serveFlagVals.workers, "workers", "w", server.DefaultWorkers, "Maximum concurrent connections")
	f.DurationVar(&serveFlagVals.sessionTimeout, "session-timeout", server.DefaultSessionTimeout, "Idle time before a session expires")
	f.BoolVar(&serveFlagVals.strict, "strict", false, "Fail scripts that call unknown functions")
	f.BoolVar(&serveFlagVals.noCache, "no-cache", false, "Re-parse scripts on every request")
	f.StringVar(&serveFlagVals.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	f.StringVar(&serveFlagVals.logFormat, "log-format", "text", "Log format: text or json")
	f.StringVar(&serveFlagVals.logFile, "log-file", "", "Also write JSON logs to this file")
}

// loadServeConfig layers defaults, file, environment and changed flags.
func loadServeConfig(cmd *cobra.Command, fv *serveFlags) (*config.ServerConfig, error) {
	cfg := config.Default()
	if path := config.ConfigPath(fv.configFile); path != "" {
		loaded, err := config.LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	config.ApplyEnv(cfg)

	flags := cmd.Flags()
	set := func(name, key string, apply func()) {
		if flags.Changed(name) {
			apply()
			cfg.Sources[key] = config.SourceFlag
		}
	}
	set("address", "address", func() { cfg.Address = fv.address })
	set("port", "port", func() { cfg.Port = fv.port })
	set("domain", "domain", func() { cfg.Domain = fv.domain })
	set("docroot", "documentRoot", func() { cfg.DocumentRoot = fv.docRoot })
	set("workers", "workers", func() { cfg.Workers = fv.workers })
	set("session-timeout", "sessionTimeout", func() { cfg.SessionTimeout = config.Duration(fv.sessionTimeout) })
	set("strict", "strictFunctions", func() { cfg.StrictFunctions = fv.strict })
	set("no-cache", "scriptCache", func() { cfg.ScriptCache = !fv.noCache })
	set("log-level", "log.level", func() { cfg.Log.Level = fv.logLevel })
	set("log-format", "log.format", func() { cfg.Log.Format = fv.logFormat })
	set("log-file", "log.file", func() { cfg.Log.File = fv.logFile })

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration:\n%w", err)
	}
	return cfg, nil
}

func newServeLogger(cmd *cobra.Command, cfg *config.ServerConfig) (*slog.Logger, func(), error) {
	lc := logging.Config{
		Level:  logging.ParseLevel(cfg.Log.Level),
		Format: logging.ParseFormat(cfg.Log.Format),
		Output: cmd.ErrOrStderr(),
	}
	if cfg.Log.File == "" {
		return logging.New(lc), func() {}, nil
	}
	f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return logging.NewTee(lc, f), func() { _ = f.Close() }, nil
}

// serveUntilDone runs srv until ctx is cancelled or the listener fails.
func serveUntilDone(ctx context.Context, srv *server.Server, log *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, server.ErrServerClosed) {
		return err
	}
	return nil
}
