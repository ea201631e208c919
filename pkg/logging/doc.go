// Package logging builds the slog loggers used by scriptd.
//
//	logger := logging.New(logging.Config{
//	    Level:  logging.ParseLevel("info"),
//	    Format: logging.FormatText,
//	})
//	logger.Info("server started", "port", 8080)
//
// Components accept a *slog.Logger through a WithLogger option and fall
// back to Nop() when none is given. NewTee adds a JSON copy of every
// record, written to a log file next to the console output.
package logging
