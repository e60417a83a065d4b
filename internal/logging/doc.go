// Package logging provides structured logging for hs-tools runs.
//
// The package wraps Go's log/slog with a JSON handler. Every run writes its
// diagnostic log to <workdir>/.hs-tools/debug.log so that the progress display
// on the terminal stays clean; the log can be inspected after the fact.
//
// # Basic Usage
//
//	logger, err := logging.NewLogger("/path/to/workdir/.hs-tools", "INFO")
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	logger.WithOperation("deps").Info("fetch done", "package", "bcrypto")
//
// Child loggers created via With* methods share the underlying writer and are
// safe for concurrent use.
package logging
