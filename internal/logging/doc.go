// Package logging provides structured logging for modelserve.
//
// This package wraps a package-global zap logger with convenience functions
// for the patterns used by the server and the fetch client.
//
// # Log Levels
//
//   - Debug: connection state changes, completed transfers
//   - Info: startup, requests, client disconnects
//   - Warn: short reads, port reclamation, preflight warnings
//   - Error: serving errors, shutdown problems
//
// # Usage
//
//	if err := logging.Initialize("info"); err != nil {
//	    return err
//	}
//	defer logging.Sync()
//
//	logging.Info("Serving artifact", zap.String("path", path))
//
// When Initialize has not been called, or was called with an empty level and
// MODELSERVE_LOG_LEVEL is unset, all output is discarded.
package logging
