// Package logging provides structured logging for the Ayla SDK tools.
//
// It wraps log/slog so every binary and package logs the same way.
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr, discard
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Component("bridge").Info("devices refreshed", "count", 4)
//
// # Security
//
// Never log access tokens, refresh tokens or the app secret. Log the
// token length or a short prefix if the value matters for debugging.
package logging
