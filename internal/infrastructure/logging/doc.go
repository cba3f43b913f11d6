// Package logging provides structured logging for the PAS client.
//
// It wraps log/slog. Every record carries service=pasclient and the build
// version. Output is JSON unless format is "text".
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Usage:
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Info("topology loaded", "panels", n)
//
// Domain packages take a small Logger interface; *Logger satisfies it.
package logging
