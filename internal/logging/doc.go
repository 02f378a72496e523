// Package logging constructs slog loggers with console and JSON handlers.
package logging
