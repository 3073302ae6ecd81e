// Package cli holds the start-up steps shared by cmd/homeexpense and cmd/code-dispatcher.
package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"homeexpense/internal/config"
	"homeexpense/internal/log"
)

// SetupLogger builds the process logger for the given LOG_LEVEL value and installs it as the slog default.
func SetupLogger(level string) *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Level = log.ParseLevel(level)
	logger := log.New(cfg)
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads a .env file for local development. A missing file is not an error.
func LoadEnvFile(logger *log.Logger) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("Failed to read .env file", log.FieldError, err.Error())
	}
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed",
			log.FieldError, err.Error(),
			log.FieldErrorType, log.ErrorTypeConfiguration)
		os.Exit(1)
	}
	return cfg
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// Closer is a named shutdown step.
type Closer struct {
	Name string
	Fn   func(context.Context) error
}

// Shutdown runs the closers in order under one timeout, logging failures
// and returning the joined errors.
func Shutdown(logger *log.Logger, timeout time.Duration, closers ...Closer) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs []error
	for _, c := range closers {
		if c.Fn == nil {
			continue
		}
		if err := c.Fn(ctx); err != nil {
			logger.Error("Shutdown step failed", "step", c.Name, log.FieldError, err.Error())
			errs = append(errs, err)
			continue
		}
		logger.Debug("Shutdown step completed", "step", c.Name)
	}
	if ctx.Err() != nil {
		logger.Warn("Shutdown timeout reached")
	}
	return errors.Join(errs...)
}
