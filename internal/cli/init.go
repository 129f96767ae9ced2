// Package cli holds the tesoreria command tree and the start-up steps
// shared with tesoreria-worker.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"tesoreria/internal/backend"
	"tesoreria/internal/config"
	applog "tesoreria/internal/log"
)

// SetupLogger builds the process logger from the configured level and
// format and sets it as the slog default.
func SetupLogger(cfg *config.Config, component string) *applog.Logger {
	logger := applog.New(applog.Config{
		Level:     applog.ParseLevel(cfg.LogLevel),
		Format:    cfg.LogFormat,
		Component: component,
	})
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration from the environment and validates it.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Bootstrap runs the common start-up: .env, config, logger, backend.
// The caller closes the returned backend.
func Bootstrap(ctx context.Context, component string) (*config.Config, *applog.Logger, *backend.Backend, error) {
	LoadEnvFile()

	cfg, err := LoadAndValidateConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	logger := SetupLogger(cfg, component)

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	b, err := backend.Open(ctx, bcfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open backend: %w", err)
	}
	return cfg, logger, b, nil
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
