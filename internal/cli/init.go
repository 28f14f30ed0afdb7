// Package cli provides common CLI initialization utilities shared by the
// binaries under cmd/.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/mcarneiro/airbnb-organizer/internal/config"
	"github.com/mcarneiro/airbnb-organizer/internal/log"
	"github.com/mcarneiro/airbnb-organizer/internal/storage"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the application logger from LOG_LEVEL and LOG_FORMAT
// and makes it the slog default.
func SetupLogger(cfg *config.Config) *log.Logger {
	lc := log.DefaultConfig()
	if cfg != nil {
		lc.Level = log.ParseLevel(cfg.LogLevel)
		lc.Format = cfg.LogFormat
	}
	if lc.Format == log.FormatTint {
		lc.Output = os.Stderr
	}
	logger := log.New(lc)
	log.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig() (*config.Config, *log.Logger) {
	cfg := config.Load()
	logger := SetupLogger(cfg)
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg, logger
}

// OpenSessionStore opens the SQLite key-value store sessions persist to.
// Exits the process on failure.
func OpenSessionStore(logger *log.Logger, dbPath string) *storage.SQLiteKV {
	kv, err := storage.NewSQLiteKV(dbPath)
	if err != nil {
		logger.WithComponent(log.ComponentStorage).Error("Failed to open session store", log.FieldError, err, "path", dbPath)
		os.Exit(1)
	}
	return kv
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		logger.Info("Shutdown signal received", log.FieldOperation, log.OpShutdown)
	}()
	return ctx, cancel
}
