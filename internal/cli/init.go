// Package cli holds the start-up steps shared by cmd/planilla,
// cmd/planilla-worker and cmd/planillactl.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"planilla/internal/config"
	"planilla/internal/log"
	"planilla/internal/storage"
)

// SetupLogger builds the process logger from LOG_LEVEL and makes it the slog default.
func SetupLogger(component string) *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Component = component
	cfg.Level = log.ParseLevel(os.Getenv("LOG_LEVEL"))
	if strings.EqualFold(os.Getenv("LOG_FORMAT"), "json") {
		cfg.Format = "json"
	}
	logger := log.New(cfg)
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads .env for local development. A missing file is fine.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadConfig reads the TOML file named by PLANILLA_CONFIG when set, otherwise
// the environment alone, and validates the result.
func LoadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path := os.Getenv(config.ConfigFileEnv); path != "" {
		cfg, err = config.LoadFile(path)
		if err != nil {
			return nil, err
		}
	} else {
		cfg = config.Load()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadAndValidateConfig is LoadConfig for long-running binaries: it exits on failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg, err := LoadConfig()
	if err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// OpenSQLite migrates and opens the database at dbPath.
func OpenSQLite(dbPath string) (*storage.SQLiteRepository, error) {
	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	return repo, nil
}

// InitSQLite is OpenSQLite that exits the process on failure.
func InitSQLite(logger *log.Logger, dbPath string) *storage.SQLiteRepository {
	repo, err := OpenSQLite(dbPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", log.FieldError, err, "path", dbPath)
		os.Exit(1)
	}
	return repo
}

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext(logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		logger.Info("Shutdown signal received", log.FieldOperation, log.OpShutdown)
	}()
	return ctx, stop
}
