// Package backend picks where closed-week payouts are published.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"planilla/internal/config"
	"planilla/internal/sheets"
	gsheet "planilla/internal/sheets/google"
	"planilla/internal/sheets/memory"
)

type Type string

const (
	SheetsBackend Type = "sheets"
	MemoryBackend Type = "memory"
)

func (t Type) IsValid() bool {
	return t == SheetsBackend || t == MemoryBackend
}

type Config struct {
	Type          Type
	SpreadsheetID string
	Credentials   gsheet.Credentials
}

// FromAppConfig selects Sheets when a spreadsheet is configured, memory otherwise.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}
	if !appConfig.SheetsEnabled() {
		return Config{Type: MemoryBackend}, nil
	}
	return Config{
		Type:          SheetsBackend,
		SpreadsheetID: appConfig.GoogleSpreadsheetID,
		Credentials: gsheet.Credentials{
			JSON: appConfig.GoogleServiceAccountJSON,
			File: appConfig.GoogleServiceAccountFile,
		},
	}, nil
}

// NewPublisher builds the payout publisher for cfg.
func NewPublisher(ctx context.Context, cfg Config, logger *slog.Logger) (sheets.PayoutPublisher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Type {
	case SheetsBackend:
		client, err := gsheet.New(ctx, cfg.SpreadsheetID, cfg.Credentials)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
		}
		logger.Info("Initialized Google Sheets payout backend", "spreadsheet_id", cfg.SpreadsheetID)
		return client, nil
	case MemoryBackend:
		logger.Info("Google Sheets disabled, payouts kept in memory")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %q", cfg.Type)
	}
}
