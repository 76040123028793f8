// Package store persists scan executions and strategy results.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	apperrors "options-scanner/internal/errors"
	"options-scanner/internal/models"
)

// DataStore defines the interface for data persistence.
type DataStore interface {
	// Writes
	SaveStrategyResult(ctx context.Context, result *models.StrategyResult) error
	SaveExecution(ctx context.Context, summary models.ExecutionSummary) error

	// Reads
	RecentExecutions(ctx context.Context, limit int) ([]models.ExecutionSummary, error)
	StrategyResults(ctx context.Context, executionID string) ([]StoredResult, error)

	// Lifecycle
	Close() error
}

// StoredResult is a persisted strategy result. Groups holds the JSON encoded
// expiry groups.
type StoredResult struct {
	ExecutionID     string    `json:"executionId" db:"execution_id"`
	StrategyName    string    `json:"strategyName" db:"strategy_name"`
	StrategyKind    string    `json:"strategyKind" db:"strategy_kind"`
	Alias           string    `json:"alias" db:"alias"`
	SymbolsScanned  int       `json:"symbolsScanned" db:"symbols_scanned"`
	SymbolErrors    int       `json:"symbolErrors" db:"symbol_errors"`
	TradesFound     int       `json:"tradesFound" db:"trades_found"`
	ExecutionTimeMs int64     `json:"executionTimeMs" db:"execution_time_ms"`
	FilterConfig    string    `json:"filterConfig" db:"filter_config"`
	Groups          string    `json:"groups" db:"groups_json"`
	CreatedAt       time.Time `json:"createdAt" db:"created_at"`
}

// Config selects and configures a store.
type Config struct {
	Driver       string        `mapstructure:"driver"`
	Path         string        `mapstructure:"path"`
	DSN          string        `mapstructure:"dsn"`
	QueryTimeout time.Duration `mapstructure:"query_timeout"`
}

// Open returns the store selected by cfg.Driver ("sqlite" or "postgres").
func Open(ctx context.Context, cfg Config) (DataStore, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "sqlite", "sqlite3":
		return NewSQLiteStore(cfg.Path)
	case "postgres", "postgresql":
		return OpenPostgres(ctx, cfg.DSN, cfg.QueryTimeout)
	default:
		return nil, apperrors.NewValidationError("storage.driver", cfg.Driver, "must be sqlite or postgres")
	}
}

func storedFrom(result *models.StrategyResult) (StoredResult, error) {
	groups, err := json.Marshal(result.Groups)
	if err != nil {
		return StoredResult{}, fmt.Errorf("failed to encode trades: %w", err)
	}
	createdAt := result.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	return StoredResult{
		ExecutionID:     result.ExecutionID,
		StrategyName:    result.StrategyName,
		StrategyKind:    result.StrategyKind,
		Alias:           result.Alias,
		SymbolsScanned:  result.SymbolsScanned,
		SymbolErrors:    result.SymbolErrors,
		TradesFound:     result.TradesFound,
		ExecutionTimeMs: result.ExecutionTimeMs,
		FilterConfig:    result.FilterConfigJSON,
		Groups:          string(groups),
		CreatedAt:       createdAt,
	}, nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	return limit
}
