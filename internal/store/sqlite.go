package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	apperrors "options-scanner/internal/errors"
	"options-scanner/internal/models"
)

// SQLiteStore implements DataStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-based data store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		return nil, apperrors.NewValidationError("storage.path", dbPath, "database path is required")
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- One row per scan run
	CREATE TABLE IF NOT EXISTS executions (
		execution_id TEXT PRIMARY KEY,
		executed_at DATETIME NOT NULL,
		strategies_run INTEGER NOT NULL,
		total_trades INTEGER NOT NULL,
		chain_fetches INTEGER NOT NULL,
		cancelled INTEGER DEFAULT 0,
		duration_ms INTEGER NOT NULL
	);

	-- One row per strategy within a run
	CREATE TABLE IF NOT EXISTS strategy_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		execution_id TEXT NOT NULL,
		strategy_name TEXT NOT NULL,
		strategy_kind TEXT NOT NULL,
		alias TEXT,
		symbols_scanned INTEGER NOT NULL,
		symbol_errors INTEGER NOT NULL,
		trades_found INTEGER NOT NULL,
		execution_time_ms INTEGER NOT NULL,
		filter_config TEXT,
		groups_json TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_executions_executed_at ON executions(executed_at);
	CREATE INDEX IF NOT EXISTS idx_strategy_results_execution ON strategy_results(execution_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveStrategyResult stores one strategy's outcome.
func (s *SQLiteStore) SaveStrategyResult(ctx context.Context, result *models.StrategyResult) error {
	row, err := storedFrom(result)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO strategy_results (
			execution_id, strategy_name, strategy_kind, alias, symbols_scanned, symbol_errors,
			trades_found, execution_time_ms, filter_config, groups_json, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, row.ExecutionID, row.StrategyName, row.StrategyKind, row.Alias, row.SymbolsScanned, row.SymbolErrors,
		row.TradesFound, row.ExecutionTimeMs, row.FilterConfig, row.Groups, row.CreatedAt)
	if err != nil {
		return fmt.Errorf("%w: failed to insert strategy result: %v", apperrors.ErrDatabaseError, err)
	}
	return nil
}

// SaveExecution stores or replaces an execution summary.
func (s *SQLiteStore) SaveExecution(ctx context.Context, summary models.ExecutionSummary) error {
	cancelled := 0
	if summary.Cancelled {
		cancelled = 1
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO executions (
			execution_id, executed_at, strategies_run, total_trades, chain_fetches, cancelled, duration_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`, summary.ExecutionID, summary.Timestamp, summary.StrategiesRun, summary.TotalTradesFound,
		summary.ChainFetches, cancelled, summary.DurationMs)
	if err != nil {
		return fmt.Errorf("%w: failed to insert execution: %v", apperrors.ErrDatabaseError, err)
	}
	return nil
}

// RecentExecutions returns the latest executions, newest first.
func (s *SQLiteStore) RecentExecutions(ctx context.Context, limit int) ([]models.ExecutionSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT execution_id, executed_at, strategies_run, total_trades, chain_fetches, cancelled, duration_ms
		FROM executions
		ORDER BY executed_at DESC
		LIMIT ?
	`, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}
	defer rows.Close()

	var out []models.ExecutionSummary
	for rows.Next() {
		var e models.ExecutionSummary
		var cancelled int
		if err := rows.Scan(&e.ExecutionID, &e.Timestamp, &e.StrategiesRun, &e.TotalTradesFound,
			&e.ChainFetches, &cancelled, &e.DurationMs); err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}
		e.Cancelled = cancelled == 1
		out = append(out, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating executions: %w", err)
	}
	return out, nil
}

// StrategyResults returns the results stored for an execution in insertion order.
func (s *SQLiteStore) StrategyResults(ctx context.Context, executionID string) ([]StoredResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT execution_id, strategy_name, strategy_kind, COALESCE(alias, ''), symbols_scanned, symbol_errors,
			trades_found, execution_time_ms, COALESCE(filter_config, ''), groups_json, created_at
		FROM strategy_results
		WHERE execution_id = ?
		ORDER BY id ASC
	`, executionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query strategy results: %w", err)
	}
	defer rows.Close()

	var out []StoredResult
	for rows.Next() {
		var r StoredResult
		if err := rows.Scan(&r.ExecutionID, &r.StrategyName, &r.StrategyKind, &r.Alias, &r.SymbolsScanned,
			&r.SymbolErrors, &r.TradesFound, &r.ExecutionTimeMs, &r.FilterConfig, &r.Groups, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan strategy result: %w", err)
		}
		out = append(out, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating strategy results: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("execution %s: %w", executionID, apperrors.ErrNotFound)
	}
	return out, nil
}
