package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	apperrors "options-scanner/internal/errors"
	"options-scanner/internal/models"
)

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS executions (
		execution_id TEXT PRIMARY KEY,
		executed_at TIMESTAMPTZ NOT NULL,
		strategies_run INTEGER NOT NULL,
		total_trades INTEGER NOT NULL,
		chain_fetches BIGINT NOT NULL,
		cancelled BOOLEAN NOT NULL DEFAULT FALSE,
		duration_ms BIGINT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS strategy_results (
		id BIGSERIAL PRIMARY KEY,
		execution_id TEXT NOT NULL,
		strategy_name TEXT NOT NULL,
		strategy_kind TEXT NOT NULL,
		alias TEXT NOT NULL DEFAULT '',
		symbols_scanned INTEGER NOT NULL,
		symbol_errors INTEGER NOT NULL,
		trades_found INTEGER NOT NULL,
		execution_time_ms BIGINT NOT NULL,
		filter_config TEXT NOT NULL DEFAULT '',
		groups_json JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_executions_executed_at ON executions(executed_at);
	CREATE INDEX IF NOT EXISTS idx_strategy_results_execution ON strategy_results(execution_id);`

// PostgresStore implements DataStore on PostgreSQL.
type PostgresStore struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewPostgresStore wraps an open connection. Call Migrate before first use.
func NewPostgresStore(db *sqlx.DB, timeout time.Duration) *PostgresStore {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &PostgresStore{db: db, timeout: timeout}
}

// OpenPostgres connects to dsn and creates the schema.
func OpenPostgres(ctx context.Context, dsn string, timeout time.Duration) (*PostgresStore, error) {
	if dsn == "" {
		return nil, apperrors.NewValidationError("storage.dsn", "", "database DSN is required for postgres")
	}

	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	store := NewPostgresStore(db, timeout)
	if err := store.ping(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *PostgresStore) ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrConnectionFailed, err)
	}
	return nil
}

// Migrate creates the tables if they do not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if _, err := s.db.ExecContext(ctx, postgresSchema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// SaveStrategyResult stores one strategy's outcome.
func (s *PostgresStore) SaveStrategyResult(ctx context.Context, result *models.StrategyResult) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	row, err := storedFrom(result)
	if err != nil {
		return err
	}

	_, err = s.db.NamedExecContext(ctx, `
		INSERT INTO strategy_results (
			execution_id, strategy_name, strategy_kind, alias, symbols_scanned, symbol_errors,
			trades_found, execution_time_ms, filter_config, groups_json, created_at
		) VALUES (
			:execution_id, :strategy_name, :strategy_kind, :alias, :symbols_scanned, :symbol_errors,
			:trades_found, :execution_time_ms, :filter_config, :groups_json, :created_at
		)`, row)
	if err != nil {
		return fmt.Errorf("%w: failed to insert strategy result: %v", apperrors.ErrDatabaseError, err)
	}
	return nil
}

// SaveExecution stores or updates an execution summary.
func (s *PostgresStore) SaveExecution(ctx context.Context, summary models.ExecutionSummary) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO executions (
			execution_id, executed_at, strategies_run, total_trades, chain_fetches, cancelled, duration_ms
		) VALUES (
			:execution_id, :executed_at, :strategies_run, :total_trades, :chain_fetches, :cancelled, :duration_ms
		)
		ON CONFLICT (execution_id) DO UPDATE SET
			strategies_run = EXCLUDED.strategies_run,
			total_trades = EXCLUDED.total_trades,
			chain_fetches = EXCLUDED.chain_fetches,
			cancelled = EXCLUDED.cancelled,
			duration_ms = EXCLUDED.duration_ms`, summary)
	if err != nil {
		return fmt.Errorf("%w: failed to insert execution: %v", apperrors.ErrDatabaseError, err)
	}
	return nil
}

// RecentExecutions returns the latest executions, newest first.
func (s *PostgresStore) RecentExecutions(ctx context.Context, limit int) ([]models.ExecutionSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var out []models.ExecutionSummary
	err := s.db.SelectContext(ctx, &out, `
		SELECT execution_id, executed_at, strategies_run, total_trades, chain_fetches, cancelled, duration_ms
		FROM executions
		ORDER BY executed_at DESC
		LIMIT $1`, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}
	return out, nil
}

// StrategyResults returns the results stored for an execution in insertion order.
func (s *PostgresStore) StrategyResults(ctx context.Context, executionID string) ([]StoredResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var out []StoredResult
	err := s.db.SelectContext(ctx, &out, `
		SELECT execution_id, strategy_name, strategy_kind, alias, symbols_scanned, symbol_errors,
			trades_found, execution_time_ms, filter_config, groups_json::text AS groups_json, created_at
		FROM strategy_results
		WHERE execution_id = $1
		ORDER BY id ASC`, executionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query strategy results: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("execution %s: %w", executionID, apperrors.ErrNotFound)
	}
	return out, nil
}
