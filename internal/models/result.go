package models

import "time"

// ExpiryGroup is the candidates of one symbol at one expiry, keyed SYMBOL_EXPIRY.
type ExpiryGroup struct {
	Key    string           `json:"key"`
	Symbol string           `json:"symbol"`
	Expiry string           `json:"expiry"`
	Trades []TradeCandidate `json:"trades"`
}

// StrategyResult is the outcome of running one configured strategy.
type StrategyResult struct {
	ExecutionID      string        `json:"executionId"`
	StrategyName     string        `json:"strategyName"`
	StrategyKind     string        `json:"strategyKind"`
	Alias            string        `json:"alias,omitempty"`
	SymbolsScanned   int           `json:"symbolsScanned"`
	SymbolsScreened  int           `json:"symbolsScreened"`
	SymbolErrors     int           `json:"symbolErrors"`
	TradesFound      int           `json:"tradesFound"`
	Groups           []ExpiryGroup `json:"groups"`
	ExecutionTimeMs  int64         `json:"executionTimeMs"`
	FilterConfigJSON string        `json:"filterConfig,omitempty"`
	CreatedAt        time.Time     `json:"createdAt"`
}

// Trades returns every candidate in group order.
func (r *StrategyResult) Trades() []TradeCandidate {
	var out []TradeCandidate
	for _, g := range r.Groups {
		out = append(out, g.Trades...)
	}
	return out
}

// DisplayName prefers the configured alias.
func (r *StrategyResult) DisplayName() string {
	if r.Alias != "" {
		return r.Alias
	}
	return r.StrategyName
}

// ExecutionResult summarises a complete scan run.
type ExecutionResult struct {
	ExecutionID      string            `json:"executionId"`
	Timestamp        time.Time         `json:"timestamp"`
	Results          []*StrategyResult `json:"results"`
	TotalTradesFound int               `json:"totalTradesFound"`
	ChainFetches     int64             `json:"chainFetches"`
	Cancelled        bool              `json:"cancelled"`
	DurationMs       int64             `json:"durationMs"`
}

// ExecutionSummary is the persisted row describing a past run.
type ExecutionSummary struct {
	ExecutionID      string    `json:"executionId" db:"execution_id"`
	Timestamp        time.Time `json:"timestamp" db:"executed_at"`
	StrategiesRun    int       `json:"strategiesRun" db:"strategies_run"`
	TotalTradesFound int       `json:"totalTradesFound" db:"total_trades"`
	ChainFetches     int64     `json:"chainFetches" db:"chain_fetches"`
	Cancelled        bool      `json:"cancelled" db:"cancelled"`
	DurationMs       int64     `json:"durationMs" db:"duration_ms"`
}

// Summary returns the persisted form of r.
func (r *ExecutionResult) Summary() ExecutionSummary {
	return ExecutionSummary{
		ExecutionID:      r.ExecutionID,
		Timestamp:        r.Timestamp,
		StrategiesRun:    len(r.Results),
		TotalTradesFound: r.TotalTradesFound,
		ChainFetches:     r.ChainFetches,
		Cancelled:        r.Cancelled,
		DurationMs:       r.DurationMs,
	}
}
