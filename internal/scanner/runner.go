// Package scanner runs configured strategies over their securities and
// collects, ranks, groups, reports and persists the candidates.
package scanner

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"options-scanner/internal/analysis/screener"
	"options-scanner/internal/chain"
	apperrors "options-scanner/internal/errors"
	"options-scanner/internal/metrics"
	"options-scanner/internal/models"
	"options-scanner/internal/strategy"
)

// StrategyConfig is one enabled strategy entry.
type StrategyConfig struct {
	Alias           string
	Kind            strategy.Kind
	Filter          models.Filter
	Securities      []string
	TechnicalFilter *screener.Conditions
	MaxTradesToSend int
}

// Name returns the alias or the kind's display name.
func (c StrategyConfig) Name() string {
	if c.Alias != "" {
		return c.Alias
	}
	return c.Kind.DisplayName()
}

// Notifier reports a strategy's candidates.
type Notifier interface {
	SendScanResult(ctx context.Context, result *models.StrategyResult) error
}

// ResultStore persists run results.
type ResultStore interface {
	SaveStrategyResult(ctx context.Context, result *models.StrategyResult) error
	SaveExecution(ctx context.Context, summary models.ExecutionSummary) error
}

// Runner executes strategy configurations. Only one execution runs at a time.
type Runner struct {
	registry    *strategy.Registry
	chains      chain.Provider
	history     screener.HistorySource
	earnings    strategy.EarningsSource
	notifier    Notifier
	store       ResultStore
	metrics     *metrics.Registry
	concurrency int
	logger      zerolog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
}

// Option configures a Runner.
type Option func(*Runner)

// WithHistory enables technical screening and the volatility gate.
func WithHistory(source screener.HistorySource) Option {
	return func(r *Runner) { r.history = source }
}

// WithEarnings enables the earnings guard.
func WithEarnings(source strategy.EarningsSource) Option {
	return func(r *Runner) { r.earnings = source }
}

// WithNotifier sends each strategy's candidates through n.
func WithNotifier(n Notifier) Option {
	return func(r *Runner) { r.notifier = n }
}

// WithStore persists results through s.
func WithStore(s ResultStore) Option {
	return func(r *Runner) { r.store = s }
}

// WithMetrics records scan metrics in m.
func WithMetrics(m *metrics.Registry) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithConcurrency bounds the symbols processed in parallel per strategy.
func WithConcurrency(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// NewRunner creates a Runner.
func NewRunner(registry *strategy.Registry, chains chain.Provider, logger zerolog.Logger, opts ...Option) *Runner {
	r := &Runner{
		registry:    registry,
		chains:      chains,
		concurrency: 4,
		logger:      logger.With().Str("component", "scanner").Logger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Running reports whether an execution is in progress.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Cancel stops the execution in progress. Work already done is kept and the
// remaining strategies and symbols are skipped. It returns false when nothing
// is running.
func (r *Runner) Cancel() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running || r.cancel == nil {
		return false
	}
	r.cancel()
	return true
}

func (r *Runner) begin(ctx context.Context) (context.Context, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return nil, apperrors.ErrExecutionRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	r.running = true
	r.cancel = cancel
	return ctx, nil
}

func (r *Runner) end() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
	}
	r.running = false
	r.cancel = nil
}

// run holds the per-execution state.
type run struct {
	id       string
	chains   *chain.Cache
	history  *screener.HistoryCache
	screener *screener.Screener
	logger   zerolog.Logger
}

// Execute runs every config in order and returns the collected results. A
// cancelled execution returns the results gathered so far with Cancelled set.
func (r *Runner) Execute(ctx context.Context, configs []StrategyConfig) (*models.ExecutionResult, error) {
	ctx, err := r.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer r.end()

	start := time.Now()
	exec := &run{
		id:     "exec_" + uuid.NewString(),
		chains: chain.NewCache(r.chains, r.logger, r.metrics),
	}
	exec.logger = r.logger.With().Str("execution_id", exec.id).Logger()
	if r.history != nil {
		exec.history = screener.NewHistoryCache(r.history, exec.logger)
		exec.screener = screener.NewScreener(exec.history, r.concurrency, exec.logger)
	}

	r.metrics.ScanStarted()
	exec.logger.Info().Int("strategies", len(configs)).Msg("Execution started")

	result := &models.ExecutionResult{
		ExecutionID: exec.id,
		Timestamp:   start.UTC(),
	}
	for _, cfg := range configs {
		if ctx.Err() != nil {
			break
		}
		sr, err := r.runStrategy(ctx, exec, cfg)
		if err != nil {
			exec.logger.Error().Err(err).Str("strategy", cfg.Name()).Msg("Strategy skipped")
			continue
		}
		result.Results = append(result.Results, sr)
		result.TotalTradesFound += sr.TradesFound
	}

	result.Cancelled = ctx.Err() != nil
	result.ChainFetches = exec.chains.FetchCount()
	result.DurationMs = time.Since(start).Milliseconds()
	exec.chains.LogStats()

	if r.store != nil {
		// The run context may already be cancelled.
		if err := r.store.SaveExecution(context.WithoutCancel(ctx), result.Summary()); err != nil {
			exec.logger.Error().Err(err).Msg("Failed to persist execution")
		}
	}
	r.metrics.ScanFinished(result.TotalTradesFound)

	exec.logger.Info().
		Int("strategies", len(result.Results)).
		Int("trades", result.TotalTradesFound).
		Int64("chain_fetches", result.ChainFetches).
		Bool("cancelled", result.Cancelled).
		Int64("duration_ms", result.DurationMs).
		Msg("Execution finished")
	return result, nil
}

func (r *Runner) runStrategy(ctx context.Context, exec *run, cfg StrategyConfig) (*models.StrategyResult, error) {
	start := time.Now()
	logger := exec.logger.With().Str("strategy", cfg.Name()).Logger()

	deps := strategy.Deps{
		Earnings: r.earnings,
		Logger:   logger,
		Metrics:  r.metrics,
	}
	if exec.history != nil {
		deps.Volatility = exec.history
	}
	strat, err := r.registry.Build(cfg.Kind, cfg.Filter, deps)
	if err != nil {
		return nil, err
	}

	symbols := normalizeSymbols(cfg.Securities)
	result := &models.StrategyResult{
		ExecutionID:    exec.id,
		StrategyName:   strat.Name(),
		StrategyKind:   string(cfg.Kind),
		Alias:          cfg.Alias,
		SymbolsScanned: len(symbols),
		CreatedAt:      start.UTC(),
	}
	if cfg.Filter != nil {
		if data, err := json.Marshal(cfg.Filter); err == nil {
			result.FilterConfigJSON = string(data)
		}
	}

	if cfg.TechnicalFilter != nil {
		if exec.screener == nil {
			logger.Warn().Msg("Technical filter configured without a price history source, skipping screen")
		} else {
			screened, err := exec.screener.Screen(ctx, symbols, *cfg.TechnicalFilter)
			if err != nil {
				return nil, err
			}
			symbols = screened
		}
	}
	result.SymbolsScreened = len(symbols)

	perSymbol, symbolErrors := r.scanSymbols(ctx, exec, strat, symbols, logger)
	result.SymbolErrors = symbolErrors

	// MaxTradesToSend caps each symbol, not the strategy as a whole.
	var trades []models.TradeCandidate
	for _, found := range perSymbol {
		trades = append(trades, RankTrades(found, cfg.MaxTradesToSend)...)
	}
	result.Groups = GroupByExpiry(trades, symbols)
	result.TradesFound = len(trades)
	result.ExecutionTimeMs = time.Since(start).Milliseconds()

	logger.Info().
		Int("symbols", len(symbols)).
		Int("errors", symbolErrors).
		Int("trades", result.TradesFound).
		Int64("duration_ms", result.ExecutionTimeMs).
		Msg("Strategy complete")

	r.metrics.RecordStrategy(strat.Name(), time.Since(start), result.TradesFound, symbolErrors)

	persistCtx := context.WithoutCancel(ctx)
	if r.notifier != nil && result.TradesFound > 0 {
		if err := r.notifier.SendScanResult(persistCtx, result); err != nil {
			logger.Error().Err(err).Msg("Failed to send notification")
		}
	}
	if r.store != nil {
		if err := r.store.SaveStrategyResult(persistCtx, result); err != nil {
			logger.Error().Err(err).Msg("Failed to persist strategy result")
		}
	}
	return result, nil
}

// scanSymbols runs strat over each symbol's chain. The returned slice is
// aligned with symbols.
func (r *Runner) scanSymbols(ctx context.Context, exec *run, strat strategy.Strategy, symbols []string, logger zerolog.Logger) ([][]models.TradeCandidate, int) {
	out := make([][]models.TradeCandidate, len(symbols))
	var errCount atomic.Int32

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, symbol := range symbols {
		i, symbol := i, symbol
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			oc, err := exec.chains.Get(ctx, symbol)
			if err != nil {
				if ctx.Err() == nil {
					errCount.Add(1)
					logger.Error().Err(err).Str("symbol", symbol).Msg("Option chain unavailable, skipping symbol")
				}
				return nil
			}
			trades, err := strat.FindTrades(ctx, oc)
			if err != nil {
				if ctx.Err() == nil {
					errCount.Add(1)
					logger.Error().Err(err).Str("symbol", symbol).Msg("Strategy failed for symbol")
				}
				return nil
			}
			logger.Debug().Str("symbol", symbol).Int("trades", len(trades)).Msg("Symbol scanned")
			out[i] = trades
			return nil
		})
	}
	_ = g.Wait()
	return out, int(errCount.Load())
}

func normalizeSymbols(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// RankTrades orders trades by return on risk, highest first, keeping the
// input order for ties, and keeps at most limit when limit > 0.
func RankTrades(trades []models.TradeCandidate, limit int) []models.TradeCandidate {
	sort.SliceStable(trades, func(i, j int) bool {
		return trades[i].Summary().ReturnOnRisk > trades[j].Summary().ReturnOnRisk
	})
	if limit > 0 && len(trades) > limit {
		trades = trades[:limit]
	}
	return trades
}

// GroupByExpiry groups trades under SYMBOL_EXPIRY keys. Groups follow the
// order of symbols, then expiry date; trades keep their relative order.
func GroupByExpiry(trades []models.TradeCandidate, symbols []string) []models.ExpiryGroup {
	rank := make(map[string]int, len(symbols))
	for i, s := range symbols {
		rank[s] = i
	}

	index := make(map[string]int)
	var groups []models.ExpiryGroup
	for _, t := range trades {
		s := t.Summary()
		key := s.Symbol + "_" + s.ExpiryDate
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, models.ExpiryGroup{Key: key, Symbol: s.Symbol, Expiry: s.ExpiryDate})
		}
		groups[i].Trades = append(groups[i].Trades, t)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		ri, iok := rank[groups[i].Symbol]
		rj, jok := rank[groups[j].Symbol]
		if iok != jok {
			return iok
		}
		if ri != rj {
			return ri < rj
		}
		if groups[i].Symbol != groups[j].Symbol {
			return groups[i].Symbol < groups[j].Symbol
		}
		return groups[i].Expiry < groups[j].Expiry
	})
	return groups
}
