package strategy

import (
	"context"

	"github.com/rs/zerolog"

	"options-scanner/internal/models"
)

// guard holds the symbol and expiry gates shared by all strategies: the
// historical volatility floor and the earnings check. Both fail open.
type guard struct {
	filter models.StrategyFilter
	deps   Deps
	logger zerolog.Logger
}

func newGuard(kind Kind, filter models.StrategyFilter, deps Deps) guard {
	return guard{
		filter: filter,
		deps:   deps,
		logger: deps.Logger.With().Str("strategy", kind.DisplayName()).Logger(),
	}
}

// volatilityOK reports whether the symbol meets MinHistoricalVolatility.
func (g guard) volatilityOK(ctx context.Context, symbol string) bool {
	if g.filter.MinHistoricalVolatility == nil || g.deps.Volatility == nil {
		return true
	}
	hv, err := g.deps.Volatility.HistoricalVolatility(ctx, symbol)
	if err != nil {
		g.logger.Warn().Err(err).Str("symbol", symbol).Msg("Historical volatility unavailable, allowing symbol")
		return true
	}
	if hv < *g.filter.MinHistoricalVolatility {
		g.logger.Info().
			Str("symbol", symbol).
			Float64("volatility", hv).
			Float64("min", *g.filter.MinHistoricalVolatility).
			Msg("Historical volatility below minimum, skipping symbol")
		return false
	}
	return true
}

// earningsBlocked reports whether an earnings event falls before expiry.
// A failed lookup is logged and treated as no event.
func (g guard) earningsBlocked(ctx context.Context, symbol string, expiry models.ExpirationKey) bool {
	if g.filter.IgnoreEarnings || g.deps.Earnings == nil {
		return false
	}
	event, err := g.deps.Earnings.NextEarnings(ctx, symbol, expiry.Time())
	if err != nil {
		g.deps.Metrics.RecordEarningsCheck("error")
		g.logger.Error().Err(err).
			Str("symbol", symbol).
			Str("expiry", expiry.Date).
			Msg("Earnings check failed, proceeding")
		return false
	}
	if event == nil {
		g.deps.Metrics.RecordEarningsCheck("clear")
		return false
	}
	g.deps.Metrics.RecordEarningsCheck("blocked")
	g.logger.Info().
		Str("symbol", symbol).
		Str("expiry", expiry.Date).
		Time("earnings", event.Date).
		Msg("Skipping expiry due to upcoming earnings")
	return true
}

// singleExpiry runs a finder over the expiries selected by the filter's DTE
// settings, applying the volatility and earnings gates first.
type singleExpiry struct {
	guard
	kind   Kind
	finder finder
}

func newSingleExpiry(kind Kind, filter models.StrategyFilter, f finder, deps Deps) *singleExpiry {
	return &singleExpiry{
		guard:  newGuard(kind, filter, deps),
		kind:   kind,
		finder: f,
	}
}

// Kind implements Strategy.
func (s *singleExpiry) Kind() Kind { return s.kind }

// Name implements Strategy.
func (s *singleExpiry) Name() string { return s.kind.DisplayName() }

// FindTrades implements Strategy.
func (s *singleExpiry) FindTrades(ctx context.Context, chain *models.OptionChain) ([]models.TradeCandidate, error) {
	if !s.volatilityOK(ctx, chain.Symbol) {
		return nil, nil
	}

	expiries := chain.ExpiriesInRange(s.filter.TargetDTE, s.filter.MinDTE, s.filter.MaxDTE)
	if len(expiries) == 0 {
		s.logger.Debug().
			Str("symbol", chain.Symbol).
			Int("target_dte", s.filter.TargetDTE).
			Int("min_dte", s.filter.MinDTE).
			Int("max_dte", s.filter.MaxDTE).
			Msg("No expiry in range")
		return nil, nil
	}

	var trades []models.TradeCandidate
	for _, expiry := range expiries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if s.earningsBlocked(ctx, chain.Symbol, expiry) {
			continue
		}
		found := s.finder.findValidTrades(chain, expiry)
		s.logger.Debug().
			Str("symbol", chain.Symbol).
			Str("expiry", expiry.Date).
			Int("trades", len(found)).
			Msg("Expiry scanned")
		trades = append(trades, found...)
	}
	return trades, nil
}
