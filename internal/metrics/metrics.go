// Package metrics exposes Prometheus instrumentation for scan runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the scanner's Prometheus collectors. A nil *Registry is valid
// and records nothing, so components can be built without instrumentation.
type Registry struct {
	registry *prometheus.Registry

	ChainFetches     *prometheus.CounterVec
	ChainCacheHits   prometheus.Counter
	StrategyDuration *prometheus.HistogramVec
	TradesFound      *prometheus.CounterVec
	SymbolErrors     *prometheus.CounterVec
	EarningsChecks   *prometheus.CounterVec
	ActiveScans      prometheus.Gauge
	TotalScans       prometheus.Counter
	LastScanTrades   prometheus.Gauge
}

// NewRegistry creates and registers all scanner metrics on a private registry.
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),

		ChainFetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "options_scanner_chain_fetches_total",
				Help: "Option chain fetches by result",
			},
			[]string{"result"},
		),

		ChainCacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "options_scanner_chain_cache_hits_total",
				Help: "Option chain lookups served from the per-run cache",
			},
		),

		StrategyDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "options_scanner_strategy_duration_seconds",
				Help:    "Wall time of one strategy across its securities",
				Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
			[]string{"strategy"},
		),

		TradesFound: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "options_scanner_trades_found_total",
				Help: "Trade candidates kept after ranking, by strategy",
			},
			[]string{"strategy"},
		),

		SymbolErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "options_scanner_symbol_errors_total",
				Help: "Symbols skipped because of an error, by strategy",
			},
			[]string{"strategy"},
		),

		EarningsChecks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "options_scanner_earnings_checks_total",
				Help: "Earnings checks by outcome (clear, blocked, error)",
			},
			[]string{"outcome"},
		),

		ActiveScans: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "options_scanner_active_scans",
				Help: "Number of scans currently running",
			},
		),

		TotalScans: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "options_scanner_scans_total",
				Help: "Scans started",
			},
		),

		LastScanTrades: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "options_scanner_last_scan_trades",
				Help: "Trades found by the most recent scan",
			},
		),
	}

	r.registry.MustRegister(
		r.ChainFetches,
		r.ChainCacheHits,
		r.StrategyDuration,
		r.TradesFound,
		r.SymbolErrors,
		r.EarningsChecks,
		r.ActiveScans,
		r.TotalScans,
		r.LastScanTrades,
	)

	return r
}

// Gatherer exposes the underlying registry, mainly for tests.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// RecordChainFetch counts one upstream chain fetch.
func (r *Registry) RecordChainFetch(err error) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.ChainFetches.WithLabelValues(result).Inc()
}

// RecordChainCacheHit counts a lookup served without fetching.
func (r *Registry) RecordChainCacheHit() {
	if r == nil {
		return
	}
	r.ChainCacheHits.Inc()
}

// RecordEarningsCheck counts an earnings check outcome.
func (r *Registry) RecordEarningsCheck(outcome string) {
	if r == nil {
		return
	}
	r.EarningsChecks.WithLabelValues(outcome).Inc()
}

// RecordStrategy records the duration, trades and symbol errors of one strategy.
func (r *Registry) RecordStrategy(strategy string, duration time.Duration, trades, symbolErrors int) {
	if r == nil {
		return
	}
	r.StrategyDuration.WithLabelValues(strategy).Observe(duration.Seconds())
	r.TradesFound.WithLabelValues(strategy).Add(float64(trades))
	if symbolErrors > 0 {
		r.SymbolErrors.WithLabelValues(strategy).Add(float64(symbolErrors))
	}
}

// ScanStarted marks a scan as running.
func (r *Registry) ScanStarted() {
	if r == nil {
		return
	}
	r.ActiveScans.Inc()
	r.TotalScans.Inc()
}

// ScanFinished marks a scan as done.
func (r *Registry) ScanFinished(trades int) {
	if r == nil {
		return
	}
	r.ActiveScans.Dec()
	r.LastScanTrades.Set(float64(trades))
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
