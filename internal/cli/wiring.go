package cli

import (
	"context"
	"os"

	"options-scanner/internal/chain"
	"options-scanner/internal/earnings"
	"options-scanner/internal/metrics"
	"options-scanner/internal/notify"
	"options-scanner/internal/provider"
	"options-scanner/internal/scanner"
	"options-scanner/internal/store"
)

// services are the collaborators of one scan command.
type services struct {
	runner   *scanner.Runner
	store    store.DataStore
	notifier *notify.MultiNotifier
	metrics  *metrics.Registry
	closers  []func() error
}

// Close releases connections in reverse order of creation.
func (s *services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		_ = s.closers[i]()
	}
}

type serviceOptions struct {
	dryRun    bool
	chainsDir string
}

// chainProvider returns the live Schwab client, or a file provider when dir
// is set. The Schwab client doubles as the price history source.
func (a *App) chainProvider(dir string) (chain.Provider, *provider.SchwabClient) {
	if dir != "" {
		return chain.NewFileProvider(dir), nil
	}
	schwab := provider.NewSchwabClient(a.Config.Schwab, a.Logger)
	return schwab, schwab
}

func (a *App) buildServices(ctx context.Context, opts serviceOptions) *services {
	cfg := a.Config
	svc := &services{metrics: metrics.NewRegistry()}

	chains, history := a.chainProvider(opts.chainsDir)
	runnerOpts := []scanner.Option{
		scanner.WithMetrics(svc.metrics),
		scanner.WithConcurrency(cfg.Scanner.Concurrency),
	}
	if history != nil {
		runnerOpts = append(runnerOpts, scanner.WithHistory(history))
	}

	if checker := a.earningsChecker(ctx, svc); checker != nil {
		runnerOpts = append(runnerOpts, scanner.WithEarnings(checker))
	}

	if !opts.dryRun {
		dataStore, err := store.Open(ctx, cfg.Storage)
		if err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to initialize store, results will not be persisted")
		} else {
			svc.store = dataStore
			svc.closers = append(svc.closers, dataStore.Close)
			runnerOpts = append(runnerOpts, scanner.WithStore(dataStore))
		}

		svc.notifier = notify.NewMultiNotifier(cfg.Notifications, a.Logger)
		if cfg.Notifications.Console {
			svc.notifier.AddChannel(notify.NewConsoleNotifier(os.Stderr, isTerminal(os.Stderr)))
		}
		runnerOpts = append(runnerOpts, scanner.WithNotifier(svc.notifier))
	}

	svc.runner = scanner.NewRunner(a.Registry, chains, a.Logger, runnerOpts...)
	return svc
}

// earningsChecker returns nil when no calendar is configured; strategies then
// treat earnings as unknown.
func (a *App) earningsChecker(ctx context.Context, svc *services) *earnings.Checker {
	cfg := a.Config
	if cfg.Finnhub.APIKey == "" {
		a.Logger.Debug().Msg("Finnhub API key not set, earnings checks disabled")
		return nil
	}

	var checkerOpts []earnings.Option
	if cfg.Scanner.EarningsHorizon > 0 {
		checkerOpts = append(checkerOpts, earnings.WithHorizon(cfg.Scanner.EarningsHorizon))
	}
	if cfg.Redis.Addr != "" {
		client, err := earnings.Dial(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			a.Logger.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Redis unavailable, earnings cache kept in memory")
		} else {
			svc.closers = append(svc.closers, client.Close)
			checkerOpts = append(checkerOpts, earnings.WithStore(
				earnings.NewRedisStore(client, cfg.Redis.Prefix, cfg.Redis.TTL)))
		}
	}

	return earnings.NewChecker(provider.NewFinnhubClient(cfg.Finnhub, a.Logger), a.Logger, checkerOpts...)
}
