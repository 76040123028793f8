// Package chain resolves option-chain snapshots for a scan run.
package chain

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	apperrors "options-scanner/internal/errors"
	"options-scanner/internal/metrics"
	"options-scanner/internal/models"
)

// Provider fetches a fresh option chain for a symbol.
type Provider interface {
	FetchChain(ctx context.Context, symbol string) (*models.OptionChain, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, symbol string) (*models.OptionChain, error)

// FetchChain implements Provider.
func (f ProviderFunc) FetchChain(ctx context.Context, symbol string) (*models.OptionChain, error) {
	return f(ctx, symbol)
}

// Cache memoises chains for one execution. Each symbol is fetched at most once
// while it succeeds; concurrent callers for the same symbol share the in-flight
// fetch, and no lock is held across the provider call. Failed fetches are not
// stored, so a later Get retries.
type Cache struct {
	provider Provider
	logger   zerolog.Logger
	metrics  *metrics.Registry

	mu     sync.RWMutex
	chains map[string]*models.OptionChain
	group  singleflight.Group

	fetches atomic.Int64
	hits    atomic.Int64
}

// NewCache creates an empty cache backed by provider.
func NewCache(provider Provider, logger zerolog.Logger, m *metrics.Registry) *Cache {
	return &Cache{
		provider: provider,
		logger:   logger.With().Str("component", "chain_cache").Logger(),
		metrics:  m,
		chains:   make(map[string]*models.OptionChain),
	}
}

// Get returns the chain for symbol, fetching and scrubbing it on first use.
func (c *Cache) Get(ctx context.Context, symbol string) (*models.OptionChain, error) {
	if chain, ok := c.lookup(symbol); ok {
		c.hits.Add(1)
		c.metrics.RecordChainCacheHit()
		c.logger.Debug().Str("symbol", symbol).Msg("Chain cache hit")
		return chain, nil
	}

	fetched := false
	v, err, _ := c.group.Do(symbol, func() (interface{}, error) {
		// Another caller may have stored it between lookup and Do.
		if chain, ok := c.lookup(symbol); ok {
			return chain, nil
		}
		fetched = true
		return c.fetch(ctx, symbol)
	})
	if err != nil {
		return nil, err
	}
	// Every caller except the one that ran the fetch is a hit.
	if !fetched {
		c.hits.Add(1)
		c.metrics.RecordChainCacheHit()
	}
	return v.(*models.OptionChain), nil
}

func (c *Cache) lookup(symbol string) (*models.OptionChain, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	chain, ok := c.chains[symbol]
	return chain, ok
}

func (c *Cache) fetch(ctx context.Context, symbol string) (*models.OptionChain, error) {
	n := c.fetches.Add(1)
	c.logger.Debug().Str("symbol", symbol).Int64("fetch", n).Msg("Fetching option chain")

	chain, err := c.provider.FetchChain(ctx, symbol)
	c.metrics.RecordChainFetch(err)
	if err != nil {
		var fetchErr *apperrors.ChainFetchError
		if apperrors.As(err, &fetchErr) {
			return nil, err
		}
		return nil, apperrors.NewChainFetchError(symbol, "", err)
	}
	if chain == nil {
		return nil, apperrors.NewChainFetchError(symbol, "", apperrors.ErrNotFound)
	}

	if removed := chain.ScrubInvalidQuotes(); removed > 0 {
		c.logger.Debug().Str("symbol", symbol).Int("removed", removed).Msg("Scrubbed invalid quotes")
	}

	c.mu.Lock()
	c.chains[symbol] = chain
	c.mu.Unlock()
	return chain, nil
}

// GetAll resolves every symbol, logging and skipping the ones that fail.
func (c *Cache) GetAll(ctx context.Context, symbols []string) map[string]*models.OptionChain {
	out := make(map[string]*models.OptionChain, len(symbols))
	for _, symbol := range symbols {
		if ctx.Err() != nil {
			break
		}
		chain, err := c.Get(ctx, symbol)
		if err != nil {
			c.logger.Warn().Err(err).Str("symbol", symbol).Msg("Skipping symbol, chain unavailable")
			continue
		}
		out[symbol] = chain
	}
	return out
}

// IsCached reports whether symbol has been fetched successfully.
func (c *Cache) IsCached(symbol string) bool {
	_, ok := c.lookup(symbol)
	return ok
}

// Size returns the number of cached chains.
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.chains)
}

// Symbols returns the cached symbols in sorted order.
func (c *Cache) Symbols() []string {
	c.mu.RLock()
	out := make([]string, 0, len(c.chains))
	for s := range c.chains {
		out = append(out, s)
	}
	c.mu.RUnlock()
	sort.Strings(out)
	return out
}

// FetchCount returns the number of provider calls made so far.
func (c *Cache) FetchCount() int64 {
	return c.fetches.Load()
}

// HitCount returns the number of lookups served without a new fetch.
func (c *Cache) HitCount() int64 {
	return c.hits.Load()
}

// Clear drops every cached chain.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.chains = make(map[string]*models.OptionChain)
	c.mu.Unlock()
}

// LogStats writes a one-line summary of cache usage.
func (c *Cache) LogStats() {
	c.logger.Info().
		Int("cached", c.Size()).
		Int64("fetches", c.FetchCount()).
		Int64("hits", c.HitCount()).
		Msg("Option chain cache stats")
}
