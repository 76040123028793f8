// Package earnings answers whether a symbol reports earnings before a given
// date, backed by a calendar provider and a shared calendar cache.
package earnings

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"options-scanner/internal/models"
	"options-scanner/pkg/utils"
)

// DefaultHorizon is how far ahead the calendar is fetched for each symbol.
const DefaultHorizon = 365 * 24 * time.Hour

// Calendar returns the earnings events for a symbol between from and to.
type Calendar interface {
	EarningsCalendar(ctx context.Context, symbol string, from, to time.Time) ([]models.EarningsEvent, error)
}

// Store persists fetched calendars across runs.
type Store interface {
	Load(ctx context.Context, symbol string) (*Entry, error)
	Save(ctx context.Context, symbol string, entry *Entry) error
}

// Entry is one symbol's cached calendar.
type Entry struct {
	FetchedAt time.Time              `json:"fetchedAt"`
	Through   time.Time              `json:"through"`
	Events    []models.EarningsEvent `json:"events"`
}

// Covers reports whether the entry spans up to date.
func (e *Entry) Covers(date time.Time) bool {
	return e != nil && !e.Through.Before(date)
}

// Checker implements the earnings lookup used by the strategy guard.
type Checker struct {
	calendar Calendar
	store    Store
	horizon  time.Duration
	now      func() time.Time
	logger   zerolog.Logger

	mu      sync.Mutex
	entries map[string]*Entry
	group   singleflight.Group
}

// Option configures a Checker.
type Option func(*Checker)

// WithStore shares fetched calendars through store.
func WithStore(store Store) Option {
	return func(c *Checker) { c.store = store }
}

// WithHorizon overrides DefaultHorizon.
func WithHorizon(d time.Duration) Option {
	return func(c *Checker) { c.horizon = d }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Checker) { c.now = now }
}

// NewChecker creates a Checker over calendar.
func NewChecker(calendar Calendar, logger zerolog.Logger, opts ...Option) *Checker {
	c := &Checker{
		calendar: calendar,
		horizon:  DefaultHorizon,
		now:      time.Now,
		logger:   logger.With().Str("component", "earnings").Logger(),
		entries:  make(map[string]*Entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NextEarnings returns the first event from today up to and including before,
// or nil when there is none.
func (c *Checker) NextEarnings(ctx context.Context, symbol string, before time.Time) (*models.EarningsEvent, error) {
	symbol = strings.ToUpper(symbol)
	today := utils.TradingDate(c.now())
	until := time.Date(before.Year(), before.Month(), before.Day(), 0, 0, 0, 0, time.UTC)

	entry, err := c.entry(ctx, symbol, today, until)
	if err != nil {
		return nil, err
	}
	for i := range entry.Events {
		event := entry.Events[i]
		if event.Date.Before(today) || event.Date.After(until) {
			continue
		}
		return &event, nil
	}
	return nil, nil
}

func (c *Checker) entry(ctx context.Context, symbol string, today, until time.Time) (*Entry, error) {
	c.mu.Lock()
	entry := c.entries[symbol]
	c.mu.Unlock()
	if entry.Covers(until) {
		return entry, nil
	}

	v, err, _ := c.group.Do(symbol, func() (interface{}, error) {
		if c.store != nil {
			cached, err := c.store.Load(ctx, symbol)
			if err != nil {
				c.logger.Warn().Err(err).Str("symbol", symbol).Msg("Earnings cache read failed")
			} else if cached.Covers(until) {
				c.remember(symbol, cached)
				return cached, nil
			}
		}

		through := today.Add(c.horizon)
		if until.After(through) {
			through = until
		}
		events, err := c.calendar.EarningsCalendar(ctx, symbol, today, through)
		if err != nil {
			return nil, err
		}
		fresh := &Entry{FetchedAt: c.now().UTC(), Through: through, Events: events}
		c.logger.Debug().Str("symbol", symbol).Int("events", len(events)).Time("through", through).Msg("Fetched earnings calendar")

		if c.store != nil {
			if err := c.store.Save(ctx, symbol, fresh); err != nil {
				c.logger.Warn().Err(err).Str("symbol", symbol).Msg("Earnings cache write failed")
			}
		}
		c.remember(symbol, fresh)
		return fresh, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Entry), nil
}

func (c *Checker) remember(symbol string, entry *Entry) {
	c.mu.Lock()
	c.entries[symbol] = entry
	c.mu.Unlock()
}
