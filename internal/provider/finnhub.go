package provider

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	apperrors "options-scanner/internal/errors"
	"options-scanner/internal/models"
)

// DefaultFinnhubBaseURL is the Finnhub API root.
const DefaultFinnhubBaseURL = "https://finnhub.io/api/v1"

// FinnhubConfig configures the Finnhub client.
type FinnhubConfig struct {
	ClientConfig `mapstructure:",squash"`
	APIKey       string `mapstructure:"api_key"`
}

// FinnhubClient fetches the earnings calendar.
type FinnhubClient struct {
	client *httpClient
	apiKey string
}

// NewFinnhubClient creates a FinnhubClient.
func NewFinnhubClient(cfg FinnhubConfig, logger zerolog.Logger) *FinnhubClient {
	return &FinnhubClient{
		client: newHTTPClient("finnhub", cfg.ClientConfig.withDefaults(DefaultFinnhubBaseURL), logger),
		apiKey: cfg.APIKey,
	}
}

type earningsCalendarResponse struct {
	EarningsCalendar []struct {
		Date            string   `json:"date"`
		Hour            string   `json:"hour"`
		Quarter         int      `json:"quarter"`
		Year            int      `json:"year"`
		Symbol          string   `json:"symbol"`
		EPSEstimate     *float64 `json:"epsEstimate"`
		RevenueEstimate *float64 `json:"revenueEstimate"`
	} `json:"earningsCalendar"`
}

// EarningsCalendar returns the events for symbol between from and to
// inclusive, ordered by date. Entries with an unparseable date are dropped.
func (f *FinnhubClient) EarningsCalendar(ctx context.Context, symbol string, from, to time.Time) ([]models.EarningsEvent, error) {
	if f.apiKey == "" {
		return nil, apperrors.NewValidationError("finnhub.api_key", "", "API key not configured")
	}
	symbol = strings.ToUpper(symbol)

	query := url.Values{}
	query.Set("symbol", symbol)
	query.Set("from", from.Format(models.ExpiryDateLayout))
	query.Set("to", to.Format(models.ExpiryDateLayout))
	query.Set("token", f.apiKey)

	var resp earningsCalendarResponse
	if err := f.client.getJSON(ctx, "/calendar/earnings", query, nil, &resp); err != nil {
		return nil, fmt.Errorf("%w [%s]: %w", apperrors.ErrEarningsCheck, symbol, err)
	}

	events := make([]models.EarningsEvent, 0, len(resp.EarningsCalendar))
	for _, e := range resp.EarningsCalendar {
		date, err := time.Parse(models.ExpiryDateLayout, e.Date)
		if err != nil {
			f.client.logger.Debug().Str("symbol", symbol).Str("date", e.Date).Msg("Skipping earnings entry with bad date")
			continue
		}
		eventSymbol := e.Symbol
		if eventSymbol == "" {
			eventSymbol = symbol
		}
		events = append(events, models.EarningsEvent{
			Symbol:          eventSymbol,
			Date:            date,
			Hour:            e.Hour,
			Quarter:         e.Quarter,
			Year:            e.Year,
			EPSEstimate:     e.EPSEstimate,
			RevenueEstimate: e.RevenueEstimate,
		})
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].Date.Before(events[j].Date) })
	return events, nil
}
