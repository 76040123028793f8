// Package notify delivers scan results to chat and webhook channels.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"options-scanner/internal/models"
	"options-scanner/pkg/utils"
)

// NotificationChannel defines the interface for a notification channel.
type NotificationChannel interface {
	Name() string
	Send(ctx context.Context, n Notification) error
	IsEnabled() bool
}

// Notification represents a notification message.
type Notification struct {
	Type      NotificationType
	Title     string
	Message   string
	Data      map[string]interface{}
	Timestamp time.Time
}

// NotificationType represents the type of notification.
type NotificationType string

const (
	NotificationTrades  NotificationType = "trades"
	NotificationError   NotificationType = "error"
	NotificationSummary NotificationType = "summary"
)

// NotificationLevel represents the notification level filter.
type NotificationLevel string

const (
	LevelAll        NotificationLevel = "all"
	LevelTradesOnly NotificationLevel = "trades_only"
	LevelErrorsOnly NotificationLevel = "errors_only"
)

// Config holds channel settings.
type Config struct {
	Level    string         `mapstructure:"level"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Webhook  WebhookConfig  `mapstructure:"webhook"`
	Console  bool           `mapstructure:"console"`
}

// TelegramConfig configures the Telegram bot channel.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// WebhookConfig configures the generic JSON webhook channel.
type WebhookConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

// MultiNotifier sends notifications to multiple channels.
type MultiNotifier struct {
	channels []NotificationChannel
	level    NotificationLevel
	logger   zerolog.Logger
	mu       sync.RWMutex
}

// NewMultiNotifier creates a new MultiNotifier with the given configuration.
func NewMultiNotifier(cfg Config, logger zerolog.Logger) *MultiNotifier {
	mn := &MultiNotifier{
		level:  NotificationLevel(cfg.Level),
		logger: logger.With().Str("component", "notify").Logger(),
	}
	if mn.level == "" {
		mn.level = LevelAll
	}

	if cfg.Webhook.Enabled {
		mn.channels = append(mn.channels, NewWebhookNotifier(cfg.Webhook))
	}
	if cfg.Telegram.Enabled {
		mn.channels = append(mn.channels, NewTelegramNotifier(cfg.Telegram))
	}

	return mn
}

// AddChannel adds a notification channel.
func (mn *MultiNotifier) AddChannel(ch NotificationChannel) {
	mn.mu.Lock()
	defer mn.mu.Unlock()
	mn.channels = append(mn.channels, ch)
}

// Channels returns the names of the enabled channels.
func (mn *MultiNotifier) Channels() []string {
	mn.mu.RLock()
	defer mn.mu.RUnlock()
	var names []string
	for _, ch := range mn.channels {
		if ch.IsEnabled() {
			names = append(names, ch.Name())
		}
	}
	return names
}

func (mn *MultiNotifier) shouldSend(notifType NotificationType) bool {
	switch mn.level {
	case LevelTradesOnly:
		return notifType == NotificationTrades
	case LevelErrorsOnly:
		return notifType == NotificationError
	default:
		return true
	}
}

// Send sends a notification to all enabled channels. Every channel is tried;
// the returned error names each one that failed.
func (mn *MultiNotifier) Send(ctx context.Context, n Notification) error {
	if !mn.shouldSend(n.Type) {
		return nil
	}

	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now()
	}

	mn.mu.RLock()
	channels := mn.channels
	mn.mu.RUnlock()

	var errs []string
	for _, ch := range channels {
		if !ch.IsEnabled() {
			continue
		}
		if err := ch.Send(ctx, n); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", ch.Name(), err))
			continue
		}
		mn.logger.Debug().Str("channel", ch.Name()).Str("title", n.Title).Msg("Notification sent")
	}

	if len(errs) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// SendScanResult sends one notification per expiry group of result.
func (mn *MultiNotifier) SendScanResult(ctx context.Context, result *models.StrategyResult) error {
	var errs []string
	for _, group := range result.Groups {
		if len(group.Trades) == 0 {
			continue
		}
		err := mn.Send(ctx, Notification{
			Type:    NotificationTrades,
			Title:   fmt.Sprintf("📊 %s", result.DisplayName()),
			Message: FormatGroup(group),
			Data: map[string]interface{}{
				"execution_id": result.ExecutionID,
				"strategy":     result.StrategyKind,
				"key":          group.Key,
				"symbol":       group.Symbol,
				"expiry":       group.Expiry,
				"trades":       group.Trades,
			},
		})
		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// SendExecutionSummary sends the totals of a finished execution.
func (mn *MultiNotifier) SendExecutionSummary(ctx context.Context, summary models.ExecutionSummary) error {
	status := "completed"
	if summary.Cancelled {
		status = "cancelled"
	}
	message := fmt.Sprintf("Strategies: %d\nTrades: %d\nChain fetches: %d\nDuration: %s",
		summary.StrategiesRun,
		summary.TotalTradesFound,
		summary.ChainFetches,
		(time.Duration(summary.DurationMs) * time.Millisecond).String(),
	)
	return mn.Send(ctx, Notification{
		Type:    NotificationSummary,
		Title:   fmt.Sprintf("🏁 Scan %s", status),
		Message: message,
		Data: map[string]interface{}{
			"execution_id": summary.ExecutionID,
			"total_trades": summary.TotalTradesFound,
			"cancelled":    summary.Cancelled,
		},
	})
}

// SendError sends an error notification.
func (mn *MultiNotifier) SendError(ctx context.Context, err error, errContext string) error {
	message := fmt.Sprintf("Context: %s\nError: %v\nTime: %s",
		errContext, err, time.Now().Format("15:04:05"))

	return mn.Send(ctx, Notification{
		Type:    NotificationError,
		Title:   "❌ Error Occurred",
		Message: message,
		Data: map[string]interface{}{
			"context": errContext,
			"error":   err.Error(),
		},
	})
}

// FormatGroup renders the trades of one symbol and expiry as plain text.
func FormatGroup(group models.ExpiryGroup) string {
	if len(group.Trades) == 0 {
		return ""
	}
	first := group.Trades[0].Summary()

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("💰 %s @ %s\n", group.Symbol, utils.FormatUSD(first.UnderlyingPrice)))
	sb.WriteString(fmt.Sprintf("📅 Expiry: %s (%d DTE)\n", first.ExpiryDate, first.DTE))
	sb.WriteString(strings.Repeat("━", 20) + "\n\n")

	for i, trade := range group.Trades {
		sb.WriteString(FormatTrade(trade, i+1))
		sb.WriteString("\n")
	}
	return sb.String()
}

// FormatTrade renders one candidate with its legs and economics.
func FormatTrade(trade models.TradeCandidate, num int) string {
	s := trade.Summary()

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Trade %d:\n", num))
	for _, leg := range trade.Legs() {
		qty := ""
		if leg.Quantity > 1 {
			qty = fmt.Sprintf("%dx ", leg.Quantity)
		}
		sb.WriteString(fmt.Sprintf("  %s %s%s %s (δ %.2f) → %s\n",
			leg.Action, qty, utils.FormatStrike(leg.Strike), leg.OptionType, leg.Delta, utils.FormatUSD(leg.Mark)))
	}

	if s.NetCredit >= 0 {
		sb.WriteString("  💵 Credit: " + utils.FormatUSD(s.NetCredit))
	} else {
		sb.WriteString("  💵 Debit: " + utils.FormatUSD(-s.NetCredit))
	}
	sb.WriteString(" | Max Loss: " + utils.FormatUSD(s.MaxLoss) + "\n  ")

	if s.ReturnOnRisk > 0 {
		sb.WriteString(fmt.Sprintf("📈 RoR: %.2f%% | ", s.ReturnOnRisk))
	}
	sb.WriteString(fmt.Sprintf("BE: %s (%s)", utils.FormatUSD(s.BreakEvenPrice), utils.FormatPercent(s.BreakEvenPercent)))
	if s.UpperBreakEvenPrice > 0 && abs(s.UpperBreakEvenPrice-s.BreakEvenPrice) > 0.01 {
		sb.WriteString(fmt.Sprintf(" | Upper BE: %s (%s)",
			utils.FormatUSD(s.UpperBreakEvenPrice), utils.FormatPercent(s.UpperBreakEvenPercent)))
	}

	if leap, ok := trade.(models.LongCallLeap); ok {
		sb.WriteString(fmt.Sprintf(" [CAGR: %.2f%%]", leap.BreakEvenCAGR()))
		sb.WriteString(fmt.Sprintf("\n  🏷️ Cost (Opt/Stock): %s / %s (%.1f%% cheaper)",
			utils.FormatUSD(leap.CostOfOption), utils.FormatUSD(leap.CostOfBuying), leap.CostSavingsPercent))
	}
	sb.WriteString("\n")
	return sb.String()
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// WebhookNotifier sends notifications via HTTP webhook.
type WebhookNotifier struct {
	url     string
	enabled bool
	client  *http.Client
}

// NewWebhookNotifier creates a new WebhookNotifier.
func NewWebhookNotifier(cfg WebhookConfig) *WebhookNotifier {
	return &WebhookNotifier{
		url:     cfg.URL,
		enabled: cfg.Enabled && cfg.URL != "",
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Name returns the name of the notifier.
func (w *WebhookNotifier) Name() string {
	return "webhook"
}

// IsEnabled returns whether the notifier is enabled.
func (w *WebhookNotifier) IsEnabled() bool {
	return w.enabled
}

// Send posts the notification as JSON.
func (w *WebhookNotifier) Send(ctx context.Context, n Notification) error {
	if !w.enabled {
		return nil
	}

	payload := map[string]interface{}{
		"type":      n.Type,
		"title":     n.Title,
		"message":   n.Message,
		"data":      n.Data,
		"timestamp": n.Timestamp.Format(time.RFC3339),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating webhook request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "OptionsScanner/1.0")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return nil
}
