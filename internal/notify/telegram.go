package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	defaultTelegramAPI = "https://api.telegram.org"

	// Telegram rejects messages above 4096 characters; leave room for the
	// part prefix and HTML escaping.
	maxMessageLength = 4000
)

// TelegramNotifier sends notifications via Telegram bot.
type TelegramNotifier struct {
	apiBase  string
	botToken string
	chatID   string
	enabled  bool
	pause    time.Duration
	client   *http.Client
}

// NewTelegramNotifier creates a new TelegramNotifier.
func NewTelegramNotifier(cfg TelegramConfig) *TelegramNotifier {
	apiBase := strings.TrimRight(cfg.APIBase, "/")
	if apiBase == "" {
		apiBase = defaultTelegramAPI
	}
	return &TelegramNotifier{
		apiBase:  apiBase,
		botToken: cfg.BotToken,
		chatID:   cfg.ChatID,
		enabled:  cfg.Enabled && cfg.BotToken != "" && cfg.ChatID != "",
		pause:    100 * time.Millisecond,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Name returns the name of the notifier.
func (t *TelegramNotifier) Name() string {
	return "telegram"
}

// IsEnabled returns whether the notifier is enabled.
func (t *TelegramNotifier) IsEnabled() bool {
	return t.enabled
}

// Send sends a notification via Telegram, splitting long messages into
// numbered parts.
func (t *TelegramNotifier) Send(ctx context.Context, n Notification) error {
	if !t.enabled {
		return nil
	}

	parts := SplitMessage(n.Message, maxMessageLength)
	for i, part := range parts {
		text := fmt.Sprintf("<b>%s</b>\n\n%s", escapeHTML(n.Title), escapeHTML(part))
		if len(parts) > 1 {
			text = fmt.Sprintf("(%d/%d)\n%s", i+1, len(parts), text)
		}
		if err := t.sendText(ctx, text); err != nil {
			return fmt.Errorf("part %d/%d: %w", i+1, len(parts), err)
		}

		if i < len(parts)-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(t.pause):
			}
		}
	}
	return nil
}

func (t *TelegramNotifier) sendText(ctx context.Context, text string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, t.botToken)

	payload := map[string]interface{}{
		"chat_id":    t.chatID,
		"text":       text,
		"parse_mode": "HTML",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling telegram payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating telegram request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending telegram message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API returned status %d", resp.StatusCode)
	}

	return nil
}

// SplitMessage cuts message into parts of at most maxLen bytes, preferring
// paragraph breaks, then line breaks, then spaces.
func SplitMessage(message string, maxLen int) []string {
	if len(message) <= maxLen {
		return []string{message}
	}

	var parts []string
	remaining := message
	for remaining != "" {
		if len(remaining) <= maxLen {
			parts = append(parts, remaining)
			break
		}
		cut := splitPoint(remaining, maxLen)
		parts = append(parts, strings.TrimSpace(remaining[:cut]))
		remaining = strings.TrimSpace(remaining[cut:])
	}
	return parts
}

func splitPoint(text string, maxLen int) int {
	window := text[:maxLen]
	if i := strings.LastIndex(window, "\n\n"); i > maxLen/2 {
		return i + 2
	}
	if i := strings.LastIndex(window, "\n"); i > maxLen/2 {
		return i + 1
	}
	if i := strings.LastIndex(window, " "); i > maxLen/2 {
		return i + 1
	}
	return maxLen
}

// escapeHTML escapes HTML special characters for Telegram.
func escapeHTML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}
