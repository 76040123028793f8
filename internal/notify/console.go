package notify

import (
	"context"
	"fmt"
	"io"
	"sync"
)

const (
	colorReset = "\033[0m"
	colorBold  = "\033[1m"
	colorRed   = "\033[31m"
	colorGreen = "\033[32m"
)

// ConsoleNotifier writes notifications to a terminal or log file.
type ConsoleNotifier struct {
	w     io.Writer
	color bool
	mu    sync.Mutex
}

// NewConsoleNotifier creates a ConsoleNotifier. Colour codes are written only
// when color is set.
func NewConsoleNotifier(w io.Writer, color bool) *ConsoleNotifier {
	return &ConsoleNotifier{w: w, color: color}
}

// Name returns the name of the notifier.
func (c *ConsoleNotifier) Name() string {
	return "console"
}

// IsEnabled returns whether the notifier is enabled.
func (c *ConsoleNotifier) IsEnabled() bool {
	return c.w != nil
}

// Send writes the notification.
func (c *ConsoleNotifier) Send(_ context.Context, n Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	title := n.Title
	if c.color {
		switch n.Type {
		case NotificationError:
			title = colorBold + colorRed + title + colorReset
		case NotificationTrades:
			title = colorBold + colorGreen + title + colorReset
		default:
			title = colorBold + title + colorReset
		}
	}
	_, err := fmt.Fprintf(c.w, "%s\n%s\n", title, n.Message)
	return err
}
