package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"options-scanner/internal/models"
)

type recordingChannel struct {
	name    string
	enabled bool
	err     error
	sent    []Notification
}

func (r *recordingChannel) Name() string    { return r.name }
func (r *recordingChannel) IsEnabled() bool { return r.enabled }
func (r *recordingChannel) Send(_ context.Context, n Notification) error {
	r.sent = append(r.sent, n)
	return r.err
}

func putSpread(symbol string, short, long, credit, ror float64) models.PutCreditSpread {
	return models.PutCreditSpread{
		TradeSummary: models.TradeSummary{
			Strategy:         "PUT_SPREAD",
			Symbol:           symbol,
			ExpiryDate:       "2026-01-16",
			DTE:              6,
			UnderlyingPrice:  100,
			NetCredit:        credit,
			MaxLoss:          (short-long)*100 - credit,
			ReturnOnRisk:     ror,
			BreakEvenPrice:   short - credit/100,
			BreakEvenPercent: -5.35,
		},
		ShortStrike: short,
		LongStrike:  long,
		ShortPut:    models.OptionQuote{PutCall: models.Put, Mark: 0.5, Delta: -0.2},
		LongPut:     models.OptionQuote{PutCall: models.Put, Mark: 0.15, Delta: -0.1},
	}
}

func sampleResult() *models.StrategyResult {
	return &models.StrategyResult{
		ExecutionID:  "exec_1",
		StrategyName: "PUT_SPREAD",
		StrategyKind: "PUT_SPREAD",
		Alias:        "Weekly puts",
		Groups: []models.ExpiryGroup{
			{Key: "AAA_2026-01-16", Symbol: "AAA", Expiry: "2026-01-16", Trades: []models.TradeCandidate{
				putSpread("AAA", 95, 94, 35, 53.85),
			}},
			{Key: "BBB_2026-01-16", Symbol: "BBB", Expiry: "2026-01-16", Trades: []models.TradeCandidate{
				putSpread("BBB", 95, 94, 20, 25),
				putSpread("BBB", 94, 93, 15, 17.65),
			}},
			{Key: "CCC_2026-01-16", Symbol: "CCC", Expiry: "2026-01-16"},
		},
	}
}

func TestMultiNotifier_SendScanResult(t *testing.T) {
	mn := NewMultiNotifier(Config{}, zerolog.Nop())
	ch := &recordingChannel{name: "rec", enabled: true}
	off := &recordingChannel{name: "off"}
	mn.AddChannel(ch)
	mn.AddChannel(off)

	require.NoError(t, mn.SendScanResult(context.Background(), sampleResult()))

	require.Len(t, ch.sent, 2)
	assert.Empty(t, off.sent)
	assert.Equal(t, "📊 Weekly puts", ch.sent[0].Title)
	assert.Equal(t, NotificationTrades, ch.sent[0].Type)
	assert.Equal(t, "BBB_2026-01-16", ch.sent[1].Data["key"])
	assert.Contains(t, ch.sent[1].Message, "Trade 2:")
	assert.False(t, ch.sent[0].Timestamp.IsZero())
	assert.Equal(t, []string{"rec"}, mn.Channels())
}

func TestMultiNotifier_CollectsChannelErrors(t *testing.T) {
	mn := NewMultiNotifier(Config{}, zerolog.Nop())
	bad := &recordingChannel{name: "bad", enabled: true, err: errors.New("boom")}
	good := &recordingChannel{name: "good", enabled: true}
	mn.AddChannel(bad)
	mn.AddChannel(good)

	err := mn.Send(context.Background(), Notification{Type: NotificationSummary, Title: "t"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad: boom")
	assert.Len(t, good.sent, 1)
}

func TestMultiNotifier_LevelFilter(t *testing.T) {
	tests := []struct {
		level NotificationLevel
		typ   NotificationType
		want  bool
	}{
		{LevelAll, NotificationSummary, true},
		{LevelTradesOnly, NotificationTrades, true},
		{LevelTradesOnly, NotificationError, false},
		{LevelErrorsOnly, NotificationError, true},
		{LevelErrorsOnly, NotificationTrades, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.level)+"/"+string(tt.typ), func(t *testing.T) {
			mn := NewMultiNotifier(Config{Level: string(tt.level)}, zerolog.Nop())
			ch := &recordingChannel{name: "rec", enabled: true}
			mn.AddChannel(ch)
			require.NoError(t, mn.Send(context.Background(), Notification{Type: tt.typ}))
			assert.Equal(t, tt.want, len(ch.sent) == 1)
		})
	}
}

func TestMultiNotifier_SendExecutionSummary(t *testing.T) {
	mn := NewMultiNotifier(Config{}, zerolog.Nop())
	ch := &recordingChannel{name: "rec", enabled: true}
	mn.AddChannel(ch)

	err := mn.SendExecutionSummary(context.Background(), models.ExecutionSummary{
		ExecutionID: "exec_1", StrategiesRun: 2, TotalTradesFound: 5, ChainFetches: 4, DurationMs: 1500, Cancelled: true,
	})
	require.NoError(t, err)
	require.Len(t, ch.sent, 1)
	assert.Equal(t, "🏁 Scan cancelled", ch.sent[0].Title)
	assert.Contains(t, ch.sent[0].Message, "Duration: 1.5s")
}

func TestFormatTrade(t *testing.T) {
	out := FormatTrade(putSpread("AAA", 95, 94, 35, 53.85), 1)

	assert.Contains(t, out, "Trade 1:")
	assert.Contains(t, out, "SELL 95 PUT (δ -0.20) → $0.50")
	assert.Contains(t, out, "BUY 94 PUT (δ -0.10) → $0.15")
	assert.Contains(t, out, "💵 Credit: $35.00 | Max Loss: $65.00")
	assert.Contains(t, out, "📈 RoR: 53.85%")
	assert.Contains(t, out, "BE: $94.65 (-5.35%)")
	assert.NotContains(t, out, "Upper BE")
}

func TestFormatTrade_DebitAndLeap(t *testing.T) {
	leap := models.LongCallLeap{
		TradeSummary: models.TradeSummary{
			NetCredit:        -2500,
			MaxLoss:          2500,
			BreakEvenPrice:   125,
			BreakEvenPercent: 25,
			DTE:              365,
		},
		Strike:             100,
		LongCall:           models.OptionQuote{PutCall: models.Call, Mark: 25, Delta: 0.8},
		CostOfOption:       2600,
		CostOfBuying:       10400,
		CostSavingsPercent: 75,
	}

	out := FormatTrade(leap, 3)
	assert.Contains(t, out, "💵 Debit: $2,500.00")
	assert.NotContains(t, out, "RoR")
	assert.Contains(t, out, "[CAGR: 25.00%]")
	assert.Contains(t, out, "Cost (Opt/Stock): $2,600.00 / $10,400.00 (75.0% cheaper)")
}

func TestFormatGroup(t *testing.T) {
	out := FormatGroup(sampleResult().Groups[1])
	assert.True(t, strings.HasPrefix(out, "💰 BBB @ $100.00\n📅 Expiry: 2026-01-16 (6 DTE)\n"))
	assert.Equal(t, "", FormatGroup(models.ExpiryGroup{}))
}

func TestWebhookNotifier_Send(t *testing.T) {
	var got map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	w := NewWebhookNotifier(WebhookConfig{Enabled: true, URL: server.URL})
	require.True(t, w.IsEnabled())

	err := w.Send(context.Background(), Notification{
		Type:      NotificationTrades,
		Title:     "title",
		Message:   "body",
		Data:      map[string]interface{}{"symbol": "AAA"},
		Timestamp: time.Date(2026, 1, 10, 15, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, "trades", got["type"])
	assert.Equal(t, "2026-01-10T15:00:00Z", got["timestamp"])
	assert.Equal(t, "AAA", got["data"].(map[string]interface{})["symbol"])
}

func TestWebhookNotifier_Errors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	w := NewWebhookNotifier(WebhookConfig{Enabled: true, URL: server.URL})
	err := w.Send(context.Background(), Notification{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")

	assert.False(t, NewWebhookNotifier(WebhookConfig{Enabled: true}).IsEnabled())
}

func TestTelegramNotifier_Send(t *testing.T) {
	var mu sync.Mutex
	var texts []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		var payload map[string]string
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &payload))
		assert.Equal(t, "42", payload["chat_id"])
		assert.Equal(t, "HTML", payload["parse_mode"])
		mu.Lock()
		texts = append(texts, payload["text"])
		mu.Unlock()
	}))
	defer server.Close()

	tg := NewTelegramNotifier(TelegramConfig{Enabled: true, BotToken: "TOKEN", ChatID: "42", APIBase: server.URL + "/"})
	tg.pause = time.Millisecond

	require.NoError(t, tg.Send(context.Background(), Notification{Title: "A<B", Message: "x & y"}))
	require.Len(t, texts, 1)
	assert.Equal(t, "<b>A&lt;B</b>\n\nx &amp; y", texts[0])

	long := strings.Repeat(strings.Repeat("a", 99)+"\n", 60)
	texts = nil
	require.NoError(t, tg.Send(context.Background(), Notification{Title: "T", Message: long}))
	require.Len(t, texts, 2)
	assert.True(t, strings.HasPrefix(texts[0], "(1/2)\n<b>T</b>"))
	assert.True(t, strings.HasPrefix(texts[1], "(2/2)\n"))
}

func TestTelegramNotifier_Disabled(t *testing.T) {
	tg := NewTelegramNotifier(TelegramConfig{Enabled: true, BotToken: "TOKEN"})
	assert.False(t, tg.IsEnabled())
	assert.NoError(t, tg.Send(context.Background(), Notification{}))
}

func TestSplitMessage(t *testing.T) {
	assert.Equal(t, []string{"short"}, SplitMessage("short", 10))

	parts := SplitMessage("aaaa bbbb\n\ncccc dddd", 12)
	assert.Equal(t, []string{"aaaa bbbb", "cccc dddd"}, parts)

	parts = SplitMessage(strings.Repeat("x", 25), 10)
	assert.Equal(t, []string{strings.Repeat("x", 10), strings.Repeat("x", 10), strings.Repeat("x", 5)}, parts)
}

func TestConsoleNotifier(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleNotifier(&buf, false)
	require.NoError(t, c.Send(context.Background(), Notification{Title: "Title", Message: "line"}))
	assert.Equal(t, "Title\nline\n", buf.String())

	buf.Reset()
	c = NewConsoleNotifier(&buf, true)
	require.NoError(t, c.Send(context.Background(), Notification{Type: NotificationError, Title: "Oops"}))
	assert.Contains(t, buf.String(), colorRed+"Oops"+colorReset)
}
