package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/guregu/null/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TokenTracker/internal/model"
)

func newTestNotifier(srv *httptest.Server) *TelegramNotifier {
	n := NewTelegramNotifier("TOKEN", "42", "")
	n.APIBase = srv.URL
	n.RetryBackoff = time.Millisecond
	n.PollTimeout = 0
	return n
}

func TestSend(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	require.NoError(t, newTestNotifier(srv).Send(context.Background(), "<b>hi</b>"))
	assert.Equal(t, map[string]string{"chat_id": "42", "text": "<b>hi</b>", "parse_mode": "HTML"}, got)
}

func TestSendWithRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, `{"ok":false}`, http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	require.NoError(t, newTestNotifier(srv).SendWithRetry(context.Background(), "x", 3))
	assert.Equal(t, int32(3), calls.Load())
}

func TestSendWithRetry_Exhausted(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	err := newTestNotifier(srv).SendWithRetry(context.Background(), "x", 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 3 retries exhausted")
	assert.Contains(t, err.Error(), "status 502")
	assert.Equal(t, int32(3), calls.Load())
}

func TestStartPolling(t *testing.T) {
	var mu sync.Mutex
	var replies []string
	var polls atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/botTOKEN/getUpdates", func(w http.ResponseWriter, r *http.Request) {
		if polls.Add(1) == 1 {
			assert.Equal(t, "0", r.URL.Query().Get("offset"))
			w.Write([]byte(`{"ok":true,"result":[
				{"update_id":7,"message":{"text":" /summary ","chat":{"id":42}}},
				{"update_id":8,"message":{"text":"/run","chat":{"id":99}}},
				{"update_id":9}
			]}`))
			return
		}
		assert.Equal(t, "10", r.URL.Query().Get("offset"))
		w.Write([]byte(`{"ok":true,"result":[]}`))
	})
	mux.HandleFunc("/botTOKEN/sendMessage", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		replies = append(replies, body["text"])
		mu.Unlock()
		w.Write([]byte(`{"ok":true}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	var handled []string
	done := make(chan struct{})
	go func() {
		defer close(done)
		newTestNotifier(srv).StartPolling(ctx, func(_ context.Context, cmd string) string {
			handled = append(handled, cmd)
			return "reply to " + cmd
		})
	}()

	require.Eventually(t, func() bool { return polls.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, []string{"/summary"}, handled)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"reply to /summary"}, replies)
}

func TestStartPolling_DefaultTimeout(t *testing.T) {
	var timeouts sync.Map
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		timeouts.Store(r.URL.Query().Get("timeout"), true)
		w.Write([]byte(`{"ok":true,"result":[]}`))
	}))
	defer srv.Close()

	n := &TelegramNotifier{BotToken: "TOKEN", ChatID: "42", Client: srv.Client(), APIBase: srv.URL}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		n.StartPolling(ctx, func(context.Context, string) string { return "" })
	}()

	require.Eventually(t, func() bool {
		_, ok := timeouts.Load("30")
		return ok
	}, 2*time.Second, 5*time.Millisecond)
	cancel()
	<-done

	_, zero := timeouts.Load("0")
	assert.False(t, zero)
}

func TestFormatSpikeAlert(t *testing.T) {
	assert.Empty(t, FormatSpikeAlert("kaito", nil))

	msg := FormatSpikeAlert("kaito", []model.SpikeEvent{
		{Date: "2025-03-02", Kind: model.KindPriceAndVolume, Metric: model.MetricPrice, Direction: model.DirectionUp,
			ChangePct: 20, Value: 1.2, VolumeChangePct: null.FloatFrom(60)},
		{Date: "2025-03-07", Kind: model.KindVolume, Metric: model.MetricVolume, Direction: model.DirectionUp,
			ChangePct: 75, Value: 2_100_000},
	})
	assert.Contains(t, msg, "KAITO spike alert")
	assert.Contains(t, msg, "2025-03-02 <b>Price &amp; Volume</b> +20.00% (vol +60.00%) @ $1.2000")
	assert.Contains(t, msg, "2025-03-07 <b>Volume</b> +75.00% vol $2100000")
}

func TestFormatRunSummary(t *testing.T) {
	stats := &model.StatisticsSummary{
		Period: model.PeriodStats{StartDate: "2025-03-01", EndDate: "2025-03-30", Days: 30},
		Price:  model.PriceStats{Current: 1.5, ChangePct: 12.5, High: 1.9, Low: 1.1, Volatility: 8.5},
	}
	msg := FormatRunSummary("kaito", stats, 4)
	assert.Contains(t, msg, "KAITO Market Summary")
	assert.Contains(t, msg, "Price: $1.5000 (+12.50%)")
	assert.Contains(t, msg, "Spike events: 4")
	assert.NotContains(t, msg, "Market cap")

	assert.Contains(t, FormatRunSummary("kaito", nil, 0), "No market data available.")
}

func TestFormatError(t *testing.T) {
	assert.Equal(t, "⚠️ <b>KAITO analysis failed</b>\nstatus 500 &lt;html&gt;", FormatError("kaito", errors.New("status 500 <html>")))
}
