package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const marketChartBody = `{
  "prices": [[1740787200000, 1.00], [1740873600000, 1.20], [1740960000000, 1.21]],
  "total_volumes": [[1740787200000, 1000000], [1740873600000, 1600000]],
  "market_caps": []
}`

const coinBody = `{
  "id": "kaito",
  "market_data": {
    "current_price": {"usd": 1.21},
    "market_cap": {"usd": 292000000},
    "fully_diluted_valuation": {"usd": null},
    "circulating_supply": 241388889,
    "total_supply": 1000000000,
    "max_supply": null,
    "price_change_percentage_24h": -2.5,
    "price_change_percentage_7d": 4.25
  }
}`

func newTestAPI(t *testing.T) (*httptest.Server, *[]*http.Request) {
	t.Helper()
	var seen []*http.Request
	mux := http.NewServeMux()
	mux.HandleFunc("/coins/kaito/market_chart", func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r)
		w.Write([]byte(marketChartBody))
	})
	mux.HandleFunc("/coins/kaito", func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r)
		w.Write([]byte(coinBody))
	})
	mux.HandleFunc("/coins/missing/market_chart", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"coin not found"}`, http.StatusNotFound)
	})
	mux.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"gecko_says":"(V3) To the Moon!"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &seen
}

func TestCoinGeckoFetcher_FetchMarketChart(t *testing.T) {
	srv, seen := newTestAPI(t)
	f := NewCoinGeckoFetcher(srv.URL+"/", "demo-key", "KAITO-Market-Tracker/1.0", "", 5*time.Second)

	chart, err := f.FetchMarketChart(context.Background(), "kaito", "usd", 30)
	require.NoError(t, err)
	require.Len(t, chart.Prices, 3)
	assert.Equal(t, int64(1740873600000), chart.Prices[1].Timestamp)
	assert.Equal(t, 1.20, chart.Prices[1].Value)
	assert.Len(t, chart.TotalVolumes, 2)
	assert.Empty(t, chart.MarketCaps)

	require.Len(t, *seen, 1)
	req := (*seen)[0]
	assert.Equal(t, "usd", req.URL.Query().Get("vs_currency"))
	assert.Equal(t, "30", req.URL.Query().Get("days"))
	assert.Equal(t, "daily", req.URL.Query().Get("interval"))
	assert.Equal(t, "application/json", req.Header.Get("Accept"))
	assert.Equal(t, "KAITO-Market-Tracker/1.0", req.Header.Get("User-Agent"))
	assert.Equal(t, "demo-key", req.Header.Get("x-cg-demo-api-key"))
}

func TestCoinGeckoFetcher_FetchSnapshotDefaultsMissingToZero(t *testing.T) {
	srv, _ := newTestAPI(t)
	f := NewCoinGeckoFetcher(srv.URL, "", "", "", 5*time.Second)

	snap, err := f.FetchSnapshot(context.Background(), "kaito", "usd")
	require.NoError(t, err)
	assert.Equal(t, 1.21, snap.CurrentPrice)
	assert.Equal(t, 292000000.0, snap.MarketCap)
	assert.Zero(t, snap.FullyDilutedValuation)
	assert.Equal(t, 241388889.0, snap.CirculatingSupply)
	assert.Zero(t, snap.MaxSupply)
	assert.Equal(t, -2.5, snap.Change24h)
	assert.Equal(t, 4.25, snap.Change7d)
	assert.Zero(t, snap.Change1y)
}

func TestCoinGeckoFetcher_ErrorStatus(t *testing.T) {
	srv, _ := newTestAPI(t)
	f := NewCoinGeckoFetcher(srv.URL, "", "", "", 5*time.Second)

	_, err := f.FetchMarketChart(context.Background(), "missing", "usd", 30)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestCoinGeckoFetcher_Ping(t *testing.T) {
	srv, _ := newTestAPI(t)
	f := NewCoinGeckoFetcher(srv.URL, "", "", "", 5*time.Second)
	assert.NoError(t, f.Ping(context.Background()))

	srv.Close()
	assert.Error(t, f.Ping(context.Background()))
}
