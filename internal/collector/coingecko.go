package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"TokenTracker/internal/metrics"
	"TokenTracker/internal/model"
)

// CoinGeckoFetcher implements Fetcher using the CoinGecko public REST API.
type CoinGeckoFetcher struct {
	BaseURL   string
	APIKey    string
	UserAgent string
	Client    *http.Client
}

// NewCoinGeckoFetcher creates a new fetcher with optional proxy support.
func NewCoinGeckoFetcher(baseURL, apiKey, userAgent, proxyURL string, timeout time.Duration) *CoinGeckoFetcher {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &CoinGeckoFetcher{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		APIKey:    apiKey,
		UserAgent: userAgent,
		Client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

func (f *CoinGeckoFetcher) Name() string { return "coingecko" }

// coinResponse is the subset of /coins/{id} the tracker reads.
// Currency-keyed maps and nullable supplies decode to zero when missing.
type coinResponse struct {
	ID         string `json:"id"`
	MarketData *struct {
		CurrentPrice             map[string]float64 `json:"current_price"`
		MarketCap                map[string]float64 `json:"market_cap"`
		FullyDilutedValuation    map[string]float64 `json:"fully_diluted_valuation"`
		CirculatingSupply        *float64           `json:"circulating_supply"`
		TotalSupply              *float64           `json:"total_supply"`
		MaxSupply                *float64           `json:"max_supply"`
		PriceChangePercentage24h *float64           `json:"price_change_percentage_24h"`
		PriceChangePercentage7d  *float64           `json:"price_change_percentage_7d"`
		PriceChangePercentage14d *float64           `json:"price_change_percentage_14d"`
		PriceChangePercentage30d *float64           `json:"price_change_percentage_30d"`
		PriceChangePercentage1y  *float64           `json:"price_change_percentage_1y"`
	} `json:"market_data"`
}

func (f *CoinGeckoFetcher) FetchMarketChart(ctx context.Context, coinID, vsCurrency string, days int) (*model.MarketChart, error) {
	q := url.Values{}
	q.Set("vs_currency", vsCurrency)
	q.Set("days", strconv.Itoa(days))
	q.Set("interval", "daily")
	endpoint := fmt.Sprintf("%s/coins/%s/market_chart?%s", f.BaseURL, url.PathEscape(coinID), q.Encode())

	var chart model.MarketChart
	if err := f.getJSON(ctx, "market_chart", endpoint, &chart); err != nil {
		return nil, fmt.Errorf("fetch market chart: %w", err)
	}
	return &chart, nil
}

func (f *CoinGeckoFetcher) FetchSnapshot(ctx context.Context, coinID, vsCurrency string) (*model.LiveSnapshot, error) {
	q := url.Values{}
	q.Set("localization", "false")
	q.Set("tickers", "false")
	q.Set("market_data", "true")
	q.Set("community_data", "false")
	q.Set("developer_data", "false")
	endpoint := fmt.Sprintf("%s/coins/%s?%s", f.BaseURL, url.PathEscape(coinID), q.Encode())

	var coin coinResponse
	if err := f.getJSON(ctx, "coin", endpoint, &coin); err != nil {
		return nil, fmt.Errorf("fetch snapshot: %w", err)
	}
	snap := &model.LiveSnapshot{}
	md := coin.MarketData
	if md == nil {
		return snap, nil
	}
	snap.CurrentPrice = md.CurrentPrice[vsCurrency]
	snap.MarketCap = md.MarketCap[vsCurrency]
	snap.FullyDilutedValuation = md.FullyDilutedValuation[vsCurrency]
	snap.CirculatingSupply = deref(md.CirculatingSupply)
	snap.TotalSupply = deref(md.TotalSupply)
	snap.MaxSupply = deref(md.MaxSupply)
	snap.Change24h = deref(md.PriceChangePercentage24h)
	snap.Change7d = deref(md.PriceChangePercentage7d)
	snap.Change14d = deref(md.PriceChangePercentage14d)
	snap.Change30d = deref(md.PriceChangePercentage30d)
	snap.Change1y = deref(md.PriceChangePercentage1y)
	return snap, nil
}

// Ping checks that the API is reachable.
func (f *CoinGeckoFetcher) Ping(ctx context.Context) error {
	var out map[string]any
	if err := f.getJSON(ctx, "ping", f.BaseURL+"/ping", &out); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

func (f *CoinGeckoFetcher) getJSON(ctx context.Context, name, endpoint string, out any) error {
	start := time.Now()
	defer func() {
		metrics.FetchDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}
	if f.APIKey != "" {
		req.Header.Set("x-cg-demo-api-key", f.APIKey)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("status %d, body: %s", resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
