package data

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rustyeddy/fxbot/market"
	"go.uber.org/zap"
)

const YahooBaseURL = "https://query1.finance.yahoo.com"

// Yahoo reads bars from the public Yahoo Finance chart API.
type Yahoo struct {
	BaseURL string
	Client  *http.Client
	log     *zap.Logger
}

// NewYahoo creates a Yahoo source. proxyURL may be empty.
func NewYahoo(baseURL, proxyURL string, log *zap.Logger) (*Yahoo, error) {
	transport := &http.Transport{Proxy: http.ProxyFromEnvironment}
	if proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil {
			return nil, fmt.Errorf("yahoo: invalid proxy %q: %w", proxyURL, err)
		}
		transport.Proxy = http.ProxyURL(u)
	}
	if baseURL == "" {
		baseURL = YahooBaseURL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Yahoo{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		log: log.Named("yahoo"),
	}, nil
}

func (y *Yahoo) Name() string { return "yahoo" }

// ticker maps EUR_USD or EUR/USD to EURUSD=X; unknown symbols pass through.
func ticker(symbol string) string {
	if in, err := market.LookupInstrument(symbol); err == nil {
		return in.YahooSymbol
	}
	return symbol
}

type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func at(vs []*float64, i int) (float64, bool) {
	if i >= len(vs) || vs[i] == nil {
		return 0, false
	}
	return *vs[i], true
}

func (y *Yahoo) Fetch(ctx context.Context, symbol, period, interval string) (market.Series, error) {
	instrument := canonical(symbol)
	empty := market.Series{Instrument: instrument}

	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=%s&range=%s",
		y.BaseURL, url.PathEscape(ticker(symbol)), url.QueryEscape(interval), url.QueryEscape(period))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return empty, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	y.log.Debug("fetching chart", zap.String("url", u))
	resp, err := y.Client.Do(req)
	if err != nil {
		return empty, fmt.Errorf("yahoo fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return empty, fmt.Errorf("yahoo read body: %w", err)
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		if resp.StatusCode != http.StatusOK {
			return empty, fmt.Errorf("yahoo: status %d, body: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		}
		return empty, fmt.Errorf("yahoo decode: %w", err)
	}
	if e := chart.Chart.Error; e != nil {
		// Unknown or delisted tickers come back as Not Found: no data, not a failure.
		if strings.EqualFold(e.Code, "Not Found") {
			y.log.Warn("no data for symbol", zap.String("symbol", symbol), zap.String("reason", e.Description))
			return empty, nil
		}
		return empty, fmt.Errorf("yahoo api error: %s: %s", e.Code, e.Description)
	}
	if resp.StatusCode != http.StatusOK {
		return empty, fmt.Errorf("yahoo: status %d", resp.StatusCode)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return empty, nil
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	candles := make([]market.Candle, 0, len(result.Timestamp))

	for i, ts := range result.Timestamp {
		c, ok := at(quote.Close, i)
		if !ok {
			continue // null bar
		}
		o, _ := at(quote.Open, i)
		h, _ := at(quote.High, i)
		l, _ := at(quote.Low, i)
		v, _ := at(quote.Volume, i)
		candles = append(candles, market.Candle{
			Open:   o,
			High:   h,
			Low:    l,
			Close:  c,
			Time:   time.Unix(ts, 0).UTC(),
			Volume: v,
		})
	}

	return market.NewSeries(instrument, candles), nil
}
