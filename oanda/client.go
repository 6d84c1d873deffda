// Package oanda is a small client for the OANDA v20 REST candles endpoint.
package oanda

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/fxbot/market"
)

const (
	// PracticeURL is the URL for OANDA's practice/demo environment
	PracticeURL = "https://api-fxpractice.oanda.com"
	// LiveURL is the URL for OANDA's live trading environment
	LiveURL = "https://api-fxtrade.oanda.com"

	// MaxCount is the largest candle count OANDA serves per request.
	MaxCount = 5000
)

var ErrMissingToken = errors.New("oanda: missing token")

// Granularity is the candle time frame
type Granularity string

const (
	S5  Granularity = "S5"
	M1  Granularity = "M1"
	M2  Granularity = "M2"
	M5  Granularity = "M5"
	M15 Granularity = "M15"
	M30 Granularity = "M30"
	H1  Granularity = "H1"
	H4  Granularity = "H4"
	D   Granularity = "D"
	W   Granularity = "W"
)

var granularityDurations = map[Granularity]time.Duration{
	S5:  5 * time.Second,
	M1:  time.Minute,
	M2:  2 * time.Minute,
	M5:  5 * time.Minute,
	M15: 15 * time.Minute,
	M30: 30 * time.Minute,
	H1:  time.Hour,
	H4:  4 * time.Hour,
	D:   24 * time.Hour,
	W:   7 * 24 * time.Hour,
}

// Duration returns the bar length, or 0 for an unknown granularity.
func (g Granularity) Duration() time.Duration {
	return granularityDurations[g]
}

// GranularityFor maps a bar length to the matching OANDA granularity.
func GranularityFor(d time.Duration) (Granularity, error) {
	for g, gd := range granularityDurations {
		if gd == d {
			return g, nil
		}
	}
	return "", fmt.Errorf("oanda: no granularity for interval %s", d)
}

// PriceComponent selects mid, bid or ask candles
type PriceComponent string

const (
	MidPrice PriceComponent = "M"
	BidPrice PriceComponent = "B"
	AskPrice PriceComponent = "A"
)

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

type Option func(*Client)

// WithBaseURL points the client at a different API host.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// NewClient creates a new OANDA API client
func NewClient(token string, practice bool, opts ...Option) *Client {
	baseURL := LiveURL
	if practice {
		baseURL = PracticeURL
	}

	c := &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type CandlesRequest struct {
	Instrument  string         // e.g. EUR_USD
	Price       PriceComponent // default MidPrice
	Granularity Granularity    // default S5
	Count       int            // max 5000, exclusive with From/To
	From        *time.Time
	To          *time.Time
}

type candleData struct {
	O string `json:"o"`
	H string `json:"h"`
	L string `json:"l"`
	C string `json:"c"`
}

type apiCandle struct {
	Complete bool        `json:"complete"`
	Volume   int         `json:"volume"`
	Time     string      `json:"time"`
	Mid      *candleData `json:"mid,omitempty"`
	Bid      *candleData `json:"bid,omitempty"`
	Ask      *candleData `json:"ask,omitempty"`
}

type candlesResponse struct {
	Instrument  string      `json:"instrument"`
	Granularity string      `json:"granularity"`
	Candles     []apiCandle `json:"candles"`
}

// GetCandles fetches completed historical candles. Incomplete candles are
// dropped.
func (c *Client) GetCandles(ctx context.Context, req CandlesRequest) ([]market.Candle, error) {
	if c.token == "" {
		return nil, ErrMissingToken
	}
	if req.Instrument == "" {
		return nil, fmt.Errorf("instrument is required")
	}
	if req.Price == "" {
		req.Price = MidPrice
	}
	if req.Granularity == "" {
		req.Granularity = S5
	}

	params := url.Values{}
	params.Set("price", string(req.Price))
	params.Set("granularity", string(req.Granularity))

	if req.Count > 0 {
		if req.Count > MaxCount {
			return nil, fmt.Errorf("count cannot exceed %d", MaxCount)
		}
		params.Set("count", strconv.Itoa(req.Count))
	} else {
		if req.From != nil {
			params.Set("from", req.From.UTC().Format(time.RFC3339))
		}
		if req.To != nil {
			params.Set("to", req.To.UTC().Format(time.RFC3339))
		}
	}

	apiURL := fmt.Sprintf("%s/v3/instruments/%s/candles?%s",
		c.baseURL, url.PathEscape(req.Instrument), params.Encode())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.token)
	httpReq.Header.Set("Accept-Datetime-Format", "RFC3339")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var apiResp candlesResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	candles := make([]market.Candle, 0, len(apiResp.Candles))
	for _, ac := range apiResp.Candles {
		if !ac.Complete {
			continue
		}

		t, err := time.Parse(time.RFC3339Nano, ac.Time)
		if err != nil {
			return nil, fmt.Errorf("parse time %s: %w", ac.Time, err)
		}

		var pd *candleData
		switch req.Price {
		case BidPrice:
			pd = ac.Bid
		case AskPrice:
			pd = ac.Ask
		default:
			pd = ac.Mid
		}
		if pd == nil {
			return nil, fmt.Errorf("candle %s: missing %s prices", ac.Time, req.Price)
		}

		var ohlc [4]float64
		for i, s := range []string{pd.O, pd.H, pd.L, pd.C} {
			if ohlc[i], err = strconv.ParseFloat(s, 64); err != nil {
				return nil, fmt.Errorf("candle %s: parse price %q: %w", ac.Time, s, err)
			}
		}

		candles = append(candles, market.Candle{
			Open:   ohlc[0],
			High:   ohlc[1],
			Low:    ohlc[2],
			Close:  ohlc[3],
			Time:   t.UTC(),
			Volume: float64(ac.Volume),
		})
	}

	return candles, nil
}
