package oanda

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient("test-token", true, WithBaseURL(srv.URL), WithHTTPClient(&http.Client{Timeout: 5 * time.Second}))
}

func mid(o, h, l, c string) *candleData {
	return &candleData{O: o, H: h, L: l, C: c}
}

func TestNewClient(t *testing.T) {
	t.Run("practice mode", func(t *testing.T) {
		client := NewClient("test-token", true)
		assert.Equal(t, PracticeURL, client.baseURL)
		assert.Equal(t, "test-token", client.token)
		assert.NotNil(t, client.httpClient)
	})

	t.Run("live mode", func(t *testing.T) {
		client := NewClient("test-token", false)
		assert.Equal(t, LiveURL, client.baseURL)
	})

	t.Run("base url option trims slash", func(t *testing.T) {
		client := NewClient("t", true, WithBaseURL("http://localhost:9999/"))
		assert.Equal(t, "http://localhost:9999", client.baseURL)
	})
}

func TestGetCandles_Success(t *testing.T) {
	mockResponse := candlesResponse{
		Instrument:  "EUR_USD",
		Granularity: "M5",
		Candles: []apiCandle{
			{Complete: true, Volume: 100, Time: "2024-01-01T10:00:00.000000000Z", Mid: mid("1.0850", "1.0860", "1.0840", "1.0855")},
			{Complete: true, Volume: 150, Time: "2024-01-01T10:05:00.000000000Z", Mid: mid("1.0855", "1.0870", "1.0850", "1.0865")},
			{Complete: false, Volume: 5, Time: "2024-01-01T10:10:00.000000000Z", Mid: mid("1.0865", "1.0866", "1.0864", "1.0865")},
		},
	}

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/instruments/EUR_USD/candles", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "M", r.URL.Query().Get("price"))
		assert.Equal(t, "M5", r.URL.Query().Get("granularity"))
		assert.Equal(t, "100", r.URL.Query().Get("count"))
		_ = json.NewEncoder(w).Encode(mockResponse)
	})

	candles, err := client.GetCandles(context.Background(), CandlesRequest{
		Instrument:  "EUR_USD",
		Price:       MidPrice,
		Granularity: M5,
		Count:       100,
	})

	require.NoError(t, err)
	require.Len(t, candles, 2, "incomplete candle should be skipped")

	assert.Equal(t, 1.0850, candles[0].Open)
	assert.Equal(t, 1.0860, candles[0].High)
	assert.Equal(t, 1.0840, candles[0].Low)
	assert.Equal(t, 1.0855, candles[0].Close)
	assert.Equal(t, 100.0, candles[0].Volume)
	assert.Equal(t, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), candles[0].Time)
	assert.Equal(t, 1.0865, candles[1].Close)
}

func TestGetCandles_BidAskPrice(t *testing.T) {
	mockResponse := candlesResponse{
		Instrument:  "EUR_USD",
		Granularity: "M5",
		Candles: []apiCandle{{
			Complete: true,
			Volume:   100,
			Time:     "2024-01-01T10:00:00Z",
			Bid:      mid("1.0849", "1.0859", "1.0839", "1.0854"),
			Ask:      mid("1.0851", "1.0861", "1.0841", "1.0856"),
		}},
	}

	tests := []struct {
		price PriceComponent
		close float64
	}{
		{BidPrice, 1.0854},
		{AskPrice, 1.0856},
	}

	for _, tt := range tests {
		t.Run(string(tt.price), func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, string(tt.price), r.URL.Query().Get("price"))
				_ = json.NewEncoder(w).Encode(mockResponse)
			})
			candles, err := client.GetCandles(context.Background(), CandlesRequest{
				Instrument:  "EUR_USD",
				Price:       tt.price,
				Granularity: M5,
				Count:       10,
			})
			require.NoError(t, err)
			require.Len(t, candles, 1)
			assert.Equal(t, tt.close, candles[0].Close)
		})
	}
}

func TestGetCandles_MissingComponent(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(candlesResponse{Candles: []apiCandle{
			{Complete: true, Time: "2024-01-01T10:00:00Z", Bid: mid("1", "1", "1", "1")},
		}})
	})
	_, err := client.GetCandles(context.Background(), CandlesRequest{Instrument: "EUR_USD", Count: 1})
	assert.ErrorContains(t, err, "missing M prices")
}

func TestGetCandles_TimeRange(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2024-01-01T00:00:00Z", r.URL.Query().Get("from"))
		assert.Equal(t, "2024-01-02T00:00:00Z", r.URL.Query().Get("to"))
		assert.Empty(t, r.URL.Query().Get("count"))
		_ = json.NewEncoder(w).Encode(candlesResponse{Instrument: "EUR_USD", Granularity: "H1"})
	})

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	candles, err := client.GetCandles(context.Background(), CandlesRequest{
		Instrument:  "EUR_USD",
		Granularity: H1,
		From:        &from,
		To:          &to,
	})
	require.NoError(t, err)
	assert.Empty(t, candles)
}

func TestGetCandles_Errors(t *testing.T) {
	t.Run("missing token", func(t *testing.T) {
		_, err := NewClient("", true).GetCandles(context.Background(), CandlesRequest{Instrument: "EUR_USD"})
		assert.ErrorIs(t, err, ErrMissingToken)
	})

	t.Run("missing instrument", func(t *testing.T) {
		_, err := NewClient("test-token", true).GetCandles(context.Background(), CandlesRequest{Count: 10})
		assert.ErrorContains(t, err, "instrument is required")
	})

	t.Run("count exceeds maximum", func(t *testing.T) {
		_, err := NewClient("test-token", true).GetCandles(context.Background(), CandlesRequest{
			Instrument: "EUR_USD",
			Count:      6000,
		})
		assert.ErrorContains(t, err, "cannot exceed 5000")
	})

	t.Run("API error", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"errorMessage": "Invalid access token"}`))
		})
		_, err := client.GetCandles(context.Background(), CandlesRequest{Instrument: "EUR_USD", Count: 10})
		assert.ErrorContains(t, err, "API error (status 401)")
	})
}

func TestGetCandles_DefaultValues(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "M", r.URL.Query().Get("price"), "default price should be mid")
		assert.Equal(t, "S5", r.URL.Query().Get("granularity"), "default granularity should be S5")
		_ = json.NewEncoder(w).Encode(candlesResponse{})
	})

	_, err := client.GetCandles(context.Background(), CandlesRequest{Instrument: "EUR_USD", Count: 10})
	require.NoError(t, err)
}

func TestGranularityFor(t *testing.T) {
	g, err := GranularityFor(time.Minute)
	require.NoError(t, err)
	assert.Equal(t, M1, g)

	g, err = GranularityFor(4 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, H4, g)
	assert.Equal(t, 4*time.Hour, g.Duration())

	_, err = GranularityFor(7 * time.Minute)
	assert.Error(t, err)
}
