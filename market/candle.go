package market

import "time"

// Candle represents one OHLCV price bar for a sampling interval.
type Candle struct {
	Open   float64
	High   float64
	Low    float64
	Close  float64
	time.Time
	Volume float64
}
