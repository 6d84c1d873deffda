package data

import (
	"context"
	"fmt"

	"github.com/rustyeddy/fxbot/market"
	"github.com/rustyeddy/fxbot/oanda"
)

// OANDA reads completed candles from the OANDA v20 API.
type OANDA struct {
	Client *oanda.Client
	Price  oanda.PriceComponent
}

func NewOANDA(c *oanda.Client) *OANDA {
	return &OANDA{Client: c, Price: oanda.MidPrice}
}

func (o *OANDA) Name() string { return "oanda" }

// Fetch maps interval to a granularity and period to a candle count,
// capped at oanda.MaxCount.
func (o *OANDA) Fetch(ctx context.Context, symbol, period, interval string) (market.Series, error) {
	instrument := canonical(symbol)
	empty := market.Series{Instrument: instrument}

	bar, err := ParseSpan(interval)
	if err != nil {
		return empty, fmt.Errorf("oanda: interval: %w", err)
	}
	gran, err := oanda.GranularityFor(bar)
	if err != nil {
		return empty, err
	}
	span, err := ParseSpan(period)
	if err != nil {
		return empty, fmt.Errorf("oanda: period: %w", err)
	}

	count := int(span / bar)
	if count < 1 {
		count = 1
	}
	if count > oanda.MaxCount {
		count = oanda.MaxCount
	}

	candles, err := o.Client.GetCandles(ctx, oanda.CandlesRequest{
		Instrument:  instrument,
		Price:       o.Price,
		Granularity: gran,
		Count:       count,
	})
	if err != nil {
		return empty, err
	}
	return market.NewSeries(instrument, candles), nil
}
