// market/instruments.go
package market

import (
	"fmt"
	"strings"
)

type Instrument struct {
	Name          string // canonical, e.g. EUR_USD
	Display       string // as typed into a broker form, e.g. EUR/USD
	YahooSymbol   string // e.g. EURUSD=X
	BaseCurrency  string
	QuoteCurrency string
	PipLocation   int
}

var Instruments = map[string]Instrument{
	"EUR_USD": {
		Name:          "EUR_USD",
		Display:       "EUR/USD",
		YahooSymbol:   "EURUSD=X",
		BaseCurrency:  "EUR",
		QuoteCurrency: "USD",
		PipLocation:   -4,
	},
	"GBP_USD": {
		Name:          "GBP_USD",
		Display:       "GBP/USD",
		YahooSymbol:   "GBPUSD=X",
		BaseCurrency:  "GBP",
		QuoteCurrency: "USD",
		PipLocation:   -4,
	},
	"AUD_USD": {
		Name:          "AUD_USD",
		Display:       "AUD/USD",
		YahooSymbol:   "AUDUSD=X",
		BaseCurrency:  "AUD",
		QuoteCurrency: "USD",
		PipLocation:   -4,
	},
	"USD_JPY": {
		Name:          "USD_JPY",
		Display:       "USD/JPY",
		YahooSymbol:   "JPY=X",
		BaseCurrency:  "USD",
		QuoteCurrency: "JPY",
		PipLocation:   -2,
	},
	"USD_CHF": {
		Name:          "USD_CHF",
		Display:       "USD/CHF",
		YahooSymbol:   "CHF=X",
		BaseCurrency:  "USD",
		QuoteCurrency: "CHF",
		PipLocation:   -4,
	},
}

// LookupInstrument accepts the canonical name, the display name, the
// bare currency pair (EURUSD) or the Yahoo ticker, case-insensitively.
func LookupInstrument(s string) (Instrument, error) {
	key := strings.ToUpper(strings.TrimSpace(s))
	if in, ok := Instruments[key]; ok {
		return in, nil
	}
	for _, in := range Instruments {
		if key == in.Display || key == in.BaseCurrency+in.QuoteCurrency || key == strings.ToUpper(in.YahooSymbol) {
			return in, nil
		}
	}
	return Instrument{}, fmt.Errorf("unknown instrument: %s", s)
}
