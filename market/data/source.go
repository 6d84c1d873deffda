// Package data provides the market data sources a run can fetch bars from.
package data

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/fxbot/market"
)

// ErrDataUnavailable marks a fetch that produced no usable bars.
var ErrDataUnavailable = errors.New("market data unavailable")

// Source supplies an ordered series of bars for one instrument.
//
// period is how far back to look and interval is the bar length, both in
// the Yahoo Finance vocabulary ("1d", "5d", "1mo" / "1m", "5m", "1h").
// A source returns an empty series, not an error, when there is simply no
// data for the request.
type Source interface {
	Name() string
	Fetch(ctx context.Context, symbol, period, interval string) (market.Series, error)
}

// ParseSpan converts a period or interval such as "15m", "1h", "5d",
// "1wk", "3mo" or "1y" to a duration. Months are 30 days and years 365.
func ParseSpan(s string) (time.Duration, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 || i == len(s) {
		return 0, fmt.Errorf("invalid span %q", s)
	}
	n, err := strconv.Atoi(s[:i])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid span %q", s)
	}

	const day = 24 * time.Hour
	var unit time.Duration
	switch s[i:] {
	case "m":
		unit = time.Minute
	case "h":
		unit = time.Hour
	case "d":
		unit = day
	case "wk":
		unit = 7 * day
	case "mo":
		unit = 30 * day
	case "y":
		unit = 365 * day
	default:
		return 0, fmt.Errorf("invalid span unit in %q (want m|h|d|wk|mo|y)", s)
	}
	if int64(n) > math.MaxInt64/int64(unit) {
		return 0, fmt.Errorf("span %q is too long", s)
	}
	return time.Duration(n) * unit, nil
}

// canonical returns the canonical instrument name for a symbol, or the
// symbol unchanged when it is not a known instrument.
func canonical(symbol string) string {
	if in, err := market.LookupInstrument(symbol); err == nil {
		return in.Name
	}
	return symbol
}
