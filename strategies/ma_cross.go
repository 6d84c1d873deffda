package strategies

import (
	"fmt"
	"math"

	"github.com/rustyeddy/fxbot/indicators"
	"github.com/rustyeddy/fxbot/market"
)

// MACross compares a short and a long simple moving average of closing
// prices at the most recent bar.
type MACross struct {
	Short int
	Long  int
}

func NewMACross(short, long int) MACross {
	return MACross{Short: short, Long: long}
}

func (m MACross) Name() string {
	return fmt.Sprintf("SMA(%d)/SMA(%d)", m.Short, m.Long)
}

func (m MACross) Validate() error {
	if m.Short <= 0 || m.Long <= 0 {
		return fmt.Errorf("windows must be positive, got short=%d long=%d", m.Short, m.Long)
	}
	if m.Short >= m.Long {
		return fmt.Errorf("short window (%d) must be less than long window (%d)", m.Short, m.Long)
	}
	return nil
}

// Evaluate returns None when the series holds fewer than Long bars or
// when either average is not a finite number. Otherwise the short average above the long average is a Buy and
// anything else, including equal averages, is a Sell.
func (m MACross) Evaluate(s market.Series) Decision {
	d := Decision{Signal: None, Bars: s.Len()}

	if err := m.Validate(); err != nil {
		d.Reason = err.Error()
		return d
	}
	if s.Len() < m.Long {
		d.Reason = fmt.Sprintf("not enough data: need %d bars, got %d", m.Long, s.Len())
		return d
	}

	// Both calls are in range after the checks above.
	d.ShortAvg, _ = indicators.MA(s.Candles, m.Short)
	d.LongAvg, _ = indicators.MA(s.Candles, m.Long)
	if !finite(d.ShortAvg) || !finite(d.LongAvg) {
		d.Reason = fmt.Sprintf("not enough data: non-finite average (short=%v long=%v)", d.ShortAvg, d.LongAvg)
		d.ShortAvg, d.LongAvg = 0, 0
		return d
	}

	if d.ShortAvg > d.LongAvg {
		d.Signal = Buy
		d.Reason = fmt.Sprintf("short %.5f above long %.5f", d.ShortAvg, d.LongAvg)
	} else {
		d.Signal = Sell
		d.Reason = fmt.Sprintf("short %.5f not above long %.5f", d.ShortAvg, d.LongAvg)
	}
	return d
}

// Compute is the signal-only form of MACross.Evaluate.
func Compute(s market.Series, short, long int) Signal {
	return NewMACross(short, long).Evaluate(s).Signal
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
