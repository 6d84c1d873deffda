package market

import (
	"fmt"
	"sort"
)

// Series is an ordered set of candles for a single instrument.
// Timestamps are strictly increasing.
type Series struct {
	Instrument string
	Candles    []Candle
}

// NewSeries sorts candles chronologically and drops duplicate timestamps.
// When two candles share a timestamp the later one in the input wins.
func NewSeries(instrument string, candles []Candle) Series {
	cs := make([]Candle, len(candles))
	copy(cs, candles)
	sort.SliceStable(cs, func(i, j int) bool { return cs[i].Time.Before(cs[j].Time) })

	out := cs[:0]
	for _, c := range cs {
		if n := len(out); n > 0 && out[n-1].Time.Equal(c.Time) {
			out[n-1] = c
			continue
		}
		out = append(out, c)
	}
	return Series{Instrument: instrument, Candles: out}
}

func (s Series) Len() int { return len(s.Candles) }

func (s Series) Empty() bool { return len(s.Candles) == 0 }

// Last returns the most recent candle. ok is false for an empty series.
func (s Series) Last() (c Candle, ok bool) {
	if len(s.Candles) == 0 {
		return Candle{}, false
	}
	return s.Candles[len(s.Candles)-1], true
}

// Closes returns the closing prices in chronological order.
func (s Series) Closes() []float64 {
	closes := make([]float64, len(s.Candles))
	for i, c := range s.Candles {
		closes[i] = c.Close
	}
	return closes
}

// Validate reports the first timestamp that breaks strict ordering.
func (s Series) Validate() error {
	for i := 1; i < len(s.Candles); i++ {
		prev, cur := s.Candles[i-1].Time, s.Candles[i].Time
		if !cur.After(prev) {
			return fmt.Errorf("series %s: candle %d at %s not after %s",
				s.Instrument, i, cur.Format("2006-01-02T15:04:05Z07:00"), prev.Format("2006-01-02T15:04:05Z07:00"))
		}
	}
	return nil
}
