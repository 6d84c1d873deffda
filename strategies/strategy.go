package strategies

import (
	"fmt"
	"strings"
)

type Signal int

const (
	None Signal = iota
	Buy
	Sell
)

func (s Signal) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "NONE"
	}
}

func ParseSignal(s string) (Signal, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BUY":
		return Buy, nil
	case "SELL":
		return Sell, nil
	case "NONE", "":
		return None, nil
	default:
		return None, fmt.Errorf("unknown signal %q (want BUY|SELL|NONE)", s)
	}
}

// Decision is the outcome of evaluating a strategy against a series.
type Decision struct {
	Signal   Signal
	ShortAvg float64
	LongAvg  float64
	Bars     int
	Reason   string
}
