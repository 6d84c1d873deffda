// Package journal persists one record per bot run and per order attempt.
package journal

import (
	"fmt"
	"time"
)

// RunRecord summarizes a single pass through the bot's state machine.
type RunRecord struct {
	RunID      string
	Instrument string
	Strategy   string
	Started    time.Time
	Finished   time.Time
	State      string // last state reached
	Outcome    string
	Signal     string
	ShortAvg   float64
	LongAvg    float64
	Bars       int
	Error      string
}

// OrderRecord is one order attempt, filled or rejected.
type OrderRecord struct {
	OrderID    string
	RunID      string
	Instrument string
	Side       string
	Amount     string // decimal text, kept exact
	Price      float64
	PlacedAt   time.Time
	Status     string
	Error      string
}

const (
	StatusFilled   = "FILLED"
	StatusRejected = "REJECTED"
)

type Journal interface {
	RecordRun(RunRecord) error
	RecordOrder(OrderRecord) error
	Close() error
}

// Options selects and configures a Journal implementation.
type Options struct {
	Type       string // none, csv or sqlite
	RunsFile   string
	OrdersFile string
	DBPath     string
}

// Open returns the Journal named by o.Type. An empty type is "none".
func Open(o Options) (Journal, error) {
	switch o.Type {
	case "", "none":
		return Noop{}, nil
	case "csv":
		return NewCSV(o.RunsFile, o.OrdersFile)
	case "sqlite":
		return NewSQLite(o.DBPath)
	default:
		return nil, fmt.Errorf("unknown journal type %q (want none|csv|sqlite)", o.Type)
	}
}
