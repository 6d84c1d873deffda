package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"
)

var (
	runsHeader   = []string{"run_id", "instrument", "strategy", "started", "finished", "state", "outcome", "signal", "short_avg", "long_avg", "bars", "error"}
	ordersHeader = []string{"order_id", "run_id", "instrument", "side", "amount", "price", "placed_at", "status", "error"}
)

// CSV appends runs and orders to two CSV files. Headers are written only
// when a file is new or empty, so repeated runs share the same files.
type CSV struct {
	runs   *csv.Writer
	orders *csv.Writer
	rf, of *os.File
}

func NewCSV(runsPath, ordersPath string) (*CSV, error) {
	rf, rw, err := openAppend(runsPath, runsHeader)
	if err != nil {
		return nil, err
	}
	of, ow, err := openAppend(ordersPath, ordersHeader)
	if err != nil {
		_ = rf.Close()
		return nil, err
	}
	return &CSV{runs: rw, orders: ow, rf: rf, of: of}, nil
}

func openAppend(path string, header []string) (*os.File, *csv.Writer, error) {
	fh, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	st, err := fh.Stat()
	if err != nil {
		_ = fh.Close()
		return nil, nil, err
	}

	w := csv.NewWriter(fh)
	if st.Size() == 0 {
		if err := w.Write(header); err != nil {
			_ = fh.Close()
			return nil, nil, err
		}
		w.Flush()
		if err := w.Error(); err != nil {
			_ = fh.Close()
			return nil, nil, err
		}
	}
	return fh, w, nil
}

func (j *CSV) RecordRun(r RunRecord) error {
	err := j.runs.Write([]string{
		r.RunID,
		r.Instrument,
		r.Strategy,
		r.Started.UTC().Format(time.RFC3339),
		r.Finished.UTC().Format(time.RFC3339),
		r.State,
		r.Outcome,
		r.Signal,
		f(r.ShortAvg),
		f(r.LongAvg),
		strconv.Itoa(r.Bars),
		r.Error,
	})
	if err != nil {
		return err
	}
	j.runs.Flush()
	return j.runs.Error()
}

func (j *CSV) RecordOrder(o OrderRecord) error {
	err := j.orders.Write([]string{
		o.OrderID,
		o.RunID,
		o.Instrument,
		o.Side,
		o.Amount,
		f(o.Price),
		o.PlacedAt.UTC().Format(time.RFC3339),
		o.Status,
		o.Error,
	})
	if err != nil {
		return err
	}
	j.orders.Flush()
	return j.orders.Error()
}

func (j *CSV) Close() error {
	j.runs.Flush()
	if err := j.runs.Error(); err != nil {
		return err
	}
	j.orders.Flush()
	if err := j.orders.Error(); err != nil {
		return err
	}

	if err := j.rf.Close(); err != nil {
		return err
	}
	if err := j.of.Close(); err != nil {
		return err
	}
	return nil
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
