package journal

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLite{db: db}, nil
}

// RecordRun inserts r, replacing any earlier record with the same run ID.
func (j *SQLite) RecordRun(r RunRecord) error {
	_, err := j.db.Exec(`
		INSERT OR REPLACE INTO runs
		(run_id, instrument, strategy, started, finished, state, outcome, signal, short_avg, long_avg, bars, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Instrument, r.Strategy, r.Started.UTC(), r.Finished.UTC(),
		r.State, r.Outcome, r.Signal, r.ShortAvg, r.LongAvg, r.Bars, r.Error,
	)
	return err
}

func (j *SQLite) RecordOrder(o OrderRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO orders
		(order_id, run_id, instrument, side, amount, price, placed_at, status, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.OrderID, o.RunID, o.Instrument, o.Side, o.Amount, o.Price,
		o.PlacedAt.UTC(), o.Status, o.Error,
	)
	return err
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
