package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const runColumns = `run_id, instrument, strategy, started, finished, state, outcome, signal, short_avg, long_avg, bars, error`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (RunRecord, error) {
	var r RunRecord
	err := s.Scan(
		&r.RunID,
		&r.Instrument,
		&r.Strategy,
		&r.Started,
		&r.Finished,
		&r.State,
		&r.Outcome,
		&r.Signal,
		&r.ShortAvg,
		&r.LongAvg,
		&r.Bars,
		&r.Error,
	)
	return r, err
}

// GetRun returns a single run record by ID.
func (j *SQLite) GetRun(runID string) (RunRecord, error) {
	row := j.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID)

	rec, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return RunRecord{}, fmt.Errorf("run %q not found", runID)
		}
		return RunRecord{}, err
	}
	return rec, nil
}

// ListRunsBetween returns runs whose start time is within [start, end).
func (j *SQLite) ListRunsBetween(start, end time.Time) ([]RunRecord, error) {
	rows, err := j.db.Query(`
		SELECT `+runColumns+`
		FROM runs
		WHERE started >= ? AND started < ?
		ORDER BY started ASC`, start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListOrdersByRun returns the order attempts of a run, oldest first.
func (j *SQLite) ListOrdersByRun(runID string) ([]OrderRecord, error) {
	rows, err := j.db.Query(`
		SELECT order_id, run_id, instrument, side, amount, price, placed_at, status, error
		FROM orders
		WHERE run_id = ?
		ORDER BY placed_at ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OrderRecord
	for rows.Next() {
		var rec OrderRecord
		if err := rows.Scan(
			&rec.OrderID,
			&rec.RunID,
			&rec.Instrument,
			&rec.Side,
			&rec.Amount,
			&rec.Price,
			&rec.PlacedAt,
			&rec.Status,
			&rec.Error,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
