package data

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/fxbot/market"
)

// Canonical candle CSV (single OHLC set):
// time,instrument,granularity,complete,volume,o,h,l,c
var csvHeader = []string{"time", "instrument", "granularity", "complete", "volume", "o", "h", "l", "c"}

// CSVFile replays bars from a canonical candle CSV, such as one written
// by `fxbot fetch`.
type CSVFile struct {
	Path string
}

func NewCSVFile(path string) *CSVFile { return &CSVFile{Path: path} }

func (c *CSVFile) Name() string { return "csv" }

// Fetch keeps rows for the requested instrument that fall inside period,
// measured back from the newest bar. An unparseable period keeps all rows.
// interval is not used; the file already has a fixed bar length.
func (c *CSVFile) Fetch(ctx context.Context, symbol, period, interval string) (market.Series, error) {
	instrument := canonical(symbol)

	f, err := os.Open(c.Path)
	if err != nil {
		return market.Series{Instrument: instrument}, err
	}
	defer f.Close()

	candles, err := ReadCSV(f, instrument)
	if err != nil {
		return market.Series{Instrument: instrument}, fmt.Errorf("%s: %w", c.Path, err)
	}
	s := market.NewSeries(instrument, candles)

	if span, err := ParseSpan(period); err == nil {
		if last, ok := s.Last(); ok {
			cutoff := last.Time.Add(-span)
			i := 0
			for i < s.Len() && !s.Candles[i].Time.After(cutoff) {
				i++
			}
			s.Candles = s.Candles[i:]
		}
	}
	return s, nil
}

// ReadCSV parses canonical candle rows. Rows for other instruments and
// incomplete candles are skipped; an empty instrument keeps every row.
func ReadCSV(r io.Reader, instrument string) ([]market.Candle, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(csvHeader)

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if strings.Join(header, ",") != strings.Join(csvHeader, ",") {
		return nil, fmt.Errorf("unexpected header %v", header)
	}

	var out []market.Candle
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if instrument != "" && row[1] != instrument {
			continue
		}
		if complete, err := strconv.ParseBool(row[3]); err == nil && !complete {
			continue
		}

		t, err := time.Parse(time.RFC3339Nano, row[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: time: %w", line, err)
		}
		var nums [5]float64
		for i, s := range []string{row[4], row[5], row[6], row[7], row[8]} {
			if nums[i], err = strconv.ParseFloat(s, 64); err != nil {
				return nil, fmt.Errorf("line %d: %s: %w", line, csvHeader[4+i], err)
			}
			if math.IsNaN(nums[i]) || math.IsInf(nums[i], 0) {
				return nil, fmt.Errorf("line %d: %s: non-finite value %q", line, csvHeader[4+i], s)
			}
		}
		out = append(out, market.Candle{
			Time:   t.UTC(),
			Volume: nums[0],
			Open:   nums[1],
			High:   nums[2],
			Low:    nums[3],
			Close:  nums[4],
		})
	}
	return out, nil
}

// WriteCSV writes s as canonical candle CSV and returns the rows written.
func WriteCSV(w io.Writer, s market.Series, granularity string) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return 0, err
	}

	written := 0
	for _, c := range s.Candles {
		row := []string{
			c.Time.UTC().Format(time.RFC3339Nano),
			s.Instrument,
			granularity,
			"true",
			ff(c.Volume),
			ff(c.Open), ff(c.High), ff(c.Low), ff(c.Close),
		}
		if err := cw.Write(row); err != nil {
			return written, err
		}
		written++
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return written, err
	}
	return written, nil
}

func ff(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}
