// Package export writes built series and aligned composites to Parquet in
// long format: one row per (day, series, metric).
package export

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/yellowduckie/duckline/internal/model"
	"github.com/yellowduckie/duckline/internal/util"
)

// Row is one long-format record. Value is null for a missing (NaN) value.
type Row struct {
	Date   time.Time `parquet:"date,snappy"`
	Day    string    `parquet:"day,snappy,dict"`
	Series string    `parquet:"series,snappy,dict"`
	Metric string    `parquet:"metric,snappy,dict"`
	Value  *float64  `parquet:"value,optional,snappy"`
}

func newRow(date time.Time, series, metric string, v float64) Row {
	r := Row{Date: date.UTC(), Day: util.DayKey(date), Series: series, Metric: metric}
	if !math.IsNaN(v) {
		r.Value = &v
	}
	return r
}

// SeriesRows flattens a series into rows: the primary value under metric
// primary, then every aux value in name order.
func SeriesRows(name, primary string, s model.Series) []Row {
	aux := s.AuxNames()
	rows := make([]Row, 0, len(s)*(1+len(aux)))
	for _, p := range s {
		rows = append(rows, newRow(p.Date, name, primary, p.Value))
		for _, a := range aux {
			if v, ok := p.Aux[a]; ok {
				rows = append(rows, newRow(p.Date, name, a, v))
			}
		}
	}
	return rows
}

// CompositeRows flattens aligned records into rows, one per key per day.
// Series and metric are both the composite key.
func CompositeRows(c model.Composite) []Row {
	rows := make([]Row, 0, len(c.Records)*len(c.Keys))
	for _, rec := range c.Records {
		for _, k := range c.Keys {
			rows = append(rows, newRow(rec.Date, k, k, rec.Values[k]))
		}
	}
	return rows
}

// Write encodes rows as a Parquet file to w.
func Write(w io.Writer, rows []Row) error {
	writer := parquet.NewGenericWriter[Row](w)
	if _, err := writer.Write(rows); err != nil {
		_ = writer.Close()
		return fmt.Errorf("writing parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("closing parquet writer: %w", err)
	}
	return nil
}

// WriteFile writes rows to path, replacing any existing file.
func WriteFile(path string, rows []Row) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := Write(f, rows); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// ReadFile reads every row back from a file written by WriteFile, ordered
// by day, then series, then metric.
func ReadFile(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := parquet.NewGenericReader[Row](f)
	defer reader.Close()

	rows := make([]Row, reader.NumRows())
	n, err := reader.Read(rows)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("reading parquet rows: %w", err)
	}
	rows = rows[:n]
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Day != b.Day {
			return a.Day < b.Day
		}
		if a.Series != b.Series {
			return a.Series < b.Series
		}
		return a.Metric < b.Metric
	})
	return rows, nil
}
