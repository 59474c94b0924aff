// Package series turns raw rows into validated, day-unique series.
// The row parser decides per field what a missing value means; the builder
// sorts, truncates to day resolution and resolves same-day duplicates.
package series

import (
	"errors"
	"fmt"
	"strings"

	"github.com/yellowduckie/duckline/internal/model"
	"github.com/yellowduckie/duckline/internal/util"
)

// MissingPolicy selects what happens when a metric cell is empty or
// unparseable.
type MissingPolicy string

const (
	// MissingZero treats the cell as 0. Use for count-like fields.
	MissingZero MissingPolicy = "zero"
	// MissingReject drops the whole row.
	MissingReject MissingPolicy = "reject"
	// MissingPositive drops the row unless the value parses and is > 0,
	// for primary metrics such as a price where 0 is not a valid reading.
	MissingPositive MissingPolicy = "positive"
)

// DuplicatePolicy selects how points sharing a day-key are resolved.
type DuplicatePolicy string

const (
	DuplicateFirst DuplicatePolicy = "first"
	DuplicateLast  DuplicatePolicy = "last"
	DuplicateSum   DuplicatePolicy = "sum"
)

// Rejection reasons returned by ParseRow.
var (
	ErrBadDate      = errors.New("missing or unparseable date")
	ErrMissingValue = errors.New("missing or unparseable value")
	ErrNonPositive  = errors.New("value must be positive")
)

// Field maps one source column to one named metric.
// An empty Column makes the field a row counter contributing 1 per row,
// which combined with DuplicateSum yields events-per-day.
type Field struct {
	Name    string
	Column  string
	Missing MissingPolicy
}

// Config is the field-role configuration for one series.
// Metrics[0] is the primary value; the remaining fields ride along as Aux.
type Config struct {
	DateColumn string
	Metrics    []Field
	Duplicates DuplicatePolicy
}

// Validate checks that the configuration can drive the row parser.
func (c Config) Validate() error {
	if strings.TrimSpace(c.DateColumn) == "" {
		return errors.New("series config: date column is required")
	}
	if len(c.Metrics) == 0 {
		return errors.New("series config: at least one metric is required")
	}
	seen := make(map[string]bool, len(c.Metrics))
	for _, f := range c.Metrics {
		if f.Name == "" {
			return errors.New("series config: metric name is required")
		}
		if seen[f.Name] {
			return fmt.Errorf("series config: duplicate metric %q", f.Name)
		}
		seen[f.Name] = true
		switch f.Missing {
		case MissingZero, MissingReject, MissingPositive, "":
		default:
			return fmt.Errorf("series config: metric %q: unknown missing policy %q (use zero, reject, positive)", f.Name, f.Missing)
		}
	}
	switch c.Duplicates {
	case DuplicateFirst, DuplicateLast, DuplicateSum, "":
	default:
		return fmt.Errorf("series config: unknown duplicates policy %q (use first, last, sum)", c.Duplicates)
	}
	return nil
}

// ParseRow converts one raw record into a point.
// The returned error is a rejection reason (ErrBadDate, ErrMissingValue,
// ErrNonPositive) wrapped with the offending field; it is never fatal and
// callers simply drop the row.
func ParseRow(rec model.RawRecord, cfg Config) (model.Point, error) {
	date, ok := util.ParseInstant(rec[cfg.DateColumn])
	if !ok {
		return model.Point{}, fmt.Errorf("%s %q: %w", cfg.DateColumn, rec[cfg.DateColumn], ErrBadDate)
	}

	p := model.Point{Date: date}
	for i, f := range cfg.Metrics {
		v, err := fieldValue(rec, f)
		if err != nil {
			return model.Point{}, err
		}
		if i == 0 {
			p.Value = v
			continue
		}
		if p.Aux == nil {
			p.Aux = make(map[string]float64, len(cfg.Metrics)-1)
		}
		p.Aux[f.Name] = v
	}
	return p, nil
}

func fieldValue(rec model.RawRecord, f Field) (float64, error) {
	if f.Column == "" {
		return 1, nil
	}
	v, ok := util.ParseNumber(rec[f.Column])
	switch f.Missing {
	case MissingReject:
		if !ok {
			return 0, fmt.Errorf("%s: %w", f.Column, ErrMissingValue)
		}
	case MissingPositive:
		if !ok {
			return 0, fmt.Errorf("%s: %w", f.Column, ErrMissingValue)
		}
		if v <= 0 {
			return 0, fmt.Errorf("%s: %w", f.Column, ErrNonPositive)
		}
	default:
		if !ok {
			v = 0
		}
	}
	return v, nil
}
