// Package transform implements stateless operators over built series.
// Each operator is a pure function that returns a new slice (or a
// capacity-clipped view of its input); no side effects, no I/O.
package transform

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/yellowduckie/duckline/internal/model"
)

// ─── Resample ─────────────────────────────────────────────────────────────────

// ResampleFreq is the target bucket size for resampling.
type ResampleFreq string

const (
	ResampleWeekly    ResampleFreq = "weekly"
	ResampleMonthly   ResampleFreq = "monthly"
	ResampleQuarterly ResampleFreq = "quarterly"
	ResampleAnnual    ResampleFreq = "annual"
)

// ResampleMethod is the aggregation applied inside each bucket.
type ResampleMethod string

const (
	ResampleMean ResampleMethod = "mean"
	ResampleLast ResampleMethod = "last"
	ResampleSum  ResampleMethod = "sum"
)

// Resample aggregates a daily series into coarser buckets. Buckets are
// labelled with their start date. Auxiliary values are aggregated with the
// same method as the primary value.
func Resample(s model.Series, freq ResampleFreq, method ResampleMethod) (model.Series, error) {
	if len(s) == 0 {
		return nil, fmt.Errorf("resample: empty input")
	}
	switch freq {
	case ResampleWeekly, ResampleMonthly, ResampleQuarterly, ResampleAnnual:
	default:
		return nil, fmt.Errorf("resample: unknown frequency %q (use weekly, monthly, quarterly, annual)", freq)
	}
	switch method {
	case ResampleMean, ResampleLast, ResampleSum:
	default:
		return nil, fmt.Errorf("resample: unknown method %q (use mean, last, sum)", method)
	}

	type bucket struct {
		start time.Time
		vals  []float64
		aux   map[string][]float64
	}
	buckets := make(map[string]*bucket)
	for _, p := range s {
		key, start := periodKey(p.Date, freq)
		b, ok := buckets[key]
		if !ok {
			b = &bucket{start: start}
			buckets[key] = b
		}
		if !math.IsNaN(p.Value) {
			b.vals = append(b.vals, p.Value)
		}
		for k, v := range p.Aux {
			if b.aux == nil {
				b.aux = make(map[string][]float64)
			}
			b.aux[k] = append(b.aux[k], v)
		}
	}

	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(model.Series, 0, len(keys))
	for _, k := range keys {
		b := buckets[k]
		p := model.Point{Date: b.start, Value: aggregate(b.vals, method)}
		for name, vals := range b.aux {
			if p.Aux == nil {
				p.Aux = make(map[string]float64, len(b.aux))
			}
			p.Aux[name] = aggregate(vals, method)
		}
		out = append(out, p)
	}
	return out, nil
}

func aggregate(vals []float64, method ResampleMethod) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}
	switch method {
	case ResampleLast:
		return vals[len(vals)-1]
	case ResampleSum:
		return sum(vals)
	default:
		return mean(vals)
	}
}

// periodKey returns a sortable key and the canonical start date for a bucket.
// Weeks start on Monday.
func periodKey(t time.Time, freq ResampleFreq) (string, time.Time) {
	t = t.UTC()
	switch freq {
	case ResampleWeekly:
		offset := (int(t.Weekday()) + 6) % 7
		start := time.Date(t.Year(), t.Month(), t.Day()-offset, 0, 0, 0, 0, time.UTC)
		return start.Format("2006-01-02"), start
	case ResampleQuarterly:
		q := (t.Month()-1)/3 + 1
		start := time.Date(t.Year(), time.Month((q-1)*3+1), 1, 0, 0, 0, 0, time.UTC)
		return fmt.Sprintf("%04d-Q%d", t.Year(), q), start
	case ResampleAnnual:
		start := time.Date(t.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
		return fmt.Sprintf("%04d", t.Year()), start
	default:
		start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
		return fmt.Sprintf("%04d-%02d", t.Year(), t.Month()), start
	}
}

// ─── Filter ───────────────────────────────────────────────────────────────────

// FilterOptions describes a date/value predicate. Zero dates and NaN bounds
// are ignored.
type FilterOptions struct {
	After       time.Time // keep date > After
	Before      time.Time // keep date < Before
	MinValue    float64   // keep value >= MinValue
	MaxValue    float64   // keep value <= MaxValue
	DropMissing bool
}

// NoBounds returns options with both value bounds disabled.
func NoBounds() FilterOptions {
	return FilterOptions{MinValue: math.NaN(), MaxValue: math.NaN()}
}

// Filter returns the points matching every set criterion in opts.
func Filter(s model.Series, opts FilterOptions) model.Series {
	out := make(model.Series, 0, len(s))
	for _, p := range s {
		if !opts.After.IsZero() && !p.Date.After(opts.After) {
			continue
		}
		if !opts.Before.IsZero() && !p.Date.Before(opts.Before) {
			continue
		}
		if math.IsNaN(p.Value) {
			if opts.DropMissing {
				continue
			}
		} else {
			if !math.IsNaN(opts.MinValue) && p.Value < opts.MinValue {
				continue
			}
			if !math.IsNaN(opts.MaxValue) && p.Value > opts.MaxValue {
				continue
			}
		}
		out = append(out, p)
	}
	return out
}

// ─── Rolling mean ─────────────────────────────────────────────────────────────

// Smooth replaces each value with the mean of itself and the window-1
// preceding points, the trailing average drawn under noisy daily charts.
func Smooth(s model.Series, window int) (model.Series, error) {
	if window < 1 {
		return nil, fmt.Errorf("smooth: window must be >= 1, got %d", window)
	}
	out := make(model.Series, len(s))
	for i, p := range s {
		start := i - window + 1
		if start < 0 {
			start = 0
		}
		var vals []float64
		for _, w := range s[start : i+1] {
			if !math.IsNaN(w.Value) {
				vals = append(vals, w.Value)
			}
		}
		out[i] = model.Point{Date: p.Date, Value: mean(vals)}
	}
	return out, nil
}

// ─── Metric split ─────────────────────────────────────────────────────────────

// Unpack splits a multi-metric series into one series per metric: the
// primary value under primary, then every auxiliary field in name order.
// The returned keys and series are index-aligned, ready for Merge.
func Unpack(primary string, s model.Series) ([]string, []model.Series) {
	aux := s.AuxNames()
	keys := append([]string{primary}, aux...)
	out := make([]model.Series, len(keys))
	for i := range out {
		out[i] = make(model.Series, len(s))
	}
	for j, p := range s {
		out[0][j] = model.Point{Date: p.Date, Value: p.Value}
		for i, name := range aux {
			out[i+1][j] = model.Point{Date: p.Date, Value: p.AuxValue(name)}
		}
	}
	return keys, out
}

// ─── Math helpers ─────────────────────────────────────────────────────────────

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}
	return sum(vals) / float64(len(vals))
}

func sum(vals []float64) float64 {
	var s float64
	for _, v := range vals {
		s += v
	}
	return s
}
