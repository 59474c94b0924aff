// Package analyze computes descriptive summaries over built series.
// All functions are pure; no I/O.
package analyze

import (
	"encoding/json"
	"math"
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/yellowduckie/duckline/internal/model"
)

// ─── Summary ──────────────────────────────────────────────────────────────────

// Summary holds descriptive statistics for one series.
type Summary struct {
	Name      string             `json:"name"`
	Count     int                `json:"count"`   // points in the series
	Missing   int                `json:"missing"` // NaN values (JSONL nulls)
	Start     time.Time          `json:"start"`
	End       time.Time          `json:"end"`
	Days      int                `json:"days"` // calendar span, inclusive
	Total     float64            `json:"total"`
	Mean      float64            `json:"mean"`
	Std       float64            `json:"std"`
	Min       float64            `json:"min"`
	MinDate   time.Time          `json:"min_date"`
	Median    float64            `json:"median"`
	Max       float64            `json:"max"`
	MaxDate   time.Time          `json:"max_date"`
	First     float64            `json:"first"` // first non-NaN value
	Last      float64            `json:"last"`  // last non-NaN value
	Change    float64            `json:"change"`
	ChangePct float64            `json:"change_pct"`
	Slope     float64            `json:"slope_per_day"`
	Direction string             `json:"direction"` // "up", "down", "flat"
	AuxTotals map[string]float64 `json:"aux_totals,omitempty"`
}

// Summarize computes statistics over s. NaN values are counted as missing
// and excluded from everything else. An empty or all-NaN series yields NaN
// statistics rather than zeros.
func Summarize(name string, s model.Series) Summary {
	sum := Summary{Name: name, Count: len(s)}
	if len(s) == 0 {
		sum.fillNaN()
		return sum
	}
	sum.Start = s.First().Date
	sum.End = s.Last().Date
	sum.Days = int(sum.End.Sub(sum.Start).Hours()/24) + 1

	valid := lo.Filter(s, func(p model.Point, _ int) bool { return !math.IsNaN(p.Value) })
	sum.Missing = len(s) - len(valid)
	if len(valid) == 0 {
		sum.fillNaN()
		return sum
	}

	vals := lo.Map(valid, func(p model.Point, _ int) float64 { return p.Value })
	sum.Total = lo.Sum(vals)
	sum.Mean = sum.Total / float64(len(vals))
	sum.Std = stddev(vals, sum.Mean)

	minP := lo.MinBy(valid, func(a, b model.Point) bool { return a.Value < b.Value })
	maxP := lo.MaxBy(valid, func(a, b model.Point) bool { return a.Value > b.Value })
	sum.Min, sum.MinDate = minP.Value, minP.Date
	sum.Max, sum.MaxDate = maxP.Value, maxP.Date

	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	sum.Median = percentile(sorted, 50)

	sum.First = valid[0].Value
	sum.Last = valid[len(valid)-1].Value
	sum.Change = sum.Last - sum.First
	if sum.First != 0 {
		sum.ChangePct = sum.Change / math.Abs(sum.First) * 100
	} else {
		sum.ChangePct = math.NaN()
	}

	sum.Slope, sum.Direction = trend(valid)

	for _, aux := range s.AuxNames() {
		if sum.AuxTotals == nil {
			sum.AuxTotals = make(map[string]float64)
		}
		sum.AuxTotals[aux] = lo.SumBy(s, func(p model.Point) float64 { return p.AuxValue(aux) })
	}
	return sum
}

// MarshalJSON writes NaN statistics as null.
func (s Summary) MarshalJSON() ([]byte, error) {
	type alias Summary
	return json.Marshal(struct {
		alias
		Mean      *float64 `json:"mean"`
		Std       *float64 `json:"std"`
		Min       *float64 `json:"min"`
		Median    *float64 `json:"median"`
		Max       *float64 `json:"max"`
		First     *float64 `json:"first"`
		Last      *float64 `json:"last"`
		Change    *float64 `json:"change"`
		ChangePct *float64 `json:"change_pct"`
		Slope     *float64 `json:"slope_per_day"`
	}{
		alias(s),
		nullable(s.Mean), nullable(s.Std), nullable(s.Min), nullable(s.Median), nullable(s.Max),
		nullable(s.First), nullable(s.Last), nullable(s.Change), nullable(s.ChangePct), nullable(s.Slope),
	})
}

func nullable(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

func (s *Summary) fillNaN() {
	nan := math.NaN()
	s.Mean, s.Std, s.Min, s.Median, s.Max = nan, nan, nan, nan, nan
	s.First, s.Last, s.Change, s.ChangePct, s.Slope = nan, nan, nan, nan, nan
	s.Direction = "flat"
}

// ─── Trend ────────────────────────────────────────────────────────────────────

// trend fits an OLS line with x in days since the first point. Direction is
// flat when the fitted change over the whole span is under 1% of the mean.
func trend(pts []model.Point) (float64, string) {
	if len(pts) < 2 {
		return 0, "flat"
	}
	t0 := pts[0].Date
	var n, xSum, ySum, xySum, x2Sum float64
	for _, p := range pts {
		x := p.Date.Sub(t0).Hours() / 24
		n++
		xSum += x
		ySum += p.Value
		xySum += x * p.Value
		x2Sum += x * x
	}
	denom := n*x2Sum - xSum*xSum
	if denom == 0 {
		return 0, "flat"
	}
	slope := (n*xySum - xSum*ySum) / denom

	span := pts[len(pts)-1].Date.Sub(t0).Hours() / 24
	mean := math.Abs(ySum / n)
	fitted := slope * span
	switch {
	case mean == 0 && fitted == 0, math.Abs(fitted) < 0.01*mean:
		return slope, "flat"
	case fitted > 0:
		return slope, "up"
	default:
		return slope, "down"
	}
}

// ─── Math helpers ─────────────────────────────────────────────────────────────

func stddev(vals []float64, m float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	var sq float64
	for _, v := range vals {
		d := v - m
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(vals)-1))
}

func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	idx := p / 100 * float64(n-1)
	i := int(idx)
	if i+1 >= n {
		return sorted[n-1]
	}
	frac := idx - float64(i)
	return sorted[i]*(1-frac) + sorted[i+1]*frac
}
