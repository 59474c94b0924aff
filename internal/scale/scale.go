// Package scale maps between data space (instants, values) and a discrete
// output range such as terminal columns or chart pixels.
package scale

import (
	"math"
	"time"

	"github.com/yellowduckie/duckline/internal/model"
)

// TimeScale maps [Start, End] linearly onto [0, Width-1].
type TimeScale struct {
	Start, End time.Time
	Width      int
}

// Map returns the output position of t, clamped to the range.
func (s TimeScale) Map(t time.Time) float64 {
	if s.Width <= 1 || !s.End.After(s.Start) {
		return 0
	}
	frac := float64(t.Sub(s.Start)) / float64(s.End.Sub(s.Start))
	return clamp(frac, 0, 1) * float64(s.Width-1)
}

// Invert returns the instant at output position x, clamped to the domain.
// This is how a pointer column becomes a lookup query.
func (s TimeScale) Invert(x float64) time.Time {
	if s.Width <= 1 || !s.End.After(s.Start) {
		return s.Start
	}
	frac := clamp(x/float64(s.Width-1), 0, 1)
	return s.Start.Add(time.Duration(frac * float64(s.End.Sub(s.Start))))
}

// LinearScale maps [Min, Max] onto [0, Height-1]. Row 0 is the minimum.
type LinearScale struct {
	Min, Max float64
	Height   int
}

// Map returns the output position of v, clamped to the range.
func (s LinearScale) Map(v float64) float64 {
	if s.Height <= 1 || s.Max <= s.Min {
		return 0
	}
	return clamp((v-s.Min)/(s.Max-s.Min), 0, 1) * float64(s.Height-1)
}

// Invert returns the value at output position y.
func (s LinearScale) Invert(y float64) float64 {
	if s.Height <= 1 {
		return s.Min
	}
	return s.Min + clamp(y/float64(s.Height-1), 0, 1)*(s.Max-s.Min)
}

// Extent returns the earliest and latest date across all series. ok is
// false when every series is empty.
func Extent(series ...model.Series) (lo, hi time.Time, ok bool) {
	for _, s := range series {
		if len(s) == 0 {
			continue
		}
		if !ok || s.First().Date.Before(lo) {
			lo = s.First().Date
		}
		if !ok || s.Last().Date.After(hi) {
			hi = s.Last().Date
		}
		ok = true
	}
	return lo, hi, ok
}

// ValueDomain returns [0, max*1.1] rounded outward to nice numbers, the
// y-domain every chart uses. NaN values are ignored. A series set with no
// positive values yields [0, 1].
func ValueDomain(series ...model.Series) (float64, float64) {
	mx := 0.0
	for _, s := range series {
		for _, p := range s {
			if !math.IsNaN(p.Value) && p.Value > mx {
				mx = p.Value
			}
		}
	}
	if mx <= 0 {
		return 0, 1
	}
	return Nice(0, mx*1.1, 10)
}

// Nice extends [lo, hi] outward so both ends fall on a step of 1, 2, 5 or
// 10 times a power of ten, chosen to give roughly ticks intervals.
func Nice(lo, hi float64, ticks int) (float64, float64) {
	if ticks < 1 {
		ticks = 1
	}
	if hi < lo {
		lo, hi = hi, lo
	}
	if hi == lo {
		return lo, hi
	}
	step := tickStep(lo, hi, ticks)
	return math.Floor(lo/step) * step, math.Ceil(hi/step) * step
}

func tickStep(lo, hi float64, ticks int) float64 {
	raw := (hi - lo) / float64(ticks)
	power := math.Pow(10, math.Floor(math.Log10(raw)))
	switch r := raw / power; {
	case r >= math.Sqrt(50):
		return 10 * power
	case r >= math.Sqrt(10):
		return 5 * power
	case r >= math.Sqrt(2):
		return 2 * power
	default:
		return power
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
