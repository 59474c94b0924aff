package transform

import (
	"fmt"
	"sort"

	"github.com/yellowduckie/duckline/internal/model"
	"github.com/yellowduckie/duckline/internal/util"
)

// Merge aligns several series by day-key into one record per day present
// in any input. Every record carries one value per key; a series with no
// point on that day contributes 0. Records are sorted ascending.
//
// series and keys are index-aligned. Mismatched lengths and duplicate keys
// are usage errors.
func Merge(series []model.Series, keys []string) ([]model.CompositeRecord, error) {
	if len(series) != len(keys) {
		return nil, fmt.Errorf("merge: %d series but %d keys", len(series), len(keys))
	}
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		if k == "" {
			return nil, fmt.Errorf("merge: empty key")
		}
		if seen[k] {
			return nil, fmt.Errorf("merge: duplicate key %q", k)
		}
		seen[k] = true
	}

	byDay := make(map[string]*model.CompositeRecord)
	for i, s := range series {
		for _, p := range s {
			dk := util.DayKey(p.Date)
			rec, ok := byDay[dk]
			if !ok {
				rec = &model.CompositeRecord{
					Date:   util.TruncateDay(p.Date),
					Values: make(map[string]float64, len(keys)),
				}
				for _, k := range keys {
					rec.Values[k] = 0
				}
				byDay[dk] = rec
			}
			rec.Values[keys[i]] = p.Value
		}
	}

	out := make([]model.CompositeRecord, 0, len(byDay))
	for _, rec := range byDay {
		out = append(out, *rec)
	}
	// Day keys only sort lexically for four-digit years.
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// MergeNamed is Merge over named series, returning the composite with its
// ordered key list.
func MergeNamed(named ...model.NamedSeries) (model.Composite, error) {
	keys := make([]string, len(named))
	series := make([]model.Series, len(named))
	for i, n := range named {
		keys[i] = n.Name
		series[i] = n.Points
	}
	recs, err := Merge(series, keys)
	if err != nil {
		return model.Composite{}, err
	}
	return model.Composite{Keys: keys, Records: recs}, nil
}

// ClipToOverlap restricts every series to the date range they all cover,
// [max of firsts, min of lasts]. If any series is empty, or the ranges do
// not intersect, every result is empty.
func ClipToOverlap(series ...model.Series) []model.Series {
	out := make([]model.Series, len(series))
	if len(series) == 0 {
		return out
	}
	for _, s := range series {
		if len(s) == 0 {
			return out
		}
	}
	lo, hi := series[0].First().Date, series[0].Last().Date
	for _, s := range series[1:] {
		if d := s.First().Date; d.After(lo) {
			lo = d
		}
		if d := s.Last().Date; d.Before(hi) {
			hi = d
		}
	}
	if lo.After(hi) {
		return out
	}
	for i, s := range series {
		start := sort.Search(len(s), func(j int) bool { return !s[j].Date.Before(lo) })
		end := sort.Search(len(s), func(j int) bool { return s[j].Date.After(hi) })
		out[i] = s[start:end:end]
	}
	return out
}
