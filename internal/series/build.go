package series

import (
	"errors"
	"sort"

	"github.com/yellowduckie/duckline/internal/model"
	"github.com/yellowduckie/duckline/internal/util"
)

// BuildStats is the aggregate diagnostic for one Build call.
type BuildStats struct {
	Rows       int            `json:"rows"`
	Kept       int            `json:"kept"`
	Rejected   int            `json:"rejected"`
	Duplicates int            `json:"duplicates"`
	Reasons    map[string]int `json:"reasons,omitempty"`
}

// Build parses every record, drops rejects, truncates dates to the UTC day,
// sorts ascending and resolves same-day duplicates per cfg.Duplicates.
// Input order does not need to be sorted. The sort is stable, so "first"
// and "last" refer to input order among rows of the same day.
func Build(records []model.RawRecord, cfg Config) (model.Series, BuildStats) {
	stats := BuildStats{Rows: len(records)}
	points := make(model.Series, 0, len(records))
	for _, rec := range records {
		p, err := ParseRow(rec, cfg)
		if err != nil {
			stats.Rejected++
			if stats.Reasons == nil {
				stats.Reasons = make(map[string]int)
			}
			stats.Reasons[reasonOf(err)]++
			continue
		}
		p.Date = util.TruncateDay(p.Date)
		points = append(points, p)
	}

	sort.SliceStable(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })

	out := dedupe(points, cfg.Duplicates)
	stats.Duplicates = len(points) - len(out)
	stats.Kept = len(out)
	return out, stats
}

// dedupe collapses runs of equal day-keys in a sorted slice.
func dedupe(sorted model.Series, policy DuplicatePolicy) model.Series {
	out := make(model.Series, 0, len(sorted))
	lastKey := ""
	for _, p := range sorted {
		key := util.DayKey(p.Date)
		if len(out) == 0 || key != lastKey {
			out = append(out, clonePoint(p))
			lastKey = key
			continue
		}
		cur := &out[len(out)-1]
		switch policy {
		case DuplicateLast:
			*cur = clonePoint(p)
		case DuplicateSum:
			cur.Value += p.Value
			for k, v := range p.Aux {
				if cur.Aux == nil {
					cur.Aux = make(map[string]float64, len(p.Aux))
				}
				cur.Aux[k] += v
			}
		default:
			// first wins
		}
	}
	return out
}

// clonePoint copies Aux so summing never writes into a parsed row's map.
func clonePoint(p model.Point) model.Point {
	if p.Aux == nil {
		return p
	}
	aux := make(map[string]float64, len(p.Aux))
	for k, v := range p.Aux {
		aux[k] = v
	}
	p.Aux = aux
	return p
}

func reasonOf(err error) string {
	switch {
	case errors.Is(err, ErrBadDate):
		return "bad_date"
	case errors.Is(err, ErrNonPositive):
		return "non_positive"
	case errors.Is(err, ErrMissingValue):
		return "missing_value"
	default:
		return "other"
	}
}
