// Package lookup answers "which point is closest to this instant" for
// ascending series, the query behind every chart tooltip.
package lookup

import (
	"errors"
	"sort"
	"time"

	"github.com/yellowduckie/duckline/internal/model"
)

// ErrEmptySeries is returned when a lookup is attempted on a series with
// no points. Callers should not show a tooltip for empty series.
var ErrEmptySeries = errors.New("lookup: empty series")

// Index returns the position of the point whose date is closest to q.
// The search is a lower-bound binary search followed by a comparison of
// the two neighbours; on an exact tie the earlier point wins. Queries
// before the first or after the last point clamp to the ends.
func Index(s model.Series, q time.Time) (int, error) {
	n := len(s)
	if n == 0 {
		return 0, ErrEmptySeries
	}
	i := sort.Search(n, func(i int) bool { return !s[i].Date.Before(q) })
	switch {
	case i == 0:
		return 0, nil
	case i == n:
		return n - 1, nil
	}
	before := q.Sub(s[i-1].Date)
	after := s[i].Date.Sub(q)
	if after < before {
		return i, nil
	}
	return i - 1, nil
}

// Locate returns the point whose date is closest to q.
func Locate(s model.Series, q time.Time) (model.Point, error) {
	i, err := Index(s, q)
	if err != nil {
		return model.Point{}, err
	}
	return s[i], nil
}

// LocateAll runs Locate against every non-empty series in set. Empty
// series are left out of the result rather than failing the whole lookup.
func LocateAll(set map[string]model.Series, q time.Time) map[string]model.Point {
	out := make(map[string]model.Point, len(set))
	for name, s := range set {
		p, err := Locate(s, q)
		if err != nil {
			continue
		}
		out[name] = p
	}
	return out
}
