package transform

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/yellowduckie/duckline/internal/model"
	"github.com/yellowduckie/duckline/internal/util"
)

// Window is a trailing period selection as offered by the chart controls.
type Window string

const (
	Window1W  Window = "1w"
	Window1M  Window = "1m"
	Window3M  Window = "3m"
	Window6M  Window = "6m"
	Window9M  Window = "9m"
	Window12M Window = "12m"
	WindowAll Window = "all"
)

// Windows lists every supported window in ascending span.
var Windows = []Window{Window1W, Window1M, Window3M, Window6M, Window9M, Window12M, WindowAll}

// ParseWindow normalizes user input such as "3M", "1y" or "ALL".
func ParseWindow(s string) (Window, error) {
	w := Window(strings.ToLower(strings.TrimSpace(s)))
	switch w {
	case "1y":
		return Window12M, nil
	case "", "max":
		return WindowAll, nil
	}
	for _, known := range Windows {
		if w == known {
			return w, nil
		}
	}
	return "", fmt.Errorf("unknown window %q (use 1w, 1m, 3m, 6m, 9m, 12m, all)", s)
}

// Cutoff returns the inclusive lower bound for w relative to now: now minus
// the window span, truncated to the start of that UTC day. Month spans use
// calendar arithmetic with end-of-month clamping. The bool is false for
// WindowAll, which has no bound.
func Cutoff(w Window, now time.Time) (time.Time, bool) {
	now = now.UTC()
	var t time.Time
	switch w {
	case Window1W:
		t = now.AddDate(0, 0, -7)
	case Window1M:
		t = util.AddMonths(now, -1)
	case Window3M:
		t = util.AddMonths(now, -3)
	case Window6M:
		t = util.AddMonths(now, -6)
	case Window9M:
		t = util.AddMonths(now, -9)
	case Window12M:
		t = util.AddMonths(now, -12)
	default:
		return time.Time{}, false
	}
	return util.TruncateDay(t), true
}

// FilterWindow returns the trailing part of an ascending series whose dates
// are on or after the window cutoff. The result shares the input's backing
// array with its capacity clipped, so appending to it never writes into the
// base series. WindowAll returns s unchanged.
func FilterWindow(s model.Series, w Window, now time.Time) model.Series {
	cutoff, ok := Cutoff(w, now)
	if !ok {
		return s
	}
	i := sort.Search(len(s), func(i int) bool { return !s[i].Date.Before(cutoff) })
	return s[i:len(s):len(s)]
}
