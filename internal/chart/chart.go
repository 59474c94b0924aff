// Package chart renders day-resolution series as terminal charts.
//
//   - Plot: line chart with a time-proportional x axis, a [0, max*1.1]
//     y domain and an optional cursor column for tooltips
//   - Bar: one horizontal bar per point, for short or resampled series
//   - Tooltip: the one-line readout of the points nearest a cursor
//
// NaN values render as gaps, never as zeros.
package chart

import (
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/yellowduckie/duckline/internal/model"
	"github.com/yellowduckie/duckline/internal/scale"
	"github.com/yellowduckie/duckline/internal/util"
)

// ─── Plot ─────────────────────────────────────────────────────────────────────

// PlotOptions controls line chart rendering.
type PlotOptions struct {
	// Width is the total width including the y-axis labels.
	// 0 detects the terminal width.
	Width int
	// Height is the number of rows in the chart body. 0 means 12.
	Height int
	// Title overrides the series name in the header.
	Title string
	// Cursor, when non-zero, marks the column for that instant.
	Cursor time.Time
	// Start and End pin the x domain; zero values use the series extent.
	Start, End time.Time
}

const (
	glyphPoint  = '•'
	glyphInterp = '·'
	glyphRise   = '│'
	glyphCursor = '┊'
)

// Plot renders a line chart of s to w.
func Plot(w io.Writer, name string, s model.Series, opts PlotOptions) error {
	title := opts.Title
	if title == "" {
		title = name
	}

	valid := 0
	for _, p := range s {
		if !math.IsNaN(p.Value) {
			valid++
		}
	}
	if valid < 2 {
		return fmt.Errorf("chart plot: need at least 2 non-NaN points (got %d)", valid)
	}

	l := layout(s, opts)
	xs, ys, height, labelWidth, ticks := l.xs, l.ys, l.height, l.labelWidth, l.ticks
	start, end, plotWidth := xs.Start, xs.End, xs.Width

	cols := columnize(s, xs)
	grid := drawGrid(cols, ys, height)

	if !opts.Cursor.IsZero() {
		cx := int(math.Round(xs.Map(opts.Cursor)))
		for r := range grid {
			if grid[r][cx] == ' ' {
				grid[r][cx] = glyphCursor
			}
		}
	}

	fmt.Fprintf(w, "%s  (%s to %s)\n", title, util.DayKey(start), util.DayKey(end))
	for row := 0; row < height; row++ {
		label := ""
		for _, t := range ticks {
			if rowOf(ys, t, height) == row {
				label = formatFloat(t)
				break
			}
		}
		axis := " "
		if label != "" {
			axis = "┤"
		}
		fmt.Fprintf(w, "%*s%s%s\n", labelWidth, label, axis, string(grid[row]))
	}
	fmt.Fprintf(w, "%s└%s\n", strings.Repeat(" ", labelWidth), strings.Repeat("─", plotWidth))
	fmt.Fprintf(w, "%s %s\n", strings.Repeat(" ", labelWidth), xAxisLabels(xs))
	return nil
}

// Layout reports the x scale Plot would use for s and the screen column at
// which the plot area starts. Interactive callers use it to turn a pointer
// column into a date.
func Layout(s model.Series, opts PlotOptions) (scale.TimeScale, int) {
	l := layout(s, opts)
	return l.xs, l.labelWidth + 1
}

type plotLayout struct {
	xs         scale.TimeScale
	ys         scale.LinearScale
	height     int
	labelWidth int
	ticks      []float64
}

func layout(s model.Series, opts PlotOptions) plotLayout {
	width := opts.Width
	if width <= 0 {
		width = TermWidth()
	}
	height := opts.Height
	if height <= 0 {
		height = 12
	}

	lo, hi := scale.ValueDomain(s)
	ticks := yTicks(lo, hi, height)
	labelWidth := 0
	for _, t := range ticks {
		if l := len(formatFloat(t)); l > labelWidth {
			labelWidth = l
		}
	}
	plotWidth := width - labelWidth - 1
	if plotWidth < 10 {
		plotWidth = 10
	}

	start, end := opts.Start, opts.End
	if start.IsZero() && len(s) > 0 {
		start = s.First().Date
	}
	if end.IsZero() && len(s) > 0 {
		end = s.Last().Date
	}
	return plotLayout{
		xs:         scale.TimeScale{Start: start, End: end, Width: plotWidth},
		ys:         scale.LinearScale{Min: lo, Max: hi, Height: height},
		height:     height,
		labelWidth: labelWidth,
		ticks:      ticks,
	}
}

// column is one x position of the chart.
type column struct {
	value  float64
	real   bool // at least one point landed here
	broken bool // a NaN landed here and nothing valid did
}

// columnize places each point in the column for its date, averaging
// collisions, then linearly interpolates empty columns between real ones
// unless a NaN gap separates them.
func columnize(s model.Series, xs scale.TimeScale) []column {
	cols := make([]column, xs.Width)
	sums := make([]float64, xs.Width)
	counts := make([]int, xs.Width)
	for _, p := range s {
		if p.Date.Before(xs.Start) || p.Date.After(xs.End) {
			continue
		}
		c := int(math.Round(xs.Map(p.Date)))
		if math.IsNaN(p.Value) {
			cols[c].broken = true
			continue
		}
		sums[c] += p.Value
		counts[c]++
	}
	for c := range cols {
		if counts[c] > 0 {
			cols[c] = column{value: sums[c] / float64(counts[c]), real: true}
		} else {
			cols[c].value = math.NaN()
		}
	}

	prev := -1
	for c := range cols {
		if cols[c].broken {
			prev = -1
			continue
		}
		if !cols[c].real {
			continue
		}
		if prev >= 0 && c-prev > 1 {
			a, b := cols[prev].value, cols[c].value
			for k := prev + 1; k < c; k++ {
				frac := float64(k-prev) / float64(c-prev)
				cols[k].value = a + (b-a)*frac
			}
		}
		prev = c
	}
	return cols
}

func rowOf(ys scale.LinearScale, v float64, height int) int {
	return height - 1 - int(math.Round(ys.Map(v)))
}

func drawGrid(cols []column, ys scale.LinearScale, height int) [][]rune {
	grid := make([][]rune, height)
	for r := range grid {
		grid[r] = []rune(strings.Repeat(" ", len(cols)))
	}
	prevRow := -1
	for c, col := range cols {
		if math.IsNaN(col.value) {
			prevRow = -1
			continue
		}
		r := rowOf(ys, col.value, height)
		if col.real {
			grid[r][c] = glyphPoint
		} else {
			grid[r][c] = glyphInterp
		}
		if prevRow >= 0 && prevRow != r {
			from, to := prevRow, r
			if from > to {
				from, to = to, from
			}
			for k := from + 1; k < to; k++ {
				if grid[k][c] == ' ' {
					grid[k][c] = glyphRise
				}
			}
		}
		prevRow = r
	}
	return grid
}

// yTicks returns evenly spaced labels across the domain.
func yTicks(lo, hi float64, height int) []float64 {
	if hi == lo {
		return []float64{lo}
	}
	n := 4
	if height <= 6 {
		n = 3
	}
	ticks := make([]float64, n)
	for i := range ticks {
		ticks[i] = lo + float64(i)*(hi-lo)/float64(n-1)
	}
	return ticks
}

// xAxisLabels places start, middle and end dates under the plot.
func xAxisLabels(xs scale.TimeScale) string {
	buf := []rune(strings.Repeat(" ", xs.Width))
	put := func(pos int, s string) {
		for i, ch := range s {
			if pos+i >= 0 && pos+i < len(buf) {
				buf[pos+i] = ch
			}
		}
	}
	startLabel := util.DayKey(xs.Start)
	endLabel := util.DayKey(xs.End)
	put(0, startLabel)
	if xs.Width >= 3*len(startLabel)+4 {
		mid := util.DayKey(xs.Invert(float64(xs.Width-1) / 2))
		put(xs.Width/2-len(mid)/2, mid)
	}
	put(xs.Width-len(endLabel), endLabel)
	return string(buf)
}

// ─── Bar ─────────────────────────────────────────────────────────────────────

// BarOptions controls horizontal bar chart rendering.
type BarOptions struct {
	// Width is the total width available. 0 detects the terminal width.
	Width int
	// MaxBars keeps only the most recent N bars. 0 means no limit.
	MaxBars int
}

// Bar renders one bar per point, scaled from zero. Dense daily series
// should be resampled first; a hint is printed above 60 bars.
func Bar(w io.Writer, name string, s model.Series, opts BarOptions) error {
	width := opts.Width
	if width <= 0 {
		width = TermWidth()
	}

	var valid model.Series
	for _, p := range s {
		if !math.IsNaN(p.Value) {
			valid = append(valid, p)
		}
	}
	if len(valid) == 0 {
		return fmt.Errorf("chart bar: no non-NaN points to render")
	}
	if opts.MaxBars > 0 && len(valid) > opts.MaxBars {
		valid = valid[len(valid)-opts.MaxBars:]
	}
	if len(valid) > 60 {
		fmt.Fprintf(w, "⚠  %d bars — consider piping through: duckline transform resample --freq weekly --method sum\n\n", len(valid))
	}

	layout := dateLayout(valid)
	_, hi := scale.ValueDomain(valid)
	valWidth := 0
	for _, p := range valid {
		if l := len(formatFloat(p.Value)); l > valWidth {
			valWidth = l
		}
	}
	dateWidth := len(valid[0].Date.Format(layout))
	area := width - dateWidth - valWidth - 4
	if area < 4 {
		area = 4
	}
	xs := scale.LinearScale{Min: 0, Max: hi, Height: area + 1}

	fmt.Fprintf(w, "%s  %s – %s\n", name, valid.First().Date.Format(layout), valid.Last().Date.Format(layout))
	for _, p := range valid {
		n := int(math.Round(xs.Map(p.Value)))
		if n < 1 && p.Value > 0 {
			n = 1
		}
		fmt.Fprintf(w, "%-*s  %*s  %s\n", dateWidth, p.Date.Format(layout), valWidth, formatFloat(p.Value), strings.Repeat("█", n))
	}
	return nil
}

// dateLayout shortens labels for month- or year-start series, which is
// what resampling produces.
func dateLayout(s model.Series) string {
	if len(s) < 2 {
		return "2006-01-02"
	}
	monthStarts, yearStarts := true, true
	for _, p := range s {
		if p.Date.Day() != 1 {
			monthStarts = false
		}
		if p.Date.Day() != 1 || p.Date.Month() != time.January {
			yearStarts = false
		}
	}
	switch {
	case yearStarts:
		return "2006"
	case monthStarts:
		return "2006-01"
	default:
		return "2006-01-02"
	}
}

// ─── Tooltip ──────────────────────────────────────────────────────────────────

// Tooltip formats the readout for a cursor at q: the query day followed by
// each series' nearest point, in name order.
//
//	2024-01-02 │ dominance 54.12 (01-02) │ price 0.0123 (01-01)
func Tooltip(q time.Time, points map[string]model.Point) string {
	names := make([]string, 0, len(points))
	for n := range points {
		names = append(names, n)
	}
	sort.Strings(names)

	var sb strings.Builder
	sb.WriteString(util.DayKey(q))
	for _, n := range names {
		p := points[n]
		fmt.Fprintf(&sb, " │ %s %s (%s)", n, formatFloat(p.Value), p.Date.UTC().Format("01-02"))
	}
	return sb.String()
}

// ─── Utilities ────────────────────────────────────────────────────────────────

// formatFloat formats axis and bar labels compactly.
func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return "."
	}
	abs := math.Abs(v)
	var s string
	switch {
	case abs == 0:
		return "0"
	case abs >= 1e6:
		return strconv.FormatFloat(v/1e6, 'f', 1, 64) + "M"
	case abs >= 1e4:
		return strconv.FormatFloat(v/1e3, 'f', 1, 64) + "K"
	case abs >= 100:
		s = strconv.FormatFloat(v, 'f', 1, 64)
	case abs >= 1:
		s = strconv.FormatFloat(v, 'f', 2, 64)
	default:
		s = strconv.FormatFloat(v, 'f', 4, 64)
	}
	s = strings.TrimRight(s, "0")
	if strings.HasSuffix(s, ".") {
		s += "0"
	}
	return s
}

// TermWidth returns the width of the terminal on stdout, then $COLUMNS,
// then 80.
func TermWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 20 {
		return w
	}
	if cols := os.Getenv("COLUMNS"); cols != "" {
		if n, err := strconv.Atoi(cols); err == nil && n > 20 {
			return n
		}
	}
	return 80
}
