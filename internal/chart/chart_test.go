package chart_test

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/yellowduckie/duckline/internal/chart"
	"github.com/yellowduckie/duckline/internal/model"
)

// ─── Helpers ──────────────────────────────────────────────────────────────────

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic("date: bad date: " + s)
	}
	return t
}

// daily builds consecutive daily points starting at start.
func daily(start string, values ...float64) model.Series {
	d := date(start)
	out := make(model.Series, len(values))
	for i, v := range values {
		out[i] = model.Point{Date: d.AddDate(0, 0, i), Value: v}
	}
	return out
}

// monthly builds first-of-month points.
func monthly(year, month int, values ...float64) model.Series {
	out := make(model.Series, len(values))
	for i, v := range values {
		out[i] = model.Point{Date: time.Date(year, time.Month(month+i), 1, 0, 0, 0, 0, time.UTC), Value: v}
	}
	return out
}

func nonEmptyLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}

// ─── Bar ──────────────────────────────────────────────────────────────────────

func TestBarBasic(t *testing.T) {
	var buf strings.Builder
	err := chart.Bar(&buf, "txCount", daily("2024-01-01", 3, 5, 4, 1), chart.BarOptions{Width: 60})
	if err != nil {
		t.Fatalf("Bar returned error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "txCount  2024-01-01 – 2024-01-04") {
		t.Errorf("unexpected header:\n%s", out)
	}
	lines := nonEmptyLines(out)
	if len(lines) != 5 {
		t.Fatalf("expected 1 header + 4 bars, got %d:\n%s", len(lines), out)
	}
	for _, line := range lines[1:] {
		if !strings.Contains(line, "█") {
			t.Errorf("bar line missing block: %q", line)
		}
	}
	// the largest value draws the longest bar
	if strings.Count(lines[2], "█") <= strings.Count(lines[1], "█") {
		t.Errorf("5 should draw longer than 3:\n%s", out)
	}
}

func TestBarAllNaN(t *testing.T) {
	var buf strings.Builder
	err := chart.Bar(&buf, "x", daily("2024-01-01", math.NaN(), math.NaN()), chart.BarOptions{Width: 60})
	if err == nil || !strings.Contains(err.Error(), "no non-NaN") {
		t.Fatalf("expected no non-NaN error, got %v", err)
	}
}

func TestBarZeroValueHasNoBlock(t *testing.T) {
	var buf strings.Builder
	if err := chart.Bar(&buf, "x", daily("2024-01-01", 0, 2), chart.BarOptions{Width: 60}); err != nil {
		t.Fatal(err)
	}
	lines := nonEmptyLines(buf.String())
	if strings.Contains(lines[1], "█") {
		t.Errorf("zero should draw an empty bar: %q", lines[1])
	}
}

func TestBarMaxBarsKeepsMostRecent(t *testing.T) {
	var buf strings.Builder
	err := chart.Bar(&buf, "x", daily("2024-01-01", 1, 2, 3, 4, 5), chart.BarOptions{Width: 60, MaxBars: 2})
	if err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if strings.Contains(out, "2024-01-01 ") || !strings.Contains(out, "2024-01-05") {
		t.Errorf("expected only the last two days:\n%s", out)
	}
}

func TestBarDensityHint(t *testing.T) {
	vals := make([]float64, 90)
	for i := range vals {
		vals[i] = float64(i + 1)
	}
	var buf strings.Builder
	_ = chart.Bar(&buf, "x", daily("2024-01-01", vals...), chart.BarOptions{Width: 80})
	if !strings.Contains(buf.String(), "transform resample") {
		t.Error("expected resample hint for dense series")
	}
}

func TestBarMonthlyLabels(t *testing.T) {
	var buf strings.Builder
	_ = chart.Bar(&buf, "x", monthly(2024, 1, 1, 2, 3), chart.BarOptions{Width: 60})
	out := buf.String()
	if !strings.Contains(out, "2024-03") || strings.Contains(out, "2024-03-01") {
		t.Errorf("resampled monthly series should use YYYY-MM labels:\n%s", out)
	}
}

// ─── Plot ─────────────────────────────────────────────────────────────────────

func TestPlotBasic(t *testing.T) {
	var buf strings.Builder
	err := chart.Plot(&buf, "price", daily("2024-01-01", 1, 3, 2, 5, 4, 6), chart.PlotOptions{Width: 60, Height: 8})
	if err != nil {
		t.Fatalf("Plot returned error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "price  (2024-01-01 to 2024-01-06)") {
		t.Errorf("unexpected header:\n%s", out)
	}
	if !strings.Contains(out, "•") {
		t.Error("expected point glyphs")
	}
	if !strings.Contains(out, "└") {
		t.Error("expected bottom axis")
	}
}

func TestPlotLineCount(t *testing.T) {
	var buf strings.Builder
	_ = chart.Plot(&buf, "x", daily("2024-01-01", 1, 2, 3, 4), chart.PlotOptions{Width: 60, Height: 10})
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	// header + body + axis + x labels
	if len(lines) != 1+10+1+1 {
		t.Errorf("expected 13 lines, got %d:\n%s", len(lines), buf.String())
	}
}

func TestPlotWidthRespected(t *testing.T) {
	var buf strings.Builder
	_ = chart.Plot(&buf, "x", daily("2024-01-01", 1, 2, 3, 4, 5), chart.PlotOptions{Width: 50, Height: 6})
	for _, line := range strings.Split(buf.String(), "\n")[1:] {
		if n := len([]rune(line)); n > 50 {
			t.Errorf("line exceeds width 50 (%d): %q", n, line)
		}
	}
}

func TestPlotTitleOverride(t *testing.T) {
	var buf strings.Builder
	_ = chart.Plot(&buf, "price", daily("2024-01-01", 1, 2), chart.PlotOptions{Width: 60, Height: 6, Title: "PhiCoin"})
	if !strings.HasPrefix(buf.String(), "PhiCoin") {
		t.Errorf("title override not applied:\n%s", buf.String())
	}
}

func TestPlotNeedsTwoPoints(t *testing.T) {
	var buf strings.Builder
	if err := chart.Plot(&buf, "x", daily("2024-01-01", 1), chart.PlotOptions{Width: 60}); err == nil {
		t.Error("expected error for a single point")
	}
	if err := chart.Plot(&buf, "x", daily("2024-01-01", math.NaN(), math.NaN(), 1), chart.PlotOptions{Width: 60}); err == nil {
		t.Error("expected error when only one value is non-NaN")
	}
}

func TestPlotSparseSeriesInterpolates(t *testing.T) {
	s := model.Series{
		{Date: date("2024-01-01"), Value: 1},
		{Date: date("2024-03-01"), Value: 9},
	}
	var buf strings.Builder
	if err := chart.Plot(&buf, "x", s, chart.PlotOptions{Width: 60, Height: 8}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "·") {
		t.Error("expected interpolated glyphs between sparse points")
	}
}

func TestPlotNaNBreaksLine(t *testing.T) {
	// 11 days on 11 columns: labels "0".."9.0" take 3 chars plus the axis.
	nan := math.NaN()
	s := daily("2024-01-01", 1, 2, 3, 4, nan, nan, nan, 5, 6, 7, 8)
	var buf strings.Builder
	if err := chart.Plot(&buf, "x", s, chart.PlotOptions{Width: 15, Height: 6}); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), "·") {
		t.Errorf("a NaN gap should not be interpolated across:\n%s", buf.String())
	}
}

func TestPlotCursor(t *testing.T) {
	var buf strings.Builder
	s := daily("2024-01-01", 5, 5, 5, 5, 5, 5, 5, 5, 5, 5)
	err := chart.Plot(&buf, "x", s, chart.PlotOptions{Width: 40, Height: 6, Cursor: date("2024-01-05")})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "┊") {
		t.Error("expected cursor column")
	}
}

// ─── Tooltip ──────────────────────────────────────────────────────────────────

func TestTooltip(t *testing.T) {
	got := chart.Tooltip(date("2024-01-02"), map[string]model.Point{
		"price":     {Date: date("2024-01-01"), Value: 0.0123},
		"dominance": {Date: date("2024-01-02"), Value: 54.12},
	})
	want := "2024-01-02 │ dominance 54.12 (01-02) │ price 0.0123 (01-01)"
	if got != want {
		t.Errorf("tooltip:\nwant %q\ngot  %q", want, got)
	}
}

func TestTermWidthFromColumns(t *testing.T) {
	t.Setenv("COLUMNS", "132")
	// stdout is not a terminal under go test, so $COLUMNS decides
	if got := chart.TermWidth(); got != 132 {
		t.Errorf("expected 132, got %d", got)
	}
}

func TestLayoutMatchesPlotArea(t *testing.T) {
	s := daily("2024-01-01", 1, 2, 3, 4, 5, 6, 7, 8, 9, 10)
	xs, offset := chart.Layout(s, chart.PlotOptions{Width: 40, Height: 6})
	if offset < 2 {
		t.Fatalf("expected offset past the y labels, got %d", offset)
	}
	if xs.Width != 40-offset {
		t.Errorf("plot width: expected %d, got %d", 40-offset, xs.Width)
	}
	if !xs.Start.Equal(date("2024-01-01")) || !xs.End.Equal(date("2024-01-10")) {
		t.Errorf("domain: got %s..%s", xs.Start, xs.End)
	}
	if got := xs.Invert(float64(xs.Width - 1)); !got.Equal(date("2024-01-10")) {
		t.Errorf("last column should invert to the last day, got %s", got)
	}
}
