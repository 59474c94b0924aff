// Package htmlchart renders aligned composites as static HTML pages using
// go-echarts. The page is self-contained apart from the echarts script,
// which is loaded from its CDN.
package htmlchart

import (
	"fmt"
	"io"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/yellowduckie/duckline/internal/model"
	"github.com/yellowduckie/duckline/internal/scale"
	"github.com/yellowduckie/duckline/internal/util"
)

// Kind selects the chart type.
type Kind string

const (
	KindLine Kind = "line"
	KindBar  Kind = "bar"
)

const (
	chartWidth  = "1100px"
	chartHeight = "480px"
	textColor   = "#333"
)

// Options controls one chart.
type Options struct {
	Title    string
	Subtitle string
	Kind     Kind
	Smooth   bool
}

// Chart builds one chart from c. Every key becomes a series; the y axis
// starts at zero and ends at the nice rounding of max*1.1, matching the
// terminal charts.
func Chart(c model.Composite, o Options) (components.Charter, error) {
	if len(c.Records) == 0 {
		return nil, fmt.Errorf("htmlchart: nothing to plot")
	}
	days := make([]string, len(c.Records))
	for i, rec := range c.Records {
		days[i] = util.DayKey(rec.Date)
	}
	global := globalOptions(c, o)

	switch o.Kind {
	case KindBar:
		bar := charts.NewBar()
		bar.SetGlobalOptions(global...)
		bar.SetXAxis(days)
		for _, k := range c.Keys {
			data := make([]opts.BarData, len(c.Records))
			for i, rec := range c.Records {
				data[i] = opts.BarData{Value: rec.Values[k]}
			}
			bar.AddSeries(k, data)
		}
		return bar, nil
	case KindLine, "":
		line := charts.NewLine()
		line.SetGlobalOptions(global...)
		line.SetXAxis(days)
		for _, k := range c.Keys {
			data := make([]opts.LineData, len(c.Records))
			for i, rec := range c.Records {
				data[i] = opts.LineData{Value: rec.Values[k]}
			}
			line.AddSeries(k, data)
		}
		line.SetSeriesOptions(
			charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(o.Smooth), ShowSymbol: opts.Bool(len(days) <= 60)}),
		)
		return line, nil
	default:
		return nil, fmt.Errorf("htmlchart: unknown chart kind %q (use line or bar)", o.Kind)
	}
}

func globalOptions(c model.Composite, o Options) []charts.GlobalOpts {
	series := make([]model.Series, len(c.Keys))
	for i, k := range c.Keys {
		s := make(model.Series, len(c.Records))
		for j, rec := range c.Records {
			s[j] = model.Point{Date: rec.Date, Value: rec.Values[k]}
		}
		series[i] = s
	}
	lo, hi := scale.ValueDomain(series...)

	return []charts.GlobalOpts{
		charts.WithInitializationOpts(opts.Initialization{
			Width:  chartWidth,
			Height: chartHeight,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:      o.Title,
			Subtitle:   o.Subtitle,
			TitleStyle: &opts.TextStyle{Color: textColor},
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:    opts.Bool(true),
			Trigger: "axis",
		}),
		charts.WithLegendOpts(opts.Legend{
			Show:  opts.Bool(len(c.Keys) > 1),
			Right: "10",
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Min: lo,
			Max: hi,
			AxisLabel: &opts.AxisLabel{
				Color: textColor,
			},
		}),
		charts.WithDataZoomOpts(opts.DataZoom{
			Type:  "slider",
			Start: 0,
			End:   100,
		}),
	}
}

// Render writes a page holding charts to w.
func Render(w io.Writer, pageTitle string, cs ...components.Charter) error {
	page := components.NewPage()
	page.PageTitle = pageTitle
	page.AddCharts(cs...)
	return page.Render(w)
}

// WriteFile renders a page to path, replacing any existing file.
func WriteFile(path, pageTitle string, cs ...components.Charter) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := Render(f, pageTitle, cs...); err != nil {
		_ = f.Close()
		return fmt.Errorf("rendering %s: %w", path, err)
	}
	return f.Close()
}
