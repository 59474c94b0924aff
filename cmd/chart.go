package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/spf13/cobra"

	"github.com/yellowduckie/duckline/internal/app"
	"github.com/yellowduckie/duckline/internal/chart"
	"github.com/yellowduckie/duckline/internal/htmlchart"
	"github.com/yellowduckie/duckline/internal/lookup"
	"github.com/yellowduckie/duckline/internal/model"
	"github.com/yellowduckie/duckline/internal/pipeline"
	"github.com/yellowduckie/duckline/internal/render"
	"github.com/yellowduckie/duckline/internal/transform"
)

var chartCmd = &cobra.Command{
	Use:   "chart",
	Short: "Chart series in the terminal or as an HTML page",
	Long: `Chart commands take a dataset name, or read JSONL points from stdin when
no name is given and input is piped.

Pipeline examples:
  duckline series get transactions --format jsonl | duckline transform smooth --window 7 | duckline chart plot
  duckline series get engagement --format jsonl | duckline transform resample --freq monthly --method sum | duckline chart bar`,
}

// chartSeries returns the series to chart: the named dataset loaded and
// windowed, or the JSONL series on stdin.
func chartSeries(ctx context.Context, deps *app.Deps, args []string, f loadFlags) (string, model.Series, *loaded, error) {
	if len(args) == 0 {
		if !pipeline.StdinIsPiped() {
			return "", nil, nil, fmt.Errorf("name a dataset or pipe JSONL points on stdin")
		}
		name, s, err := pipeline.ReadPoints(os.Stdin)
		if err != nil {
			return "", nil, nil, err
		}
		if name == "" {
			name = "series"
		}
		w, err := deps.Window(f.window)
		if err != nil {
			return "", nil, nil, err
		}
		return name, deps.Windowed(s, w), nil, nil
	}
	l, err := loadSet(ctx, deps, args[:1], f)
	if err != nil {
		return "", nil, nil, err
	}
	return l.Names[0], l.Series[l.Names[0]], l, nil
}

func printWarnings(cmd *cobra.Command, deps *app.Deps, l *loaded) {
	if l == nil || deps.Config.Quiet {
		return
	}
	for _, w := range l.Warnings {
		render.Warn(cmd.ErrOrStderr(), "%s", w)
	}
}

// ─── chart plot ───────────────────────────────────────────────────────────────

var (
	chartPlotFlags  loadFlags
	chartPlotWidth  int
	chartPlotHeight int
	chartPlotTitle  string
	chartPlotCursor string
)

var chartPlotCmd = &cobra.Command{
	Use:   "plot [dataset]",
	Short: "Line chart with a time-proportional x axis",
	Long: `Renders a line chart. The y axis always starts at zero and ends a little
above the maximum. Days without data are interpolated; missing values break
the line.

--cursor marks a date on the chart and prints the tooltip for it: the
nearest point of the charted series.`,
	Example: `  duckline chart plot price
  duckline chart plot btc-dominance --window 3m --height 16
  duckline chart plot transactions --cursor 2024-03-14`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		name, s, l, err := chartSeries(cmd.Context(), deps, args, chartPlotFlags)
		if err != nil {
			return err
		}
		opts := chart.PlotOptions{Width: chartPlotWidth, Height: chartPlotHeight, Title: chartPlotTitle}
		if chartPlotCursor != "" {
			q, err := parseDateArg(chartPlotCursor)
			if err != nil {
				return fmt.Errorf("--cursor: %w", err)
			}
			opts.Cursor = q
		}

		w, closeFn, err := outputWriter(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer closeFn()
		if err := chart.Plot(w, name, s, opts); err != nil {
			return err
		}
		if !opts.Cursor.IsZero() {
			near := lookup.LocateAll(map[string]model.Series{name: s}, opts.Cursor)
			fmt.Fprintln(w, chart.Tooltip(opts.Cursor, near))
		}
		printWarnings(cmd, deps, l)
		return nil
	},
}

// ─── chart bar ────────────────────────────────────────────────────────────────

var (
	chartBarFlags    loadFlags
	chartBarWidth    int
	chartBarMaxBars  int
	chartBarResample string
	chartBarMethod   string
)

var chartBarCmd = &cobra.Command{
	Use:   "bar [dataset]",
	Short: "Horizontal bar chart, one bar per point",
	Long: `Renders one labelled bar per point. Best suited to short windows or
resampled data; --resample buckets the series first.`,
	Example: `  duckline chart bar transactions --window 1w
  duckline chart bar engagement --resample monthly --method sum
  duckline chart bar price --resample weekly --max-bars 12`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		name, s, l, err := chartSeries(cmd.Context(), deps, args, chartBarFlags)
		if err != nil {
			return err
		}
		if chartBarResample != "" {
			s, err = transform.Resample(s, transform.ResampleFreq(chartBarResample), transform.ResampleMethod(chartBarMethod))
			if err != nil {
				return err
			}
		}

		w, closeFn, err := outputWriter(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer closeFn()
		if err := chart.Bar(w, name, s, chart.BarOptions{Width: chartBarWidth, MaxBars: chartBarMaxBars}); err != nil {
			return err
		}
		printWarnings(cmd, deps, l)
		return nil
	},
}

// ─── chart html ───────────────────────────────────────────────────────────────

var (
	chartHTMLFlags  loadFlags
	chartHTMLKind   string
	chartHTMLSmooth bool
	chartHTMLTitle  string
	chartHTMLSplit  bool
	chartHTMLClip   bool
)

var chartHTMLCmd = &cobra.Command{
	Use:   "html <dataset...>",
	Short: "Write an interactive HTML chart page",
	Long: `Writes a self-contained HTML page with an interactive chart (hover
tooltips, zoom slider). Several datasets are merged onto one chart unless
--split gives each its own.

The page goes to --out, or stdout when --out is not set.`,
	Example: `  duckline chart html btc-dominance altcoin-index --out market.html
  duckline chart html engagement transactions --split --window 3m --out activity.html
  duckline chart html transactions --kind bar --window 1m --out tx.html`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		l, err := loadSet(cmd.Context(), deps, args, chartHTMLFlags)
		if err != nil {
			return err
		}
		opts := htmlchart.Options{
			Title:    chartHTMLTitle,
			Subtitle: fmt.Sprintf("window %s", l.Window),
			Kind:     htmlchart.Kind(chartHTMLKind),
			Smooth:   chartHTMLSmooth,
		}

		var charts []components.Charter
		if chartHTMLSplit {
			for _, n := range l.Names {
				c, err := transform.MergeNamed(model.NamedSeries{Name: n, Points: l.Series[n]})
				if err != nil {
					return err
				}
				o := opts
				if o.Title == "" {
					o.Title = n
				}
				ch, err := htmlchart.Chart(c, o)
				if err != nil {
					return fmt.Errorf("%s: %w", n, err)
				}
				charts = append(charts, ch)
			}
		} else {
			c, err := mergeLoaded(l, chartHTMLClip)
			if err != nil {
				return err
			}
			if opts.Title == "" {
				opts.Title = strings.Join(l.Names, " vs ")
			}
			ch, err := htmlchart.Chart(c, opts)
			if err != nil {
				return err
			}
			charts = append(charts, ch)
		}

		if globalFlags.Out != "" {
			if err := htmlchart.WriteFile(globalFlags.Out, "duckline", charts...); err != nil {
				return err
			}
			if !deps.Config.Quiet {
				fmt.Fprintf(cmd.ErrOrStderr(), "✓ Wrote %s\n", globalFlags.Out)
			}
		} else if err := htmlchart.Render(cmd.OutOrStdout(), "duckline", charts...); err != nil {
			return err
		}
		printWarnings(cmd, deps, l)
		return nil
	},
}

func init() {
	chartPlotFlags.register(chartPlotCmd)
	chartPlotCmd.Flags().IntVar(&chartPlotWidth, "width", 0, "total width in columns (default: terminal width)")
	chartPlotCmd.Flags().IntVar(&chartPlotHeight, "height", 12, "chart body height in rows")
	chartPlotCmd.Flags().StringVar(&chartPlotTitle, "title", "", "chart title (default: dataset name)")
	chartPlotCmd.Flags().StringVar(&chartPlotCursor, "cursor", "", "mark this date and print its tooltip")

	chartBarFlags.register(chartBarCmd)
	chartBarCmd.Flags().IntVar(&chartBarWidth, "width", 0, "total width in columns (default: terminal width)")
	chartBarCmd.Flags().IntVar(&chartBarMaxBars, "max-bars", 0, "keep only the most recent N bars (0 = all)")
	chartBarCmd.Flags().StringVar(&chartBarResample, "resample", "", "resample first: weekly|monthly|quarterly|annual")
	chartBarCmd.Flags().StringVar(&chartBarMethod, "method", string(transform.ResampleMean), "resample method: mean|last|sum")

	chartHTMLFlags.register(chartHTMLCmd)
	chartHTMLCmd.Flags().StringVar(&chartHTMLKind, "kind", string(htmlchart.KindLine), "chart kind: line|bar")
	chartHTMLCmd.Flags().BoolVar(&chartHTMLSmooth, "smooth", false, "draw smoothed lines")
	chartHTMLCmd.Flags().StringVar(&chartHTMLTitle, "title", "", "chart title")
	chartHTMLCmd.Flags().BoolVar(&chartHTMLSplit, "split", false, "one chart per dataset instead of one merged chart")
	chartHTMLCmd.Flags().BoolVar(&chartHTMLClip, "clip", false, "clip merged series to their common date range")

	chartCmd.AddCommand(chartPlotCmd, chartBarCmd, chartHTMLCmd)
	rootCmd.AddCommand(chartCmd)
}
