package cmd

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/yellowduckie/duckline/internal/config"
	"github.com/yellowduckie/duckline/internal/model"
	"github.com/yellowduckie/duckline/internal/pipeline"
	"github.com/yellowduckie/duckline/internal/render"
	"github.com/yellowduckie/duckline/internal/transform"
	"github.com/yellowduckie/duckline/internal/util"
)

var transformCmd = &cobra.Command{
	Use:   "transform",
	Short: "Transform a series (reads JSONL from stdin)",
	Long: `Transform operators read JSONL points from stdin and write to stdout.
Output is JSONL when piped and a table on a terminal, unless --format is set.

Pipeline example:
  duckline series get transactions --format jsonl | duckline transform window --window 1m
  duckline series get engagement --store --format jsonl | duckline transform resample --freq weekly --method sum | duckline chart bar`,
}

// ─── window ───────────────────────────────────────────────────────────────────

var transformWindowName string

var transformWindowCmd = &cobra.Command{
	Use:   "window",
	Short: "Keep the trailing 1w|1m|3m|6m|9m|12m|all of the series",
	Long: `Keeps the points on or after today minus the window. Months are calendar
months, clamped to the end of shorter months. Use the global --now to pin
"today".`,
	Example: `  duckline series get price --format jsonl | duckline transform window --window 3m
  duckline series get price --format jsonl | duckline transform window --window 1m --now 2024-03-15`,
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := transform.ParseWindow(transformWindowName)
		if err != nil {
			return err
		}
		now, err := transformNow()
		if err != nil {
			return err
		}
		name, s, err := pipeline.ReadPoints(os.Stdin)
		if err != nil {
			return err
		}
		return writeTransformOutput(cmd, name, transform.FilterWindow(s, w, now))
	},
}

// transformNow is --now when set, otherwise the wall clock. Transforms read
// stdin only, so no config file is consulted.
func transformNow() (time.Time, error) {
	if globalFlags.Now == "" {
		return (&config.Config{}).Clock(), nil
	}
	now, err := util.ParseDay(globalFlags.Now)
	if err != nil {
		return time.Time{}, fmt.Errorf("--now: %w", err)
	}
	return now, nil
}

// ─── resample ─────────────────────────────────────────────────────────────────

var (
	transformResampleFreq   string
	transformResampleMethod string
)

var transformResampleCmd = &cobra.Command{
	Use:   "resample",
	Short: "Downsample to weekly, monthly, quarterly or annual buckets",
	Long: `Aggregates points into calendar buckets labelled by their first day.
Weeks start on Monday. Missing values are skipped inside a bucket.`,
	Example: `  duckline series get transactions --format jsonl | duckline transform resample --freq weekly --method sum
  duckline series get price --format jsonl | duckline transform resample --freq monthly --method last`,
	RunE: func(cmd *cobra.Command, args []string) error {
		name, s, err := pipeline.ReadPoints(os.Stdin)
		if err != nil {
			return err
		}
		out, err := transform.Resample(s,
			transform.ResampleFreq(transformResampleFreq),
			transform.ResampleMethod(transformResampleMethod),
		)
		if err != nil {
			return err
		}
		return writeTransformOutput(cmd, name, out)
	},
}

// ─── filter ───────────────────────────────────────────────────────────────────

var (
	transformFilterAfter  string
	transformFilterBefore string
	transformFilterMin    float64
	transformFilterMax    float64
	transformFilterDrop   bool
)

var transformFilterCmd = &cobra.Command{
	Use:   "filter",
	Short: "Filter points by date range or value bounds",
	Example: `  duckline series get price --format jsonl | duckline transform filter --after 2024-01-01
  duckline series get transactions --format jsonl | duckline transform filter --min 100`,
	RunE: func(cmd *cobra.Command, args []string) error {
		name, s, err := pipeline.ReadPoints(os.Stdin)
		if err != nil {
			return err
		}
		opts := transform.FilterOptions{
			DropMissing: transformFilterDrop,
			MinValue:    math.NaN(),
			MaxValue:    math.NaN(),
		}
		if transformFilterAfter != "" {
			if opts.After, err = util.ParseDay(transformFilterAfter); err != nil {
				return fmt.Errorf("--after: %w", err)
			}
		}
		if transformFilterBefore != "" {
			if opts.Before, err = util.ParseDay(transformFilterBefore); err != nil {
				return fmt.Errorf("--before: %w", err)
			}
		}
		if cmd.Flags().Changed("min") {
			opts.MinValue = transformFilterMin
		}
		if cmd.Flags().Changed("max") {
			opts.MaxValue = transformFilterMax
		}
		return writeTransformOutput(cmd, name, transform.Filter(s, opts))
	},
}

// ─── smooth ───────────────────────────────────────────────────────────────────

var transformSmoothWindow int

var transformSmoothCmd = &cobra.Command{
	Use:   "smooth",
	Short: "Trailing mean over the last N points",
	Example: `  duckline series get transactions --format jsonl | duckline transform smooth --window 7
  duckline series get engagement --format jsonl | duckline transform smooth --window 28 | duckline chart plot`,
	RunE: func(cmd *cobra.Command, args []string) error {
		name, s, err := pipeline.ReadPoints(os.Stdin)
		if err != nil {
			return err
		}
		out, err := transform.Smooth(s, transformSmoothWindow)
		if err != nil {
			return err
		}
		return writeTransformOutput(cmd, name, out)
	},
}

// ─── Registration ─────────────────────────────────────────────────────────────

func init() {
	rootCmd.AddCommand(transformCmd)
	transformCmd.AddCommand(transformWindowCmd)
	transformCmd.AddCommand(transformResampleCmd)
	transformCmd.AddCommand(transformFilterCmd)
	transformCmd.AddCommand(transformSmoothCmd)

	// window flags
	transformWindowCmd.Flags().StringVar(&transformWindowName, "window", string(transform.WindowAll), "trailing window: 1w|1m|3m|6m|9m|12m|all")

	// resample flags
	transformResampleCmd.Flags().StringVar(&transformResampleFreq, "freq", string(transform.ResampleWeekly), "target frequency: weekly|monthly|quarterly|annual")
	transformResampleCmd.Flags().StringVar(&transformResampleMethod, "method", string(transform.ResampleMean), "aggregation method: mean|last|sum")

	// filter flags
	transformFilterCmd.Flags().StringVar(&transformFilterAfter, "after", "", "keep points with date > YYYY-MM-DD")
	transformFilterCmd.Flags().StringVar(&transformFilterBefore, "before", "", "keep points with date < YYYY-MM-DD")
	transformFilterCmd.Flags().Float64Var(&transformFilterMin, "min", 0, "keep points with value >= min")
	transformFilterCmd.Flags().Float64Var(&transformFilterMax, "max", 0, "keep points with value <= max")
	transformFilterCmd.Flags().BoolVar(&transformFilterDrop, "drop-missing", false, "drop missing (NaN) points")

	// smooth flags
	transformSmoothCmd.Flags().IntVar(&transformSmoothWindow, "window", 7, "number of trailing points to average")
}

// ─── Output helper ────────────────────────────────────────────────────────────

// writeTransformOutput writes s to stdout in JSONL (pipeline) or table (terminal).
func writeTransformOutput(cmd *cobra.Command, name string, s model.Series) error {
	format := resolveFormat("")
	if globalFlags.Format == "" {
		if pipeline.IsTTY() {
			format = render.FormatTable
		} else {
			format = render.FormatJSONL
		}
	}

	if format == render.FormatJSONL && globalFlags.Out == "" {
		return pipeline.WriteJSONL(cmd.OutOrStdout(), name, s)
	}

	result := newResult(model.KindSeries, "transform", &model.NamedSeries{Name: name, Points: s}, len(s), time.Now())
	return render.RenderTo(globalFlags.Out, result, format)
}
