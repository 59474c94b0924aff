package cmd

import (
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/yellowduckie/duckline/internal/model"
	"github.com/yellowduckie/duckline/internal/transform"
)

var (
	mergeFlags loadFlags
	mergeClip  bool
)

var mergeCmd = &cobra.Command{
	Use:   "merge <dataset> <dataset> [dataset...]",
	Short: "Align several series on the union of their days",
	Long: `Merge aligns series by UTC day. Every day present in any input appears
once in the output, and a series with no point on that day contributes 0.

--clip first restricts every input to the date range they all cover, which
avoids long runs of zero fill where one dataset starts later than another.`,
	Example: `  duckline merge btc-dominance altcoin-index
  duckline merge engagement transactions --window 1m --format csv
  duckline merge price transactions --clip --format jsonl`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		start := time.Now()

		l, err := loadSet(cmd.Context(), deps, args, mergeFlags)
		if err != nil {
			return err
		}
		c, err := mergeLoaded(l, mergeClip)
		if err != nil {
			return err
		}

		result := newResult(model.KindComposite, "merge "+strings.Join(l.Names, " "),
			&c, len(c.Records), start)
		l.stats(result)
		return emit(cmd, deps, result)
	},
}

// mergeLoaded merges l's series in name order, optionally clipped to their
// common date range.
func mergeLoaded(l *loaded, clip bool) (model.Composite, error) {
	series := make([]model.Series, len(l.Names))
	for i, n := range l.Names {
		series[i] = l.Series[n]
	}
	if clip {
		series = transform.ClipToOverlap(series...)
	}
	named := make([]model.NamedSeries, len(l.Names))
	for i, n := range l.Names {
		named[i] = model.NamedSeries{Name: n, Points: series[i]}
	}
	return transform.MergeNamed(named...)
}

func init() {
	mergeFlags.register(mergeCmd)
	mergeCmd.Flags().BoolVar(&mergeClip, "clip", false,
		"clip every series to the range they all cover before merging")
	rootCmd.AddCommand(mergeCmd)
}
