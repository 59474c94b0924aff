package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/yellowduckie/duckline/internal/lookup"
	"github.com/yellowduckie/duckline/internal/model"
	"github.com/yellowduckie/duckline/internal/util"
)

var locateFlags loadFlags

var locateCmd = &cobra.Command{
	Use:   "locate <date> [dataset...]",
	Short: "Find the point nearest a date in each series",
	Long: `Locate answers the chart tooltip question from the command line: for each
series, which point is closest to the given instant? Ties go to the earlier
point, and dates outside a series clamp to its first or last point.

The date may be YYYY-MM-DD, an RFC 3339 timestamp, epoch seconds, or the
long form "Thursday, March 14, 2024".`,
	Example: `  duckline locate 2024-03-14
  duckline locate 2024-03-14T18:00:00Z price btc-dominance
  duckline locate 1710374400 engagement --format json`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		q, ok := util.ParseInstant(args[0])
		if !ok {
			return fmt.Errorf("invalid date %q", args[0])
		}
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		start := time.Now()

		l, err := loadSet(cmd.Context(), deps, args[1:], locateFlags)
		if err != nil {
			return err
		}

		var (
			found    []model.Nearest
			warnings []string
		)
		for _, n := range l.Names {
			p, err := lookup.Locate(l.Series[n], q)
			if errors.Is(err, lookup.ErrEmptySeries) {
				warnings = append(warnings, fmt.Sprintf("%s: no points in window %s", n, l.Window))
				continue
			}
			if err != nil {
				return err
			}
			found = append(found, model.Nearest{Series: n, Query: q, Point: p})
		}

		result := newResult(model.KindNearest, "locate "+args[0], found, len(found), start)
		l.stats(result)
		result.Warnings = append(result.Warnings, warnings...)
		return emit(cmd, deps, result)
	},
}

func init() {
	locateFlags.register(locateCmd)
	rootCmd.AddCommand(locateCmd)
}
