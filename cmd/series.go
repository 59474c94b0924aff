package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/yellowduckie/duckline/internal/analyze"
	"github.com/yellowduckie/duckline/internal/model"
)

var seriesCmd = &cobra.Command{
	Use:   "series",
	Short: "Load and inspect built series",
	Long: `A series is the clean form of one dataset: one point per UTC day in
ascending order, with the primary metric as the value and any secondary
metrics riding along.

  engagement     daily impressions (likes, replies, reposts ...)
  transactions   on-chain transactions counted per day
  price          token price
  btc-dominance  bitcoin market dominance
  altcoin-index  altcoin season index`,
}

// ─── series get ───────────────────────────────────────────────────────────────

var seriesGetFlags loadFlags

var seriesGetCmd = &cobra.Command{
	Use:   "get <dataset>",
	Short: "Load one dataset and print its series",
	Example: `  duckline series get price
  duckline series get engagement --window 3m --format csv
  duckline series get transactions --save
  duckline series get transactions --store --format jsonl | duckline transform smooth --window 7`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		start := time.Now()

		l, err := loadSet(cmd.Context(), deps, args, seriesGetFlags)
		if err != nil {
			return err
		}
		name := l.Names[0]
		s := l.Series[name]

		result := newResult(model.KindSeries, fmt.Sprintf("series get %s", name),
			&model.NamedSeries{Name: name, Points: s}, len(s), start)
		l.stats(result)
		return emit(cmd, deps, result)
	},
}

// ─── series summary ───────────────────────────────────────────────────────────

var seriesSummaryFlags loadFlags

var seriesSummaryCmd = &cobra.Command{
	Use:   "summary [dataset...]",
	Short: "Summary statistics for one or more series (all when none given)",
	Example: `  duckline series summary
  duckline series summary price btc-dominance --window 6m
  duckline series summary --store --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		start := time.Now()

		l, err := loadSet(cmd.Context(), deps, args, seriesSummaryFlags)
		if err != nil {
			return err
		}
		summaries := make([]analyze.Summary, 0, len(l.Names))
		for _, n := range l.Names {
			summaries = append(summaries, analyze.Summarize(n, l.Series[n]))
		}

		result := newResult(model.KindSummary, "series summary "+strings.Join(l.Names, " "),
			summaries, len(summaries), start)
		l.stats(result)
		return emit(cmd, deps, result)
	},
}

func init() {
	seriesGetFlags.register(seriesGetCmd)
	seriesSummaryFlags.register(seriesSummaryCmd)

	seriesCmd.AddCommand(seriesGetCmd, seriesSummaryCmd)
	rootCmd.AddCommand(seriesCmd)
}
