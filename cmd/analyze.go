package cmd

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/yellowduckie/duckline/internal/analyze"
	"github.com/yellowduckie/duckline/internal/model"
	"github.com/yellowduckie/duckline/internal/pipeline"
	"github.com/yellowduckie/duckline/internal/render"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a series (reads JSONL from stdin)",
	Long: `Analyze operators read JSONL points from stdin and print results.
For loaded datasets, 'duckline series summary' does the same without a pipe.

Examples:
  duckline series get price --store --format jsonl | duckline analyze summary
  duckline series get transactions --format jsonl | duckline transform smooth --window 7 | duckline analyze summary`,
}

// ─── analyze summary ─────────────────────────────────────────────────────────

var analyzeSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Descriptive statistics: count, range, mean, median, change and trend",
	Example: `  duckline series get price --format jsonl | duckline analyze summary
  duckline series get engagement --format jsonl | duckline transform window --window 1m | duckline analyze summary --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		start := time.Now()
		name, s, err := pipeline.ReadPoints(os.Stdin)
		if err != nil {
			return err
		}
		if name == "" {
			name = "series"
		}

		summary := analyze.Summarize(name, s)
		result := newResult(model.KindSummary, "analyze summary", []analyze.Summary{summary}, 1, start)

		w, closeFn, err := outputWriter(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer closeFn()
		return render.Render(w, result, resolveFormat(""))
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.AddCommand(analyzeSummaryCmd)
}
