package cmd

import (
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/yellowduckie/duckline/internal/catalog"
	"github.com/yellowduckie/duckline/internal/model"
)

var datasetsCmd = &cobra.Command{
	Use:   "datasets",
	Short: "Inspect the dataset catalog",
	Long: `The catalog names every loadable dataset, where its file lives and how its
rows become a series: the date column, the metrics and their missing-value
policy, and what happens when two rows share a day.

The built-in catalog can be replaced with a YAML file via the catalog key.`,
}

// ─── datasets list ────────────────────────────────────────────────────────────

var datasetsListLoad bool

var datasetsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog datasets",
	Example: `  duckline datasets list
  duckline datasets list --load --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		start := time.Now()

		var counts map[string]int
		var warnings []string
		if datasetsListLoad {
			snap, err := deps.Load(cmd.Context())
			if err != nil {
				warnings = append(warnings, err.Error())
			} else {
				counts = lo.MapValues(snap.Series, func(s model.Series, _ string) int { return len(s) })
			}
		}

		infos := lo.Map(deps.Catalog.Datasets, func(d catalog.Dataset, _ int) model.DatasetInfo {
			return model.DatasetInfo{
				Name:       d.Name,
				Title:      d.Title,
				Format:     string(d.Format),
				Location:   deps.Fetcher.Resolve(d.Location),
				DateColumn: d.DateColumn,
				Duplicates: string(d.SeriesConfig().Duplicates),
				Metrics:    lo.Map(d.Metrics, func(m catalog.Metric, _ int) string { return m.Name }),
				Points:     counts[d.Name],
			}
		})

		result := newResult(model.KindDatasets, "datasets list", infos, len(infos), start)
		result.Warnings = warnings
		return emit(cmd, deps, result)
	},
}

func init() {
	datasetsListCmd.Flags().BoolVar(&datasetsListLoad, "load", false,
		"load every dataset and report its point count")

	datasetsCmd.AddCommand(datasetsListCmd)
	rootCmd.AddCommand(datasetsCmd)
}
