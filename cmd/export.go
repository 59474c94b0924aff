package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/yellowduckie/duckline/internal/export"
	"github.com/yellowduckie/duckline/internal/render"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export series to columnar files",
}

// ─── export parquet ───────────────────────────────────────────────────────────

var (
	exportFlags  loadFlags
	exportMerged bool
	exportClip   bool
)

var exportParquetCmd = &cobra.Command{
	Use:   "parquet [dataset...]",
	Short: "Write series to a Parquet file in long format",
	Long: `Writes one row per (day, series, metric) with columns date, day, series,
metric and value. Secondary metrics are exported alongside the primary one.
Missing values are stored as nulls.

--merged exports the aligned composite instead, with zero fill on days a
series has no point, exactly as 'duckline merge' prints it.`,
	Example: `  duckline export parquet --out all.parquet
  duckline export parquet engagement transactions --window 3m --out activity.parquet
  duckline export parquet btc-dominance altcoin-index --merged --clip --out market.parquet`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if globalFlags.Out == "" {
			return fmt.Errorf("--out <file.parquet> is required")
		}
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		start := time.Now()
		l, err := loadSet(cmd.Context(), deps, args, exportFlags)
		if err != nil {
			return err
		}

		var rows []export.Row
		if exportMerged {
			c, err := mergeLoaded(l, exportClip)
			if err != nil {
				return err
			}
			rows = export.CompositeRows(c)
		} else {
			for _, n := range l.Names {
				primary := n
				if d, ok := deps.Catalog.Get(n); ok {
					primary = d.Primary()
				}
				rows = append(rows, export.SeriesRows(n, primary, l.Series[n])...)
			}
		}

		if err := export.WriteFile(globalFlags.Out, rows); err != nil {
			return err
		}
		if !deps.Config.Quiet {
			for _, w := range l.Warnings {
				render.Warn(cmd.ErrOrStderr(), "%s", w)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "✓ Wrote %d rows for %d series to %s (%dms)\n",
				len(rows), len(l.Names), globalFlags.Out, time.Since(start).Milliseconds())
		}
		return nil
	},
}

func init() {
	exportFlags.register(exportParquetCmd)
	exportParquetCmd.Flags().BoolVar(&exportMerged, "merged", false, "export the merged composite instead of each series")
	exportParquetCmd.Flags().BoolVar(&exportClip, "clip", false, "with --merged, clip to the range every series covers")

	exportCmd.AddCommand(exportParquetCmd)
	rootCmd.AddCommand(exportCmd)
}
