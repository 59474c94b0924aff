package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/yellowduckie/duckline/internal/model"
	"github.com/yellowduckie/duckline/internal/util"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Inspect the last-good series saved locally",
	Long: `Commands for inspecting what has been saved in the local database.

Use --save on series, merge or watch commands to save a load.
Use 'duckline cache stats' for bucket-level storage stats.`,
}

// ─── store list ───────────────────────────────────────────────────────────────

var storeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List series saved in the local database",
	Example: `  duckline store list
  duckline store list --format csv`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		st, err := deps.OpenStore()
		if err != nil {
			return err
		}
		defer st.Close()
		start := time.Now()

		entries, err := st.ListSeries()
		if err != nil {
			return fmt.Errorf("reading store: %w", err)
		}
		if len(entries) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No series in local database.")
			fmt.Fprintln(cmd.OutOrStdout(), "  Use: duckline series get <dataset> --save")
			return nil
		}

		table := &model.Table{Headers: []string{"DATASET", "POINTS", "FIRST", "LAST", "SAVED AT", "LOAD", "SIZE"}}
		for _, e := range entries {
			first, last := "", ""
			if e.Points > 0 {
				first, last = util.DayKey(e.First), util.DayKey(e.Last)
			}
			table.Rows = append(table.Rows, []string{
				e.Name, strconv.Itoa(e.Points), first, last,
				e.SavedAt.Local().Format("2006-01-02 15:04"), e.LoadID, humanBytes(int64(e.Bytes)),
			})
		}
		return emit(cmd, deps, newResult(model.KindTable, "store list", table, len(entries), start))
	},
}

// ─── store get ────────────────────────────────────────────────────────────────

var storeGetWindow string

var storeGetCmd = &cobra.Command{
	Use:   "get <dataset>",
	Short: "Read the saved copy of a series",
	Example: `  duckline store get price
  duckline store get engagement --window 1m --format csv`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		st, err := deps.OpenStore()
		if err != nil {
			return err
		}
		defer st.Close()
		start := time.Now()

		name := normaliseNames(args)[0]
		w, err := deps.Window(storeGetWindow)
		if err != nil {
			return err
		}
		saved, ok, err := st.GetSeries(name)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no saved series for %s\n\n  Use: duckline series get %s --save", name, name)
		}

		s := deps.Windowed(saved.Points, w)
		result := newResult(model.KindSeries, "store get "+name, &model.NamedSeries{Name: name, Points: s}, len(s), start)
		result.Stats.CacheHit = true
		return emit(cmd, deps, result)
	},
}

// ─── store loads ──────────────────────────────────────────────────────────────

var storeLoadsCmd = &cobra.Command{
	Use:   "loads",
	Short: "List saved loads, oldest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		st, err := deps.OpenStore()
		if err != nil {
			return err
		}
		defer st.Close()
		start := time.Now()

		recs, err := st.ListLoads()
		if err != nil {
			return fmt.Errorf("reading store: %w", err)
		}
		table := &model.Table{Headers: []string{"LOAD", "LOADED AT", "SAVED AT", "DATASETS", "POINTS", "REJECTED"}}
		for _, r := range recs {
			table.Rows = append(table.Rows, []string{
				r.ID,
				r.LoadedAt.Local().Format(time.RFC3339),
				r.SavedAt.Local().Format(time.RFC3339),
				strings.Join(r.Datasets, ","),
				strconv.Itoa(r.Points),
				strconv.Itoa(r.Rejected),
			})
		}
		return emit(cmd, deps, newResult(model.KindTable, "store loads", table, len(recs), start))
	},
}

// ─── store delete ─────────────────────────────────────────────────────────────

var storeDeleteCmd = &cobra.Command{
	Use:   "delete <dataset...>",
	Short: "Remove saved series",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		st, err := deps.OpenStore()
		if err != nil {
			return err
		}
		defer st.Close()

		for _, name := range normaliseNames(args) {
			if err := st.DeleteSeries(name); err != nil {
				return fmt.Errorf("deleting %s: %w", name, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted %s\n", name)
		}
		return nil
	},
}

// ─── Registration ─────────────────────────────────────────────────────────────

func init() {
	rootCmd.AddCommand(storeCmd)
	storeCmd.AddCommand(storeListCmd)
	storeCmd.AddCommand(storeGetCmd)
	storeCmd.AddCommand(storeLoadsCmd)
	storeCmd.AddCommand(storeDeleteCmd)

	storeGetCmd.Flags().StringVar(&storeGetWindow, "window", "", "trailing window: 1w|1m|3m|6m|9m|12m|all (default from config)")
}
