package cmd

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yellowduckie/duckline/internal/store"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and manage the local data store",
	Long: `Commands for inspecting and clearing the local bbolt database.

The local store holds last-good series saved with --save. It is written
explicitly, never as a side effect of a load, and persists until you clear it.`,
}

// ─── cache stats ──────────────────────────────────────────────────────────────

var cacheStatsCmd = &cobra.Command{
	Use:     "stats",
	Short:   "Show row counts and sizes for each bucket",
	Example: `  duckline cache stats`,
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

		stats, err := st.Stats()
		if err != nil {
			return fmt.Errorf("reading store stats: %w", err)
		}

		sort.Slice(stats, func(i, j int) bool { return stats[i].Name < stats[j].Name })
		loads, err := st.ListLoads()
		if err != nil {
			return fmt.Errorf("reading loads: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Database: %s", st.Path())
		if fi, err := os.Stat(st.Path()); err == nil {
			fmt.Fprintf(out, " (%s on disk)", humanBytes(fi.Size()))
		}
		fmt.Fprint(out, "\n\n")
		printSimpleTable(out, []string{"BUCKET", "ROWS", "SIZE"}, func(add func(...string)) {
			for _, s := range stats {
				add(s.Name, strconv.Itoa(s.Count), humanBytes(s.Bytes))
			}
		})
		if n := len(loads); n > 0 {
			last := loads[n-1]
			fmt.Fprintf(out, "\nLast saved load: %s at %s (%d datasets, %d points, %d rejected rows)\n",
				last.ID, last.SavedAt.Local().Format("2006-01-02 15:04"), len(last.Datasets), last.Points, last.Rejected)
		}
		return nil
	},
}

// ─── cache clear ──────────────────────────────────────────────────────────────

var (
	cacheClearAll    bool
	cacheClearBucket string
)

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete entries from the local store",
	Long: `Delete entries from one or all buckets.

Note: bbolt does not shrink the database file after clearing. Free pages are
reused internally on the next write.`,
	Example: `  duckline cache clear --all
  duckline cache clear --bucket loads`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cacheClearAll && cacheClearBucket == "" {
			return fmt.Errorf("specify --all or --bucket <n>\n\nBuckets: %s", strings.Join(store.AllBuckets, ", "))
		}

		deps, err := buildDeps()
		if err != nil {
			return err
		}
		st, err := deps.OpenStore()
		if err != nil {
			return err
		}
		defer st.Close()

		if cacheClearAll {
			if err := st.ClearAll(); err != nil {
				return fmt.Errorf("clearing all buckets: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "✓ Cleared all buckets")
			return nil
		}

		if err := st.ClearBucket(cacheClearBucket); err != nil {
			return fmt.Errorf("clearing bucket %q: %w", cacheClearBucket, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Cleared bucket %q\n", cacheClearBucket)
		return nil
	},
}

// ─── Registration ─────────────────────────────────────────────────────────────

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)

	cacheClearCmd.Flags().BoolVar(&cacheClearAll, "all", false, "clear all buckets")
	cacheClearCmd.Flags().StringVar(&cacheClearBucket, "bucket", "", "clear a specific bucket: series|loads")
}
