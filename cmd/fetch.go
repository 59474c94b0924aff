package cmd

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/yellowduckie/duckline/internal/model"
	"github.com/yellowduckie/duckline/internal/series"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [dataset...]",
	Short: "Load datasets, save them locally and report build stats",
	Long: `Fetch loads the named datasets (all catalog datasets when none are given),
saves the result to the local database as the new last-good copy and prints
per-dataset build stats: rows read, points kept, malformed rows rejected,
same-day duplicates resolved and the reject reasons.`,
	Example: `  duckline fetch
  duckline fetch price engagement
  duckline fetch --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		start := time.Now()
		names := normaliseNames(args)

		snap, err := deps.Load(cmd.Context(), names...)
		if err != nil {
			return err
		}
		if err := deps.SaveSnapshot(snap); err != nil {
			return fmt.Errorf("saving load %s: %w", snap.ID, err)
		}

		table := &model.Table{Headers: []string{"DATASET", "ROWS", "KEPT", "REJECTED", "DUPLICATES", "REASONS"}}
		for _, n := range snap.Names() {
			st := snap.Stats[n]
			table.Rows = append(table.Rows, []string{
				n,
				strconv.Itoa(st.Rows),
				strconv.Itoa(st.Kept),
				strconv.Itoa(st.Rejected),
				strconv.Itoa(st.Duplicates),
				formatReasons(st),
			})
		}

		result := newResult(model.KindTable, "fetch", table, len(table.Rows), start)
		result.Stats.Rejected = snap.Rejected()
		return emit(cmd, deps, result)
	},
}

// formatReasons renders reject reasons as "reason=n" pairs, most frequent first.
func formatReasons(st series.BuildStats) string {
	if len(st.Reasons) == 0 {
		return ""
	}
	keys := make([]string, 0, len(st.Reasons))
	for k := range st.Reasons {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if st.Reasons[keys[i]] != st.Reasons[keys[j]] {
			return st.Reasons[keys[i]] > st.Reasons[keys[j]]
		}
		return keys[i] < keys[j]
	})
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, st.Reasons[k])
	}
	return strings.Join(parts, " ")
}

func init() {
	rootCmd.AddCommand(fetchCmd)
}
