package cmd

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/yellowduckie/duckline/internal/app"
	"github.com/yellowduckie/duckline/internal/logger"
	"github.com/yellowduckie/duckline/internal/model"
	"github.com/yellowduckie/duckline/internal/pipeline"
	"github.com/yellowduckie/duckline/internal/render"
	"github.com/yellowduckie/duckline/internal/watch"
)

var (
	watchSave     bool
	watchDebounce time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch [dataset...]",
	Short: "Reload datasets whenever their local files change",
	Long: `Watch loads the datasets once, then reloads them each time one of their
local files is saved. Bursts of saves are coalesced. If saves overlap a
running load, the most recently started load wins and the older one is
dropped.

Datasets served over HTTP (base_url) cannot be watched.`,
	Example: `  duckline watch
  duckline watch price transactions --save
  duckline watch --debounce 1s --verbose`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		names := normaliseNames(args)
		paths, err := localPaths(deps, names)
		if err != nil {
			return err
		}
		w, err := watch.New(paths, watch.Options{Debounce: watchDebounce, Logger: deps.Log})
		if err != nil {
			return err
		}
		defer w.Close()

		var mu sync.Mutex
		out := cmd.OutOrStdout()
		reload := func(ctx context.Context, changed []string) {
			snap, err := deps.Load(ctx, names...)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case errors.Is(err, pipeline.ErrStale), errors.Is(err, context.Canceled):
				logger.Component(deps.Log, "watch").WithError(err).Debug("load dropped")
				return
			case err != nil:
				render.Warn(cmd.ErrOrStderr(), "%s load failed, keeping previous data: %v",
					time.Now().Format("15:04:05"), err)
				return
			}
			points := lo.SumBy(lo.Values(snap.Series), func(s model.Series) int { return len(s) })
			fmt.Fprintf(out, "%s  load %s  %d datasets  %d points  %d rejected\n",
				snap.LoadedAt.Local().Format("15:04:05"), snap.ID, len(snap.Series), points, snap.Rejected())
			if watchSave {
				if err := deps.SaveSnapshot(snap); err != nil {
					render.Warn(cmd.ErrOrStderr(), "saving load %s: %v", snap.ID, err)
				}
			}
		}

		reload(cmd.Context(), nil)
		if !deps.Config.Quiet {
			fmt.Fprintf(cmd.ErrOrStderr(), "watching %d files (ctrl-c to stop)\n", len(w.Files()))
		}
		return w.Run(cmd.Context(), reload)
	},
}

// localPaths returns the local files behind the named datasets (all when
// empty). Datasets resolving to URLs are skipped; none local is an error.
func localPaths(deps *app.Deps, names []string) ([]string, error) {
	ds, err := deps.Datasets(names...)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, d := range ds {
		if p, ok := deps.Fetcher.LocalPath(d.Location); ok {
			paths = append(paths, p)
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no local dataset files to watch (datasets load over HTTP)")
	}
	return paths, nil
}

func init() {
	watchCmd.Flags().BoolVar(&watchSave, "save", false, "save every successful load to the local store")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watch.DefaultDebounce, "quiet period before reloading")
	rootCmd.AddCommand(watchCmd)
}
