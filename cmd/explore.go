package cmd

import (
	"context"
	"errors"
	"io"

	"github.com/spf13/cobra"

	"github.com/yellowduckie/duckline/internal/model"
	"github.com/yellowduckie/duckline/internal/pipeline"
	"github.com/yellowduckie/duckline/internal/transform"
	"github.com/yellowduckie/duckline/internal/tui"
	"github.com/yellowduckie/duckline/internal/watch"
)

var (
	exploreWindow string
	exploreStore  bool
	exploreWatch  bool
)

var exploreCmd = &cobra.Command{
	Use:   "explore [dataset...]",
	Short: "Interactive terminal chart with a hover tooltip",
	Long: `Explore opens a full-screen chart of one series. Move the mouse over the
chart, or use the arrow keys, and the tooltip shows the nearest point of
every loaded series at that date.

Keys:
  ←/→  h/l       move the cursor (shift for 10 columns)
  tab  ↑/↓       next / previous series
  w W  1-7       cycle or pick the window (1w … all)
  r              reload the datasets
  q  esc         quit

--watch reloads automatically when a local dataset file changes.`,
	Example: `  duckline explore
  duckline explore btc-dominance altcoin-index --window 3m
  duckline explore --watch`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if deps.Config.LogFile == "" {
			deps.Log.SetOutput(io.Discard)
		}
		w, err := deps.Window(exploreWindow)
		if err != nil {
			return err
		}

		l, err := loadSet(cmd.Context(), deps, args, loadFlags{window: string(transform.WindowAll), fromStore: exploreStore})
		if err != nil {
			return err
		}
		names := l.Names
		focus := ""
		if len(args) > 0 {
			focus = names[0]
		}

		reload := func(ctx context.Context) (map[string]model.Series, error) {
			snap, err := deps.Load(ctx, names...)
			if err != nil {
				return nil, err
			}
			return snap.Series, nil
		}
		if exploreStore {
			reload = nil
		}

		p := tui.NewProgram(tui.New(tui.Options{
			Series: l.Series,
			Focus:  focus,
			Window: w,
			Now:    deps.Config.Clock(),
			Reload: reload,
		}))

		if exploreWatch && reload != nil {
			paths, err := localPaths(deps, names)
			if err != nil {
				return err
			}
			watcher, err := watch.New(paths, watch.Options{Logger: deps.Log})
			if err != nil {
				return err
			}
			defer watcher.Close()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			go func() {
				_ = watcher.Run(ctx, func(ctx context.Context, _ []string) {
					set, err := reload(ctx)
					if errors.Is(err, pipeline.ErrStale) || errors.Is(err, context.Canceled) {
						return
					}
					p.Send(tui.LoadedMsg{Series: set, Err: err})
				})
			}()
		}

		_, err = p.Run()
		return err
	},
}

func init() {
	exploreCmd.Flags().StringVar(&exploreWindow, "window", "", "initial window: 1w|1m|3m|6m|9m|12m|all (default from config)")
	exploreCmd.Flags().BoolVar(&exploreStore, "store", false, "explore the saved copies instead of loading")
	exploreCmd.Flags().BoolVar(&exploreWatch, "watch", false, "reload when local dataset files change")
	rootCmd.AddCommand(exploreCmd)
}
