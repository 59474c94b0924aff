package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/yellowduckie/duckline/internal/app"
	"github.com/yellowduckie/duckline/internal/model"
	"github.com/yellowduckie/duckline/internal/render"
	"github.com/yellowduckie/duckline/internal/transform"
	"github.com/yellowduckie/duckline/internal/util"
)

// normaliseNames lower-cases dataset names and removes duplicates while
// preserving order.
func normaliseNames(names []string) []string {
	out := lo.Map(names, func(n string, _ int) string { return strings.ToLower(strings.TrimSpace(n)) })
	return lo.Uniq(lo.Filter(out, func(n string, _ int) bool { return n != "" }))
}

// resolveFormat returns the effective format string, falling back to "table".
func resolveFormat(cfgFormat string) string {
	if globalFlags.Format != "" {
		return globalFlags.Format
	}
	if cfgFormat != "" {
		return cfgFormat
	}
	return render.FormatTable
}

// outputWriter returns the --out file when set, otherwise def. The returned
// close function is always safe to call.
func outputWriter(def io.Writer) (io.Writer, func() error, error) {
	if globalFlags.Out == "" {
		return def, func() error { return nil }, nil
	}
	f, err := os.Create(globalFlags.Out)
	if err != nil {
		return nil, nil, fmt.Errorf("creating output file: %w", err)
	}
	return f, f.Close, nil
}

// printSimpleTable renders a simple table with headers using tablewriter.
// The add callback is called with row values as variadic strings.
func printSimpleTable(w io.Writer, headers []string, fill func(add func(...string))) {
	tw := tablewriter.NewWriter(w)
	tw.SetHeader(headers)
	tw.SetBorder(true)
	tw.SetRowLine(false)
	tw.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAutoWrapText(false)

	fill(func(cols ...string) {
		tw.Append(cols)
	})
	tw.Render()
}

// humanBytes formats a byte count as B, KB or MB.
func humanBytes(b int64) string {
	switch {
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

// newResult wraps data in a Result envelope.
func newResult(kind, command string, data interface{}, items int, start time.Time) *model.Result {
	return &model.Result{
		Kind:        kind,
		GeneratedAt: time.Now(),
		Command:     command,
		Data:        data,
		Stats: model.ResultStats{
			DurationMs: time.Since(start).Milliseconds(),
			Items:      items,
		},
	}
}

// emit renders result in the resolved format and prints the footer on
// stderr so piped output stays clean.
func emit(cmd *cobra.Command, deps *app.Deps, result *model.Result) error {
	if err := render.RenderTo(globalFlags.Out, result, resolveFormat(deps.Config.Format)); err != nil {
		return err
	}
	if !deps.Config.Quiet {
		render.PrintFooter(cmd.ErrOrStderr(), result, deps.Config.Verbose)
	}
	return nil
}

// parseDateArg accepts any date form the loaders accept.
func parseDateArg(s string) (time.Time, error) {
	t, ok := util.ParseInstant(s)
	if !ok {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return util.TruncateDay(t), nil
}

// ─── Loading ──────────────────────────────────────────────────────────────────

// loadFlags are the flags shared by every command that loads datasets.
type loadFlags struct {
	window    string
	fromStore bool
	save      bool
}

func (f *loadFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.window, "window", "",
		"trailing window: 1w|1m|3m|6m|9m|12m|all (default from config)")
	cmd.Flags().BoolVar(&f.fromStore, "store", false,
		"read the last saved copy from the local store instead of loading")
	cmd.Flags().BoolVar(&f.save, "save", false,
		"save the loaded series to the local store")
}

// loaded is a windowed set of series plus how it was obtained.
type loaded struct {
	Names     []string
	Series    map[string]model.Series
	Window    transform.Window
	FromStore bool
	Rejected  int
	Warnings  []string
}

// loadSet loads names (all datasets when empty), then applies the window.
// When a live load fails and the store holds every requested dataset, the
// stored copies are served with a warning.
func loadSet(ctx context.Context, deps *app.Deps, names []string, f loadFlags) (*loaded, error) {
	w, err := deps.Window(f.window)
	if err != nil {
		return nil, err
	}
	names = normaliseNames(names)
	if len(names) == 0 {
		names = deps.Catalog.Names()
	}
	if f.fromStore && f.save {
		return nil, fmt.Errorf("--store and --save cannot be combined")
	}

	out := &loaded{Names: names, Window: w}
	var raw map[string]model.Series
	if f.fromStore {
		set, savedAt, err := deps.StoredSeries(names...)
		if err != nil {
			return nil, err
		}
		raw, out.FromStore = set, true
		out.Warnings = append(out.Warnings, fmt.Sprintf("serving stored copy saved %s", savedAt.Format(time.RFC3339)))
	} else {
		snap, err := deps.Load(ctx, names...)
		if err != nil {
			set, savedAt, serr := deps.StoredSeries(names...)
			if serr != nil {
				return nil, err
			}
			raw, out.FromStore = set, true
			out.Warnings = append(out.Warnings,
				fmt.Sprintf("load failed (%v); serving stored copy saved %s", err, savedAt.Format(time.RFC3339)))
		} else {
			raw = snap.Series
			out.Rejected = snap.Rejected()
			if f.save {
				if err := deps.SaveSnapshot(snap); err != nil {
					return nil, err
				}
			}
		}
	}

	out.Series = make(map[string]model.Series, len(raw))
	for _, n := range names {
		out.Series[n] = deps.Windowed(raw[n], w)
	}
	return out, nil
}

// stats fills the load accounting of result from l.
func (l *loaded) stats(result *model.Result) {
	result.Stats.CacheHit = l.FromStore
	result.Stats.Rejected = l.Rejected
	result.Warnings = append(result.Warnings, l.Warnings...)
}
