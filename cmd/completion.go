package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/yellowduckie/duckline/internal/catalog"
	"github.com/yellowduckie/duckline/internal/transform"
)

// completionCmd wraps Cobra's built-in shell completion generator.
var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion scripts",
	Long: `Generate shell completion scripts for duckline. Dataset names and
--window values complete too.

  source <(duckline completion bash)
  source <(duckline completion zsh)
  duckline completion fish | source`,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	DisableFlagsInUseLine: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		root := cmd.Root()
		switch args[0] {
		case "bash":
			return root.GenBashCompletionV2(cmd.OutOrStdout(), true)
		case "zsh":
			return root.GenZshCompletion(cmd.OutOrStdout())
		case "fish":
			return root.GenFishCompletion(cmd.OutOrStdout(), true)
		default:
			return root.GenPowerShellCompletionWithDesc(cmd.OutOrStdout())
		}
	},
}

// completeDatasets offers catalog names not already on the command line.
// skip is the number of leading positional args that are not datasets.
func completeDatasets(skip int) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if len(args) < skip {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		cat := catalog.Default()
		if cfg, err := loadConfig(); err == nil {
			if c, err := catalog.Load(cfg.Catalog); err == nil {
				cat = c
			}
		}
		used := make(map[string]bool, len(args))
		for _, a := range args {
			used[a] = true
		}
		var out []string
		for _, d := range cat.Datasets {
			if !used[d.Name] && strings.HasPrefix(d.Name, toComplete) {
				out = append(out, d.Name+"\t"+d.Title)
			}
		}
		return out, cobra.ShellCompDirectiveNoFileComp
	}
}

func completeWindows(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	out := make([]string, len(transform.Windows))
	for i, w := range transform.Windows {
		out[i] = string(w)
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}

func init() {
	rootCmd.AddCommand(completionCmd)
}

// registerCompletions attaches dataset and window completion. It runs from
// Execute, after every command's init has registered its flags.
func registerCompletions() {
	for _, c := range []*cobra.Command{
		seriesGetCmd, seriesSummaryCmd, mergeCmd, chartPlotCmd, chartBarCmd,
		chartHTMLCmd, exploreCmd, watchCmd, exportParquetCmd, fetchCmd, storeGetCmd,
	} {
		c.ValidArgsFunction = completeDatasets(0)
		if c.Flags().Lookup("window") != nil {
			_ = c.RegisterFlagCompletionFunc("window", completeWindows)
		}
	}
	locateCmd.ValidArgsFunction = completeDatasets(1)
	_ = locateCmd.RegisterFlagCompletionFunc("window", completeWindows)
}
