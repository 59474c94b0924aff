package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/yellowduckie/duckline/internal/config"
	"github.com/yellowduckie/duckline/internal/model"
	"github.com/yellowduckie/duckline/internal/render"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage duckline configuration",
	Long: `Read and write duckline configuration stored in .duckline.yaml.

Values resolve in this order, last wins: built-in defaults, the config file
(./.duckline.yaml, then ~/.duckline.yaml, or --config), DUCKLINE_*
environment variables (a .env file in the working directory is read first),
then command-line flags.`,
}

// configPath is --config when set, otherwise .duckline.yaml in the
// working directory.
func configPath() string {
	if globalFlags.ConfigFile != "" {
		return globalFlags.ConfigFile
	}
	return config.DefaultConfigName + ".yaml"
}

// ─── config init ──────────────────────────────────────────────────────────────

var configInitForce bool

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a template .duckline.yaml in the current directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath()
		if _, err := os.Stat(path); err == nil && !configInitForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		if err := config.WriteFile(path, config.Template()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Created %s\n", path)
		fmt.Fprintln(cmd.OutOrStdout(), "  Set data_dir to the folder holding the dataset files,")
		fmt.Fprintln(cmd.OutOrStdout(), "  or base_url to load them over HTTP.")
		return nil
	},
}

// ─── config show ──────────────────────────────────────────────────────────────

var configShowCmd = &cobra.Command{
	Use:     "show",
	Aliases: []string{"get"},
	Short:   "Print the current resolved configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		src := "(not found)"
		if cfg.ConfigPath != "" {
			src = cfg.ConfigPath
		}

		table := &model.Table{Headers: []string{"KEY", "VALUE"}}
		for _, kv := range cfg.Values() {
			val := kv[1]
			if val == "" {
				val = "(not set)"
			}
			table.Rows = append(table.Rows, []string{kv[0], val})
		}
		table.Rows = append(table.Rows, []string{"config_file", src})

		result := newResult(model.KindTable, "config show", table, len(table.Rows), time.Now())
		return render.RenderTo(globalFlags.Out, result, resolveFormat(cfg.Format))
	},
}

// ─── config set ───────────────────────────────────────────────────────────────

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value in .duckline.yaml",
	Example: `  duckline config set data_dir ./site/data
  duckline config set window 3m`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := strings.ToLower(args[0])
		path := configPath()

		f, err := config.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return err
		}
		if err := f.Set(key, args[1]); err != nil {
			return err
		}
		if err := f.Validate(); err != nil {
			return err
		}
		if err := config.WriteFile(path, f); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Set %s in %s\n", key, path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)

	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite an existing file")
}
