package cmd

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/yellowduckie/duckline/internal/catalog"
	"github.com/yellowduckie/duckline/internal/model"
	"github.com/yellowduckie/duckline/internal/render"
)

// Version and BuildTime are set by release builds:
//
//	go build -ldflags "-X github.com/yellowduckie/duckline/cmd.Version=v0.3.0 \
//	    -X github.com/yellowduckie/duckline/cmd.BuildTime=2026-02-16T12:00:00Z"
var (
	Version   = "v0.2.0"
	BuildTime = ""
)

// storageModules are the dependencies whose versions decide whether saved
// stores and exported files stay readable, so version reports them.
var storageModules = []string{"go.etcd.io/bbolt", "github.com/parquet-go/parquet-go"}

var versionVerbose bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the duckline version and build information",
	Long: `Prints the duckline version, the Go toolchain, the platform and the
number of built-in datasets. --deps adds the store and Parquet library
versions, which matter when sharing a database or export between builds.`,
	Example: `  duckline version
  duckline version --deps
  duckline version --format json | jq -r '.data.rows[0][1]'`,
	RunE: func(cmd *cobra.Command, args []string) error {
		start := time.Now()
		rows := [][]string{
			{"duckline", Version},
			{"go", runtime.Version()},
			{"os", runtime.GOOS + "/" + runtime.GOARCH},
			{"datasets", fmt.Sprintf("%d built in", len(catalog.Default().Datasets))},
		}
		if BuildTime != "" {
			rows = append(rows, []string{"built", BuildTime})
		}
		if versionVerbose {
			rows = append(rows, moduleVersions()...)
		}

		format := globalFlags.Format
		if format == "" || format == "text" {
			for _, r := range rows {
				fmt.Fprintf(cmd.OutOrStdout(), "%-9s%s\n", r[0], r[1])
			}
			return nil
		}
		if !render.ValidFormat(format) {
			return fmt.Errorf("unknown format %q", format)
		}
		result := newResult(model.KindTable, "version",
			&model.Table{Headers: []string{"KEY", "VALUE"}, Rows: rows}, len(rows), start)
		return render.Render(cmd.OutOrStdout(), result, format)
	},
}

func moduleVersions() [][]string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return nil
	}
	var rows [][]string
	for _, d := range info.Deps {
		for _, m := range storageModules {
			if d.Path == m {
				rows = append(rows, []string{d.Path[strings.LastIndex(d.Path, "/")+1:], d.Version})
			}
		}
	}
	return rows
}

func init() {
	versionCmd.Flags().BoolVar(&versionVerbose, "deps", false, "include storage library versions")
	rootCmd.AddCommand(versionCmd)
}
