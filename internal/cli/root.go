package cli

import (
	"context"
	"fmt"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	version string // semantic version (e.g., "v1.2.3")
	commit  string // git commit SHA
	date    string // build timestamp
)

// SetVersion sets the version information displayed by --version. Typically
// called by the main package with values injected via ldflags at build time.
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// Execute runs the mosaic CLI and returns an error if any command fails.
//
// The function sets up the root command with the plan and compose
// subcommands, configures logging based on the --verbose flag, and executes
// the command tree. The logger is attached to the context and accessible to
// all commands via loggerFromContext.
func Execute(ctx context.Context) error {
	var verbose bool

	root := &cobra.Command{
		Use:          "mosaic",
		Short:        "Mosaic stitches microscope tiles into a chunked canvas",
		Long:         `Mosaic resolves overlapping microscope tile placements onto a shared canvas and materializes the composited image chunk by chunk, loading each tile at most once.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := charmlog.InfoLevel
			if verbose {
				level = charmlog.DebugLevel
			}
			cmd.SetContext(withLogger(cmd.Context(), newLogger(os.Stderr, level)))
		},
	}

	root.SetVersionTemplate(fmt.Sprintf("mosaic %s\ncommit: %s\nbuilt: %s\n", version, commit, date))
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(newPlanCmd())
	root.AddCommand(newComposeCmd())

	return root.ExecuteContext(ctx)
}
