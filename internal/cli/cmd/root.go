package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/ytget/fetchmux/internal/config"
)

const (
	ExitOK            = 0
	ExitCLIError      = 1
	ExitDownloadError = 3
)

// ExitError wraps an error with a process exit code.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "fetchmux",
		Short:         "Media download orchestrator",
		Long:          "fetchmux probes media URLs for their available formats, picks the best match for a requested quality, and runs the downloads through a bounded transcode queue.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Persistent flags available to all subcommands
	bindGlobalFlags(root.PersistentFlags())

	_ = config.Init(root)

	root.AddCommand(newServeCmd())
	root.AddCommand(newGetCmd())

	return root
}

func bindGlobalFlags(fs *pflag.FlagSet) {
	fs.StringP("download-dir", "o", "", "Output directory (default: ~/Downloads)")
	fs.Int("max-parallel", config.DefaultMaxParallel, "Max concurrent downloads (1-10)")
	fs.String("listen-addr", config.DefaultListenAddr, "HTTP listen address for serve")
	fs.String("quality", string(config.DefaultQualityPreset), "Quality preset: best, medium, audio")
	fs.BoolP("verbose", "v", false, "Verbose logging")
}

// Execute runs the CLI with the provided context.
func Execute(ctx context.Context) error {
	root := newRootCmd()
	return root.ExecuteContext(ctx)
}

// newLogger builds the process logger. Verbose switches to the development
// encoder with debug level.
func newLogger(cmd *cobra.Command) (*zap.Logger, error) {
	verbose, _ := cmd.InheritedFlags().GetBool("verbose")
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
