package main

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"quickpic/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"
)

// errUsage reports a command line the user has to fix; usage was already shown
var errUsage = errors.New("invalid usage")

// globalOptions holds flags shared by every command
type globalOptions struct {
	configFile    string
	logLevel      string
	notifications bool
	quiet         bool
}

// newRootCmd builds the command tree. Running the root command with an
// email is the same as running "download".
func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	dl := &downloadOptions{}

	rootCmd := &cobra.Command{
		Use:   "quickpic <email> [password]",
		Short: "Download every photo stored in a CM Cloud / QuickPic account",
		Long: `QuickPic downloads every photo stored in a CM Cloud (QuickPic) account into a
local directory and restores each file's date from its date group.

Files already present and non-empty are skipped, so an interrupted run can
simply be started again. If the password is omitted it is taken from the
stored credentials (see 'quickpic auth login') or prompted for.`,
		Example: `  # Download into the current directory
  quickpic me@example.com

  # Download into ./photos with a stored or prompted password
  quickpic me@example.com --output ./photos`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
		Args:          cobra.MaximumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.quiet {
				ui.SetQuiet(true)
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				_ = cmd.Usage()
				return errUsage
			}
			return runDownload(cmd, opts, dl, args)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "config file (default is ./.quickpic.yaml or ~/.config/quickpic/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&opts.notifications, "notifications", false, "enable desktop notifications")
	rootCmd.PersistentFlags().BoolVarP(&opts.quiet, "quiet", "q", false, "suppress all output except errors")
	dl.register(rootCmd)

	rootCmd.SetVersionTemplate(`QuickPic {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(newDownloadCmd(opts))
	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newConfigCmd(opts))

	return rootCmd
}

// Execute runs the command line and returns the process exit code
func Execute(ctx context.Context, args []string) int {
	rootCmd := newRootCmd()
	rootCmd.SetArgs(args)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errUsage) {
			ui.PrintError("Error", err)
		}
		return 1
	}
	return 0
}
