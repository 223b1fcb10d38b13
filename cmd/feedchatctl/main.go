package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version info set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "feedchatctl",
		Short:        "feedchat command line",
		Long:         "One-shot operations against a feedchat profile: sync, send and the failed-send queue.",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().String("profile", "", "profile name (overrides config default)")
	cmd.PersistentFlags().String("config", "", "path to config file (default ~/.feedchat/config.toml)")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newSyncCmd())
	cmd.AddCommand(newMessagesCmd())
	cmd.AddCommand(newSendCmd())
	cmd.AddCommand(newSendImageCmd())
	cmd.AddCommand(newFailedCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "feedchatctl %s (commit: %s, built: %s)\n", Version, Commit, Date)
		},
	}
}

func execute(cmd *cobra.Command) int {
	if err := cmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func main() {
	os.Exit(execute(newRootCmd()))
}
