package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// serverAddr is the daemon address (host:port) used by exec.
var serverAddr string

// rootCmd is the top-level cobra command for rconcli.
var rootCmd = &cobra.Command{
	Use:   "rconcli",
	Short: "CLI client and credential tool for the gorcon daemon",
	Long:  "rconcli provisions RCON credentials and exercises a running gorcon daemon over the wire protocol.",
	// Silence cobra's built-in usage/error printing so we control it.
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverAddr, "addr", "localhost:25575",
		"gorcon daemon address (host:port)")

	rootCmd.AddCommand(hashCmd())
	rootCmd.AddCommand(execCmd())
	rootCmd.AddCommand(versionCmd())
}

// Execute runs the root command and exits with code 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
