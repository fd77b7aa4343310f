// Command stateit-bench drives synthetic load against stateit stores
// and reports mutation and delivery throughput.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "stateit-bench",
		Short: "Benchmark harness for stateit stores",
		Long: `stateit-bench drives concurrent writers against reactive stores and
reports mutation throughput, flush counts, and delivery counts.

Scenarios can be described in a TOML file (see internal/config) or
overridden per run with flags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		runCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("stateit-bench %s (%s)\n", version, commit)
		},
	}
}
