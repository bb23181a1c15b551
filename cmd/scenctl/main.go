// Command scenctl loads, validates, and previews fieldnet fault scenarios
// offline, so a schedule's effect at any timestamp can be inspected before
// running it live.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var version = "0.1.0-dev"

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "scenctl",
		Short: "Scenario compiler and preview tool for fieldnet fault schedules",
		Long: `scenctl compiles declarative, time-segmented fault schedules into the
same fault bundles the live engine consumes, without simulation side
effects.

A scenario directory holds run.yaml, scenario.faults.yaml, and
scenario.logging.yaml; scenctl validates them, computes the canonical
scenario hash, and previews the compiled fault bundle at any timestamp.`,
	}

	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")

	rootCmd.AddCommand(
		newVersionCmd(),
		newValidateCmd(),
		newHashCmd(),
		newPreviewCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("scenctl version %s\n", version)
		},
	}
}
