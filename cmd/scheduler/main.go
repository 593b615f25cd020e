// cmd/scheduler/main.go
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "myads-scheduler",
	Short: "Gates and dispatches myADS notification processing",
	Long: `myads-scheduler checks that the nightly search-index ingest has
completed and then submits one notification job per eligible user to the
worker pool, tracking progress with a per-frequency watermark.
`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(scheduleCmd())
}
