package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "steady",
	Short: "Mental health check-ins and guided sessions",
	Long: `steady scores WHO-5, PHQ-9 and GAD-7 check-ins and runs guided
exercise sessions with a server-driven countdown.`,
	SilenceUsage: true,
}

func main() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(validateCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
