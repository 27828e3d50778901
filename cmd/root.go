package cmd

import (
	"fmt"
	"os"

	"schooltone/server"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "schooltone",
	Short: "Schooltone gates access to recorded school-event audio.",
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
