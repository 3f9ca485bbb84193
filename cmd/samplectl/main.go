// Command samplectl runs the copper analyzer and classifier outside the web
// app, for checking images and thresholds from a shell.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "samplectl",
		Short:         "Copper water-sample tools",
		SilenceUsage: true,
	}
	root.AddCommand(newAnalyzeCmd(), newClassifyCmd())
	return root
}
