package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/dgallion1/mdtrace/internal/mdbook"
)

var supportsCmd = &cobra.Command{
	Use:   "supports <renderer>",
	Short: "Report whether a renderer is supported (exit status 0) or not (1)",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		if !mdbook.Supports(args[0]) {
			os.Exit(1)
		}
	},
}
