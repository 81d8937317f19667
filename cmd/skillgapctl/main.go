// Command skillgapctl runs skill-gap analyses and manages the role catalog
// from the terminal.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "skillgapctl",
	Short:         "Skill-gap analysis from the command line",
	Long:          "skillgapctl analyses resumes against the role catalog and validates, converts and imports catalog files.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var catalogSource string

func init() {
	rootCmd.PersistentFlags().StringVarP(&catalogSource, "catalog", "c", "", "catalog file or legacy:<dir> (default: bundled catalog)")
}

func main() {
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
