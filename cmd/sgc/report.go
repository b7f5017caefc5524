package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matsen/scholargraph/internal/export"
)

var reportOutput string

func init() {
	reportCmd.Flags().StringVarP(&reportOutput, "output", "o", "", "Write the report to a file instead of stdout")
	rootCmd.AddCommand(reportCmd)
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarize the stored graph as markdown",
	Long: `Summarize the resolved graph from the store as a markdown report
with totals and the most-connected authors.

Examples:
  sgc report
  sgc report -o report.md`,
	RunE: runReport,
}

func runReport(cmd *cobra.Command, args []string) error {
	g, err := loadStoredGraph()
	if err != nil {
		return err
	}

	out := os.Stdout
	if reportOutput != "" {
		f, err := os.Create(reportOutput)
		if err != nil {
			return fmt.Errorf("creating %s: %w", reportOutput, err)
		}
		defer f.Close()
		out = f
	}

	return export.WriteReport(out, g)
}
