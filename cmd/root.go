package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/librarian-dev/librarian/internal/config"
	"github.com/librarian-dev/librarian/internal/report"
)

var rootCmd = &cobra.Command{
	Use:          "librarian",
	Short:        "Librarian — near-duplicate similarity engine for plugin marketplaces",
	SilenceUsage: true, // don't print usage on operational errors
	Long: `Librarian scans the markdown content of every installed marketplace,
clusters near-duplicate files with MinHash/LSH, and answers redundancy
queries from the persisted report at ~/.librarian/similarity_report.json.`,
}

// Execute is called by main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadReport loads the persisted similarity report for query commands.
func loadReport(cfg *config.Config) (*report.Report, error) {
	rep, err := report.Load(cfg.ReportPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("no similarity report found at %s\nRun 'librarian scan' first.", cfg.ReportPath())
		}
		return nil, err
	}
	return rep, nil
}
