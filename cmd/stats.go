package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/librarian-dev/librarian/internal/config"
	"github.com/librarian-dev/librarian/internal/report"
)

var flagStatsTop int

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate statistics from the similarity report",
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().IntVar(&flagStatsTop, "top", 10, "Number of top filenames to show (0 = all)")
	rootCmd.AddCommand(statsCmd)
}

func runStats(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("cannot load config: %w\nRun 'librarian scan' first.", err)
	}
	rep, err := loadReport(cfg)
	if err != nil {
		return err
	}

	s := rep.Stats(flagStatsTop)

	printSection("Report Statistics")
	fmt.Printf("  generated:   %s\n", emptyAsNA(rep.Metadata.GeneratedAt))
	fmt.Printf("  threshold:   %.2f\n", rep.Metadata.SimilarityThreshold)
	fmt.Printf("  confidence:  %s\n", confidenceLabel(rep.Metadata.Confidence))
	for _, w := range rep.Metadata.Warnings {
		printWarn("", w)
	}

	printBullet("Corpus:")
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "  files scanned\t%d\n", s.TotalFilesScanned)
	fmt.Fprintf(w, "  marketplaces\t%d\n", s.Marketplaces)
	fmt.Fprintf(w, "  clusters\t%d\n", s.UniqueClusters)
	fmt.Fprintf(w, "  files in clusters\t%d\n", s.FilesInClusters)
	fmt.Fprintf(w, "  unclustered files\t%d\n", s.UnclusteredFiles)
	fmt.Fprintf(w, "  distinct clustered filenames\t%d\n", s.UniqueFilenames)
	_ = w.Flush()

	printBullet("By type:")
	w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, t := range report.ClusterTypes {
		tc := s.ByType[t]
		fmt.Fprintf(w, "  %s\t%d clusters\t%d files\n", t, tc.Clusters, tc.Files)
	}
	_ = w.Flush()

	if len(s.TopFilenames) > 0 {
		printBullet("Most clustered filenames:")
		w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		for _, fc := range s.TopFilenames {
			fmt.Fprintf(w, "  %s\t%d clusters\n", fc.Filename, fc.Clusters)
		}
		_ = w.Flush()
	}
	return nil
}
