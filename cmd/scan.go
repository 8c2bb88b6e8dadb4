package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/librarian-dev/librarian/internal/config"
	"github.com/librarian-dev/librarian/internal/report"
	"github.com/librarian-dev/librarian/internal/scan"
	"github.com/librarian-dev/librarian/internal/similarity"
)

var (
	flagScanThreshold float64
	flagScanDir       string
	flagScanTimeout   time.Duration
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan all marketplaces and rebuild the similarity report",
	RunE:  runScan,
}

func init() {
	scanCmd.Flags().Float64Var(&flagScanThreshold, "threshold", 0, "Jaccard similarity threshold (default from config)")
	scanCmd.Flags().StringVar(&flagScanDir, "marketplaces-dir", "", "Override the marketplaces directory")
	scanCmd.Flags().DurationVar(&flagScanTimeout, "lock-timeout", 10*time.Second, "How long to wait for a concurrent scan to finish")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadOrInit()
	if err != nil {
		return fmt.Errorf("cannot load config: %w", err)
	}
	if flagScanThreshold > 0 {
		cfg.SimilarityThreshold = flagScanThreshold
	}
	if flagScanDir != "" {
		cfg.MarketplacesDir, err = config.ExpandPath(flagScanDir)
		if err != nil {
			return err
		}
	}

	unlock, err := acquireScanLock(cfg, flagScanTimeout)
	if err != nil {
		return err
	}
	defer unlock()

	printSection("Scan")
	start := time.Now()

	res, err := scan.Discover(cfg.MarketplacesDir, scan.Options{
		MinContentLength: cfg.MinContentLength,
		Extensions:       cfg.Extensions,
	})
	if err != nil {
		return err
	}
	if len(res.Files) == 0 {
		return fmt.Errorf("no content files found under %s", cfg.MarketplacesDir)
	}
	printInfo("", fmt.Sprintf("%d files discovered (%d too short, %d unreadable)",
		len(res.Files), res.SkippedShort, res.SkippedUnreadable))

	engine := similarity.NewEngine(cfg.EngineConfig())
	rep, err := engine.Scan(cmd.Context(), res.Files)
	if err != nil {
		return err
	}

	if err := report.Write(cfg.ReportPath(), rep); err != nil {
		return err
	}

	printScanSummary(rep, time.Since(start))
	printOK("", fmt.Sprintf("report written: %s", cfg.ReportPath()))
	return nil
}

func printScanSummary(rep *report.Report, elapsed time.Duration) {
	s := rep.Summary
	printBullet("Results:")
	fmt.Printf("  files scanned:     %d\n", s.TotalFilesScanned)
	fmt.Printf("  marketplaces:      %d\n", s.UniqueMarketplaces)
	fmt.Printf("  clusters:          %d\n", s.UniqueClusters)
	fmt.Printf("  files in clusters: %d\n", s.FilesInClusters)
	fmt.Printf("  unclustered:       %d\n", s.UnclusteredFiles)
	for _, t := range report.ClusterTypes {
		tc := s.ByType[t]
		fmt.Printf("    %-18s %d clusters / %d files\n", t+":", tc.Clusters, tc.Files)
	}
	fmt.Printf("  elapsed:           %s\n", elapsed.Round(time.Millisecond))

	fmt.Printf("\n  confidence: %s\n", confidenceLabel(rep.Metadata.Confidence))
	for _, w := range rep.Metadata.Warnings {
		printWarn("", w)
	}
}

// acquireScanLock prevents two scans from racing on the report file.
func acquireScanLock(cfg *config.Config, timeout time.Duration) (func(), error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create data dir %s: %w", cfg.DataDir, err)
	}
	l := flock.New(cfg.LockPath())
	deadline := time.Now().Add(timeout)
	for {
		locked, err := l.TryLock()
		if err != nil {
			return nil, fmt.Errorf("cannot acquire scan lock: %w", err)
		}
		if locked {
			return func() { _ = l.Unlock() }, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("another scan is in progress (lock: %s)", cfg.LockPath())
		}
		time.Sleep(200 * time.Millisecond)
	}
}
