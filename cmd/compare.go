package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/librarian-dev/librarian/internal/config"
	"github.com/librarian-dev/librarian/internal/report"
	"github.com/librarian-dev/librarian/internal/scan"
)

var (
	flagCompareReference string
	flagCompareVerbose   bool
	flagCompareJSON      bool
)

var compareCmd = &cobra.Command{
	Use:   "compare <marketplace[/plugin]>",
	Short: "Classify a marketplace's files against a reference set",
	Long: `Compare classifies every file of the target marketplace (or plugin) by
shared cluster membership: redundant-with-reference when a near-duplicate
exists in the reference set, redundant-internal when duplicates exist only
inside the target itself, novel otherwise.

The reference defaults to "installed", the plugins recorded in the host
environment's inventory. It also accepts a comma-separated list of
marketplace[/plugin] selectors.`,
	Args: cobra.ExactArgs(1),
	RunE: runCompare,
}

func init() {
	compareCmd.Flags().StringVar(&flagCompareReference, "reference", "installed", "Reference set: 'installed' or comma-separated marketplace[/plugin] selectors")
	compareCmd.Flags().BoolVarP(&flagCompareVerbose, "verbose", "v", false, "List every file with its classification")
	compareCmd.Flags().BoolVar(&flagCompareJSON, "json", false, "Emit the raw result as JSON")
	rootCmd.AddCommand(compareCmd)
}

func runCompare(_ *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("cannot load config: %w\nRun 'librarian scan' first.", err)
	}
	rep, err := loadReport(cfg)
	if err != nil {
		return err
	}

	target, err := parseSelector(args[0])
	if err != nil {
		return err
	}
	if err := checkMarketplaceKnown(rep, target.Marketplace); err != nil {
		return err
	}

	reference, err := resolveReference(cfg, flagCompareReference)
	if err != nil {
		return err
	}

	res := rep.Compare([]report.Selector{target}, reference)
	if flagCompareJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	fmt.Printf("\nlibrarian compare %s  (reference: %s)\n", target, flagCompareReference)
	printBullet("Classification:")
	fmt.Printf("  target files:            %d\n", res.TargetFiles)
	fmt.Printf("  redundant with reference: %d\n", res.RedundantReference)
	fmt.Printf("  redundant internally:     %d\n", res.RedundantInternal)
	fmt.Printf("  novel:                    %d\n", res.Novel)

	if flagCompareVerbose {
		printBullet("Files:")
		for _, fc := range res.Files {
			switch fc.Class {
			case report.ClassRedundantReference:
				printWarn("", fmt.Sprintf("%s/%s  duplicates %s", fc.File.Plugin, fc.File.Path, locationString(*fc.SharedWith)))
			case report.ClassRedundantInternal:
				printInfo("", fmt.Sprintf("%s/%s  duplicates %s", fc.File.Plugin, fc.File.Path, locationString(*fc.SharedWith)))
			default:
				printOK("", fmt.Sprintf("%s/%s  novel", fc.File.Plugin, fc.File.Path))
			}
		}
	}
	return nil
}

// parseSelector parses "marketplace" or "marketplace/plugin".
func parseSelector(s string) (report.Selector, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return report.Selector{}, fmt.Errorf("empty selector")
	}
	parts := strings.SplitN(s, "/", 2)
	sel := report.Selector{Marketplace: parts[0]}
	if len(parts) == 2 {
		sel.Plugin = parts[1]
	}
	if sel.Marketplace == "" {
		return report.Selector{}, fmt.Errorf("invalid selector %q", s)
	}
	return sel, nil
}

// resolveReference turns the --reference flag value into selectors. The
// special value "installed" reads the host inventory.
func resolveReference(cfg *config.Config, ref string) ([]report.Selector, error) {
	if ref == "installed" {
		plugins, err := scan.LoadInstalled(cfg.InstalledFile)
		if err != nil {
			return nil, err
		}
		var sels []report.Selector
		for _, p := range plugins {
			sels = append(sels, report.Selector{Marketplace: p.Marketplace, Plugin: p.Name})
		}
		return sels, nil
	}

	var sels []report.Selector
	for _, part := range strings.Split(ref, ",") {
		sel, err := parseSelector(part)
		if err != nil {
			return nil, fmt.Errorf("invalid --reference: %w", err)
		}
		sels = append(sels, sel)
	}
	return sels, nil
}

// checkMarketplaceKnown rejects marketplaces absent from the report, listing
// what the report actually covers.
func checkMarketplaceKnown(rep *report.Report, marketplace string) error {
	known := map[string]bool{}
	for i := range rep.FileIndex {
		known[rep.FileIndex[i].Marketplace] = true
	}
	if known[marketplace] {
		return nil
	}

	names := make([]string, 0, len(known))
	for n := range known {
		names = append(names, n)
	}
	sort.Strings(names)
	return fmt.Errorf("marketplace %q not in the report; available: %s\nRe-run 'librarian scan' if it was added recently.",
		marketplace, strings.Join(names, ", "))
}
