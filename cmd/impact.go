package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/librarian-dev/librarian/internal/config"
	"github.com/librarian-dev/librarian/internal/report"
	"github.com/librarian-dev/librarian/internal/scan"
)

var impactCmd = &cobra.Command{
	Use:   "impact <marketplace[/plugin]>",
	Short: "Estimate what installing a marketplace would add",
	Long: `Impact answers "what do I gain by installing this?": how many of the
target's files are new relative to the plugins already installed, and how
many duplicate content you already have.`,
	Args: cobra.ExactArgs(1),
	RunE: runImpact,
}

func init() {
	rootCmd.AddCommand(impactCmd)
}

func runImpact(_ *cobra.Command, args []string) error {
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

	plugins, err := scan.LoadInstalled(cfg.InstalledFile)
	if err != nil {
		return err
	}
	installed := make([]report.Selector, 0, len(plugins))
	for _, p := range plugins {
		installed = append(installed, report.Selector{Marketplace: p.Marketplace, Plugin: p.Name})
	}

	res := rep.Impact([]report.Selector{target}, installed)
	redundant := res.RedundantReference + res.RedundantInternal
	fmt.Printf("%s → %d new, %d redundant (of %d files)\n",
		target, res.Novel, redundant, res.TargetFiles)
	if len(installed) == 0 {
		printInfo("", "no installed plugins found; every clustered duplicate counts as internal")
	}
	return nil
}
