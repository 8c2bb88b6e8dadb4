package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/librarian-dev/librarian/internal/config"
	"github.com/librarian-dev/librarian/internal/scan"
)

var flagInstalledVerbose bool

var installedCmd = &cobra.Command{
	Use:   "installed",
	Short: "List plugins recorded in the host environment's inventory",
	RunE:  runInstalled,
}

func init() {
	installedCmd.Flags().BoolVarP(&flagInstalledVerbose, "verbose", "v", false, "Show install paths and versions")
	rootCmd.AddCommand(installedCmd)
}

func runInstalled(_ *cobra.Command, _ []string) error {
	cfg, err := config.LoadOrInit()
	if err != nil {
		return fmt.Errorf("cannot load config: %w", err)
	}
	plugins, err := scan.LoadInstalled(cfg.InstalledFile)
	if err != nil {
		return err
	}
	if len(plugins) == 0 {
		printMiss("", fmt.Sprintf("no installed plugins found (%s)", cfg.InstalledFile))
		return nil
	}

	// Inventory is sorted by (marketplace, name), so grouping is a single pass.
	current := ""
	for _, p := range plugins {
		if p.Marketplace != current {
			current = p.Marketplace
			printBullet(current + ":")
		}
		if flagInstalledVerbose {
			ver := p.Version
			if ver == "" {
				ver = "n/a"
			}
			fmt.Printf("  %s  (version %s)\n      %s\n", p.Name, ver, p.InstallPath)
		} else {
			fmt.Printf("  %s\n", p.Name)
		}
	}
	fmt.Printf("\n  %d plugins installed\n", len(plugins))
	return nil
}
