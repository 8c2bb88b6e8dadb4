package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/librarian-dev/librarian/internal/config"
	"github.com/librarian-dev/librarian/internal/search"
)

var flagFindK int

var findCmd = &cobra.Command{
	Use:   "find <query>",
	Short: "Search skills and agents across all marketplaces by keyword",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runFind,
}

func init() {
	findCmd.Flags().IntVar(&flagFindK, "k", 15, "Maximum number of results to show (0 = all)")
	rootCmd.AddCommand(findCmd)
}

func runFind(_ *cobra.Command, args []string) error {
	cfg, err := config.LoadOrInit()
	if err != nil {
		return fmt.Errorf("cannot load config: %w", err)
	}
	query := strings.Join(args, " ")

	caps, err := search.DiscoverCapabilities(cfg.MarketplacesDir)
	if err != nil {
		return err
	}
	results := search.Search(caps, query)
	if flagFindK > 0 && len(results) > flagFindK {
		results = results[:flagFindK]
	}

	fmt.Printf("\nlibrarian find %q\n", query)
	if len(results) == 0 {
		printMiss("", "no matching skills or agents")
		return nil
	}

	// Group by marketplace, preserving score order inside each group.
	grouped := map[string][]search.Result{}
	var order []string
	for _, r := range results {
		mp := r.Capability.Marketplace
		if _, seen := grouped[mp]; !seen {
			order = append(order, mp)
		}
		grouped[mp] = append(grouped[mp], r)
	}

	for _, mp := range order {
		printBullet(mp + ":")
		for _, r := range grouped[mp] {
			c := r.Capability
			fmt.Printf("  %s (%s)  %s/%s\n", c.Name, c.Kind, c.Plugin, c.Path)
			if c.Description != "" {
				fmt.Printf("      %s\n", c.Description)
			}
		}
	}
	fmt.Printf("\n  %d results\n", len(results))
	return nil
}
