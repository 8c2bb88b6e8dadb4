package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/librarian-dev/librarian/internal/config"
	"github.com/librarian-dev/librarian/internal/report"
)

var flagWhereJSON bool

var whereCmd = &cobra.Command{
	Use:   "where <pattern>",
	Short: "Show which clusters contain files matching a name or glob",
	Args:  cobra.ExactArgs(1),
	RunE:  runWhere,
}

func init() {
	whereCmd.Flags().BoolVar(&flagWhereJSON, "json", false, "Emit the raw result as JSON")
	rootCmd.AddCommand(whereCmd)
}

func runWhere(_ *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("cannot load config: %w\nRun 'librarian scan' first.", err)
	}
	rep, err := loadReport(cfg)
	if err != nil {
		return err
	}

	res := rep.Where(args[0])
	if flagWhereJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	fmt.Printf("\nlibrarian where %q\n", args[0])
	if len(res.Matches) == 0 && len(res.Unclustered) == 0 {
		printMiss("", "no matching files in the report")
		return nil
	}

	for _, m := range res.Matches {
		c := m.Cluster
		printBullet(fmt.Sprintf("Cluster %d  (%s, %d files, avg similarity %.3f)",
			c.ClusterID, c.Type, c.Size, c.AvgSimilarity))
		for _, loc := range m.Locations {
			label := ""
			if loc.IsOfficial {
				label = " (official)"
			}
			fmt.Printf("  %s/%s/%s%s\n", loc.Marketplace, loc.Plugin, loc.Path, label)
		}
		if len(m.Locations) < c.Size {
			printInfo("", fmt.Sprintf("%d other files share this cluster", c.Size-len(m.Locations)))
		}
	}

	if len(res.Unclustered) > 0 {
		printBullet("Unclustered matches:")
		for _, f := range res.Unclustered {
			fmt.Printf("  %s/%s/%s\n", f.Marketplace, f.Plugin, f.Path)
		}
	}
	return nil
}

// locationString renders a cluster location in canonical form.
func locationString(loc report.Location) string {
	return loc.Marketplace + "/" + loc.Plugin + "/" + loc.Path
}
