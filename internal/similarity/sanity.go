package similarity

import (
	"fmt"
	"sort"

	"github.com/librarian-dev/librarian/internal/report"
)

// SanityConfig holds the tunable thresholds of the result sanity checks.
// The zero value is not usable; start from DefaultSanityConfig.
type SanityConfig struct {
	// LargeEcosystemClusters: above this many clusters, zero cluster
	// membership is implausible rather than merely unusual.
	LargeEcosystemClusters int `yaml:"large_ecosystem_clusters"`
	// MarketplaceShare: a marketplace holding at least this fraction of all
	// files with zero clustered members triggers a warning.
	MarketplaceShare float64 `yaml:"marketplace_share"`
	// ExtremeRatioMinFiles gates the extreme-ratio rule to large datasets.
	ExtremeRatioMinFiles int     `yaml:"extreme_ratio_min_files"`
	ExtremeLowRatio      float64 `yaml:"extreme_low_ratio"`
	ExtremeHighRatio     float64 `yaml:"extreme_high_ratio"`
	// FiftyFiftyMinFiles gates the near-50/50 rule (and the no-clusters
	// rule) to non-trivial datasets.
	FiftyFiftyMinFiles int     `yaml:"fifty_fifty_min_files"`
	FiftyFiftyLow      float64 `yaml:"fifty_fifty_low"`
	FiftyFiftyHigh     float64 `yaml:"fifty_fifty_high"`
}

// DefaultSanityConfig returns the default thresholds.
func DefaultSanityConfig() SanityConfig {
	return SanityConfig{
		LargeEcosystemClusters: 1000,
		MarketplaceShare:       0.25,
		ExtremeRatioMinFiles:   500,
		ExtremeLowRatio:        0.05,
		ExtremeHighRatio:       0.95,
		FiftyFiftyMinFiles:     100,
		FiftyFiftyLow:          0.45,
		FiftyFiftyHigh:         0.55,
	}
}

// SanityStats is the aggregate view the checker inspects.
type SanityStats struct {
	TotalFiles      int
	FilesInClusters int
	UniqueClusters  int
	// MarketplaceFiles and MarketplaceClustered count scanned and clustered
	// files per marketplace; both may be nil when unavailable.
	MarketplaceFiles     map[string]int
	MarketplaceClustered map[string]int
	ClusterSizes         []int
}

// SanityResult is the checker's verdict.
type SanityResult struct {
	Confidence string
	Warnings   []string
}

// CheckSanity inspects aggregate scan statistics for implausible patterns.
// The dangerous failure mode of this tool is silently reporting "no
// duplicates" when the index dropped them, so statistically suspicious
// outcomes become explicit warnings. Each rule that fires downgrades the
// confidence one level (high, medium, low, none); finding no clusters at
// all on a non-trivial dataset drops it straight to none.
func CheckSanity(stats SanityStats, cfg SanityConfig) SanityResult {
	res := SanityResult{Warnings: []string{}}
	if stats.TotalFiles == 0 {
		res.Confidence = report.ConfidenceNone
		res.Warnings = append(res.Warnings, "no files were analyzed")
		return res
	}
	fired := 0
	floor := false

	// Rule 1: zero cluster membership in a large ecosystem.
	ruleFired := false
	if stats.FilesInClusters == 0 && stats.UniqueClusters > cfg.LargeEcosystemClusters {
		res.Warnings = append(res.Warnings, fmt.Sprintf(
			"0%% cluster membership despite %d clusters in the ecosystem", stats.UniqueClusters))
		ruleFired = true
	}
	if stats.TotalFiles > 0 && stats.UniqueClusters > 0 {
		// Any marketplace counts in a huge ecosystem; otherwise only ones
		// holding a significant share of the corpus.
		anyShare := stats.UniqueClusters > cfg.LargeEcosystemClusters
		for _, mp := range sortedKeys(stats.MarketplaceFiles) {
			n := stats.MarketplaceFiles[mp]
			share := float64(n) / float64(stats.TotalFiles)
			if (anyShare || share >= cfg.MarketplaceShare) && stats.MarketplaceClustered[mp] == 0 {
				res.Warnings = append(res.Warnings, fmt.Sprintf(
					"marketplace %q has 0%% cluster membership across %d files", mp, n))
				ruleFired = true
			}
		}
	}
	if ruleFired {
		fired++
	}

	// Rule 2: extreme overall ratio on a large dataset.
	if stats.TotalFiles > cfg.ExtremeRatioMinFiles {
		ratio := float64(stats.FilesInClusters) / float64(stats.TotalFiles)
		switch {
		case ratio < cfg.ExtremeLowRatio:
			res.Warnings = append(res.Warnings, fmt.Sprintf(
				"suspiciously low similarity ratio: %.1f%% of %d files fall in clusters",
				ratio*100, stats.TotalFiles))
			fired++
		case ratio > cfg.ExtremeHighRatio:
			res.Warnings = append(res.Warnings, fmt.Sprintf(
				"suspiciously high similarity ratio: %.1f%% of %d files fall in clusters",
				ratio*100, stats.TotalFiles))
			fired++
		}
	}

	// Rule 3: near-50/50 split with no intermediate cluster sizes.
	if stats.TotalFiles > cfg.FiftyFiftyMinFiles {
		ratio := float64(stats.FilesInClusters) / float64(stats.TotalFiles)
		if ratio >= cfg.FiftyFiftyLow && ratio <= cfg.FiftyFiftyHigh && !hasIntermediateSizes(stats) {
			res.Warnings = append(res.Warnings, fmt.Sprintf(
				"suspicious 50/50 split: %d of %d files in clusters",
				stats.FilesInClusters, stats.TotalFiles))
			fired++
		}
	}

	// Rule 4: no clusters at all on a non-trivial dataset.
	if stats.UniqueClusters == 0 && stats.FilesInClusters == 0 && stats.TotalFiles > cfg.FiftyFiftyMinFiles {
		res.Warnings = append(res.Warnings, fmt.Sprintf(
			"no clusters detected in a corpus of %d files", stats.TotalFiles))
		floor = true
	}

	levels := []string{
		report.ConfidenceHigh,
		report.ConfidenceMedium,
		report.ConfidenceLow,
		report.ConfidenceNone,
	}
	if floor || fired >= len(levels) {
		res.Confidence = report.ConfidenceNone
	} else {
		res.Confidence = levels[fired]
	}
	return res
}

// hasIntermediateSizes reports whether any cluster size lies strictly
// between a pair and half the clustered population — the shape a genuine
// mixed corpus produces and a thresholding artifact does not.
func hasIntermediateSizes(stats SanityStats) bool {
	upper := stats.FilesInClusters / 2
	for _, size := range stats.ClusterSizes {
		if size > 2 && size < upper {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
