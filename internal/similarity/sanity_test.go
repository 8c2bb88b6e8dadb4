package similarity

import (
	"strings"
	"testing"

	"github.com/librarian-dev/librarian/internal/report"
)

func checkDefault(t *testing.T, stats SanityStats) SanityResult {
	t.Helper()
	return CheckSanity(stats, DefaultSanityConfig())
}

func hasWarning(res SanityResult, substr string) bool {
	for _, w := range res.Warnings {
		if strings.Contains(w, substr) {
			return true
		}
	}
	return false
}

func TestCheckSanity_ZeroMembershipLargeEcosystem(t *testing.T) {
	res := checkDefault(t, SanityStats{
		TotalFiles:      1000,
		FilesInClusters: 0,
		UniqueClusters:  1500,
	})

	if res.Confidence != report.ConfidenceLow {
		t.Errorf("confidence = %q, want low", res.Confidence)
	}
	if len(res.Warnings) == 0 {
		t.Fatal("expected warnings")
	}
	if !strings.Contains(res.Warnings[0], "0% cluster membership") ||
		!strings.Contains(res.Warnings[0], "1500 clusters") {
		t.Errorf("unexpected first warning: %q", res.Warnings[0])
	}
}

func TestCheckSanity_ZeroMembershipSmallEcosystem(t *testing.T) {
	res := checkDefault(t, SanityStats{
		TotalFiles:      100,
		FilesInClusters: 0,
		UniqueClusters:  500,
	})

	if hasWarning(res, "cluster membership") {
		t.Errorf("unexpected cluster membership warning: %v", res.Warnings)
	}
}

func TestCheckSanity_VeryLowRatio(t *testing.T) {
	res := checkDefault(t, SanityStats{
		TotalFiles:      600,
		FilesInClusters: 20,
		UniqueClusters:  0,
	})

	if res.Confidence != report.ConfidenceMedium {
		t.Errorf("confidence = %q, want medium", res.Confidence)
	}
	if !hasWarning(res, "low similarity ratio") {
		t.Errorf("expected low similarity ratio warning, got %v", res.Warnings)
	}
}

func TestCheckSanity_VeryHighRatio(t *testing.T) {
	res := checkDefault(t, SanityStats{
		TotalFiles:      600,
		FilesInClusters: 580,
		UniqueClusters:  0,
	})

	if res.Confidence != report.ConfidenceMedium {
		t.Errorf("confidence = %q, want medium", res.Confidence)
	}
	if !hasWarning(res, "high similarity ratio") {
		t.Errorf("expected high similarity ratio warning, got %v", res.Warnings)
	}
}

func TestCheckSanity_ExtremeRatioSmallDataset(t *testing.T) {
	res := checkDefault(t, SanityStats{
		TotalFiles:      200,
		FilesInClusters: 10,
		UniqueClusters:  3,
	})

	if hasWarning(res, "ratio") {
		t.Errorf("unexpected ratio warning on small dataset: %v", res.Warnings)
	}
	if res.Confidence != report.ConfidenceHigh {
		t.Errorf("confidence = %q, want high", res.Confidence)
	}
}

func TestCheckSanity_NormalResults(t *testing.T) {
	res := checkDefault(t, SanityStats{
		TotalFiles:      1000,
		FilesInClusters: 300,
		UniqueClusters:  500,
		ClusterSizes:    []int{2, 5, 30, 80},
	})

	if res.Confidence != report.ConfidenceHigh {
		t.Errorf("confidence = %q, want high", res.Confidence)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", res.Warnings)
	}
}

func TestCheckSanity_FiftyFiftySplit(t *testing.T) {
	res := checkDefault(t, SanityStats{
		TotalFiles:      200,
		FilesInClusters: 100,
		UniqueClusters:  50,
		ClusterSizes:    []int{2, 2, 2},
	})

	if res.Confidence != report.ConfidenceMedium {
		t.Errorf("confidence = %q, want medium", res.Confidence)
	}
	if !hasWarning(res, "50/50") {
		t.Errorf("expected 50/50 warning, got %v", res.Warnings)
	}
}

func TestCheckSanity_FiftyFiftyWithIntermediateSizes(t *testing.T) {
	// Sizes strictly between 2 and half the clustered population indicate a
	// genuine mixed corpus, not a thresholding artifact.
	res := checkDefault(t, SanityStats{
		TotalFiles:      200,
		FilesInClusters: 100,
		UniqueClusters:  20,
		ClusterSizes:    []int{2, 12, 30},
	})

	if hasWarning(res, "50/50") {
		t.Errorf("unexpected 50/50 warning: %v", res.Warnings)
	}
	if res.Confidence != report.ConfidenceHigh {
		t.Errorf("confidence = %q, want high", res.Confidence)
	}
}

func TestCheckSanity_ZeroFiles(t *testing.T) {
	res := checkDefault(t, SanityStats{})

	if res.Confidence != report.ConfidenceNone {
		t.Errorf("confidence = %q, want none", res.Confidence)
	}
	if !hasWarning(res, "no files were analyzed") {
		t.Errorf("expected zero-files warning, got %v", res.Warnings)
	}
}

func TestCheckSanity_NoClustersNonTrivialCorpus(t *testing.T) {
	res := checkDefault(t, SanityStats{
		TotalFiles:      300,
		FilesInClusters: 0,
		UniqueClusters:  0,
	})

	if res.Confidence != report.ConfidenceNone {
		t.Errorf("confidence = %q, want none", res.Confidence)
	}
	if !hasWarning(res, "no clusters detected") {
		t.Errorf("expected no-clusters warning, got %v", res.Warnings)
	}
}

func TestCheckSanity_MarketplaceZeroMembership(t *testing.T) {
	res := checkDefault(t, SanityStats{
		TotalFiles:      400,
		FilesInClusters: 120,
		UniqueClusters:  40,
		MarketplaceFiles: map[string]int{
			"big-marketplace":   200,
			"small-marketplace": 200,
		},
		MarketplaceClustered: map[string]int{
			"small-marketplace": 120,
		},
		ClusterSizes: []int{2, 10, 40},
	})

	if !hasWarning(res, `marketplace "big-marketplace" has 0% cluster membership`) {
		t.Errorf("expected marketplace warning, got %v", res.Warnings)
	}
	if res.Confidence != report.ConfidenceMedium {
		t.Errorf("confidence = %q, want medium", res.Confidence)
	}
}

func TestCheckSanity_SmallMarketplaceInHugeEcosystem(t *testing.T) {
	// Above the large-ecosystem cluster count, even a marketplace below the
	// share floor warns when none of its files clustered.
	stats := SanityStats{
		TotalFiles:      2000,
		FilesInClusters: 600,
		UniqueClusters:  1500,
		MarketplaceFiles: map[string]int{
			"tiny": 100,
			"big":  1900,
		},
		MarketplaceClustered: map[string]int{
			"big": 600,
		},
		ClusterSizes: []int{2, 20, 80},
	}

	res := checkDefault(t, stats)
	if !hasWarning(res, `marketplace "tiny" has 0% cluster membership`) {
		t.Errorf("expected tiny-marketplace warning, got %v", res.Warnings)
	}
	if res.Confidence != report.ConfidenceMedium {
		t.Errorf("confidence = %q, want medium", res.Confidence)
	}

	// Below the large-ecosystem count the share floor still applies.
	stats.UniqueClusters = 500
	res = checkDefault(t, stats)
	if hasWarning(res, `marketplace "tiny"`) {
		t.Errorf("unexpected warning below share floor: %v", res.Warnings)
	}
}

func TestCheckSanity_MultipleWarningsDowngradeOnce(t *testing.T) {
	// Two marketplace warnings are one rule firing: confidence drops a single
	// level per rule, not per warning.
	res := checkDefault(t, SanityStats{
		TotalFiles:      1000,
		FilesInClusters: 300,
		UniqueClusters:  200,
		MarketplaceFiles: map[string]int{
			"a": 300,
			"b": 300,
			"c": 400,
		},
		MarketplaceClustered: map[string]int{
			"c": 300,
		},
		ClusterSizes: []int{2, 20, 60},
	})

	warnings := 0
	for _, w := range res.Warnings {
		if strings.Contains(w, "cluster membership") {
			warnings++
		}
	}
	if warnings != 2 {
		t.Fatalf("expected 2 marketplace warnings, got %v", res.Warnings)
	}
	if res.Confidence != report.ConfidenceMedium {
		t.Errorf("confidence = %q, want medium", res.Confidence)
	}
}
