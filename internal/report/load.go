package report

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Load reads a report from path, validates its invariants, and rebuilds the
// in-memory lookup maps. A report that fails validation is refused rather
// than repaired. Version-1.0 reports (no metadata, no file or name indices)
// are still accepted: the missing structures are reconstructed from the
// cluster table alone.
func Load(path string) (*Report, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read report %s: %w", path, err)
	}

	var r Report
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("invalid report JSON %s: %w", path, err)
	}

	if r.Metadata.Version == "" && r.FileIndex == nil {
		if err := upgradeLegacy(&r, b); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		r.BuildIndices()
		return &r, nil
	}

	major, err := majorVersion(r.Metadata.Version)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if major > 2 {
		return nil, fmt.Errorf("%s: %w: %s", path, ErrSchemaVersion, r.Metadata.Version)
	}

	if err := validate(&r); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	r.BuildIndices()
	return &r, nil
}

func majorVersion(v string) (int, error) {
	head, _, _ := strings.Cut(v, ".")
	n, err := strconv.Atoi(head)
	if err != nil {
		return 0, fmt.Errorf("%w: cannot parse version %q", ErrSchemaVersion, v)
	}
	return n, nil
}

// validate checks the structural invariants of a v2 report. Any violation
// is fatal: a report that disagrees with itself cannot answer queries.
func validate(r *Report) error {
	clusterByID := make(map[int]*Cluster, len(r.Clusters))
	memberOf := map[int]int{}

	for i := range r.Clusters {
		c := &r.Clusters[i]
		if _, dup := clusterByID[c.ClusterID]; dup {
			return fmt.Errorf("%w: duplicate cluster id %d", ErrInconsistent, c.ClusterID)
		}
		clusterByID[c.ClusterID] = c

		if c.Size < 2 {
			return fmt.Errorf("%w: cluster %d has size %d", ErrInconsistent, c.ClusterID, c.Size)
		}
		if len(c.Members) != c.Size || len(c.Locations) != c.Size {
			return fmt.Errorf("%w: cluster %d size %d does not match members=%d locations=%d",
				ErrInconsistent, c.ClusterID, c.Size, len(c.Members), len(c.Locations))
		}

		for _, m := range c.Members {
			if prev, taken := memberOf[m]; taken {
				return fmt.Errorf("%w: file %d belongs to clusters %d and %d", ErrInconsistent, m, prev, c.ClusterID)
			}
			memberOf[m] = c.ClusterID
		}

		members := map[int]bool{}
		for _, m := range c.Members {
			members[m] = true
		}
		for _, p := range c.SimilarityPairs {
			if !members[p.File1] || !members[p.File2] {
				return fmt.Errorf("%w: cluster %d pair (%d,%d) references a non-member",
					ErrInconsistent, c.ClusterID, p.File1, p.File2)
			}
			if p.Similarity < r.Metadata.SimilarityThreshold {
				return fmt.Errorf("%w: cluster %d pair (%d,%d) similarity %.3f below threshold %.3f",
					ErrInconsistent, c.ClusterID, p.File1, p.File2, p.Similarity, r.Metadata.SimilarityThreshold)
			}
		}
	}

	clustered := 0
	for i := range r.FileIndex {
		f := &r.FileIndex[i]
		if f.FileIndex != i {
			return fmt.Errorf("%w: file_index entry %d carries index %d", ErrInconsistent, i, f.FileIndex)
		}
		cid, inCluster := memberOf[f.FileIndex]
		if f.ClusterID == nil {
			if inCluster {
				return fmt.Errorf("%w: file %d is a member of cluster %d but has no cluster_id",
					ErrInconsistent, f.FileIndex, cid)
			}
			continue
		}
		clustered++
		if !inCluster || cid != *f.ClusterID {
			return fmt.Errorf("%w: file %d claims cluster %d but cluster membership says otherwise",
				ErrInconsistent, f.FileIndex, *f.ClusterID)
		}
	}
	for m, cid := range memberOf {
		if m < 0 || m >= len(r.FileIndex) {
			return fmt.Errorf("%w: cluster %d member %d is not in the file index", ErrInconsistent, cid, m)
		}
	}

	if r.Summary.FilesInClusters+r.Summary.UnclusteredFiles != r.Summary.TotalFilesScanned {
		return fmt.Errorf("%w: summary counts do not add up: %d in clusters + %d unclustered != %d scanned",
			ErrInconsistent, r.Summary.FilesInClusters, r.Summary.UnclusteredFiles, r.Summary.TotalFilesScanned)
	}
	if r.Summary.FilesInClusters != clustered {
		return fmt.Errorf("%w: summary says %d files in clusters, file index says %d",
			ErrInconsistent, r.Summary.FilesInClusters, clustered)
	}
	return nil
}

// upgradeLegacy reconstructs the v2 structures a 1.0 report lacks. Legacy
// reports carry only summary + clusters (with locations but no member
// indices), and the threshold lived inside the summary block.
func upgradeLegacy(r *Report, raw []byte) error {
	var aux struct {
		Summary struct {
			SimilarityThreshold float64  `json:"similarity_threshold"`
			Confidence          string   `json:"confidence"`
			Warnings            []string `json:"warnings"`
		} `json:"summary"`
	}
	if err := json.Unmarshal(raw, &aux); err != nil {
		return fmt.Errorf("invalid legacy report: %w", err)
	}

	confidence := aux.Summary.Confidence
	if confidence == "" {
		confidence = ConfidenceUnknown
	}
	warnings := aux.Summary.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	r.Metadata = Metadata{
		Version:             "1.0",
		SimilarityThreshold: aux.Summary.SimilarityThreshold,
		Confidence:          confidence,
		Warnings:            warnings,
	}

	// Legacy clusters have no member indices; synthesize dense file indices
	// over the clustered locations in order.
	next := 0
	for i := range r.Clusters {
		c := &r.Clusters[i]
		c.ClusterID = i
		if c.Size == 0 {
			c.Size = len(c.Locations)
		}
		if c.Size < 2 {
			return fmt.Errorf("%w: legacy cluster %d has size %d", ErrInconsistent, i, c.Size)
		}
		c.Members = make([]int, 0, len(c.Locations))
		for _, loc := range c.Locations {
			cid := i
			r.FileIndex = append(r.FileIndex, FileRecord{
				FileIndex:   next,
				Marketplace: loc.Marketplace,
				Plugin:      loc.Plugin,
				Path:        loc.Path,
				Filename:    basename(loc.Path),
				IsOfficial:  loc.IsOfficial,
				InCluster:   true,
				ClusterID:   &cid,
			})
			c.Members = append(c.Members, next)
			next++
		}
	}

	if r.Summary.TotalFilesScanned < next {
		r.Summary.TotalFilesScanned = next
	}
	r.Summary.FilesInClusters = next
	r.Summary.UnclusteredFiles = r.Summary.TotalFilesScanned - next
	r.Summary.UniqueClusters = len(r.Clusters)
	return nil
}
