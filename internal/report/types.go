// Package report defines the persisted similarity report (schema 2.0), its
// validating loader, and the read-only queries answered from it.
//
// avg_similarity on a cluster is the mean over the retained edges recorded
// in similarity_pairs, not over all member pairs.
package report

import "errors"

// SchemaVersion is the schema written by this build.
const SchemaVersion = "2.0"

// Cluster types.
const (
	TypeCrossMarketplace = "cross-marketplace"
	TypeInternal         = "internal"
	TypeScaffold         = "scaffold"
)

// ClusterTypes lists all cluster types in reporting order.
var ClusterTypes = []string{TypeCrossMarketplace, TypeInternal, TypeScaffold}

// Confidence labels emitted by the sanity checker.
const (
	ConfidenceHigh    = "high"
	ConfidenceMedium  = "medium"
	ConfidenceLow     = "low"
	ConfidenceNone    = "none"
	ConfidenceUnknown = "unknown" // legacy reports predating sanity checks
)

var (
	// ErrSchemaVersion marks a report written by a newer schema than this
	// build understands.
	ErrSchemaVersion = errors.New("unsupported report schema version")
	// ErrInconsistent marks a report that violates its own invariants.
	ErrInconsistent = errors.New("inconsistent report")
)

// Metadata describes how the report was produced.
type Metadata struct {
	Version             string   `json:"version"`
	GeneratedAt         string   `json:"generated_at"`
	SimilarityThreshold float64  `json:"similarity_threshold"`
	NumPermutations     int      `json:"num_permutations"`
	ShingleSize         int      `json:"shingle_size"`
	LSHBands            int      `json:"lsh_bands,omitempty"`
	LSHRows             int      `json:"lsh_rows,omitempty"`
	Confidence          string   `json:"confidence"`
	Warnings            []string `json:"warnings"`
}

// TypeCount is the per-type cluster/file tally in the summary.
type TypeCount struct {
	Clusters int `json:"clusters"`
	Files    int `json:"files"`
}

// Summary holds the aggregate counts of a scan.
type Summary struct {
	TotalFilesScanned  int                  `json:"total_files_scanned"`
	FilesInClusters    int                  `json:"files_in_clusters"`
	UnclusteredFiles   int                  `json:"unclustered_files"`
	UniqueClusters     int                  `json:"unique_clusters"`
	UniqueMarketplaces int                  `json:"unique_marketplaces"`
	ByType             map[string]TypeCount `json:"by_type"`
}

// FileRecord is one scanned file. FileIndex is its dense identity assigned
// in canonical scan order; ClusterID is nil for unclustered files.
type FileRecord struct {
	FileIndex   int    `json:"file_index"`
	Marketplace string `json:"marketplace"`
	Plugin      string `json:"plugin"`
	Path        string `json:"path"`
	Filename    string `json:"filename"`
	IsOfficial  bool   `json:"is_official"`
	InCluster   bool   `json:"in_cluster"`
	ClusterID   *int   `json:"cluster_id,omitempty"`
}

// Location is the projection of a FileRecord carried inside a cluster.
type Location struct {
	Marketplace string `json:"marketplace"`
	Plugin      string `json:"plugin"`
	Path        string `json:"path"`
	IsOfficial  bool   `json:"is_official"`
}

// SimilarityPair records one retained edge between two cluster members.
type SimilarityPair struct {
	File1      int     `json:"file1_index"`
	File2      int     `json:"file2_index"`
	Similarity float64 `json:"similarity"`
}

// Cluster is one connected component of the near-duplicate graph.
type Cluster struct {
	ClusterID       int              `json:"cluster_id"`
	Type            string           `json:"type"`
	Size            int              `json:"size"`
	AvgSimilarity   float64          `json:"avg_similarity"`
	HasOfficial     bool             `json:"has_official"`
	Marketplaces    []string         `json:"marketplaces"`
	Members         []int            `json:"members"`
	Locations       []Location       `json:"locations"`
	SimilarityPairs []SimilarityPair `json:"similarity_pairs"`
}

// Report is the full artifact. MarketplaceIndex and FilenameIndex map names
// to sorted cluster id lists and are recomputable from Clusters alone.
type Report struct {
	Metadata         Metadata         `json:"metadata"`
	Summary          Summary          `json:"summary"`
	FileIndex        []FileRecord     `json:"file_index"`
	MarketplaceIndex map[string][]int `json:"marketplace_index"`
	FilenameIndex    map[string][]int `json:"filename_index"`
	Clusters         []Cluster        `json:"clusters"`

	clusterByID     map[int]*Cluster
	filesByFilename map[string][]int
}

// ClusterByID returns the cluster with the given id, or nil.
func (r *Report) ClusterByID(id int) *Cluster {
	return r.clusterByID[id]
}

// FileByIndex returns the file record with the given index, or nil. File
// indices are dense, so this is a slice lookup.
func (r *Report) FileByIndex(i int) *FileRecord {
	if i < 0 || i >= len(r.FileIndex) {
		return nil
	}
	return &r.FileIndex[i]
}

// BuildIndices recomputes the marketplace and filename indices from the
// cluster table and rebuilds the in-memory lookup maps. It runs in O(n).
func (r *Report) BuildIndices() {
	r.MarketplaceIndex = map[string][]int{}
	r.FilenameIndex = map[string][]int{}
	r.clusterByID = make(map[int]*Cluster, len(r.Clusters))
	r.filesByFilename = map[string][]int{}

	for i := range r.Clusters {
		c := &r.Clusters[i]
		r.clusterByID[c.ClusterID] = c
		for _, mp := range c.Marketplaces {
			r.MarketplaceIndex[mp] = appendUnique(r.MarketplaceIndex[mp], c.ClusterID)
		}
		seen := map[string]bool{}
		for _, loc := range c.Locations {
			name := basename(loc.Path)
			if !seen[name] {
				seen[name] = true
				r.FilenameIndex[name] = appendUnique(r.FilenameIndex[name], c.ClusterID)
			}
		}
	}

	for i := range r.FileIndex {
		f := &r.FileIndex[i]
		r.filesByFilename[f.Filename] = append(r.filesByFilename[f.Filename], f.FileIndex)
	}
}

func appendUnique(ids []int, id int) []int {
	for _, v := range ids {
		if v == id {
			return ids
		}
	}
	return append(ids, id)
}

func basename(p string) string {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i] == '/' {
			return p[i+1:]
		}
	}
	return p
}
