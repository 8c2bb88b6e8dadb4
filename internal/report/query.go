package report

import (
	"path"
	"sort"
	"strings"
)

// WhereMatch pairs a cluster with the member locations that matched the
// query pattern.
type WhereMatch struct {
	Cluster   *Cluster
	Locations []Location
}

// WhereResult is the answer to a where query. Unclustered holds matching
// files that belong to no cluster.
type WhereResult struct {
	Matches     []WhereMatch
	Unclustered []FileRecord
}

// Where resolves pattern to the clusters containing matching files. An
// exact basename match wins; otherwise the pattern is tried as a glob over
// filenames and as a case-insensitive substring over filenames and paths.
func (r *Report) Where(pattern string) WhereResult {
	base := path.Base(pattern)

	match := func(filename, relPath string) bool {
		if filename == base {
			return true
		}
		if ok, _ := path.Match(pattern, filename); ok {
			return true
		}
		lower := strings.ToLower(pattern)
		return strings.Contains(strings.ToLower(filename), lower) ||
			strings.Contains(strings.ToLower(relPath), lower)
	}

	// Exact basename lookups answer from the filename index without a scan.
	var res WhereResult
	if cids, ok := r.FilenameIndex[base]; ok {
		for _, cid := range cids {
			c := r.clusterByID[cid]
			var locs []Location
			for _, loc := range c.Locations {
				if basename(loc.Path) == base {
					locs = append(locs, loc)
				}
			}
			res.Matches = append(res.Matches, WhereMatch{Cluster: c, Locations: locs})
		}
	} else {
		seen := map[int]bool{}
		for i := range r.Clusters {
			c := &r.Clusters[i]
			var locs []Location
			for _, loc := range c.Locations {
				if match(basename(loc.Path), loc.Path) {
					locs = append(locs, loc)
				}
			}
			if len(locs) > 0 && !seen[c.ClusterID] {
				seen[c.ClusterID] = true
				res.Matches = append(res.Matches, WhereMatch{Cluster: c, Locations: locs})
			}
		}
	}

	for i := range r.FileIndex {
		f := &r.FileIndex[i]
		if f.InCluster {
			continue
		}
		if match(f.Filename, f.Path) {
			res.Unclustered = append(res.Unclustered, *f)
		}
	}

	sort.Slice(res.Matches, func(i, j int) bool {
		return res.Matches[i].Cluster.ClusterID < res.Matches[j].Cluster.ClusterID
	})
	return res
}

// Selector names a subset of files: a whole marketplace, or one plugin
// inside it when Plugin is set.
type Selector struct {
	Marketplace string
	Plugin      string
}

// Matches reports whether the file falls inside the selector.
func (s Selector) Matches(f *FileRecord) bool {
	if f.Marketplace != s.Marketplace {
		return false
	}
	return s.Plugin == "" || f.Plugin == s.Plugin
}

func (s Selector) String() string {
	if s.Plugin == "" {
		return s.Marketplace
	}
	return s.Marketplace + "/" + s.Plugin
}

// Classification of a target file in a compare query.
const (
	ClassRedundantReference = "redundant-with-reference"
	ClassRedundantInternal  = "redundant-internal"
	ClassNovel              = "novel"
)

// FileClass is the classification of one target file. SharedWith names a
// reference (or, for redundant-internal, target) peer from the same
// cluster, when one exists.
type FileClass struct {
	File       FileRecord
	Class      string
	SharedWith *Location
}

// CompareResult summarizes a compare query.
type CompareResult struct {
	TargetFiles        int
	RedundantReference int
	RedundantInternal  int
	Novel              int
	Files              []FileClass
}

// Compare classifies every target file against the reference subset using
// shared cluster membership. A file is redundant-with-reference when some
// cluster peer is a reference file, redundant-internal when its only peers
// inside the union are other target files, and novel otherwise (including
// all unclustered files).
func (r *Report) Compare(target, reference []Selector) CompareResult {
	inAny := func(f *FileRecord, sels []Selector) bool {
		for _, s := range sels {
			if s.Matches(f) {
				return true
			}
		}
		return false
	}

	targetSet := map[int]bool{}
	referenceSet := map[int]bool{}
	for i := range r.FileIndex {
		f := &r.FileIndex[i]
		if inAny(f, target) {
			targetSet[f.FileIndex] = true
		}
		if inAny(f, reference) {
			referenceSet[f.FileIndex] = true
		}
	}

	var res CompareResult
	for i := range r.FileIndex {
		f := &r.FileIndex[i]
		if !targetSet[f.FileIndex] {
			continue
		}
		res.TargetFiles++

		fc := FileClass{File: *f, Class: ClassNovel}
		if f.ClusterID != nil {
			c := r.clusterByID[*f.ClusterID]
			for pos, m := range c.Members {
				if m == f.FileIndex {
					continue
				}
				if referenceSet[m] {
					fc.Class = ClassRedundantReference
					loc := c.Locations[pos]
					fc.SharedWith = &loc
					break
				}
				if fc.Class == ClassNovel && targetSet[m] {
					fc.Class = ClassRedundantInternal
					loc := c.Locations[pos]
					fc.SharedWith = &loc
				}
			}
		}

		switch fc.Class {
		case ClassRedundantReference:
			res.RedundantReference++
		case ClassRedundantInternal:
			res.RedundantInternal++
		default:
			res.Novel++
		}
		res.Files = append(res.Files, fc)
	}
	return res
}

// Impact is compare with the externally supplied installed inventory as the
// reference side.
func (r *Report) Impact(target []Selector, installed []Selector) CompareResult {
	return r.Compare(target, installed)
}

// FilenameCount is one entry of the top-filenames projection.
type FilenameCount struct {
	Filename string
	Clusters int
}

// StatsSummary is the read-only projection served by the stats query.
type StatsSummary struct {
	TotalFilesScanned int
	FilesInClusters   int
	UnclusteredFiles  int
	UniqueClusters    int
	UniqueFilenames   int
	Marketplaces      int
	ByType            map[string]TypeCount
	TopFilenames      []FilenameCount
}

// Stats projects the report's aggregate statistics. topN bounds the
// top-filenames list; 0 means all.
func (r *Report) Stats(topN int) StatsSummary {
	s := StatsSummary{
		TotalFilesScanned: r.Summary.TotalFilesScanned,
		FilesInClusters:   r.Summary.FilesInClusters,
		UnclusteredFiles:  r.Summary.UnclusteredFiles,
		UniqueClusters:    r.Summary.UniqueClusters,
		UniqueFilenames:   len(r.FilenameIndex),
		Marketplaces:      len(r.MarketplaceIndex),
		ByType:            r.Summary.ByType,
	}

	for name, cids := range r.FilenameIndex {
		s.TopFilenames = append(s.TopFilenames, FilenameCount{Filename: name, Clusters: len(cids)})
	}
	sort.Slice(s.TopFilenames, func(i, j int) bool {
		if s.TopFilenames[i].Clusters != s.TopFilenames[j].Clusters {
			return s.TopFilenames[i].Clusters > s.TopFilenames[j].Clusters
		}
		return s.TopFilenames[i].Filename < s.TopFilenames[j].Filename
	})
	if topN > 0 && len(s.TopFilenames) > topN {
		s.TopFilenames = s.TopFilenames[:topN]
	}
	return s
}
