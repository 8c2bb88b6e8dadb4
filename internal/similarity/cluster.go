package similarity

import (
	"math"
	"sort"
	"strings"

	"github.com/librarian-dev/librarian/internal/report"
)

// DefaultScaffoldMinSize is the cluster-size floor for scaffold typing.
const DefaultScaffoldMinSize = 20

// ClusterConfig parameterizes cluster assembly.
type ClusterConfig struct {
	Threshold       float64
	ScaffoldMinSize int
}

type edge struct {
	i, j int
	sim  float64
}

// BuildClusters assembles the disjoint near-duplicate clusters. For every
// signed file the LSH index is queried for candidates; each candidate edge
// is re-estimated from the two signatures and kept only at or above the
// threshold, so LSH false positives never join a cluster. Surviving edges
// feed a union-find whose components of size >= 2 become clusters.
//
// Cluster ids are allocated in order of smallest member file index, members
// are listed in ascending file index order, and avg_similarity is the mean
// over the retained edges recorded in similarity_pairs. Each member record
// in recs is updated in place with its cluster id.
func BuildClusters(idx *LSHIndex, sigs [][]uint32, recs []report.FileRecord, cfg ClusterConfig) []report.Cluster {
	if cfg.ScaffoldMinSize <= 0 {
		cfg.ScaffoldMinSize = DefaultScaffoldMinSize
	}

	uf := newUnionFind(len(recs))
	var edges []edge
	for i := range recs {
		if sigs[i] == nil {
			continue
		}
		for _, j := range idx.Query(sigs[i]) {
			if j <= i || sigs[j] == nil {
				continue
			}
			sim := EstimateSimilarity(sigs[i], sigs[j])
			if sim < cfg.Threshold {
				continue
			}
			uf.union(i, j)
			edges = append(edges, edge{i: i, j: j, sim: sim})
		}
	}

	components := map[int][]int{}
	for i := range recs {
		if sigs[i] == nil {
			continue
		}
		root := uf.find(i)
		components[root] = append(components[root], i)
	}

	var roots []int
	for root, members := range components {
		if len(members) < 2 {
			continue
		}
		sort.Ints(members)
		components[root] = members
		roots = append(roots, root)
	}
	sort.Slice(roots, func(a, b int) bool {
		return components[roots[a]][0] < components[roots[b]][0]
	})

	clusters := make([]report.Cluster, 0, len(roots))
	for cid, root := range roots {
		members := components[root]

		var pairs []report.SimilarityPair
		var simSum float64
		for _, e := range edges {
			if uf.find(e.i) != root {
				continue
			}
			pairs = append(pairs, report.SimilarityPair{File1: e.i, File2: e.j, Similarity: e.sim})
			simSum += e.sim
		}
		sort.Slice(pairs, func(a, b int) bool {
			if pairs[a].File1 != pairs[b].File1 {
				return pairs[a].File1 < pairs[b].File1
			}
			return pairs[a].File2 < pairs[b].File2
		})

		c := report.Cluster{
			ClusterID:       cid,
			Size:            len(members),
			AvgSimilarity:   round3(simSum / float64(len(pairs))),
			Members:         members,
			SimilarityPairs: pairs,
		}

		mps := map[string]bool{}
		sameName := true
		for _, m := range members {
			rec := &recs[m]
			mps[rec.Marketplace] = true
			if rec.Filename != recs[members[0]].Filename {
				sameName = false
			}
			c.HasOfficial = c.HasOfficial || rec.IsOfficial
			c.Locations = append(c.Locations, report.Location{
				Marketplace: rec.Marketplace,
				Plugin:      rec.Plugin,
				Path:        rec.Path,
				IsOfficial:  rec.IsOfficial,
			})
		}
		for mp := range mps {
			c.Marketplaces = append(c.Marketplaces, mp)
		}
		sort.Strings(c.Marketplaces)

		switch {
		case sameName && c.Size >= cfg.ScaffoldMinSize:
			c.Type = report.TypeScaffold
		case len(c.Marketplaces) > 1:
			c.Type = report.TypeCrossMarketplace
		default:
			c.Type = report.TypeInternal
		}

		for _, m := range members {
			id := cid
			recs[m].InCluster = true
			recs[m].ClusterID = &id
		}
		clusters = append(clusters, c)
	}
	return clusters
}

// IsOfficialMarketplace reports whether name matches the configured
// official prefix allow-list.
func IsOfficialMarketplace(name string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

type unionFind struct {
	parent []int
	rank   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n), rank: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (uf *unionFind) find(x int) int {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

func (uf *unionFind) union(a, b int) {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return
	}
	if uf.rank[ra] < uf.rank[rb] {
		ra, rb = rb, ra
	}
	uf.parent[rb] = ra
	if uf.rank[ra] == uf.rank[rb] {
		uf.rank[ra]++
	}
}
