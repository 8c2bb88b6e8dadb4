package similarity

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/librarian-dev/librarian/internal/report"
	"github.com/librarian-dev/librarian/internal/scan"
)

// DefaultThreshold is the detection threshold used when none is configured.
const DefaultThreshold = 0.7

// Config parameterizes a scan.
type Config struct {
	Threshold        float64
	NumPermutations  int
	ShingleSize      int
	ScaffoldMinSize  int
	OfficialPrefixes []string
	Sanity           SanityConfig
}

// Engine runs the full similarity pipeline: shingle, sign, index, cluster,
// sanity-check, and assemble the report.
type Engine struct {
	cfg    Config
	hasher *MinHasher
}

// NewEngine returns an engine for the given configuration, with defaults
// applied to unset numeric fields.
func NewEngine(cfg Config) *Engine {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.NumPermutations <= 0 {
		cfg.NumPermutations = DefaultNumPermutations
	}
	if cfg.ShingleSize <= 0 {
		cfg.ShingleSize = DefaultShingleSize
	}
	if cfg.ScaffoldMinSize <= 0 {
		cfg.ScaffoldMinSize = DefaultScaffoldMinSize
	}
	if cfg.Sanity == (SanityConfig{}) {
		cfg.Sanity = DefaultSanityConfig()
	}
	return &Engine{cfg: cfg, hasher: NewMinHasher(cfg.NumPermutations)}
}

// Scan builds the similarity report for the given files. Files must already
// be in canonical (marketplace, plugin, path) order; their position becomes
// the file index. Signature construction fans out across workers and is
// gathered by file index, so the result is deterministic; indexing and
// clustering run single-threaded on the gathered signatures.
func (e *Engine) Scan(ctx context.Context, files []scan.File) (*report.Report, error) {
	recs := make([]report.FileRecord, len(files))
	for i, f := range files {
		recs[i] = report.FileRecord{
			FileIndex:   i,
			Marketplace: f.Marketplace,
			Plugin:      f.Plugin,
			Path:        f.Path,
			Filename:    f.Filename(),
			IsOfficial:  IsOfficialMarketplace(f.Marketplace, e.cfg.OfficialPrefixes),
		}
	}

	sigs := make([][]uint32, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range files {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			shingles := Tokenize(files[i].Content, e.cfg.ShingleSize)
			if len(shingles) == 0 {
				return nil // empty content; stays unclustered
			}
			sig, err := e.hasher.Signature(shingles)
			if err != nil {
				return fmt.Errorf("cannot sign %s: %w", files[i].Location(), err)
			}
			sigs[i] = sig
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	idx := NewLSHIndex(e.cfg.NumPermutations, e.cfg.Threshold)
	for i, sig := range sigs {
		if sig != nil {
			idx.Insert(i, sig)
		}
	}

	clusters := BuildClusters(idx, sigs, recs, ClusterConfig{
		Threshold:       e.cfg.Threshold,
		ScaffoldMinSize: e.cfg.ScaffoldMinSize,
	})

	rep := &report.Report{
		Summary:   e.summarize(recs, clusters),
		FileIndex: recs,
		Clusters:  clusters,
	}

	sanity := CheckSanity(e.sanityStats(rep), e.cfg.Sanity)
	bands, rows := idx.Params()
	rep.Metadata = report.Metadata{
		Version:             report.SchemaVersion,
		GeneratedAt:         time.Now().UTC().Format(time.RFC3339),
		SimilarityThreshold: e.cfg.Threshold,
		NumPermutations:     e.cfg.NumPermutations,
		ShingleSize:         e.cfg.ShingleSize,
		LSHBands:            bands,
		LSHRows:             rows,
		Confidence:          sanity.Confidence,
		Warnings:            sanity.Warnings,
	}

	rep.BuildIndices()
	return rep, nil
}

func (e *Engine) summarize(recs []report.FileRecord, clusters []report.Cluster) report.Summary {
	s := report.Summary{
		TotalFilesScanned: len(recs),
		UniqueClusters:    len(clusters),
		ByType:            map[string]report.TypeCount{},
	}
	for _, t := range report.ClusterTypes {
		s.ByType[t] = report.TypeCount{}
	}
	for _, c := range clusters {
		s.FilesInClusters += c.Size
		tc := s.ByType[c.Type]
		tc.Clusters++
		tc.Files += c.Size
		s.ByType[c.Type] = tc
	}
	s.UnclusteredFiles = s.TotalFilesScanned - s.FilesInClusters

	mps := map[string]bool{}
	for _, r := range recs {
		mps[r.Marketplace] = true
	}
	s.UniqueMarketplaces = len(mps)
	return s
}

func (e *Engine) sanityStats(rep *report.Report) SanityStats {
	stats := SanityStats{
		TotalFiles:           rep.Summary.TotalFilesScanned,
		FilesInClusters:      rep.Summary.FilesInClusters,
		UniqueClusters:       rep.Summary.UniqueClusters,
		MarketplaceFiles:     map[string]int{},
		MarketplaceClustered: map[string]int{},
	}
	for _, f := range rep.FileIndex {
		stats.MarketplaceFiles[f.Marketplace]++
		if f.InCluster {
			stats.MarketplaceClustered[f.Marketplace]++
		}
	}
	for _, c := range rep.Clusters {
		stats.ClusterSizes = append(stats.ClusterSizes, c.Size)
	}
	return stats
}
