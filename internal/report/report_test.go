package report

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

// fixtureReport builds a consistent two-cluster report: files 0+1 duplicate
// each other across marketplaces, 2+3 inside one marketplace, 4 and 5 are
// unclustered.
func fixtureReport() *Report {
	cid0, cid1 := 0, 1
	r := &Report{
		Metadata: Metadata{
			Version:             SchemaVersion,
			GeneratedAt:         "2026-08-24T10:00:00Z",
			SimilarityThreshold: 0.7,
			NumPermutations:     128,
			ShingleSize:         3,
			Confidence:          ConfidenceHigh,
			Warnings:            []string{},
		},
		Summary: Summary{
			TotalFilesScanned:  6,
			FilesInClusters:    4,
			UnclusteredFiles:   2,
			UniqueClusters:     2,
			UniqueMarketplaces: 2,
			ByType: map[string]TypeCount{
				TypeCrossMarketplace: {Clusters: 1, Files: 2},
				TypeInternal:         {Clusters: 1, Files: 2},
				TypeScaffold:         {},
			},
		},
		FileIndex: []FileRecord{
			{FileIndex: 0, Marketplace: "alpha", Plugin: "backend", Path: "agents/architect.md", Filename: "architect.md", InCluster: true, ClusterID: &cid0},
			{FileIndex: 1, Marketplace: "beta", Plugin: "backend", Path: "agents/architect.md", Filename: "architect.md", InCluster: true, ClusterID: &cid0},
			{FileIndex: 2, Marketplace: "alpha", Plugin: "api", Path: "skills/rest/SKILL.md", Filename: "SKILL.md", InCluster: true, ClusterID: &cid1},
			{FileIndex: 3, Marketplace: "alpha", Plugin: "api-v2", Path: "skills/rest2/SKILL.md", Filename: "SKILL.md", InCluster: true, ClusterID: &cid1},
			{FileIndex: 4, Marketplace: "beta", Plugin: "tools", Path: "docs/notes.md", Filename: "notes.md"},
			{FileIndex: 5, Marketplace: "beta", Plugin: "tools", Path: "docs/setup.md", Filename: "setup.md"},
		},
		Clusters: []Cluster{
			{
				ClusterID:     0,
				Type:          TypeCrossMarketplace,
				Size:          2,
				AvgSimilarity: 0.953,
				Marketplaces:  []string{"alpha", "beta"},
				Members:       []int{0, 1},
				Locations: []Location{
					{Marketplace: "alpha", Plugin: "backend", Path: "agents/architect.md"},
					{Marketplace: "beta", Plugin: "backend", Path: "agents/architect.md"},
				},
				SimilarityPairs: []SimilarityPair{{File1: 0, File2: 1, Similarity: 0.953125}},
			},
			{
				ClusterID:     1,
				Type:          TypeInternal,
				Size:          2,
				AvgSimilarity: 0.82,
				Marketplaces:  []string{"alpha"},
				Members:       []int{2, 3},
				Locations: []Location{
					{Marketplace: "alpha", Plugin: "api", Path: "skills/rest/SKILL.md"},
					{Marketplace: "alpha", Plugin: "api-v2", Path: "skills/rest2/SKILL.md"},
				},
				SimilarityPairs: []SimilarityPair{{File1: 2, File2: 3, Similarity: 0.8203125}},
			},
		},
	}
	r.BuildIndices()
	return r
}

func TestWriteLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "similarity_report.json")
	orig := fixtureReport()

	if err := Write(path, orig); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(got.Metadata, orig.Metadata) {
		t.Errorf("metadata changed: %+v", got.Metadata)
	}
	if !reflect.DeepEqual(got.Clusters, orig.Clusters) {
		t.Error("clusters changed across round trip")
	}
	if !reflect.DeepEqual(got.FileIndex, orig.FileIndex) {
		t.Error("file index changed across round trip")
	}
	if got.ClusterByID(1) == nil {
		t.Error("lookup maps not rebuilt on load")
	}
}

func TestWrite_Atomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "similarity_report.json")
	if err := Write(path, fixtureReport()); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file left behind")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want wrapped os.ErrNotExist", err)
	}
}

func TestLoad_NewerSchemaRefused(t *testing.T) {
	path := filepath.Join(t.TempDir(), "similarity_report.json")
	r := fixtureReport()
	r.Metadata.Version = "3.0"
	if err := Write(path, r); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	if !errors.Is(err, ErrSchemaVersion) {
		t.Errorf("err = %v, want ErrSchemaVersion", err)
	}
}

func TestLoad_TamperedMembershipRefused(t *testing.T) {
	path := filepath.Join(t.TempDir(), "similarity_report.json")
	r := fixtureReport()
	wrong := 1
	r.FileIndex[0].ClusterID = &wrong // file 0 is a member of cluster 0
	if err := Write(path, r); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	if !errors.Is(err, ErrInconsistent) {
		t.Errorf("err = %v, want ErrInconsistent", err)
	}
}

func TestLoad_PairBelowThresholdRefused(t *testing.T) {
	path := filepath.Join(t.TempDir(), "similarity_report.json")
	r := fixtureReport()
	r.Clusters[0].SimilarityPairs[0].Similarity = 0.5
	if err := Write(path, r); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	if !errors.Is(err, ErrInconsistent) {
		t.Errorf("err = %v, want ErrInconsistent", err)
	}
}

func TestLoad_SummaryMismatchRefused(t *testing.T) {
	path := filepath.Join(t.TempDir(), "similarity_report.json")
	r := fixtureReport()
	r.Summary.FilesInClusters = 3
	r.Summary.UnclusteredFiles = 3
	if err := Write(path, r); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	if !errors.Is(err, ErrInconsistent) {
		t.Errorf("err = %v, want ErrInconsistent", err)
	}
}

func TestLoad_LegacyReport(t *testing.T) {
	legacy := map[string]any{
		"summary": map[string]any{
			"total_files_scanned":  3,
			"similarity_threshold": 0.7,
		},
		"clusters": []map[string]any{
			{
				"type":           "cross-marketplace",
				"size":           2,
				"avg_similarity": 0.91,
				"locations": []map[string]any{
					{"marketplace": "alpha", "plugin": "backend", "path": "agents/a.md"},
					{"marketplace": "beta", "plugin": "backend", "path": "agents/a.md"},
				},
			},
		},
	}
	b, err := json.Marshal(legacy)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "similarity_report.json")
	if err := os.WriteFile(path, b, 0o644); err != nil {
		t.Fatal(err)
	}

	r, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if r.Metadata.Version != "1.0" {
		t.Errorf("version = %q, want 1.0", r.Metadata.Version)
	}
	if r.Metadata.Confidence != ConfidenceUnknown {
		t.Errorf("confidence = %q, want unknown", r.Metadata.Confidence)
	}
	if len(r.FileIndex) != 2 || !r.FileIndex[0].InCluster {
		t.Errorf("synthesized file index = %+v", r.FileIndex)
	}
	if r.Summary.FilesInClusters != 2 || r.Summary.UnclusteredFiles != 1 {
		t.Errorf("summary = %+v", r.Summary)
	}
	if got := r.Where("a.md"); len(got.Matches) != 1 {
		t.Errorf("legacy report not queryable: %+v", got)
	}
}

func TestBuildIndices(t *testing.T) {
	r := fixtureReport()

	if got := r.MarketplaceIndex["alpha"]; !reflect.DeepEqual(got, []int{0, 1}) {
		t.Errorf("alpha index = %v, want [0 1]", got)
	}
	if got := r.MarketplaceIndex["beta"]; !reflect.DeepEqual(got, []int{0}) {
		t.Errorf("beta index = %v, want [0]", got)
	}
	if got := r.FilenameIndex["SKILL.md"]; !reflect.DeepEqual(got, []int{1}) {
		t.Errorf("SKILL.md index = %v, want [1]", got)
	}
	if f := r.FileByIndex(3); f == nil || f.Plugin != "api-v2" {
		t.Errorf("FileByIndex(3) = %+v", f)
	}
	if r.FileByIndex(99) != nil {
		t.Error("out-of-range index should return nil")
	}
}
