package search

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/librarian-dev/librarian/internal/scan"
)

// minCapabilityLength filters out placeholder files.
const minCapabilityLength = 50

// DiscoverCapabilities scans every marketplace under marketplacesDir for
// skill and agent files and returns their parsed metadata.
func DiscoverCapabilities(marketplacesDir string) ([]Capability, error) {
	entries, err := os.ReadDir(marketplacesDir)
	if err != nil {
		return nil, fmt.Errorf("cannot read marketplaces directory %s: %w", marketplacesDir, err)
	}

	var out []Capability
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		caps, err := scanMarketplace(filepath.Join(marketplacesDir, e.Name()), e.Name())
		if err != nil {
			return nil, err
		}
		out = append(out, caps...)
	}
	return out, nil
}

func scanMarketplace(root, name string) ([]Capability, error) {
	var out []Capability
	walkFn := func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if strings.Contains(strings.ToLower(d.Name()), "backup") {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".md" {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		kind := ""
		for _, part := range strings.Split(rel, "/") {
			if part == "skills" {
				kind = "skill"
				break
			}
			if part == "agents" {
				kind = "agent"
				break
			}
		}
		if kind == "" {
			return nil
		}

		b, err := os.ReadFile(path)
		if err != nil {
			return nil // unreadable capability files are skipped, not fatal
		}
		content := string(b)
		if len(content) < minCapabilityLength {
			return nil
		}

		fm, body := splitFrontmatter(content)

		capName := strings.TrimSuffix(filepath.Base(path), ".md")
		if capName == "SKILL" {
			capName = filepath.Base(filepath.Dir(path))
		}

		desc := strings.TrimSpace(stringValue(fm["description"]))
		if desc == "" {
			desc = inferDescription(body)
		}

		out = append(out, Capability{
			Name:        capName,
			Kind:        kind,
			Description: desc,
			Marketplace: name,
			Plugin:      scan.DerivePlugin(rel),
			Path:        rel,
			Triggers:    stringList(fm["triggers"]),
		})
		return nil
	}

	if err := filepath.WalkDir(root, walkFn); err != nil {
		return nil, fmt.Errorf("cannot scan marketplace %s: %w", name, err)
	}
	return out, nil
}

func inferDescription(body string) string {
	for _, ln := range strings.Split(body, "\n") {
		ln = strings.TrimSpace(ln)
		if ln == "" || strings.HasPrefix(ln, "#") || strings.HasPrefix(ln, "-") {
			continue
		}
		if len(ln) > 200 {
			ln = ln[:200]
		}
		return ln
	}
	return ""
}

// Score rates how well the capability matches the query. Name hits weigh
// most, then description, then triggers; zero means no match.
func (c Capability) Score(query string) float64 {
	queryLower := strings.ToLower(query)
	queryWords := strings.Fields(queryLower)

	score := 0.0
	nameLower := strings.ToLower(c.Name)
	if strings.Contains(nameLower, queryLower) {
		score += 10
	} else if anyWordIn(queryWords, nameLower) {
		score += 5
	}

	descLower := strings.ToLower(c.Description)
	if strings.Contains(descLower, queryLower) {
		score += 5
	} else {
		for _, w := range queryWords {
			if strings.Contains(descLower, w) {
				score += 2
			}
		}
	}

	for _, trigger := range c.Triggers {
		triggerLower := strings.ToLower(trigger)
		if strings.Contains(triggerLower, queryLower) {
			score += 3
		} else if anyWordIn(queryWords, triggerLower) {
			score += 1
		}
	}
	return score
}

func anyWordIn(words []string, s string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// Search scores all capabilities against query and returns the matches
// sorted by score (descending), then name.
func Search(caps []Capability, query string) []Result {
	var out []Result
	for _, c := range caps {
		if score := c.Score(query); score > 0 {
			out = append(out, Result{Capability: c, Score: score})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Capability.Name < out[j].Capability.Name
	})
	return out
}
