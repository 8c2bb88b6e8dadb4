package search

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

const skillContent = `---
name: code-review
description: Review pull requests for style and correctness
triggers:
  - review my code
  - check this PR
---

Detailed review instructions go here, long enough to pass the filter.
`

const agentContent = `---
description: Designs database schemas and migrations
---

You are a database architect. Plan schemas before writing migrations.
`

func setupMarketplaces(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "alpha", "plugins", "review", "skills", "code-review", "SKILL.md"), skillContent)
	writeFile(t, filepath.Join(root, "alpha", "plugins", "db", "agents", "db-architect.md"), agentContent)
	writeFile(t, filepath.Join(root, "beta", "plugins", "misc", "docs", "README.md"), strings.Repeat("not a capability ", 10))
	writeFile(t, filepath.Join(root, "alpha", "backup-old", "skills", "x", "SKILL.md"), skillContent)
	return root
}

func TestDiscoverCapabilities(t *testing.T) {
	root := setupMarketplaces(t)

	caps, err := DiscoverCapabilities(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(caps) != 2 {
		t.Fatalf("got %d capabilities: %+v", len(caps), caps)
	}

	byName := map[string]Capability{}
	for _, c := range caps {
		byName[c.Name] = c
	}

	skill, ok := byName["code-review"]
	if !ok {
		t.Fatal("SKILL.md capability missing; name should come from its directory")
	}
	if skill.Kind != "skill" || skill.Plugin != "review" || skill.Marketplace != "alpha" {
		t.Errorf("skill = %+v", skill)
	}
	if len(skill.Triggers) != 2 {
		t.Errorf("triggers = %v", skill.Triggers)
	}
	if skill.Description != "Review pull requests for style and correctness" {
		t.Errorf("description = %q", skill.Description)
	}

	agent, ok := byName["db-architect"]
	if !ok {
		t.Fatal("agent capability missing")
	}
	if agent.Kind != "agent" || agent.Plugin != "db" {
		t.Errorf("agent = %+v", agent)
	}
}

func TestDiscoverCapabilities_InfersDescriptionFromBody(t *testing.T) {
	root := t.TempDir()
	content := `---
name: helper
---

# Heading skipped

First real paragraph line becomes the description of this capability.
`
	writeFile(t, filepath.Join(root, "mp", "plugins", "p", "agents", "helper.md"), content)

	caps, err := DiscoverCapabilities(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(caps) != 1 {
		t.Fatalf("caps = %+v", caps)
	}
	if !strings.HasPrefix(caps[0].Description, "First real paragraph") {
		t.Errorf("description = %q", caps[0].Description)
	}
}

func TestScore_Weighting(t *testing.T) {
	c := Capability{
		Name:        "code-review",
		Description: "Review pull requests for style and correctness",
		Triggers:    []string{"review my code"},
	}

	nameHit := c.Score("code-review")
	descHit := c.Score("pull requests")
	miss := c.Score("kubernetes")

	if nameHit <= descHit {
		t.Errorf("name hit %v should outrank description hit %v", nameHit, descHit)
	}
	if descHit == 0 {
		t.Error("description phrase should score")
	}
	if miss != 0 {
		t.Errorf("miss scored %v", miss)
	}
}

func TestSearch_OrdersByScore(t *testing.T) {
	caps := []Capability{
		{Name: "unrelated", Description: "nothing relevant"},
		{Name: "deploy-helper", Description: "deploy services"},
		{Name: "deploy", Description: "deploy anything anywhere"},
	}

	results := Search(caps, "deploy")
	if len(results) != 2 {
		t.Fatalf("results = %+v", results)
	}
	if results[0].Score < results[1].Score {
		t.Error("results not sorted by score")
	}
	for _, r := range results {
		if r.Capability.Name == "unrelated" {
			t.Error("non-matching capability returned")
		}
	}
}

func TestSplitFrontmatter_Malformed(t *testing.T) {
	fm, body := splitFrontmatter("no frontmatter here, just text")
	if len(fm) != 0 || body != "no frontmatter here, just text" {
		t.Errorf("fm=%v body=%q", fm, body)
	}

	fm, _ = splitFrontmatter("---\nunclosed: true\n")
	if len(fm) != 0 {
		t.Errorf("unclosed frontmatter parsed: %v", fm)
	}
}
