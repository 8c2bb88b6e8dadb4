// Package search discovers skill and agent capabilities across marketplaces
// and answers keyword queries over their frontmatter metadata.
package search

// Capability represents one skill or agent found in a marketplace.
type Capability struct {
	Name        string
	Kind        string // "skill" or "agent"
	Description string
	Marketplace string
	Plugin      string
	Path        string
	Triggers    []string
}

// FullPath returns the canonical marketplace/plugin/path form.
func (c Capability) FullPath() string {
	return c.Marketplace + "/" + c.Plugin + "/" + c.Path
}

// Result is one scored capability match.
type Result struct {
	Capability Capability
	Score      float64
}
