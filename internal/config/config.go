// Package config reads and writes ~/.librarian/librarian.yaml.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/librarian-dev/librarian/internal/similarity"
)

// Config is the in-memory representation of ~/.librarian/librarian.yaml.
type Config struct {
	MarketplacesDir     string   `yaml:"marketplaces_dir"`
	DataDir             string   `yaml:"data_dir"`
	SimilarityThreshold float64  `yaml:"similarity_threshold"`
	NumPermutations     int      `yaml:"num_permutations"`
	ShingleSize         int      `yaml:"shingle_size"`
	ScaffoldMinSize     int      `yaml:"scaffold_min_size"`
	MinContentLength    int      `yaml:"min_content_length"`
	Extensions          []string `yaml:"extensions,omitempty"`
	OfficialPrefixes    []string `yaml:"official_prefixes,omitempty"`
	InstalledFile       string   `yaml:"installed_file,omitempty"`

	Sanity similarity.SanityConfig `yaml:"sanity,omitempty"`
}

// LibrarianDir returns the absolute path to ~/.librarian/.
func LibrarianDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".librarian"), nil
}

// ConfigPath returns the absolute path to ~/.librarian/librarian.yaml.
func ConfigPath() (string, error) {
	dir, err := LibrarianDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "librarian.yaml"), nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(p string) (string, error) {
	if !strings.HasPrefix(p, "~") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot expand ~: %w", err)
	}
	return filepath.Join(home, p[1:]), nil
}

// Default returns the configuration written on first use.
func Default() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	j := func(parts ...string) string { return filepath.Join(append([]string{home}, parts...)...) }

	return &Config{
		MarketplacesDir:     j(".claude", "plugins", "marketplaces"),
		DataDir:             j(".librarian"),
		SimilarityThreshold: similarity.DefaultThreshold,
		NumPermutations:     similarity.DefaultNumPermutations,
		ShingleSize:         similarity.DefaultShingleSize,
		ScaffoldMinSize:     similarity.DefaultScaffoldMinSize,
		MinContentLength:    100,
		Extensions:          []string{".md"},
		OfficialPrefixes:    []string{"anthropic", "claude-plugins-official"},
		InstalledFile:       j(".claude", "plugins", "installed_plugins.json"),
		Sanity:              similarity.DefaultSanityConfig(),
	}, nil
}

// Load reads and parses ~/.librarian/librarian.yaml.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom reads and parses the config at path.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid YAML in %s: %w", path, err)
	}
	cfg.MarketplacesDir, err = ExpandPath(cfg.MarketplacesDir)
	if err != nil {
		return nil, err
	}
	cfg.DataDir, err = ExpandPath(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// LoadOrInit loads the config, writing the defaults first when no config
// exists yet.
func LoadOrInit() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg, err := Default()
		if err != nil {
			return nil, err
		}
		if err := Save(cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return LoadFrom(path)
}

// Save marshals cfg and writes it to ~/.librarian/librarian.yaml.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cannot create config dir %s: %w", filepath.Dir(path), err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("cannot write config %s: %w", path, err)
	}
	return nil
}

// ReportPath returns the location of the similarity report artifact.
func (c *Config) ReportPath() string {
	return filepath.Join(c.DataDir, "similarity_report.json")
}

// LockPath returns the location of the scan lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.DataDir, "scan.lock")
}

// EngineConfig projects the similarity engine parameters.
func (c *Config) EngineConfig() similarity.Config {
	return similarity.Config{
		Threshold:        c.SimilarityThreshold,
		NumPermutations:  c.NumPermutations,
		ShingleSize:      c.ShingleSize,
		ScaffoldMinSize:  c.ScaffoldMinSize,
		OfficialPrefixes: c.OfficialPrefixes,
		Sanity:           c.Sanity,
	}
}

func (c *Config) applyDefaults() {
	if c.SimilarityThreshold <= 0 {
		c.SimilarityThreshold = similarity.DefaultThreshold
	}
	if c.NumPermutations <= 0 {
		c.NumPermutations = similarity.DefaultNumPermutations
	}
	if c.ShingleSize <= 0 {
		c.ShingleSize = similarity.DefaultShingleSize
	}
	if c.ScaffoldMinSize <= 0 {
		c.ScaffoldMinSize = similarity.DefaultScaffoldMinSize
	}
	if c.MinContentLength <= 0 {
		c.MinContentLength = 100
	}
	if len(c.Extensions) == 0 {
		c.Extensions = []string{".md"}
	}
	if c.Sanity == (similarity.SanityConfig{}) {
		c.Sanity = similarity.DefaultSanityConfig()
	}
}
