// Package scan discovers content files across marketplace directories and
// loads the host environment's installed-plugin inventory.
package scan

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// File is one content file found during discovery. Path is relative to the
// marketplace root and slash-separated.
type File struct {
	Marketplace string
	Plugin      string
	Path        string
	Content     string
}

// Filename returns the basename of the file's relative path.
func (f File) Filename() string {
	return filepath.Base(f.Path)
}

// Location returns the canonical marketplace/plugin/path form.
func (f File) Location() string {
	return f.Marketplace + "/" + f.Plugin + "/" + f.Path
}

// Options controls which files Discover includes.
type Options struct {
	MinContentLength int      // files shorter than this are skipped (0 = no minimum)
	Extensions       []string // accepted extensions, e.g. [".md"]; empty = all
}

// Result holds discovered files plus per-file skip diagnostics.
type Result struct {
	Files             []File
	SkippedShort      int
	SkippedUnreadable int
}

// Discover walks every marketplace directory under marketplacesDir and
// returns the content files in canonical (marketplace, plugin, path) order.
// Dotted directories and anything on a backup path are ignored. Unreadable
// or too-short files are counted, never fatal.
func Discover(marketplacesDir string, opts Options) (*Result, error) {
	entries, err := os.ReadDir(marketplacesDir)
	if err != nil {
		return nil, fmt.Errorf("cannot read marketplaces directory %s: %w", marketplacesDir, err)
	}

	res := &Result{}
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if err := discoverMarketplace(filepath.Join(marketplacesDir, e.Name()), e.Name(), opts, res); err != nil {
			return nil, err
		}
	}

	sort.Slice(res.Files, func(i, j int) bool {
		a, b := res.Files[i], res.Files[j]
		if a.Marketplace != b.Marketplace {
			return a.Marketplace < b.Marketplace
		}
		if a.Plugin != b.Plugin {
			return a.Plugin < b.Plugin
		}
		return a.Path < b.Path
	})
	return res, nil
}

func discoverMarketplace(root, name string, opts Options, res *Result) error {
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
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		// Filter on the marketplace-relative path only: the corpus root
		// itself may legitimately live under a directory named "backup".
		if strings.Contains(strings.ToLower(rel), "backup") {
			return nil
		}
		if !extensionAccepted(path, opts.Extensions) {
			return nil
		}

		b, err := os.ReadFile(path)
		if err != nil {
			res.SkippedUnreadable++
			return nil
		}
		if len(b) < opts.MinContentLength {
			res.SkippedShort++
			return nil
		}

		res.Files = append(res.Files, File{
			Marketplace: name,
			Plugin:      DerivePlugin(rel),
			Path:        rel,
			Content:     string(b),
		})
		return nil
	}

	if err := filepath.WalkDir(root, walkFn); err != nil {
		return fmt.Errorf("cannot scan marketplace %s: %w", name, err)
	}
	return nil
}

func extensionAccepted(path string, exts []string) bool {
	if len(exts) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}

// DerivePlugin extracts the plugin name from a slash-separated path relative
// to a marketplace root. A path below a plugins/ directory names its plugin
// after the next element; otherwise the first path element is used, and
// top-level files fall back to "root".
func DerivePlugin(relPath string) string {
	parts := strings.Split(relPath, "/")
	for i, p := range parts {
		if p == "plugins" && i+1 < len(parts) {
			return parts[i+1]
		}
	}
	if len(parts) > 1 {
		return parts[0]
	}
	return "root"
}
