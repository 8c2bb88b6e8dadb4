package scan

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// InstalledPlugin is one entry from the host environment's inventory file.
type InstalledPlugin struct {
	Name        string
	Marketplace string
	InstallPath string
	Version     string
}

type installedFile struct {
	Plugins map[string][]installedEntry `json:"plugins"`
}

type installedEntry struct {
	InstallPath string `json:"installPath"`
	Version     string `json:"version"`
}

// LoadInstalled parses the installed-plugins inventory. Keys are
// "name@marketplace"; entries missing the marketplace suffix are kept with
// marketplace "unknown". A missing file is an empty inventory, not an error.
func LoadInstalled(path string) ([]InstalledPlugin, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot read installed plugins %s: %w", path, err)
	}

	var raw installedFile
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("invalid installed plugins JSON %s: %w", path, err)
	}

	var out []InstalledPlugin
	for key, installs := range raw.Plugins {
		name, marketplace := key, "unknown"
		if i := strings.LastIndex(key, "@"); i >= 0 {
			name, marketplace = key[:i], key[i+1:]
		}
		for _, inst := range installs {
			if inst.InstallPath == "" {
				continue
			}
			out = append(out, InstalledPlugin{
				Name:        name,
				Marketplace: marketplace,
				InstallPath: inst.InstallPath,
				Version:     inst.Version,
			})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Marketplace != out[j].Marketplace {
			return out[i].Marketplace < out[j].Marketplace
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}
