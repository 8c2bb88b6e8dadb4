package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Write serializes the report to path atomically: the document is written
// to a temporary file next to the target and renamed into place, so a
// failed write leaves any previous report intact.
func Write(path string, r *Report) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cannot create report dir %s: %w", filepath.Dir(path), err)
	}

	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal report: %w", err)
	}
	b = append(b, '\n')

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("cannot write report %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("cannot install report %s: %w", path, err)
	}
	return nil
}
