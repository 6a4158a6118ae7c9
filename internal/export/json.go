// Package export writes hunt artifacts to disk: a stable JSON dump of the
// person aggregate and a rendered PDF report.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/osinthound/osinthound/internal/models"
)

// WriteJSON exports the aggregate as stable JSON: keys sorted at every level,
// two-space indent, trailing newline. Parent directories are created. Stable
// output keeps successive dumps of the same hunt diffable.
func WriteJSON(person *models.PersonEntity, path string) error {
	raw, err := json.Marshal(person)
	if err != nil {
		return fmt.Errorf("encode person: %w", err)
	}

	// Round-trip through an untyped tree so the final encoding sorts keys
	// everywhere, not just inside metadata maps. UseNumber keeps integer
	// literals intact across the trip.
	var tree any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&tree); err != nil {
		return fmt.Errorf("canonicalize person: %w", err)
	}

	var out bytes.Buffer
	enc := json.NewEncoder(&out)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(tree); err != nil {
		return fmt.Errorf("encode person: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create report directory: %w", err)
		}
	}
	if err := os.WriteFile(path, out.Bytes(), 0644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
