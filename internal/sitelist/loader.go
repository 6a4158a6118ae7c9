package sitelist

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// LoadUsernameSites reads and validates a username catalogue.
func LoadUsernameSites(path string) (*UsernameSitesFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read username catalogue %s: %w", path, err)
	}
	var file UsernameSitesFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse username catalogue %s: %w", path, err)
	}
	for _, site := range file.Sites {
		if err := site.validate(); err != nil {
			return nil, fmt.Errorf("username catalogue %s: %w", path, err)
		}
	}
	return &file, nil
}

// LoadEmailSites reads and validates an email catalogue.
func LoadEmailSites(path string) (*EmailSitesFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read email catalogue %s: %w", path, err)
	}
	var file EmailSitesFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse email catalogue %s: %w", path, err)
	}
	for _, site := range file.Sites {
		if err := site.validate(); err != nil {
			return nil, fmt.Errorf("email catalogue %s: %w", path, err)
		}
	}
	return &file, nil
}

// DefaultListPath looks for a catalogue in the usual spots: the data dir,
// a sibling blackbird checkout, then the working directory. Returns "" when
// none exists.
func DefaultListPath(dataDir, filename string) string {
	if dataDir == "" {
		dataDir = "data"
	}
	candidates := []string{
		filepath.Join(dataDir, filename),
		filepath.Join("..", "blackbird", "data", filename),
		filename,
	}
	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}
	return ""
}
