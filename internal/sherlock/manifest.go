// Package sherlock runs username checks against the sherlock-project site
// manifest (400+ sites). The manifest is fetched once into the data dir and
// reused across hunts.
package sherlock

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/osinthound/osinthound/internal/webclient"
)

// ManifestURL is the upstream raw manifest location.
const ManifestURL = "https://raw.githubusercontent.com/sherlock-project/sherlock/master/" +
	"sherlock_project/resources/data.json"

const manifestFilename = "sherlock.json"

// Site is one manifest entry. Field names match the upstream JSON.
type Site struct {
	URL            string         `json:"url"`
	URLMain        string         `json:"urlMain"`
	URLProbe       string         `json:"urlProbe,omitempty"`
	ErrorType      string         `json:"errorType"`
	ErrorMsg       any            `json:"errorMsg,omitempty"` // string or []string upstream
	ErrorCode      any            `json:"errorCode,omitempty"`
	ErrorURL       string         `json:"errorUrl,omitempty"`
	RegexCheck     string         `json:"regexCheck,omitempty"`
	IsNSFW         bool           `json:"isNSFW,omitempty"`
	Headers        map[string]any `json:"headers,omitempty"`
	RequestMethod  string         `json:"request_method,omitempty"`
	RequestPayload any            `json:"request_payload,omitempty"`
}

// Manifest maps site name to its check description.
type Manifest map[string]Site

// errorMessages flattens the string-or-list ErrorMsg field.
func (s Site) errorMessages() []string {
	switch v := s.ErrorMsg.(type) {
	case string:
		return []string{v}
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	default:
		return nil
	}
}

// errorCodes flattens the int-or-list ErrorCode field.
func (s Site) errorCodes() []int {
	switch v := s.ErrorCode.(type) {
	case float64:
		return []int{int(v)}
	case []any:
		out := make([]int, 0, len(v))
		for _, item := range v {
			if n, ok := item.(float64); ok {
				out = append(out, int(n))
			}
		}
		return out
	default:
		return nil
	}
}

// LoadManifest returns the cached manifest from <dataDir>/sherlock.json,
// downloading it first when absent or when refresh is set.
func LoadManifest(ctx context.Context, client *http.Client, dataDir string, refresh bool) (Manifest, error) {
	if dataDir == "" {
		dataDir = "data"
	}
	path := filepath.Join(dataDir, manifestFilename)

	if !refresh {
		if data, err := os.ReadFile(path); err == nil {
			manifest, err := parseManifest(data)
			if err == nil {
				return manifest, nil
			}
			log.Warn().Err(err).Str("path", path).Msg("Cached sherlock manifest unreadable; refetching")
		}
	}

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", dataDir, err)
	}

	resp, err := webclient.Get(ctx, client, ManifestURL, map[string]string{"Accept": "application/json"})
	if err != nil {
		return nil, fmt.Errorf("download sherlock manifest: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download sherlock manifest: unexpected status %d", resp.StatusCode)
	}

	manifest, err := parseManifest(resp.Body)
	if err != nil {
		return nil, err
	}

	if err := os.WriteFile(path, append(resp.Body, '\n'), 0o644); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Failed to cache sherlock manifest")
	}
	return manifest, nil
}

// LoadManifestFile reads a manifest from an explicit path, bypassing the
// cache and the network.
func LoadManifestFile(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sherlock manifest %s: %w", path, err)
	}
	return parseManifest(data)
}

func parseManifest(data []byte) (Manifest, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse sherlock manifest: %w", err)
	}

	manifest := make(Manifest, len(raw))
	for name, body := range raw {
		if name == "$schema" {
			continue
		}
		var site Site
		if err := json.Unmarshal(body, &site); err != nil {
			// Entries that are not objects (metadata keys) are skipped.
			continue
		}
		if site.URL == "" {
			continue
		}
		manifest[name] = site
	}
	return manifest, nil
}
