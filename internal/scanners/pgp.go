package scanners

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/osinthound/osinthound/internal/models"
)

// Key servers answer 200 whether or not the search matched, so existence is
// decided by scanning the page for their "no results" phrasing.

var openPGPNotFoundMarkers = []string{"No results", "No keys found", "No matching keys"}

// OpenPGPKeys searches keys.openpgp.org for keys bound to the email.
type OpenPGPKeys struct {
	client  *http.Client
	baseURL string
}

func NewOpenPGPKeys(client *http.Client) *OpenPGPKeys {
	return &OpenPGPKeys{client: client, baseURL: "https://keys.openpgp.org"}
}

func (s *OpenPGPKeys) Name() string { return "openpgp_keys" }

func (s *OpenPGPKeys) Scan(ctx context.Context, value string) ([]models.SocialProfile, error) {
	email := normalizeEmail(value)
	searchURL := fmt.Sprintf("%s/search?q=%s", s.baseURL, url.QueryEscape(email))

	resp, err := fetch(ctx, s.client, searchURL, nil)
	if err != nil {
		return nil, err
	}

	body := resp.BodyString()
	found := resp.StatusCode == http.StatusOK
	for _, marker := range openPGPNotFoundMarkers {
		if strings.Contains(body, marker) {
			found = false
			break
		}
	}

	metadata := statusMetadata(resp)
	metadata["heuristic"] = "content"

	return []models.SocialProfile{{
		URL:         resp.FinalURL,
		Username:    email,
		NetworkName: "openpgp_keys",
		Exists:      found,
		Metadata:    metadata,
	}}, nil
}

// UbuntuKeyserver runs an HKP index lookup on keyserver.ubuntu.com.
type UbuntuKeyserver struct {
	client  *http.Client
	baseURL string
}

func NewUbuntuKeyserver(client *http.Client) *UbuntuKeyserver {
	return &UbuntuKeyserver{client: client, baseURL: "https://keyserver.ubuntu.com"}
}

func (s *UbuntuKeyserver) Name() string { return "ubuntu_keyserver" }

func (s *UbuntuKeyserver) Scan(ctx context.Context, value string) ([]models.SocialProfile, error) {
	email := normalizeEmail(value)
	searchURL := fmt.Sprintf("%s/pks/lookup?op=index&search=%s", s.baseURL, url.QueryEscape(email))

	resp, err := fetch(ctx, s.client, searchURL, nil)
	if err != nil {
		return nil, err
	}

	found := resp.StatusCode == http.StatusOK && !strings.Contains(resp.BodyString(), "No results")

	metadata := statusMetadata(resp)
	metadata["heuristic"] = "content"

	return []models.SocialProfile{{
		URL:         resp.FinalURL,
		Username:    email,
		NetworkName: "ubuntu_keyserver",
		Exists:      found,
		Metadata:    metadata,
	}}, nil
}
