package scanners

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/osinthound/osinthound/internal/models"
)

// GitLab checks the public profile page and lifts the display name out of
// the page title.
type GitLab struct {
	client  *http.Client
	baseURL string
}

func NewGitLab(client *http.Client) *GitLab {
	return &GitLab{client: client, baseURL: "https://gitlab.com"}
}

func (s *GitLab) Name() string { return "gitlab" }

func (s *GitLab) Scan(ctx context.Context, username string) ([]models.SocialProfile, error) {
	url := fmt.Sprintf("%s/%s", s.baseURL, username)

	resp, err := fetch(ctx, s.client, url, nil)
	if err != nil {
		return nil, err
	}

	exists := resp.StatusCode == http.StatusOK
	metadata := statusMetadata(resp)
	if server := resp.Header.Get("Server"); server != "" {
		metadata["server"] = server
	}

	if exists {
		if doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body)); err == nil {
			if title := doc.Find("title").First().Text(); title != "" {
				name := strings.Trim(strings.ReplaceAll(title, "· GitLab", ""), " ·-")
				metadata["name"] = name
			}
		}
	}

	return []models.SocialProfile{{
		URL:         resp.FinalURL,
		Username:    username,
		NetworkName: "gitlab",
		Exists:      exists,
		Metadata:    metadata,
	}}, nil
}
