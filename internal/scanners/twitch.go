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

// Twitch always serves its SPA shell with a 200, so the og:title meta tag
// (only rendered for real channels) is the existence signal.
type Twitch struct {
	client  *http.Client
	baseURL string
}

func NewTwitch(client *http.Client) *Twitch {
	return &Twitch{client: client, baseURL: "https://www.twitch.tv"}
}

func (s *Twitch) Name() string { return "twitch" }

func (s *Twitch) Scan(ctx context.Context, username string) ([]models.SocialProfile, error) {
	url := fmt.Sprintf("%s/%s", s.baseURL, username)

	resp, err := fetch(ctx, s.client, url, nil)
	if err != nil {
		return nil, err
	}

	exists := false
	metadata := statusMetadata(resp)

	if resp.StatusCode == http.StatusOK {
		if doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body)); err == nil {
			titleSel := doc.Find(`meta[property="og:title"]`).First()
			if titleSel.Length() > 0 {
				exists = true
				title, _ := titleSel.Attr("content")
				metadata["name"] = strings.Trim(strings.ReplaceAll(title, "Twitch", ""), " ·-")

				if description, ok := doc.Find(`meta[name="description"]`).First().Attr("content"); ok {
					metadata["description"] = description
				}
				if avatar, ok := doc.Find(`meta[property="og:image"]`).First().Attr("content"); ok {
					metadata["avatar_url"] = avatar
				}
			}
		}
	}

	return []models.SocialProfile{{
		URL:         resp.FinalURL,
		Username:    username,
		NetworkName: "twitch",
		Exists:      exists,
		Metadata:    metadata,
	}}, nil
}
