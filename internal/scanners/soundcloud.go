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

// SoundCloud returns 404 for free handles; for real ones the og tags carry
// the display name and listener-facing blurb.
type SoundCloud struct {
	client  *http.Client
	baseURL string
}

func NewSoundCloud(client *http.Client) *SoundCloud {
	return &SoundCloud{client: client, baseURL: "https://soundcloud.com"}
}

func (s *SoundCloud) Name() string { return "soundcloud" }

func (s *SoundCloud) Scan(ctx context.Context, username string) ([]models.SocialProfile, error) {
	url := fmt.Sprintf("%s/%s", s.baseURL, username)

	resp, err := fetch(ctx, s.client, url, nil)
	if err != nil {
		return nil, err
	}

	exists := resp.StatusCode == http.StatusOK
	metadata := statusMetadata(resp)
	var imageURL string

	if exists {
		if doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body)); err == nil {
			if title, ok := doc.Find(`meta[property="og:title"]`).First().Attr("content"); ok {
				if name := strings.TrimSpace(title); name != "" {
					metadata["name"] = name
				}
			}
			if description, ok := doc.Find(`meta[property="og:description"]`).First().Attr("content"); ok {
				metadata["description"] = description
			}
			if avatar, ok := doc.Find(`meta[property="og:image"]`).First().Attr("content"); ok {
				imageURL = avatar
			}
		}
	}

	return []models.SocialProfile{{
		URL:         resp.FinalURL,
		Username:    username,
		NetworkName: "soundcloud",
		Exists:      exists,
		ImageURL:    imageURL,
		Metadata:    metadata,
	}}, nil
}
