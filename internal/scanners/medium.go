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

// Medium probes medium.com/@<user>. Missing authors still answer 200 with a
// generic page, so existence hinges on the og:title being personalized.
type Medium struct {
	client  *http.Client
	baseURL string
}

func NewMedium(client *http.Client) *Medium {
	return &Medium{client: client, baseURL: "https://medium.com"}
}

func (s *Medium) Name() string { return "medium" }

func (s *Medium) Scan(ctx context.Context, username string) ([]models.SocialProfile, error) {
	url := fmt.Sprintf("%s/@%s", s.baseURL, username)

	resp, err := fetch(ctx, s.client, url, nil)
	if err != nil {
		return nil, err
	}

	exists := false
	metadata := statusMetadata(resp)

	if resp.StatusCode == http.StatusOK {
		if doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body)); err == nil {
			title, _ := doc.Find(`meta[property="og:title"]`).First().Attr("content")
			if title != "" && title != "Medium" {
				exists = true
				metadata["name"] = strings.TrimSpace(strings.ReplaceAll(title, "– Medium", ""))

				if description, ok := doc.Find(`meta[name="description"]`).First().Attr("content"); ok && description != "" {
					metadata["description"] = description
				}
				if avatar, ok := doc.Find(`meta[property="og:image"]`).First().Attr("content"); ok && avatar != "" {
					metadata["avatar_url"] = avatar
				}
				if posts := recentPosts(doc); len(posts) > 0 {
					metadata["recent_posts"] = posts
				}
			}
		}
	}

	return []models.SocialProfile{{
		URL:         resp.FinalURL,
		Username:    username,
		NetworkName: "medium",
		Exists:      exists,
		Metadata:    metadata,
	}}, nil
}

// recentPosts pairs the page's h2 headings (post titles) with the h3
// snippets that follow them in document order.
func recentPosts(doc *goquery.Document) []map[string]any {
	var titles, snippets []string
	doc.Find("h2").Each(func(_ int, sel *goquery.Selection) {
		if text := strings.TrimSpace(sel.Text()); text != "" {
			titles = append(titles, text)
		}
	})
	doc.Find("h3").Each(func(_ int, sel *goquery.Selection) {
		if text := strings.TrimSpace(sel.Text()); text != "" {
			snippets = append(snippets, text)
		}
	})

	n := len(titles)
	if len(snippets) < n {
		n = len(snippets)
	}
	var posts []map[string]any
	for i := 0; i < n; i++ {
		posts = append(posts, map[string]any{
			"title":   titles[i],
			"content": snippets[i],
		})
	}
	return posts
}
