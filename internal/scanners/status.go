package scanners

import (
	"context"
	"net/http"

	"github.com/osinthound/osinthound/internal/models"
)

// statusScanner covers networks where a plain 200-versus-404 on the profile
// URL is the best signal available. X and Pinterest sit behind anti-bot
// layers, so these stay best effort.
type statusScanner struct {
	name    string
	client  *http.Client
	baseURL string
	urlFor  func(baseURL, username string) string
}

func (s *statusScanner) Name() string { return s.name }

func (s *statusScanner) Scan(ctx context.Context, username string) ([]models.SocialProfile, error) {
	resp, err := fetch(ctx, s.client, s.urlFor(s.baseURL, username), nil)
	if err != nil {
		return nil, err
	}

	return []models.SocialProfile{{
		URL:         resp.FinalURL,
		Username:    username,
		NetworkName: s.name,
		Exists:      resp.StatusCode == http.StatusOK,
		Metadata:    statusMetadata(resp),
	}}, nil
}

func profilePath(baseURL, username string) string {
	return baseURL + "/" + username
}

func NewX(client *http.Client) Scanner {
	return &statusScanner{name: "x", client: client, baseURL: "https://x.com", urlFor: profilePath}
}

func NewTelegram(client *http.Client) Scanner {
	return &statusScanner{name: "telegram", client: client, baseURL: "https://t.me", urlFor: profilePath}
}

func NewPinterest(client *http.Client) Scanner {
	return &statusScanner{name: "pinterest", client: client, baseURL: "https://www.pinterest.com",
		urlFor: func(baseURL, username string) string { return baseURL + "/" + username + "/" }}
}

func NewKaggle(client *http.Client) Scanner {
	return &statusScanner{name: "kaggle", client: client, baseURL: "https://www.kaggle.com", urlFor: profilePath}
}

func NewGitHubGist(client *http.Client) Scanner {
	return &statusScanner{name: "githubgist", client: client, baseURL: "https://gist.github.com", urlFor: profilePath}
}

func NewNpm(client *http.Client) Scanner {
	return &statusScanner{name: "npm", client: client, baseURL: "https://www.npmjs.com",
		urlFor: func(baseURL, username string) string { return baseURL + "/~" + username }}
}

func NewProductHunt(client *http.Client) Scanner {
	return &statusScanner{name: "producthunt", client: client, baseURL: "https://www.producthunt.com",
		urlFor: func(baseURL, username string) string { return baseURL + "/@" + username }}
}

func NewDribbble(client *http.Client) Scanner {
	return &statusScanner{name: "dribbble", client: client, baseURL: "https://dribbble.com", urlFor: profilePath}
}

func NewBehance(client *http.Client) Scanner {
	return &statusScanner{name: "behance", client: client, baseURL: "https://www.behance.net", urlFor: profilePath}
}
