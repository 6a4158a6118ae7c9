package scanners

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/osinthound/osinthound/internal/models"
	"github.com/osinthound/osinthound/internal/webclient"
)

const (
	githubEventLimit  = 10
	githubCommitLimit = 20
)

// GitHub confirms a username through the public REST API and enriches the
// finding with profile fields plus recent push activity. The canonical
// profile URL stays https://github.com/<user> regardless of the API host.
type GitHub struct {
	client     *http.Client
	apiBaseURL string
	webBaseURL string
}

func NewGitHub(client *http.Client) *GitHub {
	return &GitHub{
		client:     client,
		apiBaseURL: "https://api.github.com",
		webBaseURL: "https://github.com",
	}
}

func (s *GitHub) Name() string { return "github" }

func (s *GitHub) Scan(ctx context.Context, username string) ([]models.SocialProfile, error) {
	publicURL := fmt.Sprintf("%s/%s", s.webBaseURL, username)

	profile := models.SocialProfile{
		URL:         publicURL,
		Username:    username,
		NetworkName: "github",
		Metadata:    map[string]any{"source": "github_api"},
	}

	user, resp, err := s.fetchUser(ctx, username)
	if err != nil {
		return nil, err
	}
	profile.Metadata["status_code"] = resp.StatusCode
	profile.Metadata["final_url"] = resp.FinalURL
	if user == nil {
		return []models.SocialProfile{profile}, nil
	}

	profile.Exists = true
	profile.Bio = user.Bio
	profile.ImageURL = user.AvatarURL
	mergeGitHubUser(profile.Metadata, user)

	// Activity is best effort: unauthenticated event reads rate-limit fast.
	if commits := s.fetchRecentCommits(ctx, username); len(commits) > 0 {
		profile.Metadata["recent_commits"] = commits
	}

	return []models.SocialProfile{profile}, nil
}

type githubUser struct {
	Login           string `json:"login"`
	Name            string `json:"name"`
	Bio             string `json:"bio"`
	Company         string `json:"company"`
	Location        string `json:"location"`
	Blog            string `json:"blog"`
	Email           string `json:"email"`
	TwitterUsername string `json:"twitter_username"`
	AvatarURL       string `json:"avatar_url"`
	HTMLURL         string `json:"html_url"`
	PublicRepos     int    `json:"public_repos"`
	Followers       int    `json:"followers"`
	Following       int    `json:"following"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}

func (s *GitHub) fetchUser(ctx context.Context, username string) (*githubUser, *webclient.Response, error) {
	url := fmt.Sprintf("%s/users/%s", s.apiBaseURL, username)
	resp, err := fetch(ctx, s.client, url, map[string]string{
		"Accept": "application/vnd.github+json",
	})
	if err != nil {
		return nil, nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, resp, nil
	}

	var user githubUser
	if err := json.Unmarshal(resp.Body, &user); err != nil {
		return nil, resp, nil
	}
	return &user, resp, nil
}

type githubEvent struct {
	Type      string `json:"type"`
	CreatedAt string `json:"created_at"`
	Payload   struct {
		Commits []struct {
			Message string `json:"message"`
		} `json:"commits"`
	} `json:"payload"`
}

func (s *GitHub) fetchRecentCommits(ctx context.Context, username string) []map[string]any {
	url := fmt.Sprintf("%s/users/%s/events/public", s.apiBaseURL, username)
	resp, err := fetch(ctx, s.client, url, map[string]string{
		"Accept": "application/vnd.github+json",
	})
	if err != nil || resp.StatusCode != http.StatusOK {
		return nil
	}

	var events []githubEvent
	if err := json.Unmarshal(resp.Body, &events); err != nil {
		return nil
	}
	if len(events) > githubEventLimit {
		events = events[:githubEventLimit]
	}

	var commits []map[string]any
	for _, event := range events {
		if event.Type != "PushEvent" {
			continue
		}
		for _, commit := range event.Payload.Commits {
			message := strings.TrimSpace(commit.Message)
			if message == "" {
				continue
			}
			commits = append(commits, map[string]any{
				"message":   message,
				"timestamp": event.CreatedAt,
			})
			if len(commits) == githubCommitLimit {
				return commits
			}
		}
	}
	return commits
}

func mergeGitHubUser(metadata map[string]any, user *githubUser) {
	metadata["api"] = "github"
	for key, value := range map[string]string{
		"login":            user.Login,
		"name":             user.Name,
		"bio":              user.Bio,
		"company":          user.Company,
		"location":         user.Location,
		"blog":             user.Blog,
		"email":            user.Email,
		"twitter_username": user.TwitterUsername,
		"avatar_url":       user.AvatarURL,
		"html_url":         user.HTMLURL,
		"created_at":       user.CreatedAt,
		"updated_at":       user.UpdatedAt,
	} {
		if value != "" {
			metadata[key] = value
		}
	}
	metadata["public_repos"] = user.PublicRepos
	metadata["followers"] = user.Followers
	metadata["following"] = user.Following
}
