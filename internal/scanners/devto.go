package scanners

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/osinthound/osinthound/internal/models"
)

// DevTo resolves a username through the Forem users API, which answers with a
// clean 404 for free handles.
type DevTo struct {
	client  *http.Client
	baseURL string
}

func NewDevTo(client *http.Client) *DevTo {
	return &DevTo{client: client, baseURL: "https://dev.to"}
}

func (s *DevTo) Name() string { return "devto" }

func (s *DevTo) Scan(ctx context.Context, username string) ([]models.SocialProfile, error) {
	profile := models.SocialProfile{
		URL:         fmt.Sprintf("%s/%s", s.baseURL, username),
		Username:    username,
		NetworkName: "devto",
		Metadata:    map[string]any{"source": "devto_api"},
	}

	apiURL := fmt.Sprintf("%s/api/users/by_username?url=%s", s.baseURL, username)
	resp, err := fetch(ctx, s.client, apiURL, map[string]string{"Accept": "application/json"})
	if err != nil {
		return nil, err
	}
	profile.Metadata["status_code"] = resp.StatusCode
	profile.Metadata["final_url"] = resp.FinalURL
	if resp.StatusCode != http.StatusOK {
		return []models.SocialProfile{profile}, nil
	}

	var user devtoUser
	if err := json.Unmarshal(resp.Body, &user); err != nil || user.Username == "" {
		return []models.SocialProfile{profile}, nil
	}

	profile.Exists = true
	profile.Bio = user.Summary
	profile.ImageURL = user.ProfileImage
	mergeDevToUser(profile.Metadata, &user)

	return []models.SocialProfile{profile}, nil
}

type devtoUser struct {
	Username        string `json:"username"`
	Name            string `json:"name"`
	Summary         string `json:"summary"`
	Location        string `json:"location"`
	JoinedAt        string `json:"joined_at"`
	ProfileImage    string `json:"profile_image"`
	WebsiteURL      string `json:"website_url"`
	GitHubUsername  string `json:"github_username"`
	TwitterUsername string `json:"twitter_username"`
}

func mergeDevToUser(metadata map[string]any, user *devtoUser) {
	metadata["api"] = "devto"
	for key, value := range map[string]string{
		"name":             user.Name,
		"location":         user.Location,
		"joined_at":        user.JoinedAt,
		"website_url":      user.WebsiteURL,
		"github_username":  user.GitHubUsername,
		"twitter_username": user.TwitterUsername,
	} {
		if value != "" {
			metadata[key] = value
		}
	}
}
