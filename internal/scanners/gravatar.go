package scanners

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/osinthound/osinthound/internal/models"
)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// emailMD5 is the public hash gravatar keys avatars and profiles by.
func emailMD5(email string) string {
	return fmt.Sprintf("%x", md5.Sum([]byte(email)))
}

// Gravatar checks avatar existence: with d=404 the CDN answers 404 when the
// email has no avatar.
type Gravatar struct {
	client  *http.Client
	baseURL string
}

func NewGravatar(client *http.Client) *Gravatar {
	return &Gravatar{client: client, baseURL: "https://www.gravatar.com"}
}

func (s *Gravatar) Name() string { return "gravatar" }

func (s *Gravatar) Scan(ctx context.Context, value string) ([]models.SocialProfile, error) {
	email := normalizeEmail(value)
	hash := emailMD5(email)
	url := fmt.Sprintf("%s/avatar/%s?s=200&d=404", s.baseURL, hash)

	resp, err := fetch(ctx, s.client, url, nil)
	if err != nil {
		return nil, err
	}

	exists := resp.StatusCode == http.StatusOK
	metadata := statusMetadata(resp)
	metadata["email_md5"] = hash
	metadata["normalized_email"] = email

	profile := models.SocialProfile{
		URL:         resp.FinalURL,
		Username:    email,
		NetworkName: "gravatar",
		Exists:      exists,
		Metadata:    metadata,
	}
	if exists {
		profile.ImageURL = resp.FinalURL
	}
	return []models.SocialProfile{profile}, nil
}

// GravatarProfile pulls the public profile JSON, which can expose a display
// name, bio, and a list of linked URLs.
type GravatarProfile struct {
	client  *http.Client
	baseURL string
}

func NewGravatarProfile(client *http.Client) *GravatarProfile {
	return &GravatarProfile{client: client, baseURL: "https://en.gravatar.com"}
}

func (s *GravatarProfile) Name() string { return "gravatar_profile" }

func (s *GravatarProfile) Scan(ctx context.Context, value string) ([]models.SocialProfile, error) {
	email := normalizeEmail(value)
	hash := emailMD5(email)
	url := fmt.Sprintf("%s/%s.json", s.baseURL, hash)

	resp, err := fetch(ctx, s.client, url, nil)
	if err != nil {
		return nil, err
	}

	exists := resp.StatusCode == http.StatusOK
	metadata := statusMetadata(resp)
	metadata["email_md5"] = hash
	metadata["normalized_email"] = email

	profile := models.SocialProfile{
		URL:         resp.FinalURL,
		Username:    email,
		NetworkName: "gravatar_profile",
		Exists:      exists,
		Metadata:    metadata,
	}

	if exists {
		var payload struct {
			Entry []struct {
				AboutMe           string `json:"aboutMe"`
				ThumbnailURL      string `json:"thumbnailUrl"`
				DisplayName       string `json:"displayName"`
				PreferredUsername string `json:"preferredUsername"`
				URLs              []struct {
					Title string `json:"title"`
					Value string `json:"value"`
				} `json:"urls"`
			} `json:"entry"`
		}
		if err := json.Unmarshal(resp.Body, &payload); err != nil {
			metadata["parse_error"] = err.Error()
		} else if len(payload.Entry) > 0 {
			entry := payload.Entry[0]
			profile.Bio = entry.AboutMe
			profile.ImageURL = entry.ThumbnailURL
			if entry.DisplayName != "" {
				metadata["display_name"] = entry.DisplayName
			}
			if entry.PreferredUsername != "" {
				metadata["preferred_username"] = entry.PreferredUsername
			}
			if len(entry.URLs) > 0 {
				urls := make([]map[string]any, 0, len(entry.URLs))
				for _, u := range entry.URLs {
					urls = append(urls, map[string]any{"title": u.Title, "value": u.Value})
				}
				metadata["urls"] = urls
			}
		}
	}

	return []models.SocialProfile{profile}, nil
}
