package scanners

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/osinthound/osinthound/internal/models"
	"github.com/osinthound/osinthound/internal/webclient"
)

const redditCommentLimit = 10

// redditHeaders: reddit rejects unusual user agents on its JSON endpoints,
// so these probes pin a compatible one.
var redditHeaders = map[string]string{
	"Accept":     "application/json",
	"User-Agent": "Mozilla/5.0 (compatible; osinthound/1.0)",
}

// Reddit confirms a username through about.json and pulls light metadata
// plus recent comments for the analyst.
type Reddit struct {
	client  *http.Client
	baseURL string
}

func NewReddit(client *http.Client) *Reddit {
	return &Reddit{client: client, baseURL: "https://www.reddit.com"}
}

func (s *Reddit) Name() string { return "reddit" }

func (s *Reddit) Scan(ctx context.Context, username string) ([]models.SocialProfile, error) {
	publicURL := fmt.Sprintf("%s/user/%s/", s.baseURL, username)

	profile := models.SocialProfile{
		URL:         publicURL,
		Username:    username,
		NetworkName: "reddit",
		Metadata:    map[string]any{"source": "reddit_about_json"},
	}

	about, resp, err := s.fetchAbout(ctx, username)
	if err != nil {
		return nil, err
	}
	profile.Metadata["status_code"] = resp.StatusCode
	profile.Metadata["final_url"] = resp.FinalURL
	if about == nil {
		return []models.SocialProfile{profile}, nil
	}

	profile.Exists = true
	profile.Bio = about.Data.Subreddit.PublicDescription
	if about.Data.Subreddit.IconImg != "" {
		profile.ImageURL = about.Data.Subreddit.IconImg
	}
	mergeRedditAbout(profile.Metadata, about)

	if comments, subreddits := s.fetchRecentComments(ctx, username); len(comments) > 0 {
		profile.Metadata["recent_comments"] = comments
		profile.Metadata["subreddits"] = subreddits
	}

	return []models.SocialProfile{profile}, nil
}

type redditAbout struct {
	Data struct {
		Name       string  `json:"name"`
		ID         string  `json:"id"`
		CreatedUTC float64 `json:"created_utc"`
		Subreddit  struct {
			PublicDescription string `json:"public_description"`
			Title             string `json:"title"`
			IconImg           string `json:"icon_img"`
			BannerImg         string `json:"banner_img"`
			Over18            bool   `json:"over_18"`
			Subscribers       int64  `json:"subscribers"`
		} `json:"subreddit"`
	} `json:"data"`
}

func (s *Reddit) fetchAbout(ctx context.Context, username string) (*redditAbout, *webclient.Response, error) {
	url := fmt.Sprintf("%s/user/%s/about.json", s.baseURL, username)
	resp, err := fetch(ctx, s.client, url, redditHeaders)
	if err != nil {
		return nil, nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, resp, nil
	}

	var about redditAbout
	if err := json.Unmarshal(resp.Body, &about); err != nil {
		return nil, resp, nil
	}
	if about.Data.Name == "" && about.Data.ID == "" {
		return nil, resp, nil
	}
	return &about, resp, nil
}

type redditListing struct {
	Data struct {
		Children []struct {
			Data struct {
				Body       string  `json:"body"`
				Subreddit  string  `json:"subreddit"`
				CreatedUTC float64 `json:"created_utc"`
				Permalink  string  `json:"permalink"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

func (s *Reddit) fetchRecentComments(ctx context.Context, username string) ([]map[string]any, []string) {
	url := fmt.Sprintf("%s/user/%s/comments.json?limit=%d", s.baseURL, username, redditCommentLimit)
	resp, err := fetch(ctx, s.client, url, redditHeaders)
	if err != nil || resp.StatusCode != http.StatusOK {
		return nil, nil
	}

	var listing redditListing
	if err := json.Unmarshal(resp.Body, &listing); err != nil {
		return nil, nil
	}

	var comments []map[string]any
	seen := map[string]struct{}{}
	for _, child := range listing.Data.Children {
		body := strings.TrimSpace(child.Data.Body)
		if body == "" {
			continue
		}
		if child.Data.Subreddit != "" {
			seen[child.Data.Subreddit] = struct{}{}
		}
		comments = append(comments, map[string]any{
			"body":        child.Data.Body,
			"subreddit":   child.Data.Subreddit,
			"created_utc": child.Data.CreatedUTC,
			"permalink":   child.Data.Permalink,
		})
	}

	subreddits := make([]string, 0, len(seen))
	for name := range seen {
		subreddits = append(subreddits, name)
	}
	sort.Strings(subreddits)
	return comments, subreddits
}

func mergeRedditAbout(metadata map[string]any, about *redditAbout) {
	metadata["api"] = "reddit"
	metadata["name"] = about.Data.Name
	metadata["id"] = about.Data.ID
	metadata["created_utc"] = about.Data.CreatedUTC
	if about.Data.CreatedUTC > 0 {
		metadata["created_at"] = time.Unix(int64(about.Data.CreatedUTC), 0).UTC().Format(time.RFC3339)
	}
	sub := about.Data.Subreddit
	if sub.PublicDescription != "" {
		metadata["public_description"] = sub.PublicDescription
	}
	if sub.Title != "" {
		metadata["title"] = sub.Title
	}
	if sub.IconImg != "" {
		metadata["icon_img"] = sub.IconImg
	}
	if sub.BannerImg != "" {
		metadata["banner_img"] = sub.BannerImg
	}
	metadata["over_18"] = sub.Over18
	metadata["subscribers"] = sub.Subscribers
}
