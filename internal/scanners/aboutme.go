package scanners

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/osinthound/osinthound/internal/models"
)

var (
	aboutMeAddressRe   = regexp.MustCompile(`(?is)"address":"(.*?)",`)
	aboutMeJobTitleRe  = regexp.MustCompile(`(?is)"jobTitle":"(.*?)",`)
	aboutMeInterestsRe = regexp.MustCompile(`(?is)"knowsAbout":\s*\[(.*?)\]`)
	aboutMeSocialsRe   = regexp.MustCompile(`(?is)"sameAs":\s*\[(.*?)\]`)
	quotedItemRe       = regexp.MustCompile(`"(.*?)"`)
)

// AboutMe scrapes the profile page and, when the embedded schema.org blob
// lists linked accounts, emits one extra profile per link so they surface
// as their own findings.
type AboutMe struct {
	client  *http.Client
	baseURL string
}

func NewAboutMe(client *http.Client) *AboutMe {
	return &AboutMe{client: client, baseURL: "https://about.me"}
}

func (s *AboutMe) Name() string { return "aboutme" }

func (s *AboutMe) Scan(ctx context.Context, username string) ([]models.SocialProfile, error) {
	url := fmt.Sprintf("%s/%s", s.baseURL, username)

	resp, err := fetch(ctx, s.client, url, nil)
	if err != nil {
		return nil, err
	}

	exists := resp.StatusCode == http.StatusOK
	metadata := statusMetadata(resp)
	var socialLinks []string

	if exists {
		socialLinks = s.extractProfile(resp.Body, metadata)
	}

	profiles := []models.SocialProfile{{
		URL:         resp.FinalURL,
		Username:    username,
		NetworkName: "aboutme",
		Exists:      exists,
		Metadata:    metadata,
	}}

	for _, link := range socialLinks {
		parts := strings.Split(strings.TrimRight(link, "/"), "/")
		profiles = append(profiles, models.SocialProfile{
			URL:         link,
			Username:    parts[len(parts)-1],
			NetworkName: "aboutme_social_link",
			Exists:      true,
			Metadata: map[string]any{
				"source":        "aboutme",
				"from_username": username,
			},
		})
	}

	return profiles, nil
}

func (s *AboutMe) extractProfile(body []byte, metadata map[string]any) []string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil
	}

	title := doc.Find("title").First().Text()
	if title == "" {
		return nil
	}

	// Titles read "Name Lastname - City, Region | about.me".
	who := strings.Trim(strings.ReplaceAll(title, "| about.me", ""), " ·-")
	whoParts := strings.SplitN(who, " - ", 2)
	metadata["name"] = strings.TrimSpace(whoParts[0])

	if bio, ok := doc.Find(`meta[property="og:description"]`).First().Attr("content"); ok && bio != "" {
		metadata["bio"] = bio
	}
	if p := doc.Find("section.bio p").First(); p.Length() > 0 {
		metadata["description"] = p.Text()
	}
	if avatar, ok := doc.Find(`meta[property="og:image"]`).First().Attr("content"); ok && avatar != "" {
		metadata["avatar_url"] = avatar
	}

	html := string(body)
	location := ""
	if m := aboutMeAddressRe.FindStringSubmatch(html); m != nil {
		location = m[1]
	} else if len(whoParts) > 1 {
		location = strings.TrimSpace(whoParts[1])
	}
	if location != "" {
		metadata["location"] = location
	}
	if m := aboutMeJobTitleRe.FindStringSubmatch(html); m != nil {
		metadata["jobTitle"] = m[1]
	}
	if m := aboutMeInterestsRe.FindStringSubmatch(html); m != nil {
		metadata["interests"] = quotedItems(m[1])
	}

	var socialLinks []string
	if m := aboutMeSocialsRe.FindStringSubmatch(html); m != nil {
		socialLinks = quotedItems(m[1])
	}
	metadata["social_links"] = socialLinks
	return socialLinks
}

func quotedItems(raw string) []string {
	var items []string
	for _, m := range quotedItemRe.FindAllStringSubmatch(raw, -1) {
		if m[1] != "" {
			items = append(items, m[1])
		}
	}
	return items
}
