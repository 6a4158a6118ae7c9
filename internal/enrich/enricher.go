// Package enrich fills gaps in confirmed profiles by scraping the profile
// page itself. Scanners that already extracted a bio or avatar are left
// alone; this is the generic fallback for sources that only verify
// existence.
package enrich

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"github.com/osinthound/osinthound/internal/models"
	"github.com/osinthound/osinthound/internal/webclient"
)

// Profiles fetches the page behind each confirmed profile that still lacks
// both a bio and an avatar, and fills those fields from the page's title,
// meta description and og:image. Fetch and parse failures leave the profile
// untouched.
func Profiles(ctx context.Context, client *http.Client, profiles []models.SocialProfile, maxConcurrency int) {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}

	var candidates []int
	for i := range profiles {
		if wantsEnrichment(&profiles[i]) {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		return
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(maxConcurrency)
	for _, i := range candidates {
		i := i
		group.Go(func() error {
			enrichOne(groupCtx, client, &profiles[i])
			return nil
		})
	}
	_ = group.Wait()
}

func wantsEnrichment(p *models.SocialProfile) bool {
	if !p.Exists || p.Bio != "" || p.ImageURL != "" {
		return false
	}
	return strings.HasPrefix(p.URL, "http://") || strings.HasPrefix(p.URL, "https://")
}

func enrichOne(ctx context.Context, client *http.Client, profile *models.SocialProfile) {
	resp, err := webclient.Get(ctx, client, profile.URL, nil)
	if err != nil {
		return
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return
	}

	page, ok := ParsePage(resp.Body, resp.FinalURL)
	if !ok {
		return
	}

	meta := profile.Meta()
	if page.Title != "" {
		meta["title"] = page.Title
	}
	if page.Description != "" {
		meta["meta_description"] = page.Description
		if profile.Bio == "" {
			profile.Bio = page.Description
		}
	}
	if page.Image != "" {
		meta["og_image"] = page.Image
		if profile.ImageURL == "" {
			profile.ImageURL = page.Image
		}
	}
}

// Page holds the light metadata extracted from a profile page.
type Page struct {
	Title       string
	Description string
	Image       string
}

// ParsePage extracts the title, meta description and og:image from an HTML
// document. A relative og:image is resolved against baseURL. The second
// return value is false when nothing useful was found.
func ParsePage(body []byte, baseURL string) (Page, bool) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return Page{}, false
	}

	var page Page
	page.Title = strings.TrimSpace(doc.Find("title").First().Text())
	if content, ok := doc.Find(`meta[name="description"]`).First().Attr("content"); ok {
		page.Description = strings.TrimSpace(content)
	}
	if content, ok := doc.Find(`meta[property="og:image"]`).First().Attr("content"); ok {
		if image := strings.TrimSpace(content); image != "" {
			page.Image = resolveRef(baseURL, image)
		}
	}
	return page, page != (Page{})
}

func resolveRef(base, ref string) string {
	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	baseURL, err := url.Parse(base)
	if err != nil || base == "" {
		return ref
	}
	return baseURL.ResolveReference(refURL).String()
}
