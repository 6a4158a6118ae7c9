package sherlock

import (
	"bytes"
	"context"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"github.com/osinthound/osinthound/internal/metrics"
	"github.com/osinthound/osinthound/internal/models"
	"github.com/osinthound/osinthound/internal/webclient"
)

// ProgressFunc receives (done, total, siteName) as checks finish.
type ProgressFunc func(done, total int, siteName string)

// Options bound one runner invocation.
type Options struct {
	MaxConcurrency int
	NoNSFW         bool
	Progress       ProgressFunc
}

// PlannedChecks counts the checks Run will perform, for progress reporting.
func PlannedChecks(manifest Manifest, usernames []string, noNSFW bool) int {
	kept := 0
	for _, site := range manifest {
		if noNSFW && site.IsNSFW {
			continue
		}
		kept++
	}
	return kept * len(usernames)
}

type check struct {
	username string
	siteName string
	site     Site
}

// Run evaluates every manifest site for every username. Sites are visited in
// name order so runs are reproducible; results come back in the same order.
func Run(ctx context.Context, client *http.Client, usernames []string, manifest Manifest, opts Options) []models.SocialProfile {
	names := make([]string, 0, len(manifest))
	for name := range manifest {
		names = append(names, name)
	}
	sort.Strings(names)

	var checks []check
	for _, name := range names {
		site := manifest[name]
		if opts.NoNSFW && site.IsNSFW {
			continue
		}
		for _, username := range usernames {
			checks = append(checks, check{username: username, siteName: name, site: site})
		}
	}
	if len(checks) == 0 {
		return nil
	}

	maxConcurrency := opts.MaxConcurrency
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}

	total := len(checks)
	var done atomic.Int64
	var progressMu sync.Mutex

	profiles := make([]models.SocialProfile, len(checks))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(maxConcurrency)

	for i, c := range checks {
		i, c := i, c
		group.Go(func() error {
			profiles[i] = evaluate(groupCtx, client, c)

			outcome := metrics.OutcomeNotFound
			if profiles[i].Exists {
				outcome = metrics.OutcomeFound
			} else if _, failed := profiles[i].Metadata["error"]; failed {
				outcome = metrics.OutcomeError
			}
			metrics.RecordSitelistCheck("sherlock", outcome)

			if opts.Progress != nil {
				n := int(done.Add(1))
				progressMu.Lock()
				opts.Progress(n, total, c.siteName)
				progressMu.Unlock()
			}
			return nil
		})
	}
	_ = group.Wait()

	return profiles
}

// evaluate applies the manifest's detection contract for one site.
func evaluate(ctx context.Context, client *http.Client, c check) models.SocialProfile {
	site := c.site
	networkName := strings.ToLower(c.siteName)

	profileURL := strings.ReplaceAll(site.URL, "{}", c.username)

	profile := models.SocialProfile{
		URL:         profileURL,
		Username:    c.username,
		NetworkName: networkName,
		Metadata:    map[string]any{"source": "sherlock", "site": c.siteName},
	}

	// A regexCheck mismatch means the username cannot exist on this site.
	if site.RegexCheck != "" {
		re, err := regexp.Compile(site.RegexCheck)
		if err == nil && !re.MatchString(c.username) {
			profile.Metadata["skipped"] = "regex_check"
			return profile
		}
	}

	probeURL := profileURL
	if site.URLProbe != "" {
		probeURL = strings.ReplaceAll(site.URLProbe, "{}", c.username)
	}

	headers := make(map[string]string, len(site.Headers))
	for key, value := range site.Headers {
		if str, ok := value.(string); ok {
			headers[key] = str
		}
	}

	resp, err := webclient.Get(ctx, client, probeURL, headers)
	if err != nil {
		profile.Metadata["error"] = "request_failed"
		return profile
	}

	profile.Metadata["status_code"] = resp.StatusCode
	profile.Metadata["final_url"] = resp.FinalURL

	body := resp.BodyString()
	claimed := false

	switch site.ErrorType {
	case "message":
		claimed = true
		for _, msg := range site.errorMessages() {
			if msg != "" && strings.Contains(body, msg) {
				claimed = false
				break
			}
		}
	case "response_url":
		claimed = resp.StatusCode >= 200 && resp.StatusCode < 300
		if claimed && site.ErrorURL != "" {
			errorURL := strings.ReplaceAll(site.ErrorURL, "{}", c.username)
			if strings.HasPrefix(resp.FinalURL, errorURL) {
				claimed = false
			}
		}
	default: // "status_code"
		claimed = resp.StatusCode >= 200 && resp.StatusCode < 300
		for _, code := range site.errorCodes() {
			if resp.StatusCode == code {
				claimed = false
				break
			}
		}
	}

	profile.Exists = claimed
	if claimed {
		attachPageEvidence(profile.Metadata, resp.Body)
	}
	return profile
}

// attachPageEvidence lifts the page title and meta description into metadata
// so downstream filtering can verify the username actually appears on the
// page the site served.
func attachPageEvidence(metadata map[string]any, body []byte) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return
	}
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		metadata["title"] = title
	}
	if description, ok := doc.Find(`meta[name="description"]`).First().Attr("content"); ok && description != "" {
		metadata["meta_description"] = description
	}
}
