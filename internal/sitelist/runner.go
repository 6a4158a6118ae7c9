package sitelist

import (
	"context"
	"net/http"
	"strings"

	"github.com/IGLOU-EU/go-wildcard/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/osinthound/osinthound/internal/metrics"
	"github.com/osinthound/osinthound/internal/models"
	"github.com/osinthound/osinthound/internal/webclient"
)

const placeholder = "{account}"

// Options bound one engine run.
type Options struct {
	MaxConcurrency int
	Categories     []string // wildcard patterns; empty means all
	NoNSFW         bool
}

// siteCheck is one templated probe, normalized across both catalogue kinds.
type siteCheck struct {
	identifier string // original, pre-transform
	name       string
	url        string
	method     string
	body       string
	headers    map[string]string
	eCode      int
	eString    string
	mCode      int
	mString    string
	cat        string
}

func filterCategory(cat string, opts Options) bool {
	if opts.NoNSFW && strings.EqualFold(cat, "nsfw") {
		return false
	}
	if len(opts.Categories) == 0 {
		return true
	}
	for _, pattern := range opts.Categories {
		if wildcard.Match(pattern, cat) {
			return true
		}
	}
	return false
}

// RunUsernameSites evaluates every kept site for every username with a
// bounded worker pool and returns one profile per check.
func RunUsernameSites(ctx context.Context, client *http.Client, usernames []string, file *UsernameSitesFile, opts Options) []models.SocialProfile {
	var checks []siteCheck
	for _, site := range file.Sites {
		if !filterCategory(site.Cat, opts) {
			continue
		}
		for _, username := range usernames {
			checks = append(checks, siteCheck{
				identifier: username,
				name:       site.Name,
				url:        strings.ReplaceAll(site.URICheck, placeholder, username),
				method:     http.MethodGet,
				eCode:      site.ECode,
				eString:    site.EString,
				mCode:      site.MCode,
				mString:    site.MString,
				cat:        site.Cat,
			})
		}
	}
	return runChecks(ctx, client, checks, "username", opts.MaxConcurrency)
}

// RunEmailSites is the email counterpart; it honors per-site methods,
// bodies, headers, and input operations.
func RunEmailSites(ctx context.Context, client *http.Client, emails []string, file *EmailSitesFile, opts Options) []models.SocialProfile {
	var checks []siteCheck
	for _, site := range file.Sites {
		if !filterCategory(site.Cat, opts) {
			continue
		}
		method := strings.ToUpper(strings.TrimSpace(site.Method))
		if method == "" {
			method = http.MethodGet
		}
		for _, email := range emails {
			value := ApplyInputOperation(email, site.InputOperation)
			check := siteCheck{
				identifier: email,
				name:       site.Name,
				url:        strings.ReplaceAll(site.URICheck, placeholder, value),
				method:     method,
				headers:    site.Headers,
				eCode:      site.ECode,
				eString:    site.EString,
				mCode:      site.MCode,
				mString:    site.MString,
				cat:        site.Cat,
			}
			if site.Data != "" {
				check.body = strings.ReplaceAll(site.Data, placeholder, value)
			}
			checks = append(checks, check)
		}
	}
	return runChecks(ctx, client, checks, "email", opts.MaxConcurrency)
}

func runChecks(ctx context.Context, client *http.Client, checks []siteCheck, catalogue string, maxConcurrency int) []models.SocialProfile {
	if len(checks) == 0 {
		return nil
	}
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}

	// Each goroutine writes its own slot, so no lock is needed.
	profiles := make([]models.SocialProfile, len(checks))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(maxConcurrency)

	for i, check := range checks {
		i, check := i, check
		group.Go(func() error {
			profile := evaluate(groupCtx, client, check)

			outcome := metrics.OutcomeNotFound
			if profile.Exists {
				outcome = metrics.OutcomeFound
			} else if _, failed := profile.Metadata["error"]; failed {
				outcome = metrics.OutcomeError
			}
			metrics.RecordSitelistCheck(catalogue, outcome)

			profiles[i] = profile
			return nil
		})
	}
	_ = group.Wait()

	return profiles
}

// evaluate runs one probe and applies the existence contract: expected
// status plus expected body marker, with m_code/m_string as hard negatives.
func evaluate(ctx context.Context, client *http.Client, check siteCheck) models.SocialProfile {
	profile := models.SocialProfile{
		URL:         check.url,
		Username:    check.identifier,
		NetworkName: check.name,
		Metadata:    map[string]any{"source": "site_list"},
	}
	if check.cat != "" {
		profile.Metadata["cat"] = check.cat
	}

	var resp *webclient.Response
	var err error
	if check.method == http.MethodPost {
		contentType := check.headers["Content-Type"]
		if contentType == "" {
			contentType = "application/x-www-form-urlencoded"
		}
		resp, err = webclient.Post(ctx, client, check.url, contentType, strings.NewReader(check.body), check.headers)
	} else {
		resp, err = webclient.Get(ctx, client, check.url, check.headers)
	}
	if err != nil {
		log.Debug().Err(err).Str("site", check.name).Msg("Site check failed")
		profile.Metadata["error"] = "request_failed"
		return profile
	}

	profile.URL = resp.FinalURL
	profile.Metadata["status_code"] = resp.StatusCode
	profile.Metadata["final_url"] = resp.FinalURL

	body := resp.BodyString()

	if check.mCode != 0 && resp.StatusCode == check.mCode {
		return profile
	}
	if check.mString != "" && strings.Contains(body, check.mString) {
		return profile
	}

	profile.Exists = resp.StatusCode == check.eCode && strings.Contains(body, check.eString)
	return profile
}
