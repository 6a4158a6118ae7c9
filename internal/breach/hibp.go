// Package breach queries Have I Been Pwned's unified search for each email
// surfaced by a hunt. The endpoint backs the public search box and rejects
// clients that do not look like a real browser, so requests carry a pinned
// Chromium header set and, when possible, a Chrome TLS fingerprint.
package breach

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/osinthound/osinthound/internal/models"
	"github.com/osinthound/osinthound/internal/webclient"
)

const sourceTag = "haveibeenpwned_unifiedsearch"

// browserHeaders mirrors what Edge on Windows sends to the search box.
var browserHeaders = map[string]string{
	"accept":             "*/*",
	"priority":           "u=1, i",
	"referer":            "https://haveibeenpwned.com/",
	"request-id":         "|ab766925a29d41a7ade9eeeb057ee8e9.babb405ff61f4ee3",
	"sec-ch-ua":          `"Not(A:Brand";v="8", "Chromium";v="144", "Microsoft Edge";v="144"`,
	"sec-ch-ua-mobile":   "?0",
	"sec-ch-ua-platform": `"Windows"`,
	"sec-fetch-dest":     "empty",
	"sec-fetch-mode":     "cors",
	"sec-fetch-site":     "same-origin",
	"traceparent":        "00-ab766925a29d41a7ade9eeeb057ee8e9-babb405ff61f4ee3-01",
	"user-agent": "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/144.0.0.0 Safari/537.36 Edg/144.0.0.0",
}

// Checker resolves breach exposure for emails.
type Checker struct {
	client   *http.Client
	fallback *http.Client
	baseURL  string
}

// NewChecker builds a Checker. It prefers a transport with a Chrome TLS
// fingerprint; the plain client stays around as a per-request fallback for
// servers that reject the custom handshake.
func NewChecker(fallback *http.Client) *Checker {
	client := fallback
	if fingerprinted, err := newFingerprintClient(fallback); err != nil {
		log.Debug().Err(err).Msg("TLS fingerprint transport unavailable; using plain client for HIBP")
	} else {
		client = fingerprinted
	}
	return &Checker{client: client, fallback: fallback, baseURL: "https://haveibeenpwned.com"}
}

type unifiedSearchResponse struct {
	Breaches []models.HibpBreach `json:"Breaches"`
}

// Name labels the checker inside the email scanner fleet.
func (c *Checker) Name() string { return "hibp" }

// Scan adapts the checker to the scanner contract so the pipeline can fan it
// out next to the other email probes. Failures are folded into the profile,
// so the error is always nil.
func (c *Checker) Scan(ctx context.Context, email string) ([]models.SocialProfile, error) {
	return []models.SocialProfile{c.checkOne(ctx, email)}, nil
}

// CheckEmails returns one hibp profile per email. Failures degrade into
// existe=false profiles tagged with the failure mode instead of aborting the
// batch.
func (c *Checker) CheckEmails(ctx context.Context, emails []string) []models.SocialProfile {
	profiles := make([]models.SocialProfile, 0, len(emails))
	for _, email := range emails {
		profiles = append(profiles, c.checkOne(ctx, email))
	}
	return profiles
}

func (c *Checker) checkOne(ctx context.Context, email string) models.SocialProfile {
	url := fmt.Sprintf("%s/unifiedsearch/%s", c.baseURL, email)

	profile := models.SocialProfile{
		URL:         url,
		Username:    email,
		NetworkName: "hibp",
		Metadata:    map[string]any{"source": sourceTag},
	}

	resp, err := webclient.Get(ctx, c.client, url, browserHeaders)
	if err != nil && c.fallback != nil && c.fallback != c.client {
		log.Debug().Err(err).Str("email", email).Msg("Fingerprinted HIBP request failed; retrying with plain client")
		resp, err = webclient.Get(ctx, c.fallback, url, browserHeaders)
	}
	if err != nil {
		log.Warn().Err(err).Str("email", email).Msg("HIBP request failed")
		profile.Metadata["status_code"] = 0
		profile.Metadata["error"] = "hibp_request_failed"
		return profile
	}

	profile.Metadata["status_code"] = resp.StatusCode
	if resp.StatusCode != http.StatusOK {
		profile.Metadata["error"] = fmt.Sprintf("hibp_http_%d", resp.StatusCode)
		return profile
	}

	var payload unifiedSearchResponse
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		profile.Metadata["error"] = "hibp_no_response"
		return profile
	}

	profile.Exists = true
	profile.Metadata["breach_count"] = len(payload.Breaches)
	profile.Metadata["breaches"] = models.HibpBreaches{
		Email:    email,
		Breaches: payload.Breaches,
	}
	return profile
}
