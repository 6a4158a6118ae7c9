// Package pipeline orchestrates a hunt. It fans identifiers out across the
// scanner fleets, feeds identifiers discovered along the way back into a
// worklist until it converges, then layers site-list checks, Sherlock checks,
// deduplication, strict filtering and HTML enrichment on top of the result.
package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/osinthound/osinthound/internal/breach"
	"github.com/osinthound/osinthound/internal/config"
	"github.com/osinthound/osinthound/internal/enrich"
	oserrors "github.com/osinthound/osinthound/internal/errors"
	"github.com/osinthound/osinthound/internal/metrics"
	"github.com/osinthound/osinthound/internal/models"
	"github.com/osinthound/osinthound/internal/scanners"
	"github.com/osinthound/osinthound/internal/sherlock"
	"github.com/osinthound/osinthound/internal/sitelist"
)

// SiteListOptions configures the site-list engine for one hunt.
type SiteListOptions struct {
	Enabled        bool
	UsernamePath   string
	EmailPath      string
	MaxConcurrency int      // 0 falls back to Settings.SitesMaxConcurrency
	Categories     []string // wildcard patterns; empty means all
	NoNSFW         *bool    // nil falls back to Settings.SitesNoNSFW
}

// HuntRequest carries the parameters that control one hunt.
type HuntRequest struct {
	Usernames     []string
	Emails        []string
	ScanLocalpart bool
	SiteLists     SiteListOptions
	UseSherlock   bool
	Strict        bool
	// SherlockManifest, when non-nil, is used instead of the cached copy.
	SherlockManifest sherlock.Manifest
}

// Hooks are optional callbacks for UI layers. All fields may be nil.
type Hooks struct {
	Warning          func(message string)
	SherlockStart    func(total int)
	SherlockProgress sherlock.ProgressFunc
}

// Result is the output of one hunt.
type Result struct {
	Person    models.PersonEntity
	Usernames []string
	Emails    []string
	Warnings  []string
}

// Hunter runs hunts with a fixed scanner fleet and HTTP client.
type Hunter struct {
	client        *http.Client
	settings      config.Settings
	usernameFleet []scanners.Scanner
	emailFleet    []scanners.Scanner
}

// New builds a Hunter with the full username fleet and the email fleet
// (including the breach checker) behind the given client.
func New(client *http.Client, settings config.Settings) *Hunter {
	return &Hunter{
		client:        client,
		settings:      settings,
		usernameFleet: scanners.ForUsername(client),
		emailFleet:    append(scanners.ForEmail(client), breach.NewChecker(client)),
	}
}

var strictSherlockDenylist = map[string]struct{}{
	"avizo":  {},
	"fanpop": {},
	"hubski": {},
}

// strictSuspiciousURLParts mark final URLs that landed on consent walls,
// login redirects or search pages rather than a profile.
var strictSuspiciousURLParts = []string{
	"login",
	"sign_in",
	"consent",
	"privacy",
	"cookie",
	"redirect",
	"return_url=",
	"callbackurl=",
	"search?",
	"search/?",
	"vendor_not_found",
	"nastaveni-souhlasu",
}

// Hunt executes the transitive-discovery worklist until no new identifiers
// surface, then runs the optional engines and assembles the aggregate.
// Individual source failures never abort a hunt; only catalogue IO errors and
// context cancellation do.
func (h *Hunter) Hunt(ctx context.Context, req HuntRequest, hooks Hooks) (*Result, error) {
	defer metrics.HuntStarted()()

	var warnings []string
	warn := func(message string) {
		warnings = append(warnings, message)
		log.Debug().Str("warning", message).Msg("Hunt warning")
		if hooks.Warning != nil {
			hooks.Warning(message)
		}
	}

	allUsernames := map[string]struct{}{}
	for _, username := range req.Usernames {
		if username = strings.TrimSpace(username); username != "" {
			allUsernames[username] = struct{}{}
		}
	}
	allEmails := map[string]struct{}{}
	for _, email := range req.Emails {
		if email = strings.ToLower(strings.TrimSpace(email)); email != "" {
			allEmails[email] = struct{}{}
		}
	}

	log.Info().
		Int("usernames", len(allUsernames)).
		Int("emails", len(allEmails)).
		Bool("sites", req.SiteLists.Enabled).
		Bool("sherlock", req.UseSherlock).
		Bool("strict", req.Strict).
		Msg("Hunt started")

	var profiles []models.SocialProfile
	scannedUsernames := map[string]struct{}{}
	scannedEmails := map[string]struct{}{}

	for round := 1; ; round++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		newUsernames := pendingSorted(allUsernames, scannedUsernames)
		newEmails := pendingSorted(allEmails, scannedEmails)
		if len(newUsernames) == 0 && len(newEmails) == 0 {
			break
		}
		log.Debug().
			Int("round", round).
			Strs("new_usernames", newUsernames).
			Strs("new_emails", newEmails).
			Msg("Worklist round")

		if len(newUsernames) > 0 {
			profiles = append(profiles, h.fanOut(ctx, h.usernameFleet, newUsernames, "")...)
			for _, username := range newUsernames {
				scannedUsernames[username] = struct{}{}
			}
		}

		if len(newEmails) > 0 {
			profiles = append(profiles, h.fanOut(ctx, h.emailFleet, newEmails, "")...)
			for _, email := range newEmails {
				scannedEmails[email] = struct{}{}
			}

			if req.ScanLocalpart {
				localparts := make([]string, 0, len(newEmails))
				for _, email := range newEmails {
					localpart, _, _ := strings.Cut(email, "@")
					localparts = append(localparts, localpart)
				}
				profiles = append(profiles, h.fanOut(ctx, h.usernameFleet, localparts, "email_localpart")...)
				for _, localpart := range localparts {
					if localpart != "" {
						allUsernames[localpart] = struct{}{}
					}
				}
			}
		}

		extraUsernames, extraEmails := extractExtras(profiles)
		mergeInto(allUsernames, extraUsernames)
		mergeInto(allEmails, extraEmails)
	}

	usernames := sortedKeys(allUsernames)
	emails := sortedKeys(allEmails)

	maxConcurrency := req.SiteLists.MaxConcurrency
	if maxConcurrency <= 0 {
		maxConcurrency = h.settings.SitesMaxConcurrency
	}
	noNSFW := h.settings.SitesNoNSFW
	if req.SiteLists.NoNSFW != nil {
		noNSFW = *req.SiteLists.NoNSFW
	}

	if req.SiteLists.Enabled {
		opts := sitelist.Options{
			MaxConcurrency: maxConcurrency,
			Categories:     req.SiteLists.Categories,
			NoNSFW:         noNSFW,
		}

		if len(usernames) > 0 {
			path := resolveListPath(req.SiteLists.UsernamePath, h.settings.DataDir)
			if path == "" {
				warn("Site-lists for usernames not configured (missing path).")
			} else {
				file, err := sitelist.LoadUsernameSites(path)
				if err != nil {
					return nil, err
				}
				profiles = append(profiles, sitelist.RunUsernameSites(ctx, h.client, usernames, file, opts)...)
			}
		}
		if len(emails) > 0 {
			path := resolveListPath(req.SiteLists.EmailPath, h.settings.DataDir)
			if path == "" {
				warn("Site-lists for emails not configured (missing path).")
			} else {
				file, err := sitelist.LoadEmailSites(path)
				if err != nil {
					return nil, err
				}
				profiles = append(profiles, sitelist.RunEmailSites(ctx, h.client, emails, file, opts)...)
			}
		}
	}

	if req.UseSherlock && len(usernames) > 0 {
		manifest := req.SherlockManifest
		if manifest == nil {
			loaded, err := sherlock.LoadManifest(ctx, h.client, h.settings.DataDir, false)
			if err != nil {
				return nil, err
			}
			manifest = loaded
		}
		if total := sherlock.PlannedChecks(manifest, usernames, noNSFW); total > 0 && hooks.SherlockStart != nil {
			hooks.SherlockStart(total)
		}
		profiles = append(profiles, sherlock.Run(ctx, h.client, usernames, manifest, sherlock.Options{
			MaxConcurrency: maxConcurrency,
			NoNSFW:         noNSFW,
			Progress:       hooks.SherlockProgress,
		})...)
	}

	profiles = Dedupe(profiles)

	if req.Strict && len(usernames) > 0 {
		kept := make([]models.SocialProfile, 0, len(profiles))
		for i := range profiles {
			for _, username := range usernames {
				if strictKeep(&profiles[i], username) {
					kept = append(kept, profiles[i])
					break
				}
			}
		}
		log.Debug().Int("before", len(profiles)).Int("after", len(kept)).Msg("Strict filter applied")
		profiles = kept
	}

	enrich.Profiles(ctx, h.client, profiles, min(20, maxConcurrency))

	extraUsernames, extraEmails := extractExtras(profiles)
	usernames = sortedUnion(usernames, extraUsernames)
	emails = sortedUnion(emails, extraEmails)

	confirmed := 0
	for i := range profiles {
		if profiles[i].Exists {
			confirmed++
			metrics.RecordProfileDiscovered(profiles[i].NetworkName)
		}
	}
	log.Info().
		Int("profiles", len(profiles)).
		Int("confirmed", confirmed).
		Int("usernames", len(usernames)).
		Int("emails", len(emails)).
		Msg("Hunt complete")

	var targetParts []string
	if len(usernames) > 0 {
		targetParts = append(targetParts, strings.Join(usernames, "/"))
	}
	if len(emails) > 0 {
		targetParts = append(targetParts, strings.Join(emails, "/"))
	}
	target := strings.Join(targetParts, "/")
	if target == "" {
		target = "target"
	}

	return &Result{
		Person:    models.PersonEntity{Target: target, Profiles: profiles},
		Usernames: usernames,
		Emails:    emails,
		Warnings:  warnings,
	}, nil
}

// fanOut runs every (value, scanner) pair of the batch concurrently and
// returns the flattened results in deterministic batch order.
func (h *Hunter) fanOut(ctx context.Context, fleet []scanners.Scanner, values []string, derivedFrom string) []models.SocialProfile {
	results := make([][]models.SocialProfile, len(values)*len(fleet))

	group, groupCtx := errgroup.WithContext(ctx)
	for vi, value := range values {
		for si, scanner := range fleet {
			value, scanner := value, scanner
			slot := vi*len(fleet) + si
			group.Go(func() error {
				results[slot] = h.safeScan(groupCtx, scanner, value, derivedFrom)
				return nil
			})
		}
	}
	_ = group.Wait()

	var flat []models.SocialProfile
	for _, batch := range results {
		flat = append(flat, batch...)
	}
	return flat
}

// safeScan isolates scanner failures: an error becomes a non-existent
// fallback profile tagged with the failure, never a pipeline abort.
func (h *Hunter) safeScan(ctx context.Context, scanner scanners.Scanner, value, derivedFrom string) []models.SocialProfile {
	start := time.Now()
	collected, err := scanner.Scan(ctx, value)
	if err != nil {
		metrics.RecordScan(scanner.Name(), metrics.OutcomeError, time.Since(start))
		log.Debug().Err(err).Str("scanner", scanner.Name()).Str("kind", oserrors.Kind(err)).Str("value", value).Msg("Scanner failed")

		metadata := map[string]any{"error": err.Error(), "error_kind": oserrors.Kind(err), "scanner": scanner.Name()}
		if derivedFrom != "" {
			metadata["derived_from"] = derivedFrom
		}
		return []models.SocialProfile{{
			URL:         fmt.Sprintf("https://%s.com/%s", scanner.Name(), value),
			Username:    value,
			NetworkName: scanner.Name(),
			Metadata:    metadata,
		}}
	}

	outcome := metrics.OutcomeNotFound
	for i := range collected {
		if derivedFrom != "" {
			collected[i].Meta()["derived_from"] = derivedFrom
		}
		// Legacy placeholder host left behind by earlier fixtures.
		collected[i].URL = strings.ReplaceAll(collected[i].URL, "example.invalid/x/", "x.com/")
		if collected[i].Exists {
			outcome = metrics.OutcomeFound
		}
	}
	metrics.RecordScan(scanner.Name(), outcome, time.Since(start))
	return collected
}

// extractExtras pulls identifiers that scanners surfaced in metadata so the
// worklist can chase them: emails under other_emails/emails/email, usernames
// under other_users/usernames, and non-URL website entries (bare handles).
func extractExtras(profiles []models.SocialProfile) (map[string]struct{}, map[string]struct{}) {
	extraUsernames := map[string]struct{}{}
	extraEmails := map[string]struct{}{}

	for i := range profiles {
		metadata := profiles[i].Metadata
		if metadata == nil {
			continue
		}
		for _, key := range []string{"other_emails", "emails", "email"} {
			for _, value := range stringValues(metadata[key]) {
				if value = strings.ToLower(strings.TrimSpace(value)); value != "" && strings.Contains(value, "@") {
					extraEmails[value] = struct{}{}
				}
			}
		}
		for _, key := range []string{"other_users", "usernames"} {
			for _, value := range stringValues(metadata[key]) {
				if value = strings.TrimSpace(value); value != "" {
					extraUsernames[value] = struct{}{}
				}
			}
		}
		for _, key := range []string{"other_websites", "websites", "website"} {
			for _, value := range stringValues(metadata[key]) {
				if strings.HasPrefix(value, "http") {
					continue
				}
				if value = strings.TrimSpace(value); value != "" {
					extraUsernames[value] = struct{}{}
				}
			}
		}
	}
	return extraUsernames, extraEmails
}

// stringValues flattens a metadata value that may be a string, []string or
// []any of strings.
func stringValues(v any) []string {
	switch val := v.(type) {
	case string:
		return []string{val}
	case []string:
		return val
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Dedupe removes duplicated profiles by (network, username, url), keeping the
// first occurrence.
func Dedupe(profiles []models.SocialProfile) []models.SocialProfile {
	type key struct {
		network  string
		username string
		url      string
	}
	seen := make(map[key]struct{}, len(profiles))
	deduped := make([]models.SocialProfile, 0, len(profiles))
	for i := range profiles {
		k := key{profiles[i].NetworkName, profiles[i].Username, profiles[i].URL}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		deduped = append(deduped, profiles[i])
	}
	return deduped
}

// strictKeep decides whether a profile survives strict mode for one
// requested username. Hand-written scanners are trusted; Sherlock hits must
// avoid the deny-list and suspicious URLs and must show the username in the
// final URL, page title or meta description.
func strictKeep(profile *models.SocialProfile, username string) bool {
	if !profile.Exists {
		return false
	}
	if profile.MetaString("source") != "sherlock" {
		return true
	}
	if _, denied := strictSherlockDenylist[profile.NetworkName]; denied {
		return false
	}

	finalURL := profile.MetaString("final_url")
	if finalURL == "" {
		finalURL = profile.URL
	}
	finalURL = strings.ToLower(finalURL)
	for _, part := range strictSuspiciousURLParts {
		if strings.Contains(finalURL, part) {
			return false
		}
	}

	usernameLower := strings.ToLower(username)
	if strings.Contains(finalURL, usernameLower) {
		return true
	}
	if title := profile.MetaString("title"); title != "" && strings.Contains(strings.ToLower(title), usernameLower) {
		return true
	}
	if description := profile.MetaString("meta_description"); description != "" &&
		strings.Contains(strings.ToLower(description), usernameLower) {
		return true
	}
	return false
}

// SanitizeTarget turns a target label into a filesystem-friendly slug.
func SanitizeTarget(value string) string {
	var b strings.Builder
	for _, ch := range strings.TrimSpace(value) {
		switch {
		case unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '-' || ch == '_' || ch == '.':
			b.WriteRune(ch)
		case ch == '@' || ch == '+':
			b.WriteByte('_')
		default:
			b.WriteByte('-')
		}
	}
	cleaned := strings.Trim(b.String(), "-_")
	if cleaned == "" {
		return "target"
	}
	return cleaned
}

// resolveListPath returns a usable catalogue path: the given one when it
// exists, otherwise a default-location fallback with the same file name, ""
// when neither resolves.
func resolveListPath(path, dataDir string) string {
	if path == "" {
		return ""
	}
	if fileExists(path) {
		return path
	}
	return sitelist.DefaultListPath(dataDir, filepath.Base(path))
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func pendingSorted(all, scanned map[string]struct{}) []string {
	var pending []string
	for value := range all {
		if _, done := scanned[value]; !done {
			pending = append(pending, value)
		}
	}
	sort.Strings(pending)
	return pending
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func sortedUnion(values []string, extra map[string]struct{}) []string {
	merged := make(map[string]struct{}, len(values)+len(extra))
	for _, value := range values {
		merged[value] = struct{}{}
	}
	for value := range extra {
		merged[value] = struct{}{}
	}
	return sortedKeys(merged)
}

func mergeInto(dst, src map[string]struct{}) {
	for value := range src {
		dst[value] = struct{}{}
	}
}
