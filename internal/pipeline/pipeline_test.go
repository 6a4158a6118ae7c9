package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osinthound/osinthound/internal/config"
	"github.com/osinthound/osinthound/internal/models"
	"github.com/osinthound/osinthound/internal/scanners"
	"github.com/osinthound/osinthound/internal/sherlock"
)

// stubScanner records every value it is asked to scan and delegates to scan.
type stubScanner struct {
	name string
	scan func(value string) ([]models.SocialProfile, error)

	mu   sync.Mutex
	seen []string
}

func (s *stubScanner) Name() string { return s.name }

func (s *stubScanner) Scan(_ context.Context, value string) ([]models.SocialProfile, error) {
	s.mu.Lock()
	s.seen = append(s.seen, value)
	s.mu.Unlock()
	return s.scan(value)
}

func (s *stubScanner) values() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.seen...)
}

// confirmed builds a found profile with a bio so the enricher leaves it alone.
func confirmed(network, username string, metadata map[string]any) []models.SocialProfile {
	if metadata == nil {
		metadata = map[string]any{}
	}
	return []models.SocialProfile{{
		URL:         "https://" + network + ".example/" + username,
		Username:    username,
		NetworkName: network,
		Exists:      true,
		Bio:         "stub bio",
		Metadata:    metadata,
	}}
}

func newTestHunter(usernameFleet, emailFleet []scanners.Scanner) *Hunter {
	return &Hunter{
		client:        http.DefaultClient,
		settings:      config.Defaults(),
		usernameFleet: usernameFleet,
		emailFleet:    emailFleet,
	}
}

func TestHuntTransitiveDiscovery(t *testing.T) {
	scanner := &stubScanner{name: "stub", scan: func(value string) ([]models.SocialProfile, error) {
		metadata := map[string]any{}
		if value == "alpha" {
			metadata["other_users"] = []string{"beta"}
		}
		return confirmed("stub", value, metadata), nil
	}}

	hunter := newTestHunter([]scanners.Scanner{scanner}, nil)
	result, err := hunter.Hunt(context.Background(), HuntRequest{Usernames: []string{"alpha"}}, Hooks{})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"alpha", "beta"}, scanner.values())
	assert.Equal(t, []string{"alpha", "beta"}, result.Usernames)
	assert.Equal(t, "alpha/beta", result.Person.Target)
	assert.Len(t, result.Person.Profiles, 2)
}

func TestHuntScansEmailLocalpart(t *testing.T) {
	usernameStub := &stubScanner{name: "ustub", scan: func(value string) ([]models.SocialProfile, error) {
		return confirmed("ustub", value, nil), nil
	}}
	emailStub := &stubScanner{name: "estub", scan: func(value string) ([]models.SocialProfile, error) {
		return confirmed("estub", value, nil), nil
	}}

	hunter := newTestHunter([]scanners.Scanner{usernameStub}, []scanners.Scanner{emailStub})
	result, err := hunter.Hunt(context.Background(), HuntRequest{
		Emails:        []string{" A@B.com "},
		ScanLocalpart: true,
	}, Hooks{})
	require.NoError(t, err)

	assert.Equal(t, []string{"a@b.com"}, emailStub.values(), "emails are trimmed and lower-cased")
	assert.Equal(t, []string{"a", "a"}, usernameStub.values(),
		"localpart is scanned tagged in the email round and again via the worklist")

	assert.Equal(t, []string{"a"}, result.Usernames)
	assert.Equal(t, []string{"a@b.com"}, result.Emails)
	assert.Equal(t, "a/a@b.com", result.Person.Target)

	// The duplicate worklist scan collapses in dedupe; the surviving profile
	// is the first occurrence, which carries the localpart tag.
	require.Len(t, result.Person.Profiles, 2)
	var derived *models.SocialProfile
	for i := range result.Person.Profiles {
		if result.Person.Profiles[i].NetworkName == "ustub" {
			derived = &result.Person.Profiles[i]
		}
	}
	require.NotNil(t, derived)
	assert.Equal(t, "email_localpart", derived.Metadata["derived_from"])
}

func TestHuntScannerFailureYieldsFallbackProfile(t *testing.T) {
	failing := &stubScanner{name: "broken", scan: func(string) ([]models.SocialProfile, error) {
		return nil, errors.New("socket timeout")
	}}
	working := &stubScanner{name: "works", scan: func(value string) ([]models.SocialProfile, error) {
		return confirmed("works", value, nil), nil
	}}

	hunter := newTestHunter([]scanners.Scanner{failing, working}, nil)
	result, err := hunter.Hunt(context.Background(), HuntRequest{Usernames: []string{"alpha"}}, Hooks{})
	require.NoError(t, err, "one scanner failing must not abort the hunt")

	require.Len(t, result.Person.Profiles, 2)

	var fallback *models.SocialProfile
	for i := range result.Person.Profiles {
		if result.Person.Profiles[i].NetworkName == "broken" {
			fallback = &result.Person.Profiles[i]
		}
	}
	require.NotNil(t, fallback)
	assert.False(t, fallback.Exists)
	assert.Equal(t, "https://broken.com/alpha", fallback.URL)
	assert.Equal(t, "socket timeout", fallback.Metadata["error"])
	assert.Equal(t, "unknown", fallback.Metadata["error_kind"], "plain errors carry no classified kind")
	assert.Equal(t, "broken", fallback.Metadata["scanner"])
}

func TestHuntRewritesLegacyPlaceholderHost(t *testing.T) {
	scanner := &stubScanner{name: "stub", scan: func(value string) ([]models.SocialProfile, error) {
		profile := confirmed("stub", value, nil)
		profile[0].URL = "https://example.invalid/x/" + value
		return profile, nil
	}}

	hunter := newTestHunter([]scanners.Scanner{scanner}, nil)
	result, err := hunter.Hunt(context.Background(), HuntRequest{Usernames: []string{"ghost"}}, Hooks{})
	require.NoError(t, err)

	require.Len(t, result.Person.Profiles, 1)
	assert.Equal(t, "https://x.com/ghost", result.Person.Profiles[0].URL)
}

func TestHuntDiscoversEmailFromMetadataAndScansIt(t *testing.T) {
	usernameStub := &stubScanner{name: "ustub", scan: func(value string) ([]models.SocialProfile, error) {
		return confirmed("ustub", value, map[string]any{"email": "Found@Example.com"}), nil
	}}
	emailStub := &stubScanner{name: "estub", scan: func(value string) ([]models.SocialProfile, error) {
		return confirmed("estub", value, nil), nil
	}}

	hunter := newTestHunter([]scanners.Scanner{usernameStub}, []scanners.Scanner{emailStub})
	result, err := hunter.Hunt(context.Background(), HuntRequest{
		Usernames:     []string{"alpha"},
		ScanLocalpart: false,
	}, Hooks{})
	require.NoError(t, err)

	assert.Equal(t, []string{"found@example.com"}, emailStub.values())
	assert.Equal(t, []string{"found@example.com"}, result.Emails)
}

func TestHuntSiteListMissingPathsWarn(t *testing.T) {
	usernameStub := &stubScanner{name: "ustub", scan: func(value string) ([]models.SocialProfile, error) {
		return confirmed("ustub", value, nil), nil
	}}
	emailStub := &stubScanner{name: "estub", scan: func(value string) ([]models.SocialProfile, error) {
		return confirmed("estub", value, nil), nil
	}}

	settings := config.Defaults()
	settings.DataDir = t.TempDir()

	hunter := &Hunter{
		client:        http.DefaultClient,
		settings:      settings,
		usernameFleet: []scanners.Scanner{usernameStub},
		emailFleet:    []scanners.Scanner{emailStub},
	}

	var hookWarnings []string
	result, err := hunter.Hunt(context.Background(), HuntRequest{
		Usernames: []string{"alpha"},
		Emails:    []string{"a@b.com"},
		SiteLists: SiteListOptions{Enabled: true},
	}, Hooks{Warning: func(message string) { hookWarnings = append(hookWarnings, message) }})
	require.NoError(t, err)

	expected := []string{
		"Site-lists for usernames not configured (missing path).",
		"Site-lists for emails not configured (missing path).",
	}
	assert.Equal(t, expected, result.Warnings)
	assert.Equal(t, expected, hookWarnings)
}

func TestHuntRunsSiteListCatalogue(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/u/alpha", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>profile-box</body></html>`)
	})

	dir := t.TempDir()
	cataloguePath := filepath.Join(dir, "wmn-data.json")
	catalogue := fmt.Sprintf(`{"sites": [
		{"name": "demosite", "uri_check": "%s/u/{account}", "e_code": 200, "e_string": "profile-box", "cat": "coding"}
	]}`, server.URL)
	require.NoError(t, os.WriteFile(cataloguePath, []byte(catalogue), 0o644))

	usernameStub := &stubScanner{name: "ustub", scan: func(value string) ([]models.SocialProfile, error) {
		return confirmed("ustub", value, nil), nil
	}}

	settings := config.Defaults()
	settings.DataDir = dir

	hunter := &Hunter{
		client:        server.Client(),
		settings:      settings,
		usernameFleet: []scanners.Scanner{usernameStub},
	}

	result, err := hunter.Hunt(context.Background(), HuntRequest{
		Usernames: []string{"alpha"},
		SiteLists: SiteListOptions{Enabled: true, UsernamePath: cataloguePath},
	}, Hooks{})
	require.NoError(t, err)
	assert.Empty(t, result.Warnings)

	var hit *models.SocialProfile
	for i := range result.Person.Profiles {
		if result.Person.Profiles[i].NetworkName == "demosite" {
			hit = &result.Person.Profiles[i]
		}
	}
	require.NotNil(t, hit)
	assert.True(t, hit.Exists)
	assert.Equal(t, "site_list", hit.Metadata["source"])
}

func TestHuntRunsSherlockManifestWithProgress(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/s/alpha", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><title>alpha on DemoSite</title></head></html>`)
	})

	manifest := sherlock.Manifest{
		"DemoSite": {URL: server.URL + "/s/{}", ErrorType: "status_code"},
		"AdultSite": {
			URL:       server.URL + "/nsfw/{}",
			ErrorType: "status_code",
			IsNSFW:    true,
		},
	}

	usernameStub := &stubScanner{name: "ustub", scan: func(value string) ([]models.SocialProfile, error) {
		return confirmed("ustub", value, nil), nil
	}}

	hunter := &Hunter{
		client:        server.Client(),
		settings:      config.Defaults(),
		usernameFleet: []scanners.Scanner{usernameStub},
	}

	var startTotal int
	var progressCalls int
	result, err := hunter.Hunt(context.Background(), HuntRequest{
		Usernames:        []string{"alpha"},
		UseSherlock:      true,
		SherlockManifest: manifest,
	}, Hooks{
		SherlockStart:    func(total int) { startTotal = total },
		SherlockProgress: func(done, total int, siteName string) { progressCalls++ },
	})
	require.NoError(t, err)

	assert.Equal(t, 1, startTotal, "NSFW sites are excluded by default")
	assert.Equal(t, 1, progressCalls)

	var hit *models.SocialProfile
	for i := range result.Person.Profiles {
		if result.Person.Profiles[i].NetworkName == "demosite" {
			hit = &result.Person.Profiles[i]
		}
	}
	require.NotNil(t, hit)
	assert.True(t, hit.Exists)
	assert.Equal(t, "sherlock", hit.Metadata["source"])
	assert.Equal(t, "alpha on DemoSite", hit.Metadata["title"])
}

func TestHuntStrictDropsUnverifiedSherlockHits(t *testing.T) {
	scanner := &stubScanner{name: "stub", scan: func(value string) ([]models.SocialProfile, error) {
		return []models.SocialProfile{
			{URL: "https://direct.example/alpha", Username: value, NetworkName: "direct",
				Exists: true, Bio: "b", Metadata: map[string]any{"source": "stub"}},
			{URL: "https://match.example/alpha", Username: value, NetworkName: "match",
				Exists: true, Bio: "b", Metadata: map[string]any{"source": "sherlock", "final_url": "https://match.example/alpha"}},
			{URL: "https://fanpop.example/alpha", Username: value, NetworkName: "fanpop",
				Exists: true, Bio: "b", Metadata: map[string]any{"source": "sherlock", "final_url": "https://fanpop.example/alpha"}},
			{URL: "https://wall.example/x", Username: value, NetworkName: "wall",
				Exists: true, Bio: "b", Metadata: map[string]any{"source": "sherlock", "final_url": "https://wall.example/login?alpha"}},
			{URL: "https://vague.example/p/123", Username: value, NetworkName: "vague",
				Exists: true, Bio: "b", Metadata: map[string]any{"source": "sherlock", "final_url": "https://vague.example/p/123"}},
			{URL: "https://gone.example/alpha", Username: value, NetworkName: "gone",
				Exists: false, Metadata: map[string]any{"source": "stub"}},
		}, nil
	}}

	hunter := newTestHunter([]scanners.Scanner{scanner}, nil)
	result, err := hunter.Hunt(context.Background(), HuntRequest{
		Usernames: []string{"alpha"},
		Strict:    true,
	}, Hooks{})
	require.NoError(t, err)

	var networks []string
	for _, profile := range result.Person.Profiles {
		networks = append(networks, profile.NetworkName)
	}
	assert.Equal(t, []string{"direct", "match"}, networks)
}

func TestStrictKeep(t *testing.T) {
	cases := []struct {
		name    string
		profile models.SocialProfile
		keep    bool
	}{
		{
			name:    "missing profile dropped",
			profile: models.SocialProfile{Exists: false},
			keep:    false,
		},
		{
			name: "non sherlock kept",
			profile: models.SocialProfile{Exists: true,
				Metadata: map[string]any{"source": "github_api"}},
			keep: true,
		},
		{
			name: "denylisted network dropped",
			profile: models.SocialProfile{Exists: true, NetworkName: "hubski",
				Metadata: map[string]any{"source": "sherlock", "final_url": "https://hubski.example/alpha"}},
			keep: false,
		},
		{
			name: "suspicious final url dropped",
			profile: models.SocialProfile{Exists: true, NetworkName: "site",
				Metadata: map[string]any{"source": "sherlock", "final_url": "https://site.example/consent?u=alpha"}},
			keep: false,
		},
		{
			name: "username in title kept",
			profile: models.SocialProfile{Exists: true, NetworkName: "site",
				Metadata: map[string]any{"source": "sherlock", "final_url": "https://site.example/p/9",
					"title": "ALPHA's page"}},
			keep: true,
		},
		{
			name: "username in meta description kept",
			profile: models.SocialProfile{Exists: true, NetworkName: "site",
				Metadata: map[string]any{"source": "sherlock", "final_url": "https://site.example/p/9",
					"meta_description": "posts by alpha"}},
			keep: true,
		},
		{
			name: "falls back to profile url when final_url missing",
			profile: models.SocialProfile{Exists: true, NetworkName: "site",
				URL:      "https://site.example/alpha",
				Metadata: map[string]any{"source": "sherlock"}},
			keep: true,
		},
		{
			name: "no username evidence dropped",
			profile: models.SocialProfile{Exists: true, NetworkName: "site",
				Metadata: map[string]any{"source": "sherlock", "final_url": "https://site.example/p/9"}},
			keep: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.keep, strictKeep(&tc.profile, "alpha"))
		})
	}
}

func TestDedupeKeepsFirstOccurrence(t *testing.T) {
	first := models.SocialProfile{URL: "https://a.example/u", Username: "u", NetworkName: "a",
		Metadata: map[string]any{"derived_from": "email_localpart"}}
	duplicate := models.SocialProfile{URL: "https://a.example/u", Username: "u", NetworkName: "a",
		Metadata: map[string]any{}}
	other := models.SocialProfile{URL: "https://b.example/u", Username: "u", NetworkName: "b"}

	deduped := Dedupe([]models.SocialProfile{first, duplicate, other})
	require.Len(t, deduped, 2)
	assert.Equal(t, "email_localpart", deduped[0].Metadata["derived_from"])
	assert.Equal(t, "b", deduped[1].NetworkName)
}

func TestHuntEmptyRequestYieldsTargetPlaceholder(t *testing.T) {
	hunter := newTestHunter(nil, nil)
	result, err := hunter.Hunt(context.Background(), HuntRequest{}, Hooks{})
	require.NoError(t, err)
	assert.Equal(t, "target", result.Person.Target)
	assert.Empty(t, result.Person.Profiles)
}

func TestHuntHonoursContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	hunter := newTestHunter(nil, nil)
	_, err := hunter.Hunt(ctx, HuntRequest{Usernames: []string{"alpha"}}, Hooks{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSanitizeTarget(t *testing.T) {
	cases := map[string]string{
		"User Name+tag@mail.com": "User-Name_tag_mail.com",
		"simple":                 "simple",
		"  padded  ":             "padded",
		"/// ":                   "target",
		"":                       "target",
		"a/b":                    "a-b",
	}
	for input, want := range cases {
		assert.Equal(t, want, SanitizeTarget(input), "input %q", input)
	}
}
