package scanners

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGitHubScanFound(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/users/octocat", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/vnd.github+json", r.Header.Get("Accept"))
		fmt.Fprint(w, `{
			"login": "octocat",
			"name": "The Octocat",
			"bio": "Mascot",
			"location": "San Francisco",
			"blog": "https://octo.example.com",
			"avatar_url": "https://avatars.example.com/u/1",
			"public_repos": 8,
			"followers": 100,
			"following": 9,
			"created_at": "2011-01-25T18:44:36Z"
		}`)
	})
	mux.HandleFunc("/users/octocat/events/public", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"type": "PushEvent", "created_at": "2024-05-01T10:00:00Z",
			 "payload": {"commits": [{"message": "fix parser"}, {"message": "  "}]}},
			{"type": "WatchEvent", "created_at": "2024-05-02T10:00:00Z", "payload": {}}
		]`)
	})

	scanner := NewGitHub(server.Client())
	scanner.apiBaseURL = server.URL

	profiles, err := scanner.Scan(context.Background(), "octocat")
	require.NoError(t, err)
	require.Len(t, profiles, 1)

	profile := profiles[0]
	assert.True(t, profile.Exists)
	assert.Equal(t, "https://github.com/octocat", profile.URL)
	assert.Equal(t, "github", profile.NetworkName)
	assert.Equal(t, "Mascot", profile.Bio)
	assert.Equal(t, "https://avatars.example.com/u/1", profile.ImageURL)
	assert.Equal(t, "github_api", profile.Metadata["source"])
	assert.Equal(t, "San Francisco", profile.Metadata["location"])
	assert.Equal(t, 8, profile.Metadata["public_repos"])

	commits, ok := profile.Metadata["recent_commits"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, commits, 1, "blank commit messages should be dropped")
	assert.Equal(t, "fix parser", commits[0]["message"])
	assert.Equal(t, "2024-05-01T10:00:00Z", commits[0]["timestamp"])
}

func TestGitHubScanNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	scanner := NewGitHub(server.Client())
	scanner.apiBaseURL = server.URL

	profiles, err := scanner.Scan(context.Background(), "ghost")
	require.NoError(t, err)
	require.Len(t, profiles, 1)

	assert.False(t, profiles[0].Exists)
	assert.Equal(t, "github_api", profiles[0].Metadata["source"])
	assert.Equal(t, http.StatusNotFound, profiles[0].Metadata["status_code"])
	assert.NotContains(t, profiles[0].Metadata, "login")
}

func TestRedditScanFoundWithComments(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/user/spez/about.json", func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("User-Agent"), "osinthound")
		fmt.Fprint(w, `{"data": {
			"name": "spez", "id": "1w72", "created_utc": 1118030400,
			"subreddit": {"public_description": "Reddit CEO", "title": "spez",
				"icon_img": "https://img.example.com/spez.png", "subscribers": 900000, "over_18": false}
		}}`)
	})
	mux.HandleFunc("/user/spez/comments.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data": {"children": [
			{"data": {"body": "hello world", "subreddit": "announcements", "created_utc": 1.7e9, "permalink": "/r/a/1"}},
			{"data": {"body": "   ", "subreddit": "ignored"}},
			{"data": {"body": "second", "subreddit": "AskReddit", "created_utc": 1.71e9, "permalink": "/r/b/2"}}
		]}}`)
	})

	scanner := NewReddit(server.Client())
	scanner.baseURL = server.URL

	profiles, err := scanner.Scan(context.Background(), "spez")
	require.NoError(t, err)
	require.Len(t, profiles, 1)

	profile := profiles[0]
	assert.True(t, profile.Exists)
	assert.Equal(t, "Reddit CEO", profile.Bio)
	assert.Equal(t, "https://img.example.com/spez.png", profile.ImageURL)
	assert.Equal(t, "reddit_about_json", profile.Metadata["source"])
	assert.Equal(t, "2005-06-06T04:00:00Z", profile.Metadata["created_at"])

	comments, ok := profile.Metadata["recent_comments"].([]map[string]any)
	require.True(t, ok)
	assert.Len(t, comments, 2, "blank bodies should be dropped")
	assert.Equal(t, []string{"AskReddit", "announcements"}, profile.Metadata["subreddits"])
}

func TestRedditScanNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	scanner := NewReddit(server.Client())
	scanner.baseURL = server.URL

	profiles, err := scanner.Scan(context.Background(), "ghost")
	require.NoError(t, err)
	assert.False(t, profiles[0].Exists)
	assert.Equal(t, http.StatusNotFound, profiles[0].Metadata["status_code"])
}

func TestGitLabScanExtractsNameFromTitle(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Server", "nginx")
		fmt.Fprint(w, `<html><head><title>Ada Lovelace · GitLab</title></head><body></body></html>`)
	}))
	defer server.Close()

	scanner := NewGitLab(server.Client())
	scanner.baseURL = server.URL

	profiles, err := scanner.Scan(context.Background(), "ada")
	require.NoError(t, err)

	profile := profiles[0]
	assert.True(t, profile.Exists)
	assert.Equal(t, "Ada Lovelace", profile.Metadata["name"])
	assert.Equal(t, "nginx", profile.Metadata["server"])
	assert.Equal(t, http.StatusOK, profile.Metadata["status_code"])
}

func TestMediumScanPersonalizedTitle(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head>
			<meta property="og:title" content="Chad Hamre – Medium"/>
			<meta name="description" content="Stories by Chad"/>
			<meta property="og:image" content="https://cdn.example.com/chad.png"/>
		</head><body>
			<h2>First post</h2><h2>Second post</h2>
			<h3>Intro one</h3><h3>Intro two</h3>
		</body></html>`)
	}))
	defer server.Close()

	scanner := NewMedium(server.Client())
	scanner.baseURL = server.URL

	profiles, err := scanner.Scan(context.Background(), "chad")
	require.NoError(t, err)

	profile := profiles[0]
	assert.True(t, profile.Exists)
	assert.Equal(t, "Chad Hamre", profile.Metadata["name"])
	assert.Equal(t, "Stories by Chad", profile.Metadata["description"])

	posts, ok := profile.Metadata["recent_posts"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, posts, 2)
	assert.Equal(t, "First post", posts[0]["title"])
	assert.Equal(t, "Intro one", posts[0]["content"])
}

func TestMediumScanGenericTitleMeansMissing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><meta property="og:title" content="Medium"/></head></html>`)
	}))
	defer server.Close()

	scanner := NewMedium(server.Client())
	scanner.baseURL = server.URL

	profiles, err := scanner.Scan(context.Background(), "nobody")
	require.NoError(t, err)
	assert.False(t, profiles[0].Exists)
	assert.NotContains(t, profiles[0].Metadata, "name")
}

func TestTwitchScanOgTitlePresence(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head>
			<meta property="og:title" content="Ninja - Twitch"/>
			<meta name="description" content="Pro streamer"/>
		</head></html>`)
	}))
	defer server.Close()

	scanner := NewTwitch(server.Client())
	scanner.baseURL = server.URL

	profiles, err := scanner.Scan(context.Background(), "ninja")
	require.NoError(t, err)

	profile := profiles[0]
	assert.True(t, profile.Exists)
	assert.Equal(t, "Ninja", profile.Metadata["name"])
	assert.Equal(t, "Pro streamer", profile.Metadata["description"])
}

func TestTwitchScanNoOgTitleMeansMissing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><title>Twitch</title></head></html>`)
	}))
	defer server.Close()

	scanner := NewTwitch(server.Client())
	scanner.baseURL = server.URL

	profiles, err := scanner.Scan(context.Background(), "ghost")
	require.NoError(t, err)
	assert.False(t, profiles[0].Exists)
}

func TestAboutMeScanEmitsSocialLinkProfiles(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head>
			<title>Mario Rossi - New Orleans, Louisiana | about.me</title>
			<meta property="og:description" content="Maker of things"/>
			<meta property="og:image" content="https://cdn.example.com/mario.jpg"/>
		</head><body>
			<section class="bio"><p>Longer description here.</p></section>
			<script>{"jobTitle":"Engineer","knowsAbout": ["golang", "osint"],"sameAs": ["https://github.com/mrossi", "https://x.com/mrossi"]}</script>
		</body></html>`)
	}))
	defer server.Close()

	scanner := NewAboutMe(server.Client())
	scanner.baseURL = server.URL

	profiles, err := scanner.Scan(context.Background(), "mrossi")
	require.NoError(t, err)
	require.Len(t, profiles, 3, "main profile plus one per sameAs link")

	main := profiles[0]
	assert.Equal(t, "aboutme", main.NetworkName)
	assert.True(t, main.Exists)
	assert.Equal(t, "Mario Rossi", main.Metadata["name"])
	assert.Equal(t, "New Orleans, Louisiana", main.Metadata["location"])
	assert.Equal(t, "Engineer", main.Metadata["jobTitle"])
	assert.Equal(t, []string{"golang", "osint"}, main.Metadata["interests"])
	assert.Equal(t, "Maker of things", main.Metadata["bio"])
	assert.Equal(t, "Longer description here.", main.Metadata["description"])

	linked := profiles[1]
	assert.Equal(t, "aboutme_social_link", linked.NetworkName)
	assert.True(t, linked.Exists)
	assert.Equal(t, "https://github.com/mrossi", linked.URL)
	assert.Equal(t, "mrossi", linked.Username)
	assert.Equal(t, "aboutme", linked.Metadata["source"])
	assert.Equal(t, "mrossi", linked.Metadata["from_username"])
}

func TestKeybaseScanEmitsProofProfiles(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/_/api/1.0/user/lookup.json", r.URL.Path)
		assert.Equal(t, "alice", r.URL.Query().Get("usernames"))
		fmt.Fprint(w, `{"them": [{
			"basics": {"username": "alice", "ctime": 1400000000},
			"profile": {"full_name": "Alice Liddell", "location": "Wonderland", "bio": "keys everywhere"},
			"pictures": {"primary": {"url": "https://cdn.example.com/alice.jpg"}},
			"proofs_summary": {"all": [
				{"proof_type": "github", "nametag": "aliddell", "state": 1, "service_url": "https://github.com/aliddell"},
				{"proof_type": "twitter", "nametag": "broken", "state": 0, "service_url": "https://twitter.com/broken"},
				{"proof_type": "dns", "nametag": "alice.example.com", "state": 1, "service_url": "http://alice.example.com"}
			]}
		}]}`)
	}))
	defer server.Close()

	scanner := NewKeybase(server.Client())
	scanner.baseURL = server.URL

	profiles, err := scanner.Scan(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, profiles, 2, "main profile plus the one verified social proof")

	main := profiles[0]
	assert.True(t, main.Exists)
	assert.Equal(t, "keys everywhere", main.Bio)
	assert.Equal(t, "Alice Liddell", main.Metadata["name"])
	assert.Equal(t, "2014-05-13T16:53:20Z", main.Metadata["created_at"])
	assert.Equal(t, []string{"alice.example.com"}, main.Metadata["other_websites"])

	proof := profiles[1]
	assert.Equal(t, "keybase_proof", proof.NetworkName)
	assert.Equal(t, "aliddell", proof.Username)
	assert.Equal(t, "https://github.com/aliddell", proof.URL)
	assert.Equal(t, "alice", proof.Metadata["from_username"])
	assert.Equal(t, "github", proof.Metadata["proof_type"])
}

func TestKeybaseScanNullThemMeansMissing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status": {"code": 205, "name": "NOT_FOUND"}, "them": [null]}`)
	}))
	defer server.Close()

	scanner := NewKeybase(server.Client())
	scanner.baseURL = server.URL

	profiles, err := scanner.Scan(context.Background(), "ghost")
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.False(t, profiles[0].Exists)
}

func TestDevToScanFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/users/by_username", r.URL.Path)
		assert.Equal(t, "ben", r.URL.Query().Get("url"))
		fmt.Fprint(w, `{
			"username": "ben", "name": "Ben Halpern", "summary": "Forem founder",
			"location": "NY", "joined_at": "Jan 1, 2016",
			"profile_image": "https://cdn.example.com/ben.png",
			"github_username": "benhalpern", "twitter_username": "bendhalpern"
		}`)
	}))
	defer server.Close()

	scanner := NewDevTo(server.Client())
	scanner.baseURL = server.URL

	profiles, err := scanner.Scan(context.Background(), "ben")
	require.NoError(t, err)

	profile := profiles[0]
	assert.True(t, profile.Exists)
	assert.Equal(t, "Forem founder", profile.Bio)
	assert.Equal(t, "https://cdn.example.com/ben.png", profile.ImageURL)
	assert.Equal(t, "benhalpern", profile.Metadata["github_username"])
	assert.Equal(t, "devto_api", profile.Metadata["source"])
}

func TestDevToScanNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error": "Not Found", "status": 404}`)
	}))
	defer server.Close()

	scanner := NewDevTo(server.Client())
	scanner.baseURL = server.URL

	profiles, err := scanner.Scan(context.Background(), "ghost")
	require.NoError(t, err)
	assert.False(t, profiles[0].Exists)
}

func TestSoundCloudScanReadsOgTags(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head>
			<meta property="og:title" content="Deadmau5"/>
			<meta property="og:description" content="Producer"/>
			<meta property="og:image" content="https://cdn.example.com/mau5.jpg"/>
		</head></html>`)
	}))
	defer server.Close()

	scanner := NewSoundCloud(server.Client())
	scanner.baseURL = server.URL

	profiles, err := scanner.Scan(context.Background(), "deadmau5")
	require.NoError(t, err)

	profile := profiles[0]
	assert.True(t, profile.Exists)
	assert.Equal(t, "Deadmau5", profile.Metadata["name"])
	assert.Equal(t, "Producer", profile.Metadata["description"])
	assert.Equal(t, "https://cdn.example.com/mau5.jpg", profile.ImageURL)
}

func TestStatusScannersByStatusCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/taken", "/taken/", "/~taken", "/@taken":
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	build := []func(*http.Client) Scanner{
		NewX, NewTelegram, NewPinterest, NewKaggle,
		NewGitHubGist, NewNpm, NewProductHunt, NewDribbble, NewBehance,
	}
	names := []string{"x", "telegram", "pinterest", "kaggle",
		"githubgist", "npm", "producthunt", "dribbble", "behance"}

	for i, builder := range build {
		scanner := builder(server.Client()).(*statusScanner)
		scanner.baseURL = server.URL

		t.Run(names[i], func(t *testing.T) {
			found, err := scanner.Scan(context.Background(), "taken")
			require.NoError(t, err)
			assert.True(t, found[0].Exists)
			assert.Equal(t, names[i], found[0].NetworkName)

			missing, err := scanner.Scan(context.Background(), "free")
			require.NoError(t, err)
			assert.False(t, missing[0].Exists)
			assert.Equal(t, http.StatusNotFound, missing[0].Metadata["status_code"])
		})
	}
}

func TestForUsernameFleetOrder(t *testing.T) {
	fleet := ForUsername(http.DefaultClient)
	require.Len(t, fleet, 18)
	assert.Equal(t, "github", fleet[0].Name())
	assert.Equal(t, "x", fleet[len(fleet)-1].Name())

	seen := map[string]bool{}
	for _, scanner := range fleet {
		assert.False(t, seen[scanner.Name()], "duplicate scanner name %s", scanner.Name())
		seen[scanner.Name()] = true
	}
}
