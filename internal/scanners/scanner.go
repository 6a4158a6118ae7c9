// Package scanners implements the per-network probes. Every scanner takes a
// username or email and reports zero or more SocialProfile findings; probes
// that only confirm existence return a single profile with status metadata.
package scanners

import (
	"context"
	"net/http"

	"github.com/osinthound/osinthound/internal/models"
	"github.com/osinthound/osinthound/internal/webclient"
)

// Scanner probes one network for one identifier.
type Scanner interface {
	Name() string
	Scan(ctx context.Context, value string) ([]models.SocialProfile, error)
}

// ForUsername returns the username scanner fleet in fan-out order.
func ForUsername(client *http.Client) []Scanner {
	return []Scanner{
		NewGitHub(client),
		NewGitHubGist(client),
		NewGitLab(client),
		NewKeybase(client),
		NewDevTo(client),
		NewMedium(client),
		NewNpm(client),
		NewProductHunt(client),
		NewReddit(client),
		NewTwitch(client),
		NewTelegram(client),
		NewAboutMe(client),
		NewPinterest(client),
		NewSoundCloud(client),
		NewKaggle(client),
		NewDribbble(client),
		NewBehance(client),
		NewX(client),
	}
}

// ForEmail returns the email scanner fleet.
func ForEmail(client *http.Client) []Scanner {
	return []Scanner{
		NewGravatar(client),
		NewGravatarProfile(client),
		NewOpenPGPKeys(client),
		NewUbuntuKeyserver(client),
	}
}

func fetch(ctx context.Context, client *http.Client, url string, headers map[string]string) (*webclient.Response, error) {
	return webclient.Get(ctx, client, url, headers)
}

func statusMetadata(resp *webclient.Response) map[string]any {
	return map[string]any{
		"status_code": resp.StatusCode,
		"final_url":   resp.FinalURL,
	}
}
