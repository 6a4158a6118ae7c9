package scanners

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/osinthound/osinthound/internal/models"
)

// keybaseProofStateOK marks proofs Keybase itself has verified.
const keybaseProofStateOK = 1

// Keybase hits the public lookup API. Verified proofs point at accounts the
// owner cryptographically claimed on other networks, so each one becomes a
// derived profile alongside the main hit.
type Keybase struct {
	client  *http.Client
	baseURL string
}

func NewKeybase(client *http.Client) *Keybase {
	return &Keybase{client: client, baseURL: "https://keybase.io"}
}

func (s *Keybase) Name() string { return "keybase" }

func (s *Keybase) Scan(ctx context.Context, username string) ([]models.SocialProfile, error) {
	apiURL := fmt.Sprintf("%s/_/api/1.0/user/lookup.json?usernames=%s&fields=basics,profile,pictures,proofs_summary", s.baseURL, username)

	profile := models.SocialProfile{
		URL:         fmt.Sprintf("%s/%s", s.baseURL, username),
		Username:    username,
		NetworkName: "keybase",
		Metadata:    map[string]any{"source": "keybase_api"},
	}

	resp, err := fetch(ctx, s.client, apiURL, map[string]string{"Accept": "application/json"})
	if err != nil {
		return nil, err
	}
	profile.Metadata["status_code"] = resp.StatusCode
	profile.Metadata["final_url"] = resp.FinalURL
	if resp.StatusCode != http.StatusOK {
		return []models.SocialProfile{profile}, nil
	}

	var lookup keybaseLookup
	if err := json.Unmarshal(resp.Body, &lookup); err != nil {
		return []models.SocialProfile{profile}, nil
	}
	if len(lookup.Them) == 0 || lookup.Them[0] == nil || lookup.Them[0].Basics.Username == "" {
		return []models.SocialProfile{profile}, nil
	}

	them := lookup.Them[0]
	profile.Exists = true
	profile.Bio = them.Profile.Bio
	profile.ImageURL = them.Pictures.Primary.URL
	if them.Profile.FullName != "" {
		profile.Metadata["name"] = them.Profile.FullName
	}
	if them.Profile.Location != "" {
		profile.Metadata["location"] = them.Profile.Location
	}
	if them.Basics.Ctime > 0 {
		profile.Metadata["created_at"] = time.Unix(int64(them.Basics.Ctime), 0).UTC().Format(time.RFC3339)
	}

	results := []models.SocialProfile{profile}
	var websites []string
	for _, proof := range them.ProofsSummary.All {
		if proof.State != keybaseProofStateOK || proof.Nametag == "" {
			continue
		}
		// Site proofs carry a domain instead of a handle.
		if proof.ProofType == "dns" || proof.ProofType == "generic_web_site" {
			websites = append(websites, proof.Nametag)
			continue
		}
		if !strings.HasPrefix(proof.ServiceURL, "http") {
			continue
		}
		results = append(results, models.SocialProfile{
			URL:         proof.ServiceURL,
			Username:    proof.Nametag,
			NetworkName: "keybase_proof",
			Exists:      true,
			Metadata: map[string]any{
				"source":        "keybase",
				"from_username": username,
				"proof_type":    proof.ProofType,
			},
		})
	}
	if len(websites) > 0 {
		profile.Metadata["other_websites"] = websites
	}

	return results, nil
}

type keybaseLookup struct {
	Them []*struct {
		Basics struct {
			Username string  `json:"username"`
			Ctime    float64 `json:"ctime"`
		} `json:"basics"`
		Profile struct {
			FullName string `json:"full_name"`
			Location string `json:"location"`
			Bio      string `json:"bio"`
		} `json:"profile"`
		Pictures struct {
			Primary struct {
				URL string `json:"url"`
			} `json:"primary"`
		} `json:"pictures"`
		ProofsSummary struct {
			All []keybaseProof `json:"all"`
		} `json:"proofs_summary"`
	} `json:"them"`
}

type keybaseProof struct {
	ProofType  string `json:"proof_type"`
	Nametag    string `json:"nametag"`
	State      int    `json:"state"`
	ServiceURL string `json:"service_url"`
}
