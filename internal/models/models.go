package models

import (
	"strings"
	"time"
)

// SocialProfile represents one source's verdict on one identifier.
// It unifies the output of hand-written scanners, the site-list engine and
// the Sherlock runner into a single record with an open-schema evidence bag.
type SocialProfile struct {
	// URL is the canonical public URL of the profile, or the endpoint used
	// to check it when the source has no browsable page.
	URL string `json:"url"`
	// Username is the identifier probed or detected. For email-keyed
	// sources it holds the email address.
	Username string `json:"username"`
	// NetworkName is the short stable key of the source, e.g. "github",
	// "reddit", "gravatar", "hibp", "aboutme_social_link".
	NetworkName string `json:"network_name"`
	// Exists reports whether the source decided the identifier resolves to
	// a real public presence. The Spanish wire name is load-bearing:
	// downstream consumers already parse it.
	Exists bool `json:"existe"`
	// Metadata carries arbitrary evidence (status codes, headers, signals).
	// Consumers look up known keys; unknown keys pass through untouched.
	Metadata map[string]any `json:"metadata"`
	// Bio is the public bio/description when available.
	Bio string `json:"bio,omitempty"`
	// ImageURL is the public avatar URL when available. Same deal as Exists:
	// the wire name must stay "imagen_url".
	ImageURL string `json:"imagen_url,omitempty"`
}

// Meta returns the metadata map, allocating it on first use.
func (p *SocialProfile) Meta() map[string]any {
	if p.Metadata == nil {
		p.Metadata = make(map[string]any)
	}
	return p.Metadata
}

// MetaString fetches a metadata value as a trimmed string, "" when absent
// or not a string.
func (p *SocialProfile) MetaString(key string) string {
	if p.Metadata == nil {
		return ""
	}
	if s, ok := p.Metadata[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

// AnalysisReport is the artifact produced by the AI analyst (or its
// deterministic heuristic fallback).
type AnalysisReport struct {
	// Summary is Markdown containing six enumerated sections "## 1."
	// through "## 6." (identity, geo-temporal, OCEAN, technical, ideology,
	// attack surface).
	Summary string `json:"summary"`
	// Highlights are short grounded deductions extracted from the evidence.
	Highlights []string `json:"highlights"`
	// Confidence is normalized to [0,1].
	Confidence float64 `json:"confidence"`
	// GeneratedAt is the UTC creation time of the report.
	GeneratedAt time.Time `json:"generated_at"`
	// Model identifies the provider model actually used, or "heuristic".
	Model string `json:"model,omitempty"`
	// Raw keeps the full provider envelope for audit.
	Raw map[string]any `json:"raw,omitempty"`
}

// PersonEntity is the aggregate for one investigation: the target label,
// every profile checked, and the optional analysis.
type PersonEntity struct {
	Target   string          `json:"target"`
	Profiles []SocialProfile `json:"profiles"`
	Analysis *AnalysisReport `json:"analysis,omitempty"`
}

// ConfirmedProfiles returns the profiles whose source confirmed existence.
func (p *PersonEntity) ConfirmedProfiles() []SocialProfile {
	out := make([]SocialProfile, 0, len(p.Profiles))
	for _, prof := range p.Profiles {
		if prof.Exists {
			out = append(out, prof)
		}
	}
	return out
}

// HibpBreach is one breach entry from the unified-search endpoint. Field
// names match the upstream JSON.
type HibpBreach struct {
	Name        string   `json:"Name"`
	Title       string   `json:"Title"`
	Domain      string   `json:"Domain"`
	BreachDate  string   `json:"BreachDate"`
	PwnCount    int64    `json:"PwnCount"`
	Description string   `json:"Description"`
	DataClasses []string `json:"DataClasses"`
	IsVerified  bool     `json:"IsVerified"`
	IsSensitive bool     `json:"IsSensitive"`
}

// HibpBreaches groups the breach entries found for one email. It is stored
// under the profile metadata key "breaches".
type HibpBreaches struct {
	Email    string       `json:"email"`
	Breaches []HibpBreach `json:"breaches"`
}
