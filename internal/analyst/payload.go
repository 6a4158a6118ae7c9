package analyst

import (
	"reflect"
	"sort"
	"strings"
	"unicode"

	"github.com/osinthound/osinthound/internal/models"
)

// Caps applied while assembling the evidence payload. Oversized prompts blow
// token-per-minute limits on small hosted models, so every free-text field
// is truncated and every list is bounded.
const (
	maxPayloadProfiles  = 30
	maxBioChars         = 420
	maxLocationChars    = 140
	maxNameChars        = 160
	maxBlogChars        = 220
	maxCreatedAtChars   = 64
	maxLanguagesItems   = 25
	maxLanguagesChars   = 220
	maxTimestampItems   = 60
	maxTextSamples      = 16
	maxTextSampleChars  = 320
	maxConfirmedURLs    = 60
	maxPayloadEmails    = 20
	maxPayloadHandles   = 40
	maxReusedHandles    = 20
	maxBreachSummaries  = 10
	maxBreachTopEntries = 10
)

// evidenceShape summarizes what the payload actually contained, which
// drives the confidence clamp after the model answers.
type evidenceShape struct {
	hasTextSamples bool
	hasTimestamps  bool
	profileCount   int
}

// buildPayload flattens a cleaned aggregate (confirmed profiles only) into
// the JSON evidence document sent as the user turn.
func buildPayload(person *models.PersonEntity, language models.Language) (map[string]any, evidenceShape) {
	profilesData := make([]map[string]any, 0, len(person.Profiles))
	for i := range person.Profiles {
		profilesData = append(profilesData, profilePayload(&person.Profiles[i]))
	}
	if len(profilesData) > maxPayloadProfiles {
		profilesData = profilesData[:maxPayloadProfiles]
	}

	networkSet := map[string]struct{}{}
	var confirmedURLs []string
	for _, p := range person.Profiles {
		if p.NetworkName != "" {
			networkSet[strings.ToLower(p.NetworkName)] = struct{}{}
		}
		if p.URL != "" && len(confirmedURLs) < maxConfirmedURLs {
			confirmedURLs = append(confirmedURLs, stripQuery(p.URL))
		}
	}
	confirmedNetworks := sortedKeys(networkSet)

	emailSet := map[string]struct{}{}
	handleSet := map[string]struct{}{}
	handleCounts := map[string]int{}
	for _, p := range person.Profiles {
		u := strings.TrimSpace(p.Username)
		if u == "" {
			continue
		}
		if strings.Contains(u, "@") {
			emailSet[strings.ToLower(u)] = struct{}{}
			continue
		}
		handleSet[u] = struct{}{}
		handleCounts[strings.ToLower(u)]++
	}
	var reused []string
	for handle, count := range handleCounts {
		if count >= 2 {
			reused = append(reused, handle)
		}
	}
	sort.Strings(reused)

	var breachSummary []map[string]any
	for i := range person.Profiles {
		p := &person.Profiles[i]
		if strings.ToLower(p.NetworkName) != "hibp" || len(breachSummary) >= maxBreachSummaries {
			continue
		}
		if hibp := breachPayload(p.Metadata); hibp != nil {
			breachSummary = append(breachSummary, map[string]any{
				"email": p.Username,
				"count": hibp["count"],
				"top":   hibp["top"],
			})
		}
	}

	shape := evidenceShape{profileCount: len(profilesData)}
	for _, p := range profilesData {
		if _, ok := p["text_samples"]; ok {
			shape.hasTextSamples = true
		}
		if _, ok := p["activity_timestamps"]; ok {
			shape.hasTimestamps = true
		}
	}

	payload := map[string]any{
		"target_query":       person.Target,
		"evidence_count":     len(profilesData),
		"confirmed_networks": confirmedNetworks,
		"confirmed_urls":     confirmedURLs,
		"signals": map[string]any{
			"has_text_samples":        shape.hasTextSamples,
			"has_activity_timestamps": shape.hasTimestamps,
			"emails":                  capStrings(sortedKeys(emailSet), maxPayloadEmails),
			"handles":                 capStrings(sortedKeys(handleSet), maxPayloadHandles),
			"reused_handles":          capStrings(reused, maxReusedHandles),
			"breach_summary":          breachSummary,
		},
		"profiles":        profilesData,
		"output_language": string(language),
	}
	return payload, shape
}

func profilePayload(p *models.SocialProfile) map[string]any {
	meta := p.Metadata

	out := map[string]any{
		"network":  p.NetworkName,
		"username": p.Username,
	}
	if p.URL != "" {
		out["url"] = stripQuery(p.URL)
	}

	bio := p.Bio
	if bio == "" {
		bio = metaString(meta, "bio")
	}
	putString(out, "bio", truncate(bio, maxBioChars))
	putString(out, "location", truncate(metaString(meta, "location", "location_claim"), maxLocationChars))

	signals := map[string]any{}
	putString(signals, "display_name", truncate(metaString(meta, "name", "display_name"), maxNameChars))
	putString(signals, "company", truncate(metaString(meta, "company"), maxNameChars))
	putString(signals, "blog", truncate(metaString(meta, "blog", "website"), maxBlogChars))
	putString(signals, "created_at", truncate(metaString(meta, "created_at", "created_utc"), maxCreatedAtChars))
	putTruthy(signals, "followers", meta["followers"])
	putTruthy(signals, "following", meta["following"])
	putTruthy(signals, "public_repos", firstTruthy(meta["public_repos"], meta["repos"]))

	languages := firstTruthy(meta["languages"], meta["tech_stack"])
	if items := limitList(languages, maxLanguagesItems); items != nil {
		signals["languages"] = items
	} else if s, ok := languages.(string); ok {
		putString(signals, "languages", truncate(s, maxLanguagesChars))
	}
	if len(signals) > 0 {
		out["signals"] = signals
	}

	if timestamps := limitList(firstTruthy(meta["commits"], meta["timestamps"]), maxTimestampItems); timestamps != nil {
		out["activity_timestamps"] = timestamps
	}
	if samples := textSamples(firstTruthy(meta["comments"], meta["texts"])); len(samples) > 0 {
		out["text_samples"] = samples
	}

	if strings.ToLower(p.NetworkName) == "hibp" {
		if hibp := breachPayload(meta); hibp != nil {
			out["hibp_breaches"] = hibp
		}
	}
	return out
}

// breachPayload compacts the typed breach dump stored by the breach checker
// into {count, top} for the prompt.
func breachPayload(meta map[string]any) map[string]any {
	if meta == nil {
		return nil
	}
	dump, ok := meta["breaches"].(models.HibpBreaches)
	if !ok {
		return nil
	}
	top := make([]map[string]any, 0, maxBreachTopEntries)
	for i := range dump.Breaches {
		if i == maxBreachTopEntries {
			break
		}
		b := &dump.Breaches[i]
		top = append(top, map[string]any{
			"title":        b.Title,
			"domain":       b.Domain,
			"breach_date":  b.BreachDate,
			"pwn_count":    b.PwnCount,
			"data_classes": b.DataClasses,
		})
	}
	return map[string]any{"count": len(dump.Breaches), "top": top}
}

// truncate trims, then cuts to maxChars runes ending in a single ellipsis
// character when the value was longer.
func truncate(value string, maxChars int) string {
	s := strings.TrimSpace(value)
	if s == "" {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxChars {
		return s
	}
	head := strings.TrimRightFunc(string(runes[:maxChars-1]), unicode.IsSpace)
	return head + "…"
}

func stripQuery(url string) string {
	if i := strings.Index(url, "?"); i >= 0 {
		return url[:i]
	}
	return url
}

// limitList returns the first maxItems elements of any slice value, nil for
// non-slices and empty slices.
func limitList(value any, maxItems int) []any {
	if value == nil {
		return nil
	}
	v := reflect.ValueOf(value)
	if v.Kind() != reflect.Slice || v.Len() == 0 {
		return nil
	}
	n := v.Len()
	if n > maxItems {
		n = maxItems
	}
	out := make([]any, n)
	for i := 0; i < n; i++ {
		out[i] = v.Index(i).Interface()
	}
	return out
}

// textSamples keeps only string items; scanners that store structured
// comment records contribute nothing here.
func textSamples(value any) []string {
	items := limitList(value, maxTextSamples)
	if items == nil {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			if t := truncate(s, maxTextSampleChars); t != "" {
				out = append(out, t)
			}
		}
	}
	return out
}

func metaString(meta map[string]any, keys ...string) string {
	for _, key := range keys {
		if s, ok := meta[key].(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}
	return ""
}

func putString(m map[string]any, key, value string) {
	if value != "" {
		m[key] = value
	}
}

func putTruthy(m map[string]any, key string, value any) {
	if truthy(value) {
		m[key] = value
	}
}

func firstTruthy(values ...any) any {
	for _, v := range values {
		if truthy(v) {
			return v
		}
	}
	return nil
}

func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case string:
		return v != ""
	case bool:
		return v
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	default:
		rv := reflect.ValueOf(value)
		switch rv.Kind() {
		case reflect.Slice, reflect.Map:
			return rv.Len() > 0
		}
		return true
	}
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for key := range set {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

func capStrings(values []string, maxItems int) []string {
	if len(values) > maxItems {
		return values[:maxItems]
	}
	return values
}
