// Package analyst turns a hunt aggregate into an AnalysisReport. The
// primary path asks an OpenAI-compatible provider for a six-section
// profiler report and survives the usual provider misbehavior: rejected
// model names, rate limits, malformed JSON and boilerplate answers. When
// the budget runs out it degrades to a deterministic heuristic report.
package analyst

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/osinthound/osinthound/internal/config"
	oserrors "github.com/osinthound/osinthound/internal/errors"
	"github.com/osinthound/osinthound/internal/metrics"
	"github.com/osinthound/osinthound/internal/models"
)

const (
	contentRetryDelay = 500 * time.Millisecond
	backoffBase       = 1.25
	backoffJitterMax  = 0.35
)

var (
	jsonFenceRe    = regexp.MustCompile("(?is)```(?:json)?\\s*(\\{.*?\\})\\s*```")
	sectionOneRe   = regexp.MustCompile(`(?m)^##\s*1\.`)
	sectionSixRe   = regexp.MustCompile(`(?m)^##\s*6\.`)
	nextHeadingRe  = regexp.MustCompile(`(?m)^##\s+`)
	junkHeadingRe  = regexp.MustCompile(`(?im)^##\s*(highlights|confidence)\b`)
	errNoJSON      = errors.New("no JSON object in provider response")
	errEmptyReport = errors.New("report payload failed validation")
)

// sleepFn is swapped out in tests so retries do not stall the suite.
var sleepFn = func(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// Analyze produces a report for the aggregate. It never returns an error:
// every failure mode ends in the heuristic fallback, which records the
// machine-readable reason under raw.reason.
func Analyze(ctx context.Context, person *models.PersonEntity, language models.Language, settings *config.Settings) *models.AnalysisReport {
	clean := &models.PersonEntity{Target: person.Target}
	for _, p := range person.Profiles {
		if p.Exists {
			clean.Profiles = append(clean.Profiles, p)
		}
	}

	apiKey, ok := settings.AIKeyForBaseURL()
	if !ok {
		metrics.RecordAIRequest("heuristic")
		return heuristicReport(clean, language, "missing_ai_api_key")
	}

	client := NewClient(apiKey, settings.AIBaseURL, settings.AITimeout)
	model := settings.AIModel

	fallbackModel := ""
	if strings.Contains(strings.ToLower(settings.AIBaseURL), "api.groq.com") {
		fallbackModel = groqFallbackModel
	}

	payload, shape := buildPayload(clean, language)
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		metrics.RecordAIRequest("heuristic")
		return heuristicReport(clean, language, "provider_failed:payload")
	}

	messages := []chatMessage{
		{Role: "system", Content: systemPrompt(language, useCompactPrompt(settings.AIBaseURL, model))},
		{Role: "user", Content: string(payloadJSON)},
	}

	maxRetries := settings.AIMaxRetries
	lastKind := "unknown"

	for attempt := 0; ; {
		content, raw, chatErr := client.Chat(ctx, model, messages, aiTemperature, maxTokensForModel(model))

		if chatErr == nil {
			parsed, parseErr := parseReport(content)
			if parseErr != nil {
				lastKind = "parse"
				if attempt >= maxRetries {
					break
				}
				log.Debug().Err(parseErr).Int("attempt", attempt).Msg("AI response was not valid JSON; asking for a rewrite")
				messages = append(messages,
					chatMessage{Role: "assistant", Content: content},
					chatMessage{Role: "user", Content: fixInvalidJSONTurn(language)})
				metrics.RecordAIRetry("parse")
				sleepFn(ctx, contentRetryDelay)
				attempt++
				continue
			}

			missingSections := !summaryHasSixSections(parsed.Summary)
			if missingSections || looksLikeTemplate(parsed) {
				lastKind = "template"
				if attempt >= maxRetries {
					break
				}
				log.Debug().Bool("missing_sections", missingSections).Int("attempt", attempt).Msg("AI returned a template response; asking for real content")
				messages = append(messages,
					chatMessage{Role: "assistant", Content: content},
					chatMessage{Role: "user", Content: fixFormatTurn(language, missingSections)})
				metrics.RecordAIRetry("template")
				sleepFn(ctx, contentRetryDelay)
				attempt++
				continue
			}

			metrics.RecordAIRequest("success")
			return &models.AnalysisReport{
				Summary:     sanitizeSummary(parsed.Summary),
				Highlights:  parsed.Highlights,
				Confidence:  clampConfidence(parsed.confidence(), shape),
				GeneratedAt: time.Now().UTC(),
				Model:       model,
				Raw:         raw,
			}
		}

		// An empty or garbled 200 body counts as a parse failure, but there
		// is no offender content worth appending to the conversation.
		if errors.Is(chatErr, ErrEnvelope) {
			lastKind = "parse"
			if attempt >= maxRetries {
				break
			}
			metrics.RecordAIRetry("parse")
			sleepFn(ctx, contentRetryDelay)
			attempt++
			continue
		}

		var scanErr *oserrors.ScanError
		if errors.As(chatErr, &scanErr) && scanErr.StatusCode != 0 {
			lastKind = fmt.Sprintf("http_%d", scanErr.StatusCode)

			// A 400/404 naming the model usually means the preset model is
			// not served by this host. Swap in the host fallback once; this
			// retry is free because no answer was ever produced.
			if fallbackModel != "" && model != fallbackModel && oserrors.IsModelRejected(chatErr) {
				log.Info().Str("model", model).Str("fallback", fallbackModel).Msg("AI model rejected by provider; switching to fallback")
				model = fallbackModel
				messages[0].Content = systemPrompt(language, useCompactPrompt(settings.AIBaseURL, model))
				metrics.RecordAIRetry("model_fallback")
				continue
			}

			if oserrors.IsRateLimit(chatErr) {
				if attempt >= maxRetries {
					break
				}
				metrics.RecordAIRetry("rate_limited")
				sleepFn(ctx, retryDelay(attempt, retryAfterDuration(chatErr)))
				attempt++
				continue
			}
			break
		}

		if oserrors.IsRetryable(chatErr) {
			lastKind = "transport"
			if attempt >= maxRetries || ctx.Err() != nil {
				break
			}
			metrics.RecordAIRetry("transport")
			sleepFn(ctx, retryDelay(attempt, 0))
			attempt++
			continue
		}

		lastKind = "provider"
		break
	}

	metrics.RecordAIRequest("heuristic")
	return heuristicReport(clean, language, "provider_failed:"+lastKind)
}

// reportPayload is the JSON contract the provider must return.
type reportPayload struct {
	Summary    string   `json:"summary"`
	Highlights []string `json:"highlights"`
	Confidence *float64 `json:"confidence"`
}

func (p reportPayload) confidence() float64 {
	if p.Confidence == nil {
		return 0.5
	}
	return *p.Confidence
}

func parseReport(content string) (reportPayload, error) {
	jsonText, err := extractJSONObject(content)
	if err != nil {
		return reportPayload{}, err
	}
	var parsed reportPayload
	if err := json.Unmarshal([]byte(jsonText), &parsed); err != nil {
		return reportPayload{}, err
	}
	if parsed.Summary == "" {
		return reportPayload{}, errEmptyReport
	}
	if c := parsed.confidence(); c < 0 || c > 1 {
		return reportPayload{}, errEmptyReport
	}
	if parsed.Highlights == nil {
		parsed.Highlights = []string{}
	}
	return parsed, nil
}

// extractJSONObject pulls the report object out of whatever the model
// wrapped it in: a fenced block, the bare body, or prose around braces.
func extractJSONObject(text string) (string, error) {
	if m := jsonFenceRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1]), nil
	}

	stripped := strings.TrimSpace(text)
	if strings.HasPrefix(stripped, "{") && strings.HasSuffix(stripped, "}") {
		return stripped, nil
	}

	start := strings.Index(stripped, "{")
	end := strings.LastIndex(stripped, "}")
	if start >= 0 && start < end {
		candidate := stripped[start : end+1]
		if json.Valid([]byte(candidate)) {
			return candidate, nil
		}
	}
	return "", errNoJSON
}

var boilerplateSummaries = map[string]struct{}{
	"markdown text with the six sections above.": {},
	"texto en markdown con las seis secciones.":  {},
}

var placeholderHighlights = map[string]struct{}{
	"3-5 high-impact deductions.":       {},
	"lista de 3-5 deducciones rápidas.": {},
	"3-5 high impact deductions.":       {},
}

// looksLikeTemplate detects answers that copied the output contract back
// instead of filling it in.
func looksLikeTemplate(parsed reportPayload) bool {
	summary := strings.ToLower(strings.TrimSpace(parsed.Summary))
	if _, ok := boilerplateSummaries[summary]; ok {
		return true
	}

	if len(parsed.Highlights) == 0 {
		return true
	}
	for _, h := range parsed.Highlights {
		if _, ok := placeholderHighlights[strings.ToLower(strings.TrimSpace(h))]; ok {
			return true
		}
	}
	return false
}

// summaryHasSixSections requires at least the first and last section
// headings, which filters both truncated and free-form answers.
func summaryHasSixSections(summary string) bool {
	text := strings.TrimSpace(summary)
	if text == "" {
		return false
	}
	return sectionOneRe.MatchString(text) && sectionSixRe.MatchString(text)
}

// sanitizeSummary cuts everything after the sixth section, plus stray
// "## Highlights"/"## Confidence" headings some models append even though
// those exist as JSON fields.
func sanitizeSummary(text string) string {
	summary := strings.TrimSpace(text)
	if summary == "" {
		return summary
	}

	if loc := sectionSixRe.FindStringIndex(summary); loc != nil {
		tail := summary[loc[1]:]
		if next := nextHeadingRe.FindStringIndex(tail); next != nil {
			summary = strings.TrimRight(summary[:loc[1]+next[0]], " \t\r\n")
		}
	}

	if loc := junkHeadingRe.FindStringIndex(summary); loc != nil {
		summary = strings.TrimRight(summary[:loc[0]], " \t\r\n")
	}
	return summary
}

// clampConfidence caps self-reported confidence when the evidence carried
// no text samples or activity timestamps to ground deductions on.
func clampConfidence(confidence float64, shape evidenceShape) float64 {
	if shape.hasTextSamples || shape.hasTimestamps {
		return confidence
	}
	if shape.profileCount >= 3 {
		return math.Min(confidence, 0.55)
	}
	return math.Min(confidence, 0.35)
}

func retryAfterDuration(err error) time.Duration {
	return time.Duration(oserrors.RetryAfterSeconds(err) * float64(time.Second))
}

func retryDelay(attempt int, retryAfter time.Duration) time.Duration {
	base := retryAfter
	if base <= 0 {
		base = time.Duration(backoffBase * math.Pow(2, float64(attempt)) * float64(time.Second))
	}
	jitter := time.Duration(rand.Float64() * backoffJitterMax * float64(time.Second))
	return base + jitter
}
