package analyst

import (
	"fmt"
	"strings"
	"time"

	"github.com/osinthound/osinthound/internal/models"
)

const heuristicConfidence = 0.25

// heuristicReport is the deterministic stand-in used whenever the AI path
// cannot deliver a trustworthy result. It only states what the evidence
// directly shows and never infers.
func heuristicReport(person *models.PersonEntity, language models.Language, reason string) *models.AnalysisReport {
	profiles := person.Profiles

	var confirmed int
	networkSet := map[string]struct{}{}
	emailSet := map[string]struct{}{}
	for i := range profiles {
		p := &profiles[i]
		if p.Exists {
			confirmed++
			if p.NetworkName != "" {
				networkSet[strings.ToLower(p.NetworkName)] = struct{}{}
			}
		}
		if strings.Contains(p.Username, "@") {
			emailSet[p.Username] = struct{}{}
		}
	}
	networks := joinOrNA(sortedKeys(networkSet))
	emails := joinOrNA(sortedKeys(emailSet))

	breachLines := heuristicBreachLines(profiles)

	var summary []string
	var highlights []string
	if language == models.Spanish {
		summary = []string{
			"## 1. 🆔 Identidad y demografía (inferencias)",
			"Evidencia insuficiente para inferir atributos personales de forma responsable.",
			"\n## 2. 🌍 Análisis geo-temporal",
			"No hay timestamps suficientes para triangular zona horaria.",
			"\n## 3. 🧠 Perfil psicológico (OCEAN)",
			"No se observa contenido textual confiable para un perfil psicológico.",
			"\n## 4. 💻 Perfil técnico/profesional",
			fmt.Sprintf("Perfiles confirmados: %d / %d.", confirmed, len(profiles)),
			fmt.Sprintf("Redes confirmadas: %s.", networks),
			"\n## 5. ⚖️ Ideología y valores",
			"Sin evidencia suficiente para inferencias ideológicas.",
			"\n## 6. ⚠️ OpSec / superficie de ataque",
			fmt.Sprintf("Emails observados: %s.", emails),
		}
		if len(breachLines) > 0 {
			summary = append(summary, "\nResultados de brechas (HIBP):\n"+strings.Join(breachLines, "\n"))
		}
		summary = append(summary, fmt.Sprintf("\n> Nota: análisis heurístico (sin IA remota). Motivo: %s.", reason))

		highlights = []string{
			fmt.Sprintf("Perfiles confirmados: %d.", confirmed),
			fmt.Sprintf("Redes confirmadas: %s.", networks),
		}
		if len(breachLines) > 0 {
			highlights = append(highlights, "Se detectaron resultados de HIBP (breach-check).")
		}
	} else {
		summary = []string{
			"## 1. 🆔 Identity & demographics (inference)",
			"Insufficient evidence to infer personal attributes responsibly.",
			"\n## 2. 🌍 Geo-temporal analysis",
			"Not enough timestamps to triangulate timezone.",
			"\n## 3. 🧠 Psychological profile (OCEAN)",
			"No reliable textual evidence for a psychological profile.",
			"\n## 4. 💻 Technical/professional profile",
			fmt.Sprintf("Confirmed profiles: %d / %d.", confirmed, len(profiles)),
			fmt.Sprintf("Confirmed networks: %s.", networks),
			"\n## 5. ⚖️ Ideology & values",
			"Insufficient evidence for ideological inferences.",
			"\n## 6. ⚠️ OpSec / attack surface",
			fmt.Sprintf("Observed emails: %s.", emails),
		}
		if len(breachLines) > 0 {
			summary = append(summary, "\nHIBP breach results:\n"+strings.Join(breachLines, "\n"))
		}
		summary = append(summary, fmt.Sprintf("\n> Note: heuristic analysis (no remote AI). Reason: %s.", reason))

		highlights = []string{
			fmt.Sprintf("Confirmed profiles: %d.", confirmed),
			fmt.Sprintf("Confirmed networks: %s.", networks),
		}
		if len(breachLines) > 0 {
			highlights = append(highlights, "HIBP breach-check returned results.")
		}
	}

	return &models.AnalysisReport{
		Summary:     strings.TrimSpace(strings.Join(summary, "\n")),
		Highlights:  highlights,
		Confidence:  heuristicConfidence,
		GeneratedAt: time.Now().UTC(),
		Model:       "heuristic",
		Raw:         map[string]any{"reason": reason},
	}
}

// heuristicBreachLines renders one line per breach-check profile: a failure
// line, "0 breaches", or the count plus up to six breach titles.
func heuristicBreachLines(profiles []models.SocialProfile) []string {
	var lines []string
	for i := range profiles {
		p := &profiles[i]
		if strings.ToLower(p.NetworkName) != "hibp" {
			continue
		}
		meta := p.Metadata

		status, _ := meta["status_code"].(int)
		if status != 200 {
			lines = append(lines, fmt.Sprintf("- %s: status=%v error=%v", p.Username, meta["status_code"], meta["error"]))
			continue
		}

		dump, ok := meta["breaches"].(models.HibpBreaches)
		if !ok || len(dump.Breaches) == 0 {
			lines = append(lines, fmt.Sprintf("- %s: 0 breaches", p.Username))
			continue
		}

		var titles []string
		for j := range dump.Breaches {
			if j == 6 {
				break
			}
			if t := dump.Breaches[j].Title; t != "" {
				titles = append(titles, t)
			}
		}
		more := ""
		if len(dump.Breaches) > 6 {
			more = fmt.Sprintf(" (+%d more)", len(dump.Breaches)-6)
		}
		lines = append(lines, fmt.Sprintf("- %s: %d breaches → %s%s", p.Username, len(dump.Breaches), strings.Join(titles, ", "), more))
	}
	return lines
}

func joinOrNA(values []string) string {
	if len(values) == 0 {
		return "N/A"
	}
	return strings.Join(values, ", ")
}
