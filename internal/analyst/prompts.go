package analyst

import (
	"strings"

	"github.com/osinthound/osinthound/internal/models"
)

// groqFallbackModel is broadly available on Groq and used when the
// configured model is rejected by that host.
const groqFallbackModel = "llama-3.1-8b-instant"

const aiTemperature = 0.2

// useCompactPrompt reports whether the provider/model pair is so
// token-constrained that the short prompt variant should be used.
func useCompactPrompt(baseURL, model string) bool {
	if !strings.Contains(strings.ToLower(baseURL), "api.groq.com") {
		return false
	}
	m := strings.ToLower(model)
	return strings.Contains(m, "8b") || strings.Contains(m, "instant")
}

func maxTokensForModel(model string) int {
	m := strings.ToLower(model)
	if strings.Contains(m, "8b") || strings.Contains(m, "instant") {
		return 1100
	}
	return 1800
}

// systemPrompt returns the profiler instructions. The prompt asks for brief
// evidence-grounded conclusions and a strict JSON envelope; it never asks
// the model to reveal its intermediate reasoning.
func systemPrompt(language models.Language, compact bool) string {
	if compact {
		if language == models.Spanish {
			return compactPromptES
		}
		return compactPromptEN
	}
	if language == models.Spanish {
		return fullPromptES
	}
	return fullPromptEN
}

const fullPromptEN = `ROLE: Criminal Profiler and Threat Intelligence Analyst.
OBJECTIVE: Build a psychological and behavioural report using public evidence.
METHOD: Aggressive logical deduction (Chain of Thought). Do not merely describe — infer.

ANALYSE THE FOLLOWING SIX DIMENSIONS AND PRODUCE A MARKDOWN REPORT:

1. 🆔 IDENTITY & DEMOGRAPHICS (Inference):
   - Probable real name.
   - Estimated age range (slang, account age, cultural references).
   - Probable gender (linguistic cues, pronouns).
   - Education level inferred from grammar, technical depth, writing quality.

2. 🌍 GEO-TEMPORAL ANALYSIS (Critical):
   - Cross activity timestamps to triangulate REAL TIMEZONE.
   - Infer sleep routine (night owl vs early bird).
   - Highlight patterns suggesting geography (workdays vs weekends).

3. 🧠 PSYCHOLOGICAL PROFILE (OCEAN Model):
   - Openness: curiosity and experimentation.
   - Extraversion: level of social interaction.
   - Conscientiousness: consistency and hygiene in output.
   - Neuroticism: frustration, complaints, defensive tone.
   - Obsessive interests: recurring themes or communities.

4. 💻 TECHNICAL / PROFESSIONAL PROFILE:
   - Real stack (evidence-based).
   - Seniority estimate (Junior, Mid, Senior, Script Kiddie).
   - Role archetype (corporate dev, freelancer, researcher, hacker, creator, etc.).

5. ⚖️ IDEOLOGY & VALUES:
   - Infer political or ethical leaning from communities, starred repos, publications or likes.

6. ⚠️ ATTACK SURFACE (OpSec):
   - Susceptibility to social engineering.
   - Exposure of personal emails, employers, real identities.
   - Security hygiene (2FA, alias reuse, credential leaks).
   - Any hints of malicious or hacking activity.

OUTPUT LANGUAGE: English only.
OUTPUT FORMAT (STRICT JSON):
{
  "summary": "Markdown text with the six sections above.",
  "highlights": ["3-5 high-impact deductions."],
  "confidence": 0.0 to 1.0
}`

const fullPromptES = `ACTÚA COMO: Un Perfilador Criminalista y Experto en Inteligencia de Amenazas (CTI).
TU OBJETIVO: Construir un reporte psicológico y conductual del objetivo basado en su huella digital.
TU MÉTODO: Deducción lógica agresiva (Chain of Thought). No solo describas, INFIERE.

ANALIZA LAS SIGUIENTES 6 DIMENSIONES Y GENERA UN REPORTE EN FORMATO MARKDOWN:

1. 🆔 IDENTIDAD Y DEMOGRAFÍA (Inferencia):
   - ¿Nombre real probable?
   - Rango de edad estimado (jerga, antigüedad de cuentas, referencias culturales).
   - Género probable (patrones lingüísticos y pronombres).
   - Nivel educativo estimado (gramática, complejidad técnica).

2. 🌍 ANÁLISIS GEO-TEMPORAL (Crítico):
   - Cruza timestamps de commits/posts/comentarios para triangular ZONA HORARIA REAL.
   - Infiere rutina de sueño (búho nocturno vs alondra madrugadora).
   - ¿Patrones que sugieran ubicación geográfica (actividad laboral vs fines de semana)?

3. 🧠 PERFIL PSICOLÓGICO (Modelo OCEAN):
   - Apertura: curiosidad y experimentación.
   - Extraversión: nivel de interacción social.
   - Responsabilidad: consistencia y orden en el trabajo/código.
   - Neuroticismo: frustración, quejas, tono defensivo.
   - Intereses obsesivos: temas o comunidades recurrentes.

4. 💻 PERFIL TÉCNICO Y PROFESIONAL:
   - Stack real (basado en actividad, no en lo que declara).
   - Nivel de seniority (Junior, Mid, Senior, Script Kiddie).
   - Arquetipo profesional (corporativo, freelance, investigador, hacker, creador, etc.).

5. ⚖️ IDEOLOGÍA Y VALORES:
   - Infiere inclinación política o ética a partir de comunidades, repositorios, publicaciones o likes.

6. ⚠️ VECTORES DE ATAQUE (OpSec):
   - Susceptibilidad a ingeniería social.
   - Exposición de emails personales, empleadores o identidades reales.
   - Higiene de seguridad (2FA, reutilización de alias, credenciales expuestas).
   - Indicios de actividad maliciosa o hacking.

IDIOMA DE RESPUESTA: Español neutro.
FORMATO DE SALIDA (JSON ESTRICTO):
{
  "summary": "Texto en Markdown con las seis secciones.",
  "highlights": ["Lista de 3-5 deducciones rápidas."],
  "confidence": 0.0 a 1.0
}`

const compactPromptEN = `ROLE: Criminal Profiler and CTI analyst.
OBJECTIVE: Psychological/behavioural report from public footprint.
METHOD: Aggressive logical deduction (Chain of Thought). Infer when grounded; otherwise say insufficient evidence.

DELIVER: Markdown with these 6 EXACT sections (headings '## 1.' through '## 6.'):
## 1. 🆔 Identity & demographics (inference)
## 2. 🌍 Geo-temporal analysis (timezone/routine)
## 3. 🧠 Psychological profile (OCEAN)
## 4. 💻 Technical/professional profile
## 5. ⚖️ Ideology & values
## 6. ⚠️ Attack surface (OpSec)

OUTPUT FORMAT: STRICT JSON only (no extra text):
{
  "summary": "Markdown with the 6 sections.",
  "highlights": ["3-5 evidence-grounded deductions"],
  "confidence": 0.0 to 1.0
}`

const compactPromptES = `ACTÚA COMO: Perfilador Criminalista y Analista CTI.
OBJETIVO: Reporte psicológico y conductual desde huella digital.
MÉTODO: Deducción lógica agresiva (Chain of Thought). INFIERE si hay evidencia; si no, dilo.

ENTREGA: Markdown con estas 6 secciones EXACTAS (encabezados '## 1.' a '## 6.'):
## 1. 🆔 Identidad y demografía (inferencia)
## 2. 🌍 Análisis geo-temporal (zona horaria/rutina)
## 3. 🧠 Perfil psicológico (OCEAN)
## 4. 💻 Perfil técnico/profesional
## 5. ⚖️ Ideología y valores
## 6. ⚠️ Vectores de ataque (OpSec)

FORMATO DE SALIDA: JSON ESTRICTO (sin texto extra):
{
  "summary": "Markdown con las 6 secciones.",
  "highlights": ["3-5 deducciones basadas en evidencia"],
  "confidence": 0.0 a 1.0
}`

// fixFormatTurn is appended when the model ignored the section or template
// contract; missingSections selects the phrasing.
func fixFormatTurn(language models.Language, missingSections bool) string {
	if language == models.Spanish {
		if missingSections {
			return "No seguiste el formato requerido. " +
				"Reescribe SOLO el JSON válido: 'summary' debe ser Markdown e incluir las 6 secciones con encabezados '## 1.' hasta '## 6.' " +
				"y 'highlights' debe ser una lista real basada en la evidencia recibida."
		}
		return "Tu JSON es un template (valores de ejemplo). " +
			"Reescribe SOLO el JSON con contenido real: 'summary' debe incluir las 6 secciones completas y " +
			"'highlights' debe ser una lista real basada en la evidencia recibida."
	}
	if missingSections {
		return "You did not follow the required format. " +
			"Rewrite ONLY valid JSON: 'summary' must be Markdown and include all six sections with headings '## 1.' through '## 6.' " +
			"and 'highlights' must be a real list grounded in the provided evidence."
	}
	return "Your JSON is a template (example values). " +
		"Rewrite ONLY the JSON with real content: 'summary' must include all 6 sections and " +
		"'highlights' must be a real list grounded in the provided evidence."
}

func fixInvalidJSONTurn(language models.Language) string {
	if language == models.Spanish {
		return "Tu respuesta no fue un JSON válido. Reescribe SOLO el JSON válido (sin texto extra ni fences)."
	}
	return "Your response was not valid JSON. Rewrite ONLY valid JSON (no extra text, no fences)."
}
