package export

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/osinthound/osinthound/internal/models"
)

// Color scheme - dark ink theme for investigation reports
var (
	colorPrimary     = [3]int{24, 42, 69}    // Deep ink
	colorSecondary   = [3]int{61, 108, 180}  // Steel blue
	colorAccent      = [3]int{39, 146, 92}   // Green
	colorWarning     = [3]int{214, 158, 36}  // Amber
	colorDanger      = [3]int{201, 66, 57}   // Red
	colorTextDark    = [3]int{40, 50, 62}    // Dark text
	colorTextMuted   = [3]int{126, 138, 150} // Muted text
	colorBackground  = [3]int{246, 248, 250} // Light gray bg
	colorTableHeader = [3]int{24, 42, 69}    // Ink header
	colorTableAlt    = [3]int{240, 244, 248} // Alternating row
	colorGridLine    = [3]int{219, 223, 228} // Rules
)

// unconfirmedRowsPerSource caps how many misses are listed per source before
// the group collapses into a "... and N more" line.
const unconfirmedRowsPerSource = 15

// PDFGenerator renders a person aggregate into a PDF report.
type PDFGenerator struct{}

// NewPDFGenerator creates a new PDF generator.
func NewPDFGenerator() *PDFGenerator {
	return &PDFGenerator{}
}

// Generate creates a PDF report for the person aggregate: cover page,
// findings overview, confirmed profiles, breach exposure, unconfirmed checks
// grouped by source, and the analyst assessment when one is attached.
func (g *PDFGenerator) Generate(person *models.PersonEntity) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 25)

	// Core PDF fonts are cp1252; targets, bios and the analyst text can
	// carry accented characters.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	generatedAt := time.Now().UTC().Truncate(time.Second)
	reportID := fmt.Sprintf("%s:%s", person.Target, generatedAt.Format(time.RFC3339))
	confirmed := person.ConfirmedProfiles()

	g.writeCoverPage(pdf, tr, person, confirmed, generatedAt, reportID)

	pdf.AddPage()
	g.addPageHeader(pdf, tr, person, "Findings Overview")
	g.writeOverview(pdf, tr, person, confirmed)

	g.writeConfirmedSection(pdf, tr, person, confirmed)
	g.writeBreachSection(pdf, tr, person, confirmed)
	g.writeUnconfirmedSection(pdf, tr, person)

	if person.Analysis != nil {
		pdf.AddPage()
		g.addPageHeader(pdf, tr, person, "Analyst Assessment")
		g.writeAnalysisSection(pdf, tr, person.Analysis)
	}

	g.addPageNumbers(pdf)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("PDF output error: %w", err)
	}

	return buf.Bytes(), nil
}

// WritePDF renders the report and writes it to path, creating parent
// directories as needed.
func WritePDF(person *models.PersonEntity, path string) error {
	data, err := NewPDFGenerator().Generate(person)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create report directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// writeCoverPage creates the cover page.
func (g *PDFGenerator) writeCoverPage(pdf *fpdf.Fpdf, tr func(string) string, person *models.PersonEntity, confirmed []models.SocialProfile, generatedAt time.Time, reportID string) {
	pdf.AddPage()

	pageWidth, pageHeight := pdf.GetPageSize()

	// Top accent bar
	pdf.SetFillColor(colorPrimary[0], colorPrimary[1], colorPrimary[2])
	pdf.Rect(0, 0, pageWidth, 8, "F")

	// Branding area
	pdf.SetY(50)
	pdf.SetFont("Arial", "B", 32)
	pdf.SetTextColor(colorPrimary[0], colorPrimary[1], colorPrimary[2])
	pdf.CellFormat(0, 15, "OSINTHOUND", "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "", 12)
	pdf.SetTextColor(colorTextMuted[0], colorTextMuted[1], colorTextMuted[2])
	pdf.CellFormat(0, 8, "Identity Correlation", "", 1, "C", false, 0, "")

	// Main title
	pdf.SetY(100)
	pdf.SetFont("Arial", "B", 28)
	pdf.SetTextColor(colorTextDark[0], colorTextDark[1], colorTextDark[2])
	pdf.CellFormat(0, 12, "Investigation Report", "", 1, "C", false, 0, "")

	// Target info box
	pdf.SetY(130)
	boxX := 40.0
	boxWidth := pageWidth - 80
	boxHeight := 50.0

	pdf.SetFillColor(colorBackground[0], colorBackground[1], colorBackground[2])
	pdf.SetDrawColor(colorGridLine[0], colorGridLine[1], colorGridLine[2])
	pdf.RoundedRect(boxX, pdf.GetY(), boxWidth, boxHeight, 3, "1234", "FD")

	pdf.SetY(pdf.GetY() + 10)
	pdf.SetFont("Arial", "B", 11)
	pdf.SetTextColor(colorTextMuted[0], colorTextMuted[1], colorTextMuted[2])
	pdf.CellFormat(0, 7, "TARGET", "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "B", 16)
	pdf.SetTextColor(colorTextDark[0], colorTextDark[1], colorTextDark[2])
	pdf.CellFormat(0, 10, clip(tr(person.Target), 48), "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "", 11)
	pdf.SetTextColor(colorTextMuted[0], colorTextMuted[1], colorTextMuted[2])
	countsStr := fmt.Sprintf("%d profiles checked  -  %d confirmed", len(person.Profiles), len(confirmed))
	pdf.CellFormat(0, 7, countsStr, "", 1, "C", false, 0, "")

	// Report identity
	pdf.SetY(200)
	pdf.SetFont("Arial", "B", 11)
	pdf.SetTextColor(colorTextMuted[0], colorTextMuted[1], colorTextMuted[2])
	pdf.CellFormat(0, 7, "REPORT ID", "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "", 10)
	pdf.SetTextColor(colorTextDark[0], colorTextDark[1], colorTextDark[2])
	pdf.CellFormat(0, 8, clip(tr(reportID), 70), "", 1, "C", false, 0, "")

	// Bottom section
	pdf.SetY(pageHeight - 50)
	pdf.SetFont("Arial", "", 10)
	pdf.SetTextColor(colorTextMuted[0], colorTextMuted[1], colorTextMuted[2])
	pdf.CellFormat(0, 6, fmt.Sprintf("Generated: %s", generatedAt.Format("January 2, 2006 at 15:04 UTC")), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Sources consulted: %d", countSources(person.Profiles)), "", 1, "C", false, 0, "")

	// Bottom accent bar
	pdf.SetFillColor(colorPrimary[0], colorPrimary[1], colorPrimary[2])
	pdf.Rect(0, pageHeight-8, pageWidth, 8, "F")
}

// addPageHeader adds a consistent header to content pages.
func (g *PDFGenerator) addPageHeader(pdf *fpdf.Fpdf, tr func(string) string, person *models.PersonEntity, section string) {
	pageWidth, _ := pdf.GetPageSize()

	// Top line
	pdf.SetDrawColor(colorPrimary[0], colorPrimary[1], colorPrimary[2])
	pdf.SetLineWidth(0.5)
	pdf.Line(20, 15, pageWidth-20, 15)

	// Header text
	pdf.SetY(18)
	pdf.SetFont("Arial", "B", 9)
	pdf.SetTextColor(colorPrimary[0], colorPrimary[1], colorPrimary[2])
	pdf.CellFormat(0, 5, "OSINTHOUND IDENTITY REPORT", "", 0, "L", false, 0, "")

	pdf.SetFont("Arial", "", 9)
	pdf.SetTextColor(colorTextMuted[0], colorTextMuted[1], colorTextMuted[2])
	pdf.CellFormat(0, 5, clip(tr(person.Target), 40), "", 1, "R", false, 0, "")

	// Section title
	pdf.SetY(30)
	pdf.SetFont("Arial", "B", 18)
	pdf.SetTextColor(colorTextDark[0], colorTextDark[1], colorTextDark[2])
	pdf.CellFormat(0, 10, section, "", 1, "L", false, 0, "")

	pdf.Ln(5)
}

// writeOverview writes the footprint card, quick stats and notable findings.
func (g *PDFGenerator) writeOverview(pdf *fpdf.Fpdf, tr func(string) string, person *models.PersonEntity, confirmed []models.SocialProfile) {
	pageWidth, _ := pdf.GetPageSize()

	checked := len(person.Profiles)
	confirmedCount := len(confirmed)
	unconfirmedCount := checked - confirmedCount
	sourceCount := countSources(person.Profiles)

	footprint := "NO FOOTPRINT"
	footprintColor := colorSecondary
	message := fmt.Sprintf("No public presence confirmed across %d checks", checked)
	if confirmedCount >= 15 {
		footprint = "BROAD FOOTPRINT"
		footprintColor = colorDanger
		message = fmt.Sprintf("%d confirmed profiles expose a wide public surface", confirmedCount)
	} else if confirmedCount >= 5 {
		footprint = "VISIBLE FOOTPRINT"
		footprintColor = colorWarning
		message = fmt.Sprintf("%d confirmed profiles found for this target", confirmedCount)
	} else if confirmedCount >= 1 {
		footprint = "LIMITED FOOTPRINT"
		footprintColor = colorAccent
		if confirmedCount == 1 {
			message = "1 confirmed profile found for this target"
		} else {
			message = fmt.Sprintf("%d confirmed profiles found for this target", confirmedCount)
		}
	}

	// Footprint card
	cardX := 20.0
	cardWidth := pageWidth - 40
	cardHeight := 35.0

	pdf.SetFillColor(footprintColor[0], footprintColor[1], footprintColor[2])
	pdf.RoundedRect(cardX, pdf.GetY(), cardWidth, cardHeight, 3, "1234", "F")

	pdf.SetXY(cardX, pdf.GetY()+8)
	pdf.SetFont("Arial", "B", 24)
	pdf.SetTextColor(255, 255, 255)
	pdf.CellFormat(cardWidth, 12, footprint, "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(cardWidth, 8, message, "", 1, "C", false, 0, "")

	pdf.SetY(pdf.GetY() + 15)

	// Quick Stats - simple table format
	pdf.SetFont("Arial", "B", 11)
	pdf.SetTextColor(colorTextDark[0], colorTextDark[1], colorTextDark[2])
	pdf.CellFormat(0, 8, "Quick Stats", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	colWidth := 42.5
	pdf.SetFillColor(colorBackground[0], colorBackground[1], colorBackground[2])
	pdf.SetFont("Arial", "B", 9)
	pdf.SetTextColor(colorTextDark[0], colorTextDark[1], colorTextDark[2])
	pdf.CellFormat(colWidth, 7, "Checked", "0", 0, "C", true, 0, "")
	pdf.CellFormat(colWidth, 7, "Confirmed", "0", 0, "C", true, 0, "")
	pdf.CellFormat(colWidth, 7, "Unconfirmed", "0", 0, "C", true, 0, "")
	pdf.CellFormat(colWidth, 7, "Sources", "0", 1, "C", true, 0, "")

	pdf.SetFont("Arial", "B", 16)
	pdf.SetTextColor(colorTextDark[0], colorTextDark[1], colorTextDark[2])
	pdf.CellFormat(colWidth, 9, fmt.Sprintf("%d", checked), "0", 0, "C", false, 0, "")
	pdf.SetTextColor(footprintColor[0], footprintColor[1], footprintColor[2])
	pdf.CellFormat(colWidth, 9, fmt.Sprintf("%d", confirmedCount), "0", 0, "C", false, 0, "")
	pdf.SetTextColor(colorTextMuted[0], colorTextMuted[1], colorTextMuted[2])
	pdf.CellFormat(colWidth, 9, fmt.Sprintf("%d", unconfirmedCount), "0", 0, "C", false, 0, "")
	pdf.SetTextColor(colorSecondary[0], colorSecondary[1], colorSecondary[2])
	pdf.CellFormat(colWidth, 9, fmt.Sprintf("%d", sourceCount), "0", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "", 7)
	pdf.SetTextColor(colorTextMuted[0], colorTextMuted[1], colorTextMuted[2])
	pdf.CellFormat(colWidth, 5, "profiles probed", "0", 0, "C", false, 0, "")
	pdf.CellFormat(colWidth, 5, "public presence", "0", 0, "C", false, 0, "")
	pdf.CellFormat(colWidth, 5, "no match", "0", 0, "C", false, 0, "")
	pdf.CellFormat(colWidth, 5, "scanners and lists", "0", 1, "C", false, 0, "")

	pdf.Ln(5)

	// Notable Findings section
	pdf.SetFont("Arial", "B", 11)
	pdf.SetTextColor(colorTextDark[0], colorTextDark[1], colorTextDark[2])
	pdf.CellFormat(0, 8, "Notable Findings", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	observations := g.generateObservations(person, confirmed)
	pdf.SetFont("Arial", "", 10)
	for _, obs := range observations {
		bulletX := pdf.GetX() + 3
		bulletY := pdf.GetY() + 3
		pdf.SetFillColor(obs.color[0], obs.color[1], obs.color[2])
		pdf.Circle(bulletX, bulletY, 2, "F")
		pdf.SetX(pdf.GetX() + 8)
		pdf.SetTextColor(colorTextDark[0], colorTextDark[1], colorTextDark[2])
		pdf.CellFormat(0, 6, clip(tr(obs.text), 92), "", 1, "L", false, 0, "")
		pdf.Ln(1)
	}

	pdf.Ln(5)
}

// observation is one bullet in the Notable Findings block.
type observation struct {
	text  string
	color [3]int
}

// generateObservations derives the overview bullets from the evidence.
func (g *PDFGenerator) generateObservations(person *models.PersonEntity, confirmed []models.SocialProfile) []observation {
	var obs []observation

	networks := confirmedNetworks(confirmed)
	if len(networks) > 0 {
		listed := networks
		extra := 0
		if len(listed) > 6 {
			extra = len(listed) - 6
			listed = listed[:6]
		}
		text := "Confirmed presence on " + strings.Join(listed, ", ")
		if extra > 0 {
			text += fmt.Sprintf(" (+%d more)", extra)
		}
		obs = append(obs, observation{text: text, color: colorAccent})
	}

	for _, grp := range breachGroups(confirmed) {
		word := "breaches"
		if len(grp.breaches) == 1 {
			word = "breach"
		}
		obs = append(obs, observation{
			text:  fmt.Sprintf("%s appears in %d known %s", grp.email, len(grp.breaches), word),
			color: colorDanger,
		})
	}

	for _, p := range confirmed {
		if p.NetworkName == "keybase_proof" {
			obs = append(obs, observation{
				text:  "Cross-signed identity proofs link this target to other accounts",
				color: colorSecondary,
			})
			break
		}
	}

	if person.Analysis != nil && len(person.Analysis.Highlights) > 0 {
		obs = append(obs, observation{
			text:  fmt.Sprintf("Analyst assessment attached with %d highlights", len(person.Analysis.Highlights)),
			color: colorSecondary,
		})
	}

	if len(obs) == 0 {
		obs = append(obs, observation{
			text:  "Insufficient evidence for notable findings",
			color: colorTextMuted,
		})
	}

	return obs
}

// writeConfirmedSection writes the confirmed profile table.
func (g *PDFGenerator) writeConfirmedSection(pdf *fpdf.Fpdf, tr func(string) string, person *models.PersonEntity, confirmed []models.SocialProfile) {
	if pdf.GetY() > 200 {
		pdf.AddPage()
		g.addPageHeader(pdf, tr, person, "Confirmed Profiles")
	}

	pdf.SetFont("Arial", "B", 12)
	pdf.SetTextColor(colorTextDark[0], colorTextDark[1], colorTextDark[2])
	pdf.CellFormat(0, 8, "Confirmed Profiles", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	if len(confirmed) == 0 {
		pdf.SetFont("Arial", "I", 11)
		pdf.SetTextColor(colorTextMuted[0], colorTextMuted[1], colorTextMuted[2])
		pdf.CellFormat(0, 10, "No profiles confirmed for this target.", "", 1, "L", false, 0, "")
		pdf.Ln(5)
		return
	}

	colWidths := []float64{32, 43, 95}
	headers := []string{"Network", "Username", "URL"}

	drawHeader := func() {
		pdf.SetFillColor(colorTableHeader[0], colorTableHeader[1], colorTableHeader[2])
		pdf.SetTextColor(255, 255, 255)
		pdf.SetFont("Arial", "B", 8)
		for i, header := range headers {
			pdf.CellFormat(colWidths[i], 7, header, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 8)
	}
	drawHeader()

	fill := false
	for _, p := range confirmed {
		if pdf.GetY() > 255 {
			pdf.AddPage()
			g.addPageHeader(pdf, tr, person, "Confirmed Profiles (continued)")
			drawHeader()
			fill = false
		}

		if fill {
			pdf.SetFillColor(colorTableAlt[0], colorTableAlt[1], colorTableAlt[2])
		} else {
			pdf.SetFillColor(255, 255, 255)
		}

		pdf.SetTextColor(colorTextDark[0], colorTextDark[1], colorTextDark[2])
		pdf.CellFormat(colWidths[0], 6, clip(tr(p.NetworkName), 20), "1", 0, "L", fill, 0, "")
		pdf.CellFormat(colWidths[1], 6, clip(tr(p.Username), 28), "1", 0, "L", fill, 0, "")
		pdf.SetTextColor(colorSecondary[0], colorSecondary[1], colorSecondary[2])
		pdf.CellFormat(colWidths[2], 6, clip(tr(p.URL), 62), "1", 0, "L", fill, 0, "")

		pdf.Ln(-1)
		fill = !fill
	}

	pdf.Ln(10)
}

// breachGroup holds the breach records confirmed for one email.
type breachGroup struct {
	email    string
	breaches []models.HibpBreach
}

// breachGroups extracts breach evidence from confirmed hibp profiles.
func breachGroups(profiles []models.SocialProfile) []breachGroup {
	var groups []breachGroup
	for _, p := range profiles {
		if p.NetworkName != "hibp" || !p.Exists {
			continue
		}
		hb, ok := p.Metadata["breaches"].(models.HibpBreaches)
		if !ok || len(hb.Breaches) == 0 {
			continue
		}
		groups = append(groups, breachGroup{email: hb.Email, breaches: hb.Breaches})
	}
	return groups
}

// writeBreachSection writes one breach table per exposed email.
func (g *PDFGenerator) writeBreachSection(pdf *fpdf.Fpdf, tr func(string) string, person *models.PersonEntity, confirmed []models.SocialProfile) {
	groups := breachGroups(confirmed)
	if len(groups) == 0 {
		return
	}

	if pdf.GetY() > 200 {
		pdf.AddPage()
		g.addPageHeader(pdf, tr, person, "Breach Exposure")
	}

	pdf.SetFont("Arial", "B", 12)
	pdf.SetTextColor(colorTextDark[0], colorTextDark[1], colorTextDark[2])
	pdf.CellFormat(0, 8, "Breach Exposure", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	colWidths := []float64{40, 32, 22, 24, 52}
	headers := []string{"Breach", "Domain", "Date", "Accounts", "Data Exposed"}

	drawHeader := func() {
		pdf.SetFillColor(colorTableHeader[0], colorTableHeader[1], colorTableHeader[2])
		pdf.SetTextColor(255, 255, 255)
		pdf.SetFont("Arial", "B", 8)
		for i, header := range headers {
			pdf.CellFormat(colWidths[i], 7, header, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 8)
	}

	for _, grp := range groups {
		pdf.SetFont("Arial", "B", 9)
		pdf.SetTextColor(colorDanger[0], colorDanger[1], colorDanger[2])
		word := "breaches"
		if len(grp.breaches) == 1 {
			word = "breach"
		}
		pdf.CellFormat(0, 6, fmt.Sprintf("%s - %d %s", tr(grp.email), len(grp.breaches), word), "", 1, "L", false, 0, "")
		pdf.Ln(1)

		drawHeader()

		fill := false
		for _, b := range grp.breaches {
			if pdf.GetY() > 255 {
				pdf.AddPage()
				g.addPageHeader(pdf, tr, person, "Breach Exposure (continued)")
				drawHeader()
				fill = false
			}

			if fill {
				pdf.SetFillColor(colorTableAlt[0], colorTableAlt[1], colorTableAlt[2])
			} else {
				pdf.SetFillColor(255, 255, 255)
			}

			pdf.SetTextColor(colorTextDark[0], colorTextDark[1], colorTextDark[2])
			pdf.CellFormat(colWidths[0], 6, clip(tr(b.Title), 24), "1", 0, "L", fill, 0, "")
			pdf.CellFormat(colWidths[1], 6, clip(tr(b.Domain), 20), "1", 0, "L", fill, 0, "")
			pdf.CellFormat(colWidths[2], 6, clip(b.BreachDate, 12), "1", 0, "C", fill, 0, "")
			pdf.CellFormat(colWidths[3], 6, formatCount(b.PwnCount), "1", 0, "R", fill, 0, "")
			pdf.CellFormat(colWidths[4], 6, clip(tr(strings.Join(b.DataClasses, ", ")), 34), "1", 0, "L", fill, 0, "")

			pdf.Ln(-1)
			fill = !fill
		}

		pdf.Ln(6)
	}

	pdf.Ln(4)
}

// writeUnconfirmedSection lists the misses grouped by source, sherlock first.
func (g *PDFGenerator) writeUnconfirmedSection(pdf *fpdf.Fpdf, tr func(string) string, person *models.PersonEntity) {
	groups := make(map[string][]models.SocialProfile)
	total := 0
	for _, p := range person.Profiles {
		if p.Exists {
			continue
		}
		source := profileSource(p)
		groups[source] = append(groups[source], p)
		total++
	}
	if total == 0 {
		return
	}

	sources := make([]string, 0, len(groups))
	for source := range groups {
		sources = append(sources, source)
	}
	sort.Slice(sources, func(i, j int) bool {
		if (sources[i] == "sherlock") != (sources[j] == "sherlock") {
			return sources[i] == "sherlock"
		}
		return sources[i] < sources[j]
	})

	if pdf.GetY() > 200 {
		pdf.AddPage()
		g.addPageHeader(pdf, tr, person, "Unconfirmed Checks")
	}

	pdf.SetFont("Arial", "B", 12)
	pdf.SetTextColor(colorTextDark[0], colorTextDark[1], colorTextDark[2])
	pdf.CellFormat(0, 8, "Unconfirmed Checks", "", 1, "L", false, 0, "")

	pdf.SetFont("Arial", "", 9)
	pdf.SetTextColor(colorTextMuted[0], colorTextMuted[1], colorTextMuted[2])
	pdf.CellFormat(0, 6, fmt.Sprintf("%d checks found no match. Endpoints kept for audit, grouped by source.", total), "", 1, "L", false, 0, "")
	pdf.Ln(3)

	for _, source := range sources {
		profiles := groups[source]

		if pdf.GetY() > 240 {
			pdf.AddPage()
			g.addPageHeader(pdf, tr, person, "Unconfirmed Checks (continued)")
		}

		pdf.SetFont("Arial", "B", 10)
		pdf.SetTextColor(colorTextDark[0], colorTextDark[1], colorTextDark[2])
		pdf.CellFormat(0, 6, fmt.Sprintf("%s (%d)", tr(source), len(profiles)), "", 1, "L", false, 0, "")
		pdf.Ln(1)

		pdf.SetFont("Arial", "", 8)
		shown := 0
		for _, p := range profiles {
			if shown >= unconfirmedRowsPerSource {
				break
			}
			if pdf.GetY() > 262 {
				pdf.AddPage()
				g.addPageHeader(pdf, tr, person, "Unconfirmed Checks (continued)")
				pdf.SetFont("Arial", "", 8)
			}

			pdf.SetTextColor(colorTextDark[0], colorTextDark[1], colorTextDark[2])
			pdf.CellFormat(50, 5, clip(tr(p.NetworkName), 32), "", 0, "L", false, 0, "")
			pdf.CellFormat(35, 5, clip(tr(p.Username), 22), "", 0, "L", false, 0, "")
			pdf.SetTextColor(colorTextMuted[0], colorTextMuted[1], colorTextMuted[2])
			pdf.CellFormat(0, 5, clip(tr(p.URL), 55), "", 1, "L", false, 0, "")
			shown++
		}
		if hidden := len(profiles) - shown; hidden > 0 {
			pdf.SetTextColor(colorTextMuted[0], colorTextMuted[1], colorTextMuted[2])
			pdf.CellFormat(0, 5, fmt.Sprintf("... and %d more", hidden), "", 1, "L", false, 0, "")
		}
		pdf.Ln(3)
	}

	pdf.Ln(5)
}

// writeAnalysisSection renders the analyst assessment.
func (g *PDFGenerator) writeAnalysisSection(pdf *fpdf.Fpdf, tr func(string) string, analysis *models.AnalysisReport) {
	model := analysis.Model
	if model == "" {
		model = "unknown"
	}
	confidence := int(math.Round(analysis.Confidence * 100))
	confColor := getConfidenceColor(analysis.Confidence)

	pdf.SetFont("Arial", "", 9)
	pdf.SetTextColor(colorTextMuted[0], colorTextMuted[1], colorTextMuted[2])
	pdf.CellFormat(13, 6, "Model:", "", 0, "L", false, 0, "")
	pdf.SetFont("Arial", "B", 9)
	pdf.SetTextColor(colorTextDark[0], colorTextDark[1], colorTextDark[2])
	pdf.CellFormat(52, 6, clip(tr(model), 32), "", 0, "L", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	pdf.SetTextColor(colorTextMuted[0], colorTextMuted[1], colorTextMuted[2])
	pdf.CellFormat(22, 6, "Confidence:", "", 0, "L", false, 0, "")
	pdf.SetFont("Arial", "B", 9)
	pdf.SetTextColor(confColor[0], confColor[1], confColor[2])
	pdf.CellFormat(16, 6, fmt.Sprintf("%d%%", confidence), "", 0, "L", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	pdf.SetTextColor(colorTextMuted[0], colorTextMuted[1], colorTextMuted[2])
	pdf.CellFormat(20, 6, "Generated:", "", 0, "L", false, 0, "")
	pdf.SetFont("Arial", "B", 9)
	pdf.SetTextColor(colorTextDark[0], colorTextDark[1], colorTextDark[2])
	pdf.CellFormat(0, 6, analysis.GeneratedAt.UTC().Format("2006-01-02 15:04 UTC"), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	if len(analysis.Highlights) > 0 {
		pdf.SetFont("Arial", "B", 11)
		pdf.SetTextColor(colorTextDark[0], colorTextDark[1], colorTextDark[2])
		pdf.CellFormat(0, 8, "Key Highlights", "", 1, "L", false, 0, "")
		pdf.Ln(2)

		pdf.SetFont("Arial", "", 9)
		for _, highlight := range analysis.Highlights {
			pdf.SetFillColor(colorSecondary[0], colorSecondary[1], colorSecondary[2])
			pdf.Circle(pdf.GetX()+2, pdf.GetY()+2.5, 1.2, "F")
			pdf.SetX(pdf.GetX() + 6)
			pdf.SetTextColor(colorTextDark[0], colorTextDark[1], colorTextDark[2])
			pdf.MultiCell(0, 5, tr(highlight), "", "L", false)
			pdf.Ln(1)
		}
		pdf.Ln(3)
	}

	if strings.TrimSpace(analysis.Summary) != "" {
		pdf.SetFont("Arial", "B", 11)
		pdf.SetTextColor(colorTextDark[0], colorTextDark[1], colorTextDark[2])
		pdf.CellFormat(0, 8, "Assessment", "", 1, "L", false, 0, "")
		pdf.Ln(2)
		g.writeMarkdown(pdf, tr, analysis.Summary)
	}
}

// writeMarkdown renders the analyst Markdown as flowing text: "##" lines
// become bold subheaders, "-"/"*" lines become bullets, the rest wraps.
func (g *PDFGenerator) writeMarkdown(pdf *fpdf.Fpdf, tr func(string) string, text string) {
	text = strings.ReplaceAll(text, "**", "")
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, " \t")
		switch {
		case line == "":
			pdf.Ln(2)
		case strings.HasPrefix(line, "## "):
			pdf.Ln(2)
			pdf.SetFont("Arial", "B", 11)
			pdf.SetTextColor(colorTextDark[0], colorTextDark[1], colorTextDark[2])
			pdf.CellFormat(0, 7, tr(strings.TrimPrefix(line, "## ")), "", 1, "L", false, 0, "")
		case strings.HasPrefix(line, "# "):
			pdf.Ln(2)
			pdf.SetFont("Arial", "B", 12)
			pdf.SetTextColor(colorTextDark[0], colorTextDark[1], colorTextDark[2])
			pdf.CellFormat(0, 7, tr(strings.TrimPrefix(line, "# ")), "", 1, "L", false, 0, "")
		case strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "* "):
			pdf.SetFont("Arial", "", 9)
			pdf.SetFillColor(colorSecondary[0], colorSecondary[1], colorSecondary[2])
			pdf.Circle(pdf.GetX()+2, pdf.GetY()+2.5, 1, "F")
			pdf.SetX(pdf.GetX() + 6)
			pdf.SetTextColor(colorTextDark[0], colorTextDark[1], colorTextDark[2])
			pdf.MultiCell(0, 5, tr(line[2:]), "", "L", false)
		default:
			pdf.SetFont("Arial", "", 9)
			pdf.SetTextColor(colorTextDark[0], colorTextDark[1], colorTextDark[2])
			pdf.MultiCell(0, 5, tr(line), "", "L", false)
		}
	}
}

// addPageNumbers adds page numbers to all pages except the first (cover).
func (g *PDFGenerator) addPageNumbers(pdf *fpdf.Fpdf) {
	// Disable auto page break while adding footers to prevent creating new pages
	pdf.SetAutoPageBreak(false, 0)

	totalPages := pdf.PageCount()

	for i := 2; i <= totalPages; i++ {
		pdf.SetPage(i)
		pageWidth, pageHeight := pdf.GetPageSize()

		pdf.SetY(pageHeight - 15)
		pdf.SetFont("Arial", "", 8)
		pdf.SetTextColor(colorTextMuted[0], colorTextMuted[1], colorTextMuted[2])

		pageNum := i - 1
		totalContent := totalPages - 1
		pdf.CellFormat(0, 5, fmt.Sprintf("Page %d of %d", pageNum, totalContent), "", 0, "C", false, 0, "")

		// Bottom line
		pdf.SetDrawColor(colorGridLine[0], colorGridLine[1], colorGridLine[2])
		pdf.SetLineWidth(0.3)
		pdf.Line(20, pageHeight-20, pageWidth-20, pageHeight-20)
	}
}

// getConfidenceColor maps confidence to the status palette.
func getConfidenceColor(confidence float64) [3]int {
	if confidence >= 0.7 {
		return colorAccent
	} else if confidence >= 0.4 {
		return colorWarning
	}
	return colorDanger
}

// profileSource returns the source tag a profile was produced by, "unknown"
// when the scanner did not set one.
func profileSource(p models.SocialProfile) string {
	if s := p.MetaString("source"); s != "" {
		return s
	}
	return "unknown"
}

// confirmedNetworks returns the sorted distinct network names of the
// confirmed profiles, excluding the breach pseudo-network.
func confirmedNetworks(confirmed []models.SocialProfile) []string {
	seen := make(map[string]struct{})
	for _, p := range confirmed {
		if p.NetworkName == "hibp" {
			continue
		}
		seen[p.NetworkName] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// countSources counts the distinct source tags across all profiles.
func countSources(profiles []models.SocialProfile) int {
	seen := make(map[string]struct{})
	for _, p := range profiles {
		seen[profileSource(p)] = struct{}{}
	}
	return len(seen)
}

// clip bounds a cell string, cutting on runes so translated text stays valid.
func clip(s string, max int) string {
	if max < 4 {
		max = 4
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}

// formatCount renders a record count with thousands separators.
func formatCount(n int64) string {
	if n < 0 {
		return strconv.FormatInt(n, 10)
	}
	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	pre := len(s) % 3
	if pre > 0 {
		b.WriteString(s[:pre])
	}
	for i := pre; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
