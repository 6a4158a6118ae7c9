package export

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/osinthound/osinthound/internal/models"
)

func testPerson() *models.PersonEntity {
	return &models.PersonEntity{
		Target: "alice",
		Profiles: []models.SocialProfile{
			{
				URL:         "https://github.com/alice",
				Username:    "alice",
				NetworkName: "github",
				Exists:      true,
				Metadata:    map[string]any{"source": "scanner", "zeta": "z", "alpha": "a"},
				Bio:         "systems tinkerer",
			},
			{
				URL:         "https://haveibeenpwned.com/unifiedsearch/alice@example.com",
				Username:    "alice@example.com",
				NetworkName: "hibp",
				Exists:      true,
				Metadata: map[string]any{
					"source":       "hibp",
					"breach_count": 2,
					"breaches": models.HibpBreaches{
						Email: "alice@example.com",
						Breaches: []models.HibpBreach{
							{Title: "BigSite", Domain: "bigsite.com", BreachDate: "2019-03-04", PwnCount: 164611595, DataClasses: []string{"Email addresses", "Passwords"}},
							{Title: "OtherSite", Domain: "other.example", BreachDate: "2021-07-12", PwnCount: 4021, DataClasses: []string{"Usernames"}},
						},
					},
				},
			},
			{
				URL:         "https://demosite.example/alice",
				Username:    "alice",
				NetworkName: "DemoSite",
				Metadata:    map[string]any{"source": "sherlock"},
			},
			{
				URL:         "https://othersite.example/alice",
				Username:    "alice",
				NetworkName: "othersite",
				Metadata:    map[string]any{"source": "site_list"},
			},
		},
	}
}

func TestWriteJSONStableSortedOutput(t *testing.T) {
	person := testPerson()
	path := filepath.Join(t.TempDir(), "nested", "dir", "out.json")

	if err := WriteJSON(person, path); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if !json.Valid(data) {
		t.Fatal("artifact is not valid JSON")
	}
	text := string(data)
	if !strings.HasSuffix(text, "\n") {
		t.Fatal("expected trailing newline")
	}

	// Keys are sorted at every level: struct fields and metadata maps alike.
	if a, z := strings.Index(text, `"alpha"`), strings.Index(text, `"zeta"`); a < 0 || z < 0 || a > z {
		t.Fatalf("metadata keys not sorted: alpha at %d, zeta at %d", a, z)
	}
	if p, tg := strings.Index(text, `"profiles"`), strings.Index(text, `"target"`); p < 0 || tg < 0 || p > tg {
		t.Fatalf("top-level keys not sorted: profiles at %d, target at %d", p, tg)
	}

	// Large integers survive the canonical round trip verbatim.
	if !strings.Contains(text, "164611595") {
		t.Fatal("expected PwnCount literal in output")
	}
	if strings.Contains(text, "e+0") {
		t.Fatal("integer was rewritten in exponent notation")
	}

	var decoded models.PersonEntity
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("round trip: %v", err)
	}
	if decoded.Target != person.Target || len(decoded.Profiles) != len(person.Profiles) {
		t.Fatalf("round trip lost data: target=%q profiles=%d", decoded.Target, len(decoded.Profiles))
	}

	second := filepath.Join(t.TempDir(), "again.json")
	if err := WriteJSON(person, second); err != nil {
		t.Fatalf("WriteJSON second: %v", err)
	}
	other, err := os.ReadFile(second)
	if err != nil {
		t.Fatalf("read second artifact: %v", err)
	}
	if !bytes.Equal(data, other) {
		t.Fatal("expected byte-identical output for identical input")
	}
}

func TestWriteJSONKeepsURLsReadable(t *testing.T) {
	person := &models.PersonEntity{
		Target: "bob",
		Profiles: []models.SocialProfile{
			{URL: "https://example.com/search?q=bob&page=1", Username: "bob", NetworkName: "demo"},
		},
	}
	path := filepath.Join(t.TempDir(), "out.json")
	if err := WriteJSON(person, path); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if !strings.Contains(string(data), "search?q=bob&page=1") {
		t.Fatal("expected unescaped URL in output")
	}
}

func TestGeneratePDFReport(t *testing.T) {
	person := testPerson()
	person.Target = "josé"
	person.Analysis = &models.AnalysisReport{
		Summary: "## 1. Identity\n\nLikely a software engineer based in Europe.\n\n- Consistent handle reuse\n- Public code activity\n",
		Highlights: []string{
			"Same avatar across github and DemoSite",
			"Breach exposure suggests a long-lived address",
		},
		Confidence:  0.72,
		GeneratedAt: time.Date(2025, 3, 9, 10, 30, 0, 0, time.UTC),
		Model:       "heuristic",
	}

	data, err := NewPDFGenerator().Generate(person)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Fatal("output is not a PDF")
	}
	if len(data) < 2000 {
		t.Fatalf("suspiciously small PDF: %d bytes", len(data))
	}
}

func TestWritePDFCreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "report.pdf")
	if err := WritePDF(testPerson(), path); err != nil {
		t.Fatalf("WritePDF: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Fatal("output is not a PDF")
	}
}

func TestGenerateObservations_Default(t *testing.T) {
	g := NewPDFGenerator()
	person := &models.PersonEntity{Target: "ghost"}
	obs := g.generateObservations(person, nil)
	if len(obs) != 1 {
		t.Fatalf("expected 1 observation, got %d", len(obs))
	}
	if !strings.Contains(obs[0].text, "Insufficient evidence") {
		t.Fatalf("unexpected observation: %q", obs[0].text)
	}
}

func TestGenerateObservations_RichEvidence(t *testing.T) {
	g := NewPDFGenerator()
	confirmed := []models.SocialProfile{
		{NetworkName: "github", Exists: true},
		{NetworkName: "reddit", Exists: true},
		{NetworkName: "gitlab", Exists: true},
		{NetworkName: "npm", Exists: true},
		{NetworkName: "medium", Exists: true},
		{NetworkName: "twitch", Exists: true},
		{NetworkName: "keybase", Exists: true},
		{NetworkName: "keybase_proof", Exists: true},
		{
			NetworkName: "hibp",
			Exists:      true,
			Metadata: map[string]any{
				"breaches": models.HibpBreaches{
					Email:    "a@b.com",
					Breaches: []models.HibpBreach{{Title: "X"}, {Title: "Y"}},
				},
			},
		},
	}
	person := &models.PersonEntity{Target: "alice", Profiles: confirmed}

	obs := g.generateObservations(person, confirmed)
	if len(obs) < 3 {
		t.Fatalf("expected multiple observations, got %d", len(obs))
	}
	assertObservationContains(t, obs, "(+2 more)")
	assertObservationContains(t, obs, "a@b.com appears in 2 known breaches")
	assertObservationContains(t, obs, "Cross-signed identity proofs")
}

func assertObservationContains(t *testing.T, obs []observation, want string) {
	t.Helper()
	for _, o := range obs {
		if strings.Contains(o.text, want) {
			return
		}
	}
	t.Fatalf("no observation contains %q", want)
}

func TestProfileSource(t *testing.T) {
	withSource := models.SocialProfile{Metadata: map[string]any{"source": "sherlock"}}
	if got := profileSource(withSource); got != "sherlock" {
		t.Fatalf("expected sherlock, got %q", got)
	}
	if got := profileSource(models.SocialProfile{}); got != "unknown" {
		t.Fatalf("expected unknown, got %q", got)
	}
}

func TestFormatCount(t *testing.T) {
	cases := map[int64]string{
		0:         "0",
		999:       "999",
		1000:      "1,000",
		164611595: "164,611,595",
	}
	for in, want := range cases {
		if got := formatCount(in); got != want {
			t.Fatalf("formatCount(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestClip(t *testing.T) {
	if got := clip("short", 10); got != "short" {
		t.Fatalf("expected unchanged string, got %q", got)
	}
	if got := clip("abcdefghijkl", 8); got != "abcde..." {
		t.Fatalf("expected abcde..., got %q", got)
	}
	if got := clip("áéíóúáéíóú", 7); got != "áéíó..." {
		t.Fatalf("rune clip mismatch: %q", got)
	}
}

func TestArtifactStem(t *testing.T) {
	stem := ArtifactStem("", "User Name+tag")
	prefix := filepath.Join("reports", "User-Name_tag") + "-"
	if !strings.HasPrefix(stem, prefix) {
		t.Fatalf("unexpected stem %q", stem)
	}
	id := strings.TrimPrefix(stem, prefix)
	if len(id) != 26 {
		t.Fatalf("expected 26-char ulid, got %q", id)
	}
	if id != strings.ToLower(id) {
		t.Fatalf("expected lowercase ulid, got %q", id)
	}
	if again := ArtifactStem("", "User Name+tag"); again == stem {
		t.Fatal("expected unique stems per call")
	}
	if custom := ArtifactStem("out", "alice"); !strings.HasPrefix(custom, filepath.Join("out", "alice")+"-") {
		t.Fatalf("custom dir not honoured: %q", custom)
	}
}
