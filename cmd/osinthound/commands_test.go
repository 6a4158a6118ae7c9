package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osinthound/osinthound/internal/config"
)

func TestVersionCmd(t *testing.T) {
	oldVersion := Version
	oldBuildTime := BuildTime
	oldGitCommit := GitCommit
	defer func() {
		Version = oldVersion
		BuildTime = oldBuildTime
		GitCommit = oldGitCommit
	}()

	Version = "1.2.3"
	BuildTime = "2023-01-01"
	GitCommit = "abcdef"

	output := captureOutput(func() {
		rootCmd.SetArgs([]string{"version"})
		rootCmd.Execute()
	})

	assert.Contains(t, output, "osinthound 1.2.3")
	assert.Contains(t, output, "Built: 2023-01-01")
	assert.Contains(t, output, "Commit: abcdef")

	BuildTime = "unknown"
	GitCommit = "unknown"
	output = captureOutput(func() {
		rootCmd.SetArgs([]string{"version"})
		rootCmd.Execute()
	})
	assert.Contains(t, output, "osinthound 1.2.3")
	assert.NotContains(t, output, "Built:")
	assert.NotContains(t, output, "Commit:")
}

func TestHuntRequiresIdentifier(t *testing.T) {
	resetFlags()

	rootCmd.SetArgs([]string{"hunt"})
	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing to hunt")
}

func TestHuntExportFlagsAcceptBareForm(t *testing.T) {
	assert.Equal(t, autoArtifact, huntCmd.Flags().Lookup("export-json").NoOptDefVal)
	assert.Equal(t, autoArtifact, huntCmd.Flags().Lookup("export-pdf").NoOptDefVal)
}

func TestArtifactPath(t *testing.T) {
	assert.Equal(t, "", artifactPath("", "reports/alice-x", ".json"))
	assert.Equal(t, "reports/alice-x.json", artifactPath(autoArtifact, "reports/alice-x", ".json"))
	assert.Equal(t, "out/custom.pdf", artifactPath("out/custom.pdf", "reports/alice-x", ".pdf"))
}

func TestCataloguePath(t *testing.T) {
	dataDir := t.TempDir()
	listPath := filepath.Join(dataDir, "wmn-data.json")
	require.NoError(t, os.WriteFile(listPath, []byte(`{"sites":[]}`), 0644))

	// Flag beats everything.
	assert.Equal(t, "/x/y.json", cataloguePath("/x/y.json", "configured.json", dataDir, "wmn-data.json"))
	// Configured path beats the default locations.
	assert.Equal(t, "configured.json", cataloguePath("", "configured.json", dataDir, "wmn-data.json"))
	// Falls back to the data dir.
	assert.Equal(t, listPath, cataloguePath("", "", dataDir, "wmn-data.json"))
	// Nothing resolves.
	assert.Equal(t, "", cataloguePath("", "", t.TempDir(), "wmn-data.json"))
}

func TestCheckAIKey(t *testing.T) {
	local := checkAIKey(config.Settings{AIBaseURL: "http://localhost:11434/v1"})
	assert.Equal(t, statusOK, local.status)
	assert.Contains(t, local.detail, "Local endpoint")

	remote := checkAIKey(config.Settings{AIBaseURL: "https://api.example.com/v1", AIAPIKey: "sk-test"})
	assert.Equal(t, statusOK, remote.status)
	assert.Contains(t, remote.detail, "Remote AI enabled")

	missing := checkAIKey(config.Settings{AIBaseURL: "https://api.example.com/v1"})
	assert.Equal(t, statusOptional, missing.status)
	assert.Contains(t, missing.detail, "heuristic")
}

func TestCheckSherlockCache(t *testing.T) {
	dataDir := t.TempDir()

	missing := checkSherlockCache(config.Settings{DataDir: dataDir})
	assert.Equal(t, statusOptional, missing.status)

	manifest := `{"Example": {"url": "https://example.com/{}", "urlMain": "https://example.com", "errorType": "status_code"}}`
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "sherlock.json"), []byte(manifest), 0644))

	cached := checkSherlockCache(config.Settings{DataDir: dataDir})
	assert.Equal(t, statusOK, cached.status)
	assert.Contains(t, cached.detail, "1 sites cached")
}

func TestCheckPDFRendering(t *testing.T) {
	reportsDir := t.TempDir()

	check := checkPDFRendering(config.Settings{ReportsDir: reportsDir})
	assert.Equal(t, statusOK, check.status)
	assert.Contains(t, check.detail, "rendered")
	assert.NoFileExists(t, filepath.Join(reportsDir, "_doctor_test.pdf"))
}

// Helper to capture stdout and stderr
func captureOutput(f func()) string {
	oldStdout := os.Stdout
	oldStderr := os.Stderr
	r, w, _ := os.Pipe()
	os.Stdout = w
	os.Stderr = w

	f()

	w.Close()
	os.Stdout = oldStdout
	os.Stderr = oldStderr

	var buf bytes.Buffer
	io.Copy(&buf, r)
	return buf.String()
}

func resetFlags() {
	huntOpts.usernames = nil
	huntOpts.emails = nil
	huntOpts.scanLocalpart = false
	huntOpts.strict = false
	huntOpts.sites = false
	huntOpts.siteListUsernames = ""
	huntOpts.siteListEmails = ""
	huntOpts.siteCategories = nil
	huntOpts.allowNSFW = false
	huntOpts.sitesConcurrency = 0
	huntOpts.sherlock = false
	huntOpts.sherlockManifest = ""
	huntOpts.analyze = true
	huntOpts.lang = ""
	huntOpts.exportJSON = ""
	huntOpts.exportPDF = ""
	huntOpts.metricsAddr = ""
	huntOpts.timeout = 0
	huntOpts.logLevel = ""
}
