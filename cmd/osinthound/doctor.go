package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/osinthound/osinthound/internal/config"
	"github.com/osinthound/osinthound/internal/export"
	"github.com/osinthound/osinthound/internal/models"
	"github.com/osinthound/osinthound/internal/sherlock"
	"github.com/osinthound/osinthound/internal/sitelist"
	"github.com/osinthound/osinthound/internal/webclient"
)

const (
	statusOK       = "OK"
	statusFail     = "FAIL"
	statusOptional = "OPTIONAL"
	statusInfo     = "INFO"
)

type doctorCheck struct {
	name   string
	status string
	detail string
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the environment: config, connectivity, catalogues, PDF rendering",
	Args:  cobra.NoArgs,
	RunE:  runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	settings, err := config.Load()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	client, err := webclient.Build(settings, nil)
	if err != nil {
		return err
	}

	var checks []doctorCheck
	checks = append(checks, checkAIKey(settings))
	checks = append(checks,
		doctorCheck{"AI base URL", statusInfo, settings.AIBaseURL},
		doctorCheck{"AI model", statusInfo, settings.AIModel},
	)
	if _, ok := settings.AIKeyForBaseURL(); ok {
		checks = append(checks, checkAIConnectivity(ctx, client, settings))
	}
	checks = append(checks, checkInternet(ctx, client))
	checks = append(checks, checkUsernameCatalogue(settings))
	checks = append(checks, checkEmailCatalogue(settings))
	checks = append(checks, checkSherlockCache(settings))
	checks = append(checks, checkPDFRendering(settings))

	fmt.Println("osinthound doctor")
	fmt.Println()
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	failed := 0
	for _, check := range checks {
		if check.status == statusFail {
			failed++
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", check.status, check.name, check.detail)
	}
	w.Flush()
	fmt.Println()

	if failed > 0 {
		return fmt.Errorf("%d check(s) failed", failed)
	}
	fmt.Println("All checks passed.")
	return nil
}

func checkAIKey(settings config.Settings) doctorCheck {
	key, ok := settings.AIKeyForBaseURL()
	switch {
	case ok && key == "local":
		return doctorCheck{"AI key", statusOK, "Local endpoint; no key required"}
	case ok:
		return doctorCheck{"AI key", statusOK, "Remote AI enabled"}
	default:
		return doctorCheck{"AI key", statusOptional, "No key set -> heuristic analysis fallback"}
	}
}

// checkAIConnectivity probes the provider's models endpoint; any HTTP answer
// counts as reachable.
func checkAIConnectivity(ctx context.Context, client *http.Client, settings config.Settings) doctorCheck {
	key, _ := settings.AIKeyForBaseURL()
	url := strings.TrimSuffix(settings.AIBaseURL, "/") + "/models"
	headers := map[string]string{}
	if key != "" && key != "local" {
		headers["Authorization"] = "Bearer " + key
	}
	resp, err := webclient.Get(ctx, client, url, headers)
	if err != nil {
		return doctorCheck{"AI connectivity", statusFail, err.Error()}
	}
	return doctorCheck{"AI connectivity", statusOK, fmt.Sprintf("HTTP %d", resp.StatusCode)}
}

func checkInternet(ctx context.Context, client *http.Client) doctorCheck {
	resp, err := webclient.Get(ctx, client, "https://github.com", nil)
	if err != nil {
		return doctorCheck{"Internet", statusFail, err.Error()}
	}
	return doctorCheck{"Internet", statusOK, fmt.Sprintf("HTTP %d", resp.StatusCode)}
}

func checkUsernameCatalogue(settings config.Settings) doctorCheck {
	path := cataloguePath("", settings.UsernameSitesPath, settings.DataDir, "wmn-data.json")
	if path == "" {
		return doctorCheck{"Username catalogue", statusOptional, "not found; --sites hunts need one"}
	}
	file, err := sitelist.LoadUsernameSites(path)
	if err != nil {
		return doctorCheck{"Username catalogue", statusFail, err.Error()}
	}
	return doctorCheck{"Username catalogue", statusOK, fmt.Sprintf("%d sites (%s)", len(file.Sites), path)}
}

func checkEmailCatalogue(settings config.Settings) doctorCheck {
	path := cataloguePath("", settings.EmailSitesPath, settings.DataDir, "email-data.json")
	if path == "" {
		return doctorCheck{"Email catalogue", statusOptional, "not found; --sites hunts need one"}
	}
	file, err := sitelist.LoadEmailSites(path)
	if err != nil {
		return doctorCheck{"Email catalogue", statusFail, err.Error()}
	}
	return doctorCheck{"Email catalogue", statusOK, fmt.Sprintf("%d sites (%s)", len(file.Sites), path)}
}

func checkSherlockCache(settings config.Settings) doctorCheck {
	dataDir := settings.DataDir
	if dataDir == "" {
		dataDir = "data"
	}
	path := filepath.Join(dataDir, "sherlock.json")
	if _, err := os.Stat(path); err != nil {
		return doctorCheck{"Sherlock manifest", statusOptional, "not cached; downloads on first --sherlock hunt"}
	}
	manifest, err := sherlock.LoadManifestFile(path)
	if err != nil {
		return doctorCheck{"Sherlock manifest", statusFail, err.Error()}
	}
	return doctorCheck{"Sherlock manifest", statusOK, fmt.Sprintf("%d sites cached (%s)", len(manifest), path)}
}

// checkPDFRendering renders a throwaway report to catch font or filesystem
// problems before a real hunt does.
func checkPDFRendering(settings config.Settings) doctorCheck {
	person := &models.PersonEntity{Target: "doctor"}
	data, err := export.NewPDFGenerator().Generate(person)
	if err != nil {
		return doctorCheck{"PDF rendering", statusFail, err.Error()}
	}

	dir := settings.ReportsDir
	if dir == "" {
		dir = "reports"
	}
	path := filepath.Join(dir, "_doctor_test.pdf")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return doctorCheck{"PDF rendering", statusFail, err.Error()}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return doctorCheck{"PDF rendering", statusFail, err.Error()}
	}
	os.Remove(path)
	return doctorCheck{"PDF rendering", statusOK, fmt.Sprintf("rendered %d bytes", len(data))}
}
