package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/osinthound/osinthound/internal/analyst"
	"github.com/osinthound/osinthound/internal/config"
	"github.com/osinthound/osinthound/internal/export"
	"github.com/osinthound/osinthound/internal/logging"
	"github.com/osinthound/osinthound/internal/models"
	"github.com/osinthound/osinthound/internal/pipeline"
	"github.com/osinthound/osinthound/internal/sherlock"
	"github.com/osinthound/osinthound/internal/sitelist"
	"github.com/osinthound/osinthound/internal/webclient"
)

// autoArtifact is the NoOptDefVal for --export-json/--export-pdf: the bare
// flag picks a generated path under the reports dir; --flag=PATH overrides.
const autoArtifact = "auto"

var huntOpts struct {
	usernames         []string
	emails            []string
	scanLocalpart     bool
	strict            bool
	sites             bool
	siteListUsernames string
	siteListEmails    string
	siteCategories    []string
	allowNSFW         bool
	sitesConcurrency  int
	sherlock          bool
	sherlockManifest  string
	analyze           bool
	lang              string
	exportJSON        string
	exportPDF         string
	metricsAddr       string
	timeout           time.Duration
	logLevel          string
}

var huntCmd = &cobra.Command{
	Use:   "hunt",
	Short: "Correlate usernames and emails across public sources",
	Long: `Hunt probes social networks, site catalogues, the Sherlock manifest and
breach data for the given identifiers, follows identifiers discovered along
the way, and prints the confirmed footprint. Individual source failures are
reported as warnings and never abort the hunt.`,
	Example: `  osinthound hunt -u johndoe --sites --sherlock --export-pdf
  osinthound hunt -e john@example.com --scan-localpart --export-json=report.json
  osinthound hunt -u johndoe -u jdoe --strict --lang es`,
	Args: cobra.NoArgs,
	RunE: runHunt,
}

func init() {
	rootCmd.AddCommand(huntCmd)

	f := huntCmd.Flags()
	f.StringArrayVarP(&huntOpts.usernames, "username", "u", nil, "Username to hunt (repeatable)")
	f.StringArrayVarP(&huntOpts.emails, "email", "e", nil, "Email address to hunt (repeatable)")
	f.BoolVar(&huntOpts.scanLocalpart, "scan-localpart", false, "Also hunt the localpart of each email as a username")
	f.BoolVar(&huntOpts.strict, "strict", false, "Keep confirmed profiles only when the page echoes the username")
	f.BoolVar(&huntOpts.sites, "sites", false, "Probe the site catalogues (WhatsMyName format)")
	f.StringVar(&huntOpts.siteListUsernames, "site-list-usernames", "", "Path to the username catalogue (default: data dir)")
	f.StringVar(&huntOpts.siteListEmails, "site-list-emails", "", "Path to the email catalogue (default: data dir)")
	f.StringArrayVar(&huntOpts.siteCategories, "site-categories", nil, "Wildcard filter on catalogue categories (repeatable)")
	f.BoolVar(&huntOpts.allowNSFW, "allow-nsfw", false, "Include catalogue sites flagged NSFW")
	f.IntVar(&huntOpts.sitesConcurrency, "sites-concurrency", 0, "Max concurrent catalogue probes (0 = configured default)")
	f.BoolVar(&huntOpts.sherlock, "sherlock", false, "Probe the Sherlock manifest")
	f.StringVar(&huntOpts.sherlockManifest, "sherlock-manifest", "", "Path to a local Sherlock manifest (skips download and cache)")
	f.BoolVar(&huntOpts.analyze, "analyze", true, "Run the analyst over the evidence (disable with --analyze=false)")
	f.StringVar(&huntOpts.lang, "lang", "", "Analysis language: en or es (default: configured)")
	f.StringVar(&huntOpts.exportJSON, "export-json", "", "Write the aggregate as JSON; bare flag generates a path, --export-json=PATH overrides")
	f.StringVar(&huntOpts.exportPDF, "export-pdf", "", "Render a PDF report; bare flag generates a path, --export-pdf=PATH overrides")
	f.Lookup("export-json").NoOptDefVal = autoArtifact
	f.Lookup("export-pdf").NoOptDefVal = autoArtifact
	f.StringVar(&huntOpts.metricsAddr, "metrics-addr", "", "Expose Prometheus metrics on this address for the run")
	f.DurationVar(&huntOpts.timeout, "timeout", 0, "Per-request HTTP timeout, e.g. 10s (0 = configured default)")
	f.StringVar(&huntOpts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
}

func runHunt(cmd *cobra.Command, args []string) error {
	settings, err := config.Load()
	if err != nil {
		return err
	}
	if huntOpts.timeout > 0 {
		settings.HTTPTimeout = huntOpts.timeout
	}
	if huntOpts.logLevel != "" {
		settings.LogLevel = huntOpts.logLevel
	}
	if huntOpts.metricsAddr != "" {
		settings.MetricsAddr = huntOpts.metricsAddr
	}

	logging.Init(logging.Config{
		Format:     settings.LogFormat,
		Level:      settings.LogLevel,
		Component:  "osinthound",
		FilePath:   settings.LogFile,
		MaxSizeMB:  settings.LogMaxSizeMB,
		MaxAgeDays: settings.LogMaxAgeDays,
		Compress:   settings.LogCompress,
	})
	defer logging.Shutdown()

	if len(huntOpts.usernames) == 0 && len(huntOpts.emails) == 0 {
		return fmt.Errorf("nothing to hunt: pass at least one --username or --email")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if settings.MetricsAddr != "" {
		startMetricsServer(ctx, settings.MetricsAddr)
	}

	client, err := webclient.Build(settings, nil)
	if err != nil {
		return err
	}

	ctx, logger := logging.WithHuntID(ctx, "")

	req := pipeline.HuntRequest{
		Usernames:     huntOpts.usernames,
		Emails:        huntOpts.emails,
		ScanLocalpart: huntOpts.scanLocalpart,
		Strict:        huntOpts.strict,
		UseSherlock:   huntOpts.sherlock,
		SiteLists: pipeline.SiteListOptions{
			Enabled:        huntOpts.sites,
			UsernamePath:   cataloguePath(huntOpts.siteListUsernames, settings.UsernameSitesPath, settings.DataDir, "wmn-data.json"),
			EmailPath:      cataloguePath(huntOpts.siteListEmails, settings.EmailSitesPath, settings.DataDir, "email-data.json"),
			MaxConcurrency: huntOpts.sitesConcurrency,
			Categories:     huntOpts.siteCategories,
		},
	}
	if cmd.Flags().Changed("allow-nsfw") {
		noNSFW := !huntOpts.allowNSFW
		req.SiteLists.NoNSFW = &noNSFW
	}
	if huntOpts.sherlockManifest != "" {
		manifest, err := sherlock.LoadManifestFile(huntOpts.sherlockManifest)
		if err != nil {
			return err
		}
		req.SherlockManifest = manifest
	}

	hooks := pipeline.Hooks{
		SherlockStart: func(total int) {
			logger.Info().Int("checks", total).Msg("Sherlock scan started")
		},
		SherlockProgress: func(done, total int, siteName string) {
			if done%50 == 0 || done == total {
				logger.Info().Int("done", done).Int("total", total).Str("site", siteName).Msg("Sherlock progress")
			}
		},
	}

	started := time.Now()
	result, err := pipeline.New(client, settings).Hunt(ctx, req, hooks)
	if err != nil {
		return err
	}

	person := result.Person
	if huntOpts.analyze {
		language := settings.DefaultLanguage
		if huntOpts.lang != "" {
			language = models.ParseLanguage(huntOpts.lang)
		}
		person.Analysis = analyst.Analyze(ctx, &person, language, &settings)
	}

	logger.Info().
		Int("profiles", len(person.Profiles)).
		Int("confirmed", len(person.ConfirmedProfiles())).
		Dur("elapsed", time.Since(started)).
		Msg("Hunt finished")

	printSummary(result, &person)
	if person.Analysis != nil {
		printAnalysis(person.Analysis)
	}

	var stem string
	if huntOpts.exportJSON == autoArtifact || huntOpts.exportPDF == autoArtifact {
		stem = export.ArtifactStem(settings.ReportsDir, person.Target)
	}
	if path := artifactPath(huntOpts.exportJSON, stem, ".json"); path != "" {
		if err := export.WriteJSON(&person, path); err != nil {
			return err
		}
		fmt.Printf("JSON artifact: %s\n", path)
	}
	if path := artifactPath(huntOpts.exportPDF, stem, ".pdf"); path != "" {
		if err := export.WritePDF(&person, path); err != nil {
			return err
		}
		fmt.Printf("PDF report: %s\n", path)
	}

	return nil
}

// cataloguePath picks the catalogue file for one identifier kind: the flag
// wins, then the configured path, then the conventional locations.
func cataloguePath(flagValue, configured, dataDir, filename string) string {
	if flagValue != "" {
		return flagValue
	}
	if configured != "" {
		return configured
	}
	return sitelist.DefaultListPath(dataDir, filename)
}

func artifactPath(flagValue, stem, ext string) string {
	switch flagValue {
	case "":
		return ""
	case autoArtifact:
		return stem + ext
	default:
		return flagValue
	}
}

func printSummary(result *pipeline.Result, person *models.PersonEntity) {
	confirmed := person.ConfirmedProfiles()

	fmt.Printf("\nTarget: %s\n", person.Target)
	fmt.Printf("Checked %d endpoints, %d confirmed.\n", len(person.Profiles), len(confirmed))

	if len(confirmed) > 0 {
		fmt.Println()
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NETWORK\tUSERNAME\tURL")
		for _, p := range confirmed {
			fmt.Fprintf(w, "%s\t%s\t%s\n", p.NetworkName, p.Username, p.URL)
		}
		w.Flush()
	}
	fmt.Println()

	for _, p := range confirmed {
		if p.NetworkName != "hibp" {
			continue
		}
		if breaches, ok := p.Metadata["breaches"].(models.HibpBreaches); ok {
			fmt.Printf("Breaches: %s appears in %d known breach(es)\n", breaches.Email, len(breaches.Breaches))
		}
	}

	if len(result.Usernames) > 0 {
		fmt.Printf("Usernames: %s\n", strings.Join(result.Usernames, ", "))
	}
	if len(result.Emails) > 0 {
		fmt.Printf("Emails: %s\n", strings.Join(result.Emails, ", "))
	}

	for _, warning := range result.Warnings {
		fmt.Printf("Warning: %s\n", warning)
	}
}

func printAnalysis(report *models.AnalysisReport) {
	fmt.Printf("\nAnalyst assessment (model: %s, confidence: %.2f)\n", report.Model, report.Confidence)
	for _, highlight := range report.Highlights {
		fmt.Printf("  * %s\n", highlight)
	}
	if report.Summary != "" {
		fmt.Printf("\n%s\n", report.Summary)
	}
}
