// Package config loads runtime settings for a hunt. Values are layered:
// hard defaults, then an optional YAML file, then a .env file, then
// OSINTHOUND_* environment variables. Later layers win.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/osinthound/osinthound/internal/models"
)

const (
	envPrefix = "OSINTHOUND_"

	defaultHTTPTimeout  = 20 * time.Second
	defaultUserAgent    = "osinthound/0.1 (+https://local)"
	defaultAIBaseURL    = "https://api.deepseek.com"
	defaultAIModel      = "deepseek-chat"
	defaultAITimeout    = 45 * time.Second
	defaultAIMaxRetries = 3
	defaultSitesConc    = 30
)

// Settings holds every knob the pipeline and its scanners read.
type Settings struct {
	HTTPTimeout time.Duration `yaml:"httpTimeout"`
	UserAgent   string        `yaml:"userAgent"`
	SOCKS5Proxy string        `yaml:"socks5Proxy"`

	AIAPIKey     string        `yaml:"aiApiKey"`
	AIBaseURL    string        `yaml:"aiBaseUrl"`
	AIModel      string        `yaml:"aiModel"`
	AITimeout    time.Duration `yaml:"aiTimeout"`
	AIMaxRetries int           `yaml:"aiMaxRetries"`

	SitesMaxConcurrency int    `yaml:"sitesMaxConcurrency"`
	SitesNoNSFW         bool   `yaml:"sitesNoNsfw"`
	UsernameSitesPath   string `yaml:"usernameSitesPath"`
	EmailSitesPath      string `yaml:"emailSitesPath"`

	DefaultLanguage models.Language `yaml:"defaultLanguage"`

	DataDir    string `yaml:"dataDir"`
	ReportsDir string `yaml:"reportsDir"`

	MetricsAddr string `yaml:"metricsAddr"`

	LogLevel      string `yaml:"logLevel"`
	LogFormat     string `yaml:"logFormat"`
	LogFile       string `yaml:"logFile"`
	LogMaxSizeMB  int    `yaml:"logMaxSizeMb"`
	LogMaxAgeDays int    `yaml:"logMaxAgeDays"`
	LogCompress   bool   `yaml:"logCompress"`
}

// Defaults returns the baseline settings before any file or env layering.
func Defaults() Settings {
	return Settings{
		HTTPTimeout:         defaultHTTPTimeout,
		UserAgent:           defaultUserAgent,
		AIBaseURL:           defaultAIBaseURL,
		AIModel:             defaultAIModel,
		AITimeout:           defaultAITimeout,
		AIMaxRetries:        defaultAIMaxRetries,
		SitesMaxConcurrency: defaultSitesConc,
		SitesNoNSFW:         true,
		DefaultLanguage:     models.English,
		DataDir:             "data",
		ReportsDir:          "reports",
		LogLevel:            "info",
		LogFormat:           "auto",
		LogMaxSizeMB:        50,
		LogMaxAgeDays:       14,
	}
}

// Load assembles Settings from defaults, the config file, .env, and the
// environment, then validates the result.
func Load() (Settings, error) {
	settings := Defaults()

	if path := findConfigFile(); path != "" {
		if err := applyFile(&settings, path); err != nil {
			return settings, err
		}
		log.Debug().Str("path", path).Msg("Loaded config file")
	}

	loadDotEnv(settings.DataDir)
	applyEnv(&settings)
	settings.normalize()

	return settings, nil
}

// findConfigFile prefers OSINTHOUND_CONFIG, then osinthound.yml / .yaml in
// the working directory.
func findConfigFile() string {
	if explicit := strings.TrimSpace(os.Getenv(envPrefix + "CONFIG")); explicit != "" {
		return explicit
	}
	for _, candidate := range []string{"osinthound.yml", "osinthound.yaml"} {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}
	return ""
}

func applyFile(settings *Settings, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, settings); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// loadDotEnv pulls a .env file into the process environment without
// overriding variables already set. The data dir copy wins over cwd.
func loadDotEnv(dataDir string) {
	candidates := []string{".env"}
	if dataDir != "" {
		candidates = []string{filepath.Join(dataDir, ".env"), ".env"}
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err != nil {
			continue
		}
		if err := godotenv.Load(candidate); err != nil {
			log.Warn().Err(err).Str("path", candidate).Msg("Failed to load .env file")
			continue
		}
		return
	}
}

func applyEnv(settings *Settings) {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(envPrefix + key); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	setDuration := func(key string, dst *time.Duration) {
		v, ok := os.LookupEnv(envPrefix + key)
		if !ok {
			return
		}
		v = strings.TrimSpace(v)
		if seconds, err := strconv.Atoi(v); err == nil {
			*dst = time.Duration(seconds) * time.Second
			return
		}
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
			return
		}
		log.Warn().Str("key", envPrefix+key).Str("value", v).Msg("Invalid duration value ignored")
	}
	setInt := func(key string, dst *int) {
		v, ok := os.LookupEnv(envPrefix + key)
		if !ok {
			return
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			log.Warn().Str("key", envPrefix+key).Str("value", v).Msg("Invalid integer value ignored")
			return
		}
		*dst = n
	}
	setBool := func(key string, dst *bool) {
		v, ok := os.LookupEnv(envPrefix + key)
		if !ok {
			return
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			log.Warn().Str("key", envPrefix+key).Str("value", v).Msg("Invalid boolean value ignored")
			return
		}
		*dst = b
	}

	setDuration("HTTP_TIMEOUT", &settings.HTTPTimeout)
	setString("USER_AGENT", &settings.UserAgent)
	setString("SOCKS5_PROXY", &settings.SOCKS5Proxy)

	setString("AI_API_KEY", &settings.AIAPIKey)
	setString("AI_BASE_URL", &settings.AIBaseURL)
	setString("AI_MODEL", &settings.AIModel)
	setDuration("AI_TIMEOUT", &settings.AITimeout)
	setInt("AI_MAX_RETRIES", &settings.AIMaxRetries)

	setInt("SITES_MAX_CONCURRENCY", &settings.SitesMaxConcurrency)
	setBool("SITES_NO_NSFW", &settings.SitesNoNSFW)
	setString("USERNAME_SITES_PATH", &settings.UsernameSitesPath)
	setString("EMAIL_SITES_PATH", &settings.EmailSitesPath)

	if v, ok := os.LookupEnv(envPrefix + "LANG"); ok {
		settings.DefaultLanguage = models.ParseLanguage(v)
	}

	setString("DATA_DIR", &settings.DataDir)
	setString("REPORTS_DIR", &settings.ReportsDir)
	setString("METRICS_ADDR", &settings.MetricsAddr)

	setString("LOG_LEVEL", &settings.LogLevel)
	setString("LOG_FORMAT", &settings.LogFormat)
	setString("LOG_FILE", &settings.LogFile)
	setInt("LOG_MAX_SIZE_MB", &settings.LogMaxSizeMB)
	setInt("LOG_MAX_AGE_DAYS", &settings.LogMaxAgeDays)
	setBool("LOG_COMPRESS", &settings.LogCompress)
}

// normalize clamps out-of-range values back into their supported windows
// instead of failing the whole load.
func (s *Settings) normalize() {
	if s.HTTPTimeout <= 0 {
		s.HTTPTimeout = defaultHTTPTimeout
	}
	if strings.TrimSpace(s.UserAgent) == "" {
		s.UserAgent = defaultUserAgent
	}
	if strings.TrimSpace(s.AIBaseURL) == "" {
		s.AIBaseURL = defaultAIBaseURL
	}
	if strings.TrimSpace(s.AIModel) == "" {
		s.AIModel = defaultAIModel
	}
	if s.AITimeout <= 0 {
		s.AITimeout = defaultAITimeout
	}
	if s.AIMaxRetries < 0 {
		s.AIMaxRetries = 0
	}
	if s.AIMaxRetries > 10 {
		log.Warn().Int("value", s.AIMaxRetries).Msg("aiMaxRetries above 10; clamping")
		s.AIMaxRetries = 10
	}
	if s.SitesMaxConcurrency < 1 {
		s.SitesMaxConcurrency = 1
	}
	if s.SitesMaxConcurrency > 500 {
		log.Warn().Int("value", s.SitesMaxConcurrency).Msg("sitesMaxConcurrency above 500; clamping")
		s.SitesMaxConcurrency = 500
	}
	if s.DefaultLanguage != models.English && s.DefaultLanguage != models.Spanish {
		s.DefaultLanguage = models.English
	}
	if s.LogMaxSizeMB <= 0 {
		s.LogMaxSizeMB = 50
	}
	if s.LogMaxAgeDays < 0 {
		s.LogMaxAgeDays = 14
	}
}

// AIKeyForBaseURL resolves the API key requirement: local endpoints never
// need one and get the placeholder "local".
func (s Settings) AIKeyForBaseURL() (string, bool) {
	base := strings.ToLower(strings.TrimSpace(s.AIBaseURL))
	for _, prefix := range []string{"http://localhost", "http://127.0.0.1", "http://0.0.0.0"} {
		if strings.HasPrefix(base, prefix) {
			return "local", true
		}
	}
	key := strings.TrimSpace(s.AIAPIKey)
	return key, key != ""
}
