package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
)

// Config holds application configuration.
type Config struct {
	// UploadDir is where uploaded claim images are stored.
	// Defaults to baseDir/uploads; collisions silently overwrite.
	UploadDir string `json:"upload_dir,omitempty"`

	// OCRLanguages is the list of Tesseract trained-data language hints.
	OCRLanguages []string `json:"ocr_languages,omitempty"`

	// NERModel is the chat-completions model used for entity extraction.
	NERModel string `json:"ner_model,omitempty"`

	// NERBaseURL overrides the OpenAI API base URL. Any
	// OpenAI-compatible endpoint works, including a local Ollama.
	NERBaseURL string `json:"ner_base_url,omitempty"`

	// NERAPIKey is the API key for the extraction endpoint.
	// Falls back to the OPENAI_API_KEY environment variable.
	NERAPIKey string `json:"ner_api_key,omitempty"`

	// GeocodeBaseURL is the Nominatim endpoint.
	GeocodeBaseURL string `json:"geocode_base_url,omitempty"`

	// GeocodeUserAgent identifies this app per the Nominatim usage policy.
	GeocodeUserAgent string `json:"geocode_user_agent,omitempty"`

	// GeocodeMinIntervalMS is the minimum delay between upstream
	// geocode calls in milliseconds.
	GeocodeMinIntervalMS int `json:"geocode_min_interval_ms,omitempty"`

	// GeocodeMaxRetries bounds retry attempts after a transient failure.
	GeocodeMaxRetries int `json:"geocode_max_retries,omitempty"`

	// GeocodeBackoffMS is the wait between retry attempts in milliseconds.
	GeocodeBackoffMS int `json:"geocode_backoff_ms,omitempty"`

	// GeocodeCacheTTLMinutes is how long resolved lookups are cached.
	GeocodeCacheTTLMinutes int `json:"geocode_cache_ttl_minutes,omitempty"`

	// GeocodeLabels is the allow-list of entity categories submitted to
	// the geocoder. Empty means the built-in default list.
	GeocodeLabels []string `json:"geocode_labels,omitempty"`

	// SessionTTLMinutes is the lifetime of a login session.
	SessionTTLMinutes int `json:"session_ttl_minutes,omitempty"`

	// Users maps usernames to passwords for the login gate.
	// Demo credentials are used when empty.
	Users map[string]string `json:"users,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// If set to 1, all database access is serialized.
	// 0 means use sql.DB default (unlimited).
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	DisabledTools []string `json:"disabled_tools,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		OCRLanguages:           []string{"eng"},
		NERModel:               "gpt-4o-mini",
		GeocodeBaseURL:         "https://nominatim.openstreetmap.org/search",
		GeocodeUserAgent:       "claimgis_demo_app",
		GeocodeMinIntervalMS:   1000,
		GeocodeMaxRetries:      2,
		GeocodeBackoffMS:       2000,
		GeocodeCacheTTLMinutes: 60,
		SessionTTLMinutes:      120,
	}
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.claimgis.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFileRaw(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}
	merged := Merge(DefaultConfig(), cfg)
	if merged.UploadDir == "" {
		merged.UploadDir = filepath.Join(baseDir, "uploads")
	}
	return merged, nil
}

// APIKey returns the configured NER API key with env fallback.
func (c *Config) APIKey() string {
	if c.NERAPIKey != "" {
		return c.NERAPIKey
	}
	return os.Getenv("OPENAI_API_KEY")
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for non-zero scalars; slices and maps
// replace wholesale when set.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	result.UploadDir = pickString(base.UploadDir, overlay.UploadDir)
	result.NERModel = pickString(base.NERModel, overlay.NERModel)
	result.NERBaseURL = pickString(base.NERBaseURL, overlay.NERBaseURL)
	result.NERAPIKey = pickString(base.NERAPIKey, overlay.NERAPIKey)
	result.GeocodeBaseURL = pickString(base.GeocodeBaseURL, overlay.GeocodeBaseURL)
	result.GeocodeUserAgent = pickString(base.GeocodeUserAgent, overlay.GeocodeUserAgent)

	result.GeocodeMinIntervalMS = pickInt(base.GeocodeMinIntervalMS, overlay.GeocodeMinIntervalMS)
	result.GeocodeMaxRetries = pickInt(base.GeocodeMaxRetries, overlay.GeocodeMaxRetries)
	result.GeocodeBackoffMS = pickInt(base.GeocodeBackoffMS, overlay.GeocodeBackoffMS)
	result.GeocodeCacheTTLMinutes = pickInt(base.GeocodeCacheTTLMinutes, overlay.GeocodeCacheTTLMinutes)
	result.SessionTTLMinutes = pickInt(base.SessionTTLMinutes, overlay.SessionTTLMinutes)
	result.DBMaxOpenConns = pickInt(base.DBMaxOpenConns, overlay.DBMaxOpenConns)
	result.DBMaxIdleConns = pickInt(base.DBMaxIdleConns, overlay.DBMaxIdleConns)

	result.OCRLanguages = pickSlice(base.OCRLanguages, overlay.OCRLanguages)
	result.GeocodeLabels = pickSlice(base.GeocodeLabels, overlay.GeocodeLabels)
	result.DisabledTools = pickSlice(base.DisabledTools, overlay.DisabledTools)

	result.Users = base.Users
	if len(overlay.Users) > 0 {
		result.Users = overlay.Users
	}

	return result
}

func pickString(base, overlay string) string {
	if overlay != "" {
		return overlay
	}
	return base
}

func pickInt(base, overlay int) int {
	if overlay != 0 {
		return overlay
	}
	return base
}

func pickSlice(base, overlay []string) []string {
	if len(overlay) > 0 {
		return overlay
	}
	return base
}
