package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	// DataDir is the directory holding the server database. Defaults to
	// the directory the config file was loaded from.
	DataDir string `json:"data_dir,omitempty"`

	// AzureClientID is the Microsoft identity platform application id used
	// for the account sign-in flow. Join challenges fail without it.
	AzureClientID string `json:"azure_client_id,omitempty"`

	// AzureRedirectURI is the redirect URI registered for the application.
	AzureRedirectURI string `json:"azure_redirect_uri,omitempty"`

	// TwitchClientID and TwitchClientSecret enable stream lookups for
	// players seen on a server. Both empty disables the lookup.
	TwitchClientID     string `json:"twitch_client_id,omitempty"`
	TwitchClientSecret string `json:"twitch_client_secret,omitempty"`

	// Operator is the principal id allowed to run join challenges.
	Operator string `json:"operator,omitempty"`

	// PromptTimeoutSeconds bounds how long a code-entry prompt waits.
	// 0 means the built-in default.
	PromptTimeoutSeconds int `json:"prompt_timeout_seconds,omitempty"`

	// FreshnessWindowMinutes is how recently a server must have been seen
	// for an offline probe to be forgiven during a join challenge.
	FreshnessWindowMinutes int `json:"freshness_window_minutes,omitempty"`

	// WebBind and WebPort configure the read-only web UI.
	WebBind string `json:"web_bind,omitempty"`
	WebPort int    `json:"web_port,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// If set to 1, all database access is serialized (reduces "database is
	// locked" errors). 0 means use sql.DB default.
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	// 0 means use sql.DB default. Typically set equal to DBMaxOpenConns.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// Colors overrides embed colors per outcome ("success", "failure",
	// "offline", "neutral"). Values are 24-bit RGB integers.
	Colors map[string]int `json:"colors,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from
	// registration. Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		PromptTimeoutSeconds:   60,
		FreshnessWindowMinutes: 5,
		WebBind:                "127.0.0.1",
		WebPort:                8420,
	}
}

// PromptTimeout returns the configured prompt timeout as a duration.
func (c *Config) PromptTimeout() time.Duration {
	return time.Duration(c.PromptTimeoutSeconds) * time.Second
}

// FreshnessWindow returns the configured freshness window as a duration.
func (c *Config) FreshnessWindow() time.Duration {
	return time.Duration(c.FreshnessWindowMinutes) * time.Minute
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.spyglass.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFileRaw(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}
	merged := Merge(DefaultConfig(), cfg)
	if merged.DataDir == "" {
		merged.DataDir = baseDir
	}
	return merged, nil
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
// Overlay values take precedence for scalars; slices and maps are merged.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	result.DataDir = overlayString(base.DataDir, overlay.DataDir)
	result.AzureClientID = overlayString(base.AzureClientID, overlay.AzureClientID)
	result.AzureRedirectURI = overlayString(base.AzureRedirectURI, overlay.AzureRedirectURI)
	result.TwitchClientID = overlayString(base.TwitchClientID, overlay.TwitchClientID)
	result.TwitchClientSecret = overlayString(base.TwitchClientSecret, overlay.TwitchClientSecret)
	result.Operator = overlayString(base.Operator, overlay.Operator)
	result.WebBind = overlayString(base.WebBind, overlay.WebBind)

	result.PromptTimeoutSeconds = overlayInt(base.PromptTimeoutSeconds, overlay.PromptTimeoutSeconds)
	result.FreshnessWindowMinutes = overlayInt(base.FreshnessWindowMinutes, overlay.FreshnessWindowMinutes)
	result.WebPort = overlayInt(base.WebPort, overlay.WebPort)
	result.DBMaxOpenConns = overlayInt(base.DBMaxOpenConns, overlay.DBMaxOpenConns)
	result.DBMaxIdleConns = overlayInt(base.DBMaxIdleConns, overlay.DBMaxIdleConns)

	result.Colors = mergeIntMap(base.Colors, overlay.Colors)
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

func overlayString(base, overlay string) string {
	if overlay != "" {
		return overlay
	}
	return base
}

func overlayInt(base, overlay int) int {
	if overlay != 0 {
		return overlay
	}
	return base
}

// mergeIntMap overlays b on top of a.
func mergeIntMap(a, b map[string]int) map[string]int {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	result := make(map[string]int, len(a)+len(b))
	for k, v := range a {
		result[k] = v
	}
	for k, v := range b {
		result[k] = v
	}
	return result
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range a {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	for _, s := range b {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
