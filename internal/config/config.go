// Package config implements stash's layered configuration (C10):
// compiled-in defaults, a global JSONC config file, environment
// variables, an explicit --config file, and finally CLI flags. See
// spec §4.10/§6.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/tailscale/hujson"

	"github.com/NotAShelf/stash/internal/filter"
)

// ConfigFileName is the file name of the global config file inside
// the stash config directory.
const ConfigFileName = "config.json"

// Config is stash's fully resolved runtime configuration.
type Config struct {
	DBPath          string   `json:"db_path,omitempty"`
	MaxItems        int      `json:"max_items,omitempty"`
	MaxDedupeSearch int      `json:"max_dedupe_search,omitempty"`
	PreviewWidth    int      `json:"preview_width,omitempty"`
	ExcludedApps    []string `json:"excluded_apps,omitempty"`
	SensitiveRegex  string   `json:"sensitive_regex,omitempty"`

	// SensitiveRegexCompiled is resolved once at startup and never
	// serialized; an invalid pattern is a fatal startup error (spec
	// §4.3).
	SensitiveRegexCompiled *regexp.Regexp `json:"-"`
}

// DefaultConfig returns stash's compiled-in defaults.
func DefaultConfig() Config {
	return Config{
		MaxItems:        200,
		MaxDedupeSearch: 20,
		PreviewWidth:    80,
	}
}

// DBPathDefault resolves ${STASH_DB_PATH:-$XDG_STATE_HOME/stash/stash.db}.
func DBPathDefault(env map[string]string) string {
	if v := env["STASH_DB_PATH"]; v != "" {
		return v
	}

	if stateHome := env["XDG_STATE_HOME"]; stateHome != "" {
		return filepath.Join(stateHome, "stash", "stash.db")
	}

	if home := env["HOME"]; home != "" {
		return filepath.Join(home, ".local", "state", "stash", "stash.db")
	}

	return filepath.Join(".", "stash.db")
}

func globalConfigPath(env map[string]string) string {
	if v := env["XDG_CONFIG_HOME"]; v != "" {
		return filepath.Join(v, "stash", ConfigFileName)
	}

	if home := env["HOME"]; home != "" {
		return filepath.Join(home, ".config", "stash", ConfigFileName)
	}

	return ""
}

// LoadInput holds every configuration source Load reads from, besides
// the compiled-in defaults.
type LoadInput struct {
	// ExplicitConfigPath is the --config flag value, if given. Must
	// exist when non-empty.
	ExplicitConfigPath string

	// Env is the process environment, as a map for testability.
	Env map[string]string

	// CredentialFilePath, if set by the service manager, holds the
	// sensitive-content regex and overrides STASH_SENSITIVE_REGEX
	// (spec §4.3).
	CredentialFilePath string

	// Overrides carries CLI flag values; any non-zero field wins over
	// the defaults, config files and environment. The one exception is
	// SensitiveRegex: a CredentialFilePath replaces it regardless.
	Overrides Config
}

// Load resolves the layered configuration: defaults → global config
// file → environment → explicit --config file → CLI flags.
func Load(input LoadInput) (Config, error) {
	cfg := DefaultConfig()

	if path := globalConfigPath(input.Env); path != "" {
		fileCfg, err := loadConfigFile(path, false)
		if err != nil {
			return Config{}, err
		}

		cfg = merge(cfg, fileCfg)
	}

	cfg = merge(cfg, envConfig(input.Env))

	if input.ExplicitConfigPath != "" {
		fileCfg, err := loadConfigFile(input.ExplicitConfigPath, true)
		if err != nil {
			return Config{}, err
		}

		cfg = merge(cfg, fileCfg)
	}

	cfg = merge(cfg, input.Overrides)

	if cfg.DBPath == "" {
		cfg.DBPath = DBPathDefault(input.Env)
	}

	regexSource := cfg.SensitiveRegex
	if input.CredentialFilePath != "" {
		data, err := os.ReadFile(input.CredentialFilePath)
		if err != nil {
			return Config{}, fmt.Errorf("config: read credential file: %w", err)
		}

		regexSource = strings.TrimSpace(string(data))
	}

	compiled, err := filter.CompileSensitiveRegex(regexSource)
	if err != nil {
		return Config{}, err
	}

	cfg.SensitiveRegex = regexSource
	cfg.SensitiveRegexCompiled = compiled

	return cfg, nil
}

func envConfig(env map[string]string) Config {
	var cfg Config

	if v := env["STASH_DB_PATH"]; v != "" {
		cfg.DBPath = v
	}

	if v := env["STASH_EXCLUDED_APPS"]; v != "" {
		cfg.ExcludedApps = splitCSV(v)
	}

	if v := env["STASH_SENSITIVE_REGEX"]; v != "" {
		cfg.SensitiveRegex = v
	}

	return cfg
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}

	return out
}

func loadConfigFile(path string, mustExist bool) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !mustExist {
			return Config{}, nil
		}

		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("config: %s: invalid JSONC: %w", path, err)
	}

	var cfg Config

	if err := json.Unmarshal(standardized, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: %s: invalid JSON: %w", path, err)
	}

	return cfg, nil
}

func merge(base, overlay Config) Config {
	if overlay.DBPath != "" {
		base.DBPath = overlay.DBPath
	}

	if overlay.MaxItems != 0 {
		base.MaxItems = overlay.MaxItems
	}

	if overlay.MaxDedupeSearch != 0 {
		base.MaxDedupeSearch = overlay.MaxDedupeSearch
	}

	if overlay.PreviewWidth != 0 {
		base.PreviewWidth = overlay.PreviewWidth
	}

	if len(overlay.ExcludedApps) > 0 {
		base.ExcludedApps = overlay.ExcludedApps
	}

	if overlay.SensitiveRegex != "" {
		base.SensitiveRegex = overlay.SensitiveRegex
	}

	return base
}
