// Package config loads the app-level configuration spec §6 names:
// ~/.config/hoosh/config.toml, plus .env for API keys (the teacher's
// godotenv pattern, cmd/gen/main.go). Project-level permission rules and
// the bash blacklist are a separate concern already owned by
// internal/permission/store.go (spec ties them to the permission engine,
// not the app config); this package only ever reads/writes config.toml.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/joho/godotenv"
)

// AppConfig mirrors backend.Options plus the one cross-cutting setting
// spec §5 calls out for sub-agents (an optional wall-clock timeout).
// Kept separate from backend.Options itself so internal/config has no
// dependency on internal/backend — the caller (cmd/hoosh) adapts one
// into the other.
type AppConfig struct {
	Provider               string
	Model                  string
	APIKey                 string
	SystemPrompt           string
	MaxTokens              int
	SubagentTimeoutSeconds int
}

// Default returns the configuration used when config.toml doesn't exist
// or doesn't set a given key, matching the teacher's cmd/gen/main.go
// per-provider defaults (getDefaultModel).
func Default() *AppConfig {
	return &AppConfig{
		Provider:               "anthropic",
		Model:                  "claude-sonnet-4-20250514",
		SystemPrompt:           "You are a helpful AI coding assistant.",
		MaxTokens:              8192,
		SubagentTimeoutSeconds: 0, // 0 means no bound beyond a sub-agent type's max_steps
	}
}

// Loader reads and writes ~/.config/hoosh/config.toml.
type Loader struct {
	ConfigDir string
}

// NewLoader builds a Loader rooted at ~/.config/hoosh.
func NewLoader() *Loader {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return &Loader{ConfigDir: filepath.Join(home, ".config", "hoosh")}
}

func (l *Loader) path() string { return filepath.Join(l.ConfigDir, "config.toml") }

// Load reads config.toml (layering it over Default()), then applies
// HOOSH_-prefixed environment variable overrides (spec §6's "App
// config... Unix mode checked for 0600, warning if not"). A missing
// file is not an error — Default() alone is returned.
func (l *Loader) Load() (*AppConfig, error) {
	_ = godotenv.Load() // silent fail if no .env file, matching the teacher's init()

	cfg := Default()

	path := l.path()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, err
	}

	warnIfNotPrivate(path)

	sections, err := parseTOML(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	applySection(cfg, sections["model"])
	applyEnvOverrides(cfg)
	return cfg, nil
}

// Save writes cfg's [model] section to config.toml, creating the
// directory with 0700 and the file with 0600 so the warning Load()
// would otherwise print never fires for files this package itself wrote.
func (l *Loader) Save(cfg *AppConfig) error {
	if err := os.MkdirAll(l.ConfigDir, 0o700); err != nil {
		return err
	}
	values := map[string]string{
		"provider":      cfg.Provider,
		"model":         cfg.Model,
		"api_key":       cfg.APIKey,
		"system_prompt": cfg.SystemPrompt,
		"max_tokens":    strconv.Itoa(cfg.MaxTokens),

		"subagent_timeout_seconds": strconv.Itoa(cfg.SubagentTimeoutSeconds),
	}
	keys := []string{"provider", "model", "api_key", "system_prompt", "max_tokens", "subagent_timeout_seconds"}
	data := writeTOML("model", keys, values)
	return os.WriteFile(l.path(), data, 0o600)
}

func applySection(cfg *AppConfig, section map[string]string) {
	if section == nil {
		return
	}
	if v, ok := section["provider"]; ok && v != "" {
		cfg.Provider = v
	}
	if v, ok := section["model"]; ok && v != "" {
		cfg.Model = v
	}
	if v, ok := section["api_key"]; ok && v != "" {
		cfg.APIKey = v
	}
	if v, ok := section["system_prompt"]; ok && v != "" {
		cfg.SystemPrompt = v
	}
	if v, ok := section["max_tokens"]; ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxTokens = n
		}
	}
	if v, ok := section["subagent_timeout_seconds"]; ok {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.SubagentTimeoutSeconds = n
		}
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := os.Getenv("HOOSH_PROVIDER"); v != "" {
		cfg.Provider = v
	}
	if v := os.Getenv("HOOSH_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("HOOSH_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	// Provider-specific key env vars (ANTHROPIC_API_KEY, etc.) are left
	// for the backend adapters themselves to read when APIKey is empty
	// (backend.Options' documented default, internal/backend/factory.go).
}

// warnIfNotPrivate prints a warning to stderr when path isn't mode 0600,
// matching spec §6's "Unix mode checked for 0600, warning if not." A
// no-op on platforms without POSIX permission bits.
func warnIfNotPrivate(path string) {
	if runtime.GOOS == "windows" {
		return
	}
	info, err := os.Stat(path)
	if err != nil {
		return
	}
	if info.Mode().Perm() != 0o600 {
		fmt.Fprintf(os.Stderr, "warning: %s is mode %04o, expected 0600 (it may contain an API key)\n", path, info.Mode().Perm())
	}
}
