package permission

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// rulesFile is the on-disk shape of .hoosh/permissions.json, per spec §6:
// {"rules": [{"kind": "...", "target": "...", "allowed": true}]}.
type rulesFile struct {
	Rules []Rule `json:"rules"`
}

// LoadRules reads .hoosh/permissions.json under projectRoot. A missing
// file is not an error: it means no rules have been trusted yet.
func LoadRules(projectRoot string) ([]Rule, error) {
	path := filepath.Join(projectRoot, ".hoosh", "permissions.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var f rulesFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return f.Rules, nil
}

// SaveRules writes rules to .hoosh/permissions.json under projectRoot,
// creating the directory if needed.
func SaveRules(projectRoot string, rules []Rule) error {
	dir := filepath.Join(projectRoot, ".hoosh")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(rulesFile{Rules: rules}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "permissions.json"), data, 0o644)
}

// LoadBashBlacklist reads .hoosh/bash_blacklist.json: a list of bash
// patterns (BashPatternMatcher's language) denied before any approval
// prompt is even shown (spec §6).
func LoadBashBlacklist(projectRoot string) ([]string, error) {
	path := filepath.Join(projectRoot, ".hoosh", "bash_blacklist.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var patterns []string
	if err := json.Unmarshal(data, &patterns); err != nil {
		return nil, err
	}
	return patterns, nil
}

// LoadEngineRules combines .hoosh/permissions.json with
// .hoosh/bash_blacklist.json into the one rule set an Engine is built
// from. A blacklist pattern becomes a standing Bash deny rule ahead of
// the persisted rules, so Engine.Check's ordinary rule-match step denies
// it outright and never reaches onUnresolved — exactly "denied
// pre-prompt" (spec §6), with no extra field or check needed on Engine
// itself.
func LoadEngineRules(projectRoot string) ([]Rule, error) {
	blacklist, err := LoadBashBlacklist(projectRoot)
	if err != nil {
		return nil, err
	}
	rules, err := LoadRules(projectRoot)
	if err != nil {
		return nil, err
	}

	combined := make([]Rule, 0, len(blacklist)+len(rules))
	for _, pattern := range blacklist {
		combined = append(combined, Rule{Kind: "Bash", Target: pattern, Allowed: false})
	}
	combined = append(combined, rules...)
	return combined, nil
}
