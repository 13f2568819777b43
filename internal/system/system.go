// Package system assembles the agent's system prompt from modular
// components: base identity, backend-specific instructions, and dynamic
// environment information, plus project/user memory file loading.
package system

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/hoosh/hoosh/internal/log"
	"go.uber.org/zap"
)

// maxImportDepth is the maximum recursion depth for @import resolution.
const maxImportDepth = 5

//go:embed prompts/*.txt
var promptFS embed.FS

// Config holds configuration for system prompt generation.
type Config struct {
	Backend string // Backend name: anthropic, openai, google
	Model   string // Model identifier
	Cwd     string // Current working directory
	IsGit   bool   // Whether cwd is a git repository

	Memory   string   // pre-loaded memory content
	PlanMode bool     // whether plan mode is active
	Extra    []string // additional prompt sections (sub-agent instructions, etc.)
}

// System manages system prompt generation with runtime customization.
type System struct {
	Backend  string
	Model    string
	Cwd      string
	IsGit    bool
	PlanMode bool
	Extra    []string
	Memory   string // pre-loaded memory content; if empty, loaded from disk
}

// Prompt builds the complete system prompt from the System's fields.
func (s *System) Prompt() string {
	memory := s.Memory
	if memory == "" {
		memory = LoadMemory(s.Cwd)
	}
	return BuildPrompt(Config{
		Backend:  s.Backend,
		Model:    s.Model,
		Cwd:      s.Cwd,
		IsGit:    s.IsGit,
		PlanMode: s.PlanMode,
		Memory:   memory,
		Extra:    s.Extra,
	})
}

// BuildPrompt builds the complete system prompt from a Config. Assembly
// order: base + tools + backend-specific/generic + environment.
func BuildPrompt(cfg Config) string {
	base := load("base.txt")
	tools := load("tools.txt")
	backendPrompt := backendOrGeneric(cfg.Backend)
	env := formatEnv(cfg)

	if base == "" {
		log.Logger().Warn("system prompt: base.txt is empty")
	}
	if tools == "" {
		log.Logger().Warn("system prompt: tools.txt is empty")
	}

	parts := []string{base, tools, backendPrompt, env}

	if cfg.PlanMode {
		if planPrompt := load("planmode.txt"); planPrompt != "" {
			parts = append(parts, planPrompt)
		}
	}

	if cfg.Memory != "" {
		parts = append(parts, formatMemory(cfg.Memory))
	}
	parts = append(parts, cfg.Extra...)

	result := join(parts)

	log.Logger().Debug("system prompt assembled",
		zap.Int("total_len", len(result)),
		zap.String("backend", cfg.Backend),
		zap.String("model", cfg.Model),
	)

	return result
}

// load reads a prompt file from the embedded filesystem.
func load(name string) string {
	data, err := promptFS.ReadFile("prompts/" + name)
	if err != nil {
		return ""
	}
	return string(data)
}

// backendOrGeneric returns the backend-specific prompt if available,
// otherwise falls back to generic.txt.
func backendOrGeneric(backend string) string {
	if backend == "" {
		return load("generic.txt")
	}
	data, err := promptFS.ReadFile("prompts/" + backend + ".txt")
	if err != nil {
		return load("generic.txt")
	}
	return string(data)
}

// formatEnv generates the dynamic environment section.
func formatEnv(cfg Config) string {
	gitStatus := "No"
	if cfg.IsGit {
		gitStatus = "Yes"
	}
	return fmt.Sprintf(`<env>
Working directory: %s
Is git repo: %s
Platform: %s
Date: %s
Model: %s
</env>`, cfg.Cwd, gitStatus, runtime.GOOS,
		time.Now().Format("2006-01-02"), cfg.Model)
}

// formatMemory wraps memory content in XML tags.
func formatMemory(m string) string {
	return "<memory>\n" + m + "\n</memory>"
}

// join concatenates non-empty parts with double newlines.
func join(parts []string) string {
	var filtered []string
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			filtered = append(filtered, p)
		}
	}
	return strings.Join(filtered, "\n\n")
}

// CompactPrompt returns the prompt used to request conversation
// compaction (spec §4.5's Summarizer).
func CompactPrompt() string {
	return load("compact.txt")
}

// MemoryFile represents a loaded memory file with metadata.
type MemoryFile struct {
	Path    string
	Size    int64
	Content string
	Level   string // "global", "project", or "local"
	Source  string // "rules" for rules directory files, empty otherwise
}

// LoadMemory loads memory content from standard locations, preferring
// HOOSH.md over CLAUDE.md for cross-tool compatibility. All sources are
// concatenated with @import resolution.
func LoadMemory(cwd string) string {
	files := LoadMemoryFiles(cwd)
	if len(files) == 0 {
		return ""
	}
	var parts []string
	for _, f := range files {
		parts = append(parts, f.Content)
	}
	return strings.Join(parts, "\n\n")
}

// LoadMemoryFiles loads all memory files with metadata, in order: global,
// global rules, project, project rules, local.
func LoadMemoryFiles(cwd string) []MemoryFile {
	var files []MemoryFile
	homeDir, _ := os.UserHomeDir()
	seen := make(map[string]bool)

	userSources := []string{
		filepath.Join(homeDir, ".config", "hoosh", "HOOSH.md"),
		filepath.Join(homeDir, ".claude", "CLAUDE.md"),
	}
	if f := loadMemoryFile(userSources, "global", "", seen); f != nil {
		files = append(files, *f)
	}

	userRulesDir := filepath.Join(homeDir, ".config", "hoosh", "rules")
	files = append(files, loadRulesDirectory(userRulesDir, "global", seen)...)

	projectSources := []string{
		filepath.Join(cwd, ".hoosh", "HOOSH.md"),
		filepath.Join(cwd, "HOOSH.md"),
		filepath.Join(cwd, ".claude", "CLAUDE.md"),
		filepath.Join(cwd, "CLAUDE.md"),
	}
	if f := loadMemoryFile(projectSources, "project", "", seen); f != nil {
		files = append(files, *f)
	}

	projectRulesDir := filepath.Join(cwd, ".hoosh", "rules")
	files = append(files, loadRulesDirectory(projectRulesDir, "project", seen)...)

	localSources := []string{
		filepath.Join(cwd, ".hoosh", "HOOSH.local.md"),
	}
	if f := loadMemoryFile(localSources, "local", "", seen); f != nil {
		files = append(files, *f)
	}

	return files
}

// loadMemoryFile loads the first existing file from sources with @import
// resolution.
func loadMemoryFile(sources []string, level, source string, seen map[string]bool) *MemoryFile {
	for _, src := range sources {
		info, err := os.Stat(src)
		if err != nil {
			continue
		}
		if seen[src] {
			continue
		}

		data, err := os.ReadFile(src)
		if err != nil {
			continue
		}

		content := strings.TrimSpace(string(data))
		if content == "" {
			continue
		}

		seen[src] = true
		content = resolveImports(content, filepath.Dir(src), 0, seen)

		log.Logger().Debug("loaded memory file",
			zap.String("path", src),
			zap.Int64("bytes", info.Size()),
			zap.String("level", level))

		return &MemoryFile{
			Path:    src,
			Size:    info.Size(),
			Content: fmt.Sprintf("<!-- Source: %s -->\n%s", src, content),
			Level:   level,
			Source:  source,
		}
	}
	return nil
}

// loadRulesDirectory loads all .md files from a rules directory in
// alphabetical order.
func loadRulesDirectory(dir string, level string, seen map[string]bool) []MemoryFile {
	var files []MemoryFile

	entries, err := os.ReadDir(dir)
	if err != nil {
		return files
	}

	var mdFiles []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(strings.ToLower(entry.Name()), ".md") {
			mdFiles = append(mdFiles, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(mdFiles)

	for _, path := range mdFiles {
		if f := loadMemoryFile([]string{path}, level, "rules", seen); f != nil {
			files = append(files, *f)
		}
	}

	return files
}

var importRe = regexp.MustCompile(`(?m)^@([^\s@]+\.md)\s*$`)

// resolveImports processes @import statements in content. Syntax:
// @path/to/file.md or @./relative/path.md. Recursion is bounded by
// maxImportDepth and a seen-set to break cycles.
func resolveImports(content string, basePath string, depth int, seen map[string]bool) string {
	if depth >= maxImportDepth {
		return content
	}

	return importRe.ReplaceAllStringFunc(content, func(match string) string {
		importPath := strings.TrimPrefix(strings.TrimSpace(match), "@")
		fullPath := filepath.Clean(filepath.Join(basePath, importPath))

		if seen[fullPath] {
			return fmt.Sprintf("<!-- Skipped (cycle): @%s -->", importPath)
		}

		data, err := os.ReadFile(fullPath)
		if err != nil {
			return fmt.Sprintf("<!-- Import not found: @%s -->", importPath)
		}

		seen[fullPath] = true
		importedContent := strings.TrimSpace(string(data))

		log.Logger().Debug("resolved import",
			zap.String("import", importPath),
			zap.String("full_path", fullPath),
			zap.Int("depth", depth))

		importedContent = resolveImports(importedContent, filepath.Dir(fullPath), depth+1, seen)

		return fmt.Sprintf("<!-- Imported: %s -->\n%s", importPath, importedContent)
	})
}

// MemoryPaths holds categorized memory file search paths.
type MemoryPaths struct {
	Global       []string
	GlobalRules  string
	Project      []string
	ProjectRules string
	Local        []string
}

// GetMemoryPaths returns user-level and project-level search paths.
func GetMemoryPaths(cwd string) (userPaths, projectPaths []string) {
	paths := GetAllMemoryPaths(cwd)
	return paths.Global, paths.Project
}

// GetAllMemoryPaths returns all memory paths organized by category.
func GetAllMemoryPaths(cwd string) MemoryPaths {
	homeDir, _ := os.UserHomeDir()

	return MemoryPaths{
		Global: []string{
			filepath.Join(homeDir, ".config", "hoosh", "HOOSH.md"),
			filepath.Join(homeDir, ".claude", "CLAUDE.md"),
		},
		GlobalRules: filepath.Join(homeDir, ".config", "hoosh", "rules"),
		Project: []string{
			filepath.Join(cwd, ".hoosh", "HOOSH.md"),
			filepath.Join(cwd, "HOOSH.md"),
			filepath.Join(cwd, ".claude", "CLAUDE.md"),
			filepath.Join(cwd, "CLAUDE.md"),
		},
		ProjectRules: filepath.Join(cwd, ".hoosh", "rules"),
		Local: []string{
			filepath.Join(cwd, ".hoosh", "HOOSH.local.md"),
		},
	}
}

// FindMemoryFile returns the first existing file path from paths, or "".
func FindMemoryFile(paths []string) string {
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ListRulesFiles returns all .md files in a rules directory, sorted.
func ListRulesFiles(rulesDir string) []string {
	entries, err := os.ReadDir(rulesDir)
	if err != nil {
		return nil
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(strings.ToLower(entry.Name()), ".md") {
			files = append(files, filepath.Join(rulesDir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files
}

// GetFileSize returns the size of a file in bytes, or 0 if not found.
func GetFileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

// FormatFileSize formats a byte count for display.
func FormatFileSize(size int64) string {
	if size >= 1024*1024 {
		return fmt.Sprintf("%.1fMB", float64(size)/(1024*1024))
	}
	if size >= 1024 {
		return fmt.Sprintf("%.1fKB", float64(size)/1024)
	}
	return fmt.Sprintf("%dB", size)
}
