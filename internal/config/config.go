package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/robert-at-pretension-io/ipxact-lint/internal/ipxact"
)

// Config is the top-level configuration for ipxact-lint
type Config struct {
	// Revision is the IP-XACT revision assumed for documents whose namespace
	// does not identify one: "1.0", "2014" or "2022"
	Revision string `json:"revision,omitempty" toml:"revision,omitempty"`

	// Files is an explicit list of documents with an optional library override
	Files []FileEntry `json:"files,omitempty" toml:"files,omitempty"`

	// Libraries maps library names to their configuration
	Libraries map[string]LibraryConfig `json:"libraries,omitempty" toml:"libraries,omitempty"`

	// Lint contains linting rule configuration
	Lint LintConfig `json:"lint,omitempty" toml:"lint,omitempty"`

	// Analysis contains analysis options
	Analysis AnalysisConfig `json:"analysis,omitempty" toml:"analysis,omitempty"`
}

// LibraryConfig defines the IP-XACT documents of one library
type LibraryConfig struct {
	// Files is a list of glob patterns for XML documents in this library
	Files []string `json:"files" toml:"files"`

	// Exclude is a list of glob patterns to exclude from this library
	Exclude []string `json:"exclude,omitempty" toml:"exclude,omitempty"`

	// IsThirdParty marks vendor IP whose findings are reported but expected
	IsThirdParty bool `json:"isThirdParty,omitempty" toml:"isThirdParty,omitempty"`
}

// FileEntry is an explicit document entry
type FileEntry struct {
	File         string `json:"file" toml:"file"`
	Library      string `json:"library,omitempty" toml:"library,omitempty"`
	IsThirdParty bool   `json:"isThirdParty,omitempty" toml:"isThirdParty,omitempty"`
}

// LintConfig contains linting configuration
type LintConfig struct {
	// Rules maps rule names to severity: "off", "info", "warning", "error"
	Rules map[string]string `json:"rules,omitempty" toml:"rules,omitempty"`

	// IgnorePatterns is a list of file patterns to skip linting entirely
	IgnorePatterns []string `json:"ignorePatterns,omitempty" toml:"ignorePatterns,omitempty"`

	// PolicyDir holds extra .rego modules (relative to project root if not absolute)
	PolicyDir string `json:"policyDir,omitempty" toml:"policyDir,omitempty"`
}

// CacheConfig controls the document identity cache
type CacheConfig struct {
	// Enabled turns on cache usage
	Enabled *bool `json:"enabled,omitempty" toml:"enabled,omitempty"`

	// Dir is the cache directory (relative to project root if not absolute)
	Dir string `json:"dir,omitempty" toml:"dir,omitempty"`
}

// AnalysisConfig contains analysis options
type AnalysisConfig struct {
	// MaxParallelFiles limits concurrent file processing (0 = auto)
	MaxParallelFiles int `json:"maxParallelFiles,omitempty" toml:"maxParallelFiles,omitempty"`

	// MaxDepth limits hierarchy expansion (0 = unlimited)
	MaxDepth int `json:"maxDepth,omitempty" toml:"maxDepth,omitempty"`

	// Timing is a JSONL file receiving scan timing events, empty to disable
	Timing string `json:"timing,omitempty" toml:"timing,omitempty"`

	// Cache controls the document identity cache
	Cache CacheConfig `json:"cache,omitempty" toml:"cache,omitempty"`
}

const (
	defaultRevision = "2014"
	defaultCacheDir = ".ipxact_lint_cache"
	defaultLibrary  = "library"
)

var defaultPatterns = []string{"*.xml", "**/*.xml"}

var severities = map[string]bool{"off": true, "info": true, "warning": true, "error": true}

// DefaultConfig returns a sensible default configuration
func DefaultConfig() *Config {
	return &Config{
		Revision: defaultRevision,
		Libraries: map[string]LibraryConfig{
			defaultLibrary: {
				Files:   append([]string(nil), defaultPatterns...),
				Exclude: []string{},
			},
		},
		Lint: LintConfig{
			Rules:          map[string]string{},
			IgnorePatterns: []string{},
		},
		Analysis: AnalysisConfig{
			Cache: CacheConfig{
				Enabled: boolPtr(true),
				Dir:     defaultCacheDir,
			},
		},
	}
}

func boolPtr(v bool) *bool {
	return &v
}

// configNames are tried in each search directory, in order.
var configNames = []string{"ipxact_lint.json", "ipxact_lint.toml", ".ipxact_lint.json", ".ipxact_lint.toml"}

// Load finds and loads the configuration file
// Search order:
//  1. ./ipxact_lint.{json,toml}, ./.ipxact_lint.{json,toml} (current working directory)
//  2. the same names in <rootPath> (if different from cwd)
//  3. ~/.config/ipxact_lint/config.{json,toml}
//
// Returns DefaultConfig if no config file is found
func Load(rootPath string) (*Config, error) {
	cwd, _ := os.Getwd()

	var searchPaths []string
	for _, name := range configNames {
		searchPaths = append(searchPaths, filepath.Join(cwd, name))
	}

	if info, err := os.Stat(rootPath); err == nil && info.IsDir() {
		absRoot, _ := filepath.Abs(rootPath)
		if absRoot != cwd {
			for _, name := range configNames {
				searchPaths = append(searchPaths, filepath.Join(rootPath, name))
			}
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths,
			filepath.Join(home, ".config", "ipxact_lint", "config.json"),
			filepath.Join(home, ".config", "ipxact_lint", "config.toml"),
		)
	}

	for _, path := range searchPaths {
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}

	return DefaultConfig(), nil
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// LoadFile loads configuration from a specific file. Files ending in .toml
// are read as TOML, everything else as JSON.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if isTOML(path) {
		err = toml.Unmarshal(data, &cfg)
	} else {
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	return &cfg, nil
}

// applyDefaults fills in missing configuration with defaults
func (c *Config) applyDefaults() {
	if c.Revision == "" {
		c.Revision = defaultRevision
	}

	if c.Libraries == nil {
		if len(c.Files) == 0 {
			c.Libraries = map[string]LibraryConfig{
				defaultLibrary: {Files: append([]string(nil), defaultPatterns...)},
			}
		} else {
			c.Libraries = map[string]LibraryConfig{}
		}
	}

	if c.Lint.Rules == nil {
		c.Lint.Rules = make(map[string]string)
	}

	if c.Analysis.Cache.Dir == "" {
		c.Analysis.Cache.Dir = defaultCacheDir
	}
	if c.Analysis.Cache.Enabled == nil {
		c.Analysis.Cache.Enabled = boolPtr(true)
	}
}

// Validate rejects unknown revisions and rule severities.
func (c *Config) Validate() error {
	if ipxact.ParseRevision(c.Revision) == ipxact.RevisionUnknown {
		return fmt.Errorf("unknown revision %q", c.Revision)
	}
	rules := make([]string, 0, len(c.Lint.Rules))
	for rule := range c.Lint.Rules {
		rules = append(rules, rule)
	}
	sort.Strings(rules)
	for _, rule := range rules {
		if !severities[c.Lint.Rules[rule]] {
			return fmt.Errorf("rule %s: unknown severity %q", rule, c.Lint.Rules[rule])
		}
	}
	if c.Analysis.MaxDepth < 0 {
		return fmt.Errorf("analysis.maxDepth must not be negative")
	}
	return nil
}

// Save writes the configuration to a file, as TOML when the name ends in
// .toml and as JSON otherwise.
func (c *Config) Save(path string) error {
	var (
		data []byte
		err  error
	)
	if isTOML(path) {
		data, err = toml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// DefaultRevision is the revision assumed for documents that do not declare one.
func (c *Config) DefaultRevision() ipxact.Revision {
	return ipxact.ParseRevision(c.Revision)
}

// CacheDir returns the identity cache directory under rootPath, or "" when
// caching is disabled.
func (c *Config) CacheDir(rootPath string) string {
	if c.Analysis.Cache.Enabled != nil && !*c.Analysis.Cache.Enabled {
		return ""
	}
	return resolvePath(rootPath, c.Analysis.Cache.Dir)
}

// TimingPath returns the timing log path under rootPath, or "".
func (c *Config) TimingPath(rootPath string) string {
	return resolvePath(rootPath, c.Analysis.Timing)
}

// PolicyDir returns the extra policy directory under rootPath, or "".
func (c *Config) PolicyDir(rootPath string) string {
	return resolvePath(rootPath, c.Lint.PolicyDir)
}

func resolvePath(rootPath, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(projectDir(rootPath), p)
}

// projectDir is rootPath itself, or its directory when rootPath is a file.
func projectDir(rootPath string) string {
	if info, err := os.Stat(rootPath); err == nil && !info.IsDir() {
		return filepath.Dir(rootPath)
	}
	return rootPath
}

// ShouldIgnoreFile checks if a file should be skipped entirely
func (c *Config) ShouldIgnoreFile(filePath string) bool {
	for _, pattern := range c.Lint.IgnorePatterns {
		if matchPath(pattern, filePath) {
			return true
		}
	}
	return false
}

// matchPath matches pattern against the full path, then against the base name.
func matchPath(pattern, filePath string) bool {
	if matched, _ := filepath.Match(pattern, filePath); matched {
		return true
	}
	matched, _ := filepath.Match(pattern, filepath.Base(filePath))
	return matched
}
