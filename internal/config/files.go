package config

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ResolvedLibrary contains the expanded document list for a library
type ResolvedLibrary struct {
	Name         string
	Files        []string
	IsThirdParty bool
}

// ResolveLibraries expands all glob patterns and explicit file entries and
// returns sorted document lists, one per library, ordered by name. Ignore
// patterns apply to every library.
func (c *Config) ResolveLibraries(rootPath string) ([]ResolvedLibrary, error) {
	base := projectDir(rootPath)
	byName := make(map[string]*ResolvedLibrary)
	sets := make(map[string]map[string]bool)
	library := func(name string, thirdParty bool) map[string]bool {
		if _, ok := byName[name]; !ok {
			byName[name] = &ResolvedLibrary{Name: name}
			sets[name] = make(map[string]bool)
		}
		if thirdParty {
			byName[name].IsThirdParty = true
		}
		return sets[name]
	}

	for libName, libCfg := range c.Libraries {
		fileSet := library(libName, libCfg.IsThirdParty)

		for _, pattern := range libCfg.Files {
			if !filepath.IsAbs(pattern) {
				pattern = filepath.Join(base, pattern)
			}

			matches, err := expandGlob(pattern)
			if err != nil {
				// Silently skip invalid patterns
				continue
			}

			for _, match := range matches {
				if strings.EqualFold(filepath.Ext(match), ".xml") {
					fileSet[filepath.Clean(match)] = true
				}
			}
		}

		for _, pattern := range libCfg.Exclude {
			if !filepath.IsAbs(pattern) {
				pattern = filepath.Join(base, pattern)
			}

			matches, err := expandGlob(pattern)
			if err != nil {
				continue
			}

			for _, match := range matches {
				delete(fileSet, filepath.Clean(match))
			}
		}
	}

	for _, entry := range c.Files {
		if entry.File == "" {
			continue
		}
		name := entry.Library
		if name == "" {
			name = defaultLibrary
		}
		path := entry.File
		if !filepath.IsAbs(path) {
			path = filepath.Join(base, path)
		}
		if _, err := os.Stat(path); err != nil {
			continue
		}
		library(name, entry.IsThirdParty)[filepath.Clean(path)] = true
	}

	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)

	result := make([]ResolvedLibrary, 0, len(names))
	for _, name := range names {
		resolved := *byName[name]
		for f := range sets[name] {
			if !c.ShouldIgnoreFile(f) {
				resolved.Files = append(resolved.Files, f)
			}
		}
		sort.Strings(resolved.Files)
		result = append(result, resolved)
	}

	return result, nil
}

// expandGlob expands a glob pattern, handling ** for recursive matching
func expandGlob(pattern string) ([]string, error) {
	if strings.Contains(pattern, "**") {
		return expandDoubleStarGlob(pattern)
	}
	return filepath.Glob(pattern)
}

// expandDoubleStarGlob handles ** patterns by walking the directory tree
func expandDoubleStarGlob(pattern string) ([]string, error) {
	var results []string

	parts := strings.SplitN(pattern, "**", 2)
	if len(parts) != 2 {
		return filepath.Glob(pattern)
	}

	baseDir := filepath.Clean(parts[0])
	if baseDir == "" {
		baseDir = "."
	}
	suffix := strings.TrimPrefix(parts[1], string(filepath.Separator))

	err := filepath.Walk(baseDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors, continue walking
		}
		if info.IsDir() {
			if path != baseDir && strings.HasPrefix(info.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		if suffix == "" {
			results = append(results, path)
			return nil
		}

		relPath, err := filepath.Rel(baseDir, path)
		if err != nil {
			return nil
		}
		if matchSuffix(relPath, suffix) {
			results = append(results, path)
		}
		return nil
	})

	return results, err
}

// matchSuffix checks if a path matches a suffix pattern (after **)
func matchSuffix(path, pattern string) bool {
	pattern = strings.TrimPrefix(pattern, string(filepath.Separator))

	// If pattern has no directory component, match against filename
	if !strings.Contains(pattern, string(filepath.Separator)) {
		matched, _ := filepath.Match(pattern, filepath.Base(path))
		return matched
	}

	matched, _ := filepath.Match(pattern, path)
	if matched {
		return true
	}

	// Also try matching the trailing path components
	parts := strings.Split(path, string(filepath.Separator))
	depth := strings.Count(pattern, string(filepath.Separator)) + 1
	if len(parts) > depth {
		tail := filepath.Join(parts[len(parts)-depth:]...)
		matched, _ = filepath.Match(pattern, tail)
		return matched
	}

	return false
}

// Includes reports whether path belongs to a configured library: it matches
// a library file pattern without matching that library's excludes, or it is
// an explicit file entry, and no ignore pattern matches it. The file does
// not need to exist yet.
func (c *Config) Includes(rootPath, path string) bool {
	if !strings.EqualFold(filepath.Ext(path), ".xml") || c.ShouldIgnoreFile(path) {
		return false
	}
	base := projectDir(rootPath)
	path = filepath.Clean(path)
	abs := func(pattern string) string {
		if filepath.IsAbs(pattern) {
			return filepath.Clean(pattern)
		}
		return filepath.Join(base, pattern)
	}

	for _, entry := range c.Files {
		if entry.File != "" && abs(entry.File) == path {
			return true
		}
	}
	for _, libCfg := range c.Libraries {
		included := false
		for _, pattern := range libCfg.Files {
			if matchGlob(abs(pattern), path) {
				included = true
				break
			}
		}
		if !included {
			continue
		}
		excluded := false
		for _, pattern := range libCfg.Exclude {
			if matchGlob(abs(pattern), path) {
				excluded = true
				break
			}
		}
		if !excluded {
			return true
		}
	}
	return false
}

// matchGlob is the single-path counterpart of expandGlob.
func matchGlob(pattern, path string) bool {
	parts := strings.SplitN(pattern, "**", 2)
	if len(parts) != 2 {
		matched, _ := filepath.Match(pattern, path)
		return matched
	}

	baseDir := filepath.Clean(parts[0])
	rel, err := filepath.Rel(baseDir, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return false
	}
	dirs := strings.Split(filepath.Dir(rel), string(filepath.Separator))
	for _, d := range dirs {
		if d != "." && strings.HasPrefix(d, ".") {
			return false
		}
	}
	suffix := strings.TrimPrefix(parts[1], string(filepath.Separator))
	return suffix == "" || matchSuffix(rel, suffix)
}

// GetAllFiles returns all documents from all libraries, sorted and
// deduplicated.
func (c *Config) GetAllFiles(rootPath string) ([]string, error) {
	libs, err := c.ResolveLibraries(rootPath)
	if err != nil {
		return nil, err
	}

	fileSet := make(map[string]bool)
	var result []string
	for _, lib := range libs {
		for _, f := range lib.Files {
			if !fileSet[f] {
				fileSet[f] = true
				result = append(result, f)
			}
		}
	}
	sort.Strings(result)

	return result, nil
}

// ThirdPartyFiles returns the set of documents that belong to a third-party
// library.
func (c *Config) ThirdPartyFiles(rootPath string) (map[string]bool, error) {
	libs, err := c.ResolveLibraries(rootPath)
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool)
	for _, lib := range libs {
		if !lib.IsThirdParty {
			continue
		}
		for _, f := range lib.Files {
			out[f] = true
		}
	}
	return out, nil
}
