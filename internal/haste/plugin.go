package haste

import (
	"bufio"
	"bytes"
	"regexp"
)

// HasteImpl is the user-overridable plugin that names a file's haste id.
// Resolved once at Builder construction time (section 9, "Dynamic hooks");
// the worker pool receives only its GetCacheKey() digest plus whatever
// identifies it to the worker's own address space, never a global registry.
type HasteImpl interface {
	GetCacheKey() string
	GetHasteName(filePath string, fileContents []byte) string
}

// DependencyExtractor is the user-overridable plugin that lists the modules
// a file depends on.
type DependencyExtractor interface {
	GetCacheKey() string
	Extract(code []byte, filePath string, defaultExtractor DependencyExtractor) []string
}

// defaultHasteImpl implements the conventional haste-id declaration:
// a standalone comment line of the form "@providesModule <id>" or
// "@providesModule<TAB><id>" near the top of the file.
type defaultHasteImpl struct{}

var providesModuleRe = regexp.MustCompile(`@providesModule\s+(\S+)`)

func (defaultHasteImpl) GetCacheKey() string { return "default-haste-impl" }

func (defaultHasteImpl) GetHasteName(_ string, fileContents []byte) string {
	// Only the first 30 lines are scanned: the declaration is a header
	// convention, not something that can appear arbitrarily deep in a file.
	scanner := bufio.NewScanner(bytes.NewReader(fileContents))
	for i := 0; i < 30 && scanner.Scan(); i++ {
		line := scanner.Text()
		if m := providesModuleRe.FindStringSubmatch(line); m != nil {
			return m[1]
		}
	}
	return ""
}

// defaultDependencyExtractor extracts quoted require()/import specifiers.
// It is intentionally simple: a real dependency extractor is a per-language
// concern that belongs behind the same plugin seam, not in the core engine.
type defaultDependencyExtractor struct{}

func (defaultDependencyExtractor) GetCacheKey() string { return "default-dependency-extractor" }

var importRe = regexp.MustCompile(`(?:(?:require|import)\s*\(?|\bfrom)\s*['"]([^'"]+)['"]`)

func (defaultDependencyExtractor) Extract(code []byte, _ string, _ DependencyExtractor) []string {
	matches := importRe.FindAllStringSubmatch(string(code), -1)
	seen := make(map[string]bool, len(matches))
	deps := make([]string, 0, len(matches))
	for _, m := range matches {
		if seen[m[1]] {
			continue
		}
		seen[m[1]] = true
		deps = append(deps, m[1])
	}
	return deps
}
