package haste

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
)

// Config enumerates every option named in the external-interfaces section
// of the haste map specification.
type Config struct {
	CacheDirectory          string // default: os.TempDir()
	ComputeDependencies     bool   // default true
	ComputeSha1             bool   // default false
	DependencyExtractorPath string // "" means none
	EnableSymlinks          bool   // default false
	Extensions              []string
	ForceNodeFilesystemAPI  bool // default false
	HasteImplModulePath     string
	IgnorePattern           *regexp.Regexp // nil means "no extra ignore rule"
	IgnorePredicate         func(relPath string) bool
	MaxWorkers              int
	MocksPattern            string // glob (gobwas/glob, '/' separator) over the root-relative path, not a regex; "" disables mock tracking
	Name                    string
	Platforms               []string
	ResetCache              bool // default false
	RetainAllFiles          bool // default false
	RootDir                 string
	Roots                   []string
	SkipPackageJSON         bool // default false
	ThrowOnModuleCollision  bool // default false
	UseWatchman             bool // default true
	Watch                   bool // default false

	// ForceInBand, when set, makes every worker dispatch synchronous
	// regardless of MaxWorkers. Mirrors the spec's forceInBand job option,
	// hoisted to a build-wide setting for watch mode (section 4.9).
	ForceInBand bool

	// ToolVersion feeds into the cache key so an upgrade of the extraction
	// logic invalidates all prior snapshots.
	ToolVersion string

	// Plugins supply the user-overridable haste-id extractor and
	// dependency extractor (section 9, "Dynamic hooks").
	HasteImpl           HasteImpl
	DependencyExtractor DependencyExtractor
}

// Normalize fills in defaults and de-duplicates and sorts Roots. It performs
// no validation and always returns nil.
func (c *Config) Normalize() error {
	if c.CacheDirectory == "" {
		c.CacheDirectory = os.TempDir()
	}
	if c.MaxWorkers <= 0 {
		c.MaxWorkers = 1
	}
	if len(c.Platforms) == 0 {
		c.Platforms = []string{}
	}
	c.Roots = dedupeSorted(c.Roots)
	if c.HasteImpl == nil {
		c.HasteImpl = defaultHasteImpl{}
	}
	if c.DependencyExtractor == nil {
		c.DependencyExtractor = defaultDependencyExtractor{}
	}
	return nil
}

func dedupeSorted(roots []string) []string {
	seen := make(map[string]bool, len(roots))
	out := make([]string, 0, len(roots))
	for _, r := range roots {
		r = filepath.Clean(r)
		if seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}
