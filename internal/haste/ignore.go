package haste

import (
	"regexp"
	"strings"

	"github.com/gobwas/glob"
)

// vcsDirRe matches any path segment that is a VCS metadata directory. It is
// always OR-composed with the configured ignore rule (section 4.2).
var vcsDirRe = regexp.MustCompile(`(^|/)(\.git|\.hg)(/|$)`)

// IgnoreFilter decides whether a relative path is excluded from indexing.
type IgnoreFilter struct {
	pattern        *regexp.Regexp
	predicate      func(string) bool
	retainAllFiles bool
}

// NewIgnoreFilter builds an IgnoreFilter from the configured regex or
// predicate (exactly one of which should be set; predicate wins if both
// are), the built-in VCS-directory rule, and the node_modules rule.
func NewIgnoreFilter(cfg *Config) *IgnoreFilter {
	return &IgnoreFilter{
		pattern:        cfg.IgnorePattern,
		predicate:      cfg.IgnorePredicate,
		retainAllFiles: cfg.RetainAllFiles,
	}
}

// ShouldIgnore reports whether relPath (forward-slash, root-relative) is
// excluded. absPath is used only for the node_modules check, which the
// spec defines over the absolute form of the path.
func (f *IgnoreFilter) ShouldIgnore(relPath, absPath string) bool {
	if vcsDirRe.MatchString(relPath) {
		return true
	}
	if !f.retainAllFiles && insideNodeModules(filepathToSlash(absPath)) {
		return true
	}
	if f.predicate != nil {
		return f.predicate(relPath)
	}
	if f.pattern != nil {
		return f.pattern.MatchString(relPath)
	}
	return false
}

func filepathToSlash(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}

// insideNodeModules reports whether a slash-form path (relative or
// absolute) has a node_modules path segment. Used both by the ignore rule
// (ShouldIgnore) and by RetainAllFiles's node_modules carve-out in the
// crawler and extraction pipeline (section 4.5 step 3).
func insideNodeModules(slashed string) bool {
	return strings.Contains("/"+slashed+"/", "/node_modules/")
}

// globSet compiles a list of glob patterns, used for Config.MocksPattern
// matching (extensions are matched by hasConfiguredExtension instead).
type globSet struct {
	globs []glob.Glob
}

func newGlobSet(patterns []string) (*globSet, error) {
	gs := &globSet{globs: make([]glob.Glob, 0, len(patterns))}
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, err
		}
		gs.globs = append(gs.globs, g)
	}
	return gs, nil
}

func (gs *globSet) matchAny(relPath string) bool {
	for _, g := range gs.globs {
		if g.Match(relPath) {
			return true
		}
	}
	return false
}

// hasConfiguredExtension reports whether relPath ends in one of the
// configured extensions (each entry is the bare extension without the dot,
// e.g. "js", matching the convention used by watchman globs).
func hasConfiguredExtension(relPath string, extensions []string) bool {
	dot := strings.LastIndexByte(relPath, '.')
	if dot < 0 {
		return false
	}
	ext := relPath[dot+1:]
	for _, e := range extensions {
		if e == ext {
			return true
		}
	}
	return false
}
