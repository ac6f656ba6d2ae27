package haste

import (
	"fmt"
	"hash/fnv"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

var unsafePathChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// CacheKeyParts collects every input that must be folded into the snapshot
// path: any change in these parts must yield a new path (section 4.1,
// "Cache-key stability" in the testable properties section).
type CacheKeyParts struct {
	ToolVersion             string
	ProjectName             string
	RootDirDigest           string
	Roots                   []string
	Extensions              []string
	Platforms               []string
	ComputeSha1             bool
	MocksPattern            string
	IgnorePatternSource     string
	HasteImplCacheKey       string
	DependencyExtractorKey  string
}

// SnapshotPath hashes the key parts with a stable, non-cryptographic digest
// and joins it with a sanitized name prefix under cacheDir.
func SnapshotPath(cacheDir, namePrefix string, parts CacheKeyParts) string {
	digest := digestKeyParts(parts)
	safePrefix := unsafePathChars.ReplaceAllString(namePrefix, "-")
	return filepath.Join(cacheDir, fmt.Sprintf("%s-%s.haste", safePrefix, digest))
}

func digestKeyParts(parts CacheKeyParts) string {
	roots := append([]string(nil), parts.Roots...)
	sort.Strings(roots)
	exts := append([]string(nil), parts.Extensions...)
	sort.Strings(exts)
	plats := append([]string(nil), parts.Platforms...)
	sort.Strings(plats)

	h := fnv.New64a()
	fmt.Fprintf(h, "v:%s|n:%s|r:%s|roots:%s|ext:%s|plat:%s|sha1:%t|mocks:%s|ignore:%s|hasteimpl:%s|depext:%s",
		parts.ToolVersion,
		parts.ProjectName,
		parts.RootDirDigest,
		strings.Join(roots, ","),
		strings.Join(exts, ","),
		strings.Join(plats, ","),
		parts.ComputeSha1,
		parts.MocksPattern,
		parts.IgnorePatternSource,
		parts.HasteImplCacheKey,
		parts.DependencyExtractorKey,
	)
	return fmt.Sprintf("%016x", h.Sum64())
}

// RootDirDigest hashes rootDir itself, used as the CacheKeyParts.RootDirDigest
// input by callers that want a value stable across relocations of the cache
// directory but sensitive to which project is being indexed.
func RootDirDigest(rootDir string) string {
	h := fnv.New64a()
	fmt.Fprint(h, filepath.Clean(rootDir))
	return fmt.Sprintf("%08x", h.Sum64())
}
