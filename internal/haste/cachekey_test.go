package haste

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func baseParts() CacheKeyParts {
	return CacheKeyParts{
		ToolVersion: "1.0.0",
		ProjectName: "myproject",
		Roots:       []string{"src", "lib"},
		Extensions:  []string{"js", "json"},
		Platforms:   []string{"ios", "android"},
		ComputeSha1: false,
	}
}

func TestSnapshotPath_StableForIdenticalParts(t *testing.T) {
	t.Parallel()

	parts := baseParts()
	p1 := SnapshotPath("/cache", "myproject", parts)
	p2 := SnapshotPath("/cache", "myproject", parts)
	assert.Equal(t, p1, p2)
}

func TestSnapshotPath_OrderIndependentForRootsAndExtensions(t *testing.T) {
	t.Parallel()

	a := baseParts()
	a.Roots = []string{"src", "lib"}
	a.Extensions = []string{"js", "json"}

	b := baseParts()
	b.Roots = []string{"lib", "src"}
	b.Extensions = []string{"json", "js"}

	assert.Equal(t, SnapshotPath("/cache", "p", a), SnapshotPath("/cache", "p", b))
}

func TestSnapshotPath_ChangesWithAnyInput(t *testing.T) {
	t.Parallel()

	base := SnapshotPath("/cache", "myproject", baseParts())

	variants := []CacheKeyParts{
		withToolVersion(baseParts(), "2.0.0"),
		withComputeSha1(baseParts(), true),
		withMocksPattern(baseParts(), "**/__mocks__/**"),
		withIgnorePattern(baseParts(), "node_modules"),
	}
	for _, v := range variants {
		assert.NotEqual(t, base, SnapshotPath("/cache", "myproject", v))
	}
}

func withToolVersion(p CacheKeyParts, v string) CacheKeyParts   { p.ToolVersion = v; return p }
func withComputeSha1(p CacheKeyParts, v bool) CacheKeyParts     { p.ComputeSha1 = v; return p }
func withMocksPattern(p CacheKeyParts, v string) CacheKeyParts  { p.MocksPattern = v; return p }
func withIgnorePattern(p CacheKeyParts, v string) CacheKeyParts { p.IgnorePatternSource = v; return p }

func TestSnapshotPath_SanitizesNamePrefix(t *testing.T) {
	t.Parallel()

	path := SnapshotPath("/cache", "my project!@#", baseParts())
	assert.Contains(t, path, "my-project---")
}

func TestRootDirDigest_StableAndDistinct(t *testing.T) {
	t.Parallel()

	assert.Equal(t, RootDirDigest("/a/b"), RootDirDigest("/a/b"))
	assert.NotEqual(t, RootDirDigest("/a/b"), RootDirDigest("/a/c"))
}
