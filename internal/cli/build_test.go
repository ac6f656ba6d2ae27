package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/hastemap/internal/haste"
)

// Test Plan for build command helpers:
//   - cacheKeyParts maps every haste.Config field it can see into
//     CacheKeyParts, defaulting plugin/ignore keys to "" when unset.
//   - watchSocketPath returns "" when UseWatchman is false, regardless of
//     the env var.
//   - watchSocketPath reads HASTEMAP_DAEMON_SOCKET when UseWatchman is true.
//   - buildOnce runs the full pipeline against a real temp directory and
//     persists a snapshot.

func TestCacheKeyParts_MapsConfigFields(t *testing.T) {
	t.Parallel()

	cfg := &haste.Config{
		ToolVersion: "1.0.0",
		Name:        "proj",
		RootDir:     "/proj",
		Roots:       []string{"src"},
		Extensions:  []string{"js"},
		Platforms:   []string{"ios"},
		ComputeSha1: true,
	}

	parts := cacheKeyParts(cfg)
	assert.Equal(t, "1.0.0", parts.ToolVersion)
	assert.Equal(t, "proj", parts.ProjectName)
	assert.Equal(t, haste.RootDirDigest("/proj"), parts.RootDirDigest)
	assert.Equal(t, []string{"src"}, parts.Roots)
	assert.True(t, parts.ComputeSha1)
	assert.Empty(t, parts.HasteImplCacheKey)
	assert.Empty(t, parts.DependencyExtractorKey)
	assert.Empty(t, parts.IgnorePatternSource)
}

func TestWatchSocketPath_DisabledWatchman_ReturnsEmpty(t *testing.T) {
	t.Setenv("HASTEMAP_DAEMON_SOCKET", "/tmp/some.sock")

	cfg := &haste.Config{UseWatchman: false}
	assert.Empty(t, watchSocketPath(cfg))
}

func TestWatchSocketPath_EnabledWatchman_ReadsEnvVar(t *testing.T) {
	t.Setenv("HASTEMAP_DAEMON_SOCKET", "/tmp/some.sock")

	cfg := &haste.Config{UseWatchman: true}
	assert.Equal(t, "/tmp/some.sock", watchSocketPath(cfg))
}

func TestBuildOnce_RunsPipelineAndPersistsSnapshot(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.js"), []byte("// @providesModule Foo\n"), 0o644))

	cacheDir := t.TempDir()
	cfg := &haste.Config{
		RootDir:    root,
		Roots:      []string{root},
		Extensions: []string{"js"},
		Name:       "proj",
		CacheDirectory: cacheDir,
	}
	require.NoError(t, cfg.Normalize())

	snap, err := buildOnce(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Contains(t, snap.Modules, "Foo")

	cachePath := haste.SnapshotPath(cacheDir, "proj", cacheKeyParts(cfg))
	_, err = os.Stat(cachePath)
	assert.NoError(t, err)
}
