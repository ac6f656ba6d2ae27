package haste

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheStore_Read_MissingFileYieldsEmptySnapshot(t *testing.T) {
	t.Parallel()

	store := NewCacheStore(filepath.Join(t.TempDir(), "nonexistent.haste"))
	snap := store.Read()
	assert.NotNil(t, snap)
	assert.Empty(t, snap.Files)
}

func TestCacheStore_Read_CorruptFileYieldsEmptySnapshot(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "corrupt.haste")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	store := NewCacheStore(path)
	snap := store.Read()
	assert.NotNil(t, snap)
	assert.Empty(t, snap.Files)
}

func TestCacheStore_WriteThenRead_RoundTrips(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "dir", "project.haste")
	store := NewCacheStore(path)

	snap := Empty()
	snap.Files["a.js"] = &FileEntry{HasteID: "Foo", MTime: 42, Size: 7}
	snap.Modules["Foo"] = PlatformBindings{Generic: {Path: "a.js", Kind: KindModule}}
	snap.Clocks["src"] = "clock-1"

	require.NoError(t, store.Write(snap))

	reloaded := store.Read()
	assert.Equal(t, snap.Files["a.js"], reloaded.Files["a.js"])
	assert.Equal(t, snap.Modules, reloaded.Modules)
	assert.Equal(t, snap.Clocks, reloaded.Clocks)
}

func TestCacheStore_Write_IsAtomic(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "project.haste")
	store := NewCacheStore(path)

	require.NoError(t, store.Write(Empty()))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp")
	}
}

func TestCacheStore_Path_ReturnsBoundPath(t *testing.T) {
	t.Parallel()

	store := NewCacheStore("/some/path.haste")
	assert.Equal(t, "/some/path.haste", store.Path())
}
