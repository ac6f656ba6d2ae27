package haste

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Normalize_FillsDefaults(t *testing.T) {
	t.Parallel()

	cfg := &Config{}
	require.NoError(t, cfg.Normalize())

	assert.NotEmpty(t, cfg.CacheDirectory)
	assert.Equal(t, 1, cfg.MaxWorkers)
	assert.NotNil(t, cfg.Platforms)
	assert.NotNil(t, cfg.HasteImpl)
	assert.NotNil(t, cfg.DependencyExtractor)
}

func TestConfig_Normalize_DedupesAndSortsRoots(t *testing.T) {
	t.Parallel()

	cfg := &Config{Roots: []string{"src", "lib", "src", "./lib"}}
	require.NoError(t, cfg.Normalize())

	assert.Equal(t, []string{"lib", "src"}, cfg.Roots)
}

func TestConfig_Normalize_PreservesExplicitMaxWorkers(t *testing.T) {
	t.Parallel()

	cfg := &Config{MaxWorkers: 8}
	require.NoError(t, cfg.Normalize())
	assert.Equal(t, 8, cfg.MaxWorkers)
}

func TestConfig_Normalize_PreservesExplicitPlugins(t *testing.T) {
	t.Parallel()

	impl := defaultHasteImpl{}
	extr := defaultDependencyExtractor{}
	cfg := &Config{HasteImpl: impl, DependencyExtractor: extr}
	require.NoError(t, cfg.Normalize())
	assert.Equal(t, impl, cfg.HasteImpl)
	assert.Equal(t, extr, cfg.DependencyExtractor)
}
