// Package config loads hastemap configuration from .hastemap/config.yml,
// environment variables, and CLI flags, and converts the result into a
// haste.Config ready for Config.Normalize.
package config

import (
	"github.com/mvp-joe/hastemap/internal/haste"
)

// Config mirrors every haste.Config option as a YAML/env-bindable struct.
// Fields that are haste.Config functions or interfaces (IgnorePredicate,
// HasteImpl, DependencyExtractor) have no config-file representation and
// are left for the caller to set on the converted haste.Config directly.
type Config struct {
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Roots     RootsConfig     `yaml:"roots" mapstructure:"roots"`
	Extract   ExtractConfig   `yaml:"extract" mapstructure:"extract"`
	Collision CollisionConfig `yaml:"collision" mapstructure:"collision"`
	Watch     WatchConfig     `yaml:"watch" mapstructure:"watch"`
}

// CacheConfig configures snapshot persistence.
type CacheConfig struct {
	Directory string `yaml:"directory" mapstructure:"directory"`
	Name      string `yaml:"name" mapstructure:"name"`
	Reset     bool   `yaml:"reset" mapstructure:"reset"`
}

// RootsConfig configures which trees and files are scanned.
type RootsConfig struct {
	Paths          []string `yaml:"paths" mapstructure:"paths"`
	Extensions     []string `yaml:"extensions" mapstructure:"extensions"`
	Ignore         string   `yaml:"ignore" mapstructure:"ignore"`
	RetainAllFiles bool     `yaml:"retain_all_files" mapstructure:"retain_all_files"`
	EnableSymlinks bool     `yaml:"enable_symlinks" mapstructure:"enable_symlinks"`
}

// ExtractConfig configures per-file extraction.
type ExtractConfig struct {
	ComputeDependencies    bool   `yaml:"compute_dependencies" mapstructure:"compute_dependencies"`
	ComputeSha1            bool   `yaml:"compute_sha1" mapstructure:"compute_sha1"`
	SkipPackageJSON        bool   `yaml:"skip_package_json" mapstructure:"skip_package_json"`
	MocksPattern           string `yaml:"mocks_pattern" mapstructure:"mocks_pattern"`
	MaxWorkers             int    `yaml:"max_workers" mapstructure:"max_workers"`
	ForceInBand            bool   `yaml:"force_in_band" mapstructure:"force_in_band"`
	ForceNodeFilesystemAPI bool   `yaml:"force_node_filesystem_api" mapstructure:"force_node_filesystem_api"`
}

// CollisionConfig configures duplicate-module handling.
type CollisionConfig struct {
	ThrowOnModuleCollision bool     `yaml:"throw_on_module_collision" mapstructure:"throw_on_module_collision"`
	Platforms              []string `yaml:"platforms" mapstructure:"platforms"`
}

// WatchConfig configures watch-mode and the filesystem daemon.
type WatchConfig struct {
	Enabled     bool   `yaml:"enabled" mapstructure:"enabled"`
	UseWatchman bool   `yaml:"use_watchman" mapstructure:"use_watchman"`
	SocketPath  string `yaml:"socket_path" mapstructure:"socket_path"`
}

// Default returns the built-in defaults, applied before any config file or
// environment variable is consulted.
func Default() *Config {
	return &Config{
		Cache: CacheConfig{
			Name: "hastemap",
		},
		Roots: RootsConfig{
			Paths: []string{"."},
			Extensions: []string{
				"js", "jsx", "mjs", "cjs", "ts", "tsx", "json",
			},
			Ignore: "(^|/)(node_modules|\\.git|\\.hg|dist|build)(/|$)",
		},
		Extract: ExtractConfig{
			ComputeDependencies: true,
			MaxWorkers:          4,
		},
		Collision: CollisionConfig{
			ThrowOnModuleCollision: false,
		},
		Watch: WatchConfig{
			UseWatchman: true,
			SocketPath:  "",
		},
	}
}

// ToHasteConfig converts the loaded configuration into a haste.Config.
// Roots are passed through as configured; relative roots are not resolved
// against rootDir. The returned Config still needs Normalize() called on it.
func (c *Config) ToHasteConfig(rootDir, toolVersion string) (*haste.Config, error) {
	ignoreRe, err := compileIgnore(c.Roots.Ignore)
	if err != nil {
		return nil, err
	}

	return &haste.Config{
		CacheDirectory:         c.Cache.Directory,
		ComputeDependencies:    c.Extract.ComputeDependencies,
		ComputeSha1:            c.Extract.ComputeSha1,
		EnableSymlinks:         c.Roots.EnableSymlinks,
		Extensions:             c.Roots.Extensions,
		ForceNodeFilesystemAPI: c.Extract.ForceNodeFilesystemAPI,
		IgnorePattern:          ignoreRe,
		MaxWorkers:             c.Extract.MaxWorkers,
		MocksPattern:           c.Extract.MocksPattern,
		Name:                   c.Cache.Name,
		Platforms:              c.Collision.Platforms,
		ResetCache:             c.Cache.Reset,
		RetainAllFiles:         c.Roots.RetainAllFiles,
		RootDir:                rootDir,
		Roots:                  c.Roots.Paths,
		SkipPackageJSON:        c.Extract.SkipPackageJSON,
		ThrowOnModuleCollision: c.Collision.ThrowOnModuleCollision,
		UseWatchman:            c.Watch.UseWatchman,
		Watch:                  c.Watch.Enabled,
		ForceInBand:            c.Extract.ForceInBand,
		ToolVersion:            toolVersion,
	}, nil
}
