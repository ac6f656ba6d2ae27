package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader loads configuration from file and environment, defaults first.
// Grounded on the config.loader type: same viper wiring (env prefix,
// config-dir search, SetDefault before ReadInConfig), adapted from
// cortex's embedding/chunking/storage sections to hastemap's
// cache/roots/extract/collision/watch sections.
type Loader interface {
	Load() (*Config, error)
}

type loader struct {
	rootDir string
}

// NewLoader returns a Loader that searches rootDir/.hastemap/config.yml.
func NewLoader(rootDir string) Loader {
	return &loader{rootDir: rootDir}
}

// Load reads configuration with priority (highest to lowest):
// 1. Environment variables (HASTEMAP_*)
// 2. .hastemap/config.yml
// 3. Default()
func (l *loader) Load() (*Config, error) {
	v := viper.New()

	configDir := filepath.Join(l.rootDir, ".hastemap")
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)

	v.SetEnvPrefix("HASTEMAP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.BindEnv("cache.directory")
	v.BindEnv("cache.reset")
	v.BindEnv("roots.paths")
	v.BindEnv("roots.ignore")
	v.BindEnv("extract.max_workers")
	v.BindEnv("collision.throw_on_module_collision")
	v.BindEnv("watch.enabled")
	v.BindEnv("watch.use_watchman")

	setDefaults(v, Default())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("cache.directory", d.Cache.Directory)
	v.SetDefault("cache.name", d.Cache.Name)
	v.SetDefault("cache.reset", d.Cache.Reset)

	v.SetDefault("roots.paths", d.Roots.Paths)
	v.SetDefault("roots.extensions", d.Roots.Extensions)
	v.SetDefault("roots.ignore", d.Roots.Ignore)
	v.SetDefault("roots.retain_all_files", d.Roots.RetainAllFiles)
	v.SetDefault("roots.enable_symlinks", d.Roots.EnableSymlinks)

	v.SetDefault("extract.compute_dependencies", d.Extract.ComputeDependencies)
	v.SetDefault("extract.compute_sha1", d.Extract.ComputeSha1)
	v.SetDefault("extract.skip_package_json", d.Extract.SkipPackageJSON)
	v.SetDefault("extract.mocks_pattern", d.Extract.MocksPattern)
	v.SetDefault("extract.max_workers", d.Extract.MaxWorkers)
	v.SetDefault("extract.force_in_band", d.Extract.ForceInBand)
	v.SetDefault("extract.force_node_filesystem_api", d.Extract.ForceNodeFilesystemAPI)

	v.SetDefault("collision.throw_on_module_collision", d.Collision.ThrowOnModuleCollision)
	v.SetDefault("collision.platforms", d.Collision.Platforms)

	v.SetDefault("watch.enabled", d.Watch.Enabled)
	v.SetDefault("watch.use_watchman", d.Watch.UseWatchman)
	v.SetDefault("watch.socket_path", d.Watch.SocketPath)
}

// LoadFromDir is a convenience wrapper around NewLoader(rootDir).Load().
func LoadFromDir(rootDir string) (*Config, error) {
	return NewLoader(rootDir).Load()
}
