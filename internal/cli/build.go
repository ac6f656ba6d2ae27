package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/hastemap/internal/config"
	"github.com/mvp-joe/hastemap/internal/gitutil"
	"github.com/mvp-joe/hastemap/internal/haste"
)

var quietFlag bool

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Crawl the project and (re)build the haste module snapshot",
	Long: `build crawls every configured root, extracts haste module identifiers
from changed files, reconciles duplicates and mocks, and persists the result
to the snapshot cache.

Examples:
  hastemap build
  hastemap build --quiet
`,
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)
	buildCmd.Flags().BoolVarP(&quietFlag, "quiet", "q", false, "disable progress output")
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\ninterrupted, cancelling build...")
		cancel()
	}()

	hasteCfg, err := loadHasteConfig()
	if err != nil {
		return err
	}

	snap, err := buildOnce(ctx, hasteCfg, NewCLIProgressReporter(quietFlag))
	if err != nil {
		return err
	}

	fmt.Printf("%d files tracked, %d module ids bound\n", len(snap.Files), len(snap.Modules))
	return nil
}

// loadHasteConfig loads .hastemap/config.yml rooted at the project's git
// worktree root and converts it into a haste.Config.
func loadHasteConfig() (*haste.Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}
	rootDir := gitutil.WorktreeRoot(wd)

	loaded, err := config.LoadFromDir(rootDir)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	hasteCfg, err := loaded.ToHasteConfig(rootDir, Version)
	if err != nil {
		return nil, fmt.Errorf("convert configuration: %w", err)
	}
	if err := hasteCfg.Normalize(); err != nil {
		return nil, fmt.Errorf("normalize configuration: %w", err)
	}
	return hasteCfg, nil
}

// buildOnce resolves the snapshot's cache path, picks a crawler (daemon or
// native), and runs one Builder.Build call.
func buildOnce(ctx context.Context, cfg *haste.Config, progress haste.ProgressReporter) (*haste.Snapshot, error) {
	cachePath := haste.SnapshotPath(cfg.CacheDirectory, cfg.Name, cacheKeyParts(cfg))
	cache := haste.NewCacheStore(cachePath)

	prevClocks := cache.Read().Clocks
	crawler, err := haste.CrawlerFor(ctx, cfg, watchSocketPath(cfg), prevClocks)
	if err != nil {
		return nil, fmt.Errorf("select crawler: %w", err)
	}

	builder := haste.NewBuilder(cfg, cache, crawler, progress)
	return builder.Build(ctx)
}

func cacheKeyParts(cfg *haste.Config) haste.CacheKeyParts {
	depKey := ""
	if cfg.DependencyExtractor != nil {
		depKey = cfg.DependencyExtractor.GetCacheKey()
	}
	hasteKey := ""
	if cfg.HasteImpl != nil {
		hasteKey = cfg.HasteImpl.GetCacheKey()
	}
	ignoreSrc := ""
	if cfg.IgnorePattern != nil {
		ignoreSrc = cfg.IgnorePattern.String()
	}
	return haste.CacheKeyParts{
		ToolVersion:            cfg.ToolVersion,
		ProjectName:            cfg.Name,
		RootDirDigest:          haste.RootDirDigest(cfg.RootDir),
		Roots:                  cfg.Roots,
		Extensions:             cfg.Extensions,
		Platforms:              cfg.Platforms,
		ComputeSha1:            cfg.ComputeSha1,
		MocksPattern:           cfg.MocksPattern,
		IgnorePatternSource:    ignoreSrc,
		HasteImplCacheKey:      hasteKey,
		DependencyExtractorKey: depKey,
	}
}

func watchSocketPath(cfg *haste.Config) string {
	if !cfg.UseWatchman {
		return ""
	}
	return os.Getenv("HASTEMAP_DAEMON_SOCKET")
}
