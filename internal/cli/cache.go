package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/hastemap/internal/haste"
)

var cleanAllFlag bool

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the snapshot cache",
}

var cacheCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove the cached snapshot, forcing a full rebuild",
	Long: `clean removes the snapshot file for the current project's cache key.
This forces the next 'hastemap build' to do a full crawl and re-extraction.

Use --all to remove every snapshot under the cache directory, including
ones left behind by roots or config that no longer exist (a supplemented
feature beyond the base spec: stale-root eviction).

Examples:
  hastemap cache clean
  hastemap cache clean --all
`,
	RunE: runCacheClean,
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheCleanCmd)
	cacheCleanCmd.Flags().BoolVarP(&cleanAllFlag, "all", "a", false, "remove every snapshot in the cache directory, not just this project's")
}

func runCacheClean(cmd *cobra.Command, args []string) error {
	hasteCfg, err := loadHasteConfig()
	if err != nil {
		return err
	}

	if cleanAllFlag {
		return cleanAllSnapshots(hasteCfg.CacheDirectory)
	}

	cachePath := haste.SnapshotPath(hasteCfg.CacheDirectory, hasteCfg.Name, cacheKeyParts(hasteCfg))
	if _, err := os.Stat(cachePath); os.IsNotExist(err) {
		fmt.Println("no cache found for this project")
		return nil
	}
	if err := os.Remove(cachePath); err != nil {
		return fmt.Errorf("remove snapshot: %w", err)
	}
	fmt.Println("cache cleared, next build will do a full crawl")
	return nil
}

func cleanAllSnapshots(cacheDir string) error {
	entries, err := os.ReadDir(cacheDir)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Println("no cache directory found")
			return nil
		}
		return fmt.Errorf("read cache directory: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".haste") {
			continue
		}
		if err := os.Remove(filepath.Join(cacheDir, entry.Name())); err == nil {
			removed++
		}
	}
	fmt.Printf("removed %d snapshot(s)\n", removed)
	return nil
}
