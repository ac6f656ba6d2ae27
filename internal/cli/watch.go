package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/hastemap/internal/haste"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Build once, then keep the snapshot live against filesystem changes",
	Long: `watch performs an initial build and then keeps the snapshot up to date
as files change, persisting after every coalesced batch of changes. Entering
watch mode forces retain-all-files on and throw-on-module-collision off, so a
long-running watch survives a transient collision instead of exiting.
`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().BoolVarP(&quietFlag, "quiet", "q", false, "disable progress output")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\ninterrupted, stopping watch...")
		cancel()
	}()

	hasteCfg, err := loadHasteConfig()
	if err != nil {
		return err
	}
	hasteCfg.Watch = true

	cachePath := haste.SnapshotPath(hasteCfg.CacheDirectory, hasteCfg.Name, cacheKeyParts(hasteCfg))
	cache := haste.NewCacheStore(cachePath)

	prevClocks := cache.Read().Clocks
	crawler, err := haste.CrawlerFor(ctx, hasteCfg, watchSocketPath(hasteCfg), prevClocks)
	if err != nil {
		return fmt.Errorf("select crawler: %w", err)
	}

	builder := haste.NewBuilder(hasteCfg, cache, crawler, NewCLIProgressReporter(quietFlag))
	initial, err := haste.WaitReady(ctx, builder)
	if err != nil {
		return fmt.Errorf("initial build: %w", err)
	}

	watcher, err := haste.NewWatcher(hasteCfg, cache, initial)
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer watcher.Stop()

	events := make(chan haste.WatchEvent, 8)
	watcher.Subscribe(events)
	watcher.Start(ctx)

	if !quietFlag {
		fmt.Println("watching for changes, press Ctrl+C to stop")
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			if quietFlag {
				continue
			}
			fmt.Printf("updated %d file(s), removed %d, %d files tracked\n",
				len(ev.Changed), len(ev.Removed), len(ev.Snapshot.Files))
		}
	}
}
