package cli

import (
	"fmt"
	"log"
	"time"

	"github.com/mvp-joe/hastemap/internal/haste"
	"github.com/schollz/progressbar/v3"
)

// CLIProgressReporter renders hastemap's Idle->Done state machine with a
// progress bar during extraction. Grounded on CLIProgressReporter's
// discovery/embedding/graph bars, trimmed to haste's crawl/extract/persist
// phases.
type CLIProgressReporter struct {
	quiet     bool
	bar       *progressbar.ProgressBar
	startTime time.Time
}

// NewCLIProgressReporter builds a reporter; quiet suppresses all output.
func NewCLIProgressReporter(quiet bool) *CLIProgressReporter {
	return &CLIProgressReporter{quiet: quiet, startTime: time.Now()}
}

func (c *CLIProgressReporter) OnCrawlStart() {
	if c.quiet {
		return
	}
	log.Println("Crawling for changes...")
}

func (c *CLIProgressReporter) OnCrawlComplete(added, modified, deleted, unchanged int) {
	if c.quiet {
		return
	}
	log.Printf("Found %d added, %d modified, %d deleted, %d unchanged\n", added, modified, deleted, unchanged)
}

func (c *CLIProgressReporter) OnExtractionStart(total int) {
	if c.quiet || total == 0 {
		return
	}
	c.bar = progressbar.NewOptions(total,
		progressbar.OptionSetDescription("Extracting"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("files/s"),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() { fmt.Println() }),
	)
}

func (c *CLIProgressReporter) OnFileExtracted(relPath string) {
	if c.quiet || c.bar == nil {
		return
	}
	c.bar.Add(1)
}

func (c *CLIProgressReporter) OnPersisting() {
	if c.quiet {
		return
	}
	log.Println("Persisting snapshot...")
}

func (c *CLIProgressReporter) OnComplete(stats haste.BuildStats) {
	if c.quiet {
		return
	}
	fmt.Println()
	fmt.Printf("done: +%d ~%d -%d (%d unchanged) in %.2fs\n",
		stats.Added, stats.Modified, stats.Deleted, stats.Unchanged, stats.Duration.Seconds())
}
