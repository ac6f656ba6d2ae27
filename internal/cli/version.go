package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Version information, set via ldflags at build time.
	Version   = "dev"
	GitCommit = "none"
	BuildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the hastemap version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("hastemap %s\n", Version)
		fmt.Printf("git commit: %s\n", GitCommit)
		fmt.Printf("build date: %s\n", BuildDate)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
