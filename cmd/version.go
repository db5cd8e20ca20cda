package cmd

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/khanhnv2901/domain-insight/internal/domain/report"
	"github.com/spf13/cobra"
)

// Build metadata, set with -ldflags "-X github.com/khanhnv2901/domain-insight/cmd.Version=...".
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  "Print the insight version. With --verbose, also list the analysis sources and build details.",
	Run: func(cmd *cobra.Command, args []string) {
		verbose, _ := cmd.Flags().GetBool("verbose")
		out := cmd.OutOrStdout()

		if !verbose {
			fmt.Fprintf(out, "insight version %s\n", Version)
			return
		}

		fmt.Fprintf(out, "insight %s: domain health, security and performance analysis\n", Version)
		fmt.Fprintf(out, "  Sources:    %s\n", strings.Join(report.SlotNames, ", "))
		fmt.Fprintf(out, "  Git Commit: %s\n", GitCommit)
		fmt.Fprintf(out, "  Build Date: %s\n", BuildDate)
		fmt.Fprintf(out, "  Go Version: %s (%s/%s)\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	versionCmd.Flags().BoolP("verbose", "v", false, "Show detailed version information")
}
