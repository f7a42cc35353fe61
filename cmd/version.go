// =============================================================================
// XtractPajak - Version Command
// =============================================================================
//
// COMMAND USAGE:
//   xtractpajak version
//
// OUTPUT:
//   XtractPajak
//   Version:    1.0.0
//   Build Date: 2024-01-01
//   Go Version: go1.22.0
//   Rate Table: ./configs/rates.yaml
//
// =============================================================================

package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// These variables are set at build time using ldflags:
//   go build -ldflags "-X 'github.com/ginjaninja78/xtractpajak/cmd.Version=1.0.0'"

// Version is the application version.
var Version = "1.0.0"

// BuildDate is the date the application was built.
var BuildDate = "unknown"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display the application version",
	Long:  `Display the application version, build date, Go runtime version and the rate table in use.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "XtractPajak")
		fmt.Fprintf(out, "Version:    %s\n", Version)
		fmt.Fprintf(out, "Build Date: %s\n", BuildDate)
		fmt.Fprintf(out, "Go Version: %s\n", runtime.Version())
		if mainConfig != nil {
			fmt.Fprintf(out, "Rate Table: %s\n", mainConfig.RateTable)
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
