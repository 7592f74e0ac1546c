package cmd

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Set at build time with -ldflags "-X github.com/stwalsh4118/epgcast/cmd/epgcast/cmd.Version=..."
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

var versionJSON bool

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  "Print the version, commit, and build date of epgcast.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		info := map[string]string{
			"version":    Version,
			"commit":     Commit,
			"build_date": BuildDate,
			"go":         runtime.Version(),
			"platform":   runtime.GOOS + "/" + runtime.GOARCH,
		}
		if versionJSON {
			out, err := json.Marshal(info)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return err
		}

		_, err := fmt.Fprintf(cmd.OutOrStdout(), "epgcast %s (commit %s, built %s, %s %s)\n",
			Version, Commit, BuildDate, info["go"], info["platform"])
		return err
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "output version information as JSON")
	rootCmd.AddCommand(versionCmd)
}
