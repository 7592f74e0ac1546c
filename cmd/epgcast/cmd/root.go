// Package cmd implements the CLI commands for epgcast.
package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/stwalsh4118/epgcast/internal/config"
	"github.com/stwalsh4118/epgcast/internal/logger"
)

var (
	// cfgFile holds the config file path from CLI flag
	cfgFile string
	// cfg is loaded once before any subcommand runs
	cfg *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "epgcast",
	Short:   "Stream an XMLTV guide as live channels",
	Version: Version,
	Long: `epgcast serves every channel of an XMLTV guide as a continuous Matroska
stream. Programmes are resolved through a Torznab search index and a
content provider, and played from the point the schedule has reached.

Configuration is read from config.yaml, a .env file and EPGCAST_* environment
variables, for example:
  EPGCAST_GUIDE_URL      - XMLTV guide location
  EPGCAST_SEARCH_HOST    - Torznab (Jackett) base URL
  EPGCAST_SEARCH_APIKEY  - Torznab API key
  EPGCAST_PROVIDER_URL   - content provider base URL`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		return fmt.Errorf("executing root command: %w", err)
	}
	return nil
}

func init() {
	// set here to avoid an initialization cycle through rootCmd
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		if cmd.Name() == versionCmd.Name() {
			return nil
		}
		return loadConfig()
	}

	// Flags are not bound to viper; they override config only when set explicitly
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("pretty", false, "human readable console logs")
}

func loadConfig() error {
	loaded, err := config.LoadFile(cfgFile)
	if err != nil {
		return err
	}

	flags := rootCmd.PersistentFlags()
	if flags.Changed("log-level") {
		level, _ := flags.GetString("log-level")
		loaded.Logging.Level = strings.ToLower(level)
	}
	if flags.Changed("pretty") {
		loaded.Logging.Pretty, _ = flags.GetBool("pretty")
	}

	logger.Init(loaded.Logging.Level, loaded.Logging.Pretty)
	cfg = loaded
	return nil
}
