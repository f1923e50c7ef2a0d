// Package cli implements the flowc command line interface.
package cli

import (
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/me/flowc/internal/logging"
)

var (
	flagDebug     bool
	flagLogLevel  string
	flagLogFormat string

	logger *slog.Logger
)

// NewRootCmd creates the root cobra command for the flowc CLI.
// Every flag is also settable through a FLOWC_ environment variable
// (FLOWC_LOG_LEVEL, FLOWC_CATALOG_DB, ...).
func NewRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("FLOWC")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:   "flowc",
		Short: "flowc builds typed workflow graphs and compiles them to CWL and WDL",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			flagLogLevel = v.GetString("log-level")
			flagLogFormat = v.GetString("log-format")
			if flagDebug {
				flagLogLevel = "debug"
			}
			logger = logging.New(flagLogLevel, flagLogFormat)
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "Log format (text, json)")
	v.BindPFlag("log-level", root.PersistentFlags().Lookup("log-level"))
	v.BindPFlag("log-format", root.PersistentFlags().Lookup("log-format"))

	root.AddCommand(
		newFormatsCmd(),
		newCatalogCmd(v),
	)

	return root
}
